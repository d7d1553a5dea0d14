package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/middleware"
	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/cleberrangel/workscan-api/internal/service"
)

// HeaderRecaptchaToken permite enviar o token anti-bot fora do corpo
const HeaderRecaptchaToken = "X-Recaptcha-Token"

// AnalysisHandler executa e consulta análises de workflows
type AnalysisHandler struct {
	analyses *service.AnalysisService
}

// NewAnalysisHandler cria um novo handler de análises
func NewAnalysisHandler(analyses *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analyses: analyses}
}

// AnalyzeResponse é o resultado de uma análise
type AnalyzeResponse struct {
	AnalysisID int64 `json:"analysis_id"`
	WorkflowID int64 `json:"workflow_id"`
	model.RoiSummary
	HourlyRate float64            `json:"hourly_rate"`
	Results    []model.ScoredTask `json:"results"`
}

func newAnalyzeResponse(a *model.Analysis) AnalyzeResponse {
	return AnalyzeResponse{
		AnalysisID: a.ID,
		WorkflowID: a.WorkflowID,
		RoiSummary: a.RoiSummary,
		HourlyRate: a.HourlyRate,
		Results:    a.Results,
	}
}

// Analyze executa a análise pública, sujeita à cota e à verificação anti-bot
// @Summary      Analisa workflow
// @Tags         analyses
// @Accept       json
// @Produce      json
// @Param        request body model.AnalyzeRequest true "Workflow e taxa horária"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      403 {object} model.ErrorResponse
// @Failure      404 {object} model.ErrorResponse
// @Failure      429 {object} model.ErrorResponse
// @Failure      503 {object} model.ErrorResponse
// @Router       /api/analyze [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token := req.RecaptchaToken
	if token == "" {
		token = c.GetHeader(HeaderRecaptchaToken)
	}

	analysis, err := h.analyses.Analyze(c.Request.Context(), service.AnalyzeWorkflowRequest{
		WorkflowID: req.WorkflowID,
		HourlyRate: req.HourlyRate,
		ClientID:   middleware.ClientID(c),
		TrustToken: token,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: newAnalyzeResponse(analysis)})
}

// AnalyzeWorkflow executa a análise pela rota administrativa, sem cota
// @Summary      Analisa workflow (admin)
// @Tags         analyses
// @Security     BearerAuth
// @Param        id path int true "ID do workflow"
// @Param        hourly_rate query number false "Taxa horária"
// @Success      200 {object} model.Response
// @Router       /api/workflows/{id}/analyze [post]
func (h *AnalysisHandler) AnalyzeWorkflow(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var body struct {
		HourlyRate *float64 `json:"hourly_rate"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			bindError(c, err)
			return
		}
	}

	analysis, err := h.analyses.Analyze(c.Request.Context(), service.AnalyzeWorkflowRequest{
		WorkflowID:   id,
		HourlyRate:   body.HourlyRate,
		ClientID:     middleware.ClientID(c),
		SkipGovernor: true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: newAnalyzeResponse(analysis)})
}

// Get retorna a análise gravada do workflow
// @Summary      Consulta análise
// @Tags         analyses
// @Produce      json
// @Param        workflow_id path int true "ID do workflow"
// @Success      200 {object} model.Response
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/analyses/{workflow_id} [get]
func (h *AnalysisHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "workflow_id")
	if !ok {
		return
	}

	analysis, err := h.analyses.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: newAnalyzeResponse(analysis)})
}
