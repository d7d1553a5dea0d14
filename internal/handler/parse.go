package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/middleware"
	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/cleberrangel/workscan-api/internal/service"
)

// ParseHandler converte descrições em texto livre em workflows
type ParseHandler struct {
	parser *service.TaskParser
}

// NewParseHandler cria um novo handler de extração de tarefas
func NewParseHandler(parser *service.TaskParser) *ParseHandler {
	return &ParseHandler{parser: parser}
}

// ParsedTasksResponse é o workflow sugerido a partir do texto
type ParsedTasksResponse struct {
	WorkflowName        string             `json:"workflow_name"`
	WorkflowDescription string             `json:"workflow_description"`
	Tasks               []model.TaskCreate `json:"tasks"`
}

// ParseTasks extrai nome, descrição e tarefas de um texto livre.
// O resultado não é gravado; o cliente revisa e envia para /api/workflows.
// @Summary      Extrai tarefas de texto livre
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        request body model.ParseTasksRequest true "Descrição do workflow"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Failure      503 {object} model.ErrorResponse
// @Router       /api/parse-tasks [post]
func (h *ParseHandler) ParseTasks(c *gin.Context) {
	var req model.ParseTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	parsed, err := h.parser.Parse(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.SanitizeWorkflowCreate(parsed)

	c.JSON(http.StatusOK, model.Response{Success: true, Data: ParsedTasksResponse{
		WorkflowName:        parsed.Name,
		WorkflowDescription: parsed.Description,
		Tasks:               parsed.Tasks,
	}})
}
