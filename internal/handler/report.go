package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler manipula requisições de relatório
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler cria um novo handler de relatórios
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// DownloadXLSX gera o relatório Excel da análise gravada
// @Summary      Baixa relatório Excel
// @Description  Resumo executivo, tarefas ordenadas pelo score e roadmap
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        workflow_id path int true "ID do workflow"
// @Success      200 {file} binary
// @Failure      404 {object} model.ErrorResponse
// @Failure      500 {object} model.ErrorResponse
// @Router       /api/reports/{workflow_id}/xlsx [get]
func (h *ReportHandler) DownloadXLSX(c *gin.Context) {
	id, ok := parseID(c, "workflow_id")
	if !ok {
		return
	}

	result, err := h.reportService.GenerateXLSX(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header("X-Total-Tasks", strconv.Itoa(result.TotalTasks))
	c.Data(http.StatusOK, xlsxContentType, result.Content.Bytes())
}
