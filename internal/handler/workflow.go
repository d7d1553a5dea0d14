package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/workscan-api/internal/middleware"
	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/cleberrangel/workscan-api/internal/service"
)

// WorkflowHandler manipula o cadastro de workflows
type WorkflowHandler struct {
	workflows *service.WorkflowService
}

// NewWorkflowHandler cria um novo handler de workflows
func NewWorkflowHandler(workflows *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// Create cadastra um workflow com suas tarefas
// @Summary      Cadastra workflow
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        request body model.WorkflowCreate true "Workflow e tarefas"
// @Success      201 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Router       /api/workflows [post]
func (h *WorkflowHandler) Create(c *gin.Context) {
	var req model.WorkflowCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	middleware.SanitizeWorkflowCreate(&req)

	workflow, err := h.workflows.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.Response{Success: true, Data: workflow})
}

// List retorna os workflows paginados
// @Summary      Lista workflows
// @Tags         workflows
// @Produce      json
// @Param        limit  query int false "Itens por página (máx. 100)"
// @Param        offset query int false "Deslocamento"
// @Success      200 {object} model.Response
// @Router       /api/workflows [get]
func (h *WorkflowHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	workflows, total, err := h.workflows.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if workflows == nil {
		workflows = []model.Workflow{}
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    workflows,
		Meta:    &model.Meta{Total: total},
	})
}

// Get retorna um workflow com as tarefas
// @Summary      Detalha workflow
// @Tags         workflows
// @Produce      json
// @Param        id path int true "ID do workflow"
// @Success      200 {object} model.Response
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/workflows/{id} [get]
func (h *WorkflowHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	workflow, err := h.workflows.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: workflow})
}

// Delete remove um workflow, suas tarefas e a análise
// @Summary      Remove workflow
// @Tags         workflows
// @Security     BearerAuth
// @Param        id path int true "ID do workflow"
// @Success      204
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/workflows/{id} [delete]
func (h *WorkflowHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.workflows.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
