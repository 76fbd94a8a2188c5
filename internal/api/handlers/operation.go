package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/fieldops/internal/service"
)

// StartOperation POST /operacoes
func (h *Handler) StartOperation(c *gin.Context) {
	var in service.StartOperationInput
	if !bindJSON(c, &in) {
		return
	}

	op, err := h.services.Operations.StartOperation(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": op})
}

// GetActiveOperation GET /operacoes/ativa
func (h *Handler) GetActiveOperation(c *gin.Context) {
	op, err := h.services.Operations.ActiveOperation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": op})
}

// GetOperation GET /operacoes/:id
func (h *Handler) GetOperation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	op, err := h.services.Operations.GetOperation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": op})
}

// ListOperations GET /operacoes
func (h *Handler) ListOperations(c *gin.Context) {
	page, limit := pageParams(c)
	ops, p, err := h.services.Operations.ListOperations(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, ops, p)
}

// SetOperationStage PUT /operacoes/:id/etapa
func (h *Handler) SetOperationStage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in service.SetStageInput
	if !bindJSON(c, &in) {
		return
	}

	op, err := h.services.Operations.SetStage(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": op})
}
