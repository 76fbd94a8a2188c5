package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/fieldops/internal/service"
)

// RegisterTeam POST /equipes
func (h *Handler) RegisterTeam(c *gin.Context) {
	var in service.RegisterTeamInput
	if !bindJSON(c, &in) {
		return
	}

	team, err := h.services.Teams.RegisterTeam(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": team})
}

// GetActiveTeam GET /equipes/ativa
func (h *Handler) GetActiveTeam(c *gin.Context) {
	team, err := h.services.Teams.ActiveTeam(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": team})
}

// GetTeam GET /equipes/:id
func (h *Handler) GetTeam(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	team, err := h.services.Teams.GetTeam(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": team})
}

// ListTeams GET /equipes
func (h *Handler) ListTeams(c *gin.Context) {
	page, limit := pageParams(c)
	teams, p, err := h.services.Teams.ListTeams(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, teams, p)
}
