package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/service"
)

// activityHandler routes of one activity kind
type activityHandler struct {
	svc *service.ActivityService
}

// Start POST /{kind}
func (a *activityHandler) Start(c *gin.Context) {
	var in service.StartActivityInput
	if !bindJSON(c, &in) {
		return
	}

	record, err := a.svc.Start(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": record})
}

// Finish PUT /{kind}/:id/finalizar
func (a *activityHandler) Finish(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in service.FinishActivityInput
	if !bindJSON(c, &in) {
		return
	}

	res, err := a.svc.Finish(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Activity == nil {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"message":          res.Message,
			"duracao_segundos": res.DurationSeconds,
		}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res.Activity})
}

// Active GET /{kind}/ativo?equipe_id=
func (a *activityHandler) Active(c *gin.Context) {
	teamID, ok := queryID(c, "equipe_id")
	if !ok {
		return
	}

	record, err := a.svc.Active(c.Request.Context(), teamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

// Get GET /{kind}/:id
func (a *activityHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	record, err := a.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

// List GET /{kind}?equipe_id=&operacao_id=&page=&limit=
func (a *activityHandler) List(c *gin.Context) {
	teamID, ok := queryID(c, "equipe_id")
	if !ok {
		return
	}
	opID, ok := queryID(c, "operacao_id")
	if !ok {
		return
	}
	page, limit := pageParams(c)

	records, p, err := a.svc.List(c.Request.Context(), models.ActivityFilter{TeamID: teamID, OperationID: opID}, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, records, p)
}
