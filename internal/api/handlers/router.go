package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/fieldops/internal/metrics"
	"github.com/langchou/fieldops/internal/service"
	"github.com/langchou/fieldops/pkg/ws"
)

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler HTTP handlers
type Handler struct {
	logger   *zap.Logger
	services *service.Services
	db       Pinger
	wsHub    *ws.Hub
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewHandler creates the handlers. wsHub and m may be nil.
func NewHandler(
	logger *zap.Logger,
	services *service.Services,
	db Pinger,
	wsHub *ws.Hub,
	m *metrics.Metrics,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:   logger,
		services: services,
		db:       db,
		wsHub:    wsHub,
		metrics:  m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboards are served from other origins
			},
		},
	}
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// teams
	r.POST("/equipes", h.RegisterTeam)
	r.GET("/equipes", h.ListTeams)
	r.GET("/equipes/ativa", h.GetActiveTeam)
	r.GET("/equipes/:id", h.GetTeam)

	// operations
	r.POST("/operacoes", h.StartOperation)
	r.GET("/operacoes", h.ListOperations)
	r.GET("/operacoes/ativa", h.GetActiveOperation)
	r.GET("/operacoes/:id", h.GetOperation)
	r.PUT("/operacoes/:id/etapa", h.SetOperationStage)

	// deslocamentos, aguardos, refeicoes, abastecimentos
	for kind, svc := range h.services.Activities {
		a := &activityHandler{svc: svc}
		g := r.Group("/" + string(kind))
		g.POST("", a.Start)
		g.GET("", a.List)
		g.GET("/ativo", a.Active)
		g.GET("/:id", a.Get)
		g.PUT("/:id/finalizar", a.Finish)
	}

	r.GET("/ws", h.HandleWebSocket)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	if h.wsHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime feed disabled"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck reports liveness and store reachability.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok", "database": "ok"}
	if h.wsHub != nil {
		body["ws_clients"] = h.wsHub.ClientCount()
	}
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Health check: database unreachable", zap.Error(err))
		body["status"] = "degraded"
		body["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
