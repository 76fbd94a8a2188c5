package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/fieldops/internal/api/handlers"
	"github.com/langchou/fieldops/internal/config"
	"github.com/langchou/fieldops/internal/metrics"
	"github.com/langchou/fieldops/internal/repository"
	"github.com/langchou/fieldops/internal/repository/sqlite"
	"github.com/langchou/fieldops/internal/service"
	"github.com/langchou/fieldops/internal/state"
	"github.com/langchou/fieldops/internal/store"
	"github.com/langchou/fieldops/pkg/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fieldops",
		Short: "Field operations tracking server",
		Long: `fieldops records field crews, their well operations and the travel,
wait, meal and refuel activities in between, and streams changes over websocket.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP server",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE:  runMigrate,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("Database migrated successfully", zap.String("driver", cfg.Driver))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting fieldops",
		zap.String("port", cfg.ServerPort),
		zap.String("driver", cfg.Driver),
		zap.String("stage_policy", string(cfg.StagePolicy)),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("Database migrated successfully")

	cache := state.NewCache(st)
	m := metrics.New()
	if _, err := cache.ActiveOperation(ctx); err == nil {
		m.SetOperationActive(true)
	}

	wsHub := ws.NewHub(logger)
	wsHub.SetInitDataProvider(func(ctx context.Context) *ws.InitData {
		snapshot := &ws.InitData{}
		if team, err := cache.ActiveTeam(ctx); err == nil {
			snapshot.Team = team
		}
		if op, err := cache.ActiveOperation(ctx); err == nil {
			snapshot.Operation = op
		}
		return snapshot
	})
	go wsHub.Run(ctx)

	services := service.New(service.Deps{
		Logger:  logger,
		Store:   st,
		Cache:   cache,
		Events:  wsHub,
		Metrics: m,
	}, cfg.StagePolicy)

	handler := handlers.NewHandler(logger, services, st, wsHub, m)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.RequestID())
	router.Use(handlers.Logger(logger))
	router.Use(handlers.Metrics(m))
	router.Use(corsMiddleware())

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
	}

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	// stops the hub and disconnects websocket clients
	cancel()

	logger.Info("Server exited")
	return nil
}

// openStore connects to the configured database.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath, logger.Named("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return st, nil
	default:
		db, err := repository.New(ctx, cfg.PostgresURL(), repository.PoolOptions{
			MaxConns: int32(cfg.MaxConns),
			MinConns: int32(cfg.MinConns),
		})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		return repository.NewStore(db), nil
	}
}

func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware allows any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
