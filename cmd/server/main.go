package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/api"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/config"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/database"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/eligibility"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/repository"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/services"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/webhook"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer logging.Sync()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	policy, err := eligibility.ParsePolicy(cfg.PostCreateStatus)
	if err != nil {
		log.Fatal("Invalid ELIGIBILITY_POST_CREATE_STATUS:", err)
	}

	// Delayed refreshes live as long as the process
	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	remote := webhook.NewClient(webhook.Endpoints{
		RecordsFetch:   cfg.RecordsFetchURL,
		RecordCreate:   cfg.RecordCreateURL,
		RecordUpdate:   cfg.RecordUpdateURL,
		RecordDelete:   cfg.RecordDeleteURL,
		ClientStatus:   cfg.ClientStatusURL,
		UsersFetch:     cfg.UsersFetchURL,
		ReportWorkflow: cfg.ReportWorkflowURL,
	}, cfg.WebhookTimeout())
	remote.SetSigningSecret(cfg.WebhookSecret)

	var (
		sessions services.SessionStore
		guard    services.RowGuard
	)
	if rdb := database.GetRedis(); rdb != nil {
		sessions = services.NewRedisSessionStore(rdb, cfg.SessionTTL())
		guard = services.NewRedisRowGuard(rdb, cfg.RowLockTTL())
	} else {
		memorySessions := services.NewMemorySessionStore(cfg.SessionTTL())
		defer memorySessions.Stop()
		sessions = memorySessions
		guard = services.NewMemoryRowGuard()
	}

	repo := repository.New()
	repo.Subscribe(func(records []models.PurchaseRecord) {
		logging.L().Debug("record cache updated", zap.Int("records", len(records)))
	})
	machine := eligibility.NewMachine(repo, policy)
	audit := database.NewAuditLog(database.GetDB())
	synchronizer := services.NewSynchronizer(remote, repo, cfg.RefreshDelay())

	handlers := &api.Handlers{
		Auth:     services.NewAuthService(remote, sessions, cfg.AdminUsername),
		Repo:     repo,
		Machine:  machine,
		Pipeline: services.NewSubmissionPipeline(remote, repo, machine, audit),
		Sync:     synchronizer,
		Actions:  services.NewClientActions(remote, repo, guard, audit),
		Audit:    audit,
		AppCtx:   appCtx,
	}

	// Warm the cache; an unreachable sheet is not fatal
	if err := synchronizer.Refresh(appCtx, false); err != nil {
		logging.Errorf("Initial refresh failed: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware())
	api.SetupRoutes(r, handlers, cfg.MaxUploadBytes())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-appCtx.Done()
	logging.Infof("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("Server forced to shutdown: %v", err)
	}
	logging.Infof("Server exited")
}
