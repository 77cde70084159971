package main

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"payflow/internal/audit"
	rediscache "payflow/internal/cache/redis"
	"payflow/internal/config"
	erpmock "payflow/internal/erp/mock"
	erpxlsx "payflow/internal/erp/xlsx"
	"payflow/internal/handler"
	"payflow/internal/matcher"
	"payflow/internal/metrics"
	"payflow/internal/notify/noop"
	"payflow/internal/notify/ses"
	"payflow/internal/port"
	"payflow/internal/ratelimit"
	"payflow/internal/repository/postgres"
	"payflow/internal/router"
	"payflow/internal/service"
	fssource "payflow/internal/source/fs"
	s3source "payflow/internal/source/s3"
	"payflow/internal/workflow"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Repositories and sinks
	workflowRepo := postgres.NewWorkflowRepo(db)
	historyRepo := postgres.NewHistoryRepo(db)
	auditSink := audit.NewSink(postgres.NewAuditRepo(db))
	cache := rediscache.NewCache(&cfg.Redis)
	defer cache.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Invoice source
	var source port.SourceManager
	switch cfg.Source.Provider {
	case "s3":
		source, err = s3source.NewSource(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 source: %w", err)
		}
	default:
		source, err = fssource.NewSource(cfg.Source.UploadDir)
		if err != nil {
			return fmt.Errorf("failed to initialize filesystem source: %w", err)
		}
	}

	// ERP gateway: a workbook export when configured, an in-memory
	// gateway otherwise.
	var erp port.ERPGateway
	if path := cfg.Source.ERPWorkbook; path != "" {
		erp, err = erpxlsx.Open(path)
		if err != nil {
			return fmt.Errorf("failed to load ERP workbook: %w", err)
		}
	} else {
		erp = erpmock.NewGateway()
	}

	// Notifications
	var notifier port.NotificationSink
	if cfg.Email.Provider == "ses" {
		notifier, err = ses.NewSink(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.Recipients)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sink: %w", err)
		}
	} else {
		notifier = noop.NewSink()
	}

	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	workflows := workflow.NewManager(workflowRepo)

	orch := service.NewOrchestrator(
		erp, nil, source, workflows, historyRepo, auditSink, notifier,
		cache, collector, limiter, thresholdsFromConfig(&cfg.Matching), cfg.Processing,
	)

	h := router.Handlers{
		Health:   handler.NewHealthHandler(db, cache),
		Workflow: handler.NewWorkflowHandler(workflows, orch, cache),
		History:  handler.NewHistoryHandler(historyRepo),
	}
	r := router.New(&cfg.Server, h, registry)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func thresholdsFromConfig(m *config.MatchingConfig) matcher.Thresholds {
	return matcher.Thresholds{
		AmountTolerance:              m.AmountTolerance,
		ConfidenceThreshold:          m.ConfidenceThreshold,
		MinConfidenceScore:           m.MinConfidenceScore,
		PartialMatchMaxDiscrepancies: m.PartialMatchMaxDiscrepancies,
		LineItemQuantityTolerance:    m.LineItemQuantityTolerance,
		PriceTolerancePercentage:     m.PriceTolerancePercentage,
	}
}
