package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"payflow/internal/audit"
	rediscache "payflow/internal/cache/redis"
	"payflow/internal/config"
	erpmock "payflow/internal/erp/mock"
	erpxlsx "payflow/internal/erp/xlsx"
	"payflow/internal/matcher"
	"payflow/internal/metrics"
	"payflow/internal/notify/noop"
	"payflow/internal/notify/ses"
	"payflow/internal/port"
	"payflow/internal/ratelimit"
	"payflow/internal/repository/postgres"
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

	workflowRepo := postgres.NewWorkflowRepo(db)
	historyRepo := postgres.NewHistoryRepo(db)
	auditSink := audit.NewSink(postgres.NewAuditRepo(db))
	cache := rediscache.NewCache(&cfg.Redis)
	defer cache.Close()

	collector := metrics.NewCollector(prometheus.NewRegistry())

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

	var erp port.ERPGateway
	if path := cfg.Source.ERPWorkbook; path != "" {
		erp, err = erpxlsx.Open(path)
		if err != nil {
			return fmt.Errorf("failed to load ERP workbook: %w", err)
		}
	} else {
		erp = erpmock.NewGateway()
	}

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

	orch := service.NewOrchestrator(
		erp, nil, source, workflow.NewManager(workflowRepo), historyRepo,
		auditSink, notifier, cache, collector, limiter,
		matcher.Thresholds{
			AmountTolerance:              cfg.Matching.AmountTolerance,
			ConfidenceThreshold:          cfg.Matching.ConfidenceThreshold,
			MinConfidenceScore:           cfg.Matching.MinConfidenceScore,
			PartialMatchMaxDiscrepancies: cfg.Matching.PartialMatchMaxDiscrepancies,
			LineItemQuantityTolerance:    cfg.Matching.LineItemQuantityTolerance,
			PriceTolerancePercentage:     cfg.Matching.PriceTolerancePercentage,
		},
		cfg.Processing,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Worker polling every %s", cfg.Processing.PollInterval)
	ticker := time.NewTicker(cfg.Processing.PollInterval)
	defer ticker.Stop()

	for {
		if err := orch.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("worker: batch finished with errors: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Println("Worker shutting down")
			return nil
		case <-ticker.C:
		}
	}
	log.Println("Worker shutting down")
	return nil
}
