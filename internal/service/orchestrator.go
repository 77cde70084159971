package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"payflow/internal/config"
	"payflow/internal/domain"
	"payflow/internal/matcher"
	"payflow/internal/port"
	"payflow/internal/workflow"
)

// Orchestrator runs invoices through the reconciliation pipeline: extraction,
// duplicate check, currency normalization, three-way match, and outcome
// handling. Invoices in a batch are processed concurrently with bounded
// parallelism; each invoice's own steps are strictly sequential.
type Orchestrator struct {
	erp        port.ERPGateway
	processor  port.DocumentProcessor
	source     port.SourceManager
	workflows  *workflow.Manager
	history    port.HistoryRepository
	audit      port.AuditSink
	notifier   port.NotificationSink
	cache      port.InvoiceCache
	metrics    port.MetricsCollector
	limiter    port.RateLimiter
	thresholds matcher.Thresholds
	cfg        config.ProcessingConfig
}

func NewOrchestrator(
	erp port.ERPGateway,
	processor port.DocumentProcessor,
	source port.SourceManager,
	workflows *workflow.Manager,
	history port.HistoryRepository,
	audit port.AuditSink,
	notifier port.NotificationSink,
	cache port.InvoiceCache,
	metrics port.MetricsCollector,
	limiter port.RateLimiter,
	thresholds matcher.Thresholds,
	cfg config.ProcessingConfig,
) *Orchestrator {
	return &Orchestrator{
		erp:        erp,
		processor:  processor,
		source:     source,
		workflows:  workflows,
		history:    history,
		audit:      audit,
		notifier:   notifier,
		cache:      cache,
		metrics:    metrics,
		limiter:    limiter,
		thresholds: thresholds,
		cfg:        cfg,
	}
}

// RunOnce pulls all pending invoices from the source and processes them as
// one batch. Source pulls go through the rate limiter.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	refs, err := o.source.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("listing pending invoices: %w", err)
	}
	if len(refs) == 0 {
		return nil
	}

	invoices := make([]*domain.Invoice, 0, len(refs))
	for _, ref := range refs {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx, "source"); err != nil {
				return err
			}
		}
		inv, err := o.source.Fetch(ctx, ref)
		if err != nil {
			log.Printf("service.Orchestrator.RunOnce: fetching %s: %v", ref, err)
			continue
		}
		invoices = append(invoices, inv)
	}

	return o.ProcessBatch(ctx, invoices)
}

// ProcessBatch processes invoices concurrently under the configured
// parallelism bound. One invoice's failure never aborts the batch; terminal
// propagated errors are joined and returned to the caller.
func (o *Orchestrator) ProcessBatch(ctx context.Context, invoices []*domain.Invoice) error {
	o.metrics.SetQueueSize(len(invoices))
	defer o.metrics.SetQueueSize(0)

	concurrency := o.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, inv := range invoices {
		inv := inv
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			o.metrics.IncActiveWorkers()
			defer o.metrics.DecActiveWorkers()

			if err := o.ProcessOneWithRetry(ctx, inv); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	log.Printf("service.Orchestrator.ProcessBatch: processed %d invoices, %d propagated errors", len(invoices), len(errs))
	return errors.Join(errs...)
}

// ProcessOneWithRetry runs the per-invoice pipeline with a bounded retry
// loop. Transient failures are retried with a fixed backoff; business-rule
// failures terminate in exception on first occurrence without propagating.
// Retry exhaustion marks the invoice exception and re-raises the last error.
func (o *Orchestrator) ProcessOneWithRetry(ctx context.Context, inv *domain.Invoice) error {
	started := time.Now()
	record, err := o.workflows.Start(ctx, inv.InvoiceNumber)
	if err != nil {
		return err
	}

	maxRetries := o.cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := o.processOne(ctx, record, inv)
		if err == nil {
			o.finalize(ctx, record, inv, started)
			return nil
		}
		lastErr = err
		kind := domain.KindOf(err)
		o.metrics.RecordError(kind)

		if !domain.Retryable(err) {
			o.failTerminal(ctx, record, inv, kind, err)
			o.finalize(ctx, record, inv, started)
			return nil
		}

		log.Printf("service.Orchestrator.ProcessOneWithRetry: invoice %s attempt %d/%d failed: %v",
			inv.InvoiceNumber, attempt, maxRetries, err)
		inv.RetryCount++
		if err := o.workflows.IncrementRetry(ctx, record); err != nil {
			log.Printf("service.Orchestrator.ProcessOneWithRetry: recording retry for %s: %v", inv.InvoiceNumber, err)
		}
		if record.Status == domain.StatusProcessing {
			if err := o.workflows.Fail(ctx, record, err.Error()); err != nil {
				log.Printf("service.Orchestrator.ProcessOneWithRetry: marking exception for %s: %v", inv.InvoiceNumber, err)
			}
			inv.Status = domain.StatusException
		}

		if attempt < maxRetries {
			if err := sleepCtx(ctx, o.cfg.RetryDelay); err != nil {
				return err
			}
		}
	}

	// Retries exhausted. A timeout keeps its own error type; everything
	// else is reported as retry exhaustion.
	kind := domain.ErrKindMaxRetries
	terminal := fmt.Errorf("%w: %w", domain.ErrMaxRetriesExceeded, lastErr)
	if domain.KindOf(lastErr) == domain.ErrKindTimeout {
		kind = domain.ErrKindTimeout
		terminal = lastErr
	}
	o.metrics.RecordError(kind)
	o.failTerminal(ctx, record, inv, kind, lastErr)
	o.finalize(ctx, record, inv, started)
	return terminal
}

// processOne executes the sequential pipeline steps for a single attempt.
func (o *Orchestrator) processOne(ctx context.Context, record *domain.WorkflowRecord, inv *domain.Invoice) error {
	if err := o.workflows.Transition(ctx, record, domain.StatusProcessing, "processing started"); err != nil {
		return domain.NewProcessingError(domain.ErrKindProcessing, err)
	}
	inv.Status = domain.StatusProcessing

	if o.processor != nil && inv.FilePath != "" {
		fields, err := withTimeoutCall(ctx, o.cfg.GatewayTimeout, func(tctx context.Context) (*domain.ExtractedFields, error) {
			return o.processor.Extract(tctx, inv.FilePath)
		})
		if err != nil {
			return wrapGatewayErr(domain.ErrKindProcessing, fmt.Errorf("extracting %s: %w", inv.FilePath, err))
		}
		inv.Merge(*fields)
	}

	if err := inv.Validate(decimal.NewFromFloat(o.thresholds.AmountTolerance)); err != nil {
		return domain.NewProcessingError(domain.ErrKindValidation, err)
	}

	seen, err := o.cache.Seen(ctx, inv.InvoiceNumber)
	if err != nil {
		// Cache trouble must not fail the pipeline; duplicate suppression
		// degrades to best-effort.
		log.Printf("service.Orchestrator.processOne: duplicate check for %s: %v", inv.InvoiceNumber, err)
	} else if seen {
		return domain.NewProcessingError(domain.ErrKindDuplicate, domain.ErrDuplicateInvoice)
	}

	if err := o.normalizeCurrency(ctx, inv); err != nil {
		return err
	}

	result, err := o.runMatch(ctx, record, inv)
	if err != nil {
		return err
	}

	if !result.Matched {
		return domain.NewProcessingError(domain.ErrKindMatchFailure,
			fmt.Errorf("three-way match failed (%s, confidence %.2f)", result.Classification, result.ConfidenceScore))
	}

	if err := o.workflows.Transition(ctx, record, domain.StatusMatched,
		fmt.Sprintf("matched with confidence %.2f", result.ConfidenceScore)); err != nil {
		return domain.NewProcessingError(domain.ErrKindProcessing, err)
	}
	inv.Status = domain.StatusMatched
	o.logAudit(ctx, domain.AuditInvoiceMatched, inv.InvoiceNumber, map[string]any{
		"confidence_score": result.ConfidenceScore,
		"classification":   string(result.Classification),
	})

	paymentDate, err := withTimeoutCall(ctx, o.cfg.GatewayTimeout, func(tctx context.Context) (string, error) {
		return o.erp.SchedulePayment(tctx, inv)
	})
	if err != nil {
		return wrapGatewayErr(domain.ErrKindPayment, fmt.Errorf("scheduling payment: %w", err))
	}

	if err := o.workflows.Transition(ctx, record, domain.StatusScheduled,
		fmt.Sprintf("payment scheduled for %s", paymentDate)); err != nil {
		return domain.NewProcessingError(domain.ErrKindProcessing, err)
	}
	inv.Status = domain.StatusScheduled
	o.logAudit(ctx, domain.AuditPaymentScheduled, inv.InvoiceNumber, map[string]any{
		"payment_date": paymentDate,
	})
	o.notify(ctx, domain.NotifyInvoiceMatched, inv,
		fmt.Sprintf("invoice matched, payment scheduled for %s", paymentDate))
	return nil
}

// normalizeCurrency converts the invoice into the default currency using the
// ERP exchange rate. Missing rates and timeouts are distinct failures.
func (o *Orchestrator) normalizeCurrency(ctx context.Context, inv *domain.Invoice) error {
	if inv.Currency == o.cfg.DefaultCurrency {
		return nil
	}
	rate, err := withTimeoutCall(ctx, o.cfg.GatewayTimeout, func(tctx context.Context) (float64, error) {
		return o.erp.GetExchangeRate(tctx, inv.Currency, o.cfg.DefaultCurrency)
	})
	if err != nil {
		return wrapGatewayErr(domain.ErrKindExchangeRate,
			fmt.Errorf("exchange rate %s->%s: %w", inv.Currency, o.cfg.DefaultCurrency, err))
	}

	factor := decimal.NewFromFloat(rate)
	inv.TotalAmount = inv.TotalAmount.Mul(factor).Round(2)
	for i := range inv.LineItems {
		inv.LineItems[i].UnitPrice = inv.LineItems[i].UnitPrice.Mul(factor).Round(2)
		inv.LineItems[i].Total = inv.LineItems[i].Total.Mul(factor).Round(2)
	}
	log.Printf("service.Orchestrator.normalizeCurrency: converted invoice %s %s->%s at %.4f",
		inv.InvoiceNumber, inv.Currency, o.cfg.DefaultCurrency, rate)
	inv.Currency = o.cfg.DefaultCurrency
	return nil
}

// runMatch fetches PO and GR from the ERP and runs the matcher. A lookup
// miss (no such PO/GR) flows into the match result; infrastructure failures
// abort the attempt instead.
func (o *Orchestrator) runMatch(ctx context.Context, record *domain.WorkflowRecord, inv *domain.Invoice) (*domain.MatchResult, error) {
	var po *domain.PurchaseOrder
	if inv.PONumber != "" {
		fetched, err := withTimeoutCall(ctx, o.cfg.GatewayTimeout, func(tctx context.Context) (*domain.PurchaseOrder, error) {
			return o.erp.GetPurchaseOrder(tctx, inv.PONumber)
		})
		switch {
		case err == nil:
			po = fetched
		case errors.Is(err, domain.ErrPONotFound):
			po = nil
		default:
			return nil, wrapGatewayErr(domain.ErrKindProcessing,
				fmt.Errorf("fetching PO %s: %w", inv.PONumber, err))
		}
	}

	var gr *domain.GoodsReceipt
	if po != nil && po.Status == domain.POStatusCompleted && !inv.GRExempt {
		fetched, err := withTimeoutCall(ctx, o.cfg.GatewayTimeout, func(tctx context.Context) (*domain.GoodsReceipt, error) {
			return o.erp.GetGoodsReceipt(tctx, inv.PONumber)
		})
		switch {
		case err == nil:
			gr = fetched
		case errors.Is(err, domain.ErrGoodsReceiptNotFound):
			gr = nil
		default:
			return nil, wrapGatewayErr(domain.ErrKindProcessing,
				fmt.Errorf("fetching goods receipt for %s: %w", inv.PONumber, err))
		}
	}

	result := matcher.Match(inv, po, gr, o.thresholds)
	o.metrics.ObserveConfidence(result.ConfidenceScore)
	if err := o.workflows.RecordMatchResult(ctx, record, result); err != nil {
		log.Printf("service.Orchestrator.runMatch: storing match result for %s: %v", inv.InvoiceNumber, err)
	}
	return &result, nil
}

// failTerminal marks the invoice exception for a terminal failure and emits
// the audit entry and notification.
func (o *Orchestrator) failTerminal(ctx context.Context, record *domain.WorkflowRecord, inv *domain.Invoice, kind domain.ErrorKind, cause error) {
	if record.Status != domain.StatusException {
		if err := o.workflows.Fail(ctx, record, cause.Error()); err != nil {
			log.Printf("service.Orchestrator.failTerminal: marking exception for %s: %v", inv.InvoiceNumber, err)
		}
	} else {
		record.Error = cause.Error()
	}
	inv.Status = domain.StatusException

	o.logAudit(ctx, domain.AuditInvoiceException, inv.InvoiceNumber, map[string]any{
		"error_type": string(kind),
		"error":      cause.Error(),
	})
	o.notify(ctx, domain.NotifyInvoiceException, inv, cause.Error())
}

// finalize records the end-of-run observability for an invoice regardless of
// outcome: metrics, the history entry, the cached snapshot, and the source
// acknowledgment.
func (o *Orchestrator) finalize(ctx context.Context, record *domain.WorkflowRecord, inv *domain.Invoice, started time.Time) {
	elapsed := time.Since(started)
	o.metrics.ObserveProcessingTime(elapsed)
	amount, _ := inv.TotalAmount.Float64()
	o.metrics.ObserveAmount(amount)
	o.metrics.RecordInvoiceProcessed(inv.Status)

	entry := &domain.HistoryEntry{
		InvoiceNumber:  inv.InvoiceNumber,
		Status:         inv.Status,
		MatchDetails:   record.MatchResult,
		ProcessingSecs: elapsed.Seconds(),
		CreatedAt:      time.Now().UTC(),
	}
	var result domain.MatchResult
	if len(record.MatchResult) > 0 && json.Unmarshal(record.MatchResult, &result) == nil {
		entry.ConfidenceScore = result.ConfidenceScore
	}
	if err := o.history.Record(ctx, entry); err != nil {
		log.Printf("service.Orchestrator.finalize: recording history for %s: %v", inv.InvoiceNumber, err)
	}

	if err := o.cache.Put(ctx, inv); err != nil {
		log.Printf("service.Orchestrator.finalize: caching snapshot for %s: %v", inv.InvoiceNumber, err)
	}

	if inv.FilePath != "" {
		if err := o.source.MarkProcessed(ctx, inv.FilePath); err != nil {
			log.Printf("service.Orchestrator.finalize: acknowledging %s: %v", inv.FilePath, err)
		}
	}
}

// logAudit records an audit event. Audit failures never surface to the
// pipeline; the sink self-logs.
func (o *Orchestrator) logAudit(ctx context.Context, eventType domain.AuditEventType, invoiceNumber string, details map[string]any) {
	raw, err := json.Marshal(details)
	if err != nil {
		log.Printf("service.Orchestrator.logAudit: marshaling details for %s: %v", invoiceNumber, err)
		raw = nil
	}
	o.audit.Record(ctx, domain.AuditEvent{
		EventType:     eventType,
		InvoiceNumber: invoiceNumber,
		Details:       raw,
		CreatedAt:     time.Now().UTC(),
	})
}

// notify sends a notification, logging delivery failures instead of
// propagating them.
func (o *Orchestrator) notify(ctx context.Context, event domain.NotificationEventType, inv *domain.Invoice, detail string) {
	if err := o.notifier.Notify(ctx, event, inv, detail); err != nil {
		log.Printf("service.Orchestrator.notify: sending %s for %s: %v", event, inv.InvoiceNumber, err)
	}
}

// withTimeoutCall runs a gateway call under the configured deadline.
func withTimeoutCall[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(tctx)
}

// wrapGatewayErr tags a gateway failure, recognizing deadline expiry as a
// timeout rather than the caller's default kind.
func wrapGatewayErr(kind domain.ErrorKind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrGatewayTimeout) {
		return domain.NewProcessingError(domain.ErrKindTimeout, err)
	}
	return domain.NewProcessingError(kind, err)
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
