// Package worker provides async document processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kanuni-ai/kanuni/internal/analyzer"
	"github.com/kanuni-ai/kanuni/internal/domain"
)

// Worker analyzes documents asynchronously from the EventBus.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	pipeline *analyzer.Pipeline

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process. Empty falls back to
	// a single subscription under the reserved "_global" tenant.
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, pipeline *analyzer.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		pipeline: pipeline,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicDocumentIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicDocumentIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processDocument(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicDocumentIngested,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processDocument(ctx, msg.TenantID, msg)
}

// DocumentMessage is the message payload for document analysis.
type DocumentMessage struct {
	DocumentID string `json:"documentId"`
	TenantID   string `json:"tenantId"`
	TraceID    string `json:"traceId"`
	FileName   string `json:"fileName"`
	Mode       string `json:"mode"`
	Text       string `json:"text"`
}

// processDocument runs a document through the analysis pipeline.
func (w *Worker) processDocument(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	// Parse message
	var docMsg DocumentMessage
	if err := json.Unmarshal(msg.Payload, &docMsg); err != nil {
		slog.Error("failed to parse document message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if docMsg.TenantID != "" {
		tenantID = docMsg.TenantID
	}

	traceID := docMsg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	mode, err := domain.ParseMode(docMsg.Mode)
	if err != nil {
		slog.Error("invalid analysis mode",
			"document_id", docMsg.DocumentID,
			"mode", docMsg.Mode,
		)
		return err
	}

	slog.Debug("processing document",
		"document_id", docMsg.DocumentID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	// 1. Analyze
	assessment := w.pipeline.Analyze(docMsg.Text, mode, nil)
	assessment.ID = uuid.New().String()
	assessment.TenantID = tenantID
	assessment.DocumentID = docMsg.DocumentID
	assessment.Timestamp = time.Now().UTC()
	assessment.Metadata.TraceID = traceID
	assessment.Metadata.TotalMs = time.Since(start).Milliseconds()

	// 2. Save assessment
	if w.repo != nil {
		if err := w.repo.SaveAssessment(ctx, tenantID, assessment); err != nil {
			slog.Error("failed to save assessment",
				"document_id", docMsg.DocumentID,
				"error", err,
			)
		}
	}

	// 3. Publish result to completion topic
	resultPayload, _ := json.Marshal(assessment)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicAssessmentCompleted, resultPayload); err != nil {
		slog.Error("failed to publish assessment",
			"document_id", docMsg.DocumentID,
			"error", err,
		)
	}

	// 4. If any finding is critical, publish to alert topic
	if assessment.HasCriticalFinding() {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicAlert, resultPayload); err != nil {
			slog.Error("failed to publish alert",
				"document_id", docMsg.DocumentID,
				"error", err,
			)
		}
	}

	slog.Info("document processed",
		"document_id", docMsg.DocumentID,
		"tenant_id", tenantID,
		"risk_level", assessment.RiskLevel,
		"risk_score", assessment.RiskScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
