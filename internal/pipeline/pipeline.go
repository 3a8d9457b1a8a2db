package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vigiabot/vigia/internal/classifier"
	"github.com/vigiabot/vigia/internal/metrics"
	"github.com/vigiabot/vigia/internal/models"
	"github.com/vigiabot/vigia/internal/storage"
)

// Notifier delivers the formatted alert text to the monitoring recipient.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Pipeline is the per-message orchestrator: load history, append the current
// message, classify, then either raise an alert or persist the message.
// It owns no state of its own.
type Pipeline struct {
	storage    storage.Storage
	classifier classifier.Classifier
	notifier   Notifier
	windowSize int
	logger     *zap.Logger
}

func New(store storage.Storage, clf classifier.Classifier, notifier Notifier, windowSize int, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		storage:    store,
		classifier: clf,
		notifier:   notifier,
		windowSize: windowSize,
		logger:     logger,
	}
}

// Handle executes one pipeline run. Exactly one of alert/persist happens per
// classified run; a returned error means the run failed before that branch
// and produced no side effects.
func (p *Pipeline) Handle(ctx context.Context, msg *models.Message) error {
	log := p.logger.With(
		zap.String("conversation_id", msg.ConversationID),
		zap.String("message_id", msg.ID))

	history, err := p.storage.GetRecentTexts(ctx, msg.ConversationID, p.windowSize)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		log.Error("Failed to load history", zap.Error(err))
		return fmt.Errorf("loading history: %w", err)
	}

	window := append(history, msg.Text)
	if len(window) > p.windowSize {
		window = window[len(window)-p.windowSize:]
	}

	start := time.Now()
	result, err := p.classifier.DetectRisk(ctx, window)
	metrics.ClassificationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		log.Error("Risk detection failed", zap.Error(err))
		return fmt.Errorf("detecting risk: %w", err)
	}

	metrics.RepliesTotal.WithLabelValues(string(result.Label)).Inc()
	log.Info("Risk detection",
		zap.String("label", string(result.Label)),
		zap.String("explanation", result.Explanation))

	if result.Label.Risky() {
		p.raiseAlert(ctx, msg, result, log)
		metrics.RunsTotal.WithLabelValues("done").Inc()
		return nil
	}

	if result.Label == models.LabelUnknown {
		// Unparsable verdicts do not block message flow, but they are
		// logged separately so they stay distinguishable from a genuine
		// all-clear.
		log.Warn("Classifier verdict unparsable, persisting message")
	}

	if err := p.storage.SaveMessage(ctx, msg); err != nil {
		// Non-fatal: no alerting decision remains pending at this point.
		log.Error("Failed to save message", zap.Error(err))
	}

	metrics.RunsTotal.WithLabelValues("done").Inc()
	return nil
}

// raiseAlert persists the alert row and sends the notification. The two side
// effects are independent: either failing is logged without rolling back or
// skipping the other.
func (p *Pipeline) raiseAlert(ctx context.Context, msg *models.Message, result models.Classification, log *zap.Logger) {
	alert := &models.Alert{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Label:          result.Label,
		Explanation:    result.Explanation,
		Text:           msg.Text,
		CreatedAt:      time.Now(),
	}

	if err := p.storage.SaveAlert(ctx, alert); err != nil {
		if errors.Is(err, storage.ErrDuplicateAlert) {
			log.Info("Alert already recorded for this message")
		} else {
			log.Error("Failed to save alert", zap.Error(err))
		}
	} else {
		metrics.AlertsTotal.WithLabelValues(string(result.Label)).Inc()
	}

	if err := p.notifier.Notify(ctx, formatAlertText(result, msg.Text)); err != nil {
		log.Error("Failed to send alert notification", zap.Error(err))
	}
}

func formatAlertText(result models.Classification, text string) string {
	return fmt.Sprintf("⚠️ Alerta de %s\n%s\n\nMensaje:\n%q", result.Label, result.Explanation, text)
}
