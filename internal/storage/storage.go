package storage

import (
	"context"
	"errors"

	"github.com/vigiabot/vigia/internal/models"
)

// ErrUnavailable wraps any failure of the underlying store. The pipeline
// treats it as fatal for the current run.
var ErrUnavailable = errors.New("storage unavailable")

// ErrDuplicateAlert is returned when an alert for the same
// (conversation_id, message_id) pair already exists. Duplicate transport
// deliveries surface as this benign conflict instead of a second row.
var ErrDuplicateAlert = errors.New("alert already recorded")

type Storage interface {
	// GetRecentTexts returns at most limit message texts for the
	// conversation, oldest first. No history is not an error: the result
	// is simply empty.
	GetRecentTexts(ctx context.Context, conversationID string, limit int) ([]string, error)

	// SaveMessage appends a non-risky message, making it eligible for
	// future history reads.
	SaveMessage(ctx context.Context, msg *models.Message) error

	// SaveAlert appends an alert row.
	SaveAlert(ctx context.Context, alert *models.Alert) error

	// GetRecentAlerts returns at most limit alerts, newest first.
	GetRecentAlerts(ctx context.Context, limit int) ([]*models.Alert, error)

	Close() error
}
