package classifier

import (
	"context"
	"errors"

	"github.com/vigiabot/vigia/internal/models"
)

// ErrMissingAPIKey means the judgment service credential was never
// configured. Raised synchronously so the operator notices the
// misconfiguration instead of the bot silently classifying nothing.
var ErrMissingAPIKey = errors.New("openai api key is missing: set OPENAI_API_KEY to enable classification")

// ErrUnavailable wraps judgment service transport failures and timeouts.
// Distinct from a parse miss: a reply that arrived but could not be parsed
// yields models.LabelUnknown, not an error.
var ErrUnavailable = errors.New("classification unavailable")

// Classifier turns an ordered window of message texts (oldest first) into a
// risk verdict.
type Classifier interface {
	DetectRisk(ctx context.Context, texts []string) (models.Classification, error)
}
