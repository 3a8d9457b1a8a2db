package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/vigiabot/vigia/internal/models"
)

const noRiskSentinel = "NO RISK"

var detectionPattern = regexp.MustCompile(`(?i)DETECTION\s+(GROOMING|SCAM)\s*:\s*(.+)`)

type GPTClassifier struct {
	client      *openai.Client
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	windowSize  int
	timeout     time.Duration
	logger      *zap.Logger
}

func NewGPTClassifier(apiKey, model string, maxTokens int, temperature float64, windowSize int, timeout time.Duration, logger *zap.Logger) *GPTClassifier {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}

	return &GPTClassifier{
		client:      client,
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		windowSize:  windowSize,
		timeout:     timeout,
		logger:      logger,
	}
}

// DetectRisk sends the windowed conversation to the judgment service and
// parses its single-line verdict. The input is re-truncated to the last
// windowSize entries as a safety net; callers are expected to have windowed
// it already.
func (c *GPTClassifier) DetectRisk(ctx context.Context, texts []string) (models.Classification, error) {
	if c.client == nil {
		return models.Classification{}, ErrMissingAPIKey
	}

	if len(texts) > c.windowSize {
		texts = texts[len(texts)-c.windowSize:]
	}
	joined := strings.Join(texts, "\n")

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: c.buildSystemPrompt(joined),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: joined,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		return models.Classification{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	reply := ""
	if len(resp.Choices) > 0 {
		reply = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	result := parseReply(reply)
	if result.Label == models.LabelUnknown {
		c.logger.Warn("Unparsable classifier reply",
			zap.String("reply", reply))
	}

	return result, nil
}

func (c *GPTClassifier) buildSystemPrompt(joined string) string {
	return fmt.Sprintf(`You are an expert agent at detecting risk situations in conversations.
Analyze the last %d messages of a chat and decide whether they show signs of:

1. Grooming (sexualized language, emotional manipulation, asking for photos, asking about age).
2. A possible scam targeting elderly people (deception, requests for money, wire transfers, bank aliases, fake urgency).
3. Neither of the above.

Messages:
%s

Reply with exactly one line, in one of these forms:
- DETECTION GROOMING: [short explanation]
- DETECTION SCAM: [short explanation]
- NO RISK`, c.windowSize, joined)
}

// parseReply applies the verdict grammar in priority order: the detection
// pattern first, then the no-risk sentinel as a substring, and anything else
// (empty reply included) maps to LabelUnknown.
func parseReply(reply string) models.Classification {
	if match := detectionPattern.FindStringSubmatch(reply); match != nil {
		label := models.LabelGrooming
		if strings.EqualFold(match[1], "SCAM") {
			label = models.LabelEstafa
		}
		return models.Classification{
			Label:       label,
			Explanation: strings.TrimSpace(match[2]),
		}
	}

	if strings.Contains(strings.ToUpper(reply), noRiskSentinel) {
		return models.Classification{Label: models.LabelNoRisk}
	}

	return models.Classification{Label: models.LabelUnknown}
}
