package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/vigiabot/vigia/internal/models"
	"github.com/vigiabot/vigia/internal/storage"
)

// Assistant is the AI-reply handler variant: instead of classifying risk it
// answers the chat with a model-generated response and records the inbound
// message.
type Assistant struct {
	api          *tgbotapi.BotAPI
	client       *openai.Client
	storage      storage.Storage
	model        string
	systemPrompt string
	logger       *zap.Logger
}

func NewAssistant(api *tgbotapi.BotAPI, apiKey, model, systemPrompt string, store storage.Storage, logger *zap.Logger) *Assistant {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}

	return &Assistant{
		api:          api,
		client:       client,
		storage:      store,
		model:        model,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

func (a *Assistant) Handle(ctx context.Context, msg *models.Message) error {
	reply, err := a.generate(ctx, msg.Text)
	if err != nil {
		return fmt.Errorf("generating reply: %w", err)
	}

	chatID, err := strconv.ParseInt(msg.ConversationID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q: %w", msg.ConversationID, err)
	}

	if _, err := a.api.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
		a.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.String("conversation_id", msg.ConversationID))
	}

	if err := a.storage.SaveMessage(ctx, msg); err != nil {
		a.logger.Error("Failed to save message",
			zap.Error(err),
			zap.String("conversation_id", msg.ConversationID),
			zap.String("message_id", msg.ID))
	}

	return nil
}

func (a *Assistant) generate(ctx context.Context, prompt string) (string, error) {
	if a.client == nil {
		return "", errors.New("openai api key is missing: set OPENAI_API_KEY to enable AI responses")
	}

	var messages []openai.ChatCompletionMessage
	if a.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: a.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
