package bot

import (
	"context"
	"encoding/json"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vigiabot/vigia/internal/models"
	"github.com/vigiabot/vigia/internal/pipeline"
)

// MessageHandler processes one inbound message. The risk pipeline and the
// assistant are the two implementations, selected by configuration.
type MessageHandler interface {
	Handle(ctx context.Context, msg *models.Message) error
}

// Bot is the transport dispatcher: it receives Telegram updates, filters
// and converts them, and hands each message to the handler under the
// per-conversation sequencer.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler MessageHandler
	seq     *pipeline.Sequencer
	state   *ConnectionState
	logger  *zap.Logger
}

func New(api *tgbotapi.BotAPI, handler MessageHandler, state *ConnectionState, logger *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		handler: handler,
		seq:     pipeline.NewSequencer(),
		state:   state,
		logger:  logger,
	}
}

// Run consumes updates until ctx is cancelled. Each accepted message runs in
// its own goroutine; the sequencer keeps runs for the same conversation from
// interleaving while different conversations proceed in parallel.
func (b *Bot) Run(ctx context.Context) error {
	b.state.SetStatus(StatusConnecting, "")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.state.SetStatus(StatusOpen, b.api.Self.UserName)
	defer b.state.SetStatus(StatusClosed, "")

	b.logger.Info("Listening for updates",
		zap.String("bot", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			msg := b.extract(update)
			if msg == nil {
				continue
			}

			go b.dispatch(ctx, msg)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg *models.Message) {
	b.seq.Do(msg.ConversationID, func() {
		if err := b.handler.Handle(ctx, msg); err != nil {
			// One conversation's failure must never take down the
			// dispatching loop.
			b.logger.Error("Message handling failed",
				zap.Error(err),
				zap.String("conversation_id", msg.ConversationID),
				zap.String("message_id", msg.ID))
		}
	})
}

// extract converts an update into a pipeline message. Updates without text,
// and messages sent by the bot's own account, are discarded here so no run
// ever starts for them.
func (b *Bot) extract(update tgbotapi.Update) *models.Message {
	m := update.Message
	if m == nil {
		return nil
	}
	if m.From != nil && m.From.ID == b.api.Self.ID {
		return nil
	}

	text := m.Text
	if text == "" {
		text = m.Caption
	}
	if text == "" {
		return nil
	}

	id := strconv.Itoa(m.MessageID)
	if m.MessageID == 0 {
		id = uuid.NewString()
	}

	raw, err := json.Marshal(m)
	if err != nil {
		raw = nil
	}

	return &models.Message{
		ID:             id,
		ConversationID: strconv.FormatInt(m.Chat.ID, 10),
		Text:           text,
		ReceivedAt:     m.Time(),
		Raw:            raw,
	}
}
