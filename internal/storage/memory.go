package storage

import (
	"context"
	"sync"
	"time"

	"github.com/vigiabot/vigia/internal/models"
)

// MemoryStorage keeps messages and alerts in process memory. Used for local
// development and tests; enforces the same (conversation_id, message_id)
// alert uniqueness as the Postgres schema.
type MemoryStorage struct {
	mu       sync.RWMutex
	messages map[string][]*models.Message
	alerts   []*models.Alert
	alertKey map[string]struct{}
	nextID   int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		messages: make(map[string][]*models.Message),
		alertKey: make(map[string]struct{}),
	}
}

func (s *MemoryStorage) GetRecentTexts(_ context.Context, conversationID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	start := 0
	if len(msgs) > limit {
		start = len(msgs) - limit
	}

	texts := make([]string, 0, len(msgs)-start)
	for _, msg := range msgs[start:] {
		texts = append(texts, msg.Text)
	}
	return texts, nil
}

func (s *MemoryStorage) SaveMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *msg
	if stored.ReceivedAt.IsZero() {
		stored.ReceivedAt = time.Now()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &stored)
	return nil
}

func (s *MemoryStorage) SaveAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := alert.ConversationID + "\x00" + alert.MessageID
	if _, exists := s.alertKey[key]; exists {
		return ErrDuplicateAlert
	}

	s.nextID++
	stored := *alert
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.alerts = append(s.alerts, &stored)
	s.alertKey[key] = struct{}{}

	alert.ID = stored.ID
	alert.CreatedAt = stored.CreatedAt
	return nil
}

func (s *MemoryStorage) GetRecentAlerts(_ context.Context, limit int) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.alerts)
	if limit > n {
		limit = n
	}

	// Newest first, matching the Postgres query.
	alerts := make([]*models.Alert, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		copied := *s.alerts[i]
		alerts = append(alerts, &copied)
	}
	return alerts, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
