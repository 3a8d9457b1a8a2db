package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vigiabot/vigia/internal/models"
)

func saveText(t *testing.T, s *MemoryStorage, conversationID, id, text string) {
	t.Helper()
	require.NoError(t, s.SaveMessage(context.Background(), &models.Message{
		ID:             id,
		ConversationID: conversationID,
		Text:           text,
		ReceivedAt:     time.Now(),
	}))
}

func TestMemoryStorage_GetRecentTexts_EmptyHistory(t *testing.T) {
	s := NewMemoryStorage()

	texts, err := s.GetRecentTexts(context.Background(), "conv-1", 10)
	require.NoError(t, err)
	require.Empty(t, texts)
}

func TestMemoryStorage_GetRecentTexts_ChronologicalWindow(t *testing.T) {
	s := NewMemoryStorage()
	for i := 1; i <= 5; i++ {
		saveText(t, s, "conv-1", fmt.Sprintf("m%d", i), fmt.Sprintf("text-%d", i))
	}

	// Last 3, oldest first.
	texts, err := s.GetRecentTexts(context.Background(), "conv-1", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"text-3", "text-4", "text-5"}, texts)

	// Fewer than the limit returns all, still ordered.
	texts, err = s.GetRecentTexts(context.Background(), "conv-1", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"text-1", "text-2", "text-3", "text-4", "text-5"}, texts)
}

func TestMemoryStorage_ConversationsAreIsolated(t *testing.T) {
	s := NewMemoryStorage()
	saveText(t, s, "conv-1", "m1", "mine")
	saveText(t, s, "conv-2", "m2", "theirs")

	texts, err := s.GetRecentTexts(context.Background(), "conv-1", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"mine"}, texts)
}

func TestMemoryStorage_SaveAlert_DuplicateConflict(t *testing.T) {
	s := NewMemoryStorage()
	alert := &models.Alert{
		ConversationID: "conv-1",
		MessageID:      "m1",
		Label:          models.LabelEstafa,
		Explanation:    "urgent wire transfer",
		Text:           "send money now",
	}

	require.NoError(t, s.SaveAlert(context.Background(), alert))
	require.NotZero(t, alert.ID)
	require.False(t, alert.CreatedAt.IsZero())

	dup := &models.Alert{ConversationID: "conv-1", MessageID: "m1", Label: models.LabelEstafa}
	require.ErrorIs(t, s.SaveAlert(context.Background(), dup), ErrDuplicateAlert)

	alerts, err := s.GetRecentAlerts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
}

func TestMemoryStorage_GetRecentAlerts_NewestFirstLimited(t *testing.T) {
	s := NewMemoryStorage()
	for i := 1; i <= 4; i++ {
		require.NoError(t, s.SaveAlert(context.Background(), &models.Alert{
			ConversationID: "conv-1",
			MessageID:      fmt.Sprintf("m%d", i),
			Label:          models.LabelGrooming,
		}))
	}

	alerts, err := s.GetRecentAlerts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	require.Equal(t, "m4", alerts[0].MessageID)
	require.Equal(t, "m3", alerts[1].MessageID)
}
