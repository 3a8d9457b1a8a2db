package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigiabot/vigia/internal/classifier"
	"github.com/vigiabot/vigia/internal/models"
	"github.com/vigiabot/vigia/internal/storage"
)

type mockStorage struct {
	texts          []string
	textsErr       error
	savedMessages  []*models.Message
	saveMessageErr error
	savedAlerts    []*models.Alert
	saveAlertErr   error
}

func (m *mockStorage) GetRecentTexts(_ context.Context, _ string, _ int) ([]string, error) {
	return m.texts, m.textsErr
}

func (m *mockStorage) SaveMessage(_ context.Context, msg *models.Message) error {
	if m.saveMessageErr != nil {
		return m.saveMessageErr
	}
	m.savedMessages = append(m.savedMessages, msg)
	return nil
}

func (m *mockStorage) SaveAlert(_ context.Context, alert *models.Alert) error {
	if m.saveAlertErr != nil {
		return m.saveAlertErr
	}
	m.savedAlerts = append(m.savedAlerts, alert)
	return nil
}

func (m *mockStorage) GetRecentAlerts(_ context.Context, _ int) ([]*models.Alert, error) {
	return m.savedAlerts, nil
}

func (m *mockStorage) Close() error { return nil }

type mockClassifier struct {
	result   models.Classification
	err      error
	captured [][]string
}

func (m *mockClassifier) DetectRisk(_ context.Context, texts []string) (models.Classification, error) {
	window := make([]string, len(texts))
	copy(window, texts)
	m.captured = append(m.captured, window)
	return m.result, m.err
}

type mockNotifier struct {
	sent []string
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, text string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, text)
	return nil
}

func testMessage() *models.Message {
	return &models.Message{
		ID:             "msg-1",
		ConversationID: "conv-1",
		Text:           "send me your bank alias now!!",
		ReceivedAt:     time.Now(),
	}
}

func newTestPipeline(store *mockStorage, clf *mockClassifier, notifier *mockNotifier) *Pipeline {
	return New(store, clf, notifier, 10, zap.NewNop())
}

func TestHandle_RiskyMessageRaisesAlert(t *testing.T) {
	store := &mockStorage{texts: []string{"hola", "necesito plata urgente"}}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelEstafa, Explanation: "urgent wire transfer"}}
	notifier := &mockNotifier{}

	err := newTestPipeline(store, clf, notifier).Handle(context.Background(), testMessage())
	require.NoError(t, err)

	require.Len(t, store.savedAlerts, 1)
	alert := store.savedAlerts[0]
	require.Equal(t, "conv-1", alert.ConversationID)
	require.Equal(t, "msg-1", alert.MessageID)
	require.Equal(t, models.LabelEstafa, alert.Label)
	require.Equal(t, "urgent wire transfer", alert.Explanation)
	require.Equal(t, "send me your bank alias now!!", alert.Text)

	require.Len(t, notifier.sent, 1)
	require.Contains(t, notifier.sent[0], "ESTAFA")
	require.Contains(t, notifier.sent[0], "urgent wire transfer")
	require.Contains(t, notifier.sent[0], `"send me your bank alias now!!"`)

	// An alerted message is never stored as ordinary history.
	require.Empty(t, store.savedMessages)
}

func TestHandle_NoRiskMessageIsPersisted(t *testing.T) {
	store := &mockStorage{}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelNoRisk}}
	notifier := &mockNotifier{}

	msg := testMessage()
	err := newTestPipeline(store, clf, notifier).Handle(context.Background(), msg)
	require.NoError(t, err)

	require.Empty(t, store.savedAlerts)
	require.Empty(t, notifier.sent)
	require.Len(t, store.savedMessages, 1)
	require.Equal(t, msg, store.savedMessages[0])
}

func TestHandle_UnknownVerdictIsNonBlocking(t *testing.T) {
	store := &mockStorage{}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelUnknown}}
	notifier := &mockNotifier{}

	err := newTestPipeline(store, clf, notifier).Handle(context.Background(), testMessage())
	require.NoError(t, err)
	require.Empty(t, store.savedAlerts)
	require.Empty(t, notifier.sent)
	require.Len(t, store.savedMessages, 1)
}

func TestHandle_ClassifierReceivesExactWindow(t *testing.T) {
	history := make([]string, 10)
	for i := range history {
		history[i] = fmt.Sprintf("old-%02d", i)
	}
	store := &mockStorage{texts: history}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelNoRisk}}

	msg := testMessage()
	err := newTestPipeline(store, clf, &mockNotifier{}).Handle(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, clf.captured, 1)
	window := clf.captured[0]
	require.Len(t, window, 10)
	require.Equal(t, "old-01", window[0])
	require.Equal(t, msg.Text, window[9])
}

func TestHandle_ShortHistoryIsNotPadded(t *testing.T) {
	store := &mockStorage{texts: []string{"hola"}}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelNoRisk}}

	msg := testMessage()
	err := newTestPipeline(store, clf, &mockNotifier{}).Handle(context.Background(), msg)
	require.NoError(t, err)

	require.Equal(t, [][]string{{"hola", msg.Text}}, clf.captured)
}

func TestHandle_HistoryFailureAbortsRun(t *testing.T) {
	store := &mockStorage{textsErr: fmt.Errorf("%w: connection refused", storage.ErrUnavailable)}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelEstafa}}
	notifier := &mockNotifier{}

	err := newTestPipeline(store, clf, notifier).Handle(context.Background(), testMessage())
	require.ErrorIs(t, err, storage.ErrUnavailable)

	// No partial side effects after the failure point.
	require.Empty(t, clf.captured)
	require.Empty(t, store.savedAlerts)
	require.Empty(t, store.savedMessages)
	require.Empty(t, notifier.sent)
}

func TestHandle_ClassificationFailureAbortsRun(t *testing.T) {
	store := &mockStorage{}
	clf := &mockClassifier{err: fmt.Errorf("%w: timeout", classifier.ErrUnavailable)}
	notifier := &mockNotifier{}

	err := newTestPipeline(store, clf, notifier).Handle(context.Background(), testMessage())
	require.ErrorIs(t, err, classifier.ErrUnavailable)
	require.Empty(t, store.savedAlerts)
	require.Empty(t, store.savedMessages)
	require.Empty(t, notifier.sent)
}

func TestHandle_MissingCredentialIsNeverDowngraded(t *testing.T) {
	store := &mockStorage{}
	clf := &mockClassifier{err: classifier.ErrMissingAPIKey}

	err := newTestPipeline(store, clf, &mockNotifier{}).Handle(context.Background(), testMessage())
	require.ErrorIs(t, err, classifier.ErrMissingAPIKey)
	require.Empty(t, store.savedMessages)
}

func TestHandle_AlertPersistFailureStillNotifies(t *testing.T) {
	store := &mockStorage{saveAlertErr: errors.New("insert failed")}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelGrooming, Explanation: "asks for photos"}}
	notifier := &mockNotifier{}

	err := newTestPipeline(store, clf, notifier).Handle(context.Background(), testMessage())
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
}

func TestHandle_NotificationFailureStillCompletes(t *testing.T) {
	store := &mockStorage{}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelGrooming, Explanation: "asks for photos"}}
	notifier := &mockNotifier{err: errors.New("send failed")}

	err := newTestPipeline(store, clf, notifier).Handle(context.Background(), testMessage())
	require.NoError(t, err)
	require.Len(t, store.savedAlerts, 1)
}

func TestHandle_DuplicateAlertIsBenign(t *testing.T) {
	store := &mockStorage{saveAlertErr: storage.ErrDuplicateAlert}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelEstafa, Explanation: "dup"}}
	notifier := &mockNotifier{}

	err := newTestPipeline(store, clf, notifier).Handle(context.Background(), testMessage())
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
}

func TestHandle_SaveMessageFailureIsNonFatal(t *testing.T) {
	store := &mockStorage{saveMessageErr: fmt.Errorf("%w: down", storage.ErrUnavailable)}
	clf := &mockClassifier{result: models.Classification{Label: models.LabelNoRisk}}

	err := newTestPipeline(store, clf, &mockNotifier{}).Handle(context.Background(), testMessage())
	require.NoError(t, err)
}
