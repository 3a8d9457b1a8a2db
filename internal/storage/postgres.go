package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vigiabot/vigia/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

const uniqueViolation = "23505"

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	// Read migrations file
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	// Execute migrations
	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

// GetRecentTexts queries newest-first with a limit, then reverses so the
// caller always sees chronological order.
func (s *PostgresStorage) GetRecentTexts(ctx context.Context, conversationID string, limit int) ([]string, error) {
	query := `
		SELECT text
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying messages: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("%w: scanning message: %v", ErrUnavailable, err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading messages: %v", ErrUnavailable, err)
	}

	for i, j := 0, len(texts)-1; i < j; i, j = i+1, j-1 {
		texts[i], texts[j] = texts[j], texts[i]
	}

	return texts, nil
}

func (s *PostgresStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (message_id, conversation_id, text, raw, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	raw := []byte(msg.Raw)
	if len(raw) == 0 {
		raw = nil
	}

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Text,
		raw,
		msg.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: inserting message: %v", ErrUnavailable, err)
	}

	return nil
}

func (s *PostgresStorage) SaveAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (conversation_id, message_id, label, explanation, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		alert.ConversationID,
		alert.MessageID,
		alert.Label,
		alert.Explanation,
		alert.Text,
	).Scan(&alert.ID, &alert.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateAlert
		}
		return fmt.Errorf("%w: inserting alert: %v", ErrUnavailable, err)
	}

	return nil
}

func (s *PostgresStorage) GetRecentAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	query := `
		SELECT id, conversation_id, message_id, label, explanation, text, created_at
		FROM alerts
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying alerts: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert := &models.Alert{}
		err := rows.Scan(
			&alert.ID,
			&alert.ConversationID,
			&alert.MessageID,
			&alert.Label,
			&alert.Explanation,
			&alert.Text,
			&alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning alert: %v", ErrUnavailable, err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading alerts: %v", ErrUnavailable, err)
	}

	return alerts, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
