package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

const messageColumns = "id, telegram_id, message_text, user_id, username, parent_id, is_post, url, created_at"

// Store defines the message persistence operations used by the bot.
//
// Apart from Ping and RunSQLMaintenance, operations never return backend
// errors: failures are logged here and surface as a false flag (or an empty
// slice), so callers have exactly one failure shape to handle.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Insert writes a new message, omitting absent fields, and returns the
	// persisted row including its store-assigned id.
	Insert(ctx context.Context, message *Message) (*Message, bool)

	// FindByExternalID looks a message up by its platform (or synthetic) id.
	FindByExternalID(ctx context.Context, id ExternalID) (*Message, bool)

	// FindChildren returns every message whose parent is parentID, oldest first.
	// No match and backend failure both yield an empty slice.
	FindChildren(ctx context.Context, parentID int64) []*Message

	// Update applies a partial update. An update with no fields set is
	// rejected without touching the store.
	Update(ctx context.Context, id int64, update MessageUpdate) (*Message, bool)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) Insert(ctx context.Context, message *Message) (*Message, bool) {
	if message == nil {
		s.logger.WarnContext(ctx, "Validation error: cannot insert nil message")
		return nil, false
	}
	if message.TelegramID.IsZero() {
		s.logger.WarnContext(ctx, "Validation error: message has no telegram_id")
		return nil, false
	}
	if message.Text == "" {
		s.logger.WarnContext(ctx, "Validation error: message has empty text", "telegram_id", message.TelegramID.String())
		return nil, false
	}

	cols := []string{"telegram_id", "message_text", "is_post"}
	args := []any{message.TelegramID, message.Text, message.IsPost}
	if message.UserID != nil {
		cols = append(cols, "user_id")
		args = append(args, *message.UserID)
	}
	if message.Username != nil {
		cols = append(cols, "username")
		args = append(args, *message.Username)
	}
	if message.ParentID != nil {
		cols = append(cols, "parent_id")
		args = append(args, *message.ParentID)
	}
	if message.URL != nil {
		cols = append(cols, "url")
		args = append(args, message.URL)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := s.db.Rebind(fmt.Sprintf(
		"INSERT INTO messages (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "), placeholders,
	))

	var id int64
	if err := s.db.GetContext(ctx, &id, query, args...); err != nil {
		s.logBackendError(ctx, "Error inserting message", err, "telegram_id", message.TelegramID.String())
		return nil, false
	}

	saved, err := s.getByID(ctx, id)
	if err != nil {
		s.logBackendError(ctx, "Error reading back inserted message", err, "id", id)
		return nil, false
	}

	s.logger.DebugContext(ctx, "Message inserted",
		"id", saved.ID, "telegram_id", saved.TelegramID.String(), "parent_id", derefInt64(saved.ParentID))
	return saved, true
}

func (s *sqlxStore) FindByExternalID(ctx context.Context, id ExternalID) (*Message, bool) {
	if id.IsZero() {
		s.logger.WarnContext(ctx, "Validation error: lookup with empty telegram_id")
		return nil, false
	}

	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE telegram_id = ? LIMIT 1`)

	var msg Message
	err := s.db.GetContext(ctx, &msg, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No message found", "telegram_id", id.String())
		return nil, false
	case err != nil:
		s.logBackendError(ctx, "Error getting message by telegram_id", err, "telegram_id", id.String())
		return nil, false
	}

	return &msg, true
}

func (s *sqlxStore) FindChildren(ctx context.Context, parentID int64) []*Message {
	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE parent_id = ? ORDER BY id ASC`)

	var children []*Message
	if err := s.db.SelectContext(ctx, &children, query, parentID); err != nil {
		s.logBackendError(ctx, "Error getting replies", err, "parent_id", parentID)
		return []*Message{}
	}
	if children == nil {
		children = []*Message{}
	}

	s.logger.DebugContext(ctx, "Fetched replies", "parent_id", parentID, "count", len(children))
	return children
}

func (s *sqlxStore) Update(ctx context.Context, id int64, update MessageUpdate) (*Message, bool) {
	cols := update.columns()
	if len(cols) == 0 {
		s.logger.WarnContext(ctx, "Validation error: no fields to update provided", "id", id)
		return nil, false
	}

	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	assignments := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		assignments = append(assignments, name+" = ?")
		args = append(args, cols[name])
	}
	args = append(args, id)

	query := s.db.Rebind(fmt.Sprintf("UPDATE messages SET %s WHERE id = ?", strings.Join(assignments, ", ")))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logBackendError(ctx, "Error updating message", err, "id", id, "fields", names)
		return nil, false
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		s.logger.WarnContext(ctx, "No message to update", "id", id)
		return nil, false
	}

	msg, err := s.getByID(ctx, id)
	if err != nil {
		s.logBackendError(ctx, "Error reading back updated message", err, "id", id)
		return nil, false
	}

	s.logger.DebugContext(ctx, "Message updated", "id", id, "fields", names)
	return msg, true
}

func (s *sqlxStore) getByID(ctx context.Context, id int64) (*Message, error) {
	var msg Message
	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE id = ?`)
	if err := s.db.GetContext(ctx, &msg, query, id); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RunSQLMaintenance executes VACUUM on SQLite or VACUUM ANALYZE on Postgres.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	statement := "VACUUM;"
	if s.db.DriverName() == "pgx" {
		statement = "VACUUM ANALYZE messages;"
	}

	s.logger.InfoContext(ctx, "Starting database maintenance...", "statement", statement)

	_, err := s.db.ExecContext(ctx, statement)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Database maintenance timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance failed", "error", err)
		return fmt.Errorf("failed to execute %s: %w", statement, err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}

func (s *sqlxStore) logBackendError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	s.logger.ErrorContext(ctx, msg, attrs...)
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
