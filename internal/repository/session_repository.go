package repository

import (
	"context"

	"invoicehub/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SessionRepository stores chat sessions and their message log. Messages
// are append-only; a session's updated_at moves forward on every turn.
type SessionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSessionRepository(db *pgxpool.Pool, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	query := squirrel.Insert("chat_sessions").
		Columns("id", "user_id", "created_at", "updated_at").
		Values(session.ID, session.UserID, session.CreatedAt, session.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// GetByID fetches a session scoped to its owner.
func (r *SessionRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ChatSession, error) {
	query := squirrel.Select("id", "user_id", "created_at", "updated_at").
		From("chat_sessions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var session models.ChatSession
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&session.ID, &session.UserID, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *SessionRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error) {
	query := squirrel.Select("id", "user_id", "created_at", "updated_at").
		From("chat_sessions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("updated_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.ChatSession
	for rows.Next() {
		var session models.ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}

	return sessions, rows.Err()
}

// Touch bumps the session's updated_at so summaries sort correctly.
func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := squirrel.Update("chat_sessions").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// Delete removes a session and its messages (messages cascade in schema).
func (r *SessionRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := squirrel.Delete("chat_sessions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *SessionRepository) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := squirrel.Insert("chat_messages").
		Columns("id", "session_id", "role", "content", "created_at").
		Values(msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ListMessages returns a session's messages in chronological order.
func (r *SessionRepository) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*models.ChatMessage, error) {
	query := squirrel.Select("id", "session_id", "role", "content", "created_at").
		From("chat_messages").
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
