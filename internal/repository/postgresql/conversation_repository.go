package postgresql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docent-service/internal/entity"
)

type ConversationRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool, now: time.Now}
}

// GetOrCreate returns the conversation for sessionID, creating it on first use.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, sessionID uuid.UUID) (*entity.Conversation, error) {
	const q = `
INSERT INTO conversations (session_id)
VALUES ($1)
ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
RETURNING id, session_id, summary, created_at;
`
	var c entity.Conversation
	if err := r.pool.QueryRow(ctx, q, sessionID).Scan(&c.ID, &c.SessionID, &c.Summary, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// AppendMessage adds a message to the conversation of sessionID, creating
// the conversation if needed. Timestamps are strictly increasing within a
// conversation even when the wall clock is not.
func (r *ConversationRepository) AppendMessage(ctx context.Context, sessionID uuid.UUID, sender entity.Sender, text string, imageURL *string) (*entity.Message, error) {
	var msg entity.Message
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var convID int64
		const upsert = `
INSERT INTO conversations (session_id)
VALUES ($1)
ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
RETURNING id;
`
		if err := tx.QueryRow(ctx, upsert, sessionID).Scan(&convID); err != nil {
			return err
		}
		// Serializes writers of the same conversation until commit.
		if _, err := tx.Exec(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, convID); err != nil {
			return err
		}

		var last *time.Time
		if err := tx.QueryRow(ctx,
			`SELECT max(created_at) FROM messages WHERE conversation_id = $1`, convID,
		).Scan(&last); err != nil {
			return err
		}

		ts := nextTimestamp(last, r.now())
		const insert = `
INSERT INTO messages (conversation_id, sender, text, image_url, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;
`
		if err := tx.QueryRow(ctx, insert, convID, string(sender), text, imageURL, ts).Scan(&msg.ID); err != nil {
			return err
		}
		msg.ConversationID = convID
		msg.Sender = sender
		msg.Text = text
		msg.ImageURL = imageURL
		msg.Timestamp = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// nextTimestamp returns now, or one microsecond past last when the clock
// has not moved beyond it. Postgres keeps microsecond precision.
func nextTimestamp(last *time.Time, now time.Time) time.Time {
	ts := now.UTC().Truncate(time.Microsecond)
	if last != nil && !ts.After(*last) {
		ts = last.UTC().Add(time.Microsecond)
	}
	return ts
}

// List returns conversations newest first with their first message text.
func (r *ConversationRepository) List(ctx context.Context, limit int) ([]entity.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT c.id, c.session_id, c.summary, c.created_at,
       COALESCE((SELECT m.text FROM messages m
                 WHERE m.conversation_id = c.id
                 ORDER BY m.created_at, m.id LIMIT 1), '')
FROM conversations c
ORDER BY c.created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Conversation
	for rows.Next() {
		var c entity.Conversation
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Summary, &c.CreatedAt, &c.FirstMessage); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Messages returns the messages of sessionID in timestamp order.
func (r *ConversationRepository) Messages(ctx context.Context, sessionID uuid.UUID) ([]entity.Message, error) {
	var convID int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM conversations WHERE session_id = $1`, sessionID).Scan(&convID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	const q = `
SELECT id, conversation_id, sender, text, image_url, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY created_at, id;
`
	rows, err := r.pool.Query(ctx, q, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Message{}
	for rows.Next() {
		var (
			m      entity.Message
			sender string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &sender, &m.Text, &m.ImageURL, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Sender = entity.Sender(sender)
		out = append(out, m)
	}
	return out, rows.Err()
}
