package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"messagely/internal/domain"
	"messagely/internal/repository"
)

const createMessagesTable = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_username TEXT NOT NULL REFERENCES users (username),
	to_username TEXT NOT NULL REFERENCES users (username),
	body TEXT NOT NULL,
	sent_at DATETIME NOT NULL,
	read_at DATETIME NULL
);
`

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMessagesTable); err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}
	return nil
}

func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) (int64, error) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO messages (from_username, to_username, body, sent_at)
VALUES (?, ?, ?, ?)`,
		msg.FromUsername,
		msg.ToUsername,
		msg.Body,
		msg.SentAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("message last insert id: %w", err)
	}
	msg.ID = id
	return id, nil
}

func (r *MessageRepository) Get(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, from_username, to_username, body, sent_at, read_at
FROM messages
WHERE id = ?`,
		id,
	)

	var (
		msg    domain.Message
		readAt sql.NullTime
	)
	if err := row.Scan(&msg.ID, &msg.FromUsername, &msg.ToUsername, &msg.Body, &msg.SentAt, &readAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if readAt.Valid {
		t := readAt.Time
		msg.ReadAt = &t
	}
	return &msg, nil
}

// GetWithParties joins the message with both parties in a single query so the
// read is consistent relative to concurrent writes.
func (r *MessageRepository) GetWithParties(ctx context.Context, id int64) (*domain.MessageWithParties, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT m.id, m.body, m.sent_at, m.read_at,
       f.username, f.first_name, f.last_name, f.phone,
       t.username, t.first_name, t.last_name, t.phone
FROM messages m
JOIN users f ON f.username = m.from_username
JOIN users t ON t.username = m.to_username
WHERE m.id = ?`,
		id,
	)

	var (
		msg    domain.MessageWithParties
		readAt sql.NullTime
	)
	err := row.Scan(
		&msg.ID, &msg.Body, &msg.SentAt, &readAt,
		&msg.FromUser.Username, &msg.FromUser.FirstName, &msg.FromUser.LastName, &msg.FromUser.Phone,
		&msg.ToUser.Username, &msg.ToUser.FirstName, &msg.ToUser.LastName, &msg.ToUser.Phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("scan message with parties: %w", err)
	}
	if readAt.Valid {
		t := readAt.Time
		msg.ReadAt = &t
	}
	msg.FromUsername = msg.FromUser.Username
	msg.ToUsername = msg.ToUser.Username
	return &msg, nil
}

// MarkRead sets read_at exactly once. A second call leaves the original
// timestamp in place and returns the stored row, so the transition never
// moves backward.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64) (*domain.Message, error) {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, `
UPDATE messages
SET read_at = ?
WHERE id = ? AND read_at IS NULL`,
		now,
		id,
	); err != nil {
		return nil, fmt.Errorf("mark message read: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *MessageRepository) ListSent(ctx context.Context, username string) ([]domain.SentMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT m.id, m.to_username, m.body, m.sent_at, m.read_at,
       t.username, t.first_name, t.last_name, t.phone
FROM messages m
JOIN users t ON t.username = m.to_username
WHERE m.from_username = ?
ORDER BY m.id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("list sent messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.SentMessage
	for rows.Next() {
		var (
			msg    domain.SentMessage
			readAt sql.NullTime
		)
		err := rows.Scan(
			&msg.ID, &msg.ToUsername, &msg.Body, &msg.SentAt, &readAt,
			&msg.ToUser.Username, &msg.ToUser.FirstName, &msg.ToUser.LastName, &msg.ToUser.Phone,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sent message: %w", err)
		}
		if readAt.Valid {
			t := readAt.Time
			msg.ReadAt = &t
		}
		msg.FromUsername = username
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sent messages: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) ListReceived(ctx context.Context, username string) ([]domain.ReceivedMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT m.id, m.from_username, m.body, m.sent_at, m.read_at,
       f.username, f.first_name, f.last_name, f.phone
FROM messages m
JOIN users f ON f.username = m.from_username
WHERE m.to_username = ?
ORDER BY m.id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("list received messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ReceivedMessage
	for rows.Next() {
		var (
			msg    domain.ReceivedMessage
			readAt sql.NullTime
		)
		err := rows.Scan(
			&msg.ID, &msg.FromUsername, &msg.Body, &msg.SentAt, &readAt,
			&msg.FromUser.Username, &msg.FromUser.FirstName, &msg.FromUser.LastName, &msg.FromUser.Phone,
		)
		if err != nil {
			return nil, fmt.Errorf("scan received message: %w", err)
		}
		if readAt.Valid {
			t := readAt.Time
			msg.ReadAt = &t
		}
		msg.ToUsername = username
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate received messages: %w", err)
	}
	return messages, nil
}
