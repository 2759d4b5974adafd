// Package session persists chat transcripts in SQLite.
//
// Schema (managed by embedded goose migrations):
//
//	chats(id, model_name, chat_type, course_id, created_at, updated_at)
//	chat_messages(chat_id, seq, role, content, model, context, created_at)
//
// A chat is saved as a whole: its row is upserted and its messages rewritten
// inside one transaction.
package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

// ErrChatNotFound is returned when no chat has the requested id.
var ErrChatNotFound = errors.New("chat not found")

const (
	// Fixed-width so updated_at sorts lexically.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

	// ListLimit caps the number of chats returned by List.
	ListLimit = 100
	// previewLength is the rune length of the last-message preview.
	previewLength = 100
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// Manager loads and persists chats.
type Manager struct {
	db *sql.DB
}

// NewManager opens (or creates) the SQLite database at dbPath, enables WAL
// mode and applies pending migrations.
func NewManager(dbPath string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Manager{db: db}, nil
}

func migrate(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.Up(db, "migrations")
}

// Close closes the database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Ping checks the database is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Find loads the chat with id.
func (m *Manager) Find(ctx context.Context, id string) (*Chat, error) {
	c := &Chat{ID: id}
	var created, updated string
	err := m.db.QueryRowContext(ctx, `
		SELECT model_name, chat_type, course_id, created_at, updated_at
		FROM chats WHERE id = ?`, id).
		Scan(&c.ModelName, &c.ChatType, &c.CourseID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query chat %s: %w", id, err)
	}
	c.CreatedAt, _ = time.Parse(timeFormat, created)
	c.UpdatedAt, _ = time.Parse(timeFormat, updated)

	msgs, err := m.messages(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs
	return c, nil
}

// GetOrCreate loads the chat with id, or returns a new unsaved chat for
// modelName when id is empty. A non-empty id that does not exist is an
// ErrChatNotFound.
func (m *Manager) GetOrCreate(ctx context.Context, id, modelName, chatType string) (*Chat, error) {
	if id == "" {
		return NewChat(modelName, chatType), nil
	}
	return m.Find(ctx, id)
}

func (m *Manager) messages(ctx context.Context, chatID string) (schema.Messages, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT role, content, model, context, created_at
		FROM chat_messages WHERE chat_id = ? ORDER BY seq`, chatID)
	if err != nil {
		return schema.Messages{}, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := schema.NewMessages()
	for rows.Next() {
		var msg schema.Message
		var ctxJSON, created string
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Model, &ctxJSON, &created); err != nil {
			return schema.Messages{}, fmt.Errorf("scan message row: %w", err)
		}
		if ctxJSON != "" {
			_ = json.Unmarshal([]byte(ctxJSON), &msg.Context)
		}
		msg.Timestamp, _ = time.Parse(timeFormat, created)
		out.Add(msg)
	}
	if err := rows.Err(); err != nil {
		return schema.Messages{}, fmt.Errorf("iterate message rows: %w", err)
	}
	return out, nil
}

// Save writes the chat and all of its messages.
func (m *Manager) Save(ctx context.Context, c *Chat) error {
	c.mu.Lock()
	msgs := c.Messages.Clone()
	row := []any{c.ID, c.ModelName, c.ChatType, c.CourseID, c.CreatedAt.UTC().Format(timeFormat), c.UpdatedAt.UTC().Format(timeFormat)}
	c.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chats (id, model_name, chat_type, course_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			model_name = excluded.model_name,
			chat_type  = excluded.chat_type,
			course_id  = excluded.course_id,
			updated_at = excluded.updated_at`, row...); err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE chat_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_messages (chat_id, seq, role, content, model, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range msgs.Messages {
		ctxJSON := ""
		if len(msg.Context) > 0 {
			b, _ := json.Marshal(msg.Context)
			ctxJSON = string(b)
		}
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, c.ID, i, msg.Role, msg.Content, msg.Model, ctxJSON, ts.UTC().Format(timeFormat)); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chat %s: %w", c.ID, err)
	}
	return nil
}

// MarkCourse sets the chat type to course and records courseID.
func (m *Manager) MarkCourse(ctx context.Context, id, courseID string) error {
	res, err := m.db.ExecContext(ctx, `
		UPDATE chats SET chat_type = ?, course_id = CASE WHEN ? = '' THEN course_id ELSE ? END, updated_at = ?
		WHERE id = ?`, TypeCourse, courseID, courseID, time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("mark course: %w", err)
	}
	return notFoundIfNone(res, id)
}

// Delete removes the chat with id and its messages.
func (m *Manager) Delete(ctx context.Context, id string) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return notFoundIfNone(res, id)
}

// List returns up to limit chats, most recently updated first, with a
// preview of each chat's last message. limit is clamped to ListLimit.
func (m *Manager) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT c.id, c.model_name, c.chat_type, c.course_id, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM chat_messages WHERE chat_id = c.id),
			COALESCE((SELECT content FROM chat_messages WHERE chat_id = c.id ORDER BY seq DESC LIMIT 1), '')
		FROM chats c
		ORDER BY c.updated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		var created, updated string
		if err := rows.Scan(&s.ID, &s.ModelName, &s.ChatType, &s.CourseID, &created, &updated, &s.MessageCount, &s.LastMessage); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		s.CreatedAt, _ = time.Parse(timeFormat, created)
		s.UpdatedAt, _ = time.Parse(timeFormat, updated)
		s.LastMessage = preview(s.LastMessage)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rows: %w", err)
	}
	return out, nil
}

func notFoundIfNone(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	return nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength])
}
