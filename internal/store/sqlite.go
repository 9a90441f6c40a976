package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recapbot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id  TEXT NOT NULL,
		body        TEXT NOT NULL DEFAULT '',
		sender      TEXT,
		author      TEXT,
		chat_id     TEXT NOT NULL,
		chat_name   TEXT,
		timestamp   INTEGER NOT NULL,
		direction   TEXT NOT NULL,
		is_group    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat_time ON messages(chat_id, timestamp);

	CREATE TABLE IF NOT EXISTS conversation_records (
		id               TEXT PRIMARY KEY,
		chat_id          TEXT NOT NULL,
		chat_name        TEXT,
		start_message_id TEXT,
		end_message_id   TEXT,
		start_timestamp  INTEGER,
		end_timestamp    INTEGER,
		items            TEXT NOT NULL DEFAULT '[]',
		summary          TEXT,
		status           TEXT NOT NULL DEFAULT 'pending',
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_records_chat ON conversation_records(chat_id, status);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_one_pending
		ON conversation_records(chat_id) WHERE status = 'pending';
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreatePendingRecord inserts a pending record. The partial unique index on
// (chat_id) WHERE status='pending' makes this an atomic insert-if-absent:
// a second pending record for the same chat fails at the database, so two
// near-simultaneous starts cannot both succeed.
func (s *SQLiteStore) CreatePendingRecord(ctx context.Context, rec domain.ConversationRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_records
		 (id, chat_id, chat_name, start_message_id, end_message_id, start_timestamp, end_timestamp, items, summary, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ChatID, rec.ChatName, rec.StartMessageID, rec.EndMessageID,
		rec.StartTimestamp, rec.EndTimestamp, string(items), rec.Summary, string(domain.StatusPending),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrAlreadyRecording
		}
		return err
	}
	return nil
}

func (s *SQLiteStore) FindPendingRecord(ctx context.Context, chatID string) (*domain.ConversationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, chat_name, start_message_id, end_message_id,
		        start_timestamp, end_timestamp, items, summary, status
		 FROM conversation_records WHERE chat_id = ? AND status = ?`,
		chatID, string(domain.StatusPending),
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) SaveRecord(ctx context.Context, rec domain.ConversationRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_records
		 (id, chat_id, chat_name, start_message_id, end_message_id, start_timestamp, end_timestamp, items, summary, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   chat_name = excluded.chat_name,
		   start_message_id = excluded.start_message_id,
		   end_message_id = excluded.end_message_id,
		   start_timestamp = excluded.start_timestamp,
		   end_timestamp = excluded.end_timestamp,
		   items = excluded.items,
		   summary = excluded.summary,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.ChatID, rec.ChatName, rec.StartMessageID, rec.EndMessageID,
		rec.StartTimestamp, rec.EndTimestamp, string(items), rec.Summary, string(rec.Status),
		time.Now(),
	)
	return err
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, msg domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, body, sender, author, chat_id, chat_name, timestamp, direction, is_group)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.Body, msg.From, msg.Author, msg.ChatID, msg.ChatName,
		msg.Timestamp, string(msg.Direction), boolToInt(msg.IsGroup),
	)
	return err
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	// Incoming only, empty bodies excluded, newest first.
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, body, sender, author, chat_id, chat_name, timestamp, direction, is_group
		 FROM messages
		 WHERE chat_id = ? AND direction = ? AND body != ''
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		chatID, string(domain.DirectionIncoming), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *SQLiteStore) MessagesBetween(ctx context.Context, chatID string, t0, t1 int64) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, body, sender, author, chat_id, chat_name, timestamp, direction, is_group
		 FROM messages
		 WHERE chat_id = ? AND direction = ? AND timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp ASC, id ASC`,
		chatID, string(domain.DirectionIncoming), t0, t1,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *SQLiteStore) KnownChats(ctx context.Context) ([]domain.ChatStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, MAX(chat_name), COUNT(*), MIN(timestamp), MAX(timestamp)
		 FROM messages WHERE is_group = 1
		 GROUP BY chat_id ORDER BY MAX(timestamp) DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.ChatStat
	for rows.Next() {
		var st domain.ChatStat
		var name sql.NullString
		if err := rows.Scan(&st.ChatID, &name, &st.MessageCount, &st.FirstSeen, &st.LastSeen); err != nil {
			return nil, err
		}
		st.ChatName = name.String
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) ChatStats(ctx context.Context, chatID string) (*domain.ChatStat, error) {
	var st domain.ChatStat
	var name sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, MAX(chat_name), COUNT(*), MIN(timestamp), MAX(timestamp)
		 FROM messages WHERE chat_id = ? GROUP BY chat_id`,
		chatID,
	).Scan(&st.ChatID, &name, &st.MessageCount, &st.FirstSeen, &st.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.ChatName = name.String
	return &st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.ConversationRecord, error) {
	var rec domain.ConversationRecord
	var chatName, startMsg, endMsg, summary, items sql.NullString
	var startTS, endTS sql.NullInt64
	var status string
	if err := row.Scan(&rec.ID, &rec.ChatID, &chatName, &startMsg, &endMsg,
		&startTS, &endTS, &items, &summary, &status); err != nil {
		return nil, err
	}
	rec.ChatName = chatName.String
	rec.StartMessageID = startMsg.String
	rec.EndMessageID = endMsg.String
	rec.StartTimestamp = startTS.Int64
	rec.EndTimestamp = endTS.Int64
	rec.Summary = summary.String
	rec.Status = domain.RecordStatus(status)
	rec.Items = []string{}
	if items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &rec.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	return &rec, nil
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var sender, author, chatName sql.NullString
		var direction string
		var isGroup int
		if err := rows.Scan(&m.MessageID, &m.Body, &sender, &author, &m.ChatID,
			&chatName, &m.Timestamp, &direction, &isGroup); err != nil {
			return nil, err
		}
		m.From = sender.String
		m.Author = author.String
		m.ChatName = chatName.String
		m.Direction = domain.Direction(direction)
		m.IsGroup = isGroup == 1
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
