package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// schema is the single conversations table. History, comments, and summary
// are stored as JSON, mirroring the wire format; id is the creation
// timestamp in Unix milliseconds.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id             INTEGER PRIMARY KEY,
	display_name   TEXT NOT NULL DEFAULT '',
	history        TEXT NOT NULL DEFAULT '[]',
	tutor_comments TEXT NOT NULL DEFAULT '[]',
	summary        TEXT NOT NULL DEFAULT '[]'
);`

// Store persists conversations in a local SQLite database. It offers only
// whole-table reads and atomic whole-table replaces — the controller owns
// the in-memory working set and flushes it after every mutation.
//
// Store is safe for concurrent use; database/sql serialises access.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the conversation database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("chat: open store %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("chat: ping store %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("chat: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// GetAll returns every stored conversation, oldest first.
func (s *Store) GetAll(ctx context.Context) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, history, tutor_comments, summary FROM conversations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("chat: query conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var (
			c                           Conversation
			history, comments, summary string
		)
		if err := rows.Scan(&c.ID, &c.DisplayName, &history, &comments, &summary); err != nil {
			return nil, fmt.Errorf("chat: scan conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(history), &c.History); err != nil {
			return nil, fmt.Errorf("chat: conversation %d: decode history: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(comments), &c.TutorComments); err != nil {
			return nil, fmt.Errorf("chat: conversation %d: decode tutor comments: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(summary), &c.Summary); err != nil {
			return nil, fmt.Errorf("chat: conversation %d: decode summary: %w", c.ID, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: iterate conversations: %w", err)
	}
	return out, nil
}

// ReplaceAll atomically replaces the stored table with convs. Either every
// row is written or none is.
func (s *Store) ReplaceAll(ctx context.Context, convs []Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chat: begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("chat: clear conversations: %w", err)
	}
	for _, c := range convs {
		history, err := json.Marshal(c.History)
		if err != nil {
			return fmt.Errorf("chat: conversation %d: encode history: %w", c.ID, err)
		}
		comments, err := json.Marshal(c.TutorComments)
		if err != nil {
			return fmt.Errorf("chat: conversation %d: encode tutor comments: %w", c.ID, err)
		}
		summary, err := json.Marshal(c.Summary)
		if err != nil {
			return fmt.Errorf("chat: conversation %d: encode summary: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (id, display_name, history, tutor_comments, summary) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.DisplayName, string(history), string(comments), string(summary),
		); err != nil {
			return fmt.Errorf("chat: insert conversation %d: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chat: commit replace: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
