package statedb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/logging"
)

var storeLog = logging.ForComponent(logging.CompStore)

// MetaLastPrune records when Prune last ran.
const MetaLastPrune = "last_prune"

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 1

// DefaultMaxExchanges is the window size used when a caller passes <= 0.
const DefaultMaxExchanges = 5

// ErrNotFound is returned when no conversation exists for a session.
var ErrNotFound = errors.New("statedb: conversation not found")

// StateDB wraps a SQLite database holding the rolling conversation windows.
// The prompt-submit hook and the detached summary worker run as separate
// processes; WAL mode + busy timeout let them share the file.
type StateDB struct {
	db *sql.DB
}

// Exchange is one user prompt and, once the turn completed, the reply.
// Pending is true while the reply has not been recorded yet.
type Exchange struct {
	User      string
	Assistant string
	Pending   bool
	CreatedAt time.Time
}

// Conversation is the bounded window of exchanges for one agent session.
type Conversation struct {
	SessionID string
	Cwd       string
	Exchanges []Exchange
	UpdatedAt time.Time
}

// Complete returns the exchanges that have both a prompt and a reply.
func (c *Conversation) Complete() []Exchange {
	var out []Exchange
	for _, ex := range c.Exchanges {
		if !ex.Pending && ex.User != "" && ex.Assistant != "" {
			out = append(out, ex)
		}
	}
	return out
}

// Open creates or opens a SQLite database at dbPath with WAL mode and busy timeout.
func Open(dbPath string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("statedb: mkdir: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("statedb: open: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: ping: %w", err)
	}

	return &StateDB{db: db}, nil
}

// Close checkpoints WAL and closes the database.
func (s *StateDB) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Migrate creates tables if they don't exist.
func (s *StateDB) Migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("statedb: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			session_id TEXT PRIMARY KEY,
			cwd        TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("statedb: create conversations: %w", err)
	}

	// assistant_text NULL marks the in-flight turn.
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS exchanges (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id     TEXT NOT NULL REFERENCES conversations(session_id) ON DELETE CASCADE,
			user_text      TEXT NOT NULL,
			assistant_text TEXT,
			created_at     INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("statedb: create exchanges: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, id)
	`); err != nil {
		return fmt.Errorf("statedb: create exchanges index: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, strconv.Itoa(SchemaVersion)); err != nil {
		return fmt.Errorf("statedb: set schema version: %w", err)
	}

	return tx.Commit()
}

// AppendPrompt records a new in-flight exchange for sessionID and trims the
// window to the newest maxExchanges entries. Any older exchange still
// waiting for a reply is marked interrupted (empty reply), so at most one
// exchange is pending at a time.
func (s *StateDB) AppendPrompt(sessionID, cwd, prompt string, maxExchanges int) error {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	now := time.Now().Unix()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO conversations (session_id, cwd, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET cwd = excluded.cwd, updated_at = excluded.updated_at
	`, sessionID, cwd, now); err != nil {
		return fmt.Errorf("statedb: upsert conversation: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE exchanges SET assistant_text = '' WHERE session_id = ? AND assistant_text IS NULL
	`, sessionID); err != nil {
		return fmt.Errorf("statedb: close pending exchange: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO exchanges (session_id, user_text, assistant_text, created_at) VALUES (?, ?, NULL, ?)
	`, sessionID, prompt, now); err != nil {
		return fmt.Errorf("statedb: insert exchange: %w", err)
	}

	if err := trim(tx, sessionID, maxExchanges); err != nil {
		return err
	}

	return tx.Commit()
}

func trim(tx *sql.Tx, sessionID string, maxExchanges int) error {
	if _, err := tx.Exec(`
		DELETE FROM exchanges
		WHERE session_id = ? AND id NOT IN (
			SELECT id FROM exchanges WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)
	`, sessionID, sessionID, maxExchanges); err != nil {
		return fmt.Errorf("statedb: trim exchanges: %w", err)
	}
	return nil
}

// CompleteLast fills in the reply of the newest exchange when it is still
// pending. Returns false when there was nothing to fill.
func (s *StateDB) CompleteLast(sessionID, assistant string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE exchanges SET assistant_text = ?
		WHERE id = (SELECT MAX(id) FROM exchanges WHERE session_id = ?)
		  AND assistant_text IS NULL
	`, assistant, sessionID)
	if err != nil {
		return false, fmt.Errorf("statedb: complete exchange: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		_, _ = s.db.Exec(`UPDATE conversations SET updated_at = ? WHERE session_id = ?`,
			time.Now().Unix(), sessionID)
	}
	return n > 0, nil
}

// Load returns the conversation for sessionID, oldest exchange first.
func (s *StateDB) Load(sessionID string) (*Conversation, error) {
	conv := &Conversation{SessionID: sessionID}
	var updatedUnix int64
	err := s.db.QueryRow(`
		SELECT cwd, updated_at FROM conversations WHERE session_id = ?
	`, sessionID).Scan(&conv.Cwd, &updatedUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statedb: load conversation: %w", err)
	}
	conv.UpdatedAt = time.Unix(updatedUnix, 0)

	rows, err := s.db.Query(`
		SELECT user_text, assistant_text, created_at FROM exchanges
		WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("statedb: load exchanges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ex Exchange
		var assistant sql.NullString
		var createdUnix int64
		if err := rows.Scan(&ex.User, &assistant, &createdUnix); err != nil {
			return nil, err
		}
		ex.Assistant = assistant.String
		ex.Pending = !assistant.Valid
		ex.CreatedAt = time.Unix(createdUnix, 0)
		conv.Exchanges = append(conv.Exchanges, ex)
	}
	return conv, rows.Err()
}

// Prune deletes conversations not updated within maxAge.
// Returns the number of conversations removed.
func (s *StateDB) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		DELETE FROM exchanges WHERE session_id IN (
			SELECT session_id FROM conversations WHERE updated_at < ?
		)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("statedb: prune exchanges: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM conversations WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("statedb: prune conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if n > 0 {
		storeLog.Info("conversations_pruned", slog.Int64("count", n))
	}
	return int(n), nil
}

// --- Metadata ---

// SetMeta sets a key-value pair in the metadata table.
func (s *StateDB) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a value from the metadata table. Returns "" if not found.
func (s *StateDB) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
