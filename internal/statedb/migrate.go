package statedb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// legacyConversation mirrors the per-session JSON file the earlier shell
// hooks kept in the temp directory.
type legacyConversation struct {
	Cwd       string           `json:"cwd"`
	SessionID string           `json:"session_id"`
	Exchanges []legacyExchange `json:"exchanges"`
}

type legacyExchange struct {
	User      string  `json:"user"`
	Assistant *string `json:"assistant"`
}

// LegacyPath returns where the earlier hooks stored a session's window.
func LegacyPath(sessionID string) string {
	return filepath.Join(os.TempDir(), "claude-"+sessionID+"-conversation.json")
}

// ImportLegacy imports the session's window from LegacyPath, if any.
func (s *StateDB) ImportLegacy(sessionID string, maxExchanges int) (int, error) {
	return MigrateFromJSON(LegacyPath(sessionID), sessionID, s, maxExchanges)
}

// MigrateFromJSON imports a legacy conversation file for sessionID when the
// database has no conversation for it yet. Returns the number of exchanges
// imported; 0 with a nil error when there was nothing to import.
func MigrateFromJSON(jsonPath, sessionID string, db *StateDB, maxExchanges int) (int, error) {
	if _, err := db.Load(sessionID); err == nil {
		return 0, nil
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read json: %w", err)
	}

	var legacy legacyConversation
	if err := json.Unmarshal(data, &legacy); err != nil {
		return 0, fmt.Errorf("parse json: %w", err)
	}
	if legacy.Cwd == "" || len(legacy.Exchanges) == 0 {
		return 0, nil
	}
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}

	exchanges := legacy.Exchanges
	if len(exchanges) > maxExchanges {
		exchanges = exchanges[len(exchanges)-maxExchanges:]
	}

	tx, err := db.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	if _, err := tx.Exec(`
		INSERT INTO conversations (session_id, cwd, updated_at) VALUES (?, ?, ?)
	`, sessionID, legacy.Cwd, now); err != nil {
		return 0, fmt.Errorf("insert conversation: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO exchanges (session_id, user_text, assistant_text, created_at) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, ex := range exchanges {
		var assistant any
		switch {
		case ex.Assistant != nil:
			assistant = *ex.Assistant
		case i < len(exchanges)-1:
			// Only the newest exchange may stay pending.
			assistant = ""
		}
		if _, err := stmt.Exec(sessionID, ex.User, assistant, now); err != nil {
			return 0, fmt.Errorf("insert exchange: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	storeLog.Info("legacy_conversation_imported",
		slog.String("session", sessionID),
		slog.String("path", jsonPath),
		slog.Int("exchanges", len(exchanges)))
	return len(exchanges), nil
}
