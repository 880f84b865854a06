package status

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/logging"
)

var statusLog = logging.ForComponent(logging.CompStatus)

// State is the coarse session state shown by dashboards.
type State string

const (
	// Working means the agent is processing a prompt.
	Working State = "working"
	// Waiting means the agent finished and is back at the prompt.
	Waiting State = "waiting"
)

// KeyLength is the number of hex characters kept from the cwd digest.
const KeyLength = 16

// Record is the JSON document stored per working directory.
type Record struct {
	SessionID    string    `json:"sessionId"`
	Cwd          string    `json:"cwd"`
	Status       State     `json:"status"`
	Summary      string    `json:"summary"`
	UserSummary  string    `json:"userSummary"`
	AgentSummary string    `json:"agentSummary"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasSummary reports whether any summary field is populated.
func (r *Record) HasSummary() bool {
	return r.Summary != "" || r.UserSummary != "" || r.AgentSummary != ""
}

// Update describes one status write.
type Update struct {
	SessionID string
	Cwd       string
	Status    State

	// Summary nil keeps whatever summary is already stored. A non-nil
	// Summary replaces all three summary fields, even with empty values.
	Summary *Summary

	// StartedAt, when set, is the moment the writer's turn completed. A stored
	// working record newer than this belongs to a later turn, so its status
	// is kept and only the summary is applied.
	StartedAt time.Time
}

// Store persists one Record per working directory under Dir.
// Writers in different processes replace whole files; last write wins.
type Store struct {
	dir string

	// beforeRename runs between writing the temp file and renaming it.
	beforeRename func()
}

// NewStore returns a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the status files.
func (s *Store) Dir() string {
	return s.dir
}

// Key returns the stable file key for a working directory.
func Key(cwd string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(cwd)))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

// Path returns the status file path for a working directory.
func (s *Store) Path(cwd string) string {
	return filepath.Join(s.dir, Key(cwd)+".json")
}

// Write applies u and replaces the status file. Failures are logged and
// swallowed; a status write must never break the hook that issued it.
func (s *Store) Write(u Update) {
	if err := s.write(u); err != nil {
		statusLog.Warn("status_write_failed",
			slog.String("cwd", u.Cwd),
			slog.String("status", string(u.Status)),
			slog.String("error", err.Error()))
	}
}

func (s *Store) write(u Update) error {
	if u.Cwd == "" {
		return errors.New("status: empty cwd")
	}
	if u.Status != Working && u.Status != Waiting {
		return fmt.Errorf("status: invalid state %q", u.Status)
	}

	rec := Record{
		SessionID: u.SessionID,
		Cwd:       filepath.Clean(u.Cwd),
		Status:    u.Status,
		UpdatedAt: time.Now().UTC(),
	}

	existing, err := s.Read(u.Cwd)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// Unreadable or corrupt: the new record replaces it outright.
		existing = nil
	}

	if u.Summary != nil {
		rec.Summary = u.Summary.Raw
		rec.UserSummary = u.Summary.User
		rec.AgentSummary = u.Summary.Agent
	} else if existing != nil {
		rec.Summary = existing.Summary
		rec.UserSummary = existing.UserSummary
		rec.AgentSummary = existing.AgentSummary
	}

	if existing != nil && !u.StartedAt.IsZero() &&
		existing.Status == Working && existing.UpdatedAt.After(u.StartedAt) {
		rec.Status = existing.Status
		rec.SessionID = existing.SessionID
	}

	if err := s.replace(Key(u.Cwd), rec); err != nil {
		return err
	}

	statusLog.Debug("status_written",
		slog.String("key", Key(u.Cwd)),
		slog.String("session", rec.SessionID),
		slog.String("status", string(rec.Status)),
		slog.Bool("summary", rec.HasSummary()))
	return nil
}

// replace writes rec to <dir>/<key>.json through a uniquely named temp file
// in the same directory, so concurrent writers never share a temp path and
// readers only ever observe a complete document.
func (s *Store) replace(key string, rec Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp status: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write tmp status: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync tmp status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close tmp status: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod tmp status: %w", err)
	}

	if s.beforeRename != nil {
		s.beforeRename()
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, key+".json")); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename status: %w", err)
	}
	return nil
}

// Read returns the record for cwd. A missing file yields an error matching
// os.ErrNotExist.
func (s *Store) Read(cwd string) (*Record, error) {
	return readRecord(s.Path(cwd))
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// List returns every readable record, most recently updated first.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []*Record
	for _, entry := range entries {
		if !isRecordFile(entry.Name()) || entry.IsDir() {
			continue
		}
		rec, err := readRecord(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			statusLog.Debug("status_read_skipped",
				slog.String("file", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

// CleanStale removes status files (and leftover temp files) not modified
// within maxAge. Returns the number of files removed.
func (s *Store) CleanStale(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!isRecordFile(name) && !strings.HasSuffix(name, ".tmp")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, name)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func isRecordFile(name string) bool {
	return filepath.Ext(name) == ".json"
}
