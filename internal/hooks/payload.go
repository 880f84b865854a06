// Package hooks wires the Claude Code hook events to the status store and
// the detached summary worker.
package hooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxPayloadBytes caps how much stdin a hook reads.
const MaxPayloadBytes = 1 << 20

// ErrEmptyPayload is returned when stdin held nothing to decode.
var ErrEmptyPayload = errors.New("hooks: empty payload")

// Payload is the JSON Claude Code sends to hooks on stdin. Only the fields
// we need are decoded; unknown fields are ignored.
type Payload struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
	Prompt         string `json:"prompt"`
}

// DecodePayload reads at most MaxPayloadBytes from r.
func DecodePayload(r io.Reader) (*Payload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if len(data) > MaxPayloadBytes {
		return nil, fmt.Errorf("payload exceeds %d bytes", MaxPayloadBytes)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyPayload
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return &p, nil
}
