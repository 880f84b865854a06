// Package transcript reads Claude Code session transcripts (JSONL).
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// entry is the subset of a transcript line needed to find replies.
type entry struct {
	Type    string `json:"type"`
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LastAssistantText returns the text blocks of the last assistant entry that
// has any, joined with newlines. A missing file or a transcript without
// assistant text yields "" and no error; malformed lines are skipped.
func LastAssistantText(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	// Lines holding tool results have no size bound.
	reader := bufio.NewReaderSize(file, 1024*1024)

	var last string
	for {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return "", readErr
		}
		if text, ok := assistantText(line); ok {
			last = text
		}
		if readErr == io.EOF {
			return last, nil
		}
	}
}

// assistantText returns the joined text blocks of an assistant line.
func assistantText(line []byte) (string, bool) {
	if len(bytes.TrimSpace(line)) == 0 {
		return "", false
	}

	var e entry
	if err := json.Unmarshal(line, &e); err != nil {
		return "", false
	}
	if e.Type != "assistant" {
		return "", false
	}

	var blocks []contentBlock
	if err := json.Unmarshal(e.Message.Content, &blocks); err != nil {
		return "", false
	}
	var texts []string
	for _, b := range blocks {
		if b.Type == "text" {
			texts = append(texts, b.Text)
		}
	}
	if len(texts) == 0 {
		return "", false
	}
	return strings.Join(texts, "\n"), true
}
