//go:build !windows

package summarizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/guard"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/ptybridge"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/statedb"
)

// stubCommand writes an executable shell script standing in for the CLI.
func stubCommand(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(t.TempDir(), "stub-claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestSummarizer(command string, timeout time.Duration) *Summarizer {
	return New(Options{
		Command: command,
		Model:   "haiku",
		Bridge:  ptybridge.Bridge{Timeout: timeout},
		Guard:   guard.Default(),
	})
}

func TestRun_Success(t *testing.T) {
	cmd := stubCommand(t, `printf '\033[1m{"user_summary":"Add login page","agent_summary":"Added login component and route"}\033[0m\r\n'`)

	res := newTestSummarizer(cmd, 5*time.Second).Run(context.Background(), Request{
		Conversation: "USER: add a login page\nAGENT: Added a login page component and route.",
		Cwd:          t.TempDir(),
	})

	require.Equal(t, FailureNone, res.Failure, "err: %v", res.Err)
	assert.Equal(t, 0, res.ExitCode)

	out := res.Outcome()
	require.NotNil(t, out.Summary)
	assert.Equal(t, "Add login page", out.Summary.User)
	assert.Equal(t, "Added login component and route", out.Summary.Agent)
}

func TestRun_PassesArgsEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "record")
	cmd := stubCommand(t, `{
  for a in "$@"; do printf '[%s]\n' "$a"; done
  printf 'GUARD=%s\n' "$`+guard.DefaultVar+`"
  printf 'PWD=%s\n' "$(pwd)"
} > `+record+`
echo '{"user_summary":"u","agent_summary":"a"}'`)

	res := newTestSummarizer(cmd, 5*time.Second).Run(context.Background(), Request{
		Conversation: "USER: hi\nAGENT: hello",
		Cwd:          dir,
	})
	require.Equal(t, FailureNone, res.Failure)

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	got := string(data)

	assert.Contains(t, got, "[-p]\n[--model]\n[haiku]\n[--tools]\n[]\n[--no-session-persistence]\n[Summarize this coding session.")
	assert.Contains(t, got, "GUARD=1")
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.True(t, strings.Contains(got, "PWD="+dir) || strings.Contains(got, "PWD="+resolved), got)
}

func TestRun_NonZeroExit(t *testing.T) {
	cmd := stubCommand(t, `echo '{"user_summary":"u","agent_summary":"a"}'; exit 2`)

	res := newTestSummarizer(cmd, 5*time.Second).Run(context.Background(), Request{Conversation: "USER: x\nAGENT: y"})
	assert.Equal(t, FailureExit, res.Failure)
	assert.Equal(t, 2, res.ExitCode)

	out := res.Outcome()
	require.NotNil(t, out.Summary)
	assert.Empty(t, out.Summary.User)
	assert.Empty(t, out.Summary.Agent)
	assert.Equal(t, "USER asked: (see conversation)\nAGENT: (summary command error: exit 2)", out.Summary.Raw)
}

func TestRun_EmptyOutput(t *testing.T) {
	cmd := stubCommand(t, `printf '\033[?25l\033[?25h'`)

	res := newTestSummarizer(cmd, 5*time.Second).Run(context.Background(), Request{Conversation: "USER: x\nAGENT: y"})
	assert.Equal(t, FailureEmptyOutput, res.Failure)
	assert.Contains(t, res.Outcome().Summary.Raw, "returned nothing")
}

func TestRun_Timeout(t *testing.T) {
	cmd := stubCommand(t, `sleep 30`)

	start := time.Now()
	res := newTestSummarizer(cmd, 300*time.Millisecond).Run(context.Background(), Request{Conversation: "USER: x\nAGENT: y"})
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, FailureTimeout, res.Failure)
	assert.True(t, errors.Is(res.Err, ptybridge.ErrTimeout))

	out := res.Outcome()
	require.NotNil(t, out.Summary)
	assert.Contains(t, out.Summary.Raw, "timeout")
	assert.Empty(t, out.Summary.User)
}

func TestRun_NotFound(t *testing.T) {
	res := newTestSummarizer(filepath.Join(t.TempDir(), "missing-claude"), time.Second).
		Run(context.Background(), Request{Conversation: "USER: x\nAGENT: y"})
	assert.Equal(t, FailureNotFound, res.Failure)
	assert.Contains(t, res.Outcome().Summary.Raw, "not found")

	res = newTestSummarizer("claude-summary-no-such-binary", time.Second).
		Run(context.Background(), Request{Conversation: "USER: x\nAGENT: y"})
	assert.Equal(t, FailureNotFound, res.Failure)
}

func TestRun_MissingConversation(t *testing.T) {
	res := newTestSummarizer("unused", time.Second).Run(context.Background(), Request{})
	assert.Equal(t, FailureMissingData, res.Failure)

	out := res.Outcome()
	assert.Nil(t, out.Summary, "missing data keeps the stored summary")
	assert.Equal(t, FailureMissingData, out.Failure)
}

func TestRun_FreeTextStoredRaw(t *testing.T) {
	cmd := stubCommand(t, `echo 'The user wanted things.'`)

	res := newTestSummarizer(cmd, 5*time.Second).Run(context.Background(), Request{Conversation: "USER: x\nAGENT: y"})
	require.Equal(t, FailureNone, res.Failure)

	out := res.Outcome()
	require.NotNil(t, out.Summary)
	assert.Equal(t, "The user wanted things.", out.Summary.Raw)
	assert.False(t, out.Summary.Parsed())
}

func TestFailureString(t *testing.T) {
	assert.Equal(t, "timeout", FailureTimeout.String())
	assert.Equal(t, "missing_data", FailureMissingData.String())
	assert.Equal(t, "failure(42)", Failure(42).String())
}

func TestFailureOutcome(t *testing.T) {
	assert.Nil(t, FailureOutcome(FailureMissingData, 0).Summary)

	out := FailureOutcome(FailureSpawn, -1)
	require.NotNil(t, out.Summary)
	assert.Equal(t, "USER asked: (see conversation)\nAGENT: (summary worker failed to start)", out.Summary.Raw)
}

func TestConversationText(t *testing.T) {
	conv := &statedb.Conversation{Exchanges: []statedb.Exchange{
		{User: "first", Assistant: "did first"},
		{User: "interrupted", Assistant: ""},
		{User: "second", Assistant: "did second"},
		{User: "pending", Pending: true},
	}}
	assert.Equal(t, "USER: first\nAGENT: did first\n\nUSER: second\nAGENT: did second", ConversationText(conv))
	assert.Empty(t, ConversationText(nil))
	assert.Empty(t, ConversationText(&statedb.Conversation{}))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("USER: a\nAGENT: b", "CURRENT TASK:\nlogin", 0, 0)
	assert.True(t, strings.HasPrefix(p, "Summarize this coding session.\n\nPROJECT: CURRENT TASK:\nlogin\n\nCONVERSATION:\nUSER: a\nAGENT: b\n\n"))
	assert.Contains(t, p, `"user_summary"`)
	assert.Contains(t, p, `"agent_summary"`)

	noCtx := BuildPrompt("USER: a\nAGENT: b", "", 0, 0)
	assert.NotContains(t, noCtx, "PROJECT:")
}

func TestBuildPrompt_Truncation(t *testing.T) {
	long := strings.Repeat("x", 7000)
	p := BuildPrompt(long, strings.Repeat("s", 400), 6000, 300)

	assert.Contains(t, p, strings.Repeat("x", 6000)+"...")
	assert.NotContains(t, p, strings.Repeat("x", 6001))
	assert.Contains(t, p, "PROJECT: "+strings.Repeat("s", 300)+"\n")
	assert.NotContains(t, p, strings.Repeat("s", 301))

	short := BuildPrompt("exact", "", 5, 300)
	assert.NotContains(t, short, "exact...")
}
