package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/config"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/guard"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/statedb"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

// runCmd runs the CLI in-process and returns exit code, stdout and stderr.
func runCmd(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	config.ClearCache()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func testStore() *status.Store {
	return status.NewStore(config.Default().Status.Dir)
}

func hookPayload(sessionID, cwd, transcript, prompt string) string {
	b, _ := json.Marshal(map[string]string{
		"session_id":      sessionID,
		"cwd":             cwd,
		"transcript_path": transcript,
		"prompt":          prompt,
		"hook_event_name": "UserPromptSubmit",
	})
	return string(b)
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runCmd(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "claude-summary v"+Version+"\n", out)

	code, out, _ = runCmd(t, "")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "hooks install")
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCmd(t, "", "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command: frobnicate")
}

func TestPromptSubmitWritesWorking(t *testing.T) {
	cwd := t.TempDir()
	code, _, _ := runCmd(t, hookPayload("sess-1", cwd, "", "add a login page"), "prompt-submit")
	require.Equal(t, 0, code)

	rec, err := testStore().Read(cwd)
	require.NoError(t, err)
	assert.Equal(t, status.Working, rec.Status)
	assert.Equal(t, "sess-1", rec.SessionID)

	db, err := statedb.Open(config.StateDBPath())
	require.NoError(t, err)
	defer db.Close()
	conv, err := db.Load("sess-1")
	require.NoError(t, err)
	require.Len(t, conv.Exchanges, 1)
	assert.Equal(t, "add a login page", conv.Exchanges[0].User)
	assert.True(t, conv.Exchanges[0].Pending)
}

func TestHookGuardSuppressesEverything(t *testing.T) {
	t.Setenv(guard.DefaultVar, "1")
	cwd := t.TempDir()

	for _, cmd := range []string{"prompt-submit", "stop"} {
		code, out, errOut := runCmd(t, hookPayload("guarded", cwd, "", "x"), cmd)
		assert.Equal(t, 0, code)
		assert.Empty(t, out)
		assert.Empty(t, errOut)
	}
	_, err := testStore().Read(cwd)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHooksExitZeroOnBadInput(t *testing.T) {
	for _, in := range []string{"", "{not json", `{"cwd":"/no/session"}`} {
		for _, cmd := range []string{"prompt-submit", "stop"} {
			code, _, _ := runCmd(t, in, cmd)
			assert.Equal(t, 0, code, "%s with %q", cmd, in)
		}
	}
	code, _, _ := runCmd(t, "", "summarize-bg", "--bogus")
	assert.Equal(t, 0, code)
}

func TestHooksInstallStatusUninstall(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", t.TempDir())

	code, out, _ := runCmd(t, "", "hooks", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "NOT INSTALLED")

	code, out, _ = runCmd(t, "", "hooks", "install")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "installed successfully")

	code, out, _ = runCmd(t, "", "hooks", "install")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "already installed")

	code, out, _ = runCmd(t, "", "hooks", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Status: INSTALLED")

	code, out, _ = runCmd(t, "", "hooks", "uninstall")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "removed successfully")

	code, _, errOut := runCmd(t, "", "hooks", "reinstall")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown hooks subcommand")
}

func TestHooksStatusClean(t *testing.T) {
	store := testStore()
	cwd := t.TempDir()
	store.Write(status.Update{SessionID: "old", Cwd: cwd, Status: status.Waiting})
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(cwd), old, old))

	code, out, _ := runCmd(t, "", "hooks", "status", "--clean")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Removed 1 stale status records")
	assert.Contains(t, out, "Last cleanup: ")

	_, err := store.Read(cwd)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatusJSONAndFilter(t *testing.T) {
	store := testStore()
	shop := filepath.Join(t.TempDir(), "quokkashop")
	api := filepath.Join(t.TempDir(), "api-server")
	store.Write(status.Update{SessionID: "a", Cwd: shop, Status: status.Waiting,
		Summary: &status.Summary{Raw: "r", User: "Add login page", Agent: "Added login component and route"}})
	store.Write(status.Update{SessionID: "b", Cwd: api, Status: status.Working})

	code, out, _ := runCmd(t, "", "status", "--json", "quokkashop")
	require.Equal(t, 0, code)

	var records []status.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Add login page", records[0].UserSummary)

	code, out, _ = runCmd(t, "", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "quokkashop")
	assert.Contains(t, out, "api-server")

	code, out, _ = runCmd(t, "", "status", "--json", "zzzqqqxxx")
	require.Equal(t, 0, code)
	assert.Equal(t, "[]\n", out)
}

func TestWatchNeedsTerminal(t *testing.T) {
	code, _, errOut := runCmd(t, "", "watch")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "interactive terminal")
}

func TestConfigInit(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)

	code, out, _ := runCmd(t, "", "config", "init")
	require.Equal(t, 0, code)
	assert.Equal(t, fmt.Sprintf("Wrote %s\n", filepath.Join(home, config.FileName)), out)

	code, out, _ = runCmd(t, "", "config", "init")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "already exists")

	code, out, _ = runCmd(t, "", "config", "path")
	require.Equal(t, 0, code)
	assert.Equal(t, filepath.Join(home, config.FileName)+"\n", out)
}
