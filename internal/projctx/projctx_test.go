package projctx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentSection(t *testing.T) {
	tests := []struct {
		name string
		plan string
		want string
	}{
		{
			name: "ends at next h2",
			plan: "# Plan\n\n## DONE\n- setup\n\n## CURRENT: Login\n- build form\n- add route\n\n## NEXT\n- logout\n",
			want: "## CURRENT: Login\n- build form\n- add route",
		},
		{
			name: "ends at rule",
			plan: "## CURRENT\nwire the api\n\n---\n\nnotes",
			want: "## CURRENT\nwire the api",
		},
		{
			name: "h3 inside section kept",
			plan: "## Current work\n### step one\ndo it\n## Later\nx",
			want: "## Current work\n### step one\ndo it",
		},
		{
			name: "runs to end of file",
			plan: "intro\n\n## CURRENT: final push\nship it",
			want: "## CURRENT: final push\nship it",
		},
		{
			name: "prefix word is not a match",
			plan: "## CURRENTLY BLOCKED\nwaiting\n",
			want: "",
		},
		{
			name: "h1 current is not a match",
			plan: "# CURRENT\nnope\n",
			want: "",
		},
		{
			name: "heading inside code block ignored",
			plan: "```\n## CURRENT: fake\n```\n\n## Other\n",
			want: "",
		},
		{
			name: "no section",
			plan: "just text",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentSection([]byte(tt.plan)))
		})
	}
}

func TestRead(t *testing.T) {
	cwd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ClaudeMD), []byte("# Shop\nAn online shop."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cwd, PlanMD),
		[]byte("## CURRENT: checkout\n- payment form\n\n## NEXT\n- refunds\n"), 0o644))

	ctx := Read(cwd, DefaultLimits())
	assert.False(t, ctx.Empty())
	assert.Equal(t, "# Shop\nAn online shop.", ctx.ClaudeMD)
	assert.Equal(t, "## CURRENT: checkout\n- payment form", ctx.CurrentTask)

	section := ctx.Section()
	assert.Equal(t, "CURRENT TASK:\n## CURRENT: checkout\n- payment form\n\nPROJECT INFO:\n# Shop\nAn online shop.", section)
}

func TestRead_PlanWithoutCurrentUsesExcerpt(t *testing.T) {
	cwd := t.TempDir()
	plan := strings.Repeat("p", 900)
	require.NoError(t, os.WriteFile(filepath.Join(cwd, PlanMD), []byte(plan), 0o644))

	ctx := Read(cwd, DefaultLimits())
	assert.Empty(t, ctx.CurrentTask)
	assert.Equal(t, "PROJECT PLAN:\n"+strings.Repeat("p", 500), ctx.Section())
}

func TestRead_Limits(t *testing.T) {
	cwd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ClaudeMD), []byte(strings.Repeat("é", 3000)), 0o644))

	ctx := Read(cwd, Limits{ClaudeMD: 2000, PlanMD: 3000, CurrentTask: 1000, Excerpt: 10})
	assert.Equal(t, 2000, len([]rune(ctx.ClaudeMD)))
	assert.Equal(t, "PROJECT INFO:\n"+strings.Repeat("é", 10), ctx.Section())
}

func TestRead_NothingThere(t *testing.T) {
	ctx := Read(t.TempDir(), DefaultLimits())
	assert.True(t, ctx.Empty())
	assert.Empty(t, ctx.Section())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "whole", Truncate("whole", 0))
}
