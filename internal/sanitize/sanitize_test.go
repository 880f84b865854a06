package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain text untouched",
			raw:  "Add login page",
			want: "Add login page",
		},
		{
			name: "color codes",
			raw:  "\x1b[1;32mdone\x1b[0m",
			want: "done",
		},
		{
			name: "cursor movement and private modes",
			raw:  "\x1b[?25l\x1b[2J\x1b[Hhello\x1b[K\x1b[?25h",
			want: "hello",
		},
		{
			name: "osc title with bel",
			raw:  "\x1b]0;claude\x07summary",
			want: "summary",
		},
		{
			name: "osc with string terminator",
			raw:  "\x1b]8;;https://example.com\x1b\\link\x1b]8;;\x1b\\",
			want: "link",
		},
		{
			name: "crlf from the pty line discipline",
			raw:  "line one\r\nline two\r\n",
			want: "line one\nline two",
		},
		{
			name: "carriage return overwrite",
			raw:  "Thinking...\rAnswer ready",
			want: "Answer ready",
		},
		{
			name: "backspace and bell removed",
			raw:  "ok\a\b!",
			want: "ok!",
		},
		{
			name: "trailing device attribute residue",
			raw:  "{\"user_summary\":\"a\"}\r\n0;276;0c\r\n1u\r\n",
			want: "{\"user_summary\":\"a\"}",
		},
		{
			name: "only garbage",
			raw:  "\x1b[?1u\r\n12;1R",
			want: "",
		},
		{
			name: "residue hidden behind unicode spaces",
			raw:  "Added login route\n1u\n\u3000",
			want: "Added login route",
		},
		{
			name: "residue after a no-break space line",
			raw:  "5\n\u00a0\n1u",
			want: "5",
		},
		{
			name: "bare number output is kept",
			raw:  "42",
			want: "42",
		},
		{
			name: "bare number with trailing residue",
			raw:  "42\r\n0;276;0c\r\n",
			want: "42",
		},
		{
			name: "numbers inside content are kept",
			raw:  "Fixed 3 bugs\nin 2 files\nthanks",
			want: "Fixed 3 bugs\nin 2 files\nthanks",
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "\n\n   text   \n\n",
			want: "text",
		},
		{
			name: "leading bom dropped",
			raw:  "\xef\xbb\xbfhello",
			want: "hello",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean([]byte(tt.raw)))
		})
	}
}

func TestClean_InvalidUTF8IsReplaced(t *testing.T) {
	got := Clean([]byte("ab\xff\xfecd"))
	assert.True(t, strings.HasPrefix(got, "ab"))
	assert.True(t, strings.HasSuffix(got, "cd"))
	assert.Contains(t, got, "�")
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"\x1b[31mred\x1b[0m\r\nplain\r\n",
		"Thinking\rDone\r\n\r\n42",
		"\xef\xbb\xbf\xef\xbb\xbfdouble bom",
		"ab\xff\xfe\x1b",
		"\x1b]0;t\x07{\"user_summary\":\"x\",\"agent_summary\":\"y\"}\r\n\x1b[?1u",
		"  leading\n\ttabbed\n",
		"\u0085next line ",
		"5\n\u00a0",
		"Added login route\n1u\n\u3000",
		"42",
		"7\n\u00a0\n3\n\u2003",
		"\u00a0\n1u\n\u00a0\n2",
		"",
	}

	for _, in := range inputs {
		once := Clean([]byte(in))
		twice := Clean([]byte(once))
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestClean_NeverPanics(t *testing.T) {
	var all []byte
	for b := 0; b < 256; b++ {
		all = append(all, byte(b))
	}
	assert.NotPanics(t, func() { _ = Clean(all) })
	assert.NotPanics(t, func() { _ = Clean([]byte("\x1b[")) })
	assert.NotPanics(t, func() { _ = Clean([]byte("\x1b]unterminated")) })
}

