package summarizer

import (
	"strings"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/projctx"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/statedb"
)

// Prompt size defaults, in characters.
const (
	DefaultMaxChars     = 6000
	DefaultSectionChars = 300
)

// ConversationText renders the complete exchanges as alternating USER/AGENT
// blocks separated by blank lines. Pending or interrupted exchanges are left out.
func ConversationText(conv *statedb.Conversation) string {
	if conv == nil {
		return ""
	}
	var parts []string
	for _, ex := range conv.Complete() {
		parts = append(parts, "USER: "+ex.User+"\nAGENT: "+ex.Assistant)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt assembles the instruction sent to the summary command.
// conversation is cut to maxChars with "..." appended; the project section
// is cut to sectionChars.
func BuildPrompt(conversation, section string, maxChars, sectionChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if sectionChars <= 0 {
		sectionChars = DefaultSectionChars
	}

	if cut := projctx.Truncate(conversation, maxChars); cut != conversation {
		conversation = cut + "..."
	}

	var b strings.Builder
	b.WriteString("Summarize this coding session.\n")
	if section != "" {
		b.WriteString("\nPROJECT: ")
		b.WriteString(projctx.Truncate(section, sectionChars))
		b.WriteString("\n")
	}
	b.WriteString("\nCONVERSATION:\n")
	b.WriteString(conversation)
	b.WriteString("\n\nRespond with ONLY a single-line JSON object and no other text:\n")
	b.WriteString(`{"user_summary": "<one sentence: what the user wanted across the session>", "agent_summary": "<one sentence: what was accomplished>"}`)
	return b.String()
}
