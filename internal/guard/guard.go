// Package guard keeps the hooks from re-entering themselves when the
// summary command is itself an agent that runs the same hooks.
package guard

import "strings"

// DefaultVar is the environment variable carrying the marker.
const DefaultVar = "CLAUDE_SUMMARY_HOOK_ACTIVE"

// Guard names the marker variable. The zero value uses DefaultVar.
type Guard struct {
	Var string
}

// Default returns the guard used by the CLI.
func Default() Guard {
	return Guard{Var: DefaultVar}
}

func (g Guard) name() string {
	if g.Var == "" {
		return DefaultVar
	}
	return g.Var
}

// Active reports whether the marker is set to a non-empty value.
// Pass os.LookupEnv in production.
func (g Guard) Active(lookup func(string) (string, bool)) bool {
	v, ok := lookup(g.name())
	return ok && v != ""
}

// Mark returns a copy of env with the marker set, replacing any existing
// assignment of the variable.
func (g Guard) Mark(env []string) []string {
	prefix := g.name() + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, prefix+"1")
}
