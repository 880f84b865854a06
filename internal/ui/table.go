package ui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sahilm/fuzzy"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

// recordSource lets fuzzy match against working directories.
type recordSource []*status.Record

func (s recordSource) String(i int) string { return s[i].Cwd }
func (s recordSource) Len() int            { return len(s) }

// Filter keeps the records whose cwd fuzzy-matches query, best match first.
// An empty query returns records unchanged.
func Filter(records []*status.Record, query string) []*status.Record {
	if query == "" {
		return records
	}
	matches := fuzzy.FindFrom(query, recordSource(records))
	out := make([]*status.Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, records[m.Index])
	}
	return out
}

// RenderTable renders records as a bordered table no wider than width.
func RenderTable(records []*status.Record, width int, now time.Time) string {
	width = max(width, minWidth)

	// Fixed columns: project, state, age. The summary column takes the rest.
	summaryWidth := max(width-projectWidth-8-5-10, 10)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		user, agent := SummaryLines(r)
		cell := Truncate(user, summaryWidth)
		if agent != "" {
			cell += "\n" + Truncate(agent, summaryWidth)
		}
		rows = append(rows, []string{
			Truncate(ProjectName(r.Cwd), projectWidth),
			string(r.Status),
			Age(now.Sub(r.UpdatedAt)),
			cell,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(BorderStyle).
		Headers("PROJECT", "STATE", "AGE", "SUMMARY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle.Padding(0, 1)
			}
			style := lipgloss.NewStyle().Padding(0, 1)
			if col == 1 && row >= 0 && row < len(records) {
				if records[row].Status == status.Working {
					return WorkingStyle.Padding(0, 1)
				}
				return WaitingStyle.Padding(0, 1)
			}
			return style
		})
	return t.Render()
}
