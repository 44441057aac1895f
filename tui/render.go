// render.go turns conversation state and query results into lines for a
// Viewport.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/DachengChen/asksql/chat"
	"github.com/DachengChen/asksql/contract"
	"github.com/DachengChen/asksql/db"
)

// maxCellWidth caps result table columns.
const maxCellWidth = 40

// renderMessage renders one log entry.
func renderMessage(m chat.Message) []string {
	stamp := StyleDimmed.Render(m.CreatedAt.Format("15:04"))

	switch m.Role {
	case chat.RoleUser:
		return []string{stamp + " " + StyleUser.Render("You: ") + m.Text}
	case chat.RoleSystem:
		return []string{stamp + " " + StyleSystem.Render("! "+m.Text)}
	}

	head := stamp + " " + StyleAssistant.Render("Assistant: ")
	switch m.Kind {
	case chat.KindClarify:
		lines := []string{head + m.Clarify.Question}
		if m.Clarify.ContextHint != "" {
			lines = append(lines, "  "+StyleDimmed.Render(m.Clarify.ContextHint))
		}
		for _, f := range m.Clarify.Fields {
			lines = append(lines, "  "+StyleDimmed.Render("• "+f.Key+" ("+string(f.UI)+")")+optionList(f))
		}
		if !m.Clarify.Actionable() {
			lines = append(lines, "  "+StyleDimmed.Render("(nothing to choose; answer in your own words)"))
		}
		return lines

	case chat.KindSQL:
		lines := []string{head + StyleDimmed.Render("generated "+dialectLabel(m.SQL.Dialect)+" SQL")}
		for _, l := range strings.Split(m.SQL.SQL, "\n") {
			lines = append(lines, "  "+StyleSQL.Render(l))
		}
		if m.SQL.Explanation != nil && m.SQL.Explanation.Summary != "" {
			lines = append(lines, "  "+m.SQL.Explanation.Summary)
		}
		if v := m.SQL.Validation; v != nil {
			lines = append(lines, "  "+ValidationStyle(v.Status).Render("validation: "+string(v.Status)))
		}
		return lines

	case chat.KindBlocked:
		lines := []string{head + StyleError.Render("blocked: ") + m.Blocked.Reason}
		for i, q := range m.Blocked.SuggestedQuestions {
			lines = append(lines, fmt.Sprintf("  %s %s", StyleHelpKey.Render(fmt.Sprintf("%d.", i+1)), q))
		}
		return lines
	}
	return []string{head + m.Text}
}

func optionList(f contract.ClarifyField) string {
	if len(f.Options) == 0 {
		return ""
	}
	labels := make([]string, len(f.Options))
	for i, o := range f.Options {
		labels[i] = o.Label
	}
	return ": " + strings.Join(labels, " / ")
}

func dialectLabel(d contract.SQLDialect) string {
	if d == "" {
		return string(contract.DialectUnknown)
	}
	return string(d)
}

// renderSQLDetails renders every part of a SQL answer for the side panel.
func renderSQLDetails(resp *contract.SQLResponse) []string {
	if resp == nil {
		return []string{
			StyleTitle.Render("SQL"),
			"",
			StyleDimmed.Render("No SQL yet. Ask a question in the chat view."),
		}
	}

	lines := []string{StyleTitle.Render("SQL") + StyleDimmed.Render("  "+dialectLabel(resp.Dialect)), ""}
	for _, l := range strings.Split(resp.SQL, "\n") {
		lines = append(lines, StyleSQL.Render(l))
	}

	if ex := resp.Explanation; ex != nil {
		if ex.Summary != "" {
			lines = append(lines, "", StyleSection.Render("Summary"), ex.Summary)
		}
		if len(ex.Tables) > 0 {
			lines = append(lines, "", StyleSection.Render("Tables"))
			for _, t := range ex.Tables {
				line := "  " + t.Label()
				if t.Role != "" {
					line += StyleDimmed.Render(" [" + string(t.Role) + "]")
				}
				if t.Description != "" {
					line += "  " + t.Description
				}
				lines = append(lines, line)
			}
		}
		if len(ex.Joins) > 0 {
			lines = append(lines, "", StyleSection.Render("Joins"))
			for _, j := range ex.Joins {
				line := fmt.Sprintf("  %s JOIN %s = %s", j.Type, j.Left, j.Right)
				var meta []string
				if j.Cardinality != "" {
					meta = append(meta, string(j.Cardinality))
				}
				if j.Source != "" {
					meta = append(meta, "from "+string(j.Source))
				}
				if len(meta) > 0 {
					line += StyleDimmed.Render("  (" + strings.Join(meta, ", ") + ")")
				}
				lines = append(lines, line)
				if j.Reason != "" {
					lines = append(lines, "    "+StyleDimmed.Render(j.Reason))
				}
			}
		}
		if len(ex.Select) > 0 {
			lines = append(lines, "", StyleSection.Render("Select"))
			for _, s := range ex.Select {
				line := "  " + s.Expr
				if s.Alias != "" {
					line += " AS " + s.Alias
				}
				if s.SemanticType != "" {
					line += StyleDimmed.Render(" [" + string(s.SemanticType) + "]")
				}
				if s.DataType != nil {
					line += StyleDimmed.Render("  " + dataTypeLabel(*s.DataType))
				}
				lines = append(lines, line)
				if s.Definition != "" {
					lines = append(lines, "    "+StyleDimmed.Render(s.Definition))
				}
			}
		}
		if len(ex.Filters) > 0 {
			lines = append(lines, "", StyleSection.Render("Filters"))
			for _, f := range ex.Filters {
				line := "  " + f.Expr
				if f.Source != "" {
					line += "  " + ProvenanceStyle(f.Source).Render("("+string(f.Source)+")")
				}
				lines = append(lines, line)
				if f.Value != nil {
					lines = append(lines, "    "+StyleDimmed.Render(filterValueLabel(*f.Value)))
				}
			}
		}
		if len(ex.GroupBy) > 0 {
			cols := make([]string, len(ex.GroupBy))
			for i, c := range ex.GroupBy {
				cols[i] = c.String()
			}
			lines = append(lines, "", StyleSection.Render("Group by"), "  "+strings.Join(cols, ", "))
		}
		if len(ex.OrderBy) > 0 {
			items := make([]string, len(ex.OrderBy))
			for i, o := range ex.OrderBy {
				items[i] = strings.TrimSpace(o.Expr + " " + string(o.Direction))
			}
			lines = append(lines, "", StyleSection.Render("Order by"), "  "+strings.Join(items, ", "))
		}
		if ex.Limit != nil {
			line := fmt.Sprintf("  %d", ex.Limit.Value)
			if ex.Limit.Source != "" {
				line += "  " + ProvenanceStyle(ex.Limit.Source).Render("("+string(ex.Limit.Source)+")")
			}
			lines = append(lines, "", StyleSection.Render("Limit"), line)
		}
	}

	if v := resp.Validation; v != nil {
		lines = append(lines, "", StyleSection.Render("Validation"), "  "+ValidationStyle(v.Status).Render(string(v.Status)))
		for _, w := range v.Warnings {
			lines = append(lines, "  "+StyleWarning.Render(w.Code)+" "+w.Message)
		}
	}
	return lines
}

func dataTypeLabel(dt contract.DataType) string {
	parts := []string{dt.DBType}
	if dt.LogicalType != "" {
		parts = append(parts, string(dt.LogicalType))
	}
	if dt.Unit != "" {
		parts = append(parts, dt.Unit)
	}
	if dt.Timezone != "" {
		parts = append(parts, dt.Timezone)
	}
	if dt.Format != "" {
		parts = append(parts, dt.Format)
	}
	return strings.Join(parts, " · ")
}

// filterValueLabel renders type, raw and any extra keys in sorted order.
func filterValueLabel(v contract.FilterValue) string {
	parts := []string{string(v.Type)}
	if v.Raw != "" {
		parts = append(parts, "raw="+v.Raw)
	}
	keys := make([]string, 0, len(v.Extra))
	for k := range v.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v.Extra[k]))
	}
	return strings.Join(parts, " ")
}

// formatResult renders a query result as a table.
func formatResult(r *db.QueryResult) []string {
	if len(r.Columns) == 0 {
		return []string{StyleDimmed.Render(r.Status())}
	}

	widths := make([]int, len(r.Columns))
	for i, col := range r.Columns {
		widths[i] = ansi.StringWidth(col)
	}
	for _, row := range r.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], ansi.StringWidth(cell))
			}
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], maxCellWidth)
	}

	cells := func(values []string) string {
		out := make([]string, 0, len(values))
		for i, v := range values {
			if i >= len(widths) {
				break
			}
			v = ansi.Truncate(v, widths[i], "…")
			out = append(out, " "+v+strings.Repeat(" ", widths[i]-ansi.StringWidth(v))+" ")
		}
		return strings.Join(out, "│")
	}

	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("─", w+2)
	}

	lines := []string{
		StyleSuccess.Render(cells(r.Columns)),
		StyleDimmed.Render(strings.Join(seps, "┼")),
	}
	for _, row := range r.Rows {
		lines = append(lines, cells(row))
	}
	lines = append(lines, "", StyleDimmed.Render(r.Status()))
	return lines
}

// formatPlan renders an EXPLAIN result.
func formatPlan(r *db.ExplainResult, analyze bool) []string {
	title := "Query plan"
	if analyze {
		title = "Query plan (analyze)"
	}
	lines := []string{StyleSection.Render(title)}
	for _, l := range r.Lines {
		lines = append(lines, "  "+l)
	}
	return lines
}
