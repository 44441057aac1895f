// clarify_form.go turns a clarify answer into an interactive form.
//
// One input per field, chosen by ClarifyUI.Widget():
//   - single_select cycles its options with ←/→ and starts at the default
//   - multi_select moves a cursor with ←/→ and toggles with space
//   - number checks min/max on submit
//   - date and date_range expect YYYY-MM-DD
//   - text, and any widget this client does not know, is free text
//
// Submit builds the structured answers plus a readable "key: label" line
// for the conversation log.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/asksql/contract"
)

const dateLayout = contract.DateLayout

// ErrNothingAnswered is returned by Submit when every field is empty.
var ErrNothingAnswered = errors.New("answer at least one field")

type formField struct {
	field  contract.ClarifyField
	widget contract.ClarifyUI

	choice int          // single_select
	cursor int          // multi_select
	picked map[int]bool // multi_select

	input textinput.Model // text, number, date, date_range start
	end   textinput.Model // date_range end
	onEnd bool            // date_range: editing the end input
}

// ClarifyForm is the form for one clarify response.
type ClarifyForm struct {
	resp   *contract.ClarifyResponse
	fields []*formField
	focus  int
	err    string
}

// NewClarifyForm builds a form for resp with the first field focused.
func NewClarifyForm(resp *contract.ClarifyResponse) *ClarifyForm {
	f := &ClarifyForm{resp: resp}
	for _, field := range resp.Fields {
		f.fields = append(f.fields, newFormField(field))
	}
	f.setFocus(0)
	return f
}

func newFormField(field contract.ClarifyField) *formField {
	ff := &formField{field: field, widget: field.UI.Widget()}
	if (ff.widget == contract.UISingleSelect || ff.widget == contract.UIMultiSelect) && len(field.Options) == 0 {
		ff.widget = contract.UIText
	}

	switch ff.widget {
	case contract.UISingleSelect:
		ff.choice = field.DefaultIndex()
	case contract.UIMultiSelect:
		ff.picked = make(map[int]bool)
		if defaults, ok := field.Default.([]any); ok {
			for _, d := range defaults {
				for i, o := range field.Options {
					if fmt.Sprint(o.Value) == fmt.Sprint(d) {
						ff.picked[i] = true
					}
				}
			}
		}
	case contract.UIDateRange:
		ff.input = newInput("from " + dateLayout)
		ff.end = newInput("to " + dateLayout)
		if def, ok := field.Default.(map[string]any); ok {
			if s, ok := def["start"].(string); ok {
				ff.input.SetValue(s)
			}
			if e, ok := def["end"].(string); ok {
				ff.end.SetValue(e)
			}
		}
	default:
		placeholder := field.Hint
		if placeholder == "" && ff.widget == contract.UIDate {
			placeholder = dateLayout
		}
		ff.input = newInput(placeholder)
		if field.Default != nil {
			ff.input.SetValue(fmt.Sprint(field.Default))
		}
	}
	return ff
}

// typed reports whether the field is edited through text inputs. Select
// fields leave input and end unset.
func (ff *formField) typed() bool {
	return ff.widget != contract.UISingleSelect && ff.widget != contract.UIMultiSelect
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 32
	return ti
}

// Response is the clarify answer the form was built from.
func (f *ClarifyForm) Response() *contract.ClarifyResponse {
	return f.resp
}

// Focused returns the index of the focused field.
func (f *ClarifyForm) Focused() int {
	return f.focus
}

// Err is the last validation error, or "".
func (f *ClarifyForm) Err() string {
	return f.err
}

func (f *ClarifyForm) setFocus(i int) {
	if len(f.fields) == 0 {
		return
	}
	f.focus = (i + len(f.fields)) % len(f.fields)
	for idx, ff := range f.fields {
		if !ff.typed() {
			continue
		}
		ff.input.Blur()
		ff.end.Blur()
		if idx != f.focus {
			continue
		}
		if ff.onEnd {
			ff.end.Focus()
		} else {
			ff.input.Focus()
		}
	}
}

// Update handles a key for the focused field. Enter is left to the
// caller, which decides when to Submit.
func (f *ClarifyForm) Update(msg tea.KeyMsg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	ff := f.fields[f.focus]

	switch msg.String() {
	case "up", "shift+tab":
		f.setFocus(f.focus - 1)
		return nil
	case "down":
		f.setFocus(f.focus + 1)
		return nil
	}

	switch ff.widget {
	case contract.UISingleSelect:
		n := len(ff.field.Options)
		switch msg.String() {
		case "left", "h":
			ff.choice = (ff.choice - 1 + n) % n
		case "right", "l", " ":
			ff.choice = (ff.choice + 1) % n
		}
		return nil

	case contract.UIMultiSelect:
		n := len(ff.field.Options)
		switch msg.String() {
		case "left", "h":
			ff.cursor = (ff.cursor - 1 + n) % n
		case "right", "l":
			ff.cursor = (ff.cursor + 1) % n
		case " ", "x":
			ff.picked[ff.cursor] = !ff.picked[ff.cursor]
		}
		return nil

	case contract.UIDateRange:
		if msg.String() == "ctrl+r" || (msg.String() == "right" && !ff.onEnd && ff.input.Position() == len(ff.input.Value())) {
			ff.onEnd = !ff.onEnd
			f.setFocus(f.focus)
			return nil
		}
		if msg.String() == "left" && ff.onEnd && ff.end.Position() == 0 {
			ff.onEnd = false
			f.setFocus(f.focus)
			return nil
		}
		var cmd tea.Cmd
		if ff.onEnd {
			ff.end, cmd = ff.end.Update(msg)
		} else {
			ff.input, cmd = ff.input.Update(msg)
		}
		return cmd
	}

	var cmd tea.Cmd
	ff.input, cmd = ff.input.Update(msg)
	return cmd
}

// Submit validates every field and returns the log text and the answers
// keyed by field key. Empty optional fields are left out.
func (f *ClarifyForm) Submit() (text string, answers map[string]any, err error) {
	answers = make(map[string]any)
	var parts []string

	for i, ff := range f.fields {
		value, label, ok, err := ff.answer()
		if err != nil {
			f.err = err.Error()
			f.setFocus(i)
			return "", nil, err
		}
		if !ok {
			continue
		}
		answers[ff.field.Key] = value
		parts = append(parts, ff.field.Key+": "+label)
	}
	if len(answers) == 0 {
		f.err = ErrNothingAnswered.Error()
		return "", nil, ErrNothingAnswered
	}
	f.err = ""
	return strings.Join(parts, "; "), answers, nil
}

// answer returns the field's value and readable label; ok is false for
// an empty optional field.
func (ff *formField) answer() (value any, label string, ok bool, err error) {
	key := ff.field.Key
	switch ff.widget {
	case contract.UISingleSelect:
		opt := ff.field.Options[ff.choice]
		return opt.Value, opt.Label, true, nil

	case contract.UIMultiSelect:
		var values []any
		var labels []string
		for i, opt := range ff.field.Options {
			if ff.picked[i] {
				values = append(values, opt.Value)
				labels = append(labels, opt.Label)
			}
		}
		if len(values) == 0 {
			return nil, "", false, nil
		}
		return values, strings.Join(labels, ", "), true, nil

	case contract.UINumber:
		raw := strings.TrimSpace(ff.input.Value())
		if raw == "" {
			return nil, "", false, nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, "", false, fmt.Errorf("%s: %q is not a number", key, raw)
		}
		if ff.field.Min != nil && n < *ff.field.Min {
			return nil, "", false, fmt.Errorf("%s: must be at least %s", key, formatNumber(*ff.field.Min))
		}
		if ff.field.Max != nil && n > *ff.field.Max {
			return nil, "", false, fmt.Errorf("%s: must be at most %s", key, formatNumber(*ff.field.Max))
		}
		return n, formatNumber(n), true, nil

	case contract.UIDate:
		raw := strings.TrimSpace(ff.input.Value())
		if raw == "" {
			return nil, "", false, nil
		}
		if _, err := time.Parse(dateLayout, raw); err != nil {
			return nil, "", false, fmt.Errorf("%s: %q is not a %s date", key, raw, dateLayout)
		}
		return raw, raw, true, nil

	case contract.UIDateRange:
		start := strings.TrimSpace(ff.input.Value())
		end := strings.TrimSpace(ff.end.Value())
		if start == "" && end == "" {
			return nil, "", false, nil
		}
		value, err := contract.DateRange(start, end)
		if err != nil {
			return nil, "", false, fmt.Errorf("%s: %w", key, err)
		}
		return value, start + " to " + end, true, nil
	}

	raw := strings.TrimSpace(ff.input.Value())
	if raw == "" {
		return nil, "", false, nil
	}
	return raw, raw, true, nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// View renders the form, one line per field.
func (f *ClarifyForm) View() string {
	var lines []string
	width := 0
	for _, ff := range f.fields {
		width = max(width, len(ff.field.Key))
	}

	for i, ff := range f.fields {
		marker := "  "
		key := StyleDimmed.Render(fmt.Sprintf("%-*s", width, ff.field.Key))
		if i == f.focus {
			marker = StylePrompt.Render("› ")
			key = StyleInputFocused.Render(fmt.Sprintf("%-*s", width, ff.field.Key))
		}
		lines = append(lines, marker+key+"  "+ff.view(i == f.focus))
	}
	if f.err != "" {
		lines = append(lines, "  "+StyleError.Render(f.err))
	}
	lines = append(lines, StyleDimmed.Render("  ↑/↓ field  ←/→ choose  space toggle  Enter submit  Esc type instead"))
	return strings.Join(lines, "\n")
}

func (ff *formField) view(focused bool) string {
	switch ff.widget {
	case contract.UISingleSelect:
		label := ff.field.Options[ff.choice].Label
		if focused {
			return StyleListItemActive.Render("‹ "+label+" ›") +
				StyleDimmed.Render(fmt.Sprintf("  %d/%d", ff.choice+1, len(ff.field.Options)))
		}
		return label

	case contract.UIMultiSelect:
		var opts []string
		for i, o := range ff.field.Options {
			box := "[ ]"
			if ff.picked[i] {
				box = "[x]"
			}
			item := box + " " + o.Label
			if focused && i == ff.cursor {
				item = StyleListItemActive.Render(item)
			}
			opts = append(opts, item)
		}
		return strings.Join(opts, "  ")

	case contract.UIDateRange:
		return ff.input.View() + StyleDimmed.Render(" → ") + ff.end.View()
	}

	out := ff.input.View()
	if ff.widget == contract.UINumber && (ff.field.Min != nil || ff.field.Max != nil) {
		out += StyleDimmed.Render("  " + numberRange(ff.field.Min, ff.field.Max))
	}
	return out
}

func numberRange(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil:
		return "[" + formatNumber(*lo) + ", " + formatNumber(*hi) + "]"
	case lo != nil:
		return "≥ " + formatNumber(*lo)
	default:
		return "≤ " + formatNumber(*hi)
	}
}
