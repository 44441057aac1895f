package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DachengChen/asksql/chat"
	"github.com/DachengChen/asksql/contract"
	"github.com/DachengChen/asksql/transport"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question in line mode, answering clarifications on stdin",
	Long: `Sends the question to the backend and prints the answer.

When the assistant asks for clarification, each field is listed and you
answer with key=value lines (a select field also accepts the option
number or label). An empty line submits. A line without "=" is sent as
a free-text reply instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := transport.New(appConfig.Backend)
		if err != nil {
			return err
		}
		return runAsk(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), tr, strings.Join(args, " "))
	},
}

var errEmptyQuestion = errors.New("question is empty")

func init() {
	rootCmd.AddCommand(askCmd)
}

// runAsk drives one conversation until the backend answers with SQL or a
// refusal, or the input ends.
func runAsk(ctx context.Context, in io.Reader, out io.Writer, tr transport.Transport, question string) error {
	if strings.TrimSpace(question) == "" {
		return errEmptyQuestion
	}
	store := chat.NewStore(tr)
	scanner := bufio.NewScanner(in)

	store.SendMessage(ctx, question)
	for {
		if e := store.LastError(); e != "" {
			return fmt.Errorf("request failed: %s", e)
		}
		msgs := store.Messages()
		if len(msgs) == 0 {
			return errEmptyQuestion
		}
		last := msgs[len(msgs)-1]

		switch last.Kind {
		case chat.KindSQL:
			printSQL(out, last.SQL)
			return nil
		case chat.KindBlocked:
			printBlocked(out, last.Blocked)
			return nil
		case chat.KindClarify:
			printClarify(out, last.Clarify)
			text, answers, ok := readAnswers(scanner, out, last.Clarify)
			if !ok {
				return fmt.Errorf("input ended before the clarification was answered")
			}
			if answers == nil {
				store.SendMessage(ctx, text)
			} else {
				store.SubmitClarify(ctx, text, answers)
			}
		default:
			return fmt.Errorf("unexpected %s message", last.Kind)
		}
	}
}

// readAnswers reads key=value lines until an empty line. A first line
// without "=" is returned as free text with nil answers.
func readAnswers(scanner *bufio.Scanner, out io.Writer, resp *contract.ClarifyResponse) (text string, answers map[string]any, ok bool) {
	fields := make(map[string]contract.ClarifyField, len(resp.Fields))
	for _, f := range resp.Fields {
		fields[f.Key] = f
	}
	answers = make(map[string]any)
	labels := make(map[string]string)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return "", nil, false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if len(answers) == 0 {
				answers, labels = defaults(resp)
			}
			if len(answers) == 0 {
				fmt.Fprintln(out, "answer at least one field")
				continue
			}
			break
		}

		key, raw, found := strings.Cut(line, "=")
		if !found {
			if len(answers) == 0 {
				return line, nil, true
			}
			fmt.Fprintln(out, "expected key=value")
			continue
		}
		key = strings.TrimSpace(key)
		f, known := fields[key]
		if !known {
			fmt.Fprintf(out, "unknown field %q\n", key)
			continue
		}
		value, label, err := parseAnswer(f, strings.TrimSpace(raw))
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		answers[key] = value
		labels[key] = label
	}

	var parts []string
	for _, f := range resp.Fields {
		if label, ok := labels[f.Key]; ok {
			parts = append(parts, f.Key+": "+label)
		}
	}
	return strings.Join(parts, "; "), answers, true
}

// defaults answers every select field with its default option.
func defaults(resp *contract.ClarifyResponse) (map[string]any, map[string]string) {
	answers := make(map[string]any)
	labels := make(map[string]string)
	for _, f := range resp.Fields {
		if f.UI.Widget() == contract.UISingleSelect && len(f.Options) > 0 {
			opt := f.Options[f.DefaultIndex()]
			answers[f.Key] = opt.Value
			labels[f.Key] = opt.Label
		}
	}
	return answers, labels
}

// parseAnswer converts raw input for field f. Select fields take an
// option number, value or label; multi_select takes a comma list.
func parseAnswer(f contract.ClarifyField, raw string) (any, string, error) {
	switch f.UI.Widget() {
	case contract.UISingleSelect:
		if len(f.Options) == 0 {
			return raw, raw, nil
		}
		opt, err := pickOption(f, raw)
		if err != nil {
			return nil, "", err
		}
		return opt.Value, opt.Label, nil

	case contract.UIMultiSelect:
		if len(f.Options) == 0 {
			return raw, raw, nil
		}
		var values []any
		var labels []string
		for _, part := range strings.Split(raw, ",") {
			opt, err := pickOption(f, strings.TrimSpace(part))
			if err != nil {
				return nil, "", err
			}
			values = append(values, opt.Value)
			labels = append(labels, opt.Label)
		}
		return values, strings.Join(labels, ", "), nil

	case contract.UINumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %q is not a number", f.Key, raw)
		}
		if (f.Min != nil && n < *f.Min) || (f.Max != nil && n > *f.Max) {
			return nil, "", fmt.Errorf("%s: %s is out of range", f.Key, raw)
		}
		return n, raw, nil

	case contract.UIDateRange:
		start, end, found := strings.Cut(raw, "..")
		if !found {
			return nil, "", fmt.Errorf("%s: expected start..end", f.Key)
		}
		start, end = strings.TrimSpace(start), strings.TrimSpace(end)
		value, err := contract.DateRange(start, end)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", f.Key, err)
		}
		return value, start + " to " + end, nil
	}
	return raw, raw, nil
}

func pickOption(f contract.ClarifyField, raw string) (contract.ClarifyOption, error) {
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(f.Options) {
		return f.Options[n-1], nil
	}
	for _, o := range f.Options {
		if fmt.Sprint(o.Value) == raw || strings.EqualFold(o.Label, raw) {
			return o, nil
		}
	}
	return contract.ClarifyOption{}, fmt.Errorf("%s: no option %q", f.Key, raw)
}

func printClarify(out io.Writer, resp *contract.ClarifyResponse) {
	fmt.Fprintf(out, "? %s\n", resp.Question)
	if resp.ContextHint != "" {
		fmt.Fprintf(out, "  %s\n", resp.ContextHint)
	}
	for _, f := range resp.Fields {
		fmt.Fprintf(out, "  %s (%s)", f.Key, f.UI)
		if f.Hint != "" {
			fmt.Fprintf(out, " %s", f.Hint)
		}
		fmt.Fprintln(out)
		def := f.DefaultIndex()
		for i, o := range f.Options {
			mark := ""
			if f.Default != nil && i == def {
				mark = " (default)"
			}
			fmt.Fprintf(out, "    [%d] %s = %v%s\n", i+1, o.Label, o.Value, mark)
		}
	}
	fmt.Fprintln(out, "Answer with key=value lines, empty line to submit.")
}

func printSQL(out io.Writer, resp *contract.SQLResponse) {
	fmt.Fprintf(out, "-- %s\n%s\n", dialectOrUnknown(resp.Dialect), resp.SQL)
	if ex := resp.Explanation; ex != nil && ex.Summary != "" {
		fmt.Fprintf(out, "\n%s\n", ex.Summary)
	}
	if v := resp.Validation; v != nil {
		fmt.Fprintf(out, "validation: %s\n", v.Status)
		for _, w := range v.Warnings {
			fmt.Fprintf(out, "  %s: %s\n", w.Code, w.Message)
		}
	}
}

func printBlocked(out io.Writer, resp *contract.BlockedResponse) {
	fmt.Fprintf(out, "blocked: %s\n", resp.Reason)
	for _, q := range resp.SuggestedQuestions {
		fmt.Fprintf(out, "  - %s\n", q)
	}
}

func dialectOrUnknown(d contract.SQLDialect) contract.SQLDialect {
	if d == "" {
		return contract.DialectUnknown
	}
	return d
}
