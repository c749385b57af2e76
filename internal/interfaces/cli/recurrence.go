package cli

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/turtacn/taskboard/internal/domain/recurrence"
	"github.com/turtacn/taskboard/pkg/errors"
)

const maxNextCount = 100

type recurrenceOptions struct {
	rule  string
	from  string
	count int
}

func newRecurrenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurrence",
		Short: "Evaluate recurrence rules offline",
	}
	cmd.AddCommand(newRecurrenceNextCmd(), newRecurrenceSummaryCmd())
	return cmd
}

func newRecurrenceNextCmd() *cobra.Command {
	opts := &recurrenceOptions{}
	cmd := &cobra.Command{
		Use:   "next",
		Short: "List the next occurrence dates of a rule",
		Example: `  taskboard recurrence next --rule '{"type":"weekly","weekdays":[1,3]}' --from 2024-03-01 -n 4
  taskboard recurrence next --rule '{"type":"monthly","monthWeek":-1,"monthWeekday":5}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecurrenceNext(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.rule, "rule", "", "rule as JSON (required)")
	cmd.Flags().StringVar(&opts.from, "from", "", "start date YYYY-MM-DD (default: today)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 5, "number of dates to list")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func newRecurrenceSummaryCmd() *cobra.Command {
	opts := &recurrenceOptions{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Describe a rule in plain English",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := parseRuleFlag(opts.rule)
			if err != nil {
				return err
			}
			return PrintResult(cmd, ruleSummary{Summary: recurrence.Summarize(rule)})
		},
	}
	cmd.Flags().StringVar(&opts.rule, "rule", "", "rule as JSON (required)")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

// NextResult is the output of `recurrence next`.
type NextResult struct {
	Summary string   `json:"summary"`
	From    string   `json:"from"`
	Dates   []string `json:"dates"`
}

// RenderText prints the summary followed by one date per line.
func (r NextResult) RenderText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (from %s)\n", r.Summary, r.From)
	for _, d := range r.Dates {
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	return sb.String()
}

type ruleSummary struct {
	Summary string `json:"summary"`
}

func (r ruleSummary) RenderText() string { return r.Summary + "\n" }

func runRecurrenceNext(cmd *cobra.Command, opts *recurrenceOptions) error {
	rule, err := parseRuleFlag(opts.rule)
	if err != nil {
		return err
	}
	if opts.count < 1 || opts.count > maxNextCount {
		return errors.New(errors.ErrCodeValidation, "invalid count").
			WithDetail(fmt.Sprintf("count must be between 1 and %d", maxNextCount))
	}

	from := civil.DateOf(time.Now())
	if opts.from != "" {
		from, err = civil.ParseDate(opts.from)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "invalid --from date")
		}
	}

	dates := recurrence.Occurrences(from, rule, opts.count)
	out := NextResult{
		Summary: recurrence.Summarize(rule),
		From:    from.String(),
		Dates:   make([]string, len(dates)),
	}
	for i, d := range dates {
		out.Dates[i] = d.String()
	}
	return PrintResult(cmd, out)
}

func parseRuleFlag(raw string) (recurrence.Rule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, errors.New(errors.ErrCodeRecurrenceRuleInvalid, "invalid recurrence rule").
			WithDetail("--rule is required")
	}
	return recurrence.Unmarshal([]byte(raw))
}

//Personal.AI order the ending
