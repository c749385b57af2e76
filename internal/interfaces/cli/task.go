package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/pkg/client"
	"github.com/turtacn/taskboard/pkg/errors"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Drive the series lifecycle of stored tasks through the API",
	}
	cmd.AddCommand(
		newTaskCompleteCmd(),
		newTaskSkipCmd(),
		newTaskSummaryCmd(),
		newTaskICSCmd(),
	)
	return cmd
}

func apiClient(cmd *cobra.Command) (*CLIContext, *client.Client, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cliCtx.Client == nil {
		return nil, nil, errors.New(errors.ErrCodeServiceUnavailable, "API client is not configured").
			WithDetail("set --server or server.host/server.port in the config")
	}
	return cliCtx, cliCtx.Client, nil
}

func newTaskCompleteCmd() *cobra.Command {
	var opts client.CompleteOptions
	cmd := &cobra.Command{
		Use:   "complete TASK_ID",
		Short: "Complete a recurring task and spawn its next occurrence",
		Example: `  taskboard task complete 7f9c... --action complete --done-column done
  taskboard task complete 7f9c... --action archive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, c, err := apiClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd.Context())
			defer cancel()

			res, err := c.Tasks().CompleteRecurring(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return PrintResult(cmd, completeView{res})
		},
	}
	cmd.Flags().StringVar(&opts.Action, "action", "", "what happens to the completed task: complete, archive or delete (default: server setting)")
	cmd.Flags().StringVar(&opts.DoneColumnID, "done-column", "", "column the completed task moves to")
	return cmd
}

func newTaskSkipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skip TASK_ID",
		Short: "Advance a recurring task to its next occurrence without completing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, c, err := apiClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd.Context())
			defer cancel()

			res, err := c.Tasks().SkipOccurrence(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, skipView{res})
		},
	}
}

func newTaskSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary TASK_ID",
		Short: "Show the recurrence summary of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, c, err := apiClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd.Context())
			defer cancel()

			res, err := c.Tasks().Summary(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, summaryView{res})
		},
	}
}

func newTaskICSCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "ics TASK_ID",
		Short: "Export a task as an iCalendar document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, c, err := apiClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd.Context())
			defer cancel()

			data, err := c.Tasks().Calendar(ctx, args[0])
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "write calendar file")
			}
			cliCtx.Logger.Debug("calendar written", logging.String("path", outPath), logging.Int("bytes", len(data)))
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "f", "", "write to file instead of stdout")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

type completeView struct {
	*client.CompleteResult
}

func (v completeView) RenderText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Completed %s (%s): %s\n", v.CompletedTaskID, v.Action, v.Outcome)
	if v.SeriesEnded {
		reason := v.Reason
		if reason == "" {
			reason = v.Outcome
		}
		fmt.Fprintf(&sb, "Series ended: %s\n", reason)
	}
	if v.NextTask != nil {
		sb.WriteString(FormatTable(
			[]string{"NEXT TASK", "TITLE", "DUE", "COLUMN"},
			[][]string{{v.NextTask.ID, v.NextTask.Title, deref(v.NextTask.DueDate), v.NextTask.ColumnID}},
		))
	}
	return sb.String()
}

type skipView struct {
	*client.SkipResult
}

func (v skipView) RenderText() string {
	var sb strings.Builder
	sb.WriteString(v.Message)
	sb.WriteString("\n")
	if v.NextDueDate != nil {
		fmt.Fprintf(&sb, "Next due: %s\n", *v.NextDueDate)
	}
	return sb.String()
}

type summaryView struct {
	*client.Summary
}

func (v summaryView) RenderText() string {
	if !v.IsRecurring {
		return "Not recurring\n"
	}
	rows := [][]string{
		{"Summary", v.Summary.Summary},
		{"Ends", deref(v.EndDate)},
		{"Completed", fmt.Sprintf("%d", v.CompletedCount)},
	}
	if v.Count != nil {
		rows = append(rows, []string{"Limit", fmt.Sprintf("%d", *v.Count)})
	}
	return FormatTable([]string{"FIELD", "VALUE"}, rows)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

//Personal.AI order the ending
