package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mustdo/internal/observability"
	"github.com/valter-silva-au/mustdo/pkg/models"
	"gopkg.in/yaml.v3"
)

var addCmd = &cobra.Command{
	Use:   "add <description> [HH:MM]",
	Short: "Add a task with an optional deadline",
	Long: `Add a task to the list.

The optional deadline is a 24-hour wall-clock time. If that time has already
passed today, the deadline is the same time tomorrow.

  mustdo add "Call mom" 14:30
  mustdo add "Buy milk"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}

		clock := ""
		if len(args) == 2 {
			clock = args[1]
		}

		task, err := Engine.CreateTask(args[0], clock)
		if task == nil {
			return err
		}

		position := len(Engine.Snapshot())
		fmt.Printf("Added task %d: %s\n", position, task.Description)
		if task.Deadline != nil {
			fmt.Printf("  Due: %s\n", describeDeadline(*task.Deadline, Engine.Now()))
		}
		if err != nil {
			// The task exists in memory but could not be saved.
			return err
		}
		return nil
	},
}

var (
	listOutput string
	listStatus string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks in display order",
	Long: `List all tasks with their 1-based positions, which "done" and "delete"
accept.

Use --status to show only pending, overdue or completed tasks, and
--output to choose table, json or yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}

		switch models.TaskStatus(listStatus) {
		case "", models.StatusPending, models.StatusOverdue, models.StatusCompleted:
		default:
			return fmt.Errorf("invalid --status %q: must be one of pending, overdue, completed", listStatus)
		}

		entries := listEntries(Engine.Snapshot(), Engine.Now(), models.TaskStatus(listStatus))

		switch listOutput {
		case "", "table":
			printTaskTable(entries)
			return nil
		case "json":
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting tasks as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		case "yaml":
			data, err := yaml.Marshal(entries)
			if err != nil {
				return fmt.Errorf("formatting tasks as YAML: %w", err)
			}
			fmt.Print(string(data))
			return nil
		default:
			return fmt.Errorf("unsupported --output %q (use table, json or yaml)", listOutput)
		}
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <position>",
	Short: "Mark a task as completed",
	Long: `Mark the task at the given position as completed. Completing a task that
is already completed changes nothing.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePositions,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		position, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		task, err := Engine.CompleteAt(position)
		if err != nil {
			return err
		}
		fmt.Printf("Completed task %d: %s\n", position, task.Description)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:               "delete <position>",
	Aliases:           []string{"rm"},
	Short:             "Delete a task",
	Long:              `Remove the task at the given position. Later tasks move up one position.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePositions,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		position, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		task, err := Engine.DeleteAt(position)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted task %d: %s\n", position, task.Description)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the alarm and acknowledge every overdue task",
	Long: `Stop the alarm. Every task whose deadline has passed is marked as
notified, so it will not ring again.

A running "watch" or "dashboard" in another terminal picks up the
acknowledgement on its next scan and falls silent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		acked, err := Engine.StopAlarm()
		if err != nil {
			return err
		}
		if len(acked) == 0 {
			fmt.Println("Alarm stopped. No overdue tasks to acknowledge.")
			return nil
		}
		fmt.Printf("Alarm stopped. Acknowledged %d overdue task(s):\n", len(acked))
		for _, t := range acked {
			fmt.Printf("  - %s (due %s)\n", t.Description, t.DueLabel())
		}
		return nil
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one deadline scan",
	Long: `Run the deadline scanner once. Tasks that became overdue since the last
scan are marked as notified and reported.

This is meant for cron or other schedulers. When notifications are enabled,
a webhook message is sent for the newly overdue tasks. Messages that could
not be delivered are queued and retried on later runs. Use "watch" for an
audible alarm.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}

		res, err := Engine.Tick()
		if len(res.Triggered) == 0 {
			fmt.Println("No newly overdue tasks.")
			flushOutbox()
		} else {
			fmt.Printf("%d task(s) now overdue:\n", len(res.Triggered))
			for _, t := range res.Triggered {
				fmt.Printf("  - %s (due %s)\n", t.Description, t.DueLabel())
			}
			notifyOverdue()
		}
		return err
	},
}

// listEntry is the rendering of one task in list output.
type listEntry struct {
	Position    int    `json:"position" yaml:"position"`
	Description string `json:"description" yaml:"description"`
	Deadline    string `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Due         string `json:"due,omitempty" yaml:"due,omitempty"`
	Status      string `json:"status" yaml:"status"`
	Notified    bool   `json:"notified" yaml:"notified"`
}

func listEntries(tasks []models.Task, now time.Time, status models.TaskStatus) []listEntry {
	entries := make([]listEntry, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		st := t.Status(now)
		if status != "" && st != status {
			continue
		}
		e := listEntry{
			Position:    i + 1,
			Description: t.Description,
			Due:         t.DueLabel(),
			Status:      string(st),
			Notified:    t.Notified,
		}
		if t.Deadline != nil {
			e.Deadline = t.Deadline.Format(time.RFC3339)
		}
		entries = append(entries, e)
	}
	return entries
}

func printTaskTable(entries []listEntry) {
	if len(entries) == 0 {
		fmt.Println("No tasks found.")
		return
	}
	fmt.Printf("  %-4s %-10s %-6s %s\n", "#", "STATUS", "DUE", "DESCRIPTION")
	fmt.Printf("  %-4s %-10s %-6s %s\n", "-", "------", "---", "-----------")
	for _, e := range entries {
		due := e.Due
		if due == "" {
			due = "-"
		}
		fmt.Printf("  %-4d %-10s %-6s %s\n", e.Position, e.Status, due, e.Description)
	}
}

// describeDeadline renders a deadline as "HH:MM today" or "HH:MM tomorrow".
func describeDeadline(deadline, now time.Time) string {
	y, m, d := deadline.Date()
	ny, nm, nd := now.Date()
	if y == ny && m == nm && d == nd {
		return deadline.Format("15:04") + " today"
	}
	return deadline.Format("15:04") + " tomorrow"
}

func parsePosition(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q: use the number shown by \"mustdo list\"", arg)
	}
	return n, nil
}

// sendOverdueAlerts sends the current overdue alerts through the
// configured notifier. It does nothing when notifications are not set up or
// nothing is overdue.
func sendOverdueAlerts() error {
	if Notifier == nil || AlertEngine == nil || Engine == nil {
		return nil
	}
	var overdue []observability.Alert
	for _, a := range AlertEngine.Evaluate(Engine.Snapshot(), Engine.Now()) {
		if a.Condition == observability.ConditionOverdue {
			overdue = append(overdue, a)
		}
	}
	if len(overdue) == 0 {
		return nil
	}
	if err := Notifier.Notify(overdue); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}

// notifyOverdue is sendOverdueAlerts with failures reported on stderr.
func notifyOverdue() {
	if err := sendOverdueAlerts(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// flushOutbox retries notifications that earlier deliveries failed to send.
func flushOutbox() {
	f, ok := Notifier.(observability.Flusher)
	if !ok {
		return
	}
	res, err := f.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return
	}
	if res.Sent > 0 {
		fmt.Printf("Delivered %d queued notification(s).\n", res.Sent)
	}
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format: table, json or yaml")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only show tasks with this status (pending, overdue, completed)")
	_ = listCmd.RegisterFlagCompletionFunc("status", completeStatuses)
	_ = listCmd.RegisterFlagCompletionFunc("output", completeOutputFormats)

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(tickCmd)
}
