package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mustdo/internal/core"
	"github.com/valter-silva-au/mustdo/pkg/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the deadline scanner and sound the alarm",
	Long: `Keep mustdo running in the foreground. Deadlines are checked every
scan.interval (60s by default). When a task becomes overdue the alarm sounds
until you stop it.

While watching, type a command and press Enter:

  s, stop   stop the alarm and acknowledge every overdue task
  l, list   show the task list
  q, quit   exit

Changes made from other terminals ("mustdo add", "mustdo stop") are picked
up on the next scan.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runWatch(ctx, os.Stdin, os.Stdout, os.Stderr)
	},
}

// watchSession prints engine signals and handles interactive commands.
// Output from the scheduler goroutine and the input loop is serialized.
type watchSession struct {
	engine *core.Engine
	out    io.Writer
	errOut io.Writer
	notify func()

	mu sync.Mutex
}

func (w *watchSession) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	stamp := w.engine.Now().Format("15:04:05")
	_, _ = fmt.Fprintf(w.out, "[%s] "+format+"\n", append([]any{stamp}, args...)...)
}

func (w *watchSession) warnf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.errOut, "Warning: "+format+"\n", args...)
}

func (w *watchSession) onSignal(s core.Signal) {
	switch s.Kind {
	case core.SignalTaskAdded:
		w.printf("added: %s", taskLine(s.Task, w.engine))
	case core.SignalTaskUpdated:
		w.printf("updated: %s", taskLine(s.Task, w.engine))
	case core.SignalTaskRemoved:
		w.printf("removed: %s", s.Task.Description)
	case core.SignalTasksReloaded:
		w.printf("task list reloaded from disk")
	case core.SignalAlarmChanged:
		if s.Alarm == models.AlarmSounding {
			w.printf("ALARM: tasks are overdue. Type s and press Enter to stop.")
			if w.notify != nil {
				w.notify()
			}
			return
		}
		w.printf("alarm stopped")
	}
}

func (w *watchSession) onTick(res core.TickResult, err error) {
	if err != nil {
		w.warnf("scan %s: %v", res.ScanID, err)
	}
	if perr := w.engine.PlaybackError(); perr != nil && res.Alarm == models.AlarmSounding {
		w.warnf("alarm sound failed: %v", perr)
	}
}

// handleLine runs one interactive command and reports whether to quit.
func (w *watchSession) handleLine(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
	case "s", "stop":
		acked, err := w.engine.StopAlarm()
		if err != nil {
			w.warnf("%v", err)
			return false
		}
		w.printf("acknowledged %d overdue task(s)", len(acked))
	case "l", "list":
		now := w.engine.Now()
		tasks := w.engine.Snapshot()
		if len(tasks) == 0 {
			w.printf("no tasks")
			return false
		}
		for i := range tasks {
			w.printf("%d. %s", i+1, taskLineAt(&tasks[i], now))
		}
	case "q", "quit", "exit":
		return true
	default:
		w.printf("unknown command %q (s = stop alarm, l = list, q = quit)", strings.TrimSpace(line))
	}
	return false
}

func taskLine(t *models.Task, e *core.Engine) string {
	if t == nil {
		return ""
	}
	return taskLineAt(t, e.Now())
}

func taskLineAt(t *models.Task, now time.Time) string {
	if due := t.DueLabel(); due != "" {
		return fmt.Sprintf("%s (%s, due %s)", t.Description, t.Status(now), due)
	}
	return fmt.Sprintf("%s (%s)", t.Description, t.Status(now))
}

// runWatch runs the scheduler and the command loop until ctx is done, the
// user quits, or the scheduler fails to start. End of input does not stop
// the watch.
func runWatch(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := &watchSession{engine: Engine, out: out, errOut: errOut, notify: notifyOverdue}
	Engine.Subscribe(sess.onSignal)

	sess.printf("watching %d task(s), scanning every %s (s = stop alarm, l = list, q = quit)",
		len(Engine.Snapshot()), ScanInterval)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- core.NewScheduler(Engine, ScanInterval, sess.onTick).Run(ctx)
	}()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return <-errCh
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if sess.handleLine(line) {
				cancel()
				return <-errCh
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
