package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mustdo/internal/core"
	"github.com/valter-silva-au/mustdo/internal/observability"
	"github.com/valter-silva-au/mustdo/pkg/models"
)

type dashboardMode int

const (
	modeList dashboardMode = iota
	modeAdd
)

// Add form fields.
const (
	fieldDescription = iota
	fieldTime
	fieldCount
)

type dashboardModel struct {
	engine      *core.Engine
	alertEngine observability.AlertEngine
	interval    time.Duration

	width  int
	height int

	// Data.
	tasks  []models.Task
	alarm  models.AlarmState
	now    time.Time
	alerts []alertSnapshot

	// State.
	cursor int
	mode   dashboardMode
	field  int
	desc   string
	clock  string
	status string
	err    error
}

type alertSnapshot struct {
	severity string
	message  string
}

// scanTickMsg fires when the next scheduled scan is due.
type scanTickMsg time.Time

// scanDoneMsg carries the result of a scan back to the model.
type scanDoneMsg struct {
	res core.TickResult
	err error
}

// signalMsg forwards an engine signal into the program.
type signalMsg core.Signal

type notifyDoneMsg struct {
	err error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	alarmStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("196")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	rowPending   = lipgloss.NewStyle()
	rowOverdue   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	rowCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel(engine *core.Engine, alertEngine observability.AlertEngine, interval time.Duration) dashboardModel {
	m := dashboardModel{
		engine:      engine,
		alertEngine: alertEngine,
		interval:    interval,
	}
	m.refresh()
	return m
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.scan(), m.scheduleScan())
}

// scan runs one deadline scan off the update loop.
func (m dashboardModel) scan() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		res, err := engine.Tick()
		return scanDoneMsg{res: res, err: err}
	}
}

func (m dashboardModel) scheduleScan() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return scanTickMsg(t)
	})
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeAdd {
			return m.updateAdd(msg)
		}
		return m.updateList(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case scanTickMsg:
		return m, tea.Batch(m.scan(), m.scheduleScan())

	case scanDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.err = msg.err
		}
		if n := len(msg.res.Triggered); n > 0 {
			m.status = fmt.Sprintf("%d task(s) now overdue", n)
			return m, notifyCmd
		}
		return m, nil

	case signalMsg:
		m.refresh()
		return m, nil

	case notifyDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case "enter", " ", "space":
		if len(m.tasks) == 0 {
			return m, nil
		}
		task, err := m.engine.CompleteAt(m.cursor + 1)
		m.setResult(err, "completed %q", task)
	case "x", "delete":
		if len(m.tasks) == 0 {
			return m, nil
		}
		task, err := m.engine.DeleteAt(m.cursor + 1)
		m.setResult(err, "deleted %q", task)
	case "s":
		acked, err := m.engine.StopAlarm()
		m.err = err
		if err == nil {
			m.status = fmt.Sprintf("alarm stopped, %d overdue task(s) acknowledged", len(acked))
		}
	case "a":
		m.mode = modeAdd
		m.field = fieldDescription
		m.desc, m.clock = "", ""
		m.err = nil
		m.status = ""
		return m, nil
	case "r":
		return m, m.scan()
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m dashboardModel) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.mode = modeList
		m.err = nil
		return m, nil
	case "tab", "shift+tab":
		m.field = (m.field + 1) % fieldCount
		return m, nil
	case "backspace":
		if m.field == fieldDescription {
			m.desc = dropLastRune(m.desc)
		} else {
			m.clock = dropLastRune(m.clock)
		}
		return m, nil
	case "enter":
		task, err := m.engine.CreateTask(m.desc, m.clock)
		if task == nil {
			// Validation failed; keep the form open for correction.
			m.err = err
			return m, nil
		}
		m.mode = modeList
		m.refresh()
		m.cursor = len(m.tasks) - 1
		m.setResult(err, "added %q", task)
		return m, nil
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		if m.field == fieldDescription {
			m.desc += text
		} else {
			m.clock += text
		}
	}
	return m, nil
}

func (m *dashboardModel) setResult(err error, format string, task *models.Task) {
	m.err = err
	if err == nil && task != nil {
		m.status = fmt.Sprintf(format, task.Description)
	} else {
		m.status = ""
	}
}

// refresh re-reads the display projection from the engine.
func (m *dashboardModel) refresh() {
	m.tasks = m.engine.Snapshot()
	m.alarm = m.engine.AlarmState()
	m.now = m.engine.Now()

	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	m.alerts = nil
	if m.alertEngine == nil {
		return
	}
	alerts := m.alertEngine.Evaluate(m.tasks, m.now)
	// Sort alerts by severity: high first, then medium, then low.
	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
	})
	for _, a := range alerts {
		m.alerts = append(m.alerts, alertSnapshot{severity: string(a.Severity), message: a.Message})
	}
}

func (m dashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" mustdo "))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render(m.now.Format("Mon 15:04")))
	b.WriteString("\n\n")

	if m.alarm == models.AlarmSounding {
		b.WriteString(alarmStyle.Render(" ALARM  press s to stop "))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderTasks())

	if len(m.alerts) > 0 {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.renderAlerts()))
		b.WriteString("\n")
	}

	if m.mode == modeAdd {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.renderForm()))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString("\n  ")
		b.WriteString(m.status)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m dashboardModel) renderTasks() string {
	if len(m.tasks) == 0 {
		return "  No tasks. Press a to add one.\n"
	}

	var b strings.Builder
	for i := range m.tasks {
		t := &m.tasks[i]
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}
		line := fmt.Sprintf("%2d. %s %s", i+1, check, t.Description)
		if due := t.DueLabel(); due != "" {
			line += "  due " + due
		}

		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		b.WriteString(prefix)
		b.WriteString(styleForTask(t, m.now).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m dashboardModel) renderAlerts() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("\n%s %s", sev, a.message))
	}
	return b.String()
}

func (m dashboardModel) renderForm() string {
	cursor := func(field int) string {
		if m.field == field {
			return cursorStyle.Render("_")
		}
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("New task"))
	b.WriteString(fmt.Sprintf("\nDescription: %s%s", m.desc, cursor(fieldDescription)))
	b.WriteString(fmt.Sprintf("\nTime (HH:MM, optional): %s%s", m.clock, cursor(fieldTime)))
	return b.String()
}

func (m dashboardModel) helpLine() string {
	if m.mode == modeAdd {
		return "tab: switch field | enter: save | esc: cancel"
	}
	help := "j/k: move | enter: done | x: delete | a: add | r: scan now | q: quit"
	if m.alarm == models.AlarmSounding {
		help = "s: stop alarm | " + help
	}
	return help
}

// styleForTask picks the row style from the task's display status.
func styleForTask(t *models.Task, now time.Time) lipgloss.Style {
	switch t.Status(now) {
	case models.StatusCompleted:
		return rowCompleted
	case models.StatusOverdue:
		return rowOverdue
	default:
		return rowPending
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

func notifyCmd() tea.Msg {
	return notifyDoneMsg{err: sendOverdueAlerts()}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive task list with a live alarm",
	Long: `Launch an interactive terminal view of the task list. Deadlines are
scanned every scan.interval while the dashboard is open, and the alarm sounds
when a task becomes overdue.

Keys: j/k move, enter completes, x deletes, a adds a task, s stops the
alarm, r scans now, q quits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		if ScanInterval <= 0 {
			return fmt.Errorf("scan interval must be positive, got %s", ScanInterval)
		}

		p := tea.NewProgram(newDashboardModel(Engine, AlertEngine, ScanInterval), tea.WithAltScreen())
		Engine.Subscribe(func(s core.Signal) {
			// Signals may be delivered from inside Update; Send must not block it.
			go p.Send(signalMsg(s))
		})
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
