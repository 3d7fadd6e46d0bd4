// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the mustdo task engine as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/mustdo/internal/core"
	"github.com/valter-silva-au/mustdo/internal/observability"
	"github.com/valter-silva-au/mustdo/pkg/models"
)

// TaskEngine is the part of core.Engine the server drives.
type TaskEngine interface {
	Snapshot() []models.Task
	CreateTask(description, clock string) (*models.Task, error)
	CompleteAt(position int) (*models.Task, error)
	DeleteAt(position int) (*models.Task, error)
	StopAlarm() ([]*models.Task, error)
	Tick() (core.TickResult, error)
	AlarmState() models.AlarmState
	Now() time.Time
}

// Server wraps the task engine and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	engine      TaskEngine
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server over engine.
// metricsCalc and alertEngine may be nil if observability is disabled.
func NewServer(engine TaskEngine, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		engine:      engine,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "mustdo", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves over stdio, blocking until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskOutput struct {
	Position    int    `json:"position"`
	Description string `json:"description"`
	Deadline    string `json:"deadline,omitempty"`
	Due         string `json:"due,omitempty"`
	Status      string `json:"status"`
	Completed   bool   `json:"completed"`
	Notified    bool   `json:"notified"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter by display status: pending, overdue or completed"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
	Alarm string       `json:"alarm"`
}

type createTaskInput struct {
	Description string `json:"description" jsonschema:"what to be reminded of"`
	Time        string `json:"time,omitempty" jsonschema:"deadline as 24-hour HH:MM; today, or tomorrow if already past. Omit for no deadline."`
}

type positionInput struct {
	Position int `json:"position" jsonschema:"1-based position of the task as shown by list_tasks"`
}

type taskResultOutput struct {
	Message string     `json:"message"`
	Task    taskOutput `json:"task"`
}

type emptyInput struct{}

type stopAlarmOutput struct {
	Message      string `json:"message"`
	Acknowledged int    `json:"acknowledged"`
	Alarm        string `json:"alarm"`
}

type runScanOutput struct {
	ScanID    string   `json:"scan_id"`
	Verdict   string   `json:"verdict"`
	Triggered []string `json:"triggered"`
	Alarm     string   `json:"alarm"`
	Warning   string   `json:"warning,omitempty"`
}

type alarmStateOutput struct {
	State string `json:"state"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	TasksCreated      int            `json:"tasks_created"`
	TasksCompleted    int            `json:"tasks_completed"`
	TasksDeleted      int            `json:"tasks_deleted"`
	TasksNotified     int            `json:"tasks_notified"`
	TasksAcknowledged int            `json:"tasks_acknowledged"`
	AlarmsStarted     int            `json:"alarms_started"`
	AlarmsStopped     int            `json:"alarms_stopped"`
	AlarmsSilenced    int            `json:"alarms_silenced"`
	Scans             int            `json:"scans"`
	Failures          map[string]int `json:"failures"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List reminders in display order with an optional status filter. Positions are used by complete_task and delete_task.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a reminder with an optional HH:MM deadline.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark the reminder at a position as completed.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_task",
		Description: "Delete the reminder at a position.",
	}, s.handleDeleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "stop_alarm",
		Description: "Stop the alarm and acknowledge every reminder whose deadline has passed.",
	}, s.handleStopAlarm)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "run_scan",
		Description: "Run one deadline scan now. Newly overdue reminders are marked notified and may start the alarm.",
	}, s.handleRunScan)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alarm_state",
		Description: "Report whether the alarm is idle or sounding.",
	}, s.handleGetAlarmState)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get counts aggregated from the event log: tasks created, completed, notified, alarms started and stopped.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (overdue reminders, reminders due soon, too many open reminders).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	switch models.TaskStatus(input.Status) {
	case "", models.StatusPending, models.StatusOverdue, models.StatusCompleted:
	default:
		return errorResult(fmt.Sprintf("invalid status %q: must be one of pending, overdue, completed", input.Status)), listTasksOutput{Tasks: []taskOutput{}}, nil
	}

	now := s.engine.Now()
	out := listTasksOutput{
		Tasks: []taskOutput{},
		Alarm: string(s.engine.AlarmState()),
	}
	for i, t := range s.engine.Snapshot() {
		if input.Status != "" && t.Status(now) != models.TaskStatus(input.Status) {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(i+1, &t, now))
	}
	out.Count = len(out.Tasks)

	return nil, out, nil
}

func (s *Server) handleCreateTask(_ context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, taskResultOutput, error) {
	task, err := s.engine.CreateTask(input.Description, input.Time)
	if err != nil {
		return errorResult(err.Error()), taskResultOutput{}, nil
	}

	position := len(s.engine.Snapshot())
	out := taskResultOutput{
		Message: fmt.Sprintf("created task %d: %s", position, task.Description),
		Task:    taskToOutput(position, task, s.engine.Now()),
	}
	return nil, out, nil
}

func (s *Server) handleCompleteTask(_ context.Context, _ *gomcp.CallToolRequest, input positionInput) (*gomcp.CallToolResult, taskResultOutput, error) {
	task, err := s.engine.CompleteAt(input.Position)
	if err != nil {
		return errorResult(err.Error()), taskResultOutput{}, nil
	}
	out := taskResultOutput{
		Message: fmt.Sprintf("completed task %d: %s", input.Position, task.Description),
		Task:    taskToOutput(input.Position, task, s.engine.Now()),
	}
	return nil, out, nil
}

func (s *Server) handleDeleteTask(_ context.Context, _ *gomcp.CallToolRequest, input positionInput) (*gomcp.CallToolResult, taskResultOutput, error) {
	task, err := s.engine.DeleteAt(input.Position)
	if err != nil {
		return errorResult(err.Error()), taskResultOutput{}, nil
	}
	out := taskResultOutput{
		Message: fmt.Sprintf("deleted task %d: %s", input.Position, task.Description),
		Task:    taskToOutput(input.Position, task, s.engine.Now()),
	}
	return nil, out, nil
}

func (s *Server) handleStopAlarm(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, stopAlarmOutput, error) {
	acked, err := s.engine.StopAlarm()
	if err != nil {
		return errorResult(err.Error()), stopAlarmOutput{}, nil
	}
	out := stopAlarmOutput{
		Message:      fmt.Sprintf("alarm stopped; %d overdue task(s) acknowledged", len(acked)),
		Acknowledged: len(acked),
		Alarm:        string(s.engine.AlarmState()),
	}
	return nil, out, nil
}

func (s *Server) handleRunScan(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, runScanOutput, error) {
	res, err := s.engine.Tick()
	out := runScanOutput{
		ScanID:    res.ScanID,
		Verdict:   string(res.Verdict),
		Triggered: make([]string, len(res.Triggered)),
		Alarm:     string(res.Alarm),
	}
	for i, t := range res.Triggered {
		out.Triggered[i] = t.Description
	}
	if err != nil {
		// The scan itself ran; only persisting its result failed.
		out.Warning = err.Error()
	}
	return nil, out, nil
}

func (s *Server) handleGetAlarmState(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, alarmStateOutput, error) {
	return nil, alarmStateOutput{State: string(s.engine.AlarmState())}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := ParseSince(sinceStr, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		TasksCreated:      metrics.TasksCreated,
		TasksCompleted:    metrics.TasksCompleted,
		TasksDeleted:      metrics.TasksDeleted,
		TasksNotified:     metrics.TasksNotified,
		TasksAcknowledged: metrics.TasksAcknowledged,
		AlarmsStarted:     metrics.AlarmsStarted,
		AlarmsStopped:     metrics.AlarmsStopped,
		AlarmsSilenced:    metrics.AlarmsSilenced,
		Scans:             metrics.Scans,
		Failures:          metrics.Failures,
		EventCount:        metrics.EventCount,
	}
	if out.Failures == nil {
		out.Failures = make(map[string]int)
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	alerts := s.alertEngine.Evaluate(s.engine.Snapshot(), s.engine.Now())

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(position int, t *models.Task, now time.Time) taskOutput {
	out := taskOutput{
		Position:    position,
		Description: t.Description,
		Due:         t.DueLabel(),
		Status:      string(t.Status(now)),
		Completed:   t.Completed,
		Notified:    t.Notified,
	}
	if t.Deadline != nil {
		out.Deadline = t.Deadline.Format(time.RFC3339)
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{Failures: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ParseSince parses a human-friendly duration string like "7d", "30d", or
// "24h" into the corresponding time before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
