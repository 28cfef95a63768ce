// Package tui renders a live pipeline run in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

// EventMsg carries a runner event into the model.
// It is exported so that tests can inject it directly into RunModel.Update.
type EventMsg struct {
	Event pipeline.Event
}

// StartErrMsg reports that a run could not be started.
type StartErrMsg struct {
	Err error
}

type tickMsg struct{}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// RunModel is the Bubbletea model for one or more consecutive runs.
type RunModel struct {
	stages   []types.Stage
	start    func() error
	statuses pipeline.Snapshot
	running  bool
	result   *pipeline.Result
	cursor   int
	frame    int
	err      error
}

// NewRunModel creates the model. start launches a run in the background; its
// events are expected to arrive as EventMsg.
func NewRunModel(stages []types.Stage, start func() error) RunModel {
	return RunModel{
		stages:   stages,
		start:    start,
		statuses: pipeline.Snapshot{},
	}
}

// Init starts the first run.
func (m RunModel) Init() tea.Cmd {
	return tea.Batch(m.startRun(), tick())
}

func (m RunModel) startRun() tea.Cmd {
	start := m.start
	return func() tea.Msg {
		if start == nil {
			return nil
		}
		if err := start(); err != nil {
			return StartErrMsg{Err: err}
		}
		return nil
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// Result returns the outcome of the latest finished run, or nil.
func (m RunModel) Result() *pipeline.Result {
	return m.result
}

// Statuses returns the last received status mapping.
func (m RunModel) Statuses() pipeline.Snapshot {
	return m.statuses
}

// Running reports whether a run is in progress.
func (m RunModel) Running() bool {
	return m.running
}

// Cursor returns the selected stage index.
func (m RunModel) Cursor() int {
	return m.cursor
}

// Update handles runner events and key presses.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		ev := msg.Event
		m.statuses = ev.Statuses
		m.running = ev.Running
		if ev.Kind == pipeline.EventSnapshot && ev.Seq == 0 {
			m.result = nil
			m.err = nil
		}
		if ev.Kind == pipeline.EventFinished {
			m.result = ev.Result
		}
		return m, nil

	case StartErrMsg:
		m.err = msg.Err
		m.running = false
		return m, nil

	case tickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.stages)-1 {
				m.cursor++
			}
		case "r":
			if !m.running {
				m.running = true
				m.err = nil
				return m, m.startRun()
			}
		}
	}
	return m, nil
}

// View renders the stage list, the selected stage and the run outcome.
func (m RunModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(" DevSecOps pipeline"))
	if m.running {
		sb.WriteString("  " + spinnerFrames[m.frame] + " running")
	}
	sb.WriteString("\n\n")

	category := ""
	for i, stage := range m.stages {
		if stage.Category != category {
			category = stage.Category
			sb.WriteString(categoryStyle.Render(" "+category) + "\n")
		}
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		status := m.statuses[stage.ID]
		label := string(status)
		if label == "" {
			label = "-"
		}
		line := fmt.Sprintf("%s%s %-26s %s", prefix, statusIcon(status), truncate(stage.Name, 26), label)
		sb.WriteString(statusStyles[status].Render(line) + "\n")
	}

	if len(m.stages) > 0 {
		sb.WriteString("\n" + detailStyle.Render(m.stageDetail(m.stages[m.cursor])) + "\n")
	}

	if m.result != nil {
		summary := string(m.result.Outcome)
		if m.result.FailedStage != "" {
			summary += " at " + m.result.FailedStage
		}
		sb.WriteString("\n" + outcomeStyles[m.result.Outcome].Render(summary) + "\n")
	}
	if m.err != nil {
		sb.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	sb.WriteString("\n" + helpStyle.Render(" ↑/↓: select stage   r: run again   q: quit") + "\n")
	return sb.String()
}

func (m RunModel) stageDetail(stage types.Stage) string {
	lines := []string{
		stage.Name + " (" + stage.Category + ")",
		"Tools: " + strings.Join(stage.ToolsUsed, ", "),
	}
	if stage.Description != "" {
		lines = append(lines, truncate(stage.Description, 70))
	}
	return strings.Join(lines, "\n")
}

// Run shows a live run of stages until the user quits and returns the last result.
func Run(ctx context.Context, runner *pipeline.Runner, stages []types.Stage) (*pipeline.Result, error) {
	model := NewRunModel(stages, func() error {
		_, err := runner.Start(ctx, stages)
		return err
	})

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())
	unsubscribe := runner.Subscribe(func(ev pipeline.Event) {
		p.Send(EventMsg{Event: ev})
	})
	defer unsubscribe()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("terminal UI failed: %w", err)
	}
	return final.(RunModel).Result(), nil
}
