package tui_test

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
	"github.com/jonathan/devsecops-visualizer/internal/tui"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

var testStages = []types.Stage{
	{ID: "code-commit", Name: "Code Commit", Category: "Pre-CI", ToolsUsed: []string{"Git"}},
	{ID: "build", Name: "Build", Category: "CI", ToolsUsed: []string{"Maven"}, Description: "Compile the code."},
	{ID: "unit-test", Name: "Unit Test", Category: "CI", ToolsUsed: []string{"JUnit"}},
}

func update(t *testing.T, m tui.RunModel, msg tea.Msg) tui.RunModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(tui.RunModel)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRunModel_RendersStagesGroupedByCategory(t *testing.T) {
	view := tui.NewRunModel(testStages, nil).View()

	assert.Contains(t, view, "Pre-CI")
	assert.Contains(t, view, "CI")
	assert.Contains(t, view, "Code Commit")
	assert.Contains(t, view, "○")
}

func TestRunModel_AppliesSnapshots(t *testing.T) {
	m := tui.NewRunModel(testStages, nil)

	m = update(t, m, tui.EventMsg{Event: pipeline.Event{
		Kind:     pipeline.EventSnapshot,
		Seq:      0,
		Running:  true,
		Statuses: pipeline.Snapshot{"code-commit": pipeline.StatusPending, "build": pipeline.StatusPending, "unit-test": pipeline.StatusPending},
	}})
	assert.True(t, m.Running())
	assert.Contains(t, m.View(), "running")

	m = update(t, m, tui.EventMsg{Event: pipeline.Event{
		Kind:     pipeline.EventSnapshot,
		Seq:      1,
		Running:  true,
		StageID:  "code-commit",
		Statuses: pipeline.Snapshot{"code-commit": pipeline.StatusSuccess, "build": pipeline.StatusPending, "unit-test": pipeline.StatusPending},
	}})
	assert.Equal(t, pipeline.StatusSuccess, m.Statuses()["code-commit"])
	assert.Contains(t, m.View(), "✓")
}

func TestRunModel_FinishedShowsOutcome(t *testing.T) {
	m := tui.NewRunModel(testStages, nil)
	result := &pipeline.Result{
		Outcome:     pipeline.OutcomeFailed,
		FailedStage: "build",
		Statuses:    pipeline.Snapshot{"code-commit": pipeline.StatusSuccess, "build": pipeline.StatusFailed, "unit-test": pipeline.StatusPending},
	}

	m = update(t, m, tui.EventMsg{Event: pipeline.Event{
		Kind:     pipeline.EventFinished,
		Running:  false,
		Statuses: result.Statuses,
		Result:   result,
	}})

	assert.False(t, m.Running())
	require.NotNil(t, m.Result())
	view := m.View()
	assert.Contains(t, view, "failed at build")
	assert.Contains(t, view, "✗")
}

func TestRunModel_NewRunClearsResult(t *testing.T) {
	m := tui.NewRunModel(testStages, nil)
	m = update(t, m, tui.EventMsg{Event: pipeline.Event{Kind: pipeline.EventFinished, Result: &pipeline.Result{Outcome: pipeline.OutcomeSucceeded}}})
	require.NotNil(t, m.Result())

	m = update(t, m, tui.EventMsg{Event: pipeline.Event{Kind: pipeline.EventSnapshot, Seq: 0, Running: true, Statuses: pipeline.Snapshot{}}})
	assert.Nil(t, m.Result())
}

func TestRunModel_CursorMovement(t *testing.T) {
	m := tui.NewRunModel(testStages, nil)

	m = update(t, m, key("k"))
	assert.Equal(t, 0, m.Cursor())

	m = update(t, m, key("j"))
	assert.Equal(t, 1, m.Cursor())
	assert.Contains(t, m.View(), "Tools: Maven")

	m = update(t, m, key("j"))
	m = update(t, m, key("j"))
	assert.Equal(t, 2, m.Cursor())
}

func TestRunModel_RerunKeyStartsRun(t *testing.T) {
	calls := 0
	m := tui.NewRunModel(testStages, func() error { calls++; return nil })

	next, cmd := m.Update(key("r"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, calls)
	assert.True(t, next.(tui.RunModel).Running())

	// ignored while running
	_, cmd = next.Update(key("r"))
	assert.Nil(t, cmd)
}

func TestRunModel_StartError(t *testing.T) {
	m := tui.NewRunModel(testStages, nil)
	m = update(t, m, tui.StartErrMsg{Err: errors.New("pipeline run already in progress")})

	assert.Contains(t, m.View(), "Error: pipeline run already in progress")
}

func TestRunModel_FailedStartAllowsRetry(t *testing.T) {
	calls := 0
	m := tui.NewRunModel(testStages, func() error {
		calls++
		if calls == 1 {
			return pipeline.ErrRunInProgress
		}
		return nil
	})

	next, cmd := m.Update(key("r"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, tui.StartErrMsg{}, msg)

	m = update(t, next.(tui.RunModel), msg)
	assert.False(t, m.Running())
	assert.Contains(t, m.View(), "Error: pipeline run already in progress")

	_, cmd = m.Update(key("r"))
	require.NotNil(t, cmd, "r starts again after a failed start")
	assert.Nil(t, cmd())
	assert.Equal(t, 2, calls)
}

func TestRunModel_QuitKey(t *testing.T) {
	_, cmd := tui.NewRunModel(testStages, nil).Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRunModel_EmptyStages(t *testing.T) {
	view := tui.NewRunModel(nil, nil).View()
	assert.True(t, strings.Contains(view, "DevSecOps pipeline"))
}
