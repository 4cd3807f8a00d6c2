package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/runner"
	"benchq/internal/settings"
	"benchq/internal/stats"
	"benchq/internal/tui/live"
)

func newTestModel(run RunFunc) Model {
	return NewModel("benchq test", live.Goal{Queries: 10}, make(runner.StatsUpdateChan, 1), run)
}

func TestModel_SnapshotThenResult(t *testing.T) {
	m := newTestModel(func(context.Context) (*runner.Result, error) { return nil, nil })

	next, _ := m.Update(stats.Snapshot{Elapsed: time.Second, Queries: 5, Completed: 5})
	m = next.(Model)
	assert.Contains(t, m.View(), "QUERIES: 5")

	res := &runner.Result{Settings: settings.DefaultTestSettings(), Valid: true}
	next, _ = m.Update(doneMsg{res: res})
	m = next.(Model)
	assert.True(t, m.finished)
	assert.Contains(t, m.View(), "Test Complete")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_QuitWhileRunningCancels(t *testing.T) {
	m := newTestModel(func(context.Context) (*runner.Result, error) { return nil, nil })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.True(t, m.stopping)
	assert.Error(t, m.ctx.Err())
	assert.Contains(t, m.View(), "Stopping")
}
