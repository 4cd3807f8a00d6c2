// Package tui is the interactive dashboard: a live view while a run is in
// progress, the verdict once it finishes, and a browser for run history.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"benchq/internal/runner"
	"benchq/internal/stats"
	"benchq/internal/tui/live"
	"benchq/internal/tui/result"
	"benchq/internal/tui/styles"
)

type doneMsg struct {
	res *runner.Result
	err error
}

// RunFunc executes the run; it is called once from a tea command.
type RunFunc func(ctx context.Context) (*runner.Result, error)

type Model struct {
	Title string

	updates runner.StatsUpdateChan
	run     RunFunc
	ctx     context.Context
	cancel  context.CancelFunc

	Live   live.Model
	Result result.Model

	finished bool
	stopping bool
	res      *runner.Result
	err      error

	Width  int
	Height int
}

func NewModel(title string, goal live.Goal, updates runner.StatsUpdateChan, run RunFunc) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		Title:   title,
		updates: updates,
		run:     run,
		ctx:     ctx,
		cancel:  cancel,
		Live:    live.NewModel(goal),
	}
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func startRun(ctx context.Context, run RunFunc) tea.Cmd {
	return func() tea.Msg {
		res, err := run(ctx)
		return doneMsg{res: res, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), startRun(m.ctx, m.run))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if m.finished {
				return m, tea.Quit
			}
			// Interrupting ends the run as invalid; wait for its result.
			m.stopping = true
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Result, _ = m.Result.Update(msg)
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, cmd

	case stats.Snapshot:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		if m.finished {
			return m, cmd
		}
		return m, tea.Batch(cmd, waitForUpdate(m.updates))

	case doneMsg:
		m.finished = true
		m.res = msg.res
		m.err = msg.err
		m.cancel()
		if m.err != nil {
			return m, tea.Quit
		}
		m.Result = result.NewModel(m.res)
		m.Result.Width, m.Result.Height = m.Width, m.Height
		return m, nil

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render(m.Title))
	s.WriteString("\n\n")

	switch {
	case m.err != nil:
		s.WriteString(styles.Error.Render(m.err.Error()))
		s.WriteString("\n")
	case m.finished:
		s.WriteString(m.Result.View())
	default:
		s.WriteString(m.Live.View())
		s.WriteString("\n")
		if m.stopping {
			s.WriteString(styles.Warn.Render(fmt.Sprintf("Stopping, %d samples outstanding...", m.Live.Stats.Outstanding)))
		} else {
			s.WriteString(styles.RenderKey("q", "stop run"))
		}
	}
	return s.String()
}

// Run shows the dashboard until the user quits after the run finished and
// returns the run's outcome.
func Run(m Model) (*runner.Result, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, errors.Wrap(err, "running dashboard")
	}
	fm := final.(Model)
	return fm.res, fm.err
}
