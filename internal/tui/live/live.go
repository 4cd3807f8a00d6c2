package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"benchq/internal/stats"
	"benchq/internal/tui/components"
	"benchq/internal/tui/styles"
)

// Goal is what issuance has to reach before the run drains; progress is the
// further of the two.
type Goal struct {
	Duration time.Duration
	Queries  int
}

func (g Goal) Progress(s stats.Snapshot) float64 {
	pct := 0.0
	if g.Duration > 0 {
		pct = float64(s.Elapsed) / float64(g.Duration)
	}
	if g.Queries > 0 {
		if q := float64(s.Queries) / float64(g.Queries); q < pct || g.Duration <= 0 {
			// both floors must be met, so the slower one sets the pace
			pct = q
		}
	}
	if pct > 1 {
		pct = 1
	}
	return pct
}

type Model struct {
	Stats    stats.Snapshot
	Goal     Goal
	Progress progress.Model

	RateLine    components.Sparkline
	LatencyLine components.Sparkline

	last stats.Snapshot

	Width  int
	Height int
}

func NewModel(goal Goal) Model {
	return Model{
		Goal:        goal,
		Progress:    progress.New(progress.WithDefaultGradient()),
		RateLine:    components.NewSparkline(40, "Samples/s", styles.Active),
		LatencyLine: components.NewSparkline(40, "Latency P99 (ms)", styles.Warn),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stats.Snapshot:
		dt := (msg.Elapsed - m.last.Elapsed).Seconds()
		if dt > 0 {
			m.RateLine.Add(float64(msg.Completed-m.last.Completed) / dt)
		}
		m.LatencyLine.Add(float64(msg.P99) / float64(time.Millisecond))

		m.last = msg
		m.Stats = msg
		return m, m.Progress.SetPercent(m.Goal.Progress(msg))

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 4
		if half < 10 {
			half = 10
		}
		m.RateLine.Resize(half)
		m.LatencyLine.Resize(half)
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	st := m.Stats

	overrunStyle := styles.Active
	if st.Overruns > 0 {
		overrunStyle = styles.Warn
	}

	col1 := fmt.Sprintf("QUERIES: %d\nSAMPLES: %d", st.Queries, st.Issued)
	col2 := fmt.Sprintf("DONE: %d\nOUT:  %d", st.Completed, st.Outstanding)
	col3 := fmt.Sprintf("RATE: %.1f/s\nOVERRUNS: %s", st.CompletionRate(), overrunStyle.Render(fmt.Sprintf("%d", st.Overruns)))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(col2),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RateLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	latencies := fmt.Sprintf(
		"P50: %s  |  P90: %s  |  P99: %s  |  Max: %s",
		st.P50, st.P90, st.P99, st.Max,
	)
	box := styles.Box
	if m.Width > 4 {
		box = box.Width(m.Width - 4)
	}
	s.WriteString(box.Render(latencies))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())
	return s.String()
}
