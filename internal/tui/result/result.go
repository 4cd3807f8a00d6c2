package result

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"benchq/internal/runner"
	"benchq/internal/stats"
	"benchq/internal/tui/styles"
)

type Model struct {
	Result *runner.Result

	Width  int
	Height int
}

func NewModel(res *runner.Result) Model {
	return Model{Result: res}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
	}
	return m, nil
}

func (m Model) View() string {
	res := m.Result
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("Test Complete"))
	s.WriteString("\n\n")

	s.WriteString(styles.Active.Render("Verdict"))
	s.WriteString("\n")
	verdict := styles.Verdict(res.Valid)
	for _, r := range res.Reasons {
		verdict += "\n" + styles.Error.Render("- "+r)
	}
	s.WriteString(styles.Box.Render(verdict))
	s.WriteString("\n\n")

	s.WriteString(styles.Active.Render("Overview"))
	s.WriteString("\n")
	overview := fmt.Sprintf(
		"Scenario:  %s\nDuration:  %s\nQueries:   %d\nSamples:   %d/%d\nQueries/s: %.2f",
		res.Settings.Scenario, res.Duration, res.QueryCount,
		res.CompletedSamples, res.SampleCount, res.QPS,
	)
	if got, target, ok := res.TargetLatency(); ok {
		overview += fmt.Sprintf("\nTarget:    p%g %s (got %s)", res.Settings.TargetLatencyPercentile*100, target, got)
	}
	s.WriteString(styles.Box.Render(overview))
	s.WriteString("\n\n")

	s.WriteString(styles.Active.Render("Latency"))
	s.WriteString("\n")
	s.WriteString(styles.Box.Render(latency(res.Latency)))

	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "quit"))

	return s.String()
}

func latency(sum *stats.Summary) string {
	if sum == nil {
		return styles.Subtle.Render("no completions")
	}
	lines := []string{fmt.Sprintf("Mean: %s", sum.Mean)}
	for _, p := range sum.Percentiles {
		lines = append(lines, fmt.Sprintf("P%g: %s", p.Quantile*100, p.Latency))
	}
	lines = append(lines, fmt.Sprintf("Max: %s", sum.Max))
	return strings.Join(lines, "\n")
}
