package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"benchq/internal/storage"
	"benchq/internal/tui/styles"
)

type Model struct {
	Items []storage.HistoryItem
	Table table.Model

	Width  int
	Height int
}

func NewModel(items []storage.HistoryItem) Model {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Run", Width: 10},
		{Title: "SUT", Width: 20},
		{Title: "Scenario", Width: 13},
		{Title: "Queries/s", Width: 10},
		{Title: "P99", Width: 12},
		{Title: "Result", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	t.SetRows(Rows(items))

	return Model{
		Items: items,
		Table: t,
	}
}

// Rows renders one table row per item.
func Rows(items []storage.HistoryItem) []table.Row {
	rows := make([]table.Row, len(items))
	for i, item := range items {
		verdict := "VALID"
		if !item.Summary.Valid {
			verdict = "INVALID"
		}
		id := item.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows[i] = table.Row{
			item.Timestamp.Format(time.RFC822),
			id,
			item.SUT,
			string(item.Settings.Scenario),
			fmt.Sprintf("%.1f", item.Summary.QPS),
			item.Summary.P99Latency.String(),
			verdict,
		}
	}
	return rows
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

// Selected is the highlighted run, if any.
func (m Model) Selected() (storage.HistoryItem, bool) {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.Items) {
		return storage.HistoryItem{}, false
	}
	return m.Items[i], true
}

func (m Model) View() string {
	return styles.Box.Render(m.Table.View())
}
