package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"benchq/internal/storage"
	"benchq/internal/tui/history"
	"benchq/internal/tui/styles"
)

type historyModel struct {
	table    history.Model
	selected *storage.HistoryItem
}

func (m historyModel) Init() tea.Cmd {
	return nil
}

func (m historyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "enter":
			if item, ok := m.table.Selected(); ok {
				m.selected = &item
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m historyModel) View() string {
	return styles.Title.Render("Run History") + "\n\n" + m.table.View() + "\n" +
		styles.RenderKey("enter", "show run") + "  " + styles.RenderKey("q", "quit")
}

// BrowseHistory shows the stored runs and returns the one picked with enter,
// or nil when the user quit.
func BrowseHistory(items []storage.HistoryItem) (*storage.HistoryItem, error) {
	final, err := tea.NewProgram(historyModel{table: history.NewModel(items)}).Run()
	if err != nil {
		return nil, errors.Wrap(err, "running history browser")
	}
	return final.(historyModel).selected, nil
}
