package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"benchq/internal/settings"
	"benchq/internal/tui/config"
)

type configureModel struct {
	form      config.Model
	result    settings.TestSettings
	confirmed bool
}

func (m configureModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m configureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && (key.String() == "ctrl+c" || key.String() == "esc") {
		return m, tea.Quit
	}
	if m.form.Submitted(msg) {
		ts, err := m.form.Settings()
		if err != nil {
			m.form.Err = err
			return m, nil
		}
		m.result = ts
		m.confirmed = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m configureModel) View() string {
	return m.form.View()
}

// Configure lets the user adjust ts before the run. ok is false when the
// form was abandoned.
func Configure(ts settings.TestSettings) (out settings.TestSettings, ok bool, err error) {
	final, err := tea.NewProgram(configureModel{form: config.NewModel(ts)}).Run()
	if err != nil {
		return ts, false, errors.Wrap(err, "running settings form")
	}
	fm := final.(configureModel)
	if !fm.confirmed {
		return ts, false, nil
	}
	return fm.result, true, nil
}
