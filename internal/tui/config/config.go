// Package config is the pre-run form for the knobs most often tweaked by
// hand. Everything else comes from flags or the config file.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"benchq/internal/settings"
	"benchq/internal/tui/styles"
)

type Field struct {
	Label string
	Input textinput.Model
	apply func(ts *settings.TestSettings, v string) error
}

type Model struct {
	base settings.TestSettings

	Fields []Field
	Focus  int
	Err    error
}

func newInput(value, placeholder string, width int) textinput.Model {
	t := textinput.New()
	t.Placeholder = placeholder
	t.SetValue(value)
	t.Width = width
	return t
}

func parseDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	return d, errors.Wrapf(err, "parsing duration %q", v)
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f, errors.Wrapf(err, "parsing number %q", v)
}

func parseInt(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return n, errors.Wrapf(err, "parsing integer %q", v)
}

// targetField edits the scenario's own target.
func targetField(ts settings.TestSettings) Field {
	switch ts.Scenario {
	case settings.SingleStream:
		return Field{
			Label: "Expected latency",
			Input: newInput(ts.SingleStreamExpectedLatency.String(), "1ms", 12),
			apply: func(ts *settings.TestSettings, v string) (err error) {
				ts.SingleStreamExpectedLatency, err = parseDuration(v)
				return err
			},
		}
	case settings.MultiStream:
		return Field{
			Label: "Samples per query",
			Input: newInput(strconv.Itoa(ts.MultiStreamSamplesPerQuery), "4", 8),
			apply: func(ts *settings.TestSettings, v string) (err error) {
				ts.MultiStreamSamplesPerQuery, err = parseInt(v)
				return err
			},
		}
	case settings.Server:
		return Field{
			Label: "Target QPS",
			Input: newInput(fmt.Sprintf("%g", ts.ServerTargetQPS), "100", 10),
			apply: func(ts *settings.TestSettings, v string) (err error) {
				ts.ServerTargetQPS, err = parseFloat(v)
				return err
			},
		}
	default:
		return Field{
			Label: "Expected QPS",
			Input: newInput(fmt.Sprintf("%g", ts.OfflineExpectedQPS), "1000", 10),
			apply: func(ts *settings.TestSettings, v string) (err error) {
				ts.OfflineExpectedQPS, err = parseFloat(v)
				return err
			},
		}
	}
}

func NewModel(ts settings.TestSettings) Model {
	m := Model{base: ts}
	m.Fields = []Field{
		targetField(ts),
		{
			Label: "Min duration",
			Input: newInput(ts.MinDuration.String(), "60s", 12),
			apply: func(ts *settings.TestSettings, v string) (err error) {
				ts.MinDuration, err = parseDuration(v)
				return err
			},
		},
		{
			Label: "Min query count",
			Input: newInput(strconv.Itoa(ts.MinQueryCount), "1024", 10),
			apply: func(ts *settings.TestSettings, v string) (err error) {
				ts.MinQueryCount, err = parseInt(v)
				return err
			},
		},
		{
			Label: "Drain timeout",
			Input: newInput(ts.DrainTimeout.String(), "30s", 12),
			apply: func(ts *settings.TestSettings, v string) (err error) {
				ts.DrainTimeout, err = parseDuration(v)
				return err
			},
		},
	}
	m.Fields[0].Input.Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Submitted reports whether msg is the enter press on the last field.
func (m Model) Submitted(msg tea.Msg) bool {
	key, ok := msg.(tea.KeyMsg)
	return ok && key.String() == "enter" && m.Focus == len(m.Fields)-1
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	if key, ok := msg.(tea.KeyMsg); ok {
		switch s := key.String(); s {
		case "tab", "shift+tab", "enter", "up", "down":
			if s == "up" || s == "shift+tab" {
				m.Focus--
			} else {
				m.Focus++
			}
			if m.Focus > len(m.Fields)-1 {
				m.Focus = 0
			} else if m.Focus < 0 {
				m.Focus = len(m.Fields) - 1
			}

			for i := range m.Fields {
				if i == m.Focus {
					m.Fields[i].Input.Focus()
					m.Fields[i].Input.PromptStyle = styles.Active
					m.Fields[i].Input.TextStyle = styles.Active
				} else {
					m.Fields[i].Input.Blur()
					m.Fields[i].Input.PromptStyle = lipgloss.NewStyle()
					m.Fields[i].Input.TextStyle = lipgloss.NewStyle()
				}
			}
			return m, nil
		}
	}

	for i := range m.Fields {
		var cmd tea.Cmd
		m.Fields[i].Input, cmd = m.Fields[i].Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// Settings applies the form to the settings it was built from and
// validates the outcome.
func (m Model) Settings() (settings.TestSettings, error) {
	ts := m.base
	for _, f := range m.Fields {
		if err := f.apply(&ts, f.Input.Value()); err != nil {
			return m.base, errors.WithMessage(err, f.Label)
		}
	}
	if err := ts.Validate(); err != nil {
		return m.base, err
	}
	return ts, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	s.WriteString(styles.Title.Render(string(m.base.Scenario) + " settings"))
	s.WriteString("\n\n")

	for i := range m.Fields {
		s.WriteString(styles.Subtle.Render(m.Fields[i].Label))
		s.WriteString("\n")
		s.WriteString(m.Fields[i].Input.View())
		s.WriteString("\n\n")
	}

	if m.Err != nil {
		s.WriteString(styles.Warn.Render(m.Err.Error()))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(styles.Active.Render("[Enter] on the last field starts the test"))

	return styles.Box.Render(s.String())
}
