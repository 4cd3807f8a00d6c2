package config

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchq/internal/settings"
)

func serverSettings() settings.TestSettings {
	ts := settings.DefaultTestSettings()
	ts.Scenario = settings.Server
	ts.ServerTargetQPS = 50
	return ts
}

func TestModel_FieldsFollowScenario(t *testing.T) {
	m := NewModel(serverSettings())
	require.Len(t, m.Fields, 4)
	assert.Equal(t, "Target QPS", m.Fields[0].Label)
	assert.Equal(t, "50", m.Fields[0].Input.Value())

	ss := settings.DefaultTestSettings()
	ss.Scenario = settings.SingleStream
	assert.Equal(t, "Expected latency", NewModel(ss).Fields[0].Label)
}

func TestModel_SettingsAppliesFields(t *testing.T) {
	m := NewModel(serverSettings())
	m.Fields[0].Input.SetValue("250")
	m.Fields[1].Input.SetValue("2s")
	m.Fields[2].Input.SetValue("77")

	ts, err := m.Settings()
	require.NoError(t, err)
	assert.Equal(t, 250.0, ts.ServerTargetQPS)
	assert.Equal(t, 2*time.Second, ts.MinDuration)
	assert.Equal(t, 77, ts.MinQueryCount)
}

func TestModel_SettingsRejectsBadInput(t *testing.T) {
	m := NewModel(serverSettings())
	m.Fields[1].Input.SetValue("soon")
	_, err := m.Settings()
	assert.ErrorContains(t, err, "Min duration")

	m = NewModel(serverSettings())
	m.Fields[0].Input.SetValue("-5")
	_, err = m.Settings()
	assert.Error(t, err)
}

func TestModel_FocusCyclesAndSubmits(t *testing.T) {
	m := NewModel(serverSettings())
	enter := tea.KeyMsg{Type: tea.KeyEnter}
	assert.False(t, m.Submitted(enter))

	for i := 0; i < len(m.Fields)-1; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	}
	assert.Equal(t, len(m.Fields)-1, m.Focus)
	assert.True(t, m.Submitted(enter))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.Focus)
}
