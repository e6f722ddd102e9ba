package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/forge-engine/forge/telemetry"
)

// Source is everything the dashboard polls. The stats command adapts a
// host and its telemetry collector to it (cli/cmd's dashboardSource);
// tests supply a fake.
type Source interface {
	TelemetrySnapshot() telemetry.Snapshot
	ExtensionNames() []string
	ExtensionLoaded(name string) bool
}

type tickMsg time.Time

// pollInterval is how often the dashboard re-reads its Source. It is
// independent of the engine's own frame rate.
const pollInterval = 250 * time.Millisecond

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// StatsModel is a Bubble Tea model that polls a Source on a ticker and
// renders frame rate, object counts, and per-extension load state.
type StatsModel struct {
	source   Source
	snap     telemetry.Snapshot
	names    []string
	quitting bool
}

// NewStatsModel builds a dashboard over the given Source.
func NewStatsModel(source Source) StatsModel {
	return StatsModel{source: source}
}

func (m StatsModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.source.TelemetrySnapshot()
		m.names = m.source.ExtensionNames()
		return m, tick()

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("forge runtime stats"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Frame Rate", fmt.Sprintf("%.1f", m.snap.FrameRate), highlightColor),
		m.renderStatBox("Frames", fmt.Sprintf("%d", m.snap.FramesPlayed), highlightColor),
		m.renderStatBox("Objects Live", fmt.Sprintf("%d", m.snap.DataObjectsCreated-m.snap.DataObjectsDeleted), successColor),
		m.renderStatBox("Reclaimed", fmt.Sprintf("%d", m.snap.DataReclaimed), mutedColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	boxes = []string{
		m.renderStatBox("Ext Loads", fmt.Sprintf("%d", m.snap.ExtensionLoads), successColor),
		m.renderStatBox("Ext Reloads", fmt.Sprintf("%d", m.snap.ExtensionReloads), warningColor),
		m.renderStatBox("Reload Fails", fmt.Sprintf("%d", m.snap.ReloadFailures), errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	b.WriteString(m.renderExtensions())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("Press q or Ctrl+C to quit"))
	return b.String()
}

func (m StatsModel) renderExtensions() string {
	if len(m.names) == 0 {
		return LabelStyle.Render("extensions:") + ValueStyle.Render("(none configured)")
	}
	var b strings.Builder
	b.WriteString(LabelStyle.Render("extensions:"))
	b.WriteString("\n")
	for _, name := range m.names {
		state := "unloaded"
		if m.source.ExtensionLoaded(name) {
			state = "loaded"
		}
		b.WriteString(fmt.Sprintf("  %-24s %s\n", name, StateStyle(state).Render(state)))
	}
	return b.String()
}

func (m StatsModel) renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)
	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)
	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)
	return boxStyle.Render(content)
}

// Run launches the dashboard in the alt screen buffer and blocks until
// the user quits.
func Run(source Source) error {
	p := tea.NewProgram(NewStatsModel(source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
