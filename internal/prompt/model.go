package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/systmms/opscreds/pkg/server"
)

type styles struct {
	title    lipgloss.Style
	filter   lipgloss.Style
	cursor   lipgloss.Style
	selected lipgloss.Style
	empty    lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		return styles{
			title:    lipgloss.NewStyle().Bold(true),
			filter:   lipgloss.NewStyle(),
			cursor:   lipgloss.NewStyle(),
			selected: lipgloss.NewStyle(),
			empty:    lipgloss.NewStyle(),
		}
	}
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		filter:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		empty:    lipgloss.NewStyle().Faint(true),
	}
}

// selectModel is a single-choice list. Searchable questions narrow the list
// as the user types into the filter input.
type selectModel struct {
	question server.Question
	styles   styles
	keys     KeyMap
	help     help.Model
	filter   textinput.Model

	cursor    int
	choice    string
	done      bool
	cancelled bool
}

func newSelectModel(q server.Question, st styles) selectModel {
	ti := textinput.New()
	ti.Prompt = "Filter: "
	ti.PromptStyle = st.filter
	ti.TextStyle = st.filter
	if q.Searchable {
		ti.Focus()
	}

	return selectModel{
		question: q,
		styles:   st,
		keys:     DefaultKeyMap,
		help:     help.New(),
		filter:   ti,
	}
}

func (m selectModel) Init() tea.Cmd {
	if m.question.Searchable {
		return textinput.Blink
	}
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.question.Searchable {
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	visible := m.visible()

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		m.cancelled = true
		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Select):
		if len(visible) == 0 {
			return m, nil
		}
		m.choice = visible[m.cursor].Value
		m.done = true
		return m, tea.Quit

	case m.question.Searchable && keyMsg.Type == tea.KeyRunes:
		return m.updateFilter(keyMsg)

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}

	case m.question.Searchable:
		return m.updateFilter(keyMsg)
	}

	return m, nil
}

// updateFilter hands editing keys to the filter input and resets the cursor
// when the filter text changes.
func (m selectModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.filter.Value()

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.cursor = 0
	}
	return m, cmd
}

func (m selectModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render(m.question.Message))
	b.WriteString("\n")

	if m.question.Searchable {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	visible := m.visible()
	if len(visible) == 0 {
		b.WriteString(m.styles.empty.Render("  No matching entries"))
		b.WriteString("\n")
	}
	for i, opt := range visible {
		if i == m.cursor {
			b.WriteString(m.styles.cursor.Render("❯ "))
			b.WriteString(m.styles.selected.Render(opt.Label))
		} else {
			b.WriteString("  " + opt.Label)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// visible returns the options whose label contains the filter, case-insensitively.
func (m selectModel) visible() []server.Option {
	needle := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if needle == "" {
		return m.question.Options
	}

	var out []server.Option
	for _, opt := range m.question.Options {
		if strings.Contains(strings.ToLower(opt.Label), needle) {
			out = append(out, opt)
		}
	}
	return out
}
