package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/sim"
)

var presetInfo = map[string]string{
	"bounce":  "ball on the ground, e = 0.7",
	"elastic": "frictionless, e = 1",
	"dead":    "no bounce, settles",
	"chamber": "five-walled box, no gravity",
	"bullet":  "fast small ball, ccd",
}

var (
	menuTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuDesc   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	menuIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

const (
	stateMenu = iota
	stateSim
)

// Menu lists the presets and opens the live viewer on the chosen one. Esc
// in the viewer returns to the list.
type Menu struct {
	state   int
	cursor  int
	presets []string
	live    Model
	err     error
}

func NewMenu() Menu {
	return Menu{state: stateMenu, presets: config.ListPresets()}
}

func (m Menu) Init() tea.Cmd { return nil }

func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.state = stateMenu
			return m, nil
		}
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		return m.start()
	}
	return m, nil
}

func (m Menu) start() (tea.Model, tea.Cmd) {
	name := m.presets[m.cursor]
	s, err := sim.New(config.GetPreset(name))
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.live = NewModel(s, name)
	m.state = stateSim
	return m, m.live.Init()
}

func (m Menu) View() string {
	if m.state == stateSim {
		return m.live.View()
	}

	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("BOUNCER") + "\n    " + menuSub.Render("rigid-body sandbox") + "\n    " + menuSub.Render("──────────────────") + "\n\n")
	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-10s", name)), menuDesc.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", menuIdle.Render(fmt.Sprintf("%-10s", name)), menuSub.Render(desc)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + StatusError.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + menuKey.Render("j/k") + menuIdle.Render(" navigate  ") + menuKey.Render("enter") + menuIdle.Render(" select  ") + menuKey.Render("q") + menuIdle.Render(" quit") + "\n")
	return b.String()
}

func RunMenu() error {
	_, err := tea.NewProgram(NewMenu(), tea.WithAltScreen()).Run()
	return err
}
