package mux

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	paneStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	focusedPaneStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205")).Padding(0, 1)
	titleStyle       = lipgloss.NewStyle().Bold(true)
	statusBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1)
)

type keyMap struct {
	Quit     key.Binding
	NextPane key.Binding
	PrevPane key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("ctrl+q", "quit")),
		NextPane: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next pane")),
		PrevPane: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev pane")),
	}
}

// refreshMsg drives periodic redraws; pane content arrives asynchronously
// from the feed goroutines.
type refreshMsg time.Time

func refreshTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Model is the bubbletea program showing a session as a grid of panes.
type Model struct {
	session *Session
	keys    keyMap
	focus   int
	width   int
	height  int
}

// NewModel wraps a session for display.
func NewModel(session *Session) Model {
	return Model{session: session, keys: newKeyMap()}
}

func (m Model) Init() tea.Cmd {
	return refreshTick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		return m, refreshTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.session.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.NextPane):
			if n := len(m.session.Panes); n > 0 {
				m.focus = (m.focus + 1) % n
			}
			return m, nil
		case key.Matches(msg, m.keys.PrevPane):
			if n := len(m.session.Panes); n > 0 {
				m.focus = (m.focus - 1 + n) % n
			}
			return m, nil
		}
		if data := keyToInput(msg); len(data) > 0 {
			_ = m.session.SendInput(m.focus, data)
		}
		return m, nil
	}
	return m, nil
}

// keyToInput converts a key press into the bytes an interactive pane should
// receive.
func keyToInput(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyRunes:
		return []byte(string(msg.Runes))
	case tea.KeySpace:
		return []byte(" ")
	case tea.KeyEnter:
		return []byte("\r")
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyTab:
		return []byte("\t")
	case tea.KeyCtrlC:
		return []byte{0x03}
	default:
		return nil
	}
}

func (m Model) View() string {
	n := len(m.session.Panes)
	if n == 0 {
		body := paneStyle.Render("no live workers matched the discovery pattern\nwaiting is valid: the fleet may not be started yet")
		return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
	}

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols

	paneWidth := maxInt(20, m.width/cols-2)
	paneHeight := maxInt(4, (m.height-2)/rows-2)

	var rendered []string
	for r := 0; r < rows; r++ {
		var rowPanes []string
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i >= n {
				break
			}
			rowPanes = append(rowPanes, m.renderPane(i, paneWidth, paneHeight))
		}
		rendered = append(rendered, lipgloss.JoinHorizontal(lipgloss.Top, rowPanes...))
	}
	rendered = append(rendered, m.statusBar())
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func (m Model) renderPane(i, width, height int) string {
	pane := m.session.Panes[i]
	style := paneStyle
	if i == m.focus && !m.session.Synchronized {
		style = focusedPaneStyle
	}

	title := titleStyle.Render(fmt.Sprintf("%s [%s]", pane.Worker.Name, pane.Worker.State))
	lines := pane.Tail(height - 1)
	content := title + "\n" + strings.Join(lines, "\n")
	return style.Width(width).Height(height).Render(content)
}

func (m Model) statusBar() string {
	mode := m.session.Mode.String()
	sync := "focused input"
	if m.session.Synchronized {
		sync = "synchronized input"
	}
	return statusBarStyle.Render(fmt.Sprintf(
		"session %s | %d panes | %s | %s | ctrl+n/ctrl+p panes, ctrl+q quit",
		m.session.ID, len(m.session.Panes), mode, sync))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Show runs the session UI until the user quits.
func Show(session *Session) error {
	_, err := tea.NewProgram(NewModel(session), tea.WithAltScreen()).Run()
	return err
}
