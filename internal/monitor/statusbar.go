package monitor

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	barStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color("#0F172A")).
			Foreground(lipgloss.Color("#E2E8F0"))

	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true)
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	checkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#38BDF8"))
)

const maxHistory = 8

// StatusMsg delivers a monitor update to the status bar program.
type StatusMsg Update

// StatusBar is the bubbletea model behind `linggen-editor monitor`.
type StatusBar struct {
	spinner  spinner.Model
	current  Update
	history  []string
	width    int
	quitting bool
	now      func() time.Time
}

// NewStatusBar creates the model showing initial.
func NewStatusBar(initial Update) StatusBar {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = checkingStyle
	return StatusBar{spinner: sp, current: initial, now: time.Now}
}

// Init starts the spinner.
func (m StatusBar) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key presses, status updates and spinner ticks.
func (m StatusBar) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StatusMsg:
		u := Update(msg)
		if u.Status != m.current.Status {
			m.history = append(m.history, m.now().Format("15:04:05")+"  "+string(u.Status))
			if len(m.history) > maxHistory {
				m.history = m.history[len(m.history)-maxHistory:]
			}
		}
		m.current = u
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the bar, the tooltip and recent transitions.
func (m StatusBar) View() string {
	if m.quitting {
		return ""
	}
	bar := barStyle
	if m.width > 0 {
		bar = bar.Width(m.width)
	}

	var b strings.Builder
	b.WriteString(bar.Render(Line(m.current, m.spinner.View())))
	b.WriteString("\n")
	if m.current.Tooltip != "" {
		b.WriteString(mutedStyle.Render(m.current.Tooltip))
		b.WriteString("\n")
	}
	for _, h := range m.history {
		b.WriteString(mutedStyle.Render(h))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("q: quit"))
	return b.String()
}

// Line renders the status bar text. spin is shown while checking.
func Line(u Update, spin string) string {
	switch u.Status {
	case StatusRunning:
		return "Linggen: " + runningStyle.Render("✓") + " running"
	case StatusOffline:
		return "Linggen: " + offlineStyle.Render("✗") + " offline"
	case StatusOff:
		return "Linggen: " + mutedStyle.Render("⊘") + " monitoring off"
	default:
		return "Linggen: " + spin + " checking…"
	}
}
