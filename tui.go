package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"murmur/session"
)

// TUI message types
type StateMsg struct{ State session.State }
type AudioLevelMsg struct{ Level float64 }
type TranscriptMsg struct {
	Text     string
	NoSpeech bool
}
type ErrorMsg struct{ Text string }
type ModeLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type HelpLineMsg struct{ Text string }
type tickMsg time.Time

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

var (
	listeningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	idleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	meterStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	meterDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	textStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	noSpeechStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
)

type tuiModel struct {
	state         session.State
	listeningFrom time.Time
	level         float64
	lastText      string
	noSpeech      bool
	lastErr       string
	msgCount      int
	modeLine      string
	deviceLine    string
	helpLine      string
	width, height int
}

func NewTUIProgram() *tea.Program {
	return tea.NewProgram(tuiModel{}, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tickMsg:
		return m, tuiTick()

	case StateMsg:
		m.state = msg.State
		if msg.State == session.StateListening {
			m.listeningFrom = time.Now()
			m.level = 0
			m.lastErr = ""
		}

	case AudioLevelMsg:
		if m.state == session.StateListening {
			m.level = m.level*0.6 + msg.Level*0.4
		}

	case TranscriptMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.noSpeech = msg.NoSpeech

	case ErrorMsg:
		m.lastErr = msg.Text

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case HelpLineMsg:
		m.helpLine = msg.Text
	}
	return m, nil
}

const meterWidth = 30

func renderMeter(level float64) string {
	filled := int(level * 3 * meterWidth)
	if filled > meterWidth {
		filled = meterWidth
	}
	return meterStyle.Render(strings.Repeat("▰", filled)) +
		meterDimStyle.Render(strings.Repeat("▱", meterWidth-filled))
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("murmur "+version) + "\n\n")

	switch m.state {
	case session.StateListening:
		b.WriteString(listeningStyle.Render(fmt.Sprintf("● LISTENING %.1fs", time.Since(m.listeningFrom).Seconds())) + "\n")
		b.WriteString(renderMeter(m.level) + "\n")
	case session.StateTranscribing:
		b.WriteString(busyStyle.Render("◌ TRANSCRIBING") + "\n")
		b.WriteString(renderMeter(0) + "\n")
	default:
		b.WriteString(idleStyle.Render("○ IDLE") + "\n")
		b.WriteString(renderMeter(0) + "\n")
	}
	b.WriteString("\n")

	if m.modeLine != "" {
		b.WriteString(dimStyle.Render(m.modeLine) + "\n")
	}
	if m.deviceLine != "" {
		b.WriteString(dimStyle.Render(m.deviceLine) + "\n")
	}
	b.WriteString("\n")

	if m.lastErr != "" {
		b.WriteString(errStyle.Render("error: "+m.lastErr) + "\n\n")
	}

	if m.lastText != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)) + "\n")
		style := textStyle
		if m.noSpeech {
			style = noSpeechStyle
		}
		wrapWidth := m.width - 2
		if wrapWidth < 10 {
			wrapWidth = 10
		}
		for _, line := range wrapText(m.lastText, wrapWidth) {
			b.WriteString(style.Render(line) + "\n")
		}
	} else {
		b.WriteString(dimStyle.Render("No transcriptions yet") + "\n")
	}
	b.WriteString("\n")

	if m.helpLine != "" {
		b.WriteString(helpStyle.Render(m.helpLine) + "\n")
	}
	b.WriteString(helpStyle.Render("q to quit") + "\n")

	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
