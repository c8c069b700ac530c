// Package tui renders the interactive tuner display.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chromatune/internal/analysis"
	"chromatune/internal/audio"
	"chromatune/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	inTuneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2ECC40")).
			Bold(true)

	closeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFDC00")).
			Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4136")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4136"))
)

const needleWidth = 41 // Odd so the in-tune mark sits on a cell.

// Controller is the subset of engine operations the TUI drives.
type Controller interface {
	SwitchDevice(deviceID int) error
	StartRecording(filename string) error
	StopRecording() error
}

// ScreenType identifies the active screen.
type ScreenType int

const (
	TunerScreen ScreenType = iota
	DeviceScreen
)

type tickMsg time.Time

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// TunerModel is the Bubble Tea model for the tuner display.
type TunerModel struct {
	publisher *analysis.Publisher
	ctrl      Controller
	cfg       *config.Config

	reading   analysis.StableReading
	recording bool
	width     int
	err       error

	activeScreen  ScreenType
	devices       []audio.Device
	selectedIndex int
}

// NewTunerModel creates the model. ctrl may be nil, which disables device
// switching and recording.
func NewTunerModel(cfg *config.Config, publisher *analysis.Publisher, ctrl Controller) TunerModel {
	return TunerModel{
		publisher: publisher,
		ctrl:      ctrl,
		cfg:       cfg,
		width:     80,
	}
}

func (m TunerModel) Init() tea.Cmd {
	return m.tick()
}

func (m TunerModel) tick() tea.Cmd {
	return tea.Tick(m.cfg.Display.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchInputDevices() tea.Msg {
	devices, err := audio.InputDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.reading = m.publisher.Latest()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case devicesMsg:
		m.devices = msg.devices
		m.selectedIndex = 0
		m.activeScreen = DeviceScreen

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}
		if m.activeScreen == DeviceScreen {
			return m.updateDeviceScreen(msg)
		}
		return m.updateTunerScreen(msg)
	}

	return m, nil
}

func (m TunerModel) updateTunerScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The error line reports the last action only; any new key action
	// dismisses it (and may set a fresh one below).
	m.err = nil

	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("d"))):
		if m.ctrl != nil {
			return m, fetchInputDevices
		}

	case key.Matches(msg, key.NewBinding(key.WithKeys("r"))):
		if m.ctrl == nil {
			break
		}
		if m.recording {
			if err := m.ctrl.StopRecording(); err != nil {
				m.err = err
				break
			}
			m.recording = false
		} else {
			path, err := audio.RecordingPath(m.cfg.Recording.OutputDir)
			if err == nil {
				err = m.ctrl.StartRecording(path)
			}
			if err != nil {
				m.err = err
				break
			}
			m.recording = true
		}
	}
	return m, nil
}

func (m TunerModel) View() string {
	if m.activeScreen == DeviceScreen {
		return m.viewDeviceScreen()
	}
	return m.viewTunerScreen()
}

func (m TunerModel) viewTunerScreen() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Chromatune"))
	sb.WriteString("\n\n")

	if m.reading.Voiced {
		style := m.tuneStyle(m.reading.Cents)
		sb.WriteString(style.Render(fmt.Sprintf("  %-4s", m.reading.String())))
		sb.WriteString(infoStyle.Render(fmt.Sprintf("  %8.2f Hz  %+6.1f cents", m.reading.Frequency, m.reading.Cents)))
		sb.WriteString("\n\n")
		sb.WriteString("  ")
		sb.WriteString(style.Render(renderNeedle(m.reading.Cents, needleWidth)))
	} else {
		sb.WriteString(dimStyle.Render("  ---   listening..."))
		sb.WriteString("\n\n")
		sb.WriteString("  ")
		sb.WriteString(dimStyle.Render(renderNeedleEmpty(needleWidth)))
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  %s", needleScale(needleWidth))))
	sb.WriteString("\n\n")

	if m.recording {
		sb.WriteString(recordingStyle.Render("  ● REC"))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(offStyle.Render(fmt.Sprintf("  error: %v", m.err)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("d: Devices • r: Record • q: Quit"))
	return sb.String()
}

// tuneStyle picks the color for a cent deviation using the configured
// display thresholds.
func (m TunerModel) tuneStyle(cents float64) lipgloss.Style {
	abs := cents
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs <= m.cfg.Display.InTuneCents:
		return inTuneStyle
	case abs <= m.cfg.Display.CloseCents:
		return closeStyle
	default:
		return offStyle
	}
}

// renderNeedle draws the deviation bar for cents in [-50, +50]. The needle
// cell is proportional to the deviation; the center cell marks zero.
func renderNeedle(cents float64, width int) string {
	if cents > 50 {
		cents = 50
	} else if cents < -50 {
		cents = -50
	}

	pos := int((cents + 50) / 100 * float64(width-1))
	center := (width - 1) / 2

	cells := make([]rune, width)
	for i := range cells {
		cells[i] = '─'
	}
	cells[center] = '┼'
	cells[pos] = '●'
	return string(cells)
}

// renderNeedleEmpty draws the bar with no needle, shown while no pitch is
// tracked.
func renderNeedleEmpty(width int) string {
	cells := make([]rune, width)
	for i := range cells {
		cells[i] = '─'
	}
	cells[(width-1)/2] = '┼'
	return string(cells)
}

// needleScale draws the -50/0/+50 cent labels aligned under the bar.
func needleScale(width int) string {
	center := (width - 1) / 2
	left := "-50"
	mid := "0"
	right := "+50"
	pad1 := center - len(left)
	pad2 := width - center - 1 - len(right)
	return left + strings.Repeat(" ", pad1) + mid + strings.Repeat(" ", pad2-len(mid)+1) + right
}

// Run launches the tuner UI and blocks until the user quits.
func Run(cfg *config.Config, publisher *analysis.Publisher, ctrl Controller) error {
	p := tea.NewProgram(
		NewTunerModel(cfg, publisher, ctrl),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
