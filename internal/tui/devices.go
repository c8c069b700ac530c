package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m TunerModel) updateDeviceScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
		m.activeScreen = TunerScreen

	case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}

	case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
		if m.selectedIndex < len(m.devices)-1 {
			m.selectedIndex++
		}

	case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
		if len(m.devices) == 0 || m.ctrl == nil {
			break
		}
		if err := m.ctrl.SwitchDevice(m.devices[m.selectedIndex].ID); err != nil {
			m.err = err
		} else {
			m.err = nil
		}
		m.activeScreen = TunerScreen
	}
	return m, nil
}

func (m TunerModel) viewDeviceScreen() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Input Devices"))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderDevices())
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("↑/↓: Navigate • Enter: Select • Esc: Back • q: Quit"))
	return sb.String()
}

func (m TunerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found.\n"
	}

	var sb strings.Builder
	for i, device := range m.devices {
		info := fmt.Sprintf("[%d] %s\n", device.ID, device.Name)
		info += fmt.Sprintf("    Input channels: %d, Default sample rate: %.0f Hz\n",
			device.MaxInputChannels, device.DefaultSampleRate)

		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}
