package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/plugwatch/plugwatch/internal/style"
)

// Styles for the watch dashboard
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("76"))

	downStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

// render draws the whole dashboard.
func (m *Model) render() string {
	var b strings.Builder

	if m.width > 0 && (m.width < 50 || m.height < 8) {
		return "Terminal too small. Please resize."
	}

	b.WriteString(titleStyle.Render("⚡ plugwatch"))
	b.WriteString("\n")

	b.WriteString(m.renderSessionLine())
	b.WriteString("\n\n")

	if m.rows == nil {
		b.WriteString(mutedStyle.Render("  polling devices..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderDeviceTable())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())

	b.WriteString("\n\n")
	if m.showHelp {
		b.WriteString(m.help.View(m.keys))
	} else {
		b.WriteString(helpStyle.Render("r: refresh  ?: help  q: quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *Model) renderSessionLine() string {
	var session string
	switch {
	case m.sessionErr != nil:
		session = warnStyle.Render(fmt.Sprintf("● session %s: %v", m.cfg.SessionName, m.sessionErr))
	case m.sessionUp:
		session = okStyle.Render(fmt.Sprintf("● session %s (%s)", m.cfg.SessionName, m.sessionSt))
	case m.sessionSt != "":
		session = warnStyle.Render(fmt.Sprintf("● session %s dead", m.cfg.SessionName))
	default:
		session = downStyle.Render(fmt.Sprintf("● session %s not running", m.cfg.SessionName))
	}

	heartbeat := mutedStyle.Render("heartbeat never")
	if m.heartbeat != nil {
		age := m.heartbeat.Age().Truncate(time.Second)
		if age > 2*time.Minute {
			heartbeat = warnStyle.Render(fmt.Sprintf("heartbeat %s ago", age))
		} else {
			heartbeat = mutedStyle.Render(fmt.Sprintf("heartbeat %s ago", age))
		}
	}

	return "  " + session + "   " + heartbeat
}

func (m *Model) renderDeviceTable() string {
	table := style.NewTable(
		style.Column{Name: "Device", Width: 16},
		style.Column{Name: "Address", Width: 15},
		style.Column{Name: "Power", Width: 8, Align: style.AlignRight},
		style.Column{Name: "Today", Width: 8, Align: style.AlignRight},
		style.Column{Name: "Total", Width: 10, Align: style.AlignRight},
		style.Column{Name: "Relay", Width: 5},
		style.Column{Name: "Temp", Width: 7, Align: style.AlignRight},
	)

	for _, row := range m.rows {
		name := row.Name
		if name == "" {
			name = mutedStyle.Render(row.Addr)
		}
		if row.Err != nil {
			table.AddRow(name, row.Addr, downStyle.Render("down"), "", "", "", "")
			continue
		}

		relay := row.Relay
		if relay == "ON" {
			relay = okStyle.Render(relay)
		} else if relay != "" {
			relay = mutedStyle.Render(relay)
		}

		temp := row.Temp
		if temp != "" {
			temp += "°C"
		}

		table.AddRow(name, row.Addr, row.Power+"W", row.Today, row.Total, relay, temp)
	}

	return table.Render()
}

func (m *Model) renderStatusLine() string {
	if m.polling {
		return mutedStyle.Render("  polling...")
	}
	if m.lastPoll.IsZero() {
		return ""
	}
	return mutedStyle.Render(fmt.Sprintf("  updated %s, next sweep in %s",
		m.lastPoll.Format("15:04:05"), m.cfg.Interval))
}
