// Package watch is the live terminal dashboard behind 'plugwatch watch':
// it polls every configured plug on an interval and renders the readings
// next to the session and heartbeat state.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/plugwatch/plugwatch/internal/keepalive"
	"github.com/plugwatch/plugwatch/internal/session"
	"github.com/plugwatch/plugwatch/internal/tasmota"
)

// Config carries everything the dashboard needs to poll.
type Config struct {
	Devices     []string
	Timeout     time.Duration
	DataDir     string
	SessionName string
	Interval    time.Duration
}

// deviceRow is one polled device, ready for rendering.
type deviceRow struct {
	Addr    string
	Name    string
	Power   string
	Today   string
	Total   string
	Relay   string
	Temp    string
	Err     error
	Elapsed time.Duration
}

// pollResultMsg carries a completed poll sweep. A zero value means the
// refresh tick fired and a new sweep should start.
type pollResultMsg struct {
	rows       []deviceRow
	sessionUp  bool
	sessionSt  string
	sessionErr error
	heartbeat  *keepalive.State
	at         time.Time
}

// Model is the bubbletea model for the watch dashboard.
type Model struct {
	cfg Config

	width  int
	height int

	rows     []deviceRow
	lastPoll time.Time
	polling  bool

	sessionUp  bool
	sessionSt  string
	sessionErr error
	heartbeat  *keepalive.State

	// names remembers each device's reported name so later sweeps skip
	// the extra status query.
	names map[string]string

	keys     KeyMap
	help     help.Model
	showHelp bool
}

// NewModel creates a dashboard model for the configuration.
func NewModel(cfg Config) *Model {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	h := help.New()
	h.ShowAll = false

	return &Model{
		cfg:   cfg,
		names: make(map[string]string),
		keys:  DefaultKeyMap(),
		help:  h,
	}
}

// Init starts the first poll sweep.
func (m *Model) Init() tea.Cmd {
	m.polling = true
	return tea.Batch(
		m.poll(),
		tea.SetWindowTitle("plugwatch watch"),
	)
}

// refreshTick schedules the next sweep.
func (m *Model) refreshTick() tea.Cmd {
	return tea.Tick(m.cfg.Interval, func(time.Time) tea.Msg {
		return pollResultMsg{}
	})
}

// poll returns a command that sweeps all devices concurrently and checks
// the session table and heartbeat. It captures its inputs up front; the
// command runs on another goroutine and must not touch the model.
func (m *Model) poll() tea.Cmd {
	cfg := m.cfg
	known := make(map[string]string, len(m.names))
	for addr, name := range m.names {
		known[addr] = name
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+5*time.Second)
		defer cancel()

		rows := make([]deviceRow, len(cfg.Devices))
		var wg sync.WaitGroup
		for i, addr := range cfg.Devices {
			wg.Add(1)
			go func(i int, addr string) {
				defer wg.Done()
				rows[i] = pollDevice(ctx, addr, known[addr], cfg.Timeout)
			}(i, addr)
		}
		wg.Wait()

		msg := pollResultMsg{rows: rows, at: time.Now()}

		info, found, err := session.Find(session.NewScreen(), cfg.SessionName)
		msg.sessionErr = err
		if err == nil && found {
			msg.sessionUp = !info.State.Dead()
			msg.sessionSt = string(info.State)
		}
		msg.heartbeat = keepalive.Read(cfg.DataDir)

		return msg
	}
}

// pollDevice queries one plug for the dashboard row.
func pollDevice(ctx context.Context, addr, knownName string, timeout time.Duration) deviceRow {
	row := deviceRow{Addr: addr, Name: knownName}
	client := tasmota.NewClient(addr, tasmota.WithTimeout(timeout))

	begin := time.Now()
	if row.Name == "" {
		name, err := client.Name(ctx)
		if err != nil {
			row.Err = err
			row.Elapsed = time.Since(begin)
			return row
		}
		row.Name = name
	}

	reading, err := client.Readings(ctx)
	row.Elapsed = time.Since(begin)
	if err != nil {
		row.Err = err
		return row
	}

	row.Power = reading.Power
	row.Today = reading.Today
	row.Total = reading.Total
	row.Relay = reading.Power1
	row.Temp = reading.Temperature1
	return row
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			if m.polling {
				return m, nil
			}
			m.polling = true
			return m, m.poll()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case pollResultMsg:
		if msg.rows == nil {
			// Tick fired - start the next sweep
			if m.polling {
				return m, nil
			}
			m.polling = true
			return m, m.poll()
		}

		// Fresh sweep arrived - store it and schedule the next tick
		m.polling = false
		m.rows = msg.rows
		m.lastPoll = msg.at
		m.sessionUp = msg.sessionUp
		m.sessionSt = msg.sessionSt
		m.sessionErr = msg.sessionErr
		m.heartbeat = msg.heartbeat
		for _, row := range msg.rows {
			if row.Name != "" {
				m.names[row.Addr] = row.Name
			}
		}
		return m, m.refreshTick()
	}

	return m, nil
}

// View renders the dashboard.
func (m *Model) View() string {
	return m.render()
}
