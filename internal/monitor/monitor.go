// Package monitor implements the energy logging payload the guard keeps
// alive: poll each smart plug, append to its CSV log, evaluate cycle
// transitions, and notify.
package monitor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/plugwatch/plugwatch/internal/csvlog"
	"github.com/plugwatch/plugwatch/internal/detect"
	"github.com/plugwatch/plugwatch/internal/keepalive"
	"github.com/plugwatch/plugwatch/internal/state"
	"github.com/plugwatch/plugwatch/internal/tasmota"
	"github.com/plugwatch/plugwatch/internal/telemetry"
)

// One process run covers a single scheduler minute: six rounds at the 10s
// marks from start, then exit. The guard starts the next process.
const (
	rounds        = 6
	roundInterval = 10 * time.Second
)

// Notifier delivers cycle notifications. telegram.Client implements it.
type Notifier interface {
	Send(ctx context.Context, text string, loud bool) error
}

// Config specifies one monitor run.
type Config struct {
	// Devices are the plug addresses to poll.
	Devices []string

	// DataDir holds the CSV logs, sidecars, and the heartbeat file.
	DataDir string

	// Timeout bounds each device HTTP call.
	Timeout time.Duration

	// Notifier receives cycle events. Nil logs them instead of sending.
	Notifier Notifier

	// Logger receives progress output. Nil means stderr, which the guard's
	// tee captures into the session log.
	Logger *log.Logger

	// LastCommand is recorded in the heartbeat file after each round.
	LastCommand string
}

// Monitor polls the configured smart plugs and maintains their energy logs.
type Monitor struct {
	cfg    Config
	logger *log.Logger

	// names caches each device's reported name for the process lifetime.
	names map[string]string
}

// New returns a monitor for the configuration.
func New(cfg Config) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Monitor{cfg: cfg, logger: logger, names: make(map[string]string)}
}

// Run performs the polling rounds at the 10 second marks from start, then
// returns so the scheduler can start a fresh process. A round that overruns
// its slot is followed immediately by the next one.
func (m *Monitor) Run(ctx context.Context) error {
	start := time.Now()
	for i := 1; i <= rounds; i++ {
		if err := sleepUntil(ctx, start.Add(time.Duration(i)*roundInterval)); err != nil {
			return err
		}
		m.Round(ctx)
	}
	return nil
}

// RunOnce performs a single immediate round.
func (m *Monitor) RunOnce(ctx context.Context) error {
	m.Round(ctx)
	return ctx.Err()
}

// Round polls every device once and touches the heartbeat. Device failures
// are logged and skipped; one dark plug must not stall the others.
func (m *Monitor) Round(ctx context.Context) {
	for _, addr := range m.cfg.Devices {
		if ctx.Err() != nil {
			return
		}
		if err := m.pollDevice(ctx, addr); err != nil {
			m.logger.Printf("device %s: %v", addr, err)
		}
	}
	keepalive.TouchInWorkspace(m.cfg.DataDir, m.cfg.LastCommand)
}

func (m *Monitor) pollDevice(ctx context.Context, addr string) error {
	client := tasmota.NewClient(addr, tasmota.WithTimeout(m.cfg.Timeout))

	name, cached := m.names[addr]
	if !cached {
		n, err := client.Name(ctx)
		if err != nil {
			return fmt.Errorf("querying name: %w", err)
		}
		name = n
		m.names[addr] = n
	}

	begin := time.Now()
	reading, err := client.Readings(ctx)
	durationMs := time.Since(begin).Seconds() * 1000
	power, _ := strconv.ParseFloat(reading.Power, 64)
	telemetry.RecordSample(ctx, name, addr, power, durationMs, err)
	if err != nil {
		return fmt.Errorf("sampling: %w", err)
	}

	csvPath := filepath.Join(m.cfg.DataDir, csvlog.FileName(name, addr))
	if err := csvlog.Append(csvPath, reading); err != nil {
		return err
	}

	table, err := csvlog.Read(csvPath)
	if err != nil {
		return err
	}

	sidecarPath := state.SidecarPath(csvPath)
	sidecar, err := state.Load(sidecarPath)
	if err != nil {
		return err
	}

	window, err := detect.Scan(table, sidecar)
	if err != nil {
		return err
	}

	for _, ev := range detect.Evaluate(sidecar, window, filepath.Base(csvPath)) {
		telemetry.RecordDetection(ctx, name, string(ev.Kind))
		m.deliver(ctx, sidecar, ev)
	}

	// Save even without events so threshold defaults land in the sidecar,
	// where the user can tune them.
	return sidecar.Save(sidecarPath)
}

// deliver sends one event and stamps its marker's last_sent on success.
// A failed send leaves last_sent alone, so the event fires again next
// round. Without a notifier the event is only logged, with the same
// fire-again behavior.
func (m *Monitor) deliver(ctx context.Context, sidecar *state.Sidecar, ev detect.Event) {
	if m.cfg.Notifier == nil {
		m.logger.Printf("notification (disabled): %s", ev.Message)
		return
	}

	err := m.cfg.Notifier.Send(ctx, ev.Message, ev.Loud)
	telemetry.RecordNotify(ctx, string(ev.Kind), ev.Message, ev.Loud, err)
	if err != nil {
		m.logger.Printf("notify %s: %v", ev.Kind, err)
		return
	}
	if marker := detect.MarkerFor(sidecar, ev.Kind); marker != nil {
		marker.LastSent = state.FormatTime(time.Now())
	}
}

// sleepUntil blocks until mark or cancellation. Marks already in the past
// return immediately.
func sleepUntil(ctx context.Context, mark time.Time) error {
	d := time.Until(mark)
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
