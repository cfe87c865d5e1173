// Package state persists per-device detection state in a JSON sidecar next
// to each CSV log.
//
// The sidecar doubles as the user's tuning surface: thresholds missing from
// the file get defaults, and the defaults are written back on every save so
// the knobs are discoverable by editing the file.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/plugwatch/plugwatch/internal/util"
)

// Sidecar holds thresholds and cycle markers for one device.
type Sidecar struct {
	// OffPower is the power level (W) at or below which the device counts
	// as switched off.
	OffPower float64 `json:"off_power"`

	// MaxIdlePower is the power level (W) at or below which a running
	// device counts as idle, i.e. finished but not yet switched off.
	MaxIdlePower float64 `json:"max_idle_power"`

	// MinIdleMinutes is the observation window: samples older than this
	// relative to the newest are ignored once enough rows were seen.
	MinIdleMinutes float64 `json:"min_idle_minutes"`

	// MinIdleCount is the minimum number of samples to scan before the
	// window cutoff applies.
	MinIdleCount int `json:"min_idle_count"`

	// MinDoneCount is how many idle (or off) samples within the window it
	// takes to call the cycle done (or the device off).
	MinDoneCount int `json:"min_done_count"`

	// DeviceName overrides the reported device name in notifications.
	DeviceName string `json:"device_name,omitempty"`

	Stats Stats `json:"stats"`
}

// Stats tracks the three cycle markers.
type Stats struct {
	Done Marker `json:"done"`
	Off  Marker `json:"off"`
	On   Marker `json:"on"`
}

// Marker records when a cycle transition was last observed and notified.
// Times are stored as strings in the file; zero markers stay empty.
// PowerTotal keeps the CSV cell verbatim, including its formatting.
type Marker struct {
	Time       string `json:"time,omitempty"`
	PowerTotal string `json:"power_total,omitempty"`
	LastSent   string `json:"last_sent,omitempty"`
}

// TimeValue returns the marker time, zero when unset or unparseable.
func (m *Marker) TimeValue() time.Time {
	return timeOrZero(m.Time)
}

// LastSentValue returns the last notification time, zero when unset.
func (m *Marker) LastSentValue() time.Time {
	return timeOrZero(m.LastSent)
}

// PowerTotalValue returns the stored meter total, 0 when unset.
func (m *Marker) PowerTotalValue() float64 {
	if m.PowerTotal == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m.PowerTotal, 64)
	if err != nil {
		return 0
	}
	return v
}

// Default returns a sidecar with the stock thresholds.
func Default() *Sidecar {
	return &Sidecar{
		OffPower:       0,
		MaxIdlePower:   5,
		MinIdleMinutes: 1,
		MinIdleCount:   5,
		MinDoneCount:   4,
	}
}

// SidecarPath maps a CSV log path to its sidecar path.
func SidecarPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, ".csv") + ".json"
}

// Load reads the sidecar at path. A missing file yields the defaults;
// fields missing from an existing file keep their default values.
func Load(path string) (*Sidecar, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sidecar: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing sidecar %s: %w", path, err)
	}
	return s, nil
}

// Save writes the sidecar atomically, thresholds included.
func (s *Sidecar) Save(path string) error {
	if err := util.AtomicWriteJSON(path, s); err != nil {
		return fmt.Errorf("saving sidecar: %w", err)
	}
	return nil
}

// Time layouts accepted in sidecars and CSV cells. Tasmota reports
// zone-less local timestamps; sidecars are written in RFC3339.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
}

// ParseTime parses a timestamp in any accepted layout, zone-less values in
// local time.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTime renders a timestamp for storage.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func timeOrZero(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
