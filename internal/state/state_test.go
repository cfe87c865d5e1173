package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.OffPower != 0 {
		t.Errorf("OffPower = %v, want 0", s.OffPower)
	}
	if s.MaxIdlePower != 5 {
		t.Errorf("MaxIdlePower = %v, want 5", s.MaxIdlePower)
	}
	if s.MinIdleMinutes != 1 {
		t.Errorf("MinIdleMinutes = %v, want 1", s.MinIdleMinutes)
	}
	if s.MinIdleCount != 5 {
		t.Errorf("MinIdleCount = %v, want 5", s.MinIdleCount)
	}
	if s.MinDoneCount != 4 {
		t.Errorf("MinDoneCount = %v, want 4", s.MinDoneCount)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plug.json")
	content := `{"max_idle_power": 12, "device_name": "Waschmaschine"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.MaxIdlePower != 12 {
		t.Errorf("MaxIdlePower = %v, want 12 from file", s.MaxIdlePower)
	}
	if s.DeviceName != "Waschmaschine" {
		t.Errorf("DeviceName = %q, want from file", s.DeviceName)
	}
	if s.MinDoneCount != 4 {
		t.Errorf("MinDoneCount = %v, want default 4", s.MinDoneCount)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plug.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load should fail on corrupt JSON")
	}
}

func TestSave_WritesThresholdsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plug.json")

	s := Default()
	s.Stats.On.Time = FormatTime(time.Date(2026, 8, 22, 7, 0, 0, 0, time.Local))
	s.Stats.On.PowerTotal = "123.400"

	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	for _, key := range []string{"off_power", "max_idle_power", "min_idle_minutes", "min_idle_count", "min_done_count", "stats"} {
		if !strings.Contains(content, `"`+key+`"`) {
			t.Errorf("saved sidecar missing %q", key)
		}
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Stats.On.PowerTotal != "123.400" {
		t.Errorf("PowerTotal = %q, want round-tripped string", reloaded.Stats.On.PowerTotal)
	}
	if !reloaded.Stats.On.TimeValue().Equal(s.Stats.On.TimeValue()) {
		t.Errorf("on.time did not round-trip: %v vs %v", reloaded.Stats.On.TimeValue(), s.Stats.On.TimeValue())
	}
}

func TestMarker_ZeroValues(t *testing.T) {
	var m Marker

	if !m.TimeValue().IsZero() {
		t.Error("unset time should be zero")
	}
	if !m.LastSentValue().IsZero() {
		t.Error("unset last_sent should be zero")
	}
	if m.PowerTotalValue() != 0 {
		t.Errorf("unset power_total = %v, want 0", m.PowerTotalValue())
	}

	m.Time = "garbage"
	if !m.TimeValue().IsZero() {
		t.Error("unparseable time should be zero")
	}
	m.PowerTotal = "garbage"
	if m.PowerTotalValue() != 0 {
		t.Error("unparseable power_total should be 0")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			"zone-less device timestamp",
			"2026-08-22T07:15:04",
			time.Date(2026, 8, 22, 7, 15, 4, 0, time.Local),
		},
		{
			"zone-less with microseconds",
			"2026-08-22T07:15:04.123456",
			time.Date(2026, 8, 22, 7, 15, 4, 123456000, time.Local),
		},
		{
			"rfc3339",
			"2026-08-22T07:15:04+02:00",
			time.Date(2026, 8, 22, 7, 15, 4, 0, time.FixedZone("", 2*3600)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			if err != nil {
				t.Fatalf("ParseTime(%q) failed: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseTime("not a time"); err == nil {
		t.Error("ParseTime should fail on garbage")
	}
}

func TestSidecarPath(t *testing.T) {
	if got := SidecarPath("waschmaschine_192.168.2.77_log.csv"); got != "waschmaschine_192.168.2.77_log.json" {
		t.Errorf("SidecarPath = %q", got)
	}
}
