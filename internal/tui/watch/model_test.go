package watch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func testModel() *Model {
	return NewModel(Config{
		Devices:     []string{"192.0.2.1:1"},
		Timeout:     50 * time.Millisecond,
		DataDir:     "/nonexistent",
		SessionName: "tasmota_log",
		Interval:    time.Second,
	})
}

func TestUpdate_SweepResultStoresRowsAndCachesNames(t *testing.T) {
	m := testModel()
	m.polling = true

	res := pollResultMsg{
		rows: []deviceRow{{Addr: "192.0.2.1:1", Name: "Waschmaschine", Power: "2", Relay: "ON"}},
		at:   time.Now(),
	}
	model, cmd := m.Update(res)
	m = model.(*Model)

	if m.polling {
		t.Error("polling flag should clear once a sweep lands")
	}
	if cmd == nil {
		t.Error("a finished sweep should schedule the next tick")
	}
	if got := m.names["192.0.2.1:1"]; got != "Waschmaschine" {
		t.Errorf("cached name = %q, want %q", got, "Waschmaschine")
	}

	view := m.View()
	if !strings.Contains(view, "Waschmaschine") {
		t.Errorf("view does not show the device name:\n%s", view)
	}
	if !strings.Contains(view, "2W") {
		t.Errorf("view does not show the power draw:\n%s", view)
	}
}

func TestUpdate_TickStartsNextSweep(t *testing.T) {
	m := testModel()

	model, cmd := m.Update(pollResultMsg{})
	m = model.(*Model)

	if !m.polling {
		t.Error("tick should flag a sweep in progress")
	}
	if cmd == nil {
		t.Error("tick should return the poll command")
	}
}

func TestUpdate_TickDuringSweepIsIgnored(t *testing.T) {
	m := testModel()
	m.polling = true

	if _, cmd := m.Update(pollResultMsg{}); cmd != nil {
		t.Error("a tick during a running sweep should not start another")
	}
}

func TestUpdate_QuitKey(t *testing.T) {
	m := testModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit the program")
	}
}

func TestPollDevice_ReadsPlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body string
		switch r.URL.Query().Get("cmnd") {
		case "Status 0":
			body = `{"Status":{"DeviceName":"Waschmaschine"}}`
		case "Status 8":
			body = `{"StatusSNS":{"Time":"2026-08-22T07:15:04","ENERGY":{"Total":123.456,"Today":0.229,"Power":2}}}`
		case "Power1":
			body = `{"POWER":"ON"}`
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	addr := strings.TrimPrefix(srv.URL, "http://")
	row := pollDevice(context.Background(), addr, "", time.Second)

	if row.Err != nil {
		t.Fatalf("pollDevice failed: %v", row.Err)
	}
	if row.Name != "Waschmaschine" {
		t.Errorf("Name = %q, want %q", row.Name, "Waschmaschine")
	}
	if row.Power != "2" || row.Relay != "ON" || row.Total != "123.456" {
		t.Errorf("row = %+v, want power 2, relay ON, total 123.456", row)
	}
}

func TestPollDevice_UnreachableKeepsKnownName(t *testing.T) {
	row := pollDevice(context.Background(), "192.0.2.1:1", "Kaffeemaschine", 50*time.Millisecond)

	if row.Err == nil {
		t.Fatal("expected an error for an unreachable device")
	}
	if row.Name != "Kaffeemaschine" {
		t.Errorf("Name = %q, the cached name should survive a failed sweep", row.Name)
	}
}
