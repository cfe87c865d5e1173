// Package detect decides when a plugged-in appliance finished its cycle,
// was switched off, or started a new one, based on the recent power draw
// recorded in the CSV log.
//
// The scan walks the log newest to oldest. A sample at or below the off
// threshold counts as off; one above it but within the idle threshold
// counts as done-but-idle. The walk stops once it has seen more than the
// configured minimum of samples and the visited span exceeds the idle
// window, so old cycles don't bleed into the current one.
package detect

import (
	"fmt"
	"strconv"
	"time"

	"github.com/plugwatch/plugwatch/internal/csvlog"
	"github.com/plugwatch/plugwatch/internal/state"
)

// Kind names a cycle transition.
type Kind string

const (
	Done Kind = "done"
	Off  Kind = "off"
	On   Kind = "on"
)

// Event is a transition that should be announced.
type Event struct {
	Kind    Kind
	Message string
	// Loud events override the receiver's muted notifications.
	Loud bool
}

// Window aggregates the newest slice of the log.
type Window struct {
	// DoneCount is the number of idle samples seen (above off, at or
	// below the idle threshold).
	DoneCount int
	// OffCount is the number of samples at or below the off threshold.
	OffCount int

	// OldestTime and NewestTime span every visited sample, including the
	// one that ended the walk.
	OldestTime time.Time
	NewestTime time.Time

	// WindowTotal is the meter total of the oldest sample inside the
	// window, kept verbatim for the sidecar.
	WindowTotal string

	// NewestPower and NewestTotal describe the most recent sample.
	// NewestOK is false when the log has no usable newest row.
	NewestPower float64
	NewestTotal string
	NewestOK    bool
}

// Scan walks the log table backwards and aggregates the detection window
// using the sidecar's thresholds.
func Scan(table *csvlog.Table, s *state.Sidecar) (Window, error) {
	timeIdx := table.Index("Time")
	powerIdx := table.Index("Power")
	totalIdx := table.Index("Total")
	if timeIdx < 0 || powerIdx < 0 || totalIdx < 0 {
		return Window{}, fmt.Errorf("log header lacks Time, Power or Total: %v", table.Header)
	}

	var w Window
	idleSpan := time.Duration(s.MinIdleMinutes * float64(time.Minute))

	rows := table.Rows
	for i := len(rows) - 1; i >= 0; i-- {
		count := len(rows) - 1 - i
		row := rows[i]
		if len(row) <= timeIdx || len(row) <= powerIdx || len(row) <= totalIdx {
			continue
		}

		power, err := strconv.ParseFloat(row[powerIdx], 64)
		if err != nil {
			continue
		}
		ts, err := state.ParseTime(row[timeIdx])
		if err != nil {
			continue
		}

		if w.NewestTime.IsZero() || ts.After(w.NewestTime) {
			w.NewestTime = ts
		}
		if w.OldestTime.IsZero() || ts.Before(w.OldestTime) {
			w.OldestTime = ts
		}

		// The row that overflows the window still counts into the span
		// above, but not into the tallies below.
		if count > s.MinIdleCount && w.NewestTime.Sub(w.OldestTime) > idleSpan {
			break
		}

		w.WindowTotal = row[totalIdx]
		if s.OffPower < power && power <= s.MaxIdlePower {
			w.DoneCount++
		}
		if power <= s.OffPower {
			w.OffCount++
		}
	}

	if len(rows) > 0 {
		newest := rows[len(rows)-1]
		if len(newest) > powerIdx && len(newest) > totalIdx {
			if power, err := strconv.ParseFloat(newest[powerIdx], 64); err == nil {
				w.NewestPower = power
				w.NewestTotal = newest[totalIdx]
				w.NewestOK = true
			}
		}
	}

	return w, nil
}

// Evaluate applies the window to the sidecar's markers and returns the
// notifications due. Marker times and totals are stamped in place; the
// caller persists the sidecar and records LastSent after delivery.
//
// The three stamp conditions all compare against the marker times as they
// were before this evaluation, so one transition updating its marker does
// not suppress another in the same pass.
func Evaluate(s *state.Sidecar, w Window, logName string) []Event {
	var events []Event

	onTime := s.Stats.On.TimeValue()
	offTime := s.Stats.Off.TimeValue()
	doneTime := s.Stats.Done.TimeValue()

	name := s.DeviceName
	if name == "" {
		name = "`" + logName + "`"
	}

	if w.DoneCount >= s.MinDoneCount {
		if onTime.After(doneTime) || offTime.After(doneTime) || doneTime.IsZero() {
			s.Stats.Done.Time = state.FormatTime(w.OldestTime)
			s.Stats.Done.PowerTotal = w.WindowTotal
		}
		lastSent := s.Stats.Done.LastSentValue()
		if lastSent.IsZero() || lastSent.Before(s.Stats.Done.TimeValue()) {
			used := s.Stats.Done.PowerTotalValue() - s.Stats.On.PowerTotalValue()
			dur := s.Stats.Done.TimeValue().Sub(s.Stats.On.TimeValue())
			events = append(events, Event{
				Kind: Done,
				Loud: true,
				Message: fmt.Sprintf("%s Fertig\n%sW verbraucht in %s",
					name, strconv.FormatFloat(used, 'f', -1, 64), dur),
			})
		}
	}

	if w.OffCount >= s.MinDoneCount {
		if onTime.After(offTime) || doneTime.After(offTime) || offTime.IsZero() {
			s.Stats.Off.Time = state.FormatTime(w.OldestTime)
			s.Stats.Off.PowerTotal = w.WindowTotal
		}
		lastSent := s.Stats.Off.LastSentValue()
		if lastSent.IsZero() || lastSent.Before(s.Stats.Off.TimeValue()) {
			events = append(events, Event{Kind: Off, Message: name + " aus"})
		}
	}

	if w.OffCount >= s.MinDoneCount-1 && w.NewestOK && w.NewestPower > s.OffPower {
		if offTime.After(onTime) || doneTime.After(onTime) || onTime.IsZero() {
			s.Stats.On.Time = state.FormatTime(w.NewestTime)
			s.Stats.On.PowerTotal = w.NewestTotal
		}
		lastSent := s.Stats.On.LastSentValue()
		if lastSent.IsZero() || lastSent.Before(s.Stats.On.TimeValue()) {
			events = append(events, Event{Kind: On, Message: name + " gestartet"})
		}
	}

	return events
}

// MarkerFor returns the sidecar marker a transition kind stamps.
func MarkerFor(s *state.Sidecar, kind Kind) *state.Marker {
	switch kind {
	case Done:
		return &s.Stats.Done
	case Off:
		return &s.Stats.Off
	case On:
		return &s.Stats.On
	}
	return nil
}
