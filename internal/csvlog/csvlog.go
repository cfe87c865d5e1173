// Package csvlog appends device readings to per-device CSV log files and
// reads them back for analysis.
//
// Log files are self-describing: the first record is a header naming the
// columns, and rows follow whatever column order that header established.
// This keeps old logs readable after the canonical column set changes.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/plugwatch/plugwatch/internal/util"
)

// Columns is the canonical column set, in write order for fresh logs.
var Columns = []string{
	"Time",
	"Voltage",
	"Current",
	"Power",
	"ApparentPower",
	"ReactivePower",
	"Factor",
	"Today",
	"Yesterday",
	"Total",
	"Temperature1",
	"TotalStartTime",
	"power1",
}

var columnSet = func() map[string]bool {
	m := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		m[c] = true
	}
	return m
}()

// Source provides values for log columns. tasmota.Reading satisfies this.
type Source interface {
	Value(column string) (string, bool)
}

// FileName builds the log file name for a device. The device name is
// slugged for filesystem safety; an empty name falls back to "tasmota".
func FileName(deviceName, addr string) string {
	slug := "tasmota"
	if deviceName != "" {
		slug = util.FileSlug(deviceName)
	}
	return fmt.Sprintf("%s_%s_log.csv", slug, addr)
}

// Append writes one reading to the log at path, creating the file with a
// canonical header when needed.
//
// TODO: prune rows older than the detection window; logs currently grow
// without bound.
func Append(path string, src Source) error {
	header, writeHeader := adoptHeader(path)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	row := make([]string, len(header))
	for i, column := range header {
		v, _ := src.Value(column)
		row[i] = v
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing log: %w", err)
	}
	return f.Close()
}

// adoptHeader reads the first record of an existing log and adopts it as
// the column order if every item is a known column. Otherwise (missing
// file, empty file, unknown columns) the canonical header is used and
// appended to the file.
func adoptHeader(path string) (header []string, writeHeader bool) {
	f, err := os.Open(path)
	if err != nil {
		return Columns, true
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first, err := r.Read()
	if err != nil || len(first) == 0 {
		return Columns, true
	}
	for _, item := range first {
		if !columnSet[item] {
			return Columns, true
		}
	}
	return first, false
}

// Table is a parsed log file.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of a column in the header, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Header {
		if c == column {
			return i
		}
	}
	return -1
}

// Read parses the log at path into a header and data rows.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing log: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}
