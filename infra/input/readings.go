package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/fieldfleet/core/model"
)

// ErrInvalidReading is returned for malformed reading rows.
var ErrInvalidReading = errors.New("invalid reading")

var (
	unitColumns  = []string{"unit_id", "district_id"}
	timeColumns  = []string{"timestamp", "date"}
	valueColumns = []string{"index_value", "ndvi", "value"}
)

// LoadReadings reads a readings CSV file.
func LoadReadings(path string) ([]model.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open readings: %w", err)
	}
	defer f.Close()
	return DecodeReadings(f)
}

// DecodeReadings parses CSV readings. The header must name a unit column, a
// timestamp column and a value column; other columns are ignored.
// Timestamps are RFC3339 or plain dates, read as UTC midnight.
func DecodeReadings(r io.Reader) ([]model.Reading, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidReading)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	unitIdx, tsIdx, valIdx := column(header, unitColumns), column(header, timeColumns), column(header, valueColumns)
	if unitIdx < 0 || tsIdx < 0 || valIdx < 0 {
		return nil, fmt.Errorf("%w: header must contain unit_id, timestamp and index_value", ErrInvalidReading)
	}
	width := max(unitIdx, tsIdx, valIdx) + 1

	readings := []model.Reading{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < width {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrInvalidReading, line, len(rec))
		}
		id := strings.TrimSpace(rec[unitIdx])
		if id == "" {
			return nil, fmt.Errorf("%w: line %d: missing unit id", ErrInvalidReading, line)
		}
		ts, err := ParseTime(rec[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidReading, line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[valIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad value %q", ErrInvalidReading, line, rec[valIdx])
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: line %d: non-finite value %q", ErrInvalidReading, line, rec[valIdx])
		}
		readings = append(readings, model.Reading{UnitID: id, Timestamp: ts, Value: v})
	}
	return readings, nil
}

// ParseTime accepts RFC3339 timestamps and YYYY-MM-DD dates.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	return t, nil
}

func column(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}
