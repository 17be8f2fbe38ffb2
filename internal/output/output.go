// Package output writes one-shot telemetry snapshots to files, for
// spot-checking a PSU without a Prometheus server.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"pmbus-exporter/internal/telemetry"
)

// WriteJSON writes the snapshot to a JSON file with pretty formatting.
func WriteJSON(path string, snap telemetry.Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteCSV flattens the snapshot and writes it to a CSV file.
// Columns: module,metric,sensor,unit,value,flags,last_success,last_error
func WriteCSV(path string, snap telemetry.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"module", "metric", "sensor", "unit", "value", "flags", "last_success", "last_error"}
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range snap {
		var value, flags string
		if r.HasValue {
			switch r.Kind {
			case telemetry.KindNumeric:
				value = strconv.FormatFloat(r.Value, 'f', -1, 64)
			case telemetry.KindStatus:
				flags = joinFlags(r)
			}
		}
		rec := []string{
			r.Module,
			r.Metric,
			r.Sensor,
			r.Unit,
			value,
			flags,
			timeToRFC3339(r.LastSuccess),
			r.LastError,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func joinFlags(r telemetry.Reading) string {
	names := make([]string, 0, len(r.Flags))
	for name := range r.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}

func timeToRFC3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
