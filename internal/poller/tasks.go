package poller

import (
	"pmbus-exporter/internal/telemetry"
	"pmbus-exporter/pkg/pmbus"
)

// metricDef maps a PMBus command to the exporter-facing metric identity.
type metricDef struct {
	Metric string
	Unit   string
	Sensor string
}

// Command-to-metric table. One entry per polled command; the set of cache
// keys is derived from it at startup and never changes.
var metricDefs = map[byte]metricDef{
	pmbus.ReadVIn.Code:          {Metric: "input_voltage", Unit: "volts"},
	pmbus.ReadIIn.Code:          {Metric: "input_current", Unit: "amps"},
	pmbus.ReadVOut.Code:         {Metric: "output_voltage", Unit: "volts"},
	pmbus.ReadIOut.Code:         {Metric: "output_current", Unit: "amps"},
	pmbus.ReadPIn.Code:          {Metric: "input_power", Unit: "watts"},
	pmbus.ReadPOut.Code:         {Metric: "output_power", Unit: "watts"},
	pmbus.ReadFanSpeed1.Code:    {Metric: "fan_speed", Unit: "rpm"},
	pmbus.ReadTemperature1.Code: {Metric: "temperature", Unit: "celsius", Sensor: "1"},
	pmbus.ReadTemperature2.Code: {Metric: "temperature", Unit: "celsius", Sensor: "2"},
	pmbus.StatusWord.Code:       {Metric: "status"},
}

// MetricSet returns the fixed cache entries for the given module names, one
// per module and polled command. Used to seed telemetry.NewCache before the
// first poll cycle.
func MetricSet(moduleNames []string) []telemetry.Reading {
	var defs []telemetry.Reading
	for _, name := range moduleNames {
		for _, cmd := range pmbus.TelemetryCommands() {
			md := metricDefs[cmd.Code]
			kind := telemetry.KindNumeric
			if cmd.Format == pmbus.FormatStatus {
				kind = telemetry.KindStatus
			}
			defs = append(defs, telemetry.Reading{
				Metric: md.Metric,
				Module: name,
				Sensor: md.Sensor,
				Unit:   md.Unit,
				Kind:   kind,
			})
		}
	}
	return defs
}

// readingKey is the cache key for one module/command pair.
func readingKey(module string, cmd pmbus.Command) string {
	md := metricDefs[cmd.Code]
	return telemetry.Reading{Metric: md.Metric, Module: module, Sensor: md.Sensor}.Key()
}
