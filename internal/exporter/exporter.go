// Package exporter republishes telemetry snapshots as Prometheus metrics.
// It only ever reads point-in-time snapshots, never the live cache, so a
// scrape cannot block on or observe an in-flight poll cycle.
package exporter

import (
	"github.com/prometheus/client_golang/prometheus"

	"pmbus-exporter/internal/telemetry"
	"pmbus-exporter/pkg/pmbus"
)

// SnapshotSource hands out consistent copies of the current readings.
type SnapshotSource interface {
	Snapshot() telemetry.Snapshot
}

// Collector implements prometheus.Collector over a SnapshotSource. Each
// numeric reading becomes a gauge labelled by module (and sensor where the
// metric has several probes); status flags become one 0/1 gauge per named
// flag. Every reading additionally exports its last-success timestamp and
// an error indicator so staleness is visible to dashboards.
type Collector struct {
	source    SnapshotSource
	namespace string
}

// New builds a collector publishing under the given namespace.
func New(source SnapshotSource, namespace string) *Collector {
	return &Collector{source: source, namespace: namespace}
}

// Describe implements prometheus.Collector via DescribeByCollect: the metric
// set is fixed per config, but deriving it from a snapshot keeps one source
// of truth.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()

	for _, r := range snap {
		vals := []string{r.Module}
		if r.Sensor != "" {
			vals = append(vals, r.Sensor)
		}

		switch r.Kind {
		case telemetry.KindNumeric:
			if r.HasValue {
				ch <- prometheus.MustNewConstMetric(
					c.valueDesc(r), prometheus.GaugeValue, r.Value, vals...)
			}
		case telemetry.KindStatus:
			if r.HasValue {
				for _, bit := range pmbus.StatusWordBits {
					v := 0.0
					if r.Flags.Has(bit.Name) {
						v = 1
					}
					ch <- prometheus.MustNewConstMetric(
						c.desc("status_flag", "PSU fault/warning flag from STATUS_WORD (1 = raised).",
							"module", "flag"),
						prometheus.GaugeValue, v, r.Module, bit.Name)
				}
			}
		}

		// Per-reading health, emitted whether or not a value exists yet.
		readingLabels := []string{r.Module, r.Metric, r.Sensor}
		if !r.LastSuccess.IsZero() {
			ch <- prometheus.MustNewConstMetric(
				c.desc("reading_last_success_timestamp_seconds",
					"Unix time of the last successful poll of this reading.",
					"module", "metric", "sensor"),
				prometheus.GaugeValue, float64(r.LastSuccess.Unix()), readingLabels...)
		}
		errVal := 0.0
		if r.LastError != "" {
			errVal = 1
		}
		ch <- prometheus.MustNewConstMetric(
			c.desc("reading_error",
				"Whether the most recent poll of this reading failed (value may be stale).",
				"module", "metric", "sensor"),
			prometheus.GaugeValue, errVal, readingLabels...)
	}
}

// valueDesc builds the gauge desc for a numeric reading, with the unit as
// the conventional name suffix.
func (c *Collector) valueDesc(r telemetry.Reading) *prometheus.Desc {
	name := r.Metric
	if r.Unit != "" {
		name += "_" + r.Unit
	}
	labels := []string{"module"}
	if r.Sensor != "" {
		labels = append(labels, "sensor")
	}
	return c.desc(name, "PSU telemetry reading decoded from PMBus.", labels...)
}

func (c *Collector) desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "", name), help, labels, nil)
}
