package flow

import "github.com/prometheus/client_golang/prometheus"

// Metrics implements prometheus.Collector over a Table, exposing the
// current flow count and per-bucket occupancy without requiring any
// locking of its own: Collect reads the Table's state synchronously,
// assuming the caller only registers it against a Table that is not
// concurrently driven from another goroutine (the same single-writer
// assumption Table.Process itself carries).
type Metrics struct {
	table *Table

	flowCount *prometheus.Desc
	bucketAge *prometheus.Desc
}

// NewMetrics wraps table for Prometheus registration.
func NewMetrics(table *Table) *Metrics {
	return &Metrics{
		table: table,
		flowCount: prometheus.NewDesc(
			"imapflow_active_flows",
			"Number of flows currently tracked by the table.",
			nil, nil,
		),
		bucketAge: prometheus.NewDesc(
			"imapflow_time_buckets",
			"Number of occupied idle-expiry time buckets.",
			nil, nil,
		),
	}
}

func (m *Metrics) Describe(descs chan<- *prometheus.Desc) {
	descs <- m.flowCount
	descs <- m.bucketAge
}

func (m *Metrics) Collect(metrics chan<- prometheus.Metric) {
	metrics <- prometheus.MustNewConstMetric(m.flowCount, prometheus.GaugeValue, float64(m.table.FlowCount()))
	metrics <- prometheus.MustNewConstMetric(m.bucketAge, prometheus.GaugeValue, float64(len(m.table.buckets)))
}
