package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bkuner/opcUaUnifiedAutomation/session"
)

const namespace = "opcua_bridge"

// SessionSource lists the sessions to export. *session.Registry implements it.
type SessionSource interface {
	Sessions() []*session.Session
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(m *session.Metrics) float64
}

// Collector is a prometheus.Collector over the metrics of all sessions of a SessionSource.
type Collector struct {
	src SessionSource

	counters []counterDesc

	inflight *prometheus.Desc
	retries  *prometheus.Desc
	state    *prometheus.Desc
	items    *prometheus.Desc
	badItems *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func newDesc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "session", name), help,
		append([]string{"session"}, labels...), nil)
}

// NewCollector creates a collector for the sessions of src.
func NewCollector(src SessionSource) *Collector {
	counter := func(name, help string, value func(m *session.Metrics) float64) counterDesc {
		return counterDesc{desc: newDesc(name, help), value: value}
	}

	return &Collector{
		src: src,
		counters: []counterDesc{
			counter("connects_total", "Successful connects.",
				func(m *session.Metrics) float64 { return float64(m.ConnectCount.Load()) }),
			counter("connect_errors_total", "Failed connect attempts.",
				func(m *session.Metrics) float64 { return float64(m.ConnectErrCount.Load()) }),
			counter("resyncs_total", "Resolve, read and subscribe cycles.",
				func(m *session.Metrics) float64 { return float64(m.ResyncCount.Load()) }),
			counter("status_events_total", "Connection status events received.",
				func(m *session.Metrics) float64 { return float64(m.StatusEventCount.Load()) }),
			counter("data_changes_total", "Data change notifications dispatched.",
				func(m *session.Metrics) float64 { return float64(m.DataChangeCount.Load()) }),
			counter("reads_total", "Read requests sent.",
				func(m *session.Metrics) float64 { return float64(m.ReadCount.Load()) }),
			counter("read_errors_total", "Failed read requests.",
				func(m *session.Metrics) float64 { return float64(m.ReadErrCount.Load()) }),
			counter("writes_total", "Writes started.",
				func(m *session.Metrics) float64 { return float64(m.WriteCount.Load()) }),
			counter("write_errors_total", "Writes that failed locally or remotely.",
				func(m *session.Metrics) float64 { return float64(m.WriteErrCount.Load()) }),
		},
		inflight: newDesc("writes_inflight", "Writes waiting for completion."),
		retries:  newDesc("reconnect_attempts", "Reconnect attempts since the last successful connect."),
		state:    newDesc("state", "Connection state, 1 for the current state.", "state"),
		items:    newDesc("items", "Items bound to the session."),
		badItems: newDesc("bad_items", "Items with a bad status."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	ch <- c.inflight
	ch <- c.retries
	ch <- c.state
	ch <- c.items
	ch <- c.badItems
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.src.Sessions() {
		tag := s.Tag()
		m := s.Metrics()

		for _, cd := range c.counters {
			ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, cd.value(m), tag)
		}
		ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue, float64(m.WriteInflightCount.Load()), tag)
		ch <- prometheus.MustNewConstMetric(c.retries, prometheus.GaugeValue, float64(m.ConnRetryGauge.Load()), tag)
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, 1, tag, s.State().String())

		items := s.Items()
		bad := 0
		for _, it := range items {
			if !it.Status().IsGood() {
				bad++
			}
		}
		ch <- prometheus.MustNewConstMetric(c.items, prometheus.GaugeValue, float64(len(items)), tag)
		ch <- prometheus.MustNewConstMetric(c.badItems, prometheus.GaugeValue, float64(bad), tag)
	}
}

// NewRegistry creates a prometheus registry holding a Collector for src and the Go runtime
// and process collectors.
func NewRegistry(src SessionSource) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(src),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}
