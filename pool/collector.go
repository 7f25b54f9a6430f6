package pool

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "segpool"

// Collector exports the statistics of every pool in a Registry as
// Prometheus metrics. Values are read at scrape time.
type Collector struct {
	reg *Registry

	live     *prometheus.Desc
	inUse    *prometheus.Desc
	slots    *prometheus.Desc
	capacity *prometheus.Desc
	segments *prometheus.Desc
	grows    *prometheus.Desc
	resets   *prometheus.Desc
}

// NewCollector returns a collector over r.
func NewCollector(r *Registry) *Collector {
	labels := []string{"type", "mode", "mapped", "segment_size"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricNamespace, "", name), help, labels, nil)
	}
	return &Collector{
		reg:      r,
		live:     desc("live_objects", "Objects allocated and not yet returned."),
		inUse:    desc("used_slots", "Slots marked in use."),
		slots:    desc("slots", "Slots created."),
		capacity: desc("capacity_slots", "Slots the allocated segments can hold."),
		segments: desc("segments", "Allocated storage segments."),
		grows:    desc("segment_grows_total", "Segments appended."),
		resets:   desc("resets_total", "Successful pool resets."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.live
	ch <- c.inUse
	ch <- c.slots
	ch <- c.capacity
	ch <- c.segments
	ch <- c.grows
	ch <- c.resets
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, ps := range c.reg.Snapshot() {
		lv := []string{ps.Name, ps.Mode, strconv.FormatBool(ps.Mapped), strconv.Itoa(ps.SegmentSize)}
		gauge := func(d *prometheus.Desc, v int) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), lv...)
		}
		gauge(c.live, ps.Live)
		gauge(c.inUse, ps.InUse)
		gauge(c.slots, ps.Slots)
		gauge(c.capacity, ps.Capacity)
		gauge(c.segments, ps.Segments)
		ch <- prometheus.MustNewConstMetric(c.grows, prometheus.CounterValue, float64(ps.Grows), lv...)
		ch <- prometheus.MustNewConstMetric(c.resets, prometheus.CounterValue, float64(ps.Resets), lv...)
	}
}
