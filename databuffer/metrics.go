package databuffer

import "github.com/prometheus/client_golang/prometheus"

// bufferCollector exports a CacheBuffer's stats as Prometheus counters
// without requiring the buffer itself to know about Prometheus types.
type bufferCollector[M any] struct {
	buf       *CacheBuffer[M]
	filled    *prometheus.Desc
	dropped   *prometheus.Desc
	fused     *prometheus.Desc
	occupancy *prometheus.Desc
}

func newBufferCollector[M any](buf *CacheBuffer[M]) prometheus.Collector {
	return &bufferCollector[M]{
		buf:       buf,
		filled:    prometheus.NewDesc("cachebuffer_filled_total", "Total Fill calls", nil, nil),
		dropped:   prometheus.NewDesc("cachebuffer_dropped_total", "Total Fills that overwrote the oldest element", nil, nil),
		fused:     prometheus.NewDesc("cachebuffer_fused_total", "Total Fills routed through a fusion callback", nil, nil),
		occupancy: prometheus.NewDesc("cachebuffer_occupancy", "Current size / capacity", nil, nil),
	}
}

func (c *bufferCollector[M]) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.filled
	ch <- c.dropped
	ch <- c.fused
	ch <- c.occupancy
}

func (c *bufferCollector[M]) Collect(ch chan<- prometheus.Metric) {
	s := c.buf.Stats()
	ch <- prometheus.MustNewConstMetric(c.filled, prometheus.CounterValue, float64(s.Filled))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(c.fused, prometheus.CounterValue, float64(s.Fused))

	cap := c.buf.Capacity()
	if cap == 0 {
		ch <- prometheus.MustNewConstMetric(c.occupancy, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.occupancy, prometheus.GaugeValue, float64(c.buf.Size())/float64(cap))
}
