package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is a snapshot of a database connection pool.
type PoolStats struct {
	Total    int32
	Idle     int32
	Acquired int32
	Max      int32
}

var (
	poolTotal    = prometheus.NewDesc("kidzone_db_pool_connections", "Open connections in the pool.", nil, nil)
	poolIdle     = prometheus.NewDesc("kidzone_db_pool_idle_connections", "Idle connections in the pool.", nil, nil)
	poolAcquired = prometheus.NewDesc("kidzone_db_pool_acquired_connections", "Connections currently in use.", nil, nil)
	poolMax      = prometheus.NewDesc("kidzone_db_pool_max_connections", "Configured pool size.", nil, nil)
)

// poolCollector reads pool stats at scrape time.
type poolCollector struct {
	mu   sync.RWMutex
	stat func() PoolStats
}

var pool = &poolCollector{}

func init() {
	Registry.MustRegister(pool)
}

// ObservePool reports stat on every scrape. A nil stat stops reporting.
func ObservePool(stat func() PoolStats) {
	pool.mu.Lock()
	pool.stat = stat
	pool.mu.Unlock()
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolTotal
	ch <- poolIdle
	ch <- poolAcquired
	ch <- poolMax
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	stat := c.stat
	c.mu.RUnlock()
	if stat == nil {
		return
	}

	s := stat()
	ch <- prometheus.MustNewConstMetric(poolTotal, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(poolIdle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(poolAcquired, prometheus.GaugeValue, float64(s.Acquired))
	ch <- prometheus.MustNewConstMetric(poolMax, prometheus.GaugeValue, float64(s.Max))
}
