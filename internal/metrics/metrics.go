package metrics

import (
	"net/http"
	"strconv"

	"github.com/Hakuto4838/GridSkipList/skiplist/grid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 以 prometheus 記錄 skip list 的操作結果，實作 grid.Observer
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	heights    prometheus.Histogram
	levelNodes *prometheus.GaugeVec
}

var _ grid.Observer = (*Collector)(nil)

// NewCollector 建立 Collector；maxLevel 決定高度直方圖的 bucket
func NewCollector(namespace string, maxLevel int) *Collector {
	buckets := make([]float64, 0, maxLevel)
	for h := 0; h < maxLevel; h++ {
		buckets = append(buckets, float64(h))
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Skip list operations by kind and outcome",
		}, []string{"op", "result"}),
		heights: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insert_height",
			Help:      "Heights drawn for inserted keys",
			Buckets:   buckets,
		}),
		levelNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "level_nodes",
			Help:      "Number of nodes per level",
		}, []string{"level"}),
	}
	c.registry.MustRegister(c.operations, c.heights, c.levelNodes)
	return c
}

func (c *Collector) ObserveSearch(found bool) {
	c.operations.WithLabelValues("search", outcome(found, "hit", "miss")).Inc()
}

func (c *Collector) ObserveInsert(height int, inserted bool) {
	if !inserted {
		c.operations.WithLabelValues("insert", "duplicate").Inc()
		return
	}
	c.operations.WithLabelValues("insert", "ok").Inc()
	c.heights.Observe(float64(height))
}

func (c *Collector) ObserveRemove(removed bool) {
	c.operations.WithLabelValues("remove", outcome(removed, "ok", "absent")).Inc()
}

// LevelSource 提供每層節點數
type LevelSource interface {
	MaxLevel() int
	LevelLen(level int) int
}

// RecordLevels 將每層的節點數寫入 gauge
func (c *Collector) RecordLevels(src LevelSource) {
	for lvl := 0; lvl <= src.MaxLevel(); lvl++ {
		c.levelNodes.WithLabelValues(strconv.Itoa(lvl)).Set(float64(src.LevelLen(lvl)))
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 回傳 /metrics 的 http handler
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
