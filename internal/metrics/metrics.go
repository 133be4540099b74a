// Package metrics は Prometheus のメトリクスを定義します。
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "task_manager"

var (
	// EntityOps はエンティティ操作の回数を entity / operation / outcome ごとに数えます。
	EntityOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entity_operations_total",
		Help:      "Number of entity operations by entity, operation and outcome.",
	}, []string{"entity", "operation", "outcome"})

	// HTTPDuration はルートごとのレスポンス時間です。
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveEntityOp は操作結果を記録します。err が nil なら success です。
func ObserveEntityOp(entity, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	EntityOps.WithLabelValues(entity, operation, outcome).Inc()
}

// GinMiddleware はリクエストごとの処理時間を記録します。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
