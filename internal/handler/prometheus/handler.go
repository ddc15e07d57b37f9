package prometheus

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/citysmiles/dental-admin/pkg/metrics"
)

type Handler struct {
	gatherer prometheus.Gatherer
	metrics  *metrics.Metrics
}

// New serves gatherer and records request metrics into m. A nil gatherer
// means the default registry.
func New(gatherer prometheus.Gatherer, m *metrics.Metrics) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{gatherer: gatherer, metrics: m}
}

func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if h.metrics == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		h.metrics.RequestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		h.metrics.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}
