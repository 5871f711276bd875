package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for HTTP metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures one channel call
type Timer struct {
	start   time.Time
	metrics *Metrics
	method  string
}

// NewTimer starts timing a call
func NewTimer(metrics *Metrics, method string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		method:  method,
	}
}

// Stop records the call and returns its duration. A nil Timer metrics is allowed.
func (t *Timer) Stop(outcome string, failed bool) time.Duration {
	d := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.RecordCall(t.method, outcome, failed, d)
	}
	return d
}
