// Package metrics holds the process's request counters. A Collector lives
// as long as the process; counters start from zero on every restart.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

type Collector struct {
	started  time.Time
	now      func() time.Time
	requests atomic.Int64
	failures atomic.Int64
	inFlight atomic.Int64
}

func NewCollector() *Collector {
	now := time.Now
	return &Collector{started: now(), now: now}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Requests      int64     `json:"requests"`
	ServerErrors  int64     `json:"server_errors"`
	InFlight      int64     `json:"in_flight"`
}

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		StartedAt:     c.started.UTC(),
		UptimeSeconds: int64(c.now().Sub(c.started).Seconds()),
		Requests:      c.requests.Load(),
		ServerErrors:  c.failures.Load(),
		InFlight:      c.inFlight.Load(),
	}
}

// Middleware counts every request and the ones that ended in a 5xx.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		c.requests.Add(1)
		c.inFlight.Add(1)
		defer c.inFlight.Add(-1)

		ctx.Next()

		if ctx.Writer.Status() >= 500 {
			c.failures.Add(1)
		}
	}
}
