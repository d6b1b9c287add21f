package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"filevault/internal/logging"
	"filevault/internal/pkg/metrics"
	"filevault/internal/pkg/response"
)

// Probe checks one collaborator.
type Probe func(ctx context.Context) error

type Handler struct {
	probes    map[string]Probe
	collector *metrics.Collector
	timeout   time.Duration
	log       logging.Logger
}

func NewHandler(probes map[string]Probe, collector *metrics.Collector, timeout time.Duration, log logging.Logger) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Handler{probes: probes, collector: collector, timeout: timeout, log: log}
}

// check runs every probe concurrently and reports ok or unavailable per
// collaborator. Causes are logged, not returned.
func (h *Handler) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.probes))
		healthy = true
		g       errgroup.Group
	)
	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		probe := h.probes[name]
		g.Go(func() error {
			status := "ok"
			if err := probe(ctx); err != nil {
				h.log.Warn(ctx, "health probe failed", "probe", name, "error", err)
				status = "unavailable"
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = status
			if status != "ok" {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, healthy
}

// Get godoc
// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Get(c *gin.Context) {
	checks, healthy := h.check(c.Request.Context())
	body := gin.H{
		"checks":  checks,
		"metrics": h.collector.Snapshot(),
	}
	if !healthy {
		response.ErrorWithDetails(c, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "a dependency is unavailable", body)
		return
	}
	body["status"] = "ok"
	response.Success(c, http.StatusOK, body)
}

// Head is a readiness probe without a body.
func (h *Handler) Head(c *gin.Context) {
	if _, healthy := h.check(c.Request.Context()); !healthy {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.Status(http.StatusOK)
}

func RegisterRoutes(r gin.IRoutes, h *Handler) {
	r.GET("/health", h.Get)
	r.HEAD("/health", h.Head)
}
