package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency the health check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps  map[string]Pinger
	queue service.ClickProcessor
}

// NewHealthHandler pings every named dependency on each request.
func NewHealthHandler(deps map[string]Pinger, queue service.ClickProcessor) *HealthHandler {
	return &HealthHandler{deps: deps, queue: queue}
}

type HealthResponse struct {
	Status string              `json:"status"`
	Checks map[string]string   `json:"checks"`
	Queue  *service.QueueStats `json:"queue,omitempty"`
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	results := make([]string, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			if err := h.deps[name].Ping(ctx); err != nil {
				results[i] = "down"
				return err
			}
			results[i] = "up"
			return nil
		})
	}
	healthy := g.Wait() == nil

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for i, name := range names {
		resp.Checks[name] = results[i]
	}
	if h.queue != nil {
		stats := h.queue.Stats()
		resp.Queue = &stats
	}

	status := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
