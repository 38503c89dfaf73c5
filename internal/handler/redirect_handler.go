package handler

import (
	"context"
	"net/http"

	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RedirectHandler struct {
	redirects service.RedirectService
	clicks    service.ClickProcessor
	logger    *zap.Logger
}

func NewRedirectHandler(redirects service.RedirectService, clicks service.ClickProcessor, logger *zap.Logger) *RedirectHandler {
	return &RedirectHandler{redirects: redirects, clicks: clicks, logger: logger}
}

// Redirect handles GET /:shortCode. The response is flushed before the click is queued.
func (h *RedirectHandler) Redirect(c *gin.Context) {
	code := c.Param("shortCode")

	result, err := h.redirects.Resolve(c.Request.Context(), code, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Redirect(http.StatusFound, result.URL)
	c.Writer.Flush()

	if err := h.clicks.RecordClick(context.WithoutCancel(c.Request.Context()), result.Event); err != nil {
		h.logger.Warn("click not queued", zap.String("code", code), zap.Error(err))
	}
}
