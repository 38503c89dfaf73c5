package handler

import (
	"fmt"
	"net/http"

	"github.com/SergeiKhy/geolink/internal/middleware"
	"github.com/SergeiKhy/geolink/internal/response"
	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Links      service.LinkService
	Redirects  service.RedirectService
	Clicks     service.ClickProcessor
	Analytics  service.AnalyticsService
	Activities service.ActivityService
	Auth       service.AuthService
	Users      service.UserService
}

type RouterConfig struct {
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	// HealthDeps are pinged by GET /health.
	HealthDeps map[string]Pinger
	// TrustedProxies may set the client address through X-Forwarded-For. Nil trusts nobody.
	TrustedProxies []string
}

func NewRouter(svc Services, cfg RouterConfig, logger *zap.Logger) (*gin.Engine, error) {
	useJSONFieldNames()

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(
		middleware.Recovery(logger),
		middleware.ZapLogger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.ErrorHandler(logger),
	)
	if cfg.RateLimiter != nil {
		router.Use(cfg.RateLimiter.Middleware())
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.Error("route not found"))
	})

	linkHandler := NewLinkHandler(svc.Links, logger)
	redirectHandler := NewRedirectHandler(svc.Redirects, svc.Clicks, logger)
	dashboardHandler := NewDashboardHandler(svc.Analytics, svc.Activities)
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users)
	healthHandler := NewHealthHandler(cfg.HealthDeps, svc.Clicks)

	requireAuth := middleware.RequireAuth(svc.Auth)

	router.GET("/health", healthHandler.Check)

	auth := router.Group("/auth")
	{
		auth.POST("/sign-up", authHandler.SignUp)
		auth.POST("/sign-in", authHandler.SignIn)
	}

	url := router.Group("/url", requireAuth)
	{
		url.POST("/shorten", linkHandler.CreateLink)
		url.GET("/get-urls", linkHandler.ListLinks)
		url.GET("/get-geo-urls", linkHandler.ListGeoLinks)
		url.GET("/delete/:id", linkHandler.DeleteLink)
		url.DELETE("/:id", linkHandler.DeleteLink)
		url.POST("/:id/add-geo-rule", linkHandler.AddGeoRule)
		url.GET("/:id/remove-geo-rule/:rule_id", linkHandler.RemoveGeoRule)
		url.DELETE("/:id/remove-geo-rule/:rule_id", linkHandler.RemoveGeoRule)
	}

	dashboard := router.Group("/dashboard", requireAuth)
	{
		dashboard.GET("/stats", dashboardHandler.Stats)
		dashboard.GET("/activities", dashboardHandler.Activities)
		dashboard.GET("/geo-stats", dashboardHandler.GeoStats)
	}

	user := router.Group("/user", requireAuth)
	{
		user.GET("/get/:id", userHandler.GetUser)
		user.GET("/verify-token", userHandler.VerifyToken)
		user.POST("/update-user", userHandler.UpdateUser)
	}

	// Static routes above win over the short-code wildcard.
	router.GET("/:shortCode", redirectHandler.Redirect)

	return router, nil
}
