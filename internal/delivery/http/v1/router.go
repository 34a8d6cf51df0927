package v1

import (
	"log/slog"
	"net/http"

	"almeone-contact-api/config"
	"almeone-contact-api/internal/delivery/http/middleware"
	"almeone-contact-api/internal/delivery/http/response"
	"almeone-contact-api/internal/domain"
	"almeone-contact-api/internal/usecase"
	"almeone-contact-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	ContactUC domain.ContactUsecase
	HealthUC  usecase.HealthUsecase
	Config    *config.Config
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = logger.Log
	}

	r := gin.New()
	if err := r.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
		log.Warn("invalid TRUSTED_PROXIES, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	// Global Middlewares
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(gin.Logger())
	// CORS runs for unmatched routes too, so preflight never 404s.
	r.Use(middleware.CORSMiddleware(deps.Config.AllowedOrigins))
	r.Use(middleware.ErrorHandler(deps.Config.DebugEnabled(), log))

	api := r.Group("/api")
	api.Use(middleware.SecurityHeadersMiddleware(deps.Config.IsProduction()))

	NewHealthHandler(api, deps.HealthUC)
	NewContactHandler(api, deps.ContactUC)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger
	if !deps.Config.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Not found", nil)
	})

	return r
}
