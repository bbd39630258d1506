package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/archsheet-backend/internal/http/handlers"
	httpMW "github.com/yungbote/archsheet-backend/internal/http/middleware"
	"github.com/yungbote/archsheet-backend/internal/observability"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	SheetHandler  *httpH.SheetHandler
	StreamHandler *httpH.StreamHandler
	HealthHandler *httpH.HealthHandler

	// MediaDir, when set, serves locally stored rasters under /media.
	MediaDir string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("archsheet"))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.MediaDir != "" {
		r.Static("/media", cfg.MediaDir)
	}

	api := r.Group("/api")
	{
		if cfg.SheetHandler != nil {
			api.POST("/designs/:designId/generate", cfg.SheetHandler.Generate)
			api.POST("/designs/:designId/modify", cfg.SheetHandler.Modify)
			api.GET("/designs/:designId", cfg.SheetHandler.GetLatest)
			api.GET("/designs/:designId/versions", cfg.SheetHandler.ListVersions)
		}
		if cfg.StreamHandler != nil {
			api.GET("/designs/:designId/stream", cfg.StreamHandler.Stream)
		}
	}
	if cfg.StreamHandler != nil {
		r.GET("/sse/stream", cfg.StreamHandler.Stream)
	}

	return r
}
