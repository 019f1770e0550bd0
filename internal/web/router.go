package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Router struct {
	debugHandler *DebugHandler
	logger       *zap.Logger
}

func NewRouter(debugHandler *DebugHandler, logger *zap.Logger) *Router {
	return &Router{
		debugHandler: debugHandler,
		logger:       logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(RequestID())
	router.Use(Logger(r.logger))
	router.Use(ErrorHandler(r.logger))

	router.GET("/healthz", r.debugHandler.HealthCheck)

	debug := router.Group("/debug")
	{
		debug.POST("/render", r.debugHandler.RenderPreview)
		debug.GET("/query", r.debugHandler.QueryOrder)
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "heyaobot is running",
		})
	})

	return router
}
