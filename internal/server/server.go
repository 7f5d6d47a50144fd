// Package server is the HTTP adapter over the prediction service: request
// parsing, routing and error mapping, nothing more.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phasecast/phasecast/internal/prediction"
)

// Server wires the prediction service into a gin router.
type Server struct {
	svc *prediction.Service
	log *slog.Logger
}

// New creates a Server over the given service.
func New(svc *prediction.Service, log *slog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/", s.handleRoot)

	api := router.Group("/api/v1")
	{
		api.GET("/info", s.handleInfo)
		api.POST("/predict", s.handlePredict)
		api.GET("/analytics/:user_id", s.handleAnalytics)
		api.GET("/history/:user_id", s.handleHistory)
		api.GET("/export/:user_id", s.handleExport)
		api.GET("/users", s.handleUsers)
		api.DELETE("/user/:user_id", s.handleDeleteUser)
	}

	return router
}

// requestLogger tags every request with an id and logs method, path, status
// and latency.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		start := time.Now()

		c.Next()

		s.log.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
