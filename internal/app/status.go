package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StatusProvider exposes the published bot state
type StatusProvider interface {
	Status() Status
}

// StatusServer serves the health and status endpoints
type StatusServer struct {
	server *http.Server
	logger *logrus.Logger
}

// NewStatusServer creates a status server listening on addr
func NewStatusServer(addr string, provider StatusProvider, logger *logrus.Logger) *StatusServer {
	return &StatusServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewStatusHandler(provider, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// NewStatusHandler builds the gin engine of the status endpoints
func NewStatusHandler(provider StatusProvider, logger *logrus.Logger) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		if provider.Status().Stopping {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopping"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, provider.Status())
	})

	return router
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Status request")
	}
}

// Start serves until Shutdown is called
func (s *StatusServer) Start() {
	s.logger.Infof("Status endpoint listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Errorf("Status endpoint failed: %v", err)
	}
}

// Shutdown stops the server
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
