// Package server exposes annotation sessions over an HTTP/JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lehigh-university-libraries/sroie/internal/session"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	sessions       *session.Manager
	maxUploadBytes int64
	router         *gin.Engine
}

// New builds the router. maxUploadMB bounds every multipart upload.
func New(sessions *session.Manager, maxUploadMB int64) *Server {
	s := &Server{
		sessions:       sessions,
		maxUploadBytes: maxUploadMB << 20,
	}

	r := gin.New()
	r.MaxMultipartMemory = s.maxUploadBytes
	r.Use(requestLogger(), gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api/sessions")
	api.POST("", s.handleCreateSession)

	sess := api.Group("/:id", s.loadSession)
	sess.GET("", s.handleGetSession)
	sess.DELETE("", s.handleDeleteSession)
	sess.POST("/image", s.handleUploadImage)
	sess.POST("/credentials", s.handleUploadCredentials)
	sess.PUT("/engine", s.handleSetEngine)
	sess.POST("/regions", s.handleSelectRegion)
	sess.GET("/regions/current/crop", s.handleCropPreview)
	sess.POST("/categories", s.handleAddCategory)
	sess.POST("/annotations", s.handleAddAnnotation)
	sess.GET("/export/text", s.handleExportText)
	sess.GET("/export/json", s.handleExportJSON)
	sess.GET("/export/image", s.handleExportImage)

	s.router = r
	return s
}

// Handler returns the HTTP handler for the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("SROIE annotator available", "url", fmt.Sprintf("http://%s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP())
	}
}
