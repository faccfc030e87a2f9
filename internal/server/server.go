// Package server exposes the application services over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"reelsmith-desktop/internal/bootstrap"

	"github.com/gin-gonic/gin"
)

// Server serves the /api/v1 routes for one service container.
type Server struct {
	svc *bootstrap.Services
	log *slog.Logger
}

// New creates a server over svc.
func New(svc *bootstrap.Services) *Server {
	return &Server{svc: svc, log: svc.Log.With("component", "http")}
}

// Handler builds a gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers the API routes on router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", s.health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analysis", s.analyze)
		v1.POST("/analysis/test-key", s.testKey)
		v1.DELETE("/analysis/cache", s.clearAnalysisCache)

		v1.GET("/credentials/gemini", s.credentialSource)
		v1.PUT("/credentials/gemini", s.setAPIKey)
		v1.DELETE("/credentials/gemini", s.clearAPIKey)
	}

	ideas := v1.Group("/ideas")
	{
		ideas.GET("", s.listIdeas)
		ideas.POST("", s.saveIdea)
		ideas.GET("/tags", s.ideaTags)
		ideas.GET("/export", s.exportIdeas)
		ideas.GET("/selected", s.selectedIdea)
		ideas.GET("/:id", s.getIdea)
		ideas.DELETE("/:id", s.deleteIdea)
		ideas.POST("/:id/remake", s.remakeIdea)
	}

	templates := v1.Group("/templates")
	{
		templates.GET("", s.listTemplates)
		templates.GET("/categories", s.templateCategories)
		templates.GET("/selected", s.selectedTemplate)
		templates.GET("/:id", s.getTemplate)
		templates.POST("/:id/select", s.selectTemplate)
	}

	media := v1.Group("/media")
	{
		media.GET("", s.listMedia)
		media.POST("", s.uploadMedia)
		media.DELETE("", s.clearMedia)
		media.PUT("/order", s.reorderMedia)
		media.GET("/:id/file", s.mediaFile)
		media.DELETE("/:id", s.removeMedia)
	}

	settings := v1.Group("/settings")
	{
		settings.GET("", s.getSettings)
		settings.PUT("", s.saveSettings)
		settings.POST("/reset", s.resetSettings)
		settings.GET("/export", s.exportSettings)
		settings.POST("/import", s.importSettings)
	}

	export := v1.Group("/export")
	{
		export.GET("", s.exportState)
		export.POST("", s.startExport)
		export.POST("/cancel", s.cancelExport)
		export.POST("/retry", s.retryExport)
		export.GET("/events", s.exportEvents)
		export.GET("/history", s.exportHistory)
		export.GET("/download/:handle", s.download)
	}

	notifications := v1.Group("/notifications")
	{
		notifications.GET("", s.listNotifications)
		notifications.GET("/events", s.notificationEvents)
		notifications.DELETE("/:id", s.dismissNotification)
		notifications.POST("/modal/resolve", s.resolveModal)
		notifications.DELETE("/modal", s.closeModal)
	}

	jobs := v1.Group("/jobs")
	{
		jobs.GET("", s.listJobs)
		jobs.POST("", s.upsertJob)
		jobs.DELETE("/:id", s.deleteJob)
		jobs.POST("/:id/run", s.runJob)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP API listening", "addr", addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down HTTP API")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// health handles GET /health
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"export":   s.svc.Export.Snapshot().Status,
		"provider": s.svc.Config.LLMProvider,
	})
}
