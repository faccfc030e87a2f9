package server

import (
	"net/http"
	"strconv"

	"reelsmith-desktop/internal/bootstrap"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 20

// exportState handles GET /api/v1/export
func (s *Server) exportState(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Export.State())
}

// startExport handles POST /api/v1/export
func (s *Server) startExport(c *gin.Context) {
	var req bootstrap.ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format", err)
			return
		}
	}
	runID, err := s.svc.StartExport(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to start export")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": runID})
}

// cancelExport handles POST /api/v1/export/cancel
func (s *Server) cancelExport(c *gin.Context) {
	if err := s.svc.CancelExport(); err != nil {
		respondError(c, err, "No export is running")
		return
	}
	c.JSON(http.StatusOK, s.svc.Export.Snapshot())
}

// retryExport handles POST /api/v1/export/retry
func (s *Server) retryExport(c *gin.Context) {
	if err := s.svc.RetryExport(); err != nil {
		respondError(c, err, "Export is still running")
		return
	}
	c.JSON(http.StatusOK, s.svc.Export.Snapshot())
}

// exportEvents handles GET /api/v1/export/events?since=N
func (s *Server) exportEvents(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": s.svc.Export.EventsSince(since)})
}

// exportHistory handles GET /api/v1/export/history?limit=N
func (s *Server) exportHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 1 {
		badRequest(c, "Invalid limit", err)
		return
	}
	jobs, err := s.svc.History.List(limit)
	if err != nil {
		respondError(c, err, "Failed to load export history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// download handles GET /api/v1/export/download/:handle
func (s *Server) download(c *gin.Context) {
	artifact, data, err := s.svc.Export.Download(c.Param("handle"))
	if err != nil {
		respondError(c, err, "Artifact not found")
		return
	}
	attachment(c, artifact.Filename, artifact.MimeType, data)
}

// listNotifications handles GET /api/v1/notifications
func (s *Server) listNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"toasts": s.svc.Notify.Toasts(),
		"modal":  s.svc.Notify.Modal(),
	})
}

// notificationEvents handles GET /api/v1/notifications/events?since=N
func (s *Server) notificationEvents(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": s.svc.Notify.EventsSince(since)})
}

// dismissNotification handles DELETE /api/v1/notifications/:id
func (s *Server) dismissNotification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid notification ID", err)
		return
	}
	if !s.svc.Notify.Dismiss(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// resolveModal handles POST /api/v1/notifications/modal/resolve
func (s *Server) resolveModal(c *gin.Context) {
	var req struct {
		Index int `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	if err := s.svc.Notify.ResolveModal(req.Index); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// closeModal handles DELETE /api/v1/notifications/modal
func (s *Server) closeModal(c *gin.Context) {
	s.svc.Notify.CloseModal()
	c.Status(http.StatusNoContent)
}

func sinceParam(c *gin.Context) (int64, bool) {
	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid since parameter", err)
		return 0, false
	}
	return since, true
}
