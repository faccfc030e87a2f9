package server

import (
	"net/http"

	"reelsmith-desktop/internal/services/scheduler"

	"github.com/gin-gonic/gin"
)

// listJobs handles GET /api/v1/jobs
func (s *Server) listJobs(c *gin.Context) {
	jobs, err := s.svc.Scheduler.ListJobs()
	if err != nil {
		respondError(c, err, "Failed to list jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// upsertJob handles POST /api/v1/jobs
func (s *Server) upsertJob(c *gin.Context) {
	var req scheduler.UpsertJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	id, err := s.svc.Scheduler.UpsertJob(req)
	if err != nil {
		respondError(c, err, "Failed to save job")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// deleteJob handles DELETE /api/v1/jobs/:id
func (s *Server) deleteJob(c *gin.Context) {
	if err := s.svc.Scheduler.DeleteJob(c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete job")
		return
	}
	c.Status(http.StatusNoContent)
}

// runJob handles POST /api/v1/jobs/:id/run
func (s *Server) runJob(c *gin.Context) {
	if err := s.svc.Scheduler.RunNow(c.Param("id")); err != nil {
		respondError(c, err, "Failed to run job")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
