package server

import (
	"net/http"

	"reelsmith-desktop/internal/services/media"

	"github.com/gin-gonic/gin"
)

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type uploadFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// listMedia handles GET /api/v1/media
func (s *Server) listMedia(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items":     s.svc.Media.Items(),
		"totalSize": s.svc.Media.TotalSize(),
	})
}

// uploadMedia handles POST /api/v1/media (multipart field "files")
func (s *Server) uploadMedia(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "Invalid multipart form", err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		badRequest(c, "No files provided", nil)
		return
	}

	added := make([]media.Item, 0, len(files))
	var failures []uploadFailure
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			failures = append(failures, uploadFailure{Name: fh.Filename, Error: err.Error()})
			continue
		}
		item, err := s.svc.Media.Add(c.Request.Context(), fh.Filename, f, fh.Size, nil)
		f.Close()
		if err != nil {
			s.svc.Report(err, "Failed to upload "+fh.Filename)
			failures = append(failures, uploadFailure{Name: fh.Filename, Error: err.Error()})
			continue
		}
		added = append(added, item)
	}

	status := http.StatusCreated
	if len(added) == 0 {
		status = http.StatusBadRequest
	} else {
		s.svc.Notify.Success("Media files uploaded successfully!")
	}
	c.JSON(status, gin.H{"items": added, "failures": failures})
}

// reorderMedia handles PUT /api/v1/media/order
func (s *Server) reorderMedia(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	if err := s.svc.ReorderMedia(req.From, req.To); err != nil {
		respondError(c, err, "Failed to reorder media files")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": s.svc.Media.Items()})
}

// mediaFile handles GET /api/v1/media/:id/file
func (s *Server) mediaFile(c *gin.Context) {
	item, err := s.svc.Media.Preview(c.Param("id"))
	if err != nil {
		respondError(c, err, "Media file not found")
		return
	}
	c.Header("Content-Type", item.Type)
	c.File(item.Path)
}

// removeMedia handles DELETE /api/v1/media/:id
func (s *Server) removeMedia(c *gin.Context) {
	if err := s.svc.RemoveMedia(c.Param("id")); err != nil {
		respondError(c, err, "Failed to remove file")
		return
	}
	c.Status(http.StatusNoContent)
}

// clearMedia handles DELETE /api/v1/media
func (s *Server) clearMedia(c *gin.Context) {
	if err := s.svc.ClearMedia(); err != nil {
		respondError(c, err, "Failed to clear media files")
		return
	}
	c.Status(http.StatusNoContent)
}
