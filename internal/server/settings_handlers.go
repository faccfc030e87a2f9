package server

import (
	"io"
	"net/http"

	"reelsmith-desktop/internal/services/settings"

	"github.com/gin-gonic/gin"
)

// getSettings handles GET /api/v1/settings
func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Settings.Get())
}

// saveSettings handles PUT /api/v1/settings
func (s *Server) saveSettings(c *gin.Context) {
	var next settings.Settings
	if err := c.ShouldBindJSON(&next); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	saved, err := s.svc.SaveSettings(next)
	if err != nil {
		respondError(c, err, "Failed to save settings")
		return
	}
	c.JSON(http.StatusOK, saved)
}

// resetSettings handles POST /api/v1/settings/reset
func (s *Server) resetSettings(c *gin.Context) {
	defaults, err := s.svc.ResetSettings()
	if err != nil {
		respondError(c, err, "Failed to reset settings")
		return
	}
	c.JSON(http.StatusOK, defaults)
}

// exportSettings handles GET /api/v1/settings/export?format=json|yaml
func (s *Server) exportSettings(c *gin.Context) {
	doc, err := s.svc.Settings.Export(settings.Format(c.DefaultQuery("format", string(settings.FormatJSON))))
	if err != nil {
		respondError(c, err, "Failed to export settings")
		return
	}
	attachment(c, doc.Filename, doc.MimeType, doc.Data)
}

// importSettings handles POST /api/v1/settings/import. The document is read
// from the multipart field "file" or, failing that, the raw request body
// with ?format=json|yaml.
func (s *Server) importSettings(c *gin.Context) {
	var (
		data   []byte
		format settings.Format
	)
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "Failed to read settings file", err)
			return
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			badRequest(c, "Failed to read settings file", err)
			return
		}
		format = settings.FormatFromFilename(fh.Filename)
	} else {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			badRequest(c, "Failed to read request body", err)
			return
		}
		data = body
		format = settings.Format(c.DefaultQuery("format", string(settings.FormatJSON)))
	}

	imported, err := s.svc.ImportSettings(data, format)
	if err != nil {
		respondError(c, err, "Invalid settings file")
		return
	}
	c.JSON(http.StatusOK, imported)
}
