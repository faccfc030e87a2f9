package server

import (
	"net/http"

	"reelsmith-desktop/internal/services/analysis"
	"reelsmith-desktop/internal/services/ideas"
	"reelsmith-desktop/internal/services/templates"

	"github.com/gin-gonic/gin"
)

type analyzeRequest struct {
	URL string `json:"url"`
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// analyze handles POST /api/v1/analysis
func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	result, err := s.svc.AnalyzeReel(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err, "Failed to analyze the Instagram Reel. Please try again.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// testKey handles POST /api/v1/analysis/test-key
func (s *Server) testKey(c *gin.Context) {
	if err := s.svc.Analysis.TestAPIKey(c.Request.Context()); err != nil {
		respondError(c, err, "API key test failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// clearAnalysisCache handles DELETE /api/v1/analysis/cache
func (s *Server) clearAnalysisCache(c *gin.Context) {
	s.svc.Analysis.ClearCache()
	c.Status(http.StatusNoContent)
}

// credentialSource handles GET /api/v1/credentials/gemini
func (s *Server) credentialSource(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"source": s.svc.Credentials.Source()})
}

// setAPIKey handles PUT /api/v1/credentials/gemini
func (s *Server) setAPIKey(c *gin.Context) {
	var req apiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	if err := s.svc.SaveAPIKey(req.APIKey); err != nil {
		respondError(c, err, "Failed to save API key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": s.svc.Credentials.Source()})
}

// clearAPIKey handles DELETE /api/v1/credentials/gemini
func (s *Server) clearAPIKey(c *gin.Context) {
	if err := s.svc.SaveAPIKey(""); err != nil {
		respondError(c, err, "Failed to remove API key")
		return
	}
	c.Status(http.StatusNoContent)
}

// listIdeas handles GET /api/v1/ideas
func (s *Server) listIdeas(c *gin.Context) {
	var q ideas.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query", err)
		return
	}
	list, err := s.svc.Ideas.Query(q)
	if err != nil {
		respondError(c, err, "Failed to load ideas")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ideas": list, "count": len(list)})
}

// saveIdea handles POST /api/v1/ideas
func (s *Server) saveIdea(c *gin.Context) {
	var result analysis.Result
	if err := c.ShouldBindJSON(&result); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	idea, err := s.svc.SaveAnalysis(result)
	if err != nil {
		respondError(c, err, "Failed to save analysis. Please try again.")
		return
	}
	c.JSON(http.StatusCreated, idea)
}

// ideaTags handles GET /api/v1/ideas/tags
func (s *Server) ideaTags(c *gin.Context) {
	tags, err := s.svc.Ideas.AvailableTags()
	if err != nil {
		respondError(c, err, "Failed to load tags")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// exportIdeas handles GET /api/v1/ideas/export
func (s *Server) exportIdeas(c *gin.Context) {
	filename, data, err := s.svc.Ideas.ExportJSON()
	if err != nil {
		respondError(c, err, "Failed to export ideas")
		return
	}
	attachment(c, filename, "application/json", data)
}

// selectedIdea handles GET /api/v1/ideas/selected
func (s *Server) selectedIdea(c *gin.Context) {
	idea, found, err := s.svc.Ideas.Selected()
	if err != nil {
		respondError(c, err, "Failed to load the selected idea")
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No idea selected"})
		return
	}
	c.JSON(http.StatusOK, idea)
}

// getIdea handles GET /api/v1/ideas/:id
func (s *Server) getIdea(c *gin.Context) {
	idea, err := s.svc.Ideas.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, "Idea not found")
		return
	}
	c.JSON(http.StatusOK, idea)
}

// deleteIdea handles DELETE /api/v1/ideas/:id
func (s *Server) deleteIdea(c *gin.Context) {
	if err := s.svc.DeleteIdea(c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete idea")
		return
	}
	c.Status(http.StatusNoContent)
}

// remakeIdea handles POST /api/v1/ideas/:id/remake
func (s *Server) remakeIdea(c *gin.Context) {
	idea, err := s.svc.RemakeIdea(c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to select idea")
		return
	}
	c.JSON(http.StatusOK, idea)
}

// listTemplates handles GET /api/v1/templates
func (s *Server) listTemplates(c *gin.Context) {
	var f templates.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, "Invalid query", err)
		return
	}
	list := s.svc.Templates.Filter(f)
	c.JSON(http.StatusOK, gin.H{"templates": list, "count": len(list)})
}

// templateCategories handles GET /api/v1/templates/categories
func (s *Server) templateCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.svc.Templates.Categories()})
}

// selectedTemplate handles GET /api/v1/templates/selected
func (s *Server) selectedTemplate(c *gin.Context) {
	tmpl, err := s.svc.Templates.Selected()
	if err != nil {
		respondError(c, err, "Failed to load the selected template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// getTemplate handles GET /api/v1/templates/:id
func (s *Server) getTemplate(c *gin.Context) {
	tmpl, err := s.svc.Templates.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, "Template not found")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// selectTemplate handles POST /api/v1/templates/:id/select
func (s *Server) selectTemplate(c *gin.Context) {
	tmpl, err := s.svc.SelectTemplate(c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to select template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func attachment(c *gin.Context, filename, mimeType string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, mimeType, data)
}
