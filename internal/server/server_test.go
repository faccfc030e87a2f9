package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/bootstrap"
	"reelsmith-desktop/internal/config"
	"reelsmith-desktop/internal/crypto"
	"reelsmith-desktop/internal/services/export"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reelURL = "https://www.instagram.com/reel/abc123/"

type fakeGenerator struct {
	text string
	err  error
}

func (f fakeGenerator) Generate(context.Context, string) (string, error) { return f.text, f.err }

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, gen fakeGenerator) (*Server, *gin.Engine) {
	t.Helper()
	t.Setenv("DB_MAX_OPEN_CONNS", "1")
	dir := t.TempDir()
	cfg := config.Config{
		DatabaseURL:   "sqlite://" + filepath.Join(dir, "reelsmith.db"),
		DataDir:       dir,
		OutputDir:     filepath.Join(dir, "exports"),
		MediaDir:      filepath.Join(dir, "media"),
		LLMProvider:   config.ProviderGemini,
		GeminiModel:   "gemini-1.5-flash",
		ExportTick:    time.Millisecond,
		HistoryKeep:   10,
		GeminiBaseURL: "http://127.0.0.1:1",
	}

	stages := export.DefaultStages()
	for i := range stages {
		stages[i].Duration = 5 * time.Millisecond
	}
	cipher, err := crypto.NewCipher(crypto.DeriveKey("test"))
	require.NoError(t, err)

	svc, err := bootstrap.New(cfg, config.Discard(),
		bootstrap.WithCipher(cipher),
		bootstrap.WithGenerator(gen),
		bootstrap.WithExportOptions(export.WithStages(stages)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	srv := New(svc)
	return srv, srv.Handler()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
}

func uploadRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.NewValidation("url", "bad"), http.StatusBadRequest},
		{"not found", fmt.Errorf("idea: %w", apperr.ErrNotFound), http.StatusNotFound},
		{"missing artifact", export.ErrArtifactNotFound, http.StatusNotFound},
		{"already running", export.ErrExportAlreadyRunning, http.StatusConflict},
		{"not running", export.ErrNoRunningExport, http.StatusConflict},
		{"configuration", &apperr.ConfigurationError{Message: "x"}, http.StatusUnprocessableEntity},
		{"provider", &apperr.APIError{Kind: apperr.APIErrorQuota}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestAnalysisRoutes(t *testing.T) {
	t.Run("Should analyze a reel and save it as an idea", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{text: `{"styleDescription":"Warm","styleTags":["Warm Tones"]}`})

		w := doJSON(t, router, http.MethodPost, "/api/v1/analysis", gin.H{"url": reelURL})
		require.Equal(t, http.StatusOK, w.Code)
		result := decode[map[string]any](t, w)
		assert.Equal(t, "Warm", result["styleDescription"])

		w = doJSON(t, router, http.MethodPost, "/api/v1/ideas", result)
		require.Equal(t, http.StatusCreated, w.Code)
		idea := decode[map[string]any](t, w)

		w = doJSON(t, router, http.MethodGet, "/api/v1/ideas?tags=Warm+Tones", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

		w = doJSON(t, router, http.MethodGet, "/api/v1/ideas/"+idea["id"].(string), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodDelete, "/api/v1/ideas/"+idea["id"].(string), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/v1/ideas/"+idea["id"].(string), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Should reject invalid URLs", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		w := doJSON(t, router, http.MethodPost, "/api/v1/analysis", gin.H{"url": "https://example.com/video"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Please enter a valid Instagram Reel URL", decode[map[string]any](t, w)["error"])
	})

	t.Run("Should map provider failures to bad gateway", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{err: &apperr.APIError{Kind: apperr.APIErrorBlocked}})

		w := doJSON(t, router, http.MethodPost, "/api/v1/analysis", gin.H{"url": reelURL})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "Content analysis was blocked by safety filters. Please try a different URL.",
			decode[map[string]any](t, w)["error"])
	})

	t.Run("Should export ideas as an attachment", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		w := doJSON(t, router, http.MethodGet, "/api/v1/ideas/export", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "reel-ideas-")
		assert.JSONEq(t, "[]", w.Body.String())
	})
}

func TestTemplateRoutes(t *testing.T) {
	t.Run("Should filter and select templates", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		w := doJSON(t, router, http.MethodGet, "/api/v1/templates?mediaType=video", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Greater(t, decode[map[string]any](t, w)["count"], float64(0))

		w = doJSON(t, router, http.MethodGet, "/api/v1/templates/selected", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "travel_kenburns", decode[map[string]any](t, w)["id"])

		w = doJSON(t, router, http.MethodPost, "/api/v1/templates/business_promo/select", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/v1/templates/selected", nil)
		assert.Equal(t, "business_promo", decode[map[string]any](t, w)["id"])
	})

	t.Run("Should return 404 for unknown templates", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})
		w := doJSON(t, router, http.MethodPost, "/api/v1/templates/missing/select", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMediaAndExportRoutes(t *testing.T) {
	t.Run("Should refuse to export without media", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		w := doJSON(t, router, http.MethodPost, "/api/v1/export", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should reject unsupported uploads", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, map[string][]byte{"notes.txt": []byte("hello")}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		failures := decode[map[string]any](t, w)["failures"].([]any)
		assert.Len(t, failures, 1)
	})

	t.Run("Should upload, export and download", func(t *testing.T) {
		srv, router := newTestServer(t, fakeGenerator{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, map[string][]byte{"photo.png": pngBytes()}))
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/v1/media", nil)
		require.Equal(t, http.StatusOK, w.Code)
		items := decode[map[string]any](t, w)["items"].([]any)
		require.Len(t, items, 1)
		id := items[0].(map[string]any)["id"].(string)

		w = doJSON(t, router, http.MethodGet, "/api/v1/media/"+id+"/file", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, pngBytes(), w.Body.Bytes())

		w = doJSON(t, router, http.MethodPost, "/api/v1/export", gin.H{"templateId": "travel_kenburns"})
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.NotEmpty(t, decode[map[string]any](t, w)["runId"])

		w = doJSON(t, router, http.MethodPost, "/api/v1/export", nil)
		if srv.svc.Export.Snapshot().Status == export.StatusRunning {
			assert.Equal(t, http.StatusConflict, w.Code)
		}

		require.Eventually(t, func() bool {
			return srv.svc.Export.Snapshot().Status == export.StatusCompleted
		}, 5*time.Second, 5*time.Millisecond)

		artifact := srv.svc.Export.Artifact()
		require.NotNil(t, artifact)
		w = doJSON(t, router, http.MethodGet, "/api/v1/export/download/"+artifact.DownloadHandle, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), artifact.Filename)

		w = doJSON(t, router, http.MethodGet, "/api/v1/export/events?since=0", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decode[map[string]any](t, w)["events"])

		w = doJSON(t, router, http.MethodPost, "/api/v1/export/cancel", nil)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = doJSON(t, router, http.MethodPost, "/api/v1/export/retry", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "idle", decode[map[string]any](t, w)["status"])
	})

	t.Run("Should return 404 for unknown download handles", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})
		w := doJSON(t, router, http.MethodGet, "/api/v1/export/download/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSettingsRoutes(t *testing.T) {
	t.Run("Should validate saved settings", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		w := doJSON(t, router, http.MethodGet, "/api/v1/settings", nil)
		require.Equal(t, http.StatusOK, w.Code)
		current := decode[map[string]any](t, w)
		current["export"].(map[string]any)["frameRate"] = 29

		w = doJSON(t, router, http.MethodPut, "/api/v1/settings", current)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should round-trip an exported YAML document", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		w := doJSON(t, router, http.MethodGet, "/api/v1/settings/export?format=yaml", nil)
		require.Equal(t, http.StatusOK, w.Code)
		doc := w.Body.Bytes()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/settings/import?format=yaml", bytes.NewReader(doc))
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should reject malformed imports", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/settings/import", bytes.NewReader([]byte("{broken")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNotificationRoutes(t *testing.T) {
	t.Run("Should list and dismiss toasts", func(t *testing.T) {
		srv, router := newTestServer(t, fakeGenerator{})
		id := srv.svc.Notify.Info("hello")

		w := doJSON(t, router, http.MethodGet, "/api/v1/notifications", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[map[string]any](t, w)["toasts"], 1)

		w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%d", id), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%d", id), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCredentialRoutes(t *testing.T) {
	t.Run("Should store and remove the API key", func(t *testing.T) {
		_, router := newTestServer(t, fakeGenerator{})

		w := doJSON(t, router, http.MethodPut, "/api/v1/credentials/gemini", gin.H{"apiKey": "AIza-test"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "stored", decode[map[string]any](t, w)["source"])

		w = doJSON(t, router, http.MethodDelete, "/api/v1/credentials/gemini", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/v1/credentials/gemini", nil)
		assert.Equal(t, "none", decode[map[string]any](t, w)["source"])
	})
}

func TestRequestLogging(t *testing.T) {
	t.Run("Should log each request to both outputs", func(t *testing.T) {
		srv, _ := newTestServer(t, fakeGenerator{})
		var text, jsonLog bytes.Buffer
		srv.log = config.SetupLoggerWithWriters(&text, &jsonLog, slog.LevelDebug)
		router := srv.Handler()

		w := doJSON(t, router, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, w.Code)

		assert.Contains(t, text.String(), "path=/health")
		var record map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(jsonLog.Bytes()), &record))
		assert.Equal(t, "request", record["msg"])
		assert.Equal(t, "/health", record["path"])
		assert.Equal(t, float64(http.StatusOK), record["status"])
	})
}
