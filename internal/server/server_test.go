package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insight-layer/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Global {
	return &config.Global{ListenAddr: ":0", MaxUploadMB: 1, AnalysisTimeoutSec: 30, LogLevel: "info", LogFormat: "console"}
}

func upload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func batchCSV() []byte {
	var b strings.Builder
	b.WriteString("Batch,Hour,Biomass,Glucose\n")
	for _, id := range []string{"B1", "B2", "B3"} {
		for i := 0; i < 12; i++ {
			fmt.Fprintf(&b, "%s,%d,%.2f,%.2f\n", id, i, 0.5+float64(i)*0.3, 20-float64(i)*1.1)
		}
	}
	return []byte(b.String())
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["detail"]
}

func TestHealth(t *testing.T) {
	s := New(testConfig(), nil)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, Version, resp["version"])
}

func TestAnalyzeReturnsReport(t *testing.T) {
	s := New(testConfig(), nil)
	w := serve(s, upload(t, "runs.csv", batchCSV()))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, k := range []string{"overview", "quality", "temporal", "relationships", "batch_comparison", "global_scores", "plot_ready"} {
		assert.Contains(t, resp, k)
	}
	var ov struct {
		BatchCount   int    `json:"batch_count"`
		IsMultiBatch bool   `json:"is_multi_batch"`
		TimeColumn   string `json:"time_column"`
	}
	require.NoError(t, json.Unmarshal(resp["overview"], &ov))
	assert.Equal(t, 3, ov.BatchCount)
	assert.True(t, ov.IsMultiBatch)
	assert.Equal(t, "Hour", ov.TimeColumn)
}

func TestAnalyzeRejections(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  []byte
		want     string
	}{
		{"extension", "data.txt", []byte("a,b\n1,2\n"), "Only CSV files are supported"},
		{"single column", "one.csv", []byte("a\n1\n2\n3\n"), "Dataset must have at least 2 columns"},
		{"header only", "empty.csv", []byte("a,b\n"), "Dataset is empty"},
		{"too large", "big.csv", bytes.Repeat([]byte("1,2\n"), 400_000), "File exceeds the maximum upload size of 1 MB"},
	}
	s := New(testConfig(), nil)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := serve(s, upload(t, c.filename, c.content))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, c.want, detail(t, w))
		})
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	s := New(testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	w := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", detail(t, w))
}

func TestCORSAndRequestID(t *testing.T) {
	s := New(testConfig(), nil)
	pre := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	w := serve(s, pre)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = serve(s, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestMetricsExposed(t *testing.T) {
	s := New(testConfig(), nil)
	serve(s, upload(t, "runs.csv", batchCSV()))
	w := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "insight_analysis_total")
	assert.Contains(t, body, "insight_http_requests_total")
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.NotNil(t, l)
	_, err = NewLogger("loud", "json")
	assert.Error(t, err)
	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}
