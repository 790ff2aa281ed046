package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HPDell/RSSHub/app/fetch"
)

func newTestRouter(providers map[string]Provider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	client := fetch.NewClient(5*time.Second, "RSSHub/1.0")
	handler := NewHandler(client, providers)

	r := gin.New()
	r.GET("/proxy/:provider", handler.Passthrough)
	return r
}

func TestPassthroughMissingURL(t *testing.T) {
	r := newTestRouter(DefaultProviders())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/proxy/bilibili", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestPassthroughUnknownProvider(t *testing.T) {
	r := newTestRouter(DefaultProviders())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/proxy/unknown?url=http%3A%2F%2Fexample.com%2Fa.m4s", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestPassthroughSpoofsHeadersAndStreams(t *testing.T) {
	var gotReferer, gotUA string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "audio/mp4")
		w.Write([]byte("media-bytes"))
	}))
	defer upstream.Close()

	providers := DefaultProviders()
	r := newTestRouter(providers)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/proxy/bilibili?url="+url.QueryEscape(upstream.URL+"/audio/file.m4s"), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotReferer != providers["bilibili"].Referer {
		t.Errorf("Expected spoofed referer, got %q", gotReferer)
	}
	if gotUA != providers["bilibili"].UserAgent {
		t.Errorf("Expected spoofed user agent, got %q", gotUA)
	}
	if w.Body.String() != "media-bytes" {
		t.Errorf("Expected streamed body, got %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/mp4" {
		t.Errorf("Expected origin content type, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `attachment; filename="file.m4s"`) {
		t.Errorf("Expected attachment disposition, got %q", cd)
	}
}

func TestPassthroughUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer upstream.Close()

	r := newTestRouter(DefaultProviders())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/proxy/bilibili?url="+url.QueryEscape(upstream.URL), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", w.Code)
	}
}

func TestLoadProvidersOverlay(t *testing.T) {
	tempDir := t.TempDir()
	content := `
bilibili:
  referer: "https://override.example.com"
  user_agent: "Custom/1.0"
youtube:
  referer: "https://www.youtube.com"
  user_agent: "Custom/2.0"
`
	path := filepath.Join(tempDir, "providers.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	providers, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if providers["bilibili"].Referer != "https://override.example.com" {
		t.Errorf("Expected override, got %q", providers["bilibili"].Referer)
	}
	if providers["youtube"].UserAgent != "Custom/2.0" {
		t.Errorf("Expected new provider, got %q", providers["youtube"].UserAgent)
	}
}

func TestLoadProvidersDefaultsWithoutFile(t *testing.T) {
	providers, err := LoadProviders("")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, ok := providers["bilibili"]; !ok {
		t.Error("Expected built-in bilibili provider")
	}
}
