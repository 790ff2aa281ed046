package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestGetSetsUserAgentAndQuery(t *testing.T) {
	var gotUA, gotQuery, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("Referer")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "RSSHub/1.0")
	resp, err := client.Get(context.Background(), server.URL, &Options{
		Headers: map[string]string{"Referer": "https://www.bilibili.com"},
		Query:   url.Values{"mid": {"2267573"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if string(resp.Body) != "ok" {
		t.Errorf("Unexpected body: %q", resp.Body)
	}
	if gotUA != "RSSHub/1.0" {
		t.Errorf("Expected user agent to be set, got %q", gotUA)
	}
	if gotQuery != "mid=2267573" {
		t.Errorf("Expected query to be set, got %q", gotQuery)
	}
	if gotHeader != "https://www.bilibili.com" {
		t.Errorf("Expected referer to be set, got %q", gotHeader)
	}
}

func TestGetNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "RSSHub/1.0")
	_, err := client.Get(context.Background(), server.URL, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got: %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", statusErr.StatusCode)
	}
}

func TestGetDecodesGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("学院新闻"))
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		w.Write(encoded)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "RSSHub/1.0")
	resp, err := client.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if string(resp.Body) != "学院新闻" {
		t.Errorf("Expected decoded UTF-8 body, got %q", resp.Body)
	}
}

func TestGetDecodesMetaCharset(t *testing.T) {
	page := `<html><head><meta charset="gbk"></head><body>学院新闻</body></html>`
	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte(page))
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(encoded)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "RSSHub/1.0")
	resp, err := client.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(string(resp.Body), "学院新闻") {
		t.Errorf("Expected decoded UTF-8 body, got %q", resp.Body)
	}
}

func TestStreamLeavesStatusToCaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "RSSHub/1.0")
	resp, err := client.Stream(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Stream should not error on non-2xx, got: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}
