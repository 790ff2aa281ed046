package proxy

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/HPDell/RSSHub/app/fetch"
)

// Handler is the stateless reverse-fetch endpoint behind proxied enclosure
// URLs: it re-fetches a remote media URL with provider-specific spoofed
// headers and streams the body back as a download.
type Handler struct {
	client    *fetch.Client
	providers map[string]Provider
}

func NewHandler(client *fetch.Client, providers map[string]Provider) *Handler {
	return &Handler{client: client, providers: providers}
}

// URL builds the passthrough URL emitted into enclosures for a media
// resource of the given provider.
func URL(provider, mediaURL string) string {
	return fmt.Sprintf("/proxy/%s?url=%s", provider, url.QueryEscape(mediaURL))
}

func (h *Handler) Passthrough(c *gin.Context) {
	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		c.String(http.StatusNotFound, "Unknown proxy provider.")
		return
	}

	rawURL := c.Query("url")
	if rawURL == "" {
		c.String(http.StatusBadRequest, `Missing "url" query parameter.`)
		return
	}

	resp, err := h.client.Stream(c.Request.Context(), rawURL, &fetch.Options{
		Headers: map[string]string{
			"Referer":    provider.Referer,
			"User-Agent": provider.UserAgent,
		},
	})
	if err != nil {
		slog.Error("Proxy fetch failed", "provider", c.Param("provider"), "url", rawURL, "error", err)
		c.String(http.StatusBadGateway, "Error: %s", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.String(http.StatusBadGateway, "Failed to fetch the file: %s", resp.Status)
		return
	}

	filename := "downloaded_file"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			filename = base
		}
	}

	contentType := cmp.Or(resp.Header.Get("Content-Type"), "application/octet-stream")
	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	}

	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, extraHeaders)
}
