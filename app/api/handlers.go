package api

import (
	"cmp"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HPDell/RSSHub/app/category"
	"github.com/HPDell/RSSHub/app/feed"
	"github.com/HPDell/RSSHub/app/proxy"
	"github.com/HPDell/RSSHub/app/sources/bilibili"
	"github.com/HPDell/RSSHub/app/sources/whurs"
)

func NewHandler(whu *whurs.Source, bili *bilibili.Source, proxyHandler *proxy.Handler) *Handler {
	return &Handler{
		whu:       whu,
		bilibili:  bili,
		proxy:     proxyHandler,
		generator: feed.NewGenerator(),
	}
}

func (h *Handler) GetWhuRsgis(c *gin.Context) {
	typ := cmp.Or(c.Param("type"), "index")
	sub := cmp.Or(c.Param("sub"), "all")

	f, err := h.whu.Feed(c.Request.Context(), typ, sub)
	if err != nil {
		h.renderError(c, "whu/rsgis", err)
		return
	}

	h.render(c, f)
}

func (h *Handler) GetBilibiliPodcast(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing uid parameter"})
		return
	}
	// The player iframe is embedded unless the embed path segment is
	// present, mirroring the route's historical behavior.
	embed := c.Param("embed") == ""

	f, err := h.bilibili.Podcast(c.Request.Context(), uid, embed)
	if err != nil {
		h.renderError(c, "bilibili", err)
		return
	}

	h.render(c, f)
}

func (h *Handler) GetProxy(c *gin.Context) {
	h.proxy.Passthrough(c)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) render(c *gin.Context, f *feed.Feed) {
	rss, err := h.generator.Run(f, c.Request.URL.Path)
	if err != nil {
		slog.Error("RSS generation error", "feed", f.Title, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate feed"})
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(f.Items)))
	c.String(http.StatusOK, rss)
}

// renderError maps pipeline failures onto HTTP responses: unknown
// categories are the client's mistake, anything else is an upstream
// problem.
func (h *Handler) renderError(c *gin.Context, source string, err error) {
	if errors.Is(err, category.ErrUnknownCategory) {
		slog.Info("Unknown category requested", "source", source, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Unknown category",
			"details": err.Error(),
		})
		return
	}

	slog.Error("Feed request failed", "source", source, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadGateway, gin.H{
		"error":   "Failed to fetch upstream content",
		"details": err.Error(),
	})
}
