package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/nimart/internal/seo"
)

// SitemapGenerator はサイトマップとrobots.txtの生成元。
// *seo.Generator が実装する。
type SitemapGenerator interface {
	XML() string
	Entries() []seo.Entry
	Robots() seo.Robots
}

// SEOHandler はクローラー向けエンドポイントのHTTPハンドラー。
type SEOHandler struct {
	generator SitemapGenerator
	logger    *slog.Logger
}

// NewSEOHandler はSEOHandlerを生成する。
func NewSEOHandler(generator SitemapGenerator, logger *slog.Logger) *SEOHandler {
	return &SEOHandler{generator: generator, logger: logger}
}

// APISitemap は州×サービスカテゴリを網羅したサイトマップXMLを返す。
// GET /api/sitemap
func (h *SEOHandler) APISitemap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.generator.XML()))
}

// SitemapXML は型付きエントリから生成したサイトマップを返す。
// GET /sitemap.xml
func (h *SEOHandler) SitemapXML(w http.ResponseWriter, r *http.Request) {
	body, err := seo.RenderEntries(h.generator.Entries())
	if err != nil {
		h.logger.Error("failed to render sitemap", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Robots はrobots.txtを返す。?format=json の場合は構造化表現を返す。
// GET /robots.txt
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	robots := h.generator.Robots()
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, robots)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(robots.Text()))
}
