// Package seo はクローラー向けのサイトマップとrobots.txtを生成する。
// 出力はコンパイル時の定数だけから決まり、日付はlastmodにのみ使う。
package seo

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/nimart/internal/geo"
)

const (
	sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

	// MaxEntries は型付きサイトマップの最大エントリ数。
	MaxEntries = 5000

	dateLayout = "2006-01-02"
)

// Entry は型付きサイトマップの1エントリ。
type Entry struct {
	URL             string
	LastModified    time.Time
	ChangeFrequency string
	Priority        float64
}

// Generator はアプリのベースURLと時計からサイトマップを生成する。
type Generator struct {
	baseURL string
	now     func() time.Time
}

// NewGenerator はGeneratorを生成する。nowがnilの場合はtime.Nowを使う。
func NewGenerator(baseURL string, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     now,
	}
}

// BaseURL はサイトマップで使うベースURLを返す。
func (g *Generator) BaseURL() string {
	return g.baseURL
}

// XML は /api/sitemap 用のサイトマップXMLを生成する。
// 固定ページに加え、州ごとにマーケットプレイスURLを1件、州×サービスカテゴリごとに1件を出力する。
// <loc> の件数は len(固定ページ) + len(州) * (1 + len(カテゴリ)) に一致する。
func (g *Generator) XML() string {
	lastmod := g.now().Format(dateLayout)

	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, "<urlset xmlns=%q>\n", sitemapNamespace)

	for _, p := range staticPages {
		writeURL(&b, g.baseURL+p.Path, lastmod, p.ChangeFrequency, p.Priority)
	}
	for _, state := range geo.StateNames() {
		writeURL(&b, g.marketplaceURL(state, ""), lastmod, "weekly", 0.8)
		for _, service := range xmlServiceCategories {
			writeURL(&b, g.marketplaceURL(state, service), lastmod, "weekly", 0.7)
		}
	}

	b.WriteString("</urlset>\n")
	return b.String()
}

// Entries は /sitemap.xml 用の型付きエントリ一覧を生成する。
// MaxEntries を超える分は切り捨てる。
func (g *Generator) Entries() []Entry {
	now := g.now()
	entries := make([]Entry, 0, len(staticPages))

	add := func(e Entry) bool {
		if len(entries) >= MaxEntries {
			return false
		}
		entries = append(entries, e)
		return true
	}

	for _, p := range staticPages {
		if !add(Entry{URL: g.baseURL + p.Path, LastModified: now, ChangeFrequency: p.ChangeFrequency, Priority: p.Priority}) {
			return entries
		}
	}
	for _, state := range geo.StateNames() {
		if !add(Entry{URL: g.marketplaceURL(state, ""), LastModified: now, ChangeFrequency: "weekly", Priority: 0.8}) {
			return entries
		}
		for _, service := range sitemapServiceCategories {
			if !add(Entry{URL: g.marketplaceURL(state, service), LastModified: now, ChangeFrequency: "weekly", Priority: 0.6}) {
				return entries
			}
		}
	}
	return entries
}

// marketplaceURL は州とサービスで絞り込んだマーケットプレイスURLを返す。
func (g *Generator) marketplaceURL(state, service string) string {
	q := url.Values{}
	q.Set("state", state)
	if service != "" {
		q.Set("service", service)
	}
	return g.baseURL + "/marketplace?" + q.Encode()
}

func writeURL(b *strings.Builder, loc, lastmod, changefreq string, priority float64) {
	b.WriteString("  <url>\n    <loc>")
	xml.EscapeText(b, []byte(loc))
	b.WriteString("</loc>\n")
	fmt.Fprintf(b, "    <lastmod>%s</lastmod>\n", lastmod)
	fmt.Fprintf(b, "    <changefreq>%s</changefreq>\n", changefreq)
	fmt.Fprintf(b, "    <priority>%.1f</priority>\n", priority)
	b.WriteString("  </url>\n")
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []urlXML `xml:"url"`
}

type urlXML struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// RenderEntries は型付きエントリをサイトマップXMLにエンコードする。
func RenderEntries(entries []Entry) ([]byte, error) {
	set := urlSet{Xmlns: sitemapNamespace, URLs: make([]urlXML, 0, len(entries))}
	for _, e := range entries {
		set.URLs = append(set.URLs, urlXML{
			Loc:        e.URL,
			LastMod:    e.LastModified.Format(dateLayout),
			ChangeFreq: e.ChangeFrequency,
			Priority:   fmt.Sprintf("%.1f", e.Priority),
		})
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
