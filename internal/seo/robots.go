package seo

import "strings"

// Rule はrobots.txtの1つのuser-agentブロック。
type Rule struct {
	UserAgent string   `json:"userAgent"`
	Allow     []string `json:"allow"`
	Disallow  []string `json:"disallow"`
}

// Robots はrobots.txtの構造化表現。
type Robots struct {
	Rules   []Rule `json:"rules"`
	Sitemap string `json:"sitemap"`
	Host    string `json:"host,omitempty"`
}

// Robots はクロール規則を返す。
// 公開ページはすべて許可し、APIと個人向けページはクロール対象から外す。
func (g *Generator) Robots() Robots {
	return Robots{
		Rules: []Rule{{
			UserAgent: "*",
			Allow:     []string{"/"},
			Disallow:  []string{"/api/", "/provider/dashboard", "/customer/", "/admin/"},
		}},
		Sitemap: g.baseURL + "/sitemap.xml",
		Host:    g.baseURL,
	}
}

// Text はrobots.txt形式にレンダリングする。
func (r Robots) Text() string {
	var b strings.Builder
	for _, rule := range r.Rules {
		b.WriteString("User-agent: " + rule.UserAgent + "\n")
		for _, p := range rule.Allow {
			b.WriteString("Allow: " + p + "\n")
		}
		for _, p := range rule.Disallow {
			b.WriteString("Disallow: " + p + "\n")
		}
		b.WriteString("\n")
	}
	if r.Host != "" {
		b.WriteString("Host: " + r.Host + "\n")
	}
	if r.Sitemap != "" {
		b.WriteString("Sitemap: " + r.Sitemap + "\n")
	}
	return b.String()
}
