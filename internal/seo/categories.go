package seo

// StaticPage はサイトマップに載せる固定ページ。
type StaticPage struct {
	Path            string
	ChangeFrequency string
	Priority        float64
}

// staticPages は両方のサイトマップで共通の固定ページ。
var staticPages = []StaticPage{
	{Path: "/", ChangeFrequency: "daily", Priority: 1.0},
	{Path: "/marketplace", ChangeFrequency: "daily", Priority: 0.9},
	{Path: "/services", ChangeFrequency: "weekly", Priority: 0.8},
	{Path: "/how-it-works", ChangeFrequency: "monthly", Priority: 0.6},
	{Path: "/about", ChangeFrequency: "monthly", Priority: 0.5},
	{Path: "/contact", ChangeFrequency: "monthly", Priority: 0.5},
	{Path: "/faq", ChangeFrequency: "monthly", Priority: 0.5},
	{Path: "/signup", ChangeFrequency: "monthly", Priority: 0.4},
	{Path: "/login", ChangeFrequency: "monthly", Priority: 0.3},
	{Path: "/privacy", ChangeFrequency: "yearly", Priority: 0.2},
	{Path: "/terms", ChangeFrequency: "yearly", Priority: 0.2},
}

// xmlServiceCategories は /api/sitemap のXMLサイトマップが展開するサービスカテゴリ。
// sitemapServiceCategories とは別の一覧であり、どちらが正かは決まっていないため統合しない。
var xmlServiceCategories = []string{
	"Plumbing",
	"Electrical",
	"Carpentry",
	"Painting",
	"Cleaning",
	"Laundry",
	"Generator Repair",
	"AC Repair",
	"Auto Mechanic",
	"Tailoring",
	"Hair Styling",
	"Barbing",
	"Makeup",
	"Catering",
	"Event Planning",
	"Photography",
	"Videography",
	"DJ Services",
	"Tutoring",
	"Web Design",
	"Phone Repair",
	"Computer Repair",
	"Interior Design",
	"Tiling",
	"Welding",
	"Fumigation",
	"Security",
	"Logistics",
}

// sitemapServiceCategories は /sitemap.xml の型付きサイトマップが展開するサービスカテゴリ。
var sitemapServiceCategories = []string{
	"plumbing",
	"electrical",
	"carpentry",
	"painting",
	"cleaning",
	"mechanic",
	"tailoring",
	"catering",
}

// StaticPages は固定ページ一覧のコピーを返す。
func StaticPages() []StaticPage {
	return append([]StaticPage(nil), staticPages...)
}

// XMLServiceCategories はXMLサイトマップのカテゴリ一覧のコピーを返す。
func XMLServiceCategories() []string {
	return append([]string(nil), xmlServiceCategories...)
}

// SitemapServiceCategories は型付きサイトマップのカテゴリ一覧のコピーを返す。
func SitemapServiceCategories() []string {
	return append([]string(nil), sitemapServiceCategories...)
}
