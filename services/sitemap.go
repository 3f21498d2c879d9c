package services

import (
	"strings"
	"time"

	"github.com/beevik/etree"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// PublicPages публичные страницы сайта для sitemap.xml
var PublicPages = []string{"/", "/about/", "/contact/", "/user/sign-in/", "/user/sign-up/"}

// BuildSitemap формирует sitemap.xml для страниц paths относительно baseURL
func BuildSitemap(baseURL string, paths []string, lastmod time.Time) ([]byte, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	urlset := doc.CreateElement("urlset")
	urlset.CreateAttr("xmlns", sitemapNamespace)

	for _, p := range paths {
		url := urlset.CreateElement("url")
		url.CreateElement("loc").SetText(baseURL + p)
		url.CreateElement("lastmod").SetText(lastmod.UTC().Format("2006-01-02"))
		if p == "/" {
			url.CreateElement("priority").SetText("1.0")
		} else {
			url.CreateElement("priority").SetText("0.5")
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}
