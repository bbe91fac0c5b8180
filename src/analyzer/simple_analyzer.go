// 提取a[href]、rel为stylesheet(或缺少rel)的link[href]、script[src]
// 缺少对应属性的元素直接跳过
package analyzer

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/andrewyi/sitemirror/src/entity"
)

type SimpleAnalyzer struct{}

func NewSimpleAnalyzer() Analyzer {
	return &SimpleAnalyzer{}
}

func (a *SimpleAnalyzer) Index(content []byte, pageURL string) (entity.Index, error) {
	var index entity.Index

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return index, &ParseError{URL: pageURL, Err: err}
	}

	links := newOrderedSet()
	doc.Find("a").Each(func(_ int, element *goquery.Selection) {
		if href, exists := element.Attr("href"); exists {
			links.add(href)
		}
	})

	assets := newOrderedSet()
	doc.Find("link").Each(func(_ int, element *goquery.Selection) {
		href, exists := element.Attr("href")
		if !exists {
			return
		}
		rel, hasRel := element.Attr("rel")
		if !hasRel || isStylesheet(rel) {
			assets.add(href)
		}
	})
	doc.Find("script").Each(func(_ int, element *goquery.Selection) {
		if src, exists := element.Attr("src"); exists {
			assets.add(src)
		}
	})

	index.Links = links.items
	index.Assets = assets.items
	return index, nil
}

func (a *SimpleAnalyzer) Rewrite(content []byte, fn func(raw string) (string, bool)) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	rewrite := func(attr string) func(int, *goquery.Selection) {
		return func(_ int, element *goquery.Selection) {
			raw, exists := element.Attr(attr)
			if !exists {
				return
			}
			if v, ok := fn(raw); ok {
				element.SetAttr(attr, v)
			}
		}
	}
	doc.Find("a[href]").Each(rewrite("href"))
	doc.Find("link[href]").Each(rewrite("href"))
	doc.Find("script[src]").Each(rewrite("src"))

	html, err := doc.Html()
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return []byte(html), nil
}

func isStylesheet(rel string) bool {
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == "stylesheet" {
			return true
		}
	}
	return false
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
