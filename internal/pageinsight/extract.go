// Package pageinsight turns rendered HTML into the coarse structure facts
// handed to the agent.
package pageinsight

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Bahjat/page-agent/backend/internal/model"
)

const (
	// linkScanLimit is how many anchors are looked at for sample links.
	linkScanLimit = 20
	sampleSize    = 5
)

// Landmark selectors. They are heuristics, not semantic understanding.
const (
	navigationSelector  = "nav, header, .menu, #menu"
	mainContentSelector = "main, article, .content, #content"
)

// Extract summarizes html. It never fails: malformed markup is repaired by
// the HTML5 parser and missing features read as zero values.
func Extract(doc, pageURL string) model.Facts {
	facts := model.Facts{
		URL:           pageURL,
		HTMLVersion:   "Unknown",
		SampleLinks:   []string{},
		SampleButtons: []string{},
		Headings:      map[string]int{"h1": 0, "h2": 0, "h3": 0, "h4": 0, "h5": 0, "h6": 0},
		PageType:      "standard",
	}

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return facts
	}
	facts.HTMLVersion = htmlVersion(root)

	d := goquery.NewDocumentFromNode(root)

	facts.Title = strings.TrimSpace(d.Find("title").First().Text())

	anchors := d.Find("a[href]")
	facts.LinksCount = anchors.Length()
	anchors.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= linkScanLimit || len(facts.SampleLinks) >= sampleSize {
			return false
		}
		href, _ := s.Attr("href")
		facts.SampleLinks = append(facts.SampleLinks, href)
		return true
	})

	facts.SampleButtons = clickableLabels(d)

	for level := range facts.Headings {
		facts.Headings[level] = d.Find(level).Length()
	}

	facts.HasNavigation = d.Find(navigationSelector).Length() > 0
	facts.HasMainContent = d.Find(mainContentSelector).Length() > 0
	facts.HasLoginForm = d.Find("input").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.EqualFold(s.AttrOr("type", ""), "password")
	}).Length() > 0

	if d.Find("article").Length() > 0 {
		facts.PageType = "article"
	}

	return facts
}

// clickableLabels returns the first distinct non-empty texts of buttons and
// anchors in document order.
func clickableLabels(d *goquery.Document) []string {
	labels := []string{}
	seen := make(map[string]struct{})

	d.Find("button, a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return true
		}
		if _, dup := seen[text]; dup {
			return true
		}
		seen[text] = struct{}{}
		labels = append(labels, text)
		return len(labels) < sampleSize
	})

	return labels
}

// htmlVersion inspects the doctype node of a parsed document.
func htmlVersion(root *html.Node) string {
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.DoctypeNode {
			return doctypeVersion(n)
		}
	}
	return "Unknown"
}

// doctypeVersion maps a doctype to a version label.
// HTML5: <!DOCTYPE html> carries no public identifier.
// Legacy: the public identifier names the DTD.
// https://www.w3.org/QA/2002/04/valid-dtd-list.html
func doctypeVersion(n *html.Node) string {
	var public string
	for _, a := range n.Attr {
		if a.Key == "public" {
			public = strings.ToLower(a.Val)
		}
	}

	switch {
	case public == "":
		return "HTML5"
	case strings.Contains(public, "xhtml 1.1") || strings.Contains(public, "xhtml basic 1.1"):
		return "XHTML 1.1"
	case strings.Contains(public, "xhtml 1.0"):
		return "XHTML 1.0"
	case strings.Contains(public, "html 4.01"):
		return "HTML 4.01"
	default:
		return "Unknown"
	}
}
