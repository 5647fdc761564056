package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Containers most likely to hold the actual recipe, tried in order before
// falling back to the whole body.
var mainContentSelectors = []string{
	"main", "article", ".recipe", "#recipe", ".recipe-content", ".wprm-recipe",
}

// PreprocessHTML reduces a raw HTML page to compact text for the LLM
// fallback. Scripts, styles and page chrome are dropped; headings and list
// items keep lightweight markdown markers so downstream pattern matchers can
// still see document structure. Malformed markup is tolerated: goquery
// parses best-effort and never fails on bad HTML.
func PreprocessHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, header, footer, nav, aside, iframe").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	content := doc.Find("body")
	for _, sel := range mainContentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			content = found
			break
		}
	}

	var lines []string
	content.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			lines = append(lines, "# "+text)
		case "h2":
			lines = append(lines, "## "+text)
		case "h3":
			lines = append(lines, "### "+text)
		case "li":
			lines = append(lines, "- "+text)
		default:
			lines = append(lines, text)
		}
	})

	if len(lines) == 0 {
		// Pages built entirely from divs still yield their text.
		return strings.TrimSpace(content.Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}
