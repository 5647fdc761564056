package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractFromDOM searches generic DOM patterns for a recipe when no
// site-specific strategy exists. It is advisory: a KindNoRecipeFound error
// tells the pipeline to proceed to the LLM fallback.
func ExtractFromDOM(htmlContent string) (Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return Recipe{}, errKind(KindNoRecipeFound, "heuristic extract", err)
	}

	rec := Recipe{
		Title:        findTitle(doc),
		Ingredients:  CleanIngredients(findListItems(doc, "ingredient")),
		Instructions: findListItems(doc, "instruction", "step"),
	}

	// A bare title with neither list is not a recipe.
	if rec.Title == "" || (len(rec.Ingredients) == 0 && len(rec.Instructions) == 0) {
		return Recipe{}, errKind(KindNoRecipeFound, "heuristic extract", nil)
	}
	return rec, nil
}

// findTitle tries recipe-flavored headings first, then any h1, then meta
// title tags. First non-empty candidate wins.
func findTitle(doc *goquery.Document) string {
	if t := headingWithClass(doc, "recipe"); t != "" {
		return t
	}
	if t := headingWithClass(doc, "title"); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if c, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := strings.TrimSpace(c); t != "" {
			return t
		}
	}
	if c, ok := doc.Find(`meta[name="title"]`).First().Attr("content"); ok {
		if t := strings.TrimSpace(c); t != "" {
			return t
		}
	}
	return ""
}

func headingWithClass(doc *goquery.Document, marker string) string {
	var title string
	doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !classContains(s, marker) {
			return true
		}
		title = strings.TrimSpace(s.Text())
		return title == ""
	})
	return title
}

// findListItems locates the first container whose class mentions one of the
// markers and returns its list items. Containers are tried in order: ul/ol,
// then divs, then individually marked li elements.
func findListItems(doc *goquery.Document, markers ...string) []string {
	for _, sel := range []string{"ul", "ol", "div"} {
		var items []string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !classContainsAny(s, markers) {
				return true
			}
			items = selectionItems(s.Find("li"))
			return len(items) == 0
		})
		if len(items) > 0 {
			return items
		}
	}

	var items []string
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		if classContainsAny(s, markers) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				items = append(items, text)
			}
		}
	})
	return items
}

func selectionItems(sel *goquery.Selection) []string {
	var items []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			items = append(items, text)
		}
	})
	return items
}

func classContains(s *goquery.Selection, marker string) bool {
	class, ok := s.Attr("class")
	return ok && strings.Contains(strings.ToLower(class), marker)
}

func classContainsAny(s *goquery.Selection, markers []string) bool {
	for _, m := range markers {
		if classContains(s, m) {
			return true
		}
	}
	return false
}
