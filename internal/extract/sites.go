package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScrapedRecipe is the raw result of a site-specific strategy. Instructions
// arrive as a single blob and are split into steps by the pipeline.
type ScrapedRecipe struct {
	Title           string
	Ingredients     []string
	RawInstructions string
	ImageURL        string
}

// SiteStrategy extracts a recipe from a known site using per-site CSS
// selector tables. Selectors within each list are tried in order; the first
// non-empty match wins.
type SiteStrategy struct {
	Domain               string
	TitleSelectors       []string
	IngredientSelectors  []string
	InstructionSelectors []string
	ImageSelectors       []string
}

// Extract pulls a structured recipe out of the already-fetched document.
// A site that matched but yields no title or ingredients reports
// KindExtractionFailed; the caller must not fall back in that case.
func (s *SiteStrategy) Extract(doc *goquery.Document) (ScrapedRecipe, error) {
	rec := ScrapedRecipe{}

	for _, sel := range s.TitleSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			rec.Title = t
			break
		}
	}

	for _, sel := range s.IngredientSelectors {
		var items []string
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			if text := strings.TrimSpace(el.Text()); text != "" {
				items = append(items, text)
			}
		})
		if len(items) > 0 {
			rec.Ingredients = items
			break
		}
	}

	for _, sel := range s.InstructionSelectors {
		var steps []string
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			if text := strings.TrimSpace(el.Text()); text != "" {
				steps = append(steps, text)
			}
		})
		if len(steps) > 0 {
			rec.RawInstructions = strings.Join(steps, "\n")
			break
		}
	}

	for _, sel := range s.ImageSelectors {
		if src, ok := doc.Find(sel).First().Attr("src"); ok && src != "" {
			rec.ImageURL = src
			break
		}
		if content, ok := doc.Find(sel).First().Attr("content"); ok && content != "" {
			rec.ImageURL = content
			break
		}
	}

	if rec.Title == "" || len(rec.Ingredients) == 0 {
		return ScrapedRecipe{}, errKind(KindExtractionFailed, "scrape "+s.Domain,
			fmt.Errorf("selectors matched no recipe content"))
	}
	return rec, nil
}

// Registry resolves site-specific strategies by domain.
type Registry struct {
	strategies map[string]*SiteStrategy
}

// NewRegistry creates a registry pre-loaded with the built-in site
// strategies.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]*SiteStrategy)}
	for _, s := range builtinStrategies {
		r.Register(s)
	}
	return r
}

// Register adds or replaces the strategy for its domain.
func (r *Registry) Register(s *SiteStrategy) {
	r.strategies[s.Domain] = s
}

// Resolve returns the strategy registered for the URL's domain, or a
// KindUnsupportedSite error. Resolution never touches the network.
func (r *Registry) Resolve(rawURL string) (*SiteStrategy, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, errKind(KindUnsupportedSite, "resolve strategy",
			fmt.Errorf("unparseable url %q", rawURL))
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if s, ok := r.strategies[host]; ok {
		return s, nil
	}
	return nil, errKind(KindUnsupportedSite, "resolve strategy",
		fmt.Errorf("no strategy registered for %s", host))
}

// Selector tables for the sites the original extractor was verified
// against, plus the WPRM plugin markup shared by many food blogs.
var builtinStrategies = []*SiteStrategy{
	{
		Domain:               "allrecipes.com",
		TitleSelectors:       []string{"h1.article-heading", "h1"},
		IngredientSelectors:  []string{"ul.mm-recipes-structured-ingredients__list li", "span.ingredients-item-name"},
		InstructionSelectors: []string{"div.mm-recipes-steps ol li p", "ul.instructions-section li p"},
		ImageSelectors:       []string{`meta[property="og:image"]`, "div.primary-image img"},
	},
	{
		Domain:               "recipetineats.com",
		TitleSelectors:       []string{"h1.entry-title", "h2.wprm-recipe-name", "h1"},
		IngredientSelectors:  []string{"li.wprm-recipe-ingredient"},
		InstructionSelectors: []string{"li.wprm-recipe-instruction"},
		ImageSelectors:       []string{`meta[property="og:image"]`, "div.wprm-recipe-image img"},
	},
	{
		Domain:               "bbcgoodfood.com",
		TitleSelectors:       []string{"h1.heading-1", "h1"},
		IngredientSelectors:  []string{"section.recipe__ingredients li", "li.pb-xxs"},
		InstructionSelectors: []string{"section.recipe__method-steps li", "li.pb-xs div.editor-content"},
		ImageSelectors:       []string{`meta[property="og:image"]`, "img.image__img"},
	},
	{
		Domain:               "simplyrecipes.com",
		TitleSelectors:       []string{"h1.heading__title", "h1"},
		IngredientSelectors:  []string{"div.structured-ingredients li", "ul.ingredient-list li"},
		InstructionSelectors: []string{"div.structured-project__steps ol li p", "div#mntl-sc-block li"},
		ImageSelectors:       []string{`meta[property="og:image"]`, "div.primary-image img"},
	},
}
