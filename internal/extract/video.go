package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const videoPromptTemplate = `
Extract the recipe information from the following video description:
%s

YOU MUST RETURN ONLY VALID JSON in this exact format:
{
  "title": "Recipe Title",
  "ingredients": ["ingredient 1", "ingredient 2", ...],
  "instructions": ["step 1", "step 2", ...]
}
`

// videoHosts are the platforms whose watch pages the video stage understands.
var videoHosts = map[string]bool{
	"youtube.com":   true,
	"m.youtube.com": true,
	"youtu.be":      true,
}

// isVideoURL reports whether raw points at a supported video platform.
func isVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	return videoHosts[host]
}

// videoDetails is the metadata scraped from a watch page.
type videoDetails struct {
	title       string
	description string
	thumbnail   string
}

// parseVideoPage reads the Open Graph metadata video platforms serve to
// crawlers.
func parseVideoPage(page string) (videoDetails, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return videoDetails{}, err
	}

	meta := func(prop string) string {
		content, _ := doc.Find(`meta[property="` + prop + `"]`).First().Attr("content")
		if content == "" {
			content, _ = doc.Find(`meta[name="` + prop + `"]`).First().Attr("content")
		}
		return strings.TrimSpace(content)
	}

	d := videoDetails{
		title:       meta("og:title"),
		description: meta("og:description"),
		thumbnail:   meta("og:image"),
	}
	if d.description == "" {
		d.description = meta("description")
	}
	return d, nil
}

// extractFromVideo handles video links: the watch page's description is fed
// to the model and the platform thumbnail becomes the recipe image.
func (e *Extractor) extractFromVideo(ctx context.Context, url string) (Recipe, error) {
	page, err := e.fetcher.Fetch(url)
	if err != nil {
		return Recipe{}, err
	}
	return e.videoRecipeFromPage(ctx, url, page)
}

func (e *Extractor) videoRecipeFromPage(ctx context.Context, url, page string) (Recipe, error) {
	details, err := parseVideoPage(page)
	if err != nil {
		return Recipe{}, errKind(KindExtractionFailed, "parse video page", err)
	}
	if details.description == "" {
		return Recipe{}, errKind(KindExtractionFailed, "parse video page",
			fmt.Errorf("no description metadata found"))
	}

	desc := truncateRunes(details.description, maxPromptChars)
	raw, err := e.chatWithTimeout(ctx, systemPrompt, fmt.Sprintf(videoPromptTemplate, desc))
	if err != nil {
		return Recipe{}, err
	}

	title, ingredients, instructions, err := ParseModelOutput(raw)
	if err != nil {
		return Recipe{}, err
	}
	if title == "" {
		// The model found no title; the video's own title is the next best.
		title = details.title
	}

	ingredients = CleanIngredients(ingredients)
	return Recipe{
		Title:        title,
		Ingredients:  ingredients,
		Instructions: FilterInstructions(instructions, ingredients),
		OriginalURL:  url,
		ImageURL:     details.thumbnail,
	}, nil
}
