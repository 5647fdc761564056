package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// recoveredRecipe is the shape the LLM is asked to produce.
type recoveredRecipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

var (
	embeddedJSONBlock = regexp.MustCompile(`\{[\s\S]*?\}`)
	trailingCommaObj  = regexp.MustCompile(`,\s*}`)
	trailingCommaArr  = regexp.MustCompile(`,\s*]`)

	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Recipe Name:|Title:|Recipe:)\s*([^\n]+)`),
		regexp.MustCompile(`(?i)\*\*(?:Recipe Name:|Title:|Recipe:)\*\*\s*([^\n]+)`),
		regexp.MustCompile(`#\s*([^\n]+)`),
	}

	ingredientSectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)Ingredients:(.+?)(?:Instructions:|Directions:|Notes:|$)`),
		regexp.MustCompile(`(?is)\*\*Ingredients:\*\*(.+?)(?:\*\*(?:Instructions:|Directions:|Notes:)|$)`),
		regexp.MustCompile(`(?is)##\s*Ingredients(.+?)(?:##|$)`),
	}

	instructionSectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)(?:Instructions:|Directions:|Method:|Preparation:)(.+?)(?:Notes:|To Serve:|$)`),
		regexp.MustCompile(`(?is)\*\*(?:Instructions:|Directions:|Method:|Preparation:)\*\*(.+?)(?:\*\*(?:Notes:|To Serve:)|$)`),
		regexp.MustCompile(`(?is)##\s*(?:Instructions|Directions|Method|Preparation)(.+?)(?:##|$)`),
	}

	// Numbered ("1. foo") or bulleted ("- foo", "* foo") list items.
	listItem = regexp.MustCompile(`(?:^|\n)(?:\d+\.|\*|-)\s*([^\n]+)`)

	hasContent = regexp.MustCompile(`[A-Za-z0-9]`)
)

// ParseModelOutput recovers a structured recipe from raw LLM output.
// Strict JSON is tried first, then embedded {...} blocks with trailing-comma
// repair, then pattern-based free-text parsing. A nil result with a
// KindMalformedOutput error means every strategy came up empty.
func ParseModelOutput(raw string) (title string, ingredients, instructions []string, err error) {
	if r, ok := parseStrictJSON(raw); ok {
		return r.Title, r.Ingredients, r.Instructions, nil
	}

	for _, block := range embeddedJSONBlock.FindAllString(raw, -1) {
		if r, ok := parseStrictJSON(repairJSON(block)); ok {
			return r.Title, r.Ingredients, r.Instructions, nil
		}
	}

	title, ingredients, instructions = parseFreeText(raw)
	if title == "" && len(ingredients) == 0 && len(instructions) == 0 {
		return "", nil, nil, errKind(KindMalformedOutput, "parse model output", nil)
	}
	return title, ingredients, instructions, nil
}

// parseStrictJSON accepts only objects carrying all three required keys.
// Missing keys are a parse failure, not a silent default.
func parseStrictJSON(s string) (recoveredRecipe, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return recoveredRecipe{}, false
	}
	for _, required := range []string{"title", "ingredients", "instructions"} {
		if _, ok := keys[required]; !ok {
			return recoveredRecipe{}, false
		}
	}
	var r recoveredRecipe
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return recoveredRecipe{}, false
	}
	return r, true
}

func repairJSON(block string) string {
	fixed := strings.ReplaceAll(block, "\n", " ")
	fixed = trailingCommaObj.ReplaceAllString(fixed, "}")
	fixed = trailingCommaArr.ReplaceAllString(fixed, "]")
	return fixed
}

// parseFreeText applies first-match-wins pattern tables per field.
func parseFreeText(text string) (title string, ingredients, instructions []string) {
	for _, pat := range titlePatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			// Plain-label patterns can match inside a bold-labeled line,
			// leaving markdown emphasis around the capture.
			if t := strings.Trim(strings.TrimSpace(m[1]), "* "); t != "" {
				title = t
				break
			}
		}
	}
	if title == "" {
		// No labeled title; fall back to the first non-blank line.
		for _, line := range strings.Split(text, "\n") {
			if t := cleanItem(line); t != "" {
				title = t
				break
			}
		}
	}

	if section, ok := findSection(text, ingredientSectionPatterns); ok {
		ingredients = sectionItems(section)
	}
	if section, ok := findSection(text, instructionSectionPatterns); ok {
		instructions = sectionItems(section)
	}
	return title, ingredients, instructions
}

func findSection(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, pat := range patterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// sectionItems extracts list entries from a located section. When no
// numbered or bulleted items match, every non-empty line counts as one item.
// Lines that are pure markdown emphasis residue are skipped.
func sectionItems(section string) []string {
	var items []string
	for _, m := range listItem.FindAllStringSubmatch(section, -1) {
		if item := cleanItem(m[1]); item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		return items
	}
	for _, line := range strings.Split(section, "\n") {
		if item := cleanItem(line); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func cleanItem(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "* ")
	if !hasContent.MatchString(s) {
		return ""
	}
	return s
}
