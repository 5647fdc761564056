package extract

import (
	"regexp"
	"strings"
)

// Ingredient rewrite rules. Order matters: later rules assume the earlier
// normalization already ran (e.g. unit fixes expect bullets gone).
var ingredientRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	// Decorative bullet glyphs from recipe-card markup.
	{regexp.MustCompile(`[▢□■►•◆]`), ""},
	// Missing space between a quantity and what follows: "2cups" -> "2 cups".
	{regexp.MustCompile(`(\d+)([a-zA-Z])`), "$1 $2"},
	// Missing space at a lowercase->uppercase boundary: "cupSugar" -> "cup Sugar".
	{regexp.MustCompile(`([a-z])([A-Z])`), "$1 $2"},
	// Common measurement abbreviations glued to the quantity.
	{regexp.MustCompile(`(\d+)tbsp`), "$1 tbsp"},
	{regexp.MustCompile(`(\d+)tsp`), "$1 tsp"},
	{regexp.MustCompile(`(\d+)cup`), "$1 cup"},
	{regexp.MustCompile(`(\d+)g\b`), "$1 g"},
	{regexp.MustCompile(`(\d+)oz`), "$1 oz"},
	{regexp.MustCompile(`(\d+)ml`), "$1 ml"},
	{regexp.MustCompile(`(\d+)lb`), "$1 lb"},
}

var multiSpace = regexp.MustCompile(`\s+`)

// Lines that are nutrition-facts noise rather than cooking steps.
var nutritionLine = regexp.MustCompile(`(?i)^(kcal|fat|saturates|carbs|sugars|fibre|protein|salt)`)

// CleanIngredients normalizes scraped ingredient lines: strips bullet
// glyphs, restores missing spaces around quantities and units, and collapses
// whitespace. Output order matches input order.
func CleanIngredients(ingredients []string) []string {
	cleaned := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		for _, rule := range ingredientRules {
			ing = rule.re.ReplaceAllString(ing, rule.repl)
		}
		ing = strings.TrimSpace(multiSpace.ReplaceAllString(ing, " "))
		cleaned = append(cleaned, ing)
	}
	return cleaned
}

// FilterInstructions drops instruction lines that duplicate an ingredient
// (case-insensitive, trimmed) and lines that are nutritional information.
func FilterInstructions(instructions, ingredients []string) []string {
	var filtered []string
	for _, instr := range instructions {
		if isIngredientDuplicate(instr, ingredients) {
			continue
		}
		if nutritionLine.MatchString(strings.TrimSpace(instr)) {
			continue
		}
		filtered = append(filtered, instr)
	}
	return filtered
}

func isIngredientDuplicate(instr string, ingredients []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(instr))
	for _, ing := range ingredients {
		if normalized == strings.ToLower(strings.TrimSpace(ing)) {
			return true
		}
	}
	return false
}

// SplitInstructions turns a raw instruction blob into trimmed, non-empty
// steps, one per line.
func SplitInstructions(raw string) []string {
	var steps []string
	for _, line := range strings.Split(raw, "\n") {
		if step := strings.TrimSpace(line); step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}
