package extract

import (
	"reflect"
	"testing"
)

func TestExtractFromDOM(t *testing.T) {
	t.Run("ClassMarkedLists", func(t *testing.T) {
		html := `
		<html><body>
			<h1 class="recipe-title">Garlic Butter Shrimp</h1>
			<ul class="wprm-recipe-ingredients">
				<li>1lb shrimp</li>
				<li>4 cloves garlic</li>
			</ul>
			<ol class="recipe-instructions">
				<li>Melt the butter.</li>
				<li>Add shrimp and garlic.</li>
			</ol>
		</body></html>`

		rec, err := ExtractFromDOM(html)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.Title != "Garlic Butter Shrimp" {
			t.Errorf("Expected title 'Garlic Butter Shrimp', got %q", rec.Title)
		}
		// Ingredients pass through the cleaner.
		if !reflect.DeepEqual(rec.Ingredients, []string{"1 lb shrimp", "4 cloves garlic"}) {
			t.Errorf("Unexpected ingredients: %v", rec.Ingredients)
		}
		if len(rec.Instructions) != 2 {
			t.Errorf("Expected 2 instructions, got %v", rec.Instructions)
		}
	})

	t.Run("StepMarkedInstructions", func(t *testing.T) {
		html := `
		<body>
			<h1>Plain Rice</h1>
			<div class="ingredient-block"><ul><li>1 cup rice</li></ul></div>
			<li class="step-1">Rinse the rice.</li>
			<li class="step-2">Boil.</li>
		</body>`

		rec, err := ExtractFromDOM(html)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !reflect.DeepEqual(rec.Instructions, []string{"Rinse the rice.", "Boil."}) {
			t.Errorf("Unexpected instructions: %v", rec.Instructions)
		}
	})

	t.Run("MetaTitleFallback", func(t *testing.T) {
		html := `
		<html><head><meta property="og:title" content="Meta Pancakes"></head>
		<body><ul class="ingredients-list"><li>1 egg</li></ul></body></html>`

		rec, err := ExtractFromDOM(html)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.Title != "Meta Pancakes" {
			t.Errorf("Expected meta title, got %q", rec.Title)
		}
	})

	t.Run("NoRecipeFound", func(t *testing.T) {
		cases := map[string]string{
			"NoTitle":   `<body><ul class="ingredients"><li>1 egg</li></ul></body>`,
			"OnlyTitle": `<body><h1>Just a headline</h1><p>article text</p></body>`,
			"EmptyPage": `<body></body>`,
		}
		for name, html := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ExtractFromDOM(html)
				if err == nil {
					t.Fatal("Expected an error, got nil")
				}
				if !IsKind(err, KindNoRecipeFound) {
					t.Errorf("Expected KindNoRecipeFound, got %v", err)
				}
			})
		}
	})
}
