package mealplan

import (
	"fmt"
	"time"
)

// MealType is the slot an entry occupies in a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// ParseMealType validates a client-supplied meal type.
func ParseMealType(s string) (MealType, error) {
	switch MealType(s) {
	case Breakfast, Lunch, Dinner, Snack:
		return MealType(s), nil
	}
	return "", fmt.Errorf("invalid meal type %q", s)
}

// Entry is a dated meal plan slot. RecipeID is a weak reference: when the
// recipe is deleted the entry survives with RecipeID nulled.
type Entry struct {
	ID         int64     `json:"id"`
	OwnerEmail string    `json:"-"`
	Date       string    `json:"date"` // YYYY-MM-DD
	MealType   MealType  `json:"meal_type"`
	RecipeID   *int64    `json:"recipe_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
