package recipe

import "time"

// Recipe is a persisted recipe. The ID is assigned by storage and the
// owner comes from the authenticated caller, never from client input.
type Recipe struct {
	ID           int64     `json:"id"`
	OwnerEmail   string    `json:"-"`
	Title        string    `json:"title"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	OriginalURL  string    `json:"original_url,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
