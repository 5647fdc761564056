package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is a database-backed repository for recipes. Ingredient and
// instruction lists are stored as JSON arrays so their order survives the
// round trip exactly.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts a recipe for ownerEmail and returns it with the assigned ID.
func (r *Repository) Save(ctx context.Context, rec Recipe) (Recipe, error) {
	ingredientsJSON, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	instructionsJSON, err := json.Marshal(rec.Instructions)
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to marshal instructions: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recipes (owner_email, title, ingredients, instructions, original_url, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerEmail, rec.Title, string(ingredientsJSON), string(instructionsJSON),
		rec.OriginalURL, rec.ImageURL, now,
	)
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to insert recipe: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to read inserted recipe id: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = now
	return rec, nil
}

// Get retrieves a recipe by ID, scoped to its owner. Returns nil when the
// recipe does not exist or belongs to someone else.
func (r *Repository) Get(ctx context.Context, ownerEmail string, id int64) (*Recipe, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_email, title, ingredients, instructions, original_url, image_url, created_at
		FROM recipes WHERE id = ? AND owner_email = ?`, id, ownerEmail)

	rec, err := scanRecipe(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &rec, nil
}

// ListByOwner retrieves all recipes belonging to ownerEmail, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerEmail string) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_email, title, ingredients, instructions, original_url, image_url, created_at
		FROM recipes WHERE owner_email = ? ORDER BY created_at DESC, id DESC`, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, rec)
	}
	return recipes, rows.Err()
}

// Delete removes a recipe owned by ownerEmail. Meal plan entries pointing
// at it keep existing with their recipe reference nulled (schema-level
// ON DELETE SET NULL). Returns false when nothing matched.
func (r *Repository) Delete(ctx context.Context, ownerEmail string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recipes WHERE id = ? AND owner_email = ?`, id, ownerEmail)
	if err != nil {
		return false, fmt.Errorf("failed to delete recipe: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (Recipe, error) {
	var rec Recipe
	var ingredientsJSON, instrJSON string
	var originalURL, imageURL sql.NullString
	err := row.Scan(&rec.ID, &rec.OwnerEmail, &rec.Title, &ingredientsJSON, &instrJSON,
		&originalURL, &imageURL, &rec.CreatedAt)
	if err != nil {
		return Recipe{}, err
	}

	if err := json.Unmarshal([]byte(ingredientsJSON), &rec.Ingredients); err != nil {
		return Recipe{}, fmt.Errorf("failed to unmarshal ingredients for recipe %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(instrJSON), &rec.Instructions); err != nil {
		return Recipe{}, fmt.Errorf("failed to unmarshal instructions for recipe %d: %w", rec.ID, err)
	}
	rec.OriginalURL = originalURL.String
	rec.ImageURL = imageURL.String
	return rec, nil
}
