package mealplan

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository is a database-backed repository for meal plan entries.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts an entry and returns it with the assigned ID.
func (r *Repository) Save(ctx context.Context, e Entry) (Entry, error) {
	var recipeID sql.NullInt64
	if e.RecipeID != nil {
		recipeID = sql.NullInt64{Int64: *e.RecipeID, Valid: true}
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_plan_entries (owner_email, date, meal_type, recipe_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.OwnerEmail, e.Date, string(e.MealType), recipeID, now,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert meal plan entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read inserted entry id: %w", err)
	}

	e.ID = id
	e.CreatedAt = now
	return e, nil
}

// ListByOwner retrieves entries for ownerEmail, optionally bounded by an
// inclusive from/to date range (YYYY-MM-DD, empty string means unbounded).
func (r *Repository) ListByOwner(ctx context.Context, ownerEmail, from, to string) ([]Entry, error) {
	query := `
		SELECT id, owner_email, date, meal_type, recipe_id, created_at
		FROM meal_plan_entries WHERE owner_email = ?`
	args := []any{ownerEmail}

	if from != "" {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date, meal_type, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plan entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recipeID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.OwnerEmail, &e.Date, &e.MealType, &recipeID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan entry: %w", err)
		}
		if recipeID.Valid {
			id := recipeID.Int64
			e.RecipeID = &id
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an entry owned by ownerEmail. Returns false when nothing
// matched.
func (r *Repository) Delete(ctx context.Context, ownerEmail string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM meal_plan_entries WHERE id = ? AND owner_email = ?`, id, ownerEmail)
	if err != nil {
		return false, fmt.Errorf("failed to delete meal plan entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}
