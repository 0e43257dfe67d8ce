package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/repository"
)

// WebsiteRepository implements website.Repository for SQLite
type WebsiteRepository struct {
	db *DB
}

// NewWebsiteRepository creates a new WebsiteRepository
func NewWebsiteRepository(db *DB) *WebsiteRepository {
	return &WebsiteRepository{db: db}
}

// LoadAll retrieves the full registry in stored order
func (r *WebsiteRepository) LoadAll(ctx context.Context) ([]website.Website, error) {
	query := `
		SELECT
			id, url, name, status, vitals, last_checked, screenshot,
			industry, project_status, favorite, is_wordpress, notes
		FROM websites
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load websites: %w", err)
	}
	defer rows.Close()

	var records []website.Website
	for rows.Next() {
		rec, err := scanWebsite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load websites: %w", err)
	}

	return records, nil
}

func scanWebsite(rows *sql.Rows) (website.Website, error) {
	var (
		rec         website.Website
		status      sql.NullInt64
		vitals      sql.NullString
		lastChecked sql.NullTime
		screenshot  sql.NullString
		favorite    int
		isWordPress sql.NullBool
		notes       sql.NullString
	)

	err := rows.Scan(
		&rec.ID,
		&rec.URL,
		&rec.Name,
		&status,
		&vitals,
		&lastChecked,
		&screenshot,
		&rec.Industry,
		&rec.ProjectStatus,
		&favorite,
		&isWordPress,
		&notes,
	)
	if err != nil {
		return website.Website{}, fmt.Errorf("failed to scan website: %w", err)
	}

	if status.Valid {
		v := int(status.Int64)
		rec.Status = &v
	}
	if vitals.Valid {
		var v website.WebVitals
		if err := json.Unmarshal([]byte(vitals.String), &v); err != nil {
			return website.Website{}, fmt.Errorf("failed to decode vitals for website %d: %w", rec.ID, err)
		}
		rec.Vitals = &v
	}
	if lastChecked.Valid {
		t := lastChecked.Time
		rec.LastChecked = &t
	}
	if screenshot.Valid {
		s := screenshot.String
		rec.Screenshot = &s
	}
	rec.Favorite = favorite != 0
	if isWordPress.Valid {
		b := isWordPress.Bool
		rec.IsWordPress = &b
	}
	if notes.Valid {
		var n website.Notes
		if err := json.Unmarshal([]byte(notes.String), &n); err != nil {
			return website.Website{}, fmt.Errorf("failed to decode notes for website %d: %w", rec.ID, err)
		}
		rec.Notes = &n
	}

	return rec, nil
}

// SaveAll replaces the stored registry with the given records, preserving
// their order. The swap is transactional so a failed save leaves the
// previous contents intact.
func (r *WebsiteRepository) SaveAll(ctx context.Context, records []website.Website) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM websites"); err != nil {
		return fmt.Errorf("failed to clear websites: %w", err)
	}

	query := `
		INSERT INTO websites (
			id, position, url, name, status, vitals, last_checked,
			screenshot, industry, project_status, favorite, is_wordpress, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, rec := range records {
		vitals, err := encodeJSON(rec.Vitals)
		if err != nil {
			return fmt.Errorf("failed to encode vitals for website %d: %w", rec.ID, err)
		}
		notes, err := encodeJSON(rec.Notes)
		if err != nil {
			return fmt.Errorf("failed to encode notes for website %d: %w", rec.ID, err)
		}

		_, err = tx.ExecContext(ctx, query,
			rec.ID,
			i,
			rec.URL,
			rec.Name,
			nullInt(rec.Status),
			vitals,
			nullTime(rec.LastChecked),
			nullString(rec.Screenshot),
			rec.Industry,
			rec.ProjectStatus,
			rec.Favorite,
			nullBool(rec.IsWordPress),
			notes,
		)
		if err != nil {
			return fmt.Errorf("failed to save website %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

// UpdateFavorite sets the favorite flag for a single website
func (r *WebsiteRepository) UpdateFavorite(ctx context.Context, id int64, favorite bool) error {
	return r.updateField(ctx, "favorite", id, favorite)
}

// UpdateIndustry sets the industry for a single website
func (r *WebsiteRepository) UpdateIndustry(ctx context.Context, id int64, industry string) error {
	return r.updateField(ctx, "industry", id, industry)
}

// UpdateProjectStatus sets the project status for a single website
func (r *WebsiteRepository) UpdateProjectStatus(ctx context.Context, id int64, status string) error {
	return r.updateField(ctx, "project_status", id, status)
}

func (r *WebsiteRepository) updateField(ctx context.Context, column string, id int64, value any) error {
	query := fmt.Sprintf("UPDATE websites SET %s = ? WHERE id = ?", column)
	result, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func encodeJSON(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case *website.WebVitals:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *website.Notes:
		if x == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
