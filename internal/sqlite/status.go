package sqlite

import (
	"context"
	"fmt"

	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/repository"
)

// StatusRepository implements website.StatusRepository for SQLite
type StatusRepository struct {
	db *DB
}

// NewStatusRepository creates a new StatusRepository
func NewStatusRepository(db *DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// ListStatuses retrieves the user-defined status extensions, oldest first
func (r *StatusRepository) ListStatuses(ctx context.Context) ([]website.StatusOption, error) {
	query := `
		SELECT value, label, color
		FROM project_statuses
		ORDER BY created_at, value
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var opts []website.StatusOption
	for rows.Next() {
		var opt website.StatusOption
		if err := rows.Scan(&opt.Value, &opt.Label, &opt.Color); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		opts = append(opts, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	return opts, nil
}

// AddStatus stores a new user-defined status
func (r *StatusRepository) AddStatus(ctx context.Context, opt website.StatusOption) error {
	query := `
		INSERT INTO project_statuses (value, label, color)
		VALUES (?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, opt.Value, opt.Label, opt.Color)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to add status: %w", err)
	}
	return nil
}
