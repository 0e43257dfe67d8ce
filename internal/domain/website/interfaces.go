package website

import "context"

// Repository is the durable backend for the registry. SaveAll replaces the
// full persisted collection; the single-field updates back the optimistic
// convenience mutators.
type Repository interface {
	LoadAll(ctx context.Context) ([]Website, error)
	SaveAll(ctx context.Context, records []Website) error
	UpdateFavorite(ctx context.Context, id int64, favorite bool) error
	UpdateIndustry(ctx context.Context, id int64, industry string) error
	UpdateProjectStatus(ctx context.Context, id int64, status string) error
}

// StatusRepository persists user-defined project status extensions. The
// built-in set never goes through it.
type StatusRepository interface {
	ListStatuses(ctx context.Context) ([]StatusOption, error)
	AddStatus(ctx context.Context, opt StatusOption) error
}
