package website

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ganot/sitewatch/internal/notify"
	"github.com/ganot/sitewatch/internal/repository"
)

// Store is the authoritative in-memory registry of tracked websites. It is
// constructed once per session and injected into the coordinator and search
// surfaces; nothing reads registry state from anywhere else.
//
// All mutators hold the store lock, so readers never observe torn records.
// Change subscribers run after the lock is released.
type Store struct {
	mu       sync.Mutex
	records  []Website
	lastID   int64
	repo     Repository
	statuses StatusRepository
	alerts   *notify.Center
	logger   *slog.Logger
	onChange []func()
}

// NewStore creates a registry store backed by the given repository.
func NewStore(repo Repository, statuses StatusRepository, alerts *notify.Center, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:     repo,
		statuses: statuses,
		alerts:   alerts,
		logger:   logger,
	}
}

// OnChange registers a callback fired after every registry mutation. Load
// is not a mutation: reloading from the backend must not trigger a save.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Store) changed() {
	s.mu.Lock()
	subs := make([]func(), len(s.onChange))
	copy(subs, s.onChange)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Load fetches the full registry from the backend and swaps it in. On
// failure the previous in-memory contents are kept untouched.
func (s *Store) Load(ctx context.Context) ([]Website, error) {
	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	s.mu.Lock()
	s.records = records
	for _, rec := range records {
		if rec.ID > s.lastID {
			s.lastID = rec.ID
		}
	}
	s.mu.Unlock()

	return s.Snapshot(), nil
}

// Snapshot returns a deep copy of the current registry.
func (s *Store) Snapshot() []Website {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Website, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Clone()
	}
	return out
}

// PersistableSnapshot returns a deep copy suitable for durable storage:
// transient capture flags are forced off so a record is never saved as
// mid-capture.
func (s *Store) PersistableSnapshot() []Website {
	out := s.Snapshot()
	for i := range out {
		out[i].IsCapturing = false
	}
	return out
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id int64) (Website, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec.Clone(), true
		}
	}
	return Website{}, false
}

// Count returns the number of tracked websites.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ReplaceAll atomically swaps the registry contents.
func (s *Store) ReplaceAll(records []Website) {
	s.mu.Lock()
	s.records = make([]Website, len(records))
	for i, rec := range records {
		s.records[i] = rec.Clone()
		if rec.ID > s.lastID {
			s.lastID = rec.ID
		}
	}
	s.mu.Unlock()
	s.changed()
}

// Add validates the URL, creates a record with a fresh id and appends it.
func (s *Store) Add(rawURL string) (Website, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return Website{}, err
	}

	s.mu.Lock()
	rec := Website{
		ID:       s.nextIDLocked(),
		URL:      normalized,
		Name:     DisplayName(normalized),
		Industry: IndustryGeneral,
	}
	s.records = append(s.records, rec)
	s.mu.Unlock()
	s.changed()

	return rec.Clone(), nil
}

// nextIDLocked assigns a time-derived id, bumping past the previous one so
// ids stay unique even when records are created within the same millisecond.
func (s *Store) nextIDLocked() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Patch carries the fields of a partial record update. Nil fields are left
// untouched.
type Patch struct {
	Name          *string
	URL           *string
	Status        *int
	Vitals        *WebVitals
	LastChecked   *time.Time
	Screenshot    *string
	IsCapturing   *bool
	Favorite      *bool
	Industry      *string
	ProjectStatus *string
	IsWordPress   *bool
	Notes         *Notes
}

// UpdateOne merges the patch into the record with the given id. A missing
// id is a no-op, not an error: update callbacks may race with deletion.
func (s *Store) UpdateOne(id int64, patch Patch) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	rec := &s.records[idx]
	if patch.Name != nil {
		rec.Name = *patch.Name
	}
	if patch.URL != nil {
		rec.URL = *patch.URL
	}
	if patch.Status != nil {
		v := *patch.Status
		rec.Status = &v
	}
	if patch.Vitals != nil {
		v := *patch.Vitals
		rec.Vitals = &v
	}
	if patch.LastChecked != nil {
		v := *patch.LastChecked
		rec.LastChecked = &v
	}
	if patch.Screenshot != nil {
		v := *patch.Screenshot
		rec.Screenshot = &v
	}
	if patch.IsCapturing != nil {
		rec.IsCapturing = *patch.IsCapturing
	}
	if patch.Favorite != nil {
		rec.Favorite = *patch.Favorite
	}
	if patch.Industry != nil {
		rec.Industry = *patch.Industry
	}
	if patch.ProjectStatus != nil {
		rec.ProjectStatus = *patch.ProjectStatus
	}
	if patch.IsWordPress != nil {
		v := *patch.IsWordPress
		rec.IsWordPress = &v
	}
	if patch.Notes != nil {
		n := patch.Notes.Clone()
		rec.Notes = &n
	}
	s.mu.Unlock()
	s.changed()
	return true
}

// RemoveOne deletes the record with the given id.
func (s *Store) RemoveOne(id int64) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.mu.Unlock()
	s.changed()
	return true
}

func (s *Store) indexLocked(id int64) int {
	for i, rec := range s.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

// ToggleFavorite flips the favorite flag in memory, then issues the
// dedicated backend update. A backend failure is reported but the in-memory
// value stays: the mutator is optimistic by design.
func (s *Store) ToggleFavorite(ctx context.Context, id int64) (favorite, ok bool) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, false
	}
	s.records[idx].Favorite = !s.records[idx].Favorite
	favorite = s.records[idx].Favorite
	s.mu.Unlock()
	s.changed()

	if err := s.repo.UpdateFavorite(ctx, id, favorite); err != nil {
		s.reportFieldFailure("favorite", id, err)
	}
	return favorite, true
}

// SetIndustry updates the industry in memory, then issues the dedicated
// backend update. Optimistic: no rollback on backend failure.
func (s *Store) SetIndustry(ctx context.Context, id int64, industry string) bool {
	if !s.UpdateOne(id, Patch{Industry: &industry}) {
		return false
	}
	if err := s.repo.UpdateIndustry(ctx, id, industry); err != nil {
		s.reportFieldFailure("industry", id, err)
	}
	return true
}

// SetProjectStatus updates the project status in memory, then issues the
// dedicated backend update. Optimistic: no rollback on backend failure.
func (s *Store) SetProjectStatus(ctx context.Context, id int64, status string) bool {
	if !s.UpdateOne(id, Patch{ProjectStatus: &status}) {
		return false
	}
	if err := s.repo.UpdateProjectStatus(ctx, id, status); err != nil {
		s.reportFieldFailure("project status", id, err)
	}
	return true
}

func (s *Store) reportFieldFailure(field string, id int64, err error) {
	s.logger.Error("backend field update failed", "field", field, "website_id", id, "error", err)
	if s.alerts != nil {
		s.alerts.Add(notify.LevelError, fmt.Sprintf("failed to save %s change", field))
	}
}

// StatusOptions returns the built-in project statuses merged with the
// user-defined extensions from the backend.
func (s *Store) StatusOptions(ctx context.Context) ([]StatusOption, error) {
	if s.statuses == nil {
		return BuiltinStatuses(), nil
	}
	custom, err := s.statuses.ListStatuses(ctx)
	if err != nil {
		return BuiltinStatuses(), fmt.Errorf("loading custom statuses: %w", err)
	}
	return MergeStatuses(custom), nil
}

// AddStatusOption registers a user-defined project status. The built-in set
// is never touched.
func (s *Store) AddStatusOption(ctx context.Context, label, color string) (StatusOption, error) {
	value := StatusValue(label)
	if value == "" {
		return StatusOption{}, ErrEmptyLabel
	}
	existing, err := s.StatusOptions(ctx)
	if err != nil {
		return StatusOption{}, err
	}
	for _, opt := range existing {
		if opt.Value == value {
			return StatusOption{}, ErrStatusExists
		}
	}
	opt := StatusOption{Value: value, Label: label, Color: color}
	if err := s.statuses.AddStatus(ctx, opt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return StatusOption{}, ErrStatusExists
		}
		return StatusOption{}, fmt.Errorf("saving custom status: %w", err)
	}
	return opt, nil
}

// FullBackup is the export payload carrying the registry plus the
// user-defined status extensions.
type FullBackup struct {
	Websites       []Website      `json:"websites"`
	CustomStatuses []StatusOption `json:"custom_statuses"`
	ExportDate     time.Time      `json:"export_date"`
	Version        string         `json:"version"`
}

// ExportJSON serializes the registry for export.
func (s *Store) ExportJSON() (string, error) {
	data, err := json.MarshalIndent(s.PersistableSnapshot(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing websites: %w", err)
	}
	return string(data), nil
}

// ExportBackup serializes the registry together with custom statuses.
func (s *Store) ExportBackup(ctx context.Context) (FullBackup, error) {
	backup := FullBackup{
		Websites:   s.PersistableSnapshot(),
		ExportDate: time.Now().UTC(),
		Version:    "1.0",
	}
	if s.statuses != nil {
		custom, err := s.statuses.ListStatuses(ctx)
		if err != nil {
			return FullBackup{}, fmt.Errorf("loading custom statuses: %w", err)
		}
		backup.CustomStatuses = custom
	}
	return backup, nil
}
