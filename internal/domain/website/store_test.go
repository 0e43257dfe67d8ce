package website_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/notify"
	"github.com/ganot/sitewatch/internal/repository"
	"github.com/ganot/sitewatch/internal/repository/mocks"
)

func newStore(t *testing.T) (*website.Store, *mocks.WebsiteRepository, *mocks.StatusRepository, *notify.Center) {
	t.Helper()
	repo := &mocks.WebsiteRepository{}
	statuses := &mocks.StatusRepository{}
	alerts := notify.NewCenter(time.Minute)
	return website.NewStore(repo, statuses, alerts, nil), repo, statuses, alerts
}

func TestStore_AddAssignsUniqueIDs(t *testing.T) {
	s, _, _, _ := newStore(t)

	seen := make(map[int64]bool)
	for _, raw := range []string{"one.test", "two.test", "three.test"} {
		rec, err := s.Add(raw)
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "id %d assigned twice", rec.ID)
		seen[rec.ID] = true
		require.Equal(t, "https://"+raw, rec.URL)
		require.Equal(t, raw, rec.Name)
		require.Equal(t, website.IndustryGeneral, rec.Industry)
	}
	require.Equal(t, 3, s.Count())
}

func TestStore_AddRejectsInvalidURL(t *testing.T) {
	s, _, _, _ := newStore(t)

	_, err := s.Add("ftp://example.test")
	require.ErrorIs(t, err, website.ErrInvalidURL)
	require.Zero(t, s.Count())
}

func TestStore_IDsStayUniqueAcrossImportedRecords(t *testing.T) {
	s, _, _, _ := newStore(t)

	// An imported record can carry an id from the future; the next
	// generated id must still land past it.
	future := time.Now().Add(time.Hour).UnixMilli()
	s.ReplaceAll([]website.Website{{ID: future, URL: "https://old.test", Name: "old.test"}})

	rec, err := s.Add("new.test")
	require.NoError(t, err)
	require.Greater(t, rec.ID, future)
}

func TestStore_LoadFailureKeepsContents(t *testing.T) {
	s, repo, _, _ := newStore(t)
	_, err := s.Add("one.test")
	require.NoError(t, err)

	repo.On("LoadAll", mock.Anything).Return(nil, errors.New("backend down")).Once()
	_, err = s.Load(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, s.Count())
}

func TestStore_LoadDoesNotFireChange(t *testing.T) {
	s, repo, _, _ := newStore(t)
	repo.On("LoadAll", mock.Anything).Return([]website.Website{
		{ID: 1, URL: "https://one.test", Name: "one.test"},
	}, nil)

	changes := 0
	s.OnChange(func() { changes++ })

	_, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Zero(t, changes, "a reload must not trigger a save cycle")

	_, err = s.Add("two.test")
	require.NoError(t, err)
	require.Equal(t, 1, changes)
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s, _, _, _ := newStore(t)
	rec, err := s.Add("one.test")
	require.NoError(t, err)
	status := 200
	s.UpdateOne(rec.ID, website.Patch{Status: &status})

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	*snap[0].Status = 500
	snap[0].Name = "mutated"

	got, ok := s.Get(rec.ID)
	require.True(t, ok)
	require.Equal(t, 200, *got.Status)
	require.Equal(t, "one.test", got.Name)
}

func TestStore_PersistableSnapshotClearsCaptureFlag(t *testing.T) {
	s, _, _, _ := newStore(t)
	rec, err := s.Add("one.test")
	require.NoError(t, err)
	capturing := true
	s.UpdateOne(rec.ID, website.Patch{IsCapturing: &capturing})

	for _, w := range s.PersistableSnapshot() {
		require.False(t, w.IsCapturing)
	}
	// The live record still shows the transient flag.
	got, _ := s.Get(rec.ID)
	require.True(t, got.IsCapturing)
}

func TestStore_UpdateOneMissingIDIsNoOp(t *testing.T) {
	s, _, _, _ := newStore(t)
	changes := 0
	s.OnChange(func() { changes++ })

	name := "ghost"
	require.False(t, s.UpdateOne(42, website.Patch{Name: &name}))
	require.Zero(t, changes)
}

func TestStore_RemoveOne(t *testing.T) {
	s, _, _, _ := newStore(t)
	rec, err := s.Add("one.test")
	require.NoError(t, err)

	require.True(t, s.RemoveOne(rec.ID))
	require.False(t, s.RemoveOne(rec.ID))
	require.Zero(t, s.Count())
}

func TestStore_ToggleFavoriteIsOptimistic(t *testing.T) {
	s, repo, _, alerts := newStore(t)
	rec, err := s.Add("one.test")
	require.NoError(t, err)

	repo.On("UpdateFavorite", mock.Anything, rec.ID, true).
		Return(errors.New("backend down"))

	fav, ok := s.ToggleFavorite(context.Background(), rec.ID)
	require.True(t, ok)
	require.True(t, fav)

	// The in-memory flip survives the backend failure; the user is told
	// through a notification instead of a rollback.
	got, _ := s.Get(rec.ID)
	require.True(t, got.Favorite)
	entries := alerts.List()
	require.Len(t, entries, 1)
	require.Equal(t, notify.LevelError, entries[0].Level)
}

func TestStore_ToggleFavoriteUnknownID(t *testing.T) {
	s, _, _, _ := newStore(t)
	_, ok := s.ToggleFavorite(context.Background(), 7)
	require.False(t, ok)
}

func TestStore_SetIndustryAndProjectStatus(t *testing.T) {
	s, repo, _, _ := newStore(t)
	rec, err := s.Add("one.test")
	require.NoError(t, err)

	repo.On("UpdateIndustry", mock.Anything, rec.ID, website.IndustryEcommerce).Return(nil)
	repo.On("UpdateProjectStatus", mock.Anything, rec.ID, website.StatusActive).Return(nil)

	require.True(t, s.SetIndustry(context.Background(), rec.ID, website.IndustryEcommerce))
	require.True(t, s.SetProjectStatus(context.Background(), rec.ID, website.StatusActive))

	got, _ := s.Get(rec.ID)
	require.Equal(t, website.IndustryEcommerce, got.Industry)
	require.Equal(t, website.StatusActive, got.ProjectStatus)
	repo.AssertExpectations(t)
}

func TestStore_StatusOptionsMergesCustom(t *testing.T) {
	s, _, statuses, _ := newStore(t)
	statuses.On("ListStatuses", mock.Anything).Return([]website.StatusOption{
		{Value: "maintenance", Label: "Maintenance", Color: "#ff8800"},
		{Value: website.StatusActive, Label: "Shadowed", Color: "#000000"},
	}, nil)

	opts, err := s.StatusOptions(context.Background())
	require.NoError(t, err)

	builtin := website.BuiltinStatuses()
	require.Len(t, opts, len(builtin)+1)
	require.Equal(t, builtin, opts[:len(builtin)])
	require.Equal(t, "maintenance", opts[len(builtin)].Value)
}

func TestStore_AddStatusOption(t *testing.T) {
	s, _, statuses, _ := newStore(t)
	statuses.On("ListStatuses", mock.Anything).Return(nil, nil)
	statuses.On("AddStatus", mock.Anything, website.StatusOption{
		Value: "on_deck", Label: "On Deck", Color: "#8888ff",
	}).Return(nil)

	opt, err := s.AddStatusOption(context.Background(), "On Deck", "#8888ff")
	require.NoError(t, err)
	require.Equal(t, "on_deck", opt.Value)
	statuses.AssertExpectations(t)
}

func TestStore_AddStatusOptionRejectsCollisions(t *testing.T) {
	s, _, statuses, _ := newStore(t)
	statuses.On("ListStatuses", mock.Anything).Return(nil, nil)

	_, err := s.AddStatusOption(context.Background(), "  ", "#fff")
	require.ErrorIs(t, err, website.ErrEmptyLabel)

	_, err = s.AddStatusOption(context.Background(), "Active", "#fff")
	require.ErrorIs(t, err, website.ErrStatusExists)

	statuses.On("AddStatus", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)
	_, err = s.AddStatusOption(context.Background(), "Racing", "#fff")
	require.ErrorIs(t, err, website.ErrStatusExists)
}

func TestStore_ExportBackup(t *testing.T) {
	s, _, statuses, _ := newStore(t)
	_, err := s.Add("one.test")
	require.NoError(t, err)
	statuses.On("ListStatuses", mock.Anything).Return([]website.StatusOption{
		{Value: "maintenance", Label: "Maintenance", Color: "#ff8800"},
	}, nil)

	backup, err := s.ExportBackup(context.Background())
	require.NoError(t, err)
	require.Len(t, backup.Websites, 1)
	require.Len(t, backup.CustomStatuses, 1)
	require.Equal(t, "1.0", backup.Version)
	require.False(t, backup.ExportDate.IsZero())
}
