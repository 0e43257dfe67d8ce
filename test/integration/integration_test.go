package integration_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/sitewatch/internal/autosave"
	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/notify"
	"github.com/ganot/sitewatch/internal/sqlite"
	"github.com/ganot/sitewatch/internal/testserver"
)

type testEnv struct {
	db          *sqlite.DB
	websiteRepo *sqlite.WebsiteRepository
	statusRepo  *sqlite.StatusRepository
	runRepo     *sqlite.RunRepository

	store  *website.Store
	saver  *autosave.Synchronizer
	coord  *capture.Coordinator
	engine *testserver.FakeEngine
	alerts *notify.Center
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	websiteRepo := sqlite.NewWebsiteRepository(db)
	statusRepo := sqlite.NewStatusRepository(db)
	runRepo := sqlite.NewRunRepository(db)

	alerts := notify.NewCenter(time.Minute)
	store := website.NewStore(websiteRepo, statusRepo, alerts, nil)

	saver := autosave.New(func(ctx context.Context) error {
		return websiteRepo.SaveAll(ctx, store.PersistableSnapshot())
	}, 10*time.Millisecond, nil, alerts, nil)
	store.OnChange(saver.Trigger)
	t.Cleanup(saver.Close)

	eng := testserver.NewFakeEngine()
	coord := capture.NewCoordinator(capture.Config{
		Registry: store,
		Engine:   eng,
		Source:   eng,
		Runs:     runRepo,
		Alerts:   alerts,
		Grace:    50 * time.Millisecond,
	})
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Close() })

	return &testEnv{
		db:          db,
		websiteRepo: websiteRepo,
		statusRepo:  statusRepo,
		runRepo:     runRepo,
		store:       store,
		saver:       saver,
		coord:       coord,
		engine:      eng,
		alerts:      alerts,
	}
}

func (env *testEnv) flush(t *testing.T) {
	t.Helper()
	require.NoError(t, env.saver.Flush(context.Background()))
}

func TestRegistryPersistsAcrossSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.store.Add("acme.test")
	require.NoError(t, err)
	_, err = env.store.Add("beta.test")
	require.NoError(t, err)
	env.flush(t)

	// A fresh store over the same database sees the saved registry.
	fresh := website.NewStore(env.websiteRepo, env.statusRepo, env.alerts, nil)
	records, err := fresh.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, rec.ID, records[0].ID)
	require.Equal(t, "https://acme.test", records[0].URL)
}

func TestRapidEditsCoalesceIntoOneSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.store.Add("acme.test")
	require.NoError(t, err)
	env.flush(t)

	// An odd number of rapid toggles lands on favorite = true.
	for i := 0; i < 3; i++ {
		_, ok := env.store.ToggleFavorite(ctx, rec.ID)
		require.True(t, ok)
	}
	env.flush(t)

	loaded, err := env.websiteRepo.LoadAll(ctx)
	require.NoError(t, err)
	require.True(t, loaded[0].Favorite)
}

func TestCaptureFlagNeverPersisted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.store.Add("acme.test")
	require.NoError(t, err)
	capturing := true
	env.store.UpdateOne(rec.ID, website.Patch{IsCapturing: &capturing})
	env.flush(t)

	loaded, err := env.websiteRepo.LoadAll(ctx)
	require.NoError(t, err)
	require.False(t, loaded[0].IsCapturing)
}

func TestBulkCaptureReloadsEngineResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.store.Add("acme.test")
	require.NoError(t, err)
	env.flush(t)

	require.NoError(t, env.coord.StartBulk(ctx))

	// The engine writes its results to storage out of process; simulate
	// that with a direct database update before the terminal event.
	_, err = env.db.Exec(`UPDATE websites SET screenshot = ? WHERE id = ?`,
		"data:image/png;base64,bmV3", rec.ID)
	require.NoError(t, err)

	env.engine.Emit(capture.Progress{Total: 1, Completed: 1, IsComplete: true})

	require.Eventually(t, func() bool {
		got, ok := env.store.Get(rec.ID)
		return ok && got.Screenshot != nil && *got.Screenshot == "data:image/png;base64,bmV3"
	}, time.Second, 10*time.Millisecond, "registry should pick up engine-written results")

	// The finished run lands in the history table.
	require.Eventually(t, func() bool {
		runs, err := env.runRepo.ListRuns(ctx, 10)
		return err == nil && len(runs) == 1
	}, time.Second, 10*time.Millisecond)

	runs, err := env.runRepo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, capture.OutcomeComplete, runs[0].Outcome)

	// The completed job resets to idle after the grace delay.
	require.Eventually(t, func() bool {
		return env.coord.Job().Status == capture.StatusIdle
	}, time.Second, 10*time.Millisecond)
}

func TestDegradedRunRecordsErrorsAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Add("acme.test")
	require.NoError(t, err)
	_, err = env.store.Add("beta.test")
	require.NoError(t, err)

	require.NoError(t, env.coord.StartBulk(ctx))
	env.engine.Emit(capture.Progress{
		Total: 2, Completed: 2, IsComplete: true,
		Errors: []string{"beta.test: timeout"},
	})

	require.Eventually(t, func() bool {
		runs, err := env.runRepo.ListRuns(ctx, 10)
		return err == nil && len(runs) == 1
	}, time.Second, 10*time.Millisecond)

	runs, err := env.runRepo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, capture.OutcomeDegraded, runs[0].Outcome)
	require.Equal(t, []string{"beta.test: timeout"}, runs[0].Errors)

	var found bool
	for _, n := range env.alerts.List() {
		if strings.Contains(n.Message, "1 errors") {
			found = true
		}
	}
	require.True(t, found, "partial failure should surface a summary notification")
}

func TestCancelledRunResetsImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Add("acme.test")
	require.NoError(t, err)

	require.NoError(t, env.coord.StartBulk(ctx))
	require.NoError(t, env.coord.Cancel(ctx))
	require.Equal(t, 1, env.engine.CancelCalls)

	env.engine.Emit(capture.Progress{Total: 1, Completed: 0, IsComplete: true})

	require.Eventually(t, func() bool {
		return env.coord.Job().Status == capture.StatusIdle
	}, time.Second, 10*time.Millisecond)

	runs, err := env.runRepo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, capture.OutcomeCancelled, runs[0].Outcome)
}

func TestCustomStatusRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	opt, err := env.store.AddStatusOption(ctx, "Maintenance", "#ff8800")
	require.NoError(t, err)
	require.Equal(t, "maintenance", opt.Value)

	// Merged list carries built-ins first, then the extension.
	opts, err := env.store.StatusOptions(ctx)
	require.NoError(t, err)
	builtin := website.BuiltinStatuses()
	require.Len(t, opts, len(builtin)+1)
	require.Equal(t, "maintenance", opts[len(builtin)].Value)

	// A second registration of the same label is rejected.
	_, err = env.store.AddStatusOption(ctx, "Maintenance", "#000000")
	require.ErrorIs(t, err, website.ErrStatusExists)
}

func TestExportBackupCarriesStatuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Add("acme.test")
	require.NoError(t, err)
	_, err = env.store.AddStatusOption(ctx, "Maintenance", "#ff8800")
	require.NoError(t, err)

	backup, err := env.store.ExportBackup(ctx)
	require.NoError(t, err)
	require.Len(t, backup.Websites, 1)
	require.Len(t, backup.CustomStatuses, 1)
	require.Equal(t, "1.0", backup.Version)
}
