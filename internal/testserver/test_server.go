// Package testserver wires a full sitewatch stack against an in-memory
// database and a scripted engine, for integration and functional tests.
package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/sitewatch/internal/autosave"
	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/notify"
	"github.com/ganot/sitewatch/internal/sqlite"
	"github.com/ganot/sitewatch/internal/transport"
)

// FakeEngine is a scripted stand-in for the out-of-process engine. Tests
// program its responses and push progress events through Emit.
type FakeEngine struct {
	mu sync.Mutex

	CheckResults  map[string]capture.CheckResult
	CheckErrs     map[string]error
	Screenshot    string
	ScreenshotErr error
	StartErr      error
	CancelErr     error

	StartCalls  int
	CancelCalls int

	events chan capture.Progress
}

// NewFakeEngine creates an engine whose checks return 200 by default.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		CheckResults: make(map[string]capture.CheckResult),
		CheckErrs:    make(map[string]error),
		Screenshot:   "data:image/png;base64,aGk=",
		events:       make(chan capture.Progress, 32),
	}
}

func (e *FakeEngine) CheckSite(ctx context.Context, url string) (capture.CheckResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.CheckErrs[url]; err != nil {
		return capture.CheckResult{}, err
	}
	if res, ok := e.CheckResults[url]; ok {
		return res, nil
	}
	return capture.CheckResult{Status: 200}, nil
}

func (e *FakeEngine) CaptureScreenshot(ctx context.Context, url string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ScreenshotErr != nil {
		return "", e.ScreenshotErr
	}
	return e.Screenshot, nil
}

func (e *FakeEngine) StartBulkCapture(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StartCalls++
	return e.StartErr
}

func (e *FakeEngine) CancelBulkCapture(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CancelCalls++
	return e.CancelErr
}

// Emit pushes one progress event onto the stream.
func (e *FakeEngine) Emit(p capture.Progress) {
	e.events <- p
}

type fakeSubscription struct {
	events chan capture.Progress
	once   sync.Once
}

func (s *fakeSubscription) Events() <-chan capture.Progress { return s.events }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.events) })
	return nil
}

func (e *FakeEngine) Subscribe(ctx context.Context) (capture.Subscription, error) {
	return &fakeSubscription{events: e.events}, nil
}

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Store  *website.Store
	Coord  *capture.Coordinator
	Engine *FakeEngine
	Alerts *notify.Center
	Saver  *autosave.Synchronizer
}

func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	websiteRepo := sqlite.NewWebsiteRepository(db)
	statusRepo := sqlite.NewStatusRepository(db)
	runRepo := sqlite.NewRunRepository(db)

	alerts := notify.NewCenter(time.Minute)
	store := website.NewStore(websiteRepo, statusRepo, alerts, nil)

	// Short debounce so tests settle quickly without being flaky.
	saver := autosave.New(func(ctx context.Context) error {
		return websiteRepo.SaveAll(ctx, store.PersistableSnapshot())
	}, 10*time.Millisecond, nil, alerts, nil)
	store.OnChange(saver.Trigger)

	eng := NewFakeEngine()
	coord := capture.NewCoordinator(capture.Config{
		Registry: store,
		Engine:   eng,
		Source:   eng,
		Runs:     runRepo,
		Alerts:   alerts,
		Grace:    50 * time.Millisecond,
	})
	require.NoError(t, coord.Start(context.Background()))

	server := httptest.NewServer(transport.NewServer(store, coord, saver, alerts, nil))

	ts := &TestServer{
		Server: server,
		DB:     db,
		Store:  store,
		Coord:  coord,
		Engine: eng,
		Alerts: alerts,
		Saver:  saver,
	}

	t.Cleanup(func() {
		server.Close()
		_ = coord.Close()
		saver.Close()
		_ = db.Close()
	})

	return ts
}

// WaitForSave flushes any pending debounce so the database reflects the
// current registry.
func (ts *TestServer) WaitForSave(t *testing.T) {
	t.Helper()
	require.NoError(t, ts.Saver.Flush(context.Background()))
}
