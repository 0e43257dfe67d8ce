package capture

import (
	"context"

	"github.com/ganot/sitewatch/internal/domain/website"
)

// Engine is the out-of-process backend that performs checks and captures.
// The coordinator only issues requests and consumes results; how the work
// happens is the engine's business.
type Engine interface {
	CheckSite(ctx context.Context, url string) (CheckResult, error)
	CaptureScreenshot(ctx context.Context, url string) (string, error)
	StartBulkCapture(ctx context.Context) error
	CancelBulkCapture(ctx context.Context) error
}

// Subscription is a live progress stream. Events is closed when the stream
// ends; Close disposes the subscription so no events reach a stale
// coordinator.
type Subscription interface {
	Events() <-chan Progress
	Close() error
}

// ProgressSource provides the named progress event stream.
type ProgressSource interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Registry is the slice of the website store the coordinator needs.
type Registry interface {
	Snapshot() []website.Website
	Get(id int64) (website.Website, bool)
	UpdateOne(id int64, patch website.Patch) bool
	Count() int
	Load(ctx context.Context) ([]website.Website, error)
}

// RunRepository persists bulk-run history.
type RunRepository interface {
	RecordRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}
