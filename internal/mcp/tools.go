package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/search"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/notify"
)

// Tools holds the dependencies the tool handlers dispatch into.
type Tools struct {
	store  *website.Store
	coord  *capture.Coordinator
	alerts *notify.Center
	logger *slog.Logger
}

// NewTools creates the tool dispatch surface.
func NewTools(store *website.Store, coord *capture.Coordinator, alerts *notify.Center, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{store: store, coord: coord, alerts: alerts, logger: logger}
}

func (t *Tools) ListWebsites(ctx context.Context) (any, error) {
	return t.store.Snapshot(), nil
}

func (t *Tools) AddWebsite(ctx context.Context, p AddWebsiteParams) (any, error) {
	return t.store.Add(p.URL)
}

func (t *Tools) RemoveWebsite(ctx context.Context, p WebsiteIDParams) (any, error) {
	if !t.store.RemoveOne(p.ID) {
		return nil, capture.ErrUnknownWebsite
	}
	return map[string]bool{"removed": true}, nil
}

func (t *Tools) CheckWebsite(ctx context.Context, p WebsiteIDParams) (any, error) {
	return t.coord.CheckOne(ctx, p.ID)
}

func (t *Tools) CheckAllWebsites(ctx context.Context) (any, error) {
	checked, failed, err := t.coord.CheckAll(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int{"checked": checked, "failed": failed}, nil
}

func (t *Tools) CaptureScreenshot(ctx context.Context, p WebsiteIDParams) (any, error) {
	if err := t.coord.TakeSingle(ctx, p.ID); err != nil {
		return nil, err
	}
	rec, _ := t.store.Get(p.ID)
	return rec, nil
}

func (t *Tools) StartBulkCapture(ctx context.Context) (any, error) {
	if err := t.coord.StartBulk(ctx); err != nil {
		return nil, err
	}
	return t.coord.Job(), nil
}

func (t *Tools) CancelBulkCapture(ctx context.Context) (any, error) {
	if err := t.coord.Cancel(ctx); err != nil {
		return nil, err
	}
	return t.coord.Job(), nil
}

func (t *Tools) GetCaptureJob(ctx context.Context) (any, error) {
	return t.coord.Job(), nil
}

func (t *Tools) CaptureHistory(ctx context.Context, p HistoryParams) (any, error) {
	return t.coord.History(ctx, p.Limit)
}

func (t *Tools) SearchWebsites(ctx context.Context, criteria search.Criteria) (any, error) {
	return search.Evaluate(t.store.Snapshot(), criteria), nil
}

func (t *Tools) QuickSearch(ctx context.Context, p QuickSearchParams) (any, error) {
	return search.Quick(t.store.Snapshot(), p.Text), nil
}

func (t *Tools) Suggest(ctx context.Context, p SuggestParams) (any, error) {
	return search.Suggest(t.store.Snapshot(), p.Prefix), nil
}

func (t *Tools) SiteStats(ctx context.Context) (any, error) {
	return search.Summarize(t.store.Snapshot()), nil
}

func (t *Tools) ToggleFavorite(ctx context.Context, p WebsiteIDParams) (any, error) {
	favorite, ok := t.store.ToggleFavorite(ctx, p.ID)
	if !ok {
		return nil, capture.ErrUnknownWebsite
	}
	return map[string]bool{"favorite": favorite}, nil
}

func (t *Tools) SetIndustry(ctx context.Context, p SetFieldParams) (any, error) {
	if !t.store.SetIndustry(ctx, p.ID, p.Value) {
		return nil, capture.ErrUnknownWebsite
	}
	return map[string]bool{"updated": true}, nil
}

func (t *Tools) SetProjectStatus(ctx context.Context, p SetFieldParams) (any, error) {
	if !t.store.SetProjectStatus(ctx, p.ID, p.Value) {
		return nil, capture.ErrUnknownWebsite
	}
	return map[string]bool{"updated": true}, nil
}

func (t *Tools) ListStatusOptions(ctx context.Context) (any, error) {
	return t.store.StatusOptions(ctx)
}

func (t *Tools) AddStatusOption(ctx context.Context, p AddStatusParams) (any, error) {
	return t.store.AddStatusOption(ctx, p.Label, p.Color)
}

func (t *Tools) ExportBackup(ctx context.Context) (any, error) {
	return t.store.ExportBackup(ctx)
}

func (t *Tools) ExportWebsites(ctx context.Context) (any, error) {
	data, err := t.store.ExportJSON()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (t *Tools) ListNotifications(ctx context.Context) (any, error) {
	return t.alerts.List(), nil
}

// registerTools wires every tool into the SDK server. Handlers decode
// raw JSON arguments themselves; domain errors become tool errors via
// SetError rather than protocol errors.
func registerTools(server *sdkmcp.Server, t *Tools) {
	addTool(server, "list_websites", "List every tracked website with its latest health data",
		objectSchema(nil, nil), noParams(t.ListWebsites))

	addTool(server, "add_website", "Track a new website by URL",
		objectSchema(map[string]any{
			"url": prop("string", "Website URL; https is assumed when no scheme is given"),
		}, []string{"url"}), withParams(t.AddWebsite))

	addTool(server, "remove_website", "Stop tracking a website",
		idSchema(), withParams(t.RemoveWebsite))

	addTool(server, "check_website", "Run a health check for one website and apply the result",
		idSchema(), withParams(t.CheckWebsite))

	addTool(server, "check_all_websites", "Run health checks for every tracked website",
		objectSchema(nil, nil), noParams(t.CheckAllWebsites))

	addTool(server, "capture_screenshot", "Capture a fresh screenshot for one website",
		idSchema(), withParams(t.CaptureScreenshot))

	addTool(server, "start_bulk_capture", "Start capturing screenshots for all tracked websites",
		objectSchema(nil, nil), noParams(t.StartBulkCapture))

	addTool(server, "cancel_bulk_capture", "Cancel the running bulk screenshot job",
		objectSchema(nil, nil), noParams(t.CancelBulkCapture))

	addTool(server, "get_capture_job", "Get the state of the current bulk capture job",
		objectSchema(nil, nil), noParams(t.GetCaptureJob))

	addTool(server, "capture_history", "List recently finished bulk capture runs",
		objectSchema(map[string]any{
			"limit": prop("integer", "Maximum number of runs to return"),
		}, nil), withParams(t.CaptureHistory))

	addTool(server, "search_websites", "Search and filter tracked websites",
		objectSchema(map[string]any{
			"text":           prop("string", "Free-text term matched against name and URL"),
			"health":         prop("string", "Health bucket: all, online, offline or unknown"),
			"project_status": prop("string", "Project status value to filter by"),
			"industry":       prop("string", "Industry to filter by"),
			"favorites_only": prop("boolean", "Only return favorites"),
			"wordpress":      prop("boolean", "Filter by detected WordPress platform"),
			"limit":          prop("integer", "Maximum number of matches to return"),
		}, nil), withParams(t.SearchWebsites))

	addTool(server, "quick_search", "Text-only search returning at most five matches",
		objectSchema(map[string]any{
			"text": prop("string", "Free-text term matched against name, URL, industry and project status"),
		}, []string{"text"}), withParams(t.QuickSearch))

	addTool(server, "suggest_websites", "Autocomplete website names, URLs and industries",
		objectSchema(map[string]any{
			"prefix": prop("string", "Text typed so far; at least 2 characters"),
		}, []string{"prefix"}), withParams(t.Suggest))

	addTool(server, "site_stats", "Summarize registry health counts",
		objectSchema(nil, nil), noParams(t.SiteStats))

	addTool(server, "toggle_favorite", "Toggle the favorite flag for a website",
		idSchema(), withParams(t.ToggleFavorite))

	addTool(server, "set_industry", "Set the industry classification for a website",
		fieldSchema("Industry value"), withParams(t.SetIndustry))

	addTool(server, "set_project_status", "Set the project status for a website",
		fieldSchema("Project status value"), withParams(t.SetProjectStatus))

	addTool(server, "list_status_options", "List built-in and user-defined project statuses",
		objectSchema(nil, nil), noParams(t.ListStatusOptions))

	addTool(server, "add_status_option", "Register a user-defined project status",
		objectSchema(map[string]any{
			"label": prop("string", "Display label for the status"),
			"color": prop("string", "Display color, e.g. #ff8800"),
		}, []string{"label"}), withParams(t.AddStatusOption))

	addTool(server, "export_backup", "Export every website and custom status as a backup payload",
		objectSchema(nil, nil), noParams(t.ExportBackup))

	addTool(server, "export_websites", "Export the website registry as plain JSON",
		objectSchema(nil, nil), noParams(t.ExportWebsites))

	addTool(server, "list_notifications", "List unexpired user-visible notifications",
		objectSchema(nil, nil), noParams(t.ListNotifications))
}

type toolFunc func(ctx context.Context, args json.RawMessage) (any, error)

func noParams(fn func(ctx context.Context) (any, error)) toolFunc {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	}
}

func withParams[T any](fn func(ctx context.Context, p T) (any, error)) toolFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		var p T
		if len(args) > 0 {
			if err := json.Unmarshal(args, &p); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
		}
		return fn(ctx, p)
	}
}

// addTool registers a low-level tool handler. A non-nil error from the
// handler would be a protocol error, so domain failures are converted to
// tool errors via SetError instead.
func addTool(server *sdkmcp.Server, name, description string, schema json.RawMessage, fn toolFunc) {
	tool := &sdkmcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}
	server.AddTool(tool, toolHandler(fn))
}

func toolHandler(fn toolFunc) func(context.Context, *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		result, err := fn(ctx, req.Params.Arguments)
		if err != nil {
			var res sdkmcp.CallToolResult
			if apiErr := MapError(err); apiErr != nil {
				res.SetError(apiErr)
			} else {
				res.SetError(err)
			}
			return &res, nil
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			var res sdkmcp.CallToolResult
			res.SetError(fmt.Errorf("encoding result: %w", err))
			return &res, nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		}, nil
	}
}

func objectSchema(properties map[string]any, required []string) json.RawMessage {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return data
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func idSchema() json.RawMessage {
	return objectSchema(map[string]any{
		"id": prop("integer", "Website id"),
	}, []string{"id"})
}

func fieldSchema(valueDescription string) json.RawMessage {
	return objectSchema(map[string]any{
		"id":    prop("integer", "Website id"),
		"value": prop("string", valueDescription),
	}, []string{"id", "value"})
}
