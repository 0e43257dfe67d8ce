// Package transport exposes the dashboard surface over HTTP: a JSON-RPC
// method endpoint for commands and queries, a server-sent-event stream
// re-broadcasting bulk capture progress, and a health probe.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ganot/sitewatch/internal/autosave"
	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/search"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/notify"
	"github.com/ganot/sitewatch/internal/repository"
)

// Server dispatches JSON-RPC methods to the registry, coordinator and
// search surfaces.
type Server struct {
	store  *website.Store
	coord  *capture.Coordinator
	saver  *autosave.Synchronizer
	alerts *notify.Center
	logger *slog.Logger
}

// NewServer creates the HTTP router.
func NewServer(store *website.Store, coord *capture.Coordinator, saver *autosave.Synchronizer, alerts *notify.Center, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{store: store, coord: coord, saver: saver, alerts: alerts, logger: logger}

	r := chi.NewRouter()
	r.Post("/rpc", srv.handleRPC)
	r.Get("/events", srv.handleEvents)
	r.Get("/health", srv.handleHealth)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, ErrInvalidReq, "invalid request", nil)
		return
	}

	result, err := s.dispatch(r.Context(), req.Method, req.Params)
	if err != nil {
		code, message := mapError(err)
		if code == ErrMethodNotFound {
			s.logger.Warn("unknown rpc method", "method", req.Method)
		}
		WriteError(w, req.ID, code, message, nil)
		return
	}

	WriteResult(w, req.ID, result)
}

// handleEvents re-broadcasts bulk capture progress as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel := s.coord.Watch()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case p, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(p)
			if err != nil {
				s.logger.Error("encoding progress event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: screenshot-progress\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

type idParams struct {
	ID int64 `json:"id"`
}

type urlParams struct {
	URL string `json:"url"`
}

type updateParams struct {
	ID            int64              `json:"id"`
	Name          *string            `json:"name,omitempty"`
	URL           *string            `json:"url,omitempty"`
	Status        *int               `json:"status,omitempty"`
	Vitals        *website.WebVitals `json:"vitals,omitempty"`
	Screenshot    *string            `json:"screenshot,omitempty"`
	Favorite      *bool              `json:"favorite,omitempty"`
	Industry      *string            `json:"industry,omitempty"`
	ProjectStatus *string            `json:"project_status,omitempty"`
	IsWordPress   *bool              `json:"is_wordpress,omitempty"`
	Notes         *website.Notes     `json:"notes,omitempty"`
}

type fieldParams struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

type statusParams struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type suggestParams struct {
	Prefix string `json:"prefix"`
}

type quickParams struct {
	Text string `json:"text"`
}

type limitParams struct {
	Limit int `json:"limit"`
}

type importParams struct {
	Websites       []website.Website      `json:"websites"`
	CustomStatuses []website.StatusOption `json:"custom_statuses,omitempty"`
}

func (s *Server) dispatch(ctx context.Context, method string, raw json.RawMessage) (any, error) {
	switch method {
	case "website.list":
		return s.store.Snapshot(), nil

	case "website.add":
		p, err := decode[urlParams](raw)
		if err != nil {
			return nil, err
		}
		return s.store.Add(p.URL)

	case "website.update":
		p, err := decode[updateParams](raw)
		if err != nil {
			return nil, err
		}
		// A vanished id is tolerated: the update may race a deletion.
		updated := s.store.UpdateOne(p.ID, website.Patch{
			Name:          p.Name,
			URL:           p.URL,
			Status:        p.Status,
			Vitals:        p.Vitals,
			Screenshot:    p.Screenshot,
			Favorite:      p.Favorite,
			Industry:      p.Industry,
			ProjectStatus: p.ProjectStatus,
			IsWordPress:   p.IsWordPress,
			Notes:         p.Notes,
		})
		return map[string]bool{"updated": updated}, nil

	case "website.remove":
		p, err := decode[idParams](raw)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"removed": s.store.RemoveOne(p.ID)}, nil

	case "website.toggle_favorite":
		p, err := decode[idParams](raw)
		if err != nil {
			return nil, err
		}
		favorite, ok := s.store.ToggleFavorite(ctx, p.ID)
		if !ok {
			return nil, capture.ErrUnknownWebsite
		}
		return map[string]bool{"favorite": favorite}, nil

	case "website.set_industry":
		p, err := decode[fieldParams](raw)
		if err != nil {
			return nil, err
		}
		if !s.store.SetIndustry(ctx, p.ID, p.Value) {
			return nil, capture.ErrUnknownWebsite
		}
		return map[string]bool{"updated": true}, nil

	case "website.set_project_status":
		p, err := decode[fieldParams](raw)
		if err != nil {
			return nil, err
		}
		if !s.store.SetProjectStatus(ctx, p.ID, p.Value) {
			return nil, capture.ErrUnknownWebsite
		}
		return map[string]bool{"updated": true}, nil

	case "website.industries":
		return website.Industries(), nil

	case "status.list":
		return s.store.StatusOptions(ctx)

	case "status.add":
		p, err := decode[statusParams](raw)
		if err != nil {
			return nil, err
		}
		return s.store.AddStatusOption(ctx, p.Label, p.Color)

	case "search.evaluate":
		criteria, err := decode[search.Criteria](raw)
		if err != nil {
			return nil, err
		}
		return search.Evaluate(s.store.Snapshot(), criteria), nil

	case "search.quick":
		p, err := decode[quickParams](raw)
		if err != nil {
			return nil, err
		}
		return search.Quick(s.store.Snapshot(), p.Text), nil

	case "search.suggest":
		p, err := decode[suggestParams](raw)
		if err != nil {
			return nil, err
		}
		return search.Suggest(s.store.Snapshot(), p.Prefix), nil

	case "search.stats":
		return search.Summarize(s.store.Snapshot()), nil

	case "capture.start_bulk":
		if err := s.coord.StartBulk(ctx); err != nil {
			return nil, err
		}
		return s.coord.Job(), nil

	case "capture.cancel":
		if err := s.coord.Cancel(ctx); err != nil {
			return nil, err
		}
		return s.coord.Job(), nil

	case "capture.job":
		return s.coord.Job(), nil

	case "capture.single":
		p, err := decode[idParams](raw)
		if err != nil {
			return nil, err
		}
		if err := s.coord.TakeSingle(ctx, p.ID); err != nil {
			return nil, err
		}
		rec, _ := s.store.Get(p.ID)
		return rec, nil

	case "capture.history":
		p, err := decode[limitParams](raw)
		if err != nil {
			return nil, err
		}
		return s.coord.History(ctx, p.Limit)

	case "check.one":
		p, err := decode[idParams](raw)
		if err != nil {
			return nil, err
		}
		return s.coord.CheckOne(ctx, p.ID)

	case "check.all":
		checked, failed, err := s.coord.CheckAll(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int{"checked": checked, "failed": failed}, nil

	case "export.websites":
		data, err := s.store.ExportJSON()
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil

	case "export.backup":
		return s.store.ExportBackup(ctx)

	case "import.validate":
		p, err := decode[importParams](raw)
		if err != nil {
			return nil, err
		}
		return website.ValidateImport(p.Websites), nil

	case "import.apply":
		p, err := decode[importParams](raw)
		if err != nil {
			return nil, err
		}
		return s.applyImport(ctx, p)

	case "notifications.list":
		return s.alerts.List(), nil

	case "save.flush":
		if s.saver != nil {
			if err := s.saver.Flush(ctx); err != nil {
				return nil, err
			}
		}
		return map[string]bool{"flushed": true}, nil

	default:
		return nil, errMethodNotFound
	}
}

// applyImport replaces the registry with the validated import payload and
// registers any custom statuses it carries. Statuses that already exist
// are skipped rather than treated as failures.
func (s *Server) applyImport(ctx context.Context, p importParams) (any, error) {
	validation := website.ValidateImport(p.Websites)
	if !validation.Valid {
		return nil, fmt.Errorf("%w: %s", website.ErrInvalidURL, validation.ErrorMessage)
	}

	for _, opt := range p.CustomStatuses {
		_, err := s.store.AddStatusOption(ctx, opt.Label, opt.Color)
		if err != nil && !errors.Is(err, website.ErrStatusExists) {
			return nil, err
		}
	}

	s.store.ReplaceAll(p.Websites)
	return map[string]int{"imported": len(p.Websites)}, nil
}

var errMethodNotFound = errors.New("method not found")

func decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return out, nil
}

var errInvalidParams = errors.New("invalid params")

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, errMethodNotFound):
		return ErrMethodNotFound, err.Error()
	case errors.Is(err, errInvalidParams),
		errors.Is(err, website.ErrInvalidURL),
		errors.Is(err, website.ErrEmptyLabel):
		return ErrInvalidParams, err.Error()
	case errors.Is(err, capture.ErrAlreadyRunning),
		errors.Is(err, capture.ErrNotRunning),
		errors.Is(err, capture.ErrCaptureInFlight),
		errors.Is(err, website.ErrStatusExists):
		return ErrConflict, err.Error()
	case errors.Is(err, capture.ErrUnknownWebsite),
		errors.Is(err, repository.ErrNotFound):
		return ErrNotFound, err.Error()
	default:
		return ErrInternal, err.Error()
	}
}
