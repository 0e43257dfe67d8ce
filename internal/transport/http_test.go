package transport_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/search"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/notify"
	"github.com/ganot/sitewatch/internal/repository/mocks"
	"github.com/ganot/sitewatch/internal/transport"
)

type stubSubscription struct {
	events chan capture.Progress
}

func (s *stubSubscription) Events() <-chan capture.Progress { return s.events }
func (s *stubSubscription) Close() error                    { close(s.events); return nil }

type stubSource struct {
	sub *stubSubscription
}

func (s *stubSource) Subscribe(ctx context.Context) (capture.Subscription, error) {
	return s.sub, nil
}

type fixture struct {
	server *httptest.Server
	store  *website.Store
	engine *mocks.Engine
	source *stubSource
	coord  *capture.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	alerts := notify.NewCenter(time.Minute)
	store := website.NewStore(&mocks.WebsiteRepository{}, &mocks.StatusRepository{}, alerts, nil)
	eng := &mocks.Engine{}
	source := &stubSource{sub: &stubSubscription{events: make(chan capture.Progress, 16)}}

	coord := capture.NewCoordinator(capture.Config{
		Registry: store,
		Engine:   eng,
		Source:   source,
		Alerts:   alerts,
	})
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Close() })

	router := transport.NewServer(store, coord, nil, alerts, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &fixture{server: srv, store: store, engine: eng, source: source, coord: coord}
}

func (f *fixture) call(t *testing.T, method string, params any) transport.Response {
	t.Helper()

	body := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		body["params"] = params
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(f.server.URL+"/rpc", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out transport.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_WebsiteAddAndList(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "website.add", map[string]string{"url": "acme.test"})
	require.Nil(t, resp.Error)

	resp = f.call(t, "website.list", nil)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var records []website.Website
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	require.Equal(t, "https://acme.test", records[0].URL)
}

func TestServer_InvalidURLIsRejected(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "website.add", map[string]string{"url": "ftp://acme.test"})
	require.NotNil(t, resp.Error)
	require.Equal(t, transport.ErrInvalidParams, resp.Error.Code)
	require.Zero(t, f.store.Count())
}

func TestServer_UnknownMethod(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "no.such.method", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, transport.ErrMethodNotFound, resp.Error.Code)
}

func TestServer_BulkExclusivityMapsToConflict(t *testing.T) {
	f := newFixture(t)
	f.engine.On("StartBulkCapture", mock.Anything).Return(nil)

	resp := f.call(t, "capture.start_bulk", nil)
	require.Nil(t, resp.Error)

	resp = f.call(t, "capture.start_bulk", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, transport.ErrConflict, resp.Error.Code)
}

func TestServer_SearchEvaluate(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Add("acme.test")
	require.NoError(t, err)

	// Empty criteria yield an empty result, not the whole registry.
	resp := f.call(t, "search.evaluate", map[string]string{"text": "  "})
	require.Nil(t, resp.Error)
	data, _ := json.Marshal(resp.Result)
	require.Contains(t, string(data), `"total_count":0`)

	resp = f.call(t, "search.evaluate", map[string]string{"text": "acme"})
	data, _ = json.Marshal(resp.Result)
	require.Contains(t, string(data), `"total_count":1`)
}

func TestServer_QuickSearchCapsAtFive(t *testing.T) {
	f := newFixture(t)
	for _, host := range []string{"a", "b", "c", "d", "e", "f"} {
		_, err := f.store.Add(host + ".mirror.test")
		require.NoError(t, err)
	}

	resp := f.call(t, "search.quick", map[string]string{"text": "mirror"})
	require.Nil(t, resp.Error)
	data, _ := json.Marshal(resp.Result)

	var result search.Result
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Matches, search.QuickLimit)
	require.Equal(t, 6, result.TotalCount)
	require.True(t, result.HasMore)
}

func TestServer_ExportWebsites(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Add("acme.test")
	require.NoError(t, err)

	resp := f.call(t, "export.websites", nil)
	require.Nil(t, resp.Error)
	data, _ := json.Marshal(resp.Result)

	var records []website.Website
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	require.Equal(t, "https://acme.test", records[0].URL)
}

func TestServer_EventsStreamsProgress(t *testing.T) {
	f := newFixture(t)
	f.engine.On("StartBulkCapture", mock.Anything).Return(nil)

	resp := f.call(t, "capture.start_bulk", nil)
	require.Nil(t, resp.Error)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/events", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()

	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	f.source.sub.events <- capture.Progress{Total: 1, Completed: 0, CurrentWebsite: "acme.test"}

	reader := bufio.NewReader(stream.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	require.Equal(t, "event: screenshot-progress", lines[0])
	require.Contains(t, lines[1], `"current_website":"acme.test"`)
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
