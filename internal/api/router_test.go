package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/rawgdex/internal/api/middleware"
	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/domain"
	"github.com/timmy/rawgdex/internal/logger"
	"github.com/timmy/rawgdex/internal/metrics"
	"github.com/timmy/rawgdex/internal/rawg"
	"github.com/timmy/rawgdex/internal/service"
)

const testAPIKey = "rawg-test-secret"

// rawgStub serves two pages of /games per genre and one page of /genres.
// Like RAWG, it echoes the key in next URLs.
func rawgStub(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/genres":
			fmt.Fprint(w, `{"count":2,"next":null,"results":[{"id":4,"name":"Action","slug":"action"},{"id":5,"name":"RPG","slug":"role-playing-games-rpg"}]}`)
		case "/games":
			genre := q.Get("genres")
			if genre == "" {
				genre = "all"
			}
			page, _ := strconv.Atoi(q.Get("page"))
			next := "null"
			if page == 1 {
				next = strconv.Quote(fmt.Sprintf("%s/games?genres=%s&key=%s&page=2", srv.URL, q.Get("genres"), q.Get("key")))
			}
			fmt.Fprintf(w, `{"count":4,"next":%s,"results":[{"id":%d,"name":"%s-%d-a"},{"id":%d,"name":"%s-%d-b"}]}`,
				next, page*10+1, genre, page, page*10+2, genre, page)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type stubDetail struct {
	err error
}

func (s stubDetail) Get(_ context.Context, id int) (*domain.GameView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.GameView{
		Detail:      rawg.GameDetail{ID: id, Name: "Hades"},
		Screenshots: []rawg.Screenshot{},
		Movies:      []rawg.Movie{},
	}, nil
}

type testServer struct {
	router  http.Handler
	browse  *service.BrowseService
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	srv := rawgStub(t)
	m := metrics.New()
	client, err := rawg.New(rawg.Config{BaseURL: srv.URL, APIKey: testAPIKey}, rawg.WithObserver(m))
	require.NoError(t, err)

	cat := catalog.New(client)
	browse := service.NewBrowseService(cat, logger.NewNop(), service.BrowseConfig{
		MaxSessions:  4,
		FetchTimeout: 2 * time.Second,
		Recorder:     m,
		Gauge:        m,
	})
	t.Cleanup(browse.Shutdown)

	deps := Deps{
		Browse:      browse,
		Detail:      stubDetail{},
		Genres:      cat,
		Metrics:     m,
		Logger:      logger.NewNop(),
		CORS:        middleware.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		WaitTimeout: 3 * time.Second,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testServer{router: SetupRouter(deps, "test"), browse: browse, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["error"]
}

func itemNames(t *testing.T, v service.SessionView) []string {
	t.Helper()
	items, ok := v.Items.([]any)
	require.True(t, ok, "items: %T", v.Items)
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.(map[string]any)["name"].(string))
	}
	return names
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 0.0, body["sessions"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Ping = func(context.Context) error { return errors.New("connection refused") }
	})
	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[map[string]any](t, rec)["status"])
}

func TestFeedsAndGenres(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/feeds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feeds := decode[struct {
		Feeds []catalog.Descriptor `json:"feeds"`
		Count int                  `json:"count"`
	}](t, rec)
	assert.Equal(t, len(catalog.Descriptors()), feeds.Count)
	assert.Equal(t, catalog.FeedNewReleases, feeds.Feeds[0].ID)

	rec = s.do(t, http.MethodGet, "/api/v1/genres", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	genres := decode[struct {
		Genres []rawg.Genre `json:"genres"`
	}](t, rec)
	require.Len(t, genres.Genres, 2)
	assert.Equal(t, "Action", genres.Genres[0].Name)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions?wait=true", map[string]any{"feed": "popular", "genre": 4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[service.SessionView](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/v1/sessions/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, []string{"4-1-a", "4-1-b"}, itemNames(t, created))
	assert.True(t, created.HasMore)
	assert.Equal(t, catalog.Genre(4), created.Filter.Genre)
	assert.Equal(t, "applied", created.Outcome)

	base := "/api/v1/sessions/" + created.ID
	rec = s.do(t, http.MethodPost, base+"/more?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	more := decode[service.SessionView](t, rec)
	assert.Equal(t, []string{"4-1-a", "4-1-b", "4-2-a", "4-2-b"}, itemNames(t, more))
	assert.False(t, more.HasMore)

	rec = s.do(t, http.MethodPost, base+"/more?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decode[service.SessionView](t, rec).Outcome, "exhausted feed")

	rec = s.do(t, http.MethodPut, base+"/filter?wait=true", map[string]any{"genre": "all"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	filtered := decode[service.SessionView](t, rec)
	assert.Equal(t, []string{"all-1-a", "all-1-b"}, itemNames(t, filtered))
	assert.True(t, filtered.Filter.Genre.IsAll())

	rec = s.do(t, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode[map[string]any](t, rec)["count"])

	rec = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session not found", errorOf(t, rec))
}

func TestSessionViews_HideAPIKey(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions?wait=true", map[string]any{"feed": "popular"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), testAPIKey)
	created := decode[service.SessionView](t, rec)
	token, ok := created.Next.TokenValue()
	require.True(t, ok, "next: %s", created.Next)
	assert.NotContains(t, token, "key=")

	rec = s.do(t, http.MethodGet, "/api/v1/sessions", nil)
	assert.NotContains(t, rec.Body.String(), testAPIKey)

	rec = s.do(t, http.MethodPost, "/api/v1/sessions/"+created.ID+"/more?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"all-1-a", "all-1-b", "all-2-a", "all-2-b"}, itemNames(t, decode[service.SessionView](t, rec)))
}

func TestSessionCreate_WithoutWaitIsAccepted(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{"feed": "top"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	v := decode[service.SessionView](t, rec)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, catalog.FeedTop, v.Feed)
}

func TestSessionCreate_Rejections(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing feed", map[string]any{"genre": 4}, http.StatusBadRequest},
		{"unknown feed", map[string]any{"feed": "upcoming"}, http.StatusBadRequest},
		{"bad genre", map[string]any{"feed": "popular", "genre": "shooter"}, http.StatusBadRequest},
		{"platform feed without platform", map[string]any{"feed": "platform-games"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/sessions", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, errorOf(t, rec))
		})
	}
	assert.Equal(t, 0, s.browse.Len())
}

func TestSessionCreate_TooMany(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 4; i++ {
		rec := s.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{"feed": "genres"})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{"feed": "genres"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionCommands_UnknownSession(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/v1/sessions/nope/reload", "/api/v1/sessions/nope/more"} {
		rec := s.do(t, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := s.do(t, http.MethodPut, "/api/v1/sessions/nope/filter", map[string]any{"genre": 4})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGameDetail(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
		code int
		msg  string
	}{
		{name: "ok", path: "/api/v1/games/3498", code: http.StatusOK},
		{name: "bad id", path: "/api/v1/games/gta", code: http.StatusBadRequest, msg: "invalid game id: gta"},
		{
			name: "not found",
			path: "/api/v1/games/1",
			err:  &rawg.FetchError{Kind: rawg.KindStatus, Endpoint: "games/{id}", Status: http.StatusNotFound},
			code: http.StatusNotFound,
			msg:  "Not found.",
		},
		{
			name: "upstream down",
			path: "/api/v1/games/1",
			err:  &rawg.FetchError{Kind: rawg.KindTransport, Endpoint: "games/{id}", Err: errors.New("dial tcp")},
			code: http.StatusBadGateway,
			msg:  "Network error. Check your connection and try again.",
		},
		{name: "internal", path: "/api/v1/games/1", err: errors.New("disk full"), code: http.StatusInternalServerError, msg: "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, func(d *Deps) { d.Detail = stubDetail{err: tt.err} })
			rec := s.do(t, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errorOf(t, rec))
				return
			}
			view := decode[domain.GameView](t, rec)
			assert.Equal(t, 3498, view.Detail.ID)
		})
	}
}

func TestMiddleware_CORSAndRequestID(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/feeds", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/feeds", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	const id = "6f1c2f3e-8a4b-4d59-9b7e-2f0c1d2e3a4b"
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, id)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(middleware.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(middleware.RequestIDHeader))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/v1/sessions?wait=true", map[string]any{"feed": "popular"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `rawgdex_http_request_duration_seconds_count{code="201",method="POST",route="/api/v1/sessions"} 1`)
	assert.Contains(t, body, `rawgdex_browse_sessions 1`)
	assert.Contains(t, body, `rawgdex_rawg_requests_total{endpoint="games"`)
}
