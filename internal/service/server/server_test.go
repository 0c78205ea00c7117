package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/cache"
	"github.com/Agurato/kolnoa/internal/i18n"
	"github.com/Agurato/kolnoa/internal/infrastructure"
	"github.com/Agurato/kolnoa/internal/model"
	"github.com/Agurato/kolnoa/internal/service/server"
)

const testPassword = "correct-horse"

type testEnv struct {
	t        *testing.T
	db       *infrastructure.SQLDB
	server   *server.Server
	sessions *business.SessionManager

	mu  sync.Mutex
	now time.Time

	alice *model.Profile
	admin *model.Profile
}

func (env *testEnv) clock() time.Time {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.now
}

func (env *testEnv) advance(d time.Duration) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.now = env.now.Add(d)
}

func newTestEnv(t *testing.T, feedURL string) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := infrastructure.NewSQLDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrationsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(migrationsDir, "001_notes.sql"),
		[]byte("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL);"), 0o644))

	catalog, err := i18n.NewCatalog(i18n.Hebrew)
	require.NoError(t, err)

	env := &testEnv{t: t, db: db, now: time.Now()}
	memory := cache.NewMemory()
	filterer := business.NewFiltererWrapper()
	movieManager := business.NewMovieManager(db, nil, filterer, memory, time.Minute)
	userManager := business.NewUserManagerWrapper(db, func(username string) bool { return username == "admin" })
	env.sessions = business.NewSessionManager("test-jwt-secret", time.Hour)
	watchlistManager := business.NewWatchlistManager(db)
	reviewManager := business.NewReviewManager(db)
	tokenManager := business.NewTokenManagerWithClock(db, env.clock)
	syncManager := business.NewSyncManager(db, infrastructure.NewFeedClient(feedURL).WithRetry(1, time.Millisecond), movieManager)

	mainHandler := server.NewMainHandler(userManager, movieManager, env.sessions)
	handlers := server.Handlers{
		Main:    mainHandler,
		Movie:   server.NewMovieHandler(movieManager, reviewManager, watchlistManager, filterer, mainHandler, 24),
		Actor:   server.NewActorHandler(business.NewActorManager(db, memory, time.Minute), mainHandler, 24),
		Theater: server.NewTheaterHandler(business.NewTheaterManager(db), mainHandler),
		Profile: server.NewProfileHandler(userManager, reviewManager, watchlistManager, mainHandler),
		API:     server.NewAPIHandler(watchlistManager, tokenManager, reviewManager, userManager, env.sessions),
		Admin: server.NewAdminHandler(syncManager, business.NewMigrationManager(db, migrationsDir),
			movieManager, db, db, mainHandler),
		Beacon: server.NewBeaconHandler(business.NewBeaconRecorder()),
	}
	env.server, err = server.NewServer(server.Config{
		GinMode:       gin.TestMode,
		CookieSecret:  "test-cookie-secret",
		DefaultLocale: i18n.Hebrew,
		MetricsRate:   1000,
		MetricsBurst:  1000,
	}, catalog, env.sessions, db, handlers)
	require.NoError(t, err)

	env.alice, err = userManager.CreateUser(ctx, "alice", testPassword, testPassword)
	require.NoError(t, err)
	env.admin, err = userManager.CreateUser(ctx, "admin", testPassword, testPassword)
	require.NoError(t, err)
	require.True(t, env.admin.IsAdmin)

	require.NoError(t, db.UpsertMovie(ctx, &model.Movie{
		ID:        "m1",
		Slug:      "casablanca",
		TitleEn:   "Casablanca",
		TitleHe:   "קזבלנקה",
		Year:      1942,
		Genres:    []string{"Drama"},
		Countries: []string{"US"},
		UpdatedAt: time.Now(),
	}))
	return env
}

type request struct {
	method  string
	path    string
	body    any
	profile *model.Profile
	header  http.Header
	cookies []*http.Cookie
}

func (env *testEnv) do(r request) *httptest.ResponseRecorder {
	env.t.Helper()
	var body io.Reader
	switch b := r.body.(type) {
	case nil:
	case url.Values:
		body = strings.NewReader(b.Encode())
	case string:
		body = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(env.t, err)
		body = bytes.NewReader(raw)
	}
	if r.method == "" {
		r.method = http.MethodGet
	}

	req := httptest.NewRequest(r.method, r.path, body)
	for key, values := range r.header {
		req.Header[key] = values
	}
	switch r.body.(type) {
	case nil, string:
	case url.Values:
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		req.Header.Set("Content-Type", "application/json")
	}
	if r.profile != nil {
		token, err := env.sessions.Issue(r.profile)
		require.NoError(env.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, cookie := range r.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestTokensAPI(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{method: http.MethodPost, path: "/api/tokens", body: gin.H{"accessCode": "abc", "token": "s3cr3t", "ttl": 60}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = env.do(request{path: "/api/tokens?accessCode=abc"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "s3cr3t", body["token"])

	env.advance(2 * time.Minute)
	w = env.do(request{path: "/api/tokens?accessCode=abc"})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "expired", body["reason"])
	assert.NotContains(t, body, "token")

	w = env.do(request{path: "/api/tokens?accessCode=unknown"})
	require.Equal(t, http.StatusNotFound, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "not_found", body["reason"])

	w = env.do(request{path: "/api/tokens"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "error")

	w = env.do(request{method: http.MethodPost, path: "/api/tokens", body: gin.H{"accessCode": "abc"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/api/tokens", body: gin.H{"accessCode": "abc", "token": "x", "ttl": -5}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A token without expiry is refused
	w = env.do(request{method: http.MethodPost, path: "/api/tokens", body: gin.H{"accessCode": "no-expiry", "token": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	w = env.do(request{path: "/api/tokens?accessCode=no-expiry"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A ttl too large for a time.Duration is refused instead of wrapping around
	w = env.do(request{method: http.MethodPost, path: "/api/tokens", body: `{"accessCode": "huge", "token": "x", "ttl": 18446744074}`})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.do(request{method: http.MethodPost, path: "/api/tokens", body: gin.H{"accessCode": "epoch", "token": "x", "expiresAt": "1970-01-01T00:00:00Z"}})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	w = env.do(request{path: "/api/tokens?accessCode=epoch"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWatchlistAPI(t *testing.T) {
	env := newTestEnv(t, "")

	// Anonymous users are never in error
	w := env.do(request{path: "/api/watchlist?movieId=m1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["inWatchlist"])

	w = env.do(request{method: http.MethodPost, path: "/api/watchlist", body: gin.H{"movieId": "m1"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, model.ErrUnauthorized.Error(), decode(t, w)["error"])

	w = env.do(request{method: http.MethodPost, path: "/api/watchlist", body: gin.H{"movieId": "m1"}, profile: env.alice})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["inWatchlist"])

	w = env.do(request{path: "/api/watchlist?movieId=m1", profile: env.alice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["inWatchlist"])

	// Other users have their own watchlist
	w = env.do(request{path: "/api/watchlist?movieId=m1", profile: env.admin})
	assert.Equal(t, false, decode(t, w)["inWatchlist"])

	w = env.do(request{path: "/api/watchlist", profile: env.alice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["movies"], 1)

	w = env.do(request{method: http.MethodDelete, path: "/api/watchlist?movieId=m1", profile: env.alice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["inWatchlist"])

	w = env.do(request{path: "/api/watchlist?movieId=m1", profile: env.alice})
	assert.Equal(t, false, decode(t, w)["inWatchlist"])

	w = env.do(request{method: http.MethodPost, path: "/api/watchlist", body: gin.H{"movieId": "unknown"}, profile: env.alice})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/api/watchlist", body: gin.H{}, profile: env.alice})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewsAPI(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{method: http.MethodPost, path: "/api/reviews", body: gin.H{"movieId": "m1", "rating": 8, "body": "Here's looking at you"}, profile: env.alice})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "alice", decode(t, w)["username"])

	w = env.do(request{method: http.MethodPost, path: "/api/reviews", body: gin.H{"movieId": "m1", "rating": 6}, profile: env.admin})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(request{path: "/api/reviews?movieId=m1"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["count"])
	assert.EqualValues(t, 7, body["average"])

	w = env.do(request{method: http.MethodPost, path: "/api/reviews", body: gin.H{"movieId": "m1", "rating": 11}, profile: env.alice})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/api/reviews", body: gin.H{"movieId": "m1", "rating": 5}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(request{method: http.MethodDelete, path: "/api/reviews?movieId=m1", profile: env.alice})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(request{path: "/api/reviews?movieId=m1"})
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = env.do(request{path: "/api/reviews"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthTokenAPI(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{method: http.MethodPost, path: "/api/auth/token", body: gin.H{"username": "alice", "password": "wrong-password"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/api/auth/token", body: gin.H{"username": "alice"}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/api/auth/token", body: gin.H{"username": "Alice", "password": testPassword}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Bearer", body["tokenType"])
	assert.EqualValues(t, 3600, body["expiresIn"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	w = env.do(request{
		method: http.MethodPost,
		path:   "/api/watchlist",
		body:   gin.H{"movieId": "m1"},
		header: http.Header{"Authorization": {"Bearer " + token}},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(request{path: "/api/watchlist?movieId=m1", header: http.Header{"Authorization": {"Bearer not-a-token"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["inWatchlist"])
}

func TestAdminAPI(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{path: "/api/debug/schema"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(request{path: "/api/debug/schema", profile: env.alice})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(request{path: "/api/debug/schema?table=tokens", profile: env.admin})
	require.Equal(t, http.StatusOK, w.Code)
	tables, _ := decode(t, w)["tables"].([]any)
	require.Len(t, tables, 1)
	assert.Equal(t, "tokens", tables[0].(map[string]any)["name"])

	w = env.do(request{path: "/api/debug/schema?table=missing", profile: env.admin})
	assert.Equal(t, http.StatusNotFound, w.Code)

	t.Run("Migrations", func(t *testing.T) {
		w := env.do(request{path: "/api/admin/migrations", profile: env.admin})
		require.Equal(t, http.StatusOK, w.Code)
		migrations, _ := decode(t, w)["migrations"].([]any)
		require.Len(t, migrations, 1)
		assert.Equal(t, false, migrations[0].(map[string]any)["applied"])

		w = env.do(request{method: http.MethodPost, path: "/api/admin/migrations/apply", body: gin.H{"name": "001_notes.sql"}, profile: env.alice})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = env.do(request{method: http.MethodPost, path: "/api/admin/migrations/apply", body: gin.H{"name": "001_notes.sql"}, profile: env.admin})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(request{method: http.MethodPost, path: "/api/admin/migrations/apply", body: gin.H{"name": "001_notes.sql"}, profile: env.admin})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = env.do(request{method: http.MethodPost, path: "/api/admin/migrations/apply", body: gin.H{"name": "../schema.sql"}, profile: env.admin})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(request{method: http.MethodPost, path: "/api/admin/migrations/apply", body: gin.H{"name": "002_missing.sql"}, profile: env.admin})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(request{method: http.MethodPost, path: "/api/admin/migrations/apply", body: gin.H{}, profile: env.admin})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(request{path: "/api/debug/schema?table=notes", profile: env.admin})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Import", func(t *testing.T) {
		// No TMDB key configured
		w := env.do(request{method: http.MethodPost, path: "/api/admin/movies/import", body: gin.H{"tmdbId": 550}, profile: env.admin})
		assert.Equal(t, http.StatusNotImplemented, w.Code)

		w = env.do(request{method: http.MethodPost, path: "/api/admin/movies/import", body: gin.H{}, profile: env.admin})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Logs", func(t *testing.T) {
		require.NoError(t, env.db.AddLog(context.Background(), &model.LogEntry{
			ID: "l1", Level: model.LogLevelWarn, Source: "api", Message: "Slow request", CreatedAt: time.Now(),
		}))
		w := env.do(request{path: "/api/admin/logs?source=api", profile: env.admin})
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Len(t, body["entries"], 1)
		assert.EqualValues(t, 1, body["counts"].(map[string]any)["warn"])

		// Counts cover the whole window, not only the returned entries
		for _, id := range []string{"l2", "l3"} {
			require.NoError(t, env.db.AddLog(context.Background(), &model.LogEntry{
				ID: id, Level: model.LogLevelWarn, Source: "api", Message: "Slow request", CreatedAt: time.Now(),
			}))
		}
		w = env.do(request{path: "/api/admin/logs?source=api&limit=1", profile: env.admin})
		require.Equal(t, http.StatusOK, w.Code)
		body = decode(t, w)
		assert.Len(t, body["entries"], 1)
		assert.EqualValues(t, 3, body["counts"].(map[string]any)["warn"])

		w = env.do(request{path: "/api/admin/logs?since=yesterday", profile: env.admin})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncAPI(t *testing.T) {
	startsAt := time.Now().Add(2 * time.Hour).Truncate(time.Minute)
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]model.FeedShowtime{
			{Theater: "Cinema City Glilot", City: "Ramat HaSharon", MovieTitle: "Casablanca", MovieYear: 1942, StartsAt: startsAt, Format: "2D"},
			{Theater: "", MovieTitle: "Casablanca", StartsAt: startsAt},
		})
	}))
	t.Cleanup(feed.Close)
	env := newTestEnv(t, feed.URL)

	w := env.do(request{path: "/api/movieshows/status"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, model.SyncStateNever, body["state"])
	assert.Equal(t, "24h", body["window"])

	w = env.do(request{method: http.MethodPost, path: "/api/movieshows/sync?wait=true"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/api/movieshows/sync?wait=true", profile: env.admin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.EqualValues(t, 1, body["showtimes"])
	assert.EqualValues(t, 1, body["skipped"])
	assert.EqualValues(t, 1, body["theatersCreated"])

	w = env.do(request{path: "/api/movieshows/status"})
	body = decode(t, w)
	assert.Equal(t, model.SyncStateSuccess, body["state"])
	assert.EqualValues(t, 2, body["counts"].(map[string]any)["info"])

	w = env.do(request{path: "/en/movies/casablanca"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cinema City Glilot")

	w = env.do(request{path: "/en/theaters"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cinema City Glilot")
}

func TestSyncAPIFeedDisabled(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{method: http.MethodPost, path: "/api/movieshows/sync?wait=true", profile: env.admin})
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = env.do(request{path: "/api/movieshows/status"})
	assert.Equal(t, model.SyncStateError, decode(t, w)["state"])
}

func TestMetricsAPI(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{method: http.MethodPost, path: "/api/metrics", body: `[{"name":"LCP","value":1830.5,"rating":"good"},{"name":"cls","value":0.02}]`})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["accepted"])

	w = env.do(request{method: http.MethodPost, path: "/api/metrics", body: `{"name":"TTFB","value":120}`})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["accepted"])

	w = env.do(request{method: http.MethodPost, path: "/api/metrics", body: `[{"name":"LCP","value":-1}]`})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/api/metrics", body: `not json`})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(request{path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kolnoa_web_vitals")
}

func TestLocaleRouting(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{path: "/", header: http.Header{"Accept-Language": {"en-US,en;q=0.9"}}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/en", w.Header().Get("Location"))

	w = env.do(request{path: "/"})
	assert.Equal(t, "/he", w.Header().Get("Location"))

	// The lang cookie wins over the header
	w = env.do(request{path: "/movies?genre=Drama", cookies: []*http.Cookie{{Name: "lang", Value: "en"}},
		header: http.Header{"Accept-Language": {"he"}}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/en/movies?genre=Drama", w.Header().Get("Location"))

	w = env.do(request{path: "/en/movies"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "en", w.Header().Get("Content-Language"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "lang=en")
	assert.Equal(t, "private, no-cache", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), `dir="ltr"`)
	assert.Contains(t, w.Body.String(), "Casablanca")

	w = env.do(request{path: "/he/movies", cookies: []*http.Cookie{{Name: "lang", Value: "he"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	assert.Equal(t, "public, s-maxage=60, stale-while-revalidate=300", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), `dir="rtl"`)
	assert.Contains(t, w.Body.String(), "קזבלנקה")

	w = env.do(request{path: "/he/movies", profile: env.alice, cookies: []*http.Cookie{{Name: "lang", Value: "he"}}})
	assert.Equal(t, "private, no-cache", w.Header().Get("Cache-Control"))

	w = env.do(request{path: "/static/css/kolnoa.css"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=31536000, immutable", w.Header().Get("Cache-Control"))

	w = env.do(request{path: "/api/unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w), "error")

	w = env.do(request{path: "/en/movies/unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")

	w = env.do(request{path: "/en/nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(request{path: "/healthz"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPages(t *testing.T) {
	env := newTestEnv(t, "")

	for _, path := range []string{"/en", "/he", "/en/movies?year=1940s&genre=Drama", "/en/movies/casablanca", "/en/actors",
		"/en/theaters", "/en/profile/alice", "/en/login", "/en/signup"} {
		w := env.do(request{path: path})
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := env.do(request{path: "/en/movies?year=nineties"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(request{path: "/en/profile/nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(request{path: "/en/watchlist"})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/en/login?next=%2Fen%2Fwatchlist", w.Header().Get("Location"))

	w = env.do(request{path: "/en/watchlist", profile: env.alice})
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(request{path: "/en/settings", profile: env.alice})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(request{path: "/en/admin", profile: env.alice})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access denied")
	w = env.do(request{path: "/en/admin", profile: env.admin})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "001_notes.sql")
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{method: http.MethodPost, path: "/en/login", body: url.Values{"username": {"alice"}, "password": {"nope-nope"}}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Wrong username or password")

	w = env.do(request{method: http.MethodPost, path: "/en/login", body: url.Values{
		"username": {"alice"}, "password": {testPassword}, "next": {"//evil.example"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/en", w.Header().Get("Location"))

	w = env.do(request{method: http.MethodPost, path: "/en/login", body: url.Values{
		"username": {"alice"}, "password": {testPassword}, "next": {"/en/watchlist"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/en/watchlist", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = env.do(request{path: "/en/watchlist", cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	w = env.do(request{method: http.MethodPost, path: "/en/logout", cookies: cookies})
	require.Equal(t, http.StatusSeeOther, w.Code)
	loggedOut := w.Result().Cookies()
	w = env.do(request{path: "/en/watchlist", cookies: loggedOut})
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{method: http.MethodPost, path: "/he/signup", body: url.Values{
		"username": {"bob"}, "password1": {"long-enough"}, "password2": {"long-enough"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/he", w.Header().Get("Location"))

	w = env.do(request{method: http.MethodPost, path: "/en/signup", body: url.Values{
		"username": {"bob"}, "password1": {"long-enough"}, "password2": {"long-enough"},
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already taken")

	w = env.do(request{method: http.MethodPost, path: "/en/signup", body: url.Values{
		"username": {"carol"}, "password1": {"long-enough"}, "password2": {"different"},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(request{method: http.MethodPost, path: "/en/settings/profile", profile: env.alice, body: url.Values{
		"displayName": {"Alice L."}, "bio": {"Film buff"}, "locale": {"en"},
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your profile has been saved")

	w = env.do(request{method: http.MethodPost, path: "/en/settings/profile", profile: env.alice, body: url.Values{
		"locale": {"he"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/he/settings", w.Header().Get("Location"))

	w = env.do(request{method: http.MethodPost, path: "/en/settings/profile", profile: env.alice, body: url.Values{
		"avatarUrl": {"http://insecure.example/me.png"},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/en/settings/password", profile: env.alice, body: url.Values{
		"oldPassword": {"wrong-password"}, "password1": {"new-password"}, "password2": {"new-password"},
	}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(request{method: http.MethodPost, path: "/en/settings/password", profile: env.alice, body: url.Values{
		"oldPassword": {testPassword}, "password1": {"new-password"}, "password2": {"new-password"},
	}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your password has been changed")
}
