package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/spotify-search-tool/internal/auth"
	"github.com/justestif/spotify-search-tool/internal/plugin"
	"github.com/justestif/spotify-search-tool/internal/search"
	"github.com/justestif/spotify-search-tool/internal/session"
	"github.com/justestif/spotify-search-tool/internal/spotify"
)

// fakeSpotify serves the accounts token endpoint and the search endpoint.
type fakeSpotify struct {
	*httptest.Server

	mu          sync.Mutex
	searchItems int
	searchFail  bool
	lastBearer  string
	lastQuery   string
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()
	f := &fakeSpotify{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = r.ParseForm()
		code := r.PostForm.Get("code")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(code, "bad") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`)
			return
		}
		fmt.Fprintf(w, `{"access_token":"token-%s","token_type":"Bearer","expires_in":3600}`, code)
	})
	mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastBearer = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.lastQuery = r.URL.Query().Get("q")
		items, fail := f.searchItems, f.searchFail
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":{"status":502,"message":"Bad gateway"}}`)
			return
		}

		parts := make([]string, items)
		for i := range items {
			parts[i] = fmt.Sprintf(`{"name":"Song %d","artists":[{"name":"Artist %d"},{"name":"Guest"}],`+
				`"album":{"name":"Album %d"},"external_urls":{"spotify":"https://open.spotify.com/track/%d"}}`, i, i, i, i)
		}
		fmt.Fprintf(w, `{"tracks":{"items":[%s],"limit":5,"offset":0,"total":%d}}`, strings.Join(parts, ","), items)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSpotify) bearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBearer
}

type testEnv struct {
	server   *Server
	sessions *session.Store
	spotify  *fakeSpotify
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := newFakeSpotify(t)
	authenticator := auth.New(auth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3000/callback",
		AuthURL:      fake.URL + "/authorize",
		TokenURL:     fake.URL + "/api/token",
	}, fake.Client())

	sessions := session.NewStore("")
	searcher := search.NewService(sessions, spotify.New(fake.URL+"/v1/", fake.Client()))

	docs, err := plugin.NewDocuments("http://localhost:3000", auth.Scopes)
	require.NoError(t, err)

	return &testEnv{
		server: NewServer(ServerConfig{
			Handlers: NewHandlers(authenticator, sessions, searcher, docs),
		}),
		sessions: sessions,
		spotify:  fake,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/login", "")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", loc.Path)
	assert.Equal(t, "code", loc.Query().Get("response_type"))
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))
	assert.Equal(t, "user-read-private user-read-email", loc.Query().Get("scope"))
	assert.Equal(t, "http://localhost:3000/callback", loc.Query().Get("redirect_uri"))
}

func TestLogin_MissingCredentials(t *testing.T) {
	sessions := session.NewStore("")
	h := NewHandlers(auth.New(auth.Config{}, nil), sessions, search.NewService(sessions, nil), &plugin.Documents{})
	srv := NewServer(ServerConfig{Handlers: h})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCallback(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/callback?code=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, callbackSuccessMessage, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	token, err := env.sessions.Get(context.Background(), env.sessions.SharedKey())
	require.NoError(t, err)
	assert.Equal(t, "token-abc", token.AccessToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
}

func TestCallback_Failures(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"provider rejects code", "/callback?code=bad-code"},
		{"missing code", "/callback"},
		{"user denied consent", "/callback?error=access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, callbackFailureMessage, strings.TrimSpace(rec.Body.String()))

			_, err := env.sessions.Get(context.Background(), env.sessions.SharedKey())
			assert.ErrorIs(t, err, session.ErrNoToken)

			// Still unauthenticated.
			rec = env.do(t, http.MethodPost, "/tools/search", `{"query":"x"}`)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestCallback_FailureKeepsPreviousToken(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/callback?code=good", "").Code)
	require.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/callback?code=bad", "").Code)

	token, err := env.sessions.Get(context.Background(), env.sessions.SharedKey())
	require.NoError(t, err)
	assert.Equal(t, "token-good", token.AccessToken)
}

func TestCallback_LastWriterWins(t *testing.T) {
	env := newTestEnv(t)

	for _, code := range []string{"first", "second", "third"} {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/callback?code="+code, "").Code)
	}

	token, err := env.sessions.Get(context.Background(), env.sessions.SharedKey())
	require.NoError(t, err)
	assert.Equal(t, "token-third", token.AccessToken)
}

func TestCallback_Concurrent(t *testing.T) {
	env := newTestEnv(t)

	const n = 10
	issued := make(map[string]bool, n)
	var wg sync.WaitGroup
	for i := range n {
		code := fmt.Sprintf("c%d", i)
		issued["token-"+code] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := env.do(t, http.MethodGet, "/callback?code="+code, "")
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	// Whichever exchange stored last owns the shared session.
	token, err := env.sessions.Get(context.Background(), env.sessions.SharedKey())
	require.NoError(t, err)
	assert.True(t, issued[token.AccessToken], "unexpected shared token %q", token.AccessToken)
}

func TestSearch_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"query":"daft punk"}`, `{}`, ``, `not json`} {
		rec := env.do(t, http.MethodPost, "/tools/search", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "body %q", body)
		assert.Equal(t, search.MessageNotAuthenticated, decodeError(t, rec))
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/callback?code=abc", "").Code)

	for _, body := range []string{`{}`, `{"query":""}`, ``, `not json`, `{"query":42}`} {
		rec := env.do(t, http.MethodPost, "/tools/search", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, search.MessageEmptyQuery, decodeError(t, rec))
	}
}

func TestSearch_MapsTracks(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5} {
		t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
			env := newTestEnv(t)
			env.spotify.searchItems = n
			require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/callback?code=abc", "").Code)

			rec := env.do(t, http.MethodPost, "/tools/search", `{"query":"daft punk"}`)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "token-abc", env.spotify.bearer())

			var resp struct {
				Tracks []map[string]string `json:"tracks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Tracks)
			require.Len(t, resp.Tracks, n)

			for i, track := range resp.Tracks {
				assert.Equal(t, map[string]string{
					"name":   fmt.Sprintf("Song %d", i),
					"artist": fmt.Sprintf("Artist %d", i),
					"album":  fmt.Sprintf("Album %d", i),
					"url":    fmt.Sprintf("https://open.spotify.com/track/%d", i),
				}, track)
			}
		})
	}
}

func TestSearch_UsesSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.spotify.searchItems = 1

	first := env.do(t, http.MethodGet, "/callback?code=alice", "")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/callback?code=bob", "").Code)

	// No cookie: shared session, last writer.
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tools/search", `{"query":"x"}`).Code)
	assert.Equal(t, "token-bob", env.spotify.bearer())

	// Cookie from the first callback: that browser's own token.
	cookie := first.Result().Cookies()[0]
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tools/search", `{"query":"x"}`, cookie).Code)
	assert.Equal(t, "token-alice", env.spotify.bearer())
}

func TestSearch_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.spotify.searchFail = true
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/callback?code=abc", "").Code)

	rec := env.do(t, http.MethodPost, "/tools/search", `{"query":"daft punk"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, search.MessageUpstream, decodeError(t, rec))
}

func TestDiscoveryDocuments_Stable(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/.well-known/ai-plugin.json", "/openapi.json"} {
		t.Run(path, func(t *testing.T) {
			first := env.do(t, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, first.Code)
			assert.Equal(t, "application/json", first.Header().Get("Content-Type"))
			assert.True(t, json.Valid(first.Body.Bytes()))

			for range 3 {
				again := env.do(t, http.MethodGet, path, "")
				assert.Equal(t, first.Body.String(), again.Body.String())
			}
		})
	}

	// Serving documents does not authenticate anyone.
	_, err := env.sessions.Get(context.Background(), env.sessions.SharedKey())
	assert.ErrorIs(t, err, session.ErrNoToken)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/tools/search", nil)
	req.Header.Set("Origin", "https://chat.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMCPMounted(t *testing.T) {
	sessions := session.NewStore("")
	called := false
	srv := NewServer(ServerConfig{
		Handlers: NewHandlers(auth.New(auth.Config{}, nil), sessions, search.NewService(sessions, nil), &plugin.Documents{}),
		MCP: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusAccepted)
		}),
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`)))
	assert.True(t, called)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestStartShutdown(t *testing.T) {
	env := newTestEnv(t)

	errCh, err := env.server.Start(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, env.server.Shutdown(ctx))

	_, open := <-errCh
	assert.False(t, open)
}
