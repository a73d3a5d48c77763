package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/forgenotes/internal/auth"
	"github.com/sakif/forgenotes/internal/config"
	"github.com/sakif/forgenotes/internal/model"
)

const testSecret = "server-test-secret-0123456789"

func testConfig() *config.Config {
	return &config.Config{
		Port:           0,
		StorageBackend: config.BackendMemory,
		LogLevel:       slog.LevelError,
		LogFormat:      "text",
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.store.Close() })
	return s
}

func request(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ============================================
// END TO END
// ============================================

func TestSeededStore_FolderScenario(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	rr := request(t, h, http.MethodGet, "/api/folders", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var folders []model.Folder
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&folders))
	require.Len(t, folders, 3)

	rr = request(t, h, http.MethodPost, "/api/folders", `{"name":"Work"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var work model.Folder
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&work))
	assert.Equal(t, int64(4), work.ID)
	assert.Equal(t, "fa-folder", work.Icon)

	rr = request(t, h, http.MethodPost, "/api/notes", `{"title":"T","content":"C","folderId":4}`, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var note model.Note
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&note))

	rr = request(t, h, http.MethodGet, "/api/notes?folderId=4", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var inWork []model.Note
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&inWork))
	require.Len(t, inWork, 1)
	assert.Equal(t, note.ID, inWork[0].ID)
	assert.Equal(t, "T", inWork[0].Title)
}

func TestSeededStore_WelcomeLinksResolve(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	rr := request(t, h, http.MethodGet, "/api/notes?q=WELCOME", "", "")
	var hits []model.Note
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&hits))
	require.NotEmpty(t, hits)
	assert.Equal(t, "Welcome to ForgeNotes", hits[0].Title)

	rr = request(t, h, http.MethodGet, "/api/notes/1/html", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `class=\"backlink\"`)
}

func TestHealthAndPages(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	rr := request(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = request(t, h, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Welcome to ForgeNotes")

	rr = request(t, h, http.MethodGet, "/notes/1", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/api/notes/1/export", "", "").Code)
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// ============================================
// WRITE PROTECTION
// ============================================

func TestWriteProtection(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = testSecret
	h := newTestServer(t, cfg).Handler()

	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)
	token, err := tokens.Issue("tester", time.Hour)
	require.NoError(t, err)

	// Reads stay open.
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/api/notes", "", "").Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodPost, "/api/render", `{"content":"x"}`, "").Code)

	tests := []struct {
		name, method, path, body string
	}{
		{"create folder", http.MethodPost, "/api/folders", `{"name":"Work"}`},
		{"create note", http.MethodPost, "/api/notes", `{"title":"T"}`},
		{"patch note", http.MethodPatch, "/api/notes/1", `{"title":"X"}`},
		{"delete note", http.MethodDelete, "/api/notes/2", ""},
		{"delete folder", http.MethodDelete, "/api/folders/3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := request(t, h, tt.method, tt.path, tt.body, "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			rr = request(t, h, tt.method, tt.path, tt.body, "not-a-token")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			rr = request(t, h, tt.method, tt.path, tt.body, token)
			assert.Less(t, rr.Code, 300, rr.Body.String())
		})
	}
}

// ============================================
// STORAGE BACKENDS
// ============================================

func TestSQLiteBackend_SeedsOnce(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = config.BackendSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "notes.db")

	s := newTestServer(t, cfg)
	rr := request(t, s.Handler(), http.MethodPost, "/api/folders", `{"name":"Work"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	require.NoError(t, s.store.Close())

	// Reopening must not seed the three default folders again.
	s = newTestServer(t, cfg)
	folders, err := s.store.ListFolders(context.Background())
	require.NoError(t, err)
	assert.Len(t, folders, 4)
}

func TestNew_BadSeedFile(t *testing.T) {
	cfg := testConfig()
	cfg.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

// ============================================
// LIVE UPDATES
// ============================================

func TestWebSocket_ReceivesChangeEvents(t *testing.T) {
	s := newTestServer(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/notes", "application/json", strings.NewReader(`{"title":"Live"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string     `json:"type"`
		Data model.Note `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "note_created", msg.Type)
	assert.Equal(t, "Live", msg.Data.Title)
}
