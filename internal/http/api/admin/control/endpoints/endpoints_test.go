package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/signage/internal/db/dbtest"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/playlist"
	"github.com/Nixie-Tech-LLC/signage/internal/redis"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

const testSecret = "endpoint-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t         *testing.T
	router    *gin.Engine
	store     *dbtest.MemStore
	redis     *miniredis.Miniredis
	uploadDir string
}

// steppingClock returns a clock that advances one second per call so UpdatedAt always moves.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := dbtest.NewMemStore()
	store.Now = steppingClock()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(mr.Addr(), "", "")
	t.Cleanup(func() { _ = rdb.Close() })
	cache := redis.NewCache(rdb)

	dir := t.TempDir()
	local := storage.NewLocalStorage(dir)

	r := gin.New()
	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: testSecret,
		Users:     store,
	},
		ContentModule(store, local, cache),
		PlaylistModule(store, playlist.NewEngine(store, cache), cache),
		PlayerModule(store, local, cache, 5*time.Minute),
	)
	return &harness{t: t, router: r, store: store, redis: mr, uploadDir: dir}
}

// login creates an account and returns a bearer token for it.
func (h *harness) login(email string) string {
	h.t.Helper()
	u, err := h.store.CreateUser(context.Background(), email, "hash", nil)
	require.NoError(h.t, err)
	token, err := middleware.GenerateJWT(u.ID, testSecret, time.Hour)
	require.NoError(h.t, err)
	return token
}

func (h *harness) do(token, method, path string, body io.Reader, contentType string, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) json(token, method, path string, payload any) *httptest.ResponseRecorder {
	h.t.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(h.t, err)
		body = bytes.NewReader(raw)
	}
	return h.do(token, method, path, body, "application/json")
}

func (h *harness) upload(token, path, field, filename string, fields map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(h.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(h.t, err)
	_, err = fw.Write([]byte("not really " + filename))
	require.NoError(h.t, err)
	require.NoError(h.t, mw.Close())
	return h.do(token, http.MethodPost, path, &buf, mw.FormDataContentType())
}

// uploadContent creates a content item and returns it, failing the test otherwise.
func (h *harness) uploadContent(token, filename string, fields map[string]string) model.Content {
	h.t.Helper()
	w := h.upload(token, "/api/content", "file", filename, fields)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var c model.Content
	decode(h.t, w, &c)
	return c
}

func (h *harness) createPlaylist(token, name string) packets.PlaylistResponse {
	h.t.Helper()
	w := h.json(token, http.MethodPost, "/api/playlists", packets.CreatePlaylistRequest{Name: name})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var pl packets.PlaylistResponse
	decode(h.t, w, &pl)
	return pl
}

func (h *harness) createPlayer(token, name string) packets.PlayerResponse {
	h.t.Helper()
	w := h.json(token, http.MethodPost, "/api/players", packets.CreatePlayerRequest{Name: name})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var p packets.PlayerResponse
	decode(h.t, w, &p)
	return p
}

func (h *harness) getPlaylist(token, id string) packets.PlaylistResponse {
	h.t.Helper()
	w := h.json(token, http.MethodGet, "/api/playlists/"+id, nil)
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	var pl packets.PlaylistResponse
	decode(h.t, w, &pl)
	return pl
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func orders(entries []model.PlaylistEntry) map[string]int {
	out := map[string]int{}
	for _, e := range entries {
		out[e.ContentID] = e.Order
	}
	return out
}

func TestRequiresBearerToken(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/content", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContentUploadClassifiesByExtension(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")

	video := h.uploadContent(token, "Promo Clip.MP4", map[string]string{"name": "promo", "duration": "30"})
	assert.Equal(t, model.ContentVideo, video.Type)
	assert.Equal(t, "promo", video.Name)
	require.NotNil(t, video.Duration)
	assert.Equal(t, 30, *video.Duration)
	assert.True(t, strings.HasPrefix(video.FilePath, storage.PublicPrefix+"/content/"))

	stored := filepath.Join(h.uploadDir, filepath.FromSlash(strings.TrimPrefix(video.FilePath, storage.PublicPrefix+"/")))
	_, err := os.Stat(stored)
	assert.NoError(t, err)

	image := h.uploadContent(token, "banner.png", map[string]string{"name": "banner"})
	assert.Equal(t, model.ContentImage, image.Type)
	assert.Nil(t, image.Duration)

	w := h.upload(token, "/api/content", "file", "notes.txt", map[string]string{"name": "notes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported file type", errorMessage(t, w))
}

func TestContentUploadValidation(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")

	cases := map[string]map[string]string{
		"missing name":     {},
		"negative length":  {"name": "x", "duration": "-1"},
		"bad duration":     {"name": "x", "duration": "ten"},
		"inverted window":  {"name": "x", "startDate": "2024-05-02", "endDate": "2024-05-01"},
		"unparseable date": {"name": "x", "startDate": "May 1st"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			w := h.upload(token, "/api/content", "file", "clip.mp4", fields)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := h.upload(token, "/api/content", "attachment", "clip.mp4", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", errorMessage(t, w))
}

func TestContentListFilters(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	h.uploadContent(token, "a.mp4", map[string]string{"name": "Morning Promo"})
	h.uploadContent(token, "b.jpg", map[string]string{"name": "Menu"})
	h.uploadContent(token, "c.png", map[string]string{"name": "promo still"})

	var got []model.Content
	w := h.json(token, http.MethodGet, "/api/content?type=image", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Len(t, got, 2)

	w = h.json(token, http.MethodGet, "/api/content?name=PROMO", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Len(t, got, 2)

	w = h.json(token, http.MethodGet, "/api/content?type=audio", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentPartialUpdate(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	c := h.uploadContent(token, "a.mp4", map[string]string{"name": "promo", "duration": "15"})

	w := h.do(token, http.MethodPut, "/api/content/"+c.ID, strings.NewReader(`{"description":"spring sale"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Content
	decode(t, w, &updated)
	assert.Equal(t, "promo", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "spring sale", *updated.Description)
	require.NotNil(t, updated.Duration)
	assert.Equal(t, 15, *updated.Duration)

	w = h.do(token, http.MethodPut, "/api/content/"+c.ID, strings.NewReader(`{"duration":null}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &updated)
	assert.Nil(t, updated.Duration)

	w = h.do(token, http.MethodPut, "/api/content/"+c.ID, strings.NewReader(`{"name":null}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentUpdateScheduleWindow(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	c := h.uploadContent(token, "a.png", map[string]string{"name": "menu", "startDate": "2024-05-01T10:00"})
	put := func(body string) (*httptest.ResponseRecorder, model.Content) {
		w := h.do(token, http.MethodPut, "/api/content/"+c.ID, strings.NewReader(body), "application/json")
		var out model.Content
		if w.Code == http.StatusOK {
			decode(t, w, &out)
		}
		return w, out
	}
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)

	// same short layouts the upload form accepts
	w, out := put(`{"startDate":"2024-05-02T09:15","endDate":"2024-06-01T18:30"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, out.StartDate)
	assert.True(t, out.StartDate.Equal(time.Date(2024, 5, 2, 9, 15, 0, 0, time.UTC)))
	require.NotNil(t, out.EndDate)
	assert.True(t, out.EndDate.Equal(end))

	w, out = put(`{"startDate":"2024-05-01T10:00:00Z","description":"lunch"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, out.StartDate)
	assert.True(t, out.StartDate.Equal(start))
	require.NotNil(t, out.EndDate, "omitted endDate is kept")
	assert.True(t, out.EndDate.Equal(end))

	w, out = put(`{"endDate":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, out.EndDate)
	require.NotNil(t, out.StartDate)
	assert.True(t, out.StartDate.Equal(start))

	w, out = put(`{"startDate":null,"endDate":"2024-05-03"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, out.StartDate)
	require.NotNil(t, out.EndDate)
	assert.True(t, out.EndDate.Equal(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)))

	w, _ = put(`{"startDate":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `invalid time "tomorrow"`, errorMessage(t, w))

	w, _ = put(`{"startDate":"2024-05-04","endDate":"2024-05-03"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentUpdateEmptyBodyIsNoop(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	c := h.uploadContent(token, "a.png", map[string]string{"name": "menu", "duration": "8"})

	for _, body := range []string{"", "{}"} {
		w := h.do(token, http.MethodPut, "/api/content/"+c.ID, strings.NewReader(body), "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out model.Content
		decode(t, w, &out)
		assert.Equal(t, "menu", out.Name)
		require.NotNil(t, out.Duration)
		assert.Equal(t, 8, *out.Duration)
	}
}

func TestCrossOwnerAccessIsNotFound(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice@example.com")
	bob := h.login("bob@example.com")

	c := h.uploadContent(alice, "a.mp4", map[string]string{"name": "alice clip"})
	pl := h.createPlaylist(alice, "alice list")
	p := h.createPlayer(alice, "alice lobby")

	requests := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/content/" + c.ID, nil},
		{http.MethodPut, "/api/content/" + c.ID, map[string]string{"name": "mine"}},
		{http.MethodDelete, "/api/content/" + c.ID, nil},
		{http.MethodGet, "/api/playlists/" + pl.ID, nil},
		{http.MethodPut, "/api/playlists/" + pl.ID, map[string]string{"name": "mine"}},
		{http.MethodDelete, "/api/playlists/" + pl.ID, nil},
		{http.MethodPost, "/api/playlists/" + pl.ID + "/content", map[string]string{"contentId": c.ID}},
		{http.MethodGet, "/api/players/" + p.ID, nil},
		{http.MethodPut, "/api/players/" + p.ID, map[string]string{"name": "mine"}},
		{http.MethodDelete, "/api/players/" + p.ID, nil},
		{http.MethodPost, "/api/players/" + p.ID + "/status", map[string]string{"status": "online"}},
		{http.MethodGet, "/api/players/" + p.ID + "/playlist", nil},
	}
	for _, r := range requests {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			w := h.json(bob, r.method, r.path, r.body)
			assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
		})
	}

	// alice still sees everything untouched
	assert.Equal(t, "alice list", h.getPlaylist(alice, pl.ID).Name)
	w := h.json(alice, http.MethodGet, "/api/content/"+c.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// bob cannot put alice's content into his own playlist either
	bobs := h.createPlaylist(bob, "bob list")
	w = h.json(bob, http.MethodPost, "/api/playlists/"+bobs.ID+"/content", packets.AddPlaylistContentRequest{ContentID: c.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.json(bob, http.MethodPut, "/api/playlists/"+bobs.ID, map[string][]string{"contentIds": {c.ID}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")

	for _, path := range []string{"/api/content/42", "/api/playlists/not-a-uuid", "/api/players/xyz"} {
		w := h.json(token, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestPlaylistOrderingScenario(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	x := h.uploadContent(token, "x.mp4", map[string]string{"name": "x", "duration": "10"})
	y := h.uploadContent(token, "y.jpg", map[string]string{"name": "y", "duration": "5"})
	pl := h.createPlaylist(token, "lobby")
	assert.Empty(t, pl.Entries)

	var entry model.PlaylistEntry
	w := h.json(token, http.MethodPost, "/api/playlists/"+pl.ID+"/content", packets.AddPlaylistContentRequest{ContentID: x.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &entry)
	assert.Equal(t, 0, entry.Order)

	w = h.json(token, http.MethodPost, "/api/playlists/"+pl.ID+"/content", packets.AddPlaylistContentRequest{ContentID: y.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &entry)
	assert.Equal(t, 1, entry.Order)

	got := h.getPlaylist(token, pl.ID)
	assert.Equal(t, 15, got.TotalDuration)
	assert.Equal(t, x.FileSize+y.FileSize, got.TotalSize)

	w = h.json(token, http.MethodPut, "/api/playlists/"+pl.ID, map[string][]string{"contentIds": {y.ID, x.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var replaced packets.PlaylistResponse
	decode(t, w, &replaced)
	assert.Equal(t, map[string]int{y.ID: 0, x.ID: 1}, orders(replaced.Entries))

	w = h.json(token, http.MethodDelete, "/api/content/"+y.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got = h.getPlaylist(token, pl.ID)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, x.ID, got.Entries[0].ContentID)
	assert.Equal(t, 1, got.Entries[0].Order)
	assert.Equal(t, 10, got.TotalDuration)
}

func TestPlaylistRenameAndReplaceTogether(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	x := h.uploadContent(token, "x.mp4", map[string]string{"name": "x"})
	pl := h.createPlaylist(token, "draft")

	w := h.json(token, http.MethodPut, "/api/playlists/"+pl.ID, map[string]any{
		"name":       "final",
		"contentIds": []string{x.ID, x.ID},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got packets.PlaylistResponse
	decode(t, w, &got)
	assert.Equal(t, "final", got.Name)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, 0, got.Entries[0].Order)
	assert.Equal(t, 1, got.Entries[1].Order)

	// a rejected membership leaves the name alone
	w = h.json(token, http.MethodPut, "/api/playlists/"+pl.ID, map[string]any{
		"name":       "broken",
		"contentIds": []string{"6f1c1b7e-3f4e-4c55-9a41-2f0f0a3c1e77"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "final", h.getPlaylist(token, pl.ID).Name)

	w = h.json(token, http.MethodPut, "/api/playlists/"+pl.ID, map[string]any{"contentIds": []string{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.getPlaylist(token, pl.ID).Entries)

	w = h.json(token, http.MethodPut, "/api/playlists/"+pl.ID, map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveContentFromPlaylist(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	a := h.uploadContent(token, "a.mp4", map[string]string{"name": "a"})
	b := h.uploadContent(token, "b.mp4", map[string]string{"name": "b"})
	c := h.uploadContent(token, "c.mp4", map[string]string{"name": "c"})
	pl := h.createPlaylist(token, "lobby")

	w := h.json(token, http.MethodPut, "/api/playlists/"+pl.ID, map[string][]string{"contentIds": {a.ID, b.ID, c.ID}})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.json(token, http.MethodDelete, "/api/playlists/"+pl.ID+"/content/"+a.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]int{b.ID: 1, c.ID: 2}, orders(h.getPlaylist(token, pl.ID).Entries))

	w = h.json(token, http.MethodDelete, "/api/playlists/"+pl.ID+"/content/"+b.ID+"?compact=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]int{c.ID: 0}, orders(h.getPlaylist(token, pl.ID).Entries))

	// content itself survives removal from a playlist
	w = h.json(token, http.MethodGet, "/api/content/"+a.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeletePlaylistUnassignsPlayers(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	pl := h.createPlaylist(token, "lobby")
	p := h.createPlayer(token, "screen 1")

	w := h.json(token, http.MethodPut, "/api/players/"+p.ID, map[string]string{"playlistId": pl.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.json(token, http.MethodDelete, "/api/playlists/"+pl.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.json(token, http.MethodGet, "/api/players/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got packets.PlayerResponse
	decode(t, w, &got)
	assert.Nil(t, got.PlaylistID)
	assert.Nil(t, got.Playlist)
}

func TestPlayerAssignment(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice@example.com")
	bob := h.login("bob@example.com")
	p := h.createPlayer(alice, "lobby")
	assert.Equal(t, model.PlayerOffline, p.Status)
	mine := h.createPlaylist(alice, "mine")
	foreign := h.createPlaylist(bob, "foreign")

	w := h.json(alice, http.MethodPut, "/api/players/"+p.ID, map[string]string{"playlistId": foreign.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "playlist not found", errorMessage(t, w))

	w = h.json(alice, http.MethodPut, "/api/players/"+p.ID, map[string]string{"playlistId": mine.ID, "description": "front desk"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.json(alice, http.MethodGet, "/api/players/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got packets.PlayerResponse
	decode(t, w, &got)
	require.NotNil(t, got.Playlist)
	assert.Equal(t, mine.ID, got.Playlist.ID)
	assert.Equal(t, "lobby", got.Name)

	// rename keeps the assignment
	w = h.json(alice, http.MethodPut, "/api/players/"+p.ID, map[string]string{"name": "lobby east"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	require.NotNil(t, got.PlaylistID)
	assert.Equal(t, mine.ID, *got.PlaylistID)
	require.NotNil(t, got.Description)

	w = h.do(alice, http.MethodPut, "/api/players/"+p.ID, strings.NewReader(`{"playlistId":null}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Nil(t, got.PlaylistID)
	assert.Equal(t, "lobby east", got.Name)
}

func TestPlayerListIncludesPlaylist(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	c := h.uploadContent(token, "a.mp4", map[string]string{"name": "promo", "duration": "12"})
	menu := h.createPlaylist(token, "menu")
	w := h.json(token, http.MethodPost, "/api/playlists/"+menu.ID+"/content", packets.AddPlaylistContentRequest{ContentID: c.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assigned := h.createPlayer(token, "lobby")
	h.createPlayer(token, "spare")
	w = h.json(token, http.MethodPut, "/api/players/"+assigned.ID, map[string]string{"playlistId": menu.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.json(token, http.MethodGet, "/api/players", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var players []packets.PlayerResponse
	decode(t, w, &players)
	require.Len(t, players, 2)

	byName := map[string]packets.PlayerResponse{}
	for _, p := range players {
		byName[p.Name] = p
	}
	require.NotNil(t, byName["lobby"].Playlist)
	assert.Equal(t, menu.ID, byName["lobby"].Playlist.ID)
	assert.Equal(t, "menu", byName["lobby"].Playlist.Name)
	assert.Len(t, byName["lobby"].Playlist.Entries, 1)
	assert.Equal(t, 12, byName["lobby"].Playlist.TotalDuration)
	assert.Nil(t, byName["spare"].Playlist)
	assert.NotContains(t, w.Body.String(), `"playlist":null`)
}

func TestPlayerStatus(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	p := h.createPlayer(token, "lobby")

	w := h.json(token, http.MethodPost, "/api/players/"+p.ID+"/status", map[string]string{"status": "sleeping"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.json(token, http.MethodPost, "/api/players/"+p.ID+"/status", map[string]string{"status": "online"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got packets.PlayerResponse
	decode(t, w, &got)
	assert.Equal(t, model.PlayerOnline, got.Status)
	assert.NotNil(t, got.LastSeen)

	w = h.json(token, http.MethodPost, "/api/players/"+p.ID+"/status", map[string]string{"status": "offline"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, model.PlayerOffline, got.Status)
	assert.False(t, got.Stale)
}

func TestPlayerScreenshot(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	p := h.createPlayer(token, "lobby")
	path := "/api/players/" + p.ID + "/screenshot"

	w := h.upload(token, path, "screenshot", "frame.gif", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.upload(token, path, "screenshot", "frame.png", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first packets.PlayerResponse
	decode(t, w, &first)
	require.NotNil(t, first.Screenshot)
	assert.NotNil(t, first.LastSeen)
	firstFile := filepath.Join(h.uploadDir, filepath.FromSlash(strings.TrimPrefix(*first.Screenshot, storage.PublicPrefix+"/")))
	_, err := os.Stat(firstFile)
	require.NoError(t, err)

	w = h.upload(token, path, "screenshot", "frame2.JPG", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second packets.PlayerResponse
	decode(t, w, &second)
	assert.NotEqual(t, *first.Screenshot, *second.Screenshot)

	_, err = os.Stat(firstFile)
	assert.True(t, os.IsNotExist(err), "previous screenshot should be removed")
}

func TestPlayerFeed(t *testing.T) {
	h := newHarness(t)
	token := h.login("a@example.com")
	p := h.createPlayer(token, "lobby")
	feedPath := "/api/players/" + p.ID + "/playlist"

	w := h.json(token, http.MethodGet, feedPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	now := time.Now().UTC()
	live := h.uploadContent(token, "live.mp4", map[string]string{"name": "live", "duration": "20"})
	future := h.uploadContent(token, "later.mp4", map[string]string{
		"name":      "later",
		"duration":  "40",
		"startDate": now.Add(48 * time.Hour).Format(time.RFC3339),
	})
	pl := h.createPlaylist(token, "lobby")
	w = h.json(token, http.MethodPut, "/api/playlists/"+pl.ID, map[string][]string{"contentIds": {live.ID, future.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	w = h.json(token, http.MethodPut, "/api/players/"+p.ID, map[string]string{"playlistId": pl.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.json(token, http.MethodGet, feedPath, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	var feed packets.PlayerFeedResponse
	decode(t, w, &feed)
	assert.Equal(t, etag, feed.ETag)
	require.Len(t, feed.Entries, 1)
	assert.Equal(t, live.ID, feed.Entries[0].ContentID)
	assert.Equal(t, 20, feed.TotalDuration)

	cached, err := h.redis.Get(fmt.Sprintf("playlist:%s:etag", pl.ID))
	require.NoError(t, err)
	assert.Equal(t, etag, cached)
	assert.Greater(t, h.redis.TTL(fmt.Sprintf("playlist:%s:etag", pl.ID)), time.Duration(0))

	w = h.do(token, http.MethodGet, feedPath, http.NoBody, "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())
	assert.Equal(t, etag, w.Header().Get("ETag"))

	// editing content on the playlist changes what the player renders
	w = h.json(token, http.MethodPut, "/api/content/"+live.ID, map[string]string{"name": "live v2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, h.redis.Exists(fmt.Sprintf("playlist:%s:etag", pl.ID)))

	w = h.do(token, http.MethodGet, feedPath, http.NoBody, "", "If-None-Match", etag)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))
}
