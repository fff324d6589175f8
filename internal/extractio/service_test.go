package extractio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extractio/extractio/internal/api"
	"github.com/extractio/extractio/internal/cache"
	"github.com/extractio/extractio/internal/config"
	"github.com/extractio/extractio/internal/logger"
	"github.com/extractio/extractio/internal/media"
	"github.com/extractio/extractio/internal/web"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var (
	testNow = time.Unix(1_700_000_000, 0)
	rick    = media.Locator{Platform: media.YouTube, Identifier: "dQw4w9WgXcQ"}
)

var testTTL = config.TTL{
	Session:        time.Hour,
	Trend:          24 * time.Hour,
	Media:          time.Hour,
	RelatedContent: time.Hour,
	Preview:        time.Hour,
}

// fakeAPI serves the Extractio endpoints and counts hits per path.
type fakeAPI struct {
	mu      sync.Mutex
	hits    map[string]int
	tokens  []string
	revoked map[string]bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{hits: make(map[string]int), tokens: []string{"t1", "t2", "t3"}, revoked: make(map[string]bool)}
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	var token string
	if r.URL.Path == "/session" {
		token, f.tokens = f.tokens[0], f.tokens[1:]
	}
	revoked := f.revoked[r.Header.Get("Authorization")]
	f.mu.Unlock()

	if r.URL.Path != "/session" && (r.Header.Get("Authorization") == "" || revoked) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var data any
	switch r.URL.Path {
	case "/session":
		data = map[string]any{"token": token, "expires": testNow.Add(2 * time.Hour).Unix()}
	case "/trend":
		data = []map[string]any{{"identifier": "aaaaaaaaaaa", "title": "Trending"}}
	case "/media/YouTube/dQw4w9WgXcQ":
		data = map[string]any{"Media": map[string]any{"YouTube": map[string]any{
			"identifier": "dQw4w9WgXcQ",
			"title":      "Never Gonna Give You Up",
			"formats":    []map[string]any{{"quality": "720p", "mime_type": "video/mp4", "url": "https://cdn.example/720.mp4"}},
		}}}
	case "/media/YouTube/zzzzzzzzzzz":
		data = map[string]any{"Media": map[string]any{}}
	case "/related/YouTube/dQw4w9WgXcQ":
		data = []map[string]any{{"identifier": "bbbbbbbbbbb"}, {"identifier": "ccccccccccc"}}
	default:
		http.NotFound(w, r)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"status": 200, "data": data})
}

func newTestService(t *testing.T, kv cache.KV) (*Service, *fakeAPI) {
	t.Helper()
	fake := newFakeAPI()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	manager := cache.NewManager(kv, cache.WithClock(func() time.Time { return testNow }))
	svc := NewService(manager, api.NewClient(server.URL, time.Second), web.NewPreviewer(time.Second), testTTL)
	svc.now = func() time.Time { return testNow }
	return svc, fake
}

func TestTrend_CachedAfterFirstCall(t *testing.T) {
	svc, fake := newTestService(t, cache.NewMemory())

	list, meta, err := svc.Trend(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Trending", list[0].Title)
	assert.Equal(t, Meta{Status: 200}, meta)

	list, meta, err = svc.Trend(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, Meta{Status: cache.StatusNotModified, FromCache: true}, meta)

	assert.Equal(t, 1, fake.count("/session"))
	assert.Equal(t, 1, fake.count("/trend"))
}

func TestMedia(t *testing.T) {
	svc, fake := newTestService(t, cache.NewMemory())

	res, meta, err := svc.Media(context.Background(), rick)
	require.NoError(t, err)
	assert.Equal(t, api.KindFound, res.Kind)
	require.NotNil(t, res.Media)
	assert.Equal(t, "Never Gonna Give You Up", res.Media.Title)
	assert.False(t, meta.FromCache)

	_, meta, err = svc.Media(context.Background(), rick)
	require.NoError(t, err)
	assert.True(t, meta.FromCache)
	assert.Equal(t, 1, fake.count("/media/YouTube/dQw4w9WgXcQ"))

	missing, _, err := svc.Media(context.Background(), media.Locator{Platform: media.YouTube, Identifier: "zzzzzzzzzzz"})
	require.NoError(t, err)
	assert.Equal(t, api.KindNotFound, missing.Kind)
	assert.Nil(t, missing.Media)
}

func TestMedia_IdentityMismatchRefetches(t *testing.T) {
	kv := cache.NewMemory()
	svc, fake := newTestService(t, kv)

	// Another subject's document stored under this key.
	b, err := json.Marshal(cache.Entry{
		Key:      MediaKey(rick),
		Value:    json.RawMessage(`{"Media":{"YouTube":{"identifier":"other","title":"Wrong"}}}`),
		StoredAt: testNow.Unix() - 10,
		Identity: "other",
	})
	require.NoError(t, err)
	require.NoError(t, kv.Set(MediaKey(rick), b))

	res, meta, err := svc.Media(context.Background(), rick)
	require.NoError(t, err)
	assert.False(t, meta.FromCache)
	assert.Equal(t, "Never Gonna Give You Up", res.Media.Title)
	assert.Equal(t, 1, fake.count("/media/YouTube/dQw4w9WgXcQ"))
}

func TestRelated(t *testing.T) {
	svc, fake := newTestService(t, cache.NewMemory())

	list, _, err := svc.Related(context.Background(), rick)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 1, fake.count("/related/YouTube/dQw4w9WgXcQ"))
}

func TestRevokedSessionIsRenewed(t *testing.T) {
	svc, fake := newTestService(t, cache.NewMemory())
	_, _, err := svc.Session(context.Background())
	require.NoError(t, err)

	fake.mu.Lock()
	fake.revoked["Bearer t1"] = true
	fake.mu.Unlock()

	list, _, err := svc.Trend(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 2, fake.count("/session"))
	assert.Equal(t, 2, fake.count("/trend"))

	sess, meta, err := svc.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t2", sess.Token)
	assert.True(t, meta.FromCache)
}

func TestExpiredSessionIsRenewed(t *testing.T) {
	kv := cache.NewMemory()
	svc, fake := newTestService(t, kv)

	b, err := json.Marshal(cache.Entry{
		Key:      KeySession,
		Value:    json.RawMessage(`{"token":"old","expires":1}`),
		StoredAt: testNow.Unix() - 10,
	})
	require.NoError(t, err)
	require.NoError(t, kv.Set(KeySession, b))

	sess, meta, err := svc.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", sess.Token)
	assert.False(t, meta.FromCache)
	assert.Equal(t, 1, fake.count("/session"))
}

func TestMalformedCachedValueIsRefetched(t *testing.T) {
	kv := cache.NewMemory()
	svc, fake := newTestService(t, kv)

	b, err := json.Marshal(cache.Entry{Key: KeyTrend, Value: json.RawMessage(`{"not":"a list"}`), StoredAt: testNow.Unix()})
	require.NoError(t, err)
	require.NoError(t, kv.Set(KeyTrend, b))

	list, meta, err := svc.Trend(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.False(t, meta.FromCache)
	assert.Equal(t, 1, fake.count("/trend"))
}

func TestFetchFailureSurfaces(t *testing.T) {
	svc, _ := newTestService(t, cache.NewMemory())

	_, _, err := svc.Related(context.Background(), media.Locator{Platform: media.YouTube, Identifier: "yyyyyyyyyyy"})
	require.Error(t, err)
	var fe *cache.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)
}

func TestPreview(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta property="og:title" content="Rick"></head></html>`))
	}))
	defer page.Close()

	svc, _ := newTestService(t, cache.NewMemory())
	svc.sourceURL = func(loc media.Locator) string { return page.URL + "/watch?v=" + loc.Identifier }

	pv, meta, err := svc.Preview(context.Background(), rick)
	require.NoError(t, err)
	assert.Equal(t, "Rick", pv.Title)
	assert.False(t, meta.FromCache)

	pv, meta, err = svc.Preview(context.Background(), rick)
	require.NoError(t, err)
	assert.Equal(t, "Rick", pv.Title)
	assert.True(t, meta.FromCache)
}
