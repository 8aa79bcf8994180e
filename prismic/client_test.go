package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	srv        *httptest.Server
	rootHits   atomic.Int32
	searchHits atomic.Int32
	lastQuery  atomic.Value // url.Values
	search     http.HandlerFunc
}

func newFakeRepo(t *testing.T, search http.HandlerFunc) *fakeRepo {
	t.Helper()
	f := &fakeRepo{search: search}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		f.rootHits.Add(1)
		writeJSON(w, apiInfo{Refs: []Ref{
			{ID: "release", Ref: "release-ref"},
			{ID: "master", Ref: "master-ref", IsMasterRef: true},
		}})
	})
	mux.HandleFunc("/api/v2/documents/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchHits.Add(1)
		f.lastQuery.Store(r.URL.Query())
		f.search(w, r)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRepo) client(t *testing.T, cfg Config) *Client {
	t.Helper()
	cfg.Endpoint = f.srv.URL + "/api/v2"
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = time.Millisecond
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func (f *fakeRepo) query() url.Values {
	v, _ := f.lastQuery.Load().(url.Values)
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func okSearch(w http.ResponseWriter, r *http.Request) {
	uid := "first-post"
	writeJSON(w, Response{
		Page:    1,
		Results: []Document{{ID: "X1", UID: &uid, Type: "posts"}},
	})
}

func TestQueryEncodesParameters(t *testing.T) {
	repo := newFakeRepo(t, okSearch)
	c := repo.client(t, Config{AccessToken: "secret"})

	resp, err := c.Query(context.Background(), Query{
		Predicates: []Predicate{At("document.type", "posts")},
		Fetch:      []string{"posts.title", "posts.author"},
		Orderings:  []Ordering{{Field: "document.first_publication_date", Desc: true}},
		PageSize:   2,
		Lang:       "pt-br",
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "first-post", *resp.Results[0].UID)

	q := repo.query()
	assert.Equal(t, "master-ref", q.Get("ref"))
	assert.Equal(t, `[[at(document.type, "posts")]]`, q.Get("q"))
	assert.Equal(t, "posts.title,posts.author", q.Get("fetch"))
	assert.Equal(t, "[document.first_publication_date desc]", q.Get("orderings"))
	assert.Equal(t, "2", q.Get("pageSize"))
	assert.Equal(t, "pt-br", q.Get("lang"))
	assert.Equal(t, "secret", q.Get("access_token"))
}

func TestQueryUsesExplicitRef(t *testing.T) {
	repo := newFakeRepo(t, okSearch)
	c := repo.client(t, Config{})

	_, err := c.Query(context.Background(), Query{Ref: "preview-ref"})
	require.NoError(t, err)
	assert.Equal(t, "preview-ref", repo.query().Get("ref"))
	assert.Equal(t, int32(0), repo.rootHits.Load(), "explicit ref must not hit the api root")
}

func TestMasterRefIsCached(t *testing.T) {
	repo := newFakeRepo(t, okSearch)
	c := repo.client(t, Config{RefTTL: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := c.Query(context.Background(), Query{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), repo.rootHits.Load())
	assert.Equal(t, int32(3), repo.searchHits.Load())
}

func TestRetriesUntilUpstreamRecovers(t *testing.T) {
	var calls atomic.Int32
	repo := newFakeRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		okSearch(w, r)
	})
	c := repo.client(t, Config{MaxTries: 3})

	resp, err := c.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, int32(3), repo.searchHits.Load())
}

func TestUpstreamUnavailableAfterRetries(t *testing.T) {
	repo := newFakeRepo(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := repo.client(t, Config{MaxTries: 3})

	_, err := c.Query(context.Background(), Query{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable), "got %v", err)
	assert.Equal(t, int32(3), repo.searchHits.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	repo := newFakeRepo(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad query", http.StatusBadRequest)
	})
	c := repo.client(t, Config{MaxTries: 3})

	_, err := c.Query(context.Background(), Query{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.Contains(t, err.Error(), "status=400")
	assert.Equal(t, int32(1), repo.searchHits.Load())
}

func TestNotFoundStatus(t *testing.T) {
	repo := newFakeRepo(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	c := repo.client(t, Config{})

	_, err := c.Query(context.Background(), Query{Ref: "preview-ref"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), repo.searchHits.Load())
}

func TestRejectedMasterRefIsReloaded(t *testing.T) {
	var calls atomic.Int32
	repo := newFakeRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			http.NotFound(w, r)
			return
		}
		okSearch(w, r)
	})
	c := repo.client(t, Config{RefTTL: time.Hour})

	_, err := c.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.rootHits.Load())

	resp, err := c.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, int32(2), repo.rootHits.Load(), "rejected ref must be reloaded")
	assert.Equal(t, int32(3), repo.searchHits.Load())
}

func TestPersistentNotFoundAfterReload(t *testing.T) {
	repo := newFakeRepo(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	c := repo.client(t, Config{})

	_, err := c.Query(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(2), repo.searchHits.Load())
	assert.Equal(t, int32(2), repo.rootHits.Load())
}

func TestTimeoutSurfacesAsUpstreamUnavailable(t *testing.T) {
	repo := newFakeRepo(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		okSearch(w, r)
	})
	c := repo.client(t, Config{Timeout: 20 * time.Millisecond, MaxTries: 1})

	_, err := c.Query(context.Background(), Query{Ref: "master-ref"})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFetchPageFollowsURLVerbatim(t *testing.T) {
	repo := newFakeRepo(t, okSearch)
	c := repo.client(t, Config{})

	next := repo.srv.URL + "/api/v2/documents/search?ref=master-ref&page=2&pageSize=1"
	resp, err := c.FetchPage(context.Background(), next)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)

	q := repo.query()
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "1", q.Get("pageSize"))
	assert.Equal(t, int32(0), repo.rootHits.Load())
}

func TestFetchPageRejectsForeignHost(t *testing.T) {
	repo := newFakeRepo(t, okSearch)
	c := repo.client(t, Config{})

	_, err := c.FetchPage(context.Background(), "https://example.com/api/v2/documents/search?page=2")
	require.Error(t, err)
	assert.Equal(t, int32(0), repo.searchHits.Load())
}

func TestNewRejectsRelativeEndpoint(t *testing.T) {
	_, err := New(Config{Endpoint: "/api/v2"})
	assert.Error(t, err)
}

func TestTimestampDecoding(t *testing.T) {
	var doc Document
	err := json.Unmarshal([]byte(`{
		"id": "X1",
		"uid": null,
		"first_publication_date": "2021-03-15T19:25:28+0000",
		"last_publication_date": "2021-03-25T19:27:35Z"
	}`), &doc)
	require.NoError(t, err)

	assert.Nil(t, doc.UID)
	require.NotNil(t, doc.FirstPublicationDate)
	assert.True(t, doc.FirstPublicationDate.Equal(time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)))
	require.NotNil(t, doc.LastPublicationDate)
	assert.True(t, doc.LastPublicationDate.Equal(time.Date(2021, 3, 25, 19, 27, 35, 0, time.UTC)))

	var bad Document
	assert.Error(t, json.Unmarshal([]byte(`{"first_publication_date": "yesterday"}`), &bad))
}

func TestPredicateString(t *testing.T) {
	at := time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)
	tests := []struct {
		p    Predicate
		want string
	}{
		{At("my.posts.uid", "hello"), `[at(my.posts.uid, "hello")]`},
		{DateBefore("document.first_publication_date", at), "[date.before(document.first_publication_date, 1615836328000)]"},
		{DateAfter("document.first_publication_date", at), "[date.after(document.first_publication_date, 1615836328000)]"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
