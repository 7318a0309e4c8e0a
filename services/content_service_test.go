package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/cache"
	"github.com/antonioqueb/ooak/clients"
	"github.com/antonioqueb/ooak/content"
	"github.com/antonioqueb/ooak/models"
	"github.com/antonioqueb/ooak/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- in-memory cache ----

type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string, dst interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

// SetAsync stores synchronously so tests can observe it.
func (m *memCache) SetAsync(key string, value interface{}) {
	b, _ := json.Marshal(value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
}

func (m *memCache) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
	m.invalidated++
	return nil
}

// ---- helpers ----

func newContentService(t *testing.T, handler http.HandlerFunc, c *memCache) services.ContentService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	erp := clients.NewERPClient(srv.URL, "tok", time.Second)
	var svcCache cache.ContentCache
	if c != nil {
		svcCache = c
	}
	return services.NewContentService(erp, svcCache, content.MustLoadFallback(), content.NewNormalizer("https://erp.example.com"), nil, zap.NewNop())
}

func failingERP(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}
}

// ---- tests ----

func TestContent_FallbackForKnownSlugWhenERPFails(t *testing.T) {
	svc := newContentService(t, failingERP(http.StatusInternalServerError), nil)

	got, src, err := svc.Collection(context.Background(), "barro-negro")
	require.NoError(t, err)
	assert.Equal(t, services.FromFallback, src)

	want, ok := content.MustLoadFallback().Collection("barro-negro")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestContent_UnknownSlugIsNotFound(t *testing.T) {
	svc := newContentService(t, failingERP(http.StatusNotFound), nil)

	_, _, err := svc.Product(context.Background(), "no-such-piece")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, _, err = svc.Project(context.Background(), "no-such-project")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, _, err = svc.LegalPage(context.Background(), "no-such-page")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestContent_ListsFallBack(t *testing.T) {
	svc := newContentService(t, failingERP(http.StatusBadGateway), nil)
	ctx := context.Background()

	projects, src, err := svc.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.FromFallback, src)
	assert.NotEmpty(t, projects)

	footer, _, err := svc.Footer(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, footer.Columns)

	brand, _, err := svc.Brand(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, brand.Tagline)
}

func TestContent_LivePayloadIsNormalizedAndCached(t *testing.T) {
	var calls int
	var mu sync.Mutex
	handler := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		assert.Equal(t, "/api/shop/collections", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"collections":[
			{"id":9,"name":"Vidrio","slug":"Vidrio","description":false,"cover_image":"/web/image/9","products":[
				{"id":1,"name":"Vaso","slug":"vaso","sku":false,"price":900,"images":["/web/image/p/1", false]}
			]},
			{"id":10,"name":"Sin slug","slug":false}
		]}`))
	}
	c := newMemCache()
	svc := newContentService(t, handler, c)

	got, src, err := svc.Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.FromLive, src)
	require.Len(t, got, 1)
	assert.Equal(t, models.Text("vidrio"), got[0].Slug)
	assert.Equal(t, models.Text(""), got[0].Description)
	assert.Equal(t, models.Text("https://erp.example.com/web/image/9"), got[0].CoverImage)
	assert.Equal(t, models.TextList{"https://erp.example.com/web/image/p/1"}, got[0].Products[0].Images)

	again, src, err := svc.Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.FromCache, src)
	assert.Equal(t, got, again)
	assert.Equal(t, 1, calls)

	require.NoError(t, svc.InvalidateCache(context.Background()))
	assert.Equal(t, 1, c.invalidated)
	_, src, err = svc.Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.FromLive, src)
	assert.Equal(t, 2, calls)
}

func TestContent_WrongShapeFallsBack(t *testing.T) {
	svc := newContentService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": []}`))
	}, nil)

	_, src, err := svc.Events(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.FromFallback, src)
}

func TestContent_InvalidLiveRecordFallsBack(t *testing.T) {
	svc := newContentService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"product":{"id":1,"name":"","slug":"cuenco-luna"}}`))
	}, nil)

	p, src, err := svc.Product(context.Background(), "Cuenco-Luna")
	require.NoError(t, err)
	assert.Equal(t, services.FromFallback, src)
	assert.Equal(t, models.Text("Cuenco Luna"), p.Name)
}

func TestContent_BySlugLive(t *testing.T) {
	svc := newContentService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/shop/events/nueva-feria", r.URL.Path)
		_, _ = w.Write([]byte(`{"event":{"id":3,"title":"Nueva feria","slug":"nueva-feria","cover_image":"https://cdn.example.com/f.jpg"}}`))
	}, nil)

	e, src, err := svc.Event(context.Background(), "nueva-feria")
	require.NoError(t, err)
	assert.Equal(t, services.FromLive, src)
	assert.Equal(t, models.Text("Nueva feria"), e.Title)
}

func TestContent_Subscribe(t *testing.T) {
	var got models.NewsletterRequest
	svc := newContentService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/shop/newsletter", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}, nil)

	require.NoError(t, svc.Subscribe(context.Background(), models.NewsletterRequest{Email: " Ana@Example.com "}))
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "website", got.Source)
}

func TestContent_SubscribeFailureIsUpstream(t *testing.T) {
	svc := newContentService(t, failingERP(http.StatusServiceUnavailable), nil)

	err := svc.Subscribe(context.Background(), models.NewsletterRequest{Email: "ana@example.com"})
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))
}
