package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/api"
	"github.com/paylume/productsync/internal/cache"
	"github.com/paylume/productsync/internal/dedup"
	"github.com/paylume/productsync/internal/events"
	"github.com/paylume/productsync/pkg/model"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newDeps(srvURL string) Deps {
	return Deps{
		Logger: zap.NewNop(),
		Bus:    events.NewBus(),
		Cache:  cache.NewMemory(),
		Coord:  dedup.New(),
		Client: api.NewClient(zap.NewNop(), srvURL, nil, http.DefaultClient, 0),
	}
}

// ─── Cache coherence (scenario 1) ────────────────────────────────────────────

func TestCoupons_FirstLoadPopulatesStateAndCache(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		writeJSON(w, []model.Coupon{{ID: "c1", ProductID: "P1", Code: "OFF10"}})
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctrl := NewCoupons(d)
	ctrl.Bind(context.Background(), "P1", "tok")

	snap := ctrl.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.Len(t, snap.Data, 1)
	assert.Equal(t, "OFF10", snap.Data[0].Code)
	assert.EqualValues(t, 1, gets.Load())

	cached, ok := cache.GetAs[[]model.Coupon](context.Background(), d.Cache, "coupons:P1")
	require.True(t, ok)
	assert.Equal(t, snap.Data, cached)
}

// ─── Deduplication (scenario 2) ──────────────────────────────────────────────

func TestDeliverables_SimultaneousLoadsShareOneFetch(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		time.Sleep(60 * time.Millisecond)
		writeJSON(w, []model.Deliverable{{ID: "d1", ProductID: "P1", Name: "ebook.pdf"}})
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctrl := NewDeliverables(d)
	ctrl.Bind(context.Background(), "P1", "tok")
	require.EqualValues(t, 1, gets.Load())

	// Invalidate the cache so both loads actually want the network.
	d.Cache.Delete(context.Background(), "deliverables:P1")
	gets.Store(0)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.Load(context.Background(), false)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, gets.Load(), "expected exactly one underlying network call")
	snap := ctrl.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.Len(t, snap.Data, 1)
	assert.Equal(t, "ebook.pdf", snap.Data[0].Name)
}

// ─── Force bypass (scenario 4) ───────────────────────────────────────────────

func TestSettings_ForceReloadOverwritesStaleCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, model.Settings{ProductID: "P1", Language: "en-US"})
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, d.Cache, "settings:P1",
		model.Settings{ProductID: "P1", Language: "pt-BR"}))

	ctrl := NewSettings(d)
	ctrl.Bind(ctx, "P1", "tok")

	// Cached value serves immediately, no skeleton.
	assert.Equal(t, StateReady, ctrl.Snapshot().State)

	ctrl.Load(ctx, true)
	snap := ctrl.Snapshot()
	assert.Equal(t, "en-US", snap.Data.Language)

	cached, ok := cache.GetAs[model.Settings](ctx, d.Cache, "settings:P1")
	require.True(t, ok)
	assert.Equal(t, "en-US", cached.Language)
}

// ─── Stale-response rejection (scenario 5) ───────────────────────────────────

func TestCoupons_ProductSwitchDiscardsLateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/products/P1/coupons":
			time.Sleep(200 * time.Millisecond) // artificially delayed
			writeJSON(w, []model.Coupon{{ID: "c1", ProductID: "P1", Code: "P1-COUPON"}})
		case "/api/v1/products/P2/coupons":
			writeJSON(w, []model.Coupon{{ID: "c2", ProductID: "P2", Code: "P2-COUPON"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctx := context.Background()
	ctrl := NewCoupons(d)

	go ctrl.Bind(ctx, "P1", "tok")
	time.Sleep(50 * time.Millisecond) // let the P1 fetch take off
	ctrl.Bind(ctx, "P2", "tok")

	// Wait for the late P1 response to arrive and be arbitrated away.
	time.Sleep(300 * time.Millisecond)

	snap := ctrl.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.Len(t, snap.Data, 1)
	assert.Equal(t, "P2-COUPON", snap.Data[0].Code, "view state must never reflect P1's stale payload")

	_, ok := d.Cache.Get(ctx, "coupons:P1")
	assert.False(t, ok, "a superseded response must not populate the cache")
	cached, ok := cache.GetAs[[]model.Coupon](ctx, d.Cache, "coupons:P2")
	require.True(t, ok)
	assert.Equal(t, "P2-COUPON", cached[0].Code)
}

// ─── Error policy ────────────────────────────────────────────────────────────

func TestLoad_FetchFailureBecomesErroredState(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, []model.Coupon{{ID: "c1", Code: "BACK"}})
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctx := context.Background()
	ctrl := NewCoupons(d)
	ctrl.Bind(ctx, "P1", "tok")

	snap := ctrl.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.NotEmpty(t, snap.Err, "view substitutes an inline message using this text")
	_, ok := d.Cache.Get(ctx, "coupons:P1")
	assert.False(t, ok, "cache keeps its last good value, here: absent")

	// A later retry recovers.
	healthy.Store(true)
	ctrl.Load(ctx, false)
	snap = ctrl.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Empty(t, snap.Err)
}

func TestBind_WithoutTokenDeclinesToFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctrl := NewCoupons(newDeps(srv.URL))
	ctrl.Bind(context.Background(), "P1", "")

	assert.Equal(t, StateIdle, ctrl.Snapshot().State)
	assert.Zero(t, hits.Load())
}

// ─── Stale-while-revalidate on mount ─────────────────────────────────────────

func TestBind_CacheHitNeverShowsSkeleton(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		writeJSON(w, []model.Coupon{{ID: "c1", Code: "FRESH"}})
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, d.Cache, "coupons:P1",
		[]model.Coupon{{ID: "c1", Code: "CACHED"}}))

	var mu sync.Mutex
	var transitions []string
	d.Bus.OnStateChange(func(sc events.StateChange) {
		mu.Lock()
		transitions = append(transitions, sc.To)
		mu.Unlock()
	})

	ctrl := NewCoupons(d)
	ctrl.Bind(ctx, "P1", "tok")

	snap := ctrl.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "CACHED", snap.Data[0].Code, "cached value serves immediately")

	// The silent refresh reconciles with the server eventually.
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Data[0].Code == "FRESH"
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, transitions, string(StateLoading),
		"a remount with a warm cache must not re-trigger the skeleton")
}

// ─── Mutations ───────────────────────────────────────────────────────────────

func TestCouponCreate_ForceRefreshesAfterMutation(t *testing.T) {
	var mu sync.Mutex
	coupons := []model.Coupon{{ID: "c1", ProductID: "P1", Code: "OLD"}}
	var gets atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gets.Add(1)
			mu.Lock()
			defer mu.Unlock()
			writeJSON(w, coupons)
		case http.MethodPost:
			var in model.Coupon
			_ = json.NewDecoder(r.Body).Decode(&in)
			in.ID = "c2"
			in.ProductID = "P1"
			mu.Lock()
			coupons = append(coupons, in)
			mu.Unlock()
			writeJSON(w, in)
		}
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctx := context.Background()
	ctrl := NewCoupons(d)
	ctrl.Bind(ctx, "P1", "tok")
	require.EqualValues(t, 1, gets.Load())

	created, err := ctrl.Create(ctx, model.Coupon{Code: "NEW"})
	require.NoError(t, err)
	assert.Equal(t, "c2", created.ID)

	// The visible list reflects the authoritative post-mutation state,
	// fetched fresh, never a client-side merge.
	assert.EqualValues(t, 2, gets.Load())
	snap := ctrl.Snapshot()
	require.Len(t, snap.Data, 2)

	cached, ok := cache.GetAs[[]model.Coupon](ctx, d.Cache, "coupons:P1")
	require.True(t, ok)
	assert.Len(t, cached, 2)
}

func TestCouponCreate_FailureRejectsWithoutRefresh(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gets.Add(1)
			writeJSON(w, []model.Coupon{{ID: "c1", Code: "OLD"}})
		case http.MethodPost:
			w.WriteHeader(http.StatusUnprocessableEntity)
			writeJSON(w, map[string]string{"error": "validation", "message": "code already in use"})
		}
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctx := context.Background()
	ctrl := NewCoupons(d)
	ctrl.Bind(ctx, "P1", "tok")

	_, err := ctrl.Create(ctx, model.Coupon{Code: "DUP"})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr, "mutation failures reject so the view can keep its dialog open")

	assert.EqualValues(t, 1, gets.Load(), "nothing changed server-side, so no force-refresh")
	snap := ctrl.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.Len(t, snap.Data, 1)
	assert.Equal(t, "OLD", snap.Data[0].Code)
}

func TestMutate_BeforeBindFails(t *testing.T) {
	ctrl := NewCoupons(newDeps("http://unused"))
	_, err := ctrl.Create(context.Background(), model.Coupon{Code: "X"})
	require.ErrorIs(t, err, ErrNotBound)
}
