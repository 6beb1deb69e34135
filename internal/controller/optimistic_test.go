package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/cache"
	"github.com/paylume/productsync/internal/events"
	"github.com/paylume/productsync/pkg/model"
)

func checkoutFixture(active bool) []model.Checkout {
	return []model.Checkout{{
		ID:        "ck1",
		ProductID: "P1",
		Theme:     "light",
		Testimonials: []model.Testimonial{
			{ID: "t1", Name: "Ana", Text: "loved it", Rating: 5, Active: active},
		},
	}}
}

// newCheckoutsServer serves the fixture list and lets the test decide how
// testimonial updates behave.
func newCheckoutsServer(t *testing.T, puts *atomic.Int32, putStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, checkoutFixture(true))
		case http.MethodPut:
			puts.Add(1)
			if putStatus != http.StatusOK {
				w.WriteHeader(putStatus)
				writeJSON(w, map[string]string{"error": "server", "message": "testimonial update rejected"})
				return
			}
			var in model.Testimonial
			_ = json.NewDecoder(r.Body).Decode(&in)
			writeJSON(w, in)
		}
	}))
}

// ─── Rollback (scenario 3) ───────────────────────────────────────────────────

func TestToggleTestimonial_FailureRollsBackAndNotifiesOnce(t *testing.T) {
	var puts atomic.Int32
	srv := newCheckoutsServer(t, &puts, http.StatusInternalServerError)
	defer srv.Close()

	d := newDeps(srv.URL)
	var mu sync.Mutex
	var notices []events.Notice
	d.Bus.OnNotice(func(n events.Notice) {
		mu.Lock()
		notices = append(notices, n)
		mu.Unlock()
	})

	ctx := context.Background()
	ctrl := NewCheckouts(d)
	ctrl.Bind(ctx, "P1", "tok")
	require.True(t, ctrl.Snapshot().Data[0].Testimonials[0].Active)

	err := ctrl.ToggleTestimonial(ctx, "ck1", 0, false)
	require.Error(t, err)

	snap := ctrl.Snapshot()
	assert.True(t, snap.Data[0].Testimonials[0].Active, "failed toggle must restore the previous value")
	assert.EqualValues(t, 1, puts.Load())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notices, 1, "exactly one error notice per failed toggle")
	assert.Equal(t, events.LevelError, notices[0].Level)
	assert.NotEmpty(t, notices[0].Message)
}

func TestToggleTestimonial_SuccessKeepsValueAndUpdatesCache(t *testing.T) {
	var puts atomic.Int32
	srv := newCheckoutsServer(t, &puts, http.StatusOK)
	defer srv.Close()

	d := newDeps(srv.URL)
	var mu sync.Mutex
	var notices []events.Notice
	d.Bus.OnNotice(func(n events.Notice) {
		mu.Lock()
		notices = append(notices, n)
		mu.Unlock()
	})

	ctx := context.Background()
	ctrl := NewCheckouts(d)
	ctrl.Bind(ctx, "P1", "tok")

	require.NoError(t, ctrl.ToggleTestimonial(ctx, "ck1", 0, false))

	snap := ctrl.Snapshot()
	assert.False(t, snap.Data[0].Testimonials[0].Active)
	assert.EqualValues(t, 1, puts.Load())

	// The server-confirmed list lands in the cache.
	cached, ok := cache.GetAs[[]model.Checkout](ctx, d.Cache, "checkouts:P1")
	require.True(t, ok)
	assert.False(t, cached[0].Testimonials[0].Active)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notices, 1)
	assert.Equal(t, events.LevelSuccess, notices[0].Level)
}

func TestToggleTestimonial_DraftSkipsRemoteCall(t *testing.T) {
	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list := checkoutFixture(true)
			list[0].Testimonials[0].ID = "" // local draft, no server identity
			writeJSON(w, list)
		case http.MethodPut:
			puts.Add(1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	d := newDeps(srv.URL)
	ctx := context.Background()
	ctrl := NewCheckouts(d)
	ctrl.Bind(ctx, "P1", "tok")

	require.NoError(t, ctrl.ToggleTestimonial(ctx, "ck1", 0, false))

	assert.False(t, ctrl.Snapshot().Data[0].Testimonials[0].Active)
	assert.Zero(t, puts.Load(), "a draft has nothing to confirm remotely")
}

func TestToggleTestimonial_UnknownPositionFails(t *testing.T) {
	var puts atomic.Int32
	srv := newCheckoutsServer(t, &puts, http.StatusOK)
	defer srv.Close()

	ctx := context.Background()
	ctrl := NewCheckouts(newDeps(srv.URL))
	ctrl.Bind(ctx, "P1", "tok")

	require.ErrorIs(t, ctrl.ToggleTestimonial(ctx, "missing", 0, false), ErrNotFound)
	require.ErrorIs(t, ctrl.ToggleTestimonial(ctx, "ck1", 7, false), ErrNotFound)
	assert.Zero(t, puts.Load())
}

// ─── Toggler in isolation ────────────────────────────────────────────────────

func TestToggler_CompensateRunsOnlyOnFailure(t *testing.T) {
	var applied, compensated atomic.Int32
	tg := NewToggler(zap.NewNop(), events.NewBus())

	cmd := ToggleCommand{
		Resource:   model.ResourceCheckouts,
		ProductID:  "P1",
		Persisted:  true,
		Apply:      func() { applied.Add(1) },
		Compensate: func() { compensated.Add(1) },
		Call:       func(context.Context) error { return errors.New("boom") },
	}
	require.Error(t, tg.Run(context.Background(), cmd))
	assert.EqualValues(t, 1, applied.Load())
	assert.EqualValues(t, 1, compensated.Load())

	applied.Store(0)
	compensated.Store(0)
	cmd.Call = func(context.Context) error { return nil }
	require.NoError(t, tg.Run(context.Background(), cmd))
	assert.EqualValues(t, 1, applied.Load())
	assert.Zero(t, compensated.Load())
}
