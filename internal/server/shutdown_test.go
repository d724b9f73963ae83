package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackWork(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{})

	require.True(t, sm.TrackWork())
	require.True(t, sm.TrackWork())
	assert.Equal(t, int64(2), sm.InFlightCount())

	sm.UntrackWork()
	sm.UntrackWork()
	assert.Equal(t, int64(0), sm.InFlightCount())
}

func TestTrackWork_RefusedDuringShutdown(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{
		ShutdownTimeout: time.Second,
		DrainTimeout:    100 * time.Millisecond,
	})

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	assert.True(t, sm.IsShuttingDown())
	assert.False(t, sm.TrackWork())
}

func TestShutdown_DrainsInFlightWork(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{
		ShutdownTimeout: 5 * time.Second,
		DrainTimeout:    2 * time.Second,
	})

	require.True(t, sm.TrackWork())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(200 * time.Millisecond)
		sm.UntrackWork()
	}()

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	wg.Wait()
	assert.Equal(t, int64(0), sm.InFlightCount())
}

func TestShutdown_DrainTimeout(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{
		ShutdownTimeout: time.Second,
		DrainTimeout:    150 * time.Millisecond,
	})

	// Work that never completes.
	require.True(t, sm.TrackWork())

	err := sm.Shutdown(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in-flight")
}

func TestShutdown_ClosersLIFO(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{
		DrainTimeout: 100 * time.Millisecond,
	})

	var order []string
	sm.RegisterCloser(CloserFunc(func() error {
		order = append(order, "first")
		return nil
	}))
	sm.RegisterCloser(CloserFunc(func() error {
		order = append(order, "second")
		return nil
	}))

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestShutdown_CloserErrorSurfaces(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{
		DrainTimeout: 100 * time.Millisecond,
	})

	sm.RegisterCloser(CloserFunc(func() error {
		return errors.New("close failed")
	}))

	err := sm.Shutdown(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close failed")
}

func TestShutdown_Idempotent(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{
		DrainTimeout: 100 * time.Millisecond,
	})

	calls := 0
	sm.RegisterCloser(CloserFunc(func() error {
		calls++
		return nil
	}))

	require.NoError(t, sm.Shutdown(context.Background(), "first"))
	require.NoError(t, sm.Shutdown(context.Background(), "second"))
	assert.Equal(t, 1, calls)
}

func TestOnShutdownStart(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{
		DrainTimeout: 100 * time.Millisecond,
	})

	called := false
	sm.OnShutdownStart(func() { called = true })

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	assert.True(t, called)
}

func TestShutdownMiddleware(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{
		DrainTimeout: 100 * time.Millisecond,
	})

	var sawInFlight int64
	h := ShutdownMiddleware(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawInFlight = sm.InFlightCount()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), sawInFlight)
	assert.Equal(t, int64(0), sm.InFlightCount())

	require.NoError(t, sm.Shutdown(context.Background(), "test"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}
