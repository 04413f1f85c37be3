package middleware_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"furrchum-vet/internal/adapters/storage/memory"
	"furrchum-vet/internal/middleware"
	"furrchum-vet/internal/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	})
}

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	return postBody(h, key, `{}`)
}

func postBody(h http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1234"
	if key != "" {
		req.Header.Set(middleware.IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	var calls int32
	mw := middleware.Idempotency(memory.NewIdempotencyStore(), time.Hour, logger.Nop())
	h := mw(countingHandler(&calls, http.StatusCreated))

	first := post(h, "k1")
	second := post(h, "k1")

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	post(h, "k2")
	post(h, "")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestIdempotency_ServerErrorsReleaseKey(t *testing.T) {
	var calls int32
	mw := middleware.Idempotency(memory.NewIdempotencyStore(), time.Hour, logger.Nop())
	h := mw(countingHandler(&calls, http.StatusServiceUnavailable))

	post(h, "k1")
	post(h, "k1")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_RejectsLongKeys(t *testing.T) {
	var calls int32
	mw := middleware.Idempotency(memory.NewIdempotencyStore(), time.Hour, logger.Nop())
	rec := post(mw(countingHandler(&calls, http.StatusOK)), strings.Repeat("x", 200))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	var calls int32
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("storage driver bug")
		}
		w.WriteHeader(http.StatusCreated)
	})
	h := middleware.Recover(logger.Nop())(
		middleware.Idempotency(memory.NewIdempotencyStore(), time.Hour, logger.Nop())(flaky),
	)

	assert.Equal(t, http.StatusInternalServerError, post(h, "k1").Code)
	assert.Equal(t, http.StatusCreated, post(h, "k1").Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// cancelAwareStore falla como Redis cuando recibe un contexto cancelado.
type cancelAwareStore struct {
	*memory.IdempotencyStore
}

func (s cancelAwareStore) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.IdempotencyStore.Release(ctx, key)
}

func TestIdempotency_ReleasesAfterRequestContextCancelled(t *testing.T) {
	store := cancelAwareStore{memory.NewIdempotencyStore()}
	var calls int32
	h := middleware.Idempotency(store, time.Hour, logger.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{}`)).WithContext(ctx)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set(middleware.IdempotencyHeader, "k1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, http.StatusServiceUnavailable, post(h, "k1").Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_DifferentBodySameKeyIsRejected(t *testing.T) {
	var calls int32
	var seen []string
	h := middleware.Idempotency(memory.NewIdempotencyStore(), time.Hour, logger.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			b, _ := io.ReadAll(r.Body)
			seen = append(seen, string(b))
			w.WriteHeader(http.StatusCreated)
		}),
	)

	first := postBody(h, "k1", `{"time":"09:00"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, []string{`{"time":"09:00"}`}, seen, "handler must still read the original body")

	assert.Equal(t, http.StatusCreated, postBody(h, "k1", `{"time":"09:00"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, postBody(h, "k1", `{"time":"10:00"}`).Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
