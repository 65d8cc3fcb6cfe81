package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(c *AssignmentClient) {
	c.sleep = func(time.Duration) {}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/assignment", r.URL.Path)
		assert.Equal(t, "prod-1", r.URL.Query().Get("product_id"))
		assert.Equal(t, "sess-1", r.URL.Query().Get("session_id"))
		assert.Empty(t, r.URL.Query().Get("force"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"ok","data":{"active":true,"test_id":"11111111-2222-4333-8444-555555555555","case":"test","images":["https://cdn.example.com/b.jpg"]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	noSleep(c)
	a := c.Fetch(context.Background(), "prod-1", "sess-1", "")
	require.NotNil(t, a)
	assert.Equal(t, "test", a.Case)
	assert.Equal(t, []string{"https://cdn.example.com/b.jpg"}, a.Images)
	assert.Same(t, a, c.Current())
}

func TestFetch_ForcedCaseParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "base", r.URL.Query().Get("force"))
		w.Write([]byte(`{"success":true,"message":"ok","data":{"active":true,"test_id":"11111111-2222-4333-8444-555555555555","case":"base","images":["https://cdn.example.com/a.jpg"]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	noSleep(c)
	a := c.Fetch(context.Background(), "prod-1", "sess-1", "base")
	require.NotNil(t, a)
	assert.Equal(t, "base", a.Case)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"success":true,"message":"ok","data":{"active":true,"test_id":"11111111-2222-4333-8444-555555555555","case":"test","images":["https://cdn.example.com/b.jpg"]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	a := c.Fetch(context.Background(), "prod-1", "sess-1", "")
	require.NotNil(t, a)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{c.backoffStep, 2 * c.backoffStep}, slept, "linear backoff")
}

func TestFetch_ExhaustionReturnsNil(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	noSleep(c)
	assert.Nil(t, c.Fetch(context.Background(), "prod-1", "sess-1", ""))
	assert.Equal(t, int32(c.maxAttempts), calls.Load())
	assert.Nil(t, c.Current())
}

func TestFetch_NoActiveTestDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success":true,"message":"No active test","data":{"active":false}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	noSleep(c)
	assert.Nil(t, c.Fetch(context.Background(), "prod-1", "sess-1", ""))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_MissingIdentifiers(t *testing.T) {
	c := New("http://unused.invalid", nil)
	noSleep(c)
	assert.Nil(t, c.Fetch(context.Background(), "", "sess-1", ""))
	assert.Nil(t, c.Fetch(context.Background(), "prod-1", "", ""))
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(srv.URL, srv.Client())
	c.sleep = func(time.Duration) { cancel() }
	assert.Nil(t, c.Fetch(ctx, "prod-1", "sess-1", ""))
}
