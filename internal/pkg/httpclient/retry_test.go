package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func get(url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestDo_RetriesTransientStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(time.Second)
	c.Backoff = time.Millisecond

	resp, err := c.Do(context.Background(), get(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if hits != 3 {
		t.Errorf("expected 3 attempts, got %d", hits)
	}
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(time.Second)
	c.Backoff = time.Millisecond

	_, err := c.Do(context.Background(), get(srv.URL))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if se.Body != "bad token" {
		t.Errorf("expected body in error, got %q", se.Body)
	}
	if hits != 1 {
		t.Errorf("expected 1 attempt, got %d", hits)
	}
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(time.Second)
	c.MaxAttempts = 2
	c.Backoff = time.Millisecond

	if _, err := c.Do(context.Background(), get(srv.URL)); err == nil {
		t.Fatal("expected error")
	}
	if hits != 2 {
		t.Errorf("expected 2 attempts, got %d", hits)
	}
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(time.Second)
	_, err := c.Do(ctx, get("http://127.0.0.1:1"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
