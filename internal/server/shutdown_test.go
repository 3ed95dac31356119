package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestShutdown_ClosesInReverseOrder(t *testing.T) {
	sm := NewShutdownManager(DefaultShutdownConfig())

	var order []string
	for _, name := range []string{"metastore", "grpc", "http"} {
		sm.RegisterCloser(name, CloserFunc(func() error {
			order = append(order, name)
			return nil
		}))
	}

	if err := sm.Shutdown(context.Background(), "test"); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got := strings.Join(order, ","); got != "http,grpc,metastore" {
		t.Errorf("close order: got %s", got)
	}
	if !sm.IsShuttingDown() {
		t.Error("expected shutting down")
	}
	select {
	case <-sm.ShutdownCh():
	default:
		t.Error("expected shutdown channel closed")
	}
}

func TestShutdown_CollectsErrorsAndRunsOnce(t *testing.T) {
	sm := NewShutdownManager(DefaultShutdownConfig())
	errA := errors.New("a failed")
	calls := 0
	sm.RegisterCloser("a", CloserFunc(func() error { calls++; return errA }))
	sm.RegisterCloser("b", CloserFunc(func() error { calls++; return nil }))

	err := sm.Shutdown(context.Background(), "first")
	if !errors.Is(err, errA) {
		t.Errorf("expected errA in %v", err)
	}
	if again := sm.Shutdown(context.Background(), "second"); !errors.Is(again, errA) {
		t.Errorf("second Shutdown should return first result, got %v", again)
	}
	if calls != 2 {
		t.Errorf("closers should run once, ran %d times", calls)
	}
}

func TestShutdown_DrainTimeout(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{ShutdownTimeout: time.Second, DrainTimeout: 100 * time.Millisecond})
	if !sm.TrackRequest() {
		t.Fatal("expected request to be tracked")
	}

	err := sm.Shutdown(context.Background(), "test")
	if err == nil || !strings.Contains(err.Error(), "1 in-flight") {
		t.Errorf("expected drain timeout error, got %v", err)
	}
	if sm.TrackRequest() {
		t.Error("expected new requests to be rejected")
	}
}

func TestMiddleware(t *testing.T) {
	sm := NewShutdownManager(DefaultShutdownConfig())
	release := make(chan struct{})
	started := make(chan struct{})
	h := sm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	done := make(chan int)
	go func() {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		done <- rr.Code
	}()
	<-started
	if sm.InFlightCount() != 1 {
		t.Errorf("expected 1 in flight, got %d", sm.InFlightCount())
	}

	shutdownDone := make(chan error)
	go func() { shutdownDone <- sm.Shutdown(context.Background(), "test") }()

	deadline := time.Now().Add(time.Second)
	for !sm.IsShuttingDown() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 during shutdown, got %d", rr.Code)
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("in-flight request should finish, got %d", code)
	}
	if err := <-shutdownDone; err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
