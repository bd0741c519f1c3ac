package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/havenhome/storefront-api/internal/services"
)

func newEditRequestRouter(bridge *services.EditBridge) http.Handler {
	h := NewEditRequestHandlers(bridge)
	return NewRouter(WithAdminRoutes(h.AdminRoutes))
}

func TestPublishEditRequest(t *testing.T) {
	bridge := services.NewEditBridge()
	defer bridge.Close()

	var mu sync.Mutex
	var received []services.EditRequest
	bridge.Subscribe(func(req services.EditRequest) {
		mu.Lock()
		received = append(received, req)
		mu.Unlock()
	})

	router := newEditRequestRouter(bridge)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/edit-requests",
		strings.NewReader(`{"category":"mattresses","row":3}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("edit request never reached the subscriber")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if received[0].Category != "mattresses" || received[0].Row != 3 {
		t.Fatalf("unexpected request %+v", received[0])
	}
}

func TestPublishEditRequestRequiresCategory(t *testing.T) {
	bridge := services.NewEditBridge()
	defer bridge.Close()

	router := newEditRequestRouter(bridge)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/edit-requests",
		strings.NewReader(`{"row":3}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestWatchEditRequestsStreams(t *testing.T) {
	bridge := services.NewEditBridge()
	defer bridge.Close()

	router := newEditRequestRouter(bridge)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/edit-requests/watch", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestEditRequestsUnavailable(t *testing.T) {
	router := newEditRequestRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/edit-requests",
		strings.NewReader(`{"category":"mattresses","row":0}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
