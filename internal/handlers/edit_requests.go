package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/havenhome/storefront-api/internal/platform/httpx"
	"github.com/havenhome/storefront-api/internal/services"
)

const maxEditRequestBody = 4 * 1024

// EditRequestHandlers relays "open this row for editing" requests from the
// admin product list to whichever editor surface is watching. Delivery is
// fire-and-forget via the edit bridge; at most one watcher is active.
type EditRequestHandlers struct {
	bridge *services.EditBridge
}

// NewEditRequestHandlers constructs the edit request endpoints.
func NewEditRequestHandlers(bridge *services.EditBridge) *EditRequestHandlers {
	return &EditRequestHandlers{bridge: bridge}
}

// AdminRoutes registers the edit request endpoints, mounted behind
// authentication.
func (h *EditRequestHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/edit-requests", h.publish)
	r.Get("/edit-requests/watch", h.watch)
}

func (h *EditRequestHandlers) publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bridge == nil {
		httpx.WriteError(ctx, w, httpx.NewError("edit_bridge_unavailable", "edit bridge is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxEditRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req services.EditRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "category is required", http.StatusBadRequest))
		return
	}

	queued := h.bridge.Publish(req)
	writeJSONResponse(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"queued": queued,
	})
}

// watch streams edit requests to the caller as server-sent events. A new
// watcher replaces the previous one; the bridge delivers to one consumer.
func (h *EditRequestHandlers) watch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bridge == nil {
		httpx.WriteError(ctx, w, httpx.NewError("edit_bridge_unavailable", "edit bridge is unavailable", http.StatusServiceUnavailable))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("streaming_unsupported", "response writer does not support streaming", http.StatusInternalServerError))
		return
	}

	// All writes happen on this goroutine; the bridge handler only
	// forwards into the feed channel.
	feed := make(chan services.EditRequest, 16)
	h.bridge.Subscribe(func(req services.EditRequest) {
		select {
		case feed <- req:
		default:
		}
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-feed:
			payload, err := json.Marshal(req)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
