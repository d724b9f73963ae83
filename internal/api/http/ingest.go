package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bricker/vivial-sub003/internal/ingest"
)

// Atom kinds accepted on the ingest path.
const (
	KindBrowser    = "browser"
	KindDatabase   = "database"
	KindHTTPServer = "http_server"
	KindAPIUsage   = "api_usage"
)

// IngestRequest represents a batch of raw event payloads for one atom kind.
type IngestRequest struct {
	Events []map[string]interface{} `json:"events"`
}

// IngestResponse acknowledges receipt of a batch. Ingestion itself is
// best-effort and asynchronous; acceptance is not a durability guarantee.
type IngestResponse struct {
	Accepted  int    `json:"accepted"`
	RequestID string `json:"request_id"`
}

// WorkTracker registers background work so graceful shutdown can drain
// batches that were acknowledged but not yet ingested.
type WorkTracker interface {
	TrackWork() bool
	UntrackWork()
}

// IngestHandler handles POST /v1/events/{kind} requests.
type IngestHandler struct {
	opts    ingest.Options
	tracker WorkTracker

	// maxBatchEvents caps the events accepted per request.
	maxBatchEvents int

	// processTimeout bounds the background ingestion of one batch.
	processTimeout time.Duration
}

// NewIngestHandler creates a new ingest handler. tracker may be nil, in
// which case background batches are not drained on shutdown.
func NewIngestHandler(opts ingest.Options, maxBatchEvents int, tracker WorkTracker) *IngestHandler {
	return &IngestHandler{
		opts:           opts,
		tracker:        tracker,
		maxBatchEvents: maxBatchEvents,
		processTimeout: 2 * time.Minute,
	}
}

// controllerFor builds the per-tenant controller for one atom kind.
func (h *IngestHandler) controllerFor(kind, teamID string) (*ingest.Controller, error) {
	switch kind {
	case KindBrowser:
		return ingest.NewBrowserEventController(teamID, h.opts), nil
	case KindDatabase:
		return ingest.NewDatabaseEventController(teamID, h.opts), nil
	case KindHTTPServer:
		return ingest.NewHTTPServerEventController(teamID, h.opts), nil
	case KindAPIUsage:
		return ingest.NewAPIUsageEventController(teamID, h.opts), nil
	default:
		return nil, fmt.Errorf("unknown event kind: %s", kind)
	}
}

// ServeHTTP handles the ingest HTTP request.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	teamID := GetTeamID(r.Context())
	if teamID == "" {
		writeError(w, http.StatusBadRequest, TeamIDHeader+" header is required", requestID)
		return
	}

	kind := r.PathValue("kind")
	controller, err := h.controllerFor(kind, teamID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), requestID)
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "events must not be empty", requestID)
		return
	}
	if h.maxBatchEvents > 0 && len(req.Events) > h.maxBatchEvents {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch exceeds %d events", h.maxBatchEvents), requestID)
		return
	}

	// Acknowledge before processing: the producer must never block on, or
	// see failures from, warehouse writes. The batch is tracked so shutdown
	// drains it rather than dropping acknowledged events.
	if h.tracker != nil && !h.tracker.TrackWork() {
		w.Header().Set("Connection", "close")
		writeError(w, http.StatusServiceUnavailable, "shutting down", requestID)
		return
	}
	go func() {
		if h.tracker != nil {
			defer h.tracker.UntrackWork()
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.processTimeout)
		defer cancel()
		if err := controller.Insert(ctx, req.Events); err != nil {
			log.Printf("[ERROR] api: ingest of %s batch for team %s (request %s): %v",
				kind, teamID, requestID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, IngestResponse{
		Accepted:  len(req.Events),
		RequestID: requestID,
	})
}

// HealthHandler handles GET /healthz requests.
type HealthHandler struct{}

// ServeHTTP reports liveness.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
