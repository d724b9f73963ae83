package http

import (
	"net/http"
	"time"

	"github.com/bricker/vivial-sub003/internal/control"
)

// VirtualEventRecord is one registered virtual event in an API response.
type VirtualEventRecord struct {
	ViewID       string    `json:"view_id"`
	ReadableName string    `json:"readable_name"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// VirtualEventsResponse represents the virtual-events listing response.
type VirtualEventsResponse struct {
	TeamID    string               `json:"team_id"`
	Events    []VirtualEventRecord `json:"events"`
	RequestID string               `json:"request_id"`
}

// VirtualEventsHandler handles GET /v1/virtual-events requests, listing the
// views registered for the calling tenant.
type VirtualEventsHandler struct {
	store control.Store
}

// NewVirtualEventsHandler creates a new virtual-events handler.
func NewVirtualEventsHandler(store control.Store) *VirtualEventsHandler {
	return &VirtualEventsHandler{store: store}
}

// ServeHTTP handles the listing HTTP request.
func (h *VirtualEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	teamID := GetTeamID(r.Context())
	if teamID == "" {
		writeError(w, http.StatusBadRequest, TeamIDHeader+" header is required", requestID)
		return
	}

	events, err := h.store.List(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list virtual events", requestID)
		return
	}

	resp := VirtualEventsResponse{
		TeamID:    teamID,
		Events:    make([]VirtualEventRecord, 0, len(events)),
		RequestID: requestID,
	}
	for _, ve := range events {
		resp.Events = append(resp.Events, VirtualEventRecord{
			ViewID:       ve.ViewID,
			ReadableName: ve.ReadableName,
			Description:  ve.Description,
			CreatedAt:    ve.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
