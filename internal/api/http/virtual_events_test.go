package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bricker/vivial-sub003/internal/control"
)

func listVirtualEvents(api *testAPI, teamID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/virtual-events", nil)
	if teamID != "" {
		req.Header.Set(TeamIDHeader, teamID)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func TestVirtualEvents_ListsTenantViews(t *testing.T) {
	api := newTestAPI(t, nil)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, api.store.Create(ctx, &control.VirtualEvent{
		TeamID: "team_1", ViewID: "account_created",
		ReadableName: "Account Created", Description: "An account was created.",
		CreatedAt: base,
	}))
	require.NoError(t, api.store.Create(ctx, &control.VirtualEvent{
		TeamID: "team_1", ViewID: "click", ReadableName: "Click",
		CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, api.store.Create(ctx, &control.VirtualEvent{
		TeamID: "team_2", ViewID: "page_view",
	}))

	rec := listVirtualEvents(api, "team_1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VirtualEventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "team_1", resp.TeamID)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "account_created", resp.Events[0].ViewID)
	assert.Equal(t, "Account Created", resp.Events[0].ReadableName)
	assert.Equal(t, "An account was created.", resp.Events[0].Description)
	assert.Equal(t, "click", resp.Events[1].ViewID)
}

func TestVirtualEvents_EmptyTenant(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := listVirtualEvents(api, "team_absent")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VirtualEventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Events)
}

func TestVirtualEvents_MissingTeamHeader(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := listVirtualEvents(api, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVirtualEvents_MethodNotAllowed(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/virtual-events", nil)
	req.Header.Set(TeamIDHeader, "team_1")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
