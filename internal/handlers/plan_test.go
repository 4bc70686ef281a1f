package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/metrics"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/planner"
)

type fakePlanner struct {
	lastLimit   int
	lastWiden   bool
	invalidated int
	err         error
}

var oneLeg = planner.Path{Legs: []planner.Leg{{RouteID: "SR1", FromStation: "S1", ToStation: "S2"}}}

func (f *fakePlanner) BuildWhitelist(ctx context.Context, oLat, oLng, dLat, dLng float64, widen bool) (planner.Whitelist, error) {
	f.lastWiden = widen
	return planner.Whitelist{
		Level:           models.L1,
		Path:            []models.CellID{"c1", "c2"},
		CorridorCells:   []models.CellID{"c1", "c2"},
		AllowedStations: []models.StationID{"S1", "S2"},
		AllowedStops:    []models.StopID{"STOP1", "STOP2"},
	}, f.err
}

func (f *fakePlanner) Search(ctx context.Context, origin, dest models.StopID, limit int) ([]planner.Path, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []planner.Path{oneLeg}, nil
}

func (f *fakePlanner) ExpandPath(ctx context.Context, path planner.Path, origin, dest models.StopID) ([]planner.DetailedLeg, error) {
	if len(path.Legs) == 0 {
		return []planner.DetailedLeg{}, nil
	}
	return []planner.DetailedLeg{{
		RouteID: "SR1", FromStation: "S1", ToStation: "S2",
		FromStop: origin, ToStop: dest, WalkValid: true,
	}}, nil
}

func (f *fakePlanner) Plan(ctx context.Context, origin, dest models.StopID, limit int, widen bool) (*planner.Plan, error) {
	f.lastLimit, f.lastWiden = limit, widen
	if f.err != nil {
		return nil, f.err
	}
	return &planner.Plan{Origin: origin, Destination: dest, Itineraries: []planner.Itinerary{{Path: oneLeg, Valid: true}}}, nil
}

func (f *fakePlanner) Invalidate() { f.invalidated++ }

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func newTestServer(p *fakePlanner, ping error) (http.Handler, *metrics.Registry) {
	reg := metrics.NewRegistry()
	return NewRouter(NewPlanHandler(p, 5), fakePinger{err: ping}, reg, []string{"http://localhost:5173"}), reg
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetSearch(t *testing.T) {
	p := &fakePlanner{}
	h, _ := newTestServer(p, nil)

	rec := do(t, h, http.MethodGet, "/api/plan/search?origin=STOP1&dest=STOP2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, models.RouteID("SR1"), resp.Paths[0].Legs[0].RouteID)
	assert.Equal(t, 5, p.lastLimit)

	do(t, h, http.MethodGet, "/api/plan/search?origin=STOP1&dest=STOP2&limit=2", "")
	assert.Equal(t, 2, p.lastLimit)
}

func TestGetSearchValidation(t *testing.T) {
	h, _ := newTestServer(&fakePlanner{}, nil)

	for _, target := range []string{
		"/api/plan/search?origin=STOP1",
		"/api/plan/search?origin=STOP1&dest=STOP2&limit=0",
		"/api/plan/search?origin=STOP1&dest=STOP2&limit=abc",
	} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestUnmappedStopIsNotFound(t *testing.T) {
	p := &fakePlanner{err: &planner.UnmappedStopError{StopID: "ghost", Role: "origin"}}
	h, _ := newTestServer(p, nil)

	rec := do(t, h, http.MethodGet, "/api/plan/search?origin=ghost&dest=STOP2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ghost", resp.Details["stopId"])
	assert.Equal(t, "origin", resp.Details["role"])
}

func TestInternalErrorIs500(t *testing.T) {
	h, _ := newTestServer(&fakePlanner{err: errors.New("disk I/O error")}, nil)

	rec := do(t, h, http.MethodGet, "/api/plan?origin=a&dest=b", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk I/O error")
}

func TestGetWhitelist(t *testing.T) {
	p := &fakePlanner{}
	h, _ := newTestServer(p, nil)

	rec := do(t, h, http.MethodGet, "/api/plan/whitelist?origin_lat=-1.30&origin_lng=36.80&dest_lat=-1.30&dest_lng=36.81&widen=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, p.lastWiden)

	var wl planner.Whitelist
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wl))
	assert.Equal(t, []models.StopID{"STOP1", "STOP2"}, wl.AllowedStops)

	rec = do(t, h, http.MethodGet, "/api/plan/whitelist?origin_lat=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostExpand(t *testing.T) {
	h, _ := newTestServer(&fakePlanner{}, nil)

	body := `{"origin":"STOP1","destination":"STOP2","path":{"legs":[{"routeId":"SR1","fromStation":"S1","toStation":"S2"}]}}`
	rec := do(t, h, http.MethodPost, "/api/plan/expand", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExpandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Legs, 1)
	assert.Equal(t, models.StopID("STOP1"), resp.Legs[0].FromStop)
	assert.True(t, resp.Legs[0].WalkValid)

	rec = do(t, h, http.MethodPost, "/api/plan/expand", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/plan/expand", `{"origin":"STOP1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPlanAndInvalidate(t *testing.T) {
	p := &fakePlanner{}
	h, _ := newTestServer(p, nil)

	rec := do(t, h, http.MethodGet, "/api/plan?origin=STOP1&dest=STOP2&widen=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, p.lastWiden)
	assert.Contains(t, rec.Body.String(), `"itineraries"`)

	rec = do(t, h, http.MethodPost, "/api/plan/invalidate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, p.invalidated)
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(&fakePlanner{}, nil)
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected"`)

	h, _ = newTestServer(&fakePlanner{}, errors.New("database is locked"))
	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestsAreInstrumented(t *testing.T) {
	h, reg := newTestServer(&fakePlanner{}, nil)

	do(t, h, http.MethodGet, "/api/plan/search?origin=STOP1&dest=STOP2", "")
	do(t, h, http.MethodGet, "/api/plan/search?origin=STOP1", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.HTTPRequestsTotal.WithLabelValues("GET", "/api/plan/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.HTTPRequestsTotal.WithLabelValues("GET", "/api/plan/search", "400")))

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "matatu_http_requests_total")
}

func TestNotifyRebuild(t *testing.T) {
	p := &fakePlanner{}
	h, _ := newTestServer(p, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	require.NoError(t, NotifyRebuild(context.Background(), srv.URL+"/"))
	assert.Equal(t, 1, p.invalidated)

	err := NotifyRebuild(context.Background(), srv.URL+"/nowhere")
	assert.Error(t, err)
}
