// Package handlers exposes the journey planner over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/planner"
)

// Planner defines the planner operations served over HTTP
type Planner interface {
	BuildWhitelist(ctx context.Context, originLat, originLng, destLat, destLng float64, widen bool) (planner.Whitelist, error)
	Search(ctx context.Context, origin, dest models.StopID, limit int) ([]planner.Path, error)
	ExpandPath(ctx context.Context, path planner.Path, origin, dest models.StopID) ([]planner.DetailedLeg, error)
	Plan(ctx context.Context, origin, dest models.StopID, limit int, widen bool) (*planner.Plan, error)
	Invalidate()
}

// PlanHandler handles HTTP requests for journey planning
type PlanHandler struct {
	planner      Planner
	defaultLimit int
}

// NewPlanHandler creates a new handler. defaultLimit applies when a query
// has no limit parameter.
func NewPlanHandler(p Planner, defaultLimit int) *PlanHandler {
	if defaultLimit <= 0 {
		defaultLimit = planner.DefaultLimit
	}
	return &PlanHandler{planner: p, defaultLimit: defaultLimit}
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SearchResponse is the JSON response structure for GET /api/plan/search
type SearchResponse struct {
	Origin      models.StopID  `json:"origin"`
	Destination models.StopID  `json:"destination"`
	Paths       []planner.Path `json:"paths"`
	Count       int            `json:"count"`
}

// ExpandRequest is the JSON body for POST /api/plan/expand
type ExpandRequest struct {
	Origin      models.StopID `json:"origin"`
	Destination models.StopID `json:"destination"`
	Path        planner.Path  `json:"path"`
}

// ExpandResponse is the JSON response structure for POST /api/plan/expand
type ExpandResponse struct {
	Legs  []planner.DetailedLeg `json:"legs"`
	Count int                   `json:"count"`
}

// GetWhitelist handles GET /api/plan/whitelist
// Query: origin_lat, origin_lng, dest_lat, dest_lng, widen
func (h *PlanHandler) GetWhitelist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	coords := make([]float64, 4)
	for i, name := range []string{"origin_lat", "origin_lng", "dest_lat", "dest_lng"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, name+" must be a number", nil)
			return
		}
		coords[i] = v
	}

	wl, err := h.planner.BuildWhitelist(r.Context(), coords[0], coords[1], coords[2], coords[3], q.Get("widen") == "true")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build corridor", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

// GetSearch handles GET /api/plan/search
// Query: origin, dest, limit
func (h *PlanHandler) GetSearch(w http.ResponseWriter, r *http.Request) {
	origin, dest, limit, ok := h.stopQuery(w, r)
	if !ok {
		return
	}

	paths, err := h.planner.Search(r.Context(), origin, dest, limit)
	if err != nil {
		writePlannerError(w, err, "Failed to search paths")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Origin:      origin,
		Destination: dest,
		Paths:       paths,
		Count:       len(paths),
	})
}

// PostExpand handles POST /api/plan/expand
func (h *PlanHandler) PostExpand(w http.ResponseWriter, r *http.Request) {
	var req ExpandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	if req.Origin == "" || req.Destination == "" {
		writeError(w, http.StatusBadRequest, "origin and destination are required", nil)
		return
	}

	legs, err := h.planner.ExpandPath(r.Context(), req.Path, req.Origin, req.Destination)
	if err != nil {
		writePlannerError(w, err, "Failed to expand path")
		return
	}
	writeJSON(w, http.StatusOK, ExpandResponse{Legs: legs, Count: len(legs)})
}

// GetPlan handles GET /api/plan
// Query: origin, dest, limit, widen
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	origin, dest, limit, ok := h.stopQuery(w, r)
	if !ok {
		return
	}

	plan, err := h.planner.Plan(r.Context(), origin, dest, limit, r.URL.Query().Get("widen") == "true")
	if err != nil {
		writePlannerError(w, err, "Failed to plan journey")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PostInvalidate handles POST /api/plan/invalidate
// Called by offline rebuild jobs so the next query reloads the index
func (h *PlanHandler) PostInvalidate(w http.ResponseWriter, r *http.Request) {
	h.planner.Invalidate()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "invalidated",
		"timestamp": time.Now().UTC(),
	})
}

func (h *PlanHandler) stopQuery(w http.ResponseWriter, r *http.Request) (models.StopID, models.StopID, int, bool) {
	q := r.URL.Query()
	origin := models.StopID(q.Get("origin"))
	dest := models.StopID(q.Get("dest"))
	if origin == "" || dest == "" {
		writeError(w, http.StatusBadRequest, "origin and dest parameters are required", nil)
		return "", "", 0, false
	}

	limit := h.defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 50 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50", nil)
			return "", "", 0, false
		}
		limit = n
	}
	return origin, dest, limit, true
}

func writePlannerError(w http.ResponseWriter, err error, msg string) {
	var unmapped *planner.UnmappedStopError
	if errors.As(err, &unmapped) {
		writeError(w, http.StatusNotFound, unmapped.Error(), map[string]interface{}{
			"stopId": unmapped.StopID,
			"role":   unmapped.Role,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, msg, map[string]interface{}{
		"internal": err.Error(),
	})
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
