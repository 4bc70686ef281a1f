// Package transfers builds walking transfer edges between stops, validating
// every candidate pair against an external foot router.
package transfers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	// ErrTimeout means the router did not answer in time. It is recorded
	// but never counts toward the circuit breaker.
	ErrTimeout = errors.New("foot router timeout")
	// ErrLowConfidence means the router rejected the pair (HTTP 400 or no
	// route), usually because a stop is off the walkable network
	ErrLowConfidence = errors.New("foot router low confidence")
)

// WalkResult is a validated walk between two points
type WalkResult struct {
	Seconds  float64
	Meters   float64
	Geometry orb.LineString
}

// FootRouter returns walking time and path between two points
type FootRouter interface {
	Walk(ctx context.Context, from, to orb.Point) (WalkResult, error)
}

// OSRMClient is a FootRouter backed by an OSRM foot profile
type OSRMClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewOSRMClient creates a client for host (for example
// http://localhost:5000). Every call is bounded by timeout.
func NewOSRMClient(host string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{
		baseURL: strings.TrimRight(host, "/") + "/route/v1/foot",
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64         `json:"distance"`
	Duration float64         `json:"duration"`
	Geometry json.RawMessage `json:"geometry"`
}

// Walk asks OSRM for a foot route. Points are orb (lng, lat).
func (c *OSRMClient) Walk(ctx context.Context, from, to orb.Point) (WalkResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.baseURL, from.Lon(), from.Lat(), to.Lon(), to.Lat())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return WalkResult{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return WalkResult{}, ErrTimeout
		}
		return WalkResult{}, fmt.Errorf("foot router request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body)
		return WalkResult{}, ErrLowConfidence
	}
	if resp.StatusCode != http.StatusOK {
		return WalkResult{}, fmt.Errorf("foot router returned status: %s", resp.Status)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if isTimeout(err) {
			return WalkResult{}, ErrTimeout
		}
		return WalkResult{}, fmt.Errorf("failed to decode foot route: %w", err)
	}
	if body.Code == "NoRoute" || body.Code == "NoSegment" {
		return WalkResult{}, ErrLowConfidence
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return WalkResult{}, fmt.Errorf("foot router response error: %s", body.Code)
	}

	route := body.Routes[0]
	res := WalkResult{Seconds: route.Duration, Meters: route.Distance}
	if len(route.Geometry) > 0 {
		g, err := geojson.UnmarshalGeometry(route.Geometry)
		if err == nil {
			if ls, ok := g.Geometry().(orb.LineString); ok {
				res.Geometry = ls
			}
		}
	}
	return res, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
