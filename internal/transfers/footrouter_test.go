package transfers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSRMClientWalk(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":412.5,"duration":301.2,
			"geometry":{"type":"LineString","coordinates":[[36.8,-1.3],[36.801,-1.3],[36.802,-1.301]]}}]}`)
	}))
	defer srv.Close()

	c := NewOSRMClient(srv.URL+"/", time.Second)
	res, err := c.Walk(context.Background(), orb.Point{36.8, -1.3}, orb.Point{36.802, -1.301})
	require.NoError(t, err)

	assert.Equal(t, "/route/v1/foot/36.800000,-1.300000;36.802000,-1.301000", gotPath)
	assert.Contains(t, gotQuery, "geometries=geojson")
	assert.InDelta(t, 301.2, res.Seconds, 1e-9)
	assert.InDelta(t, 412.5, res.Meters, 1e-9)
	assert.Len(t, res.Geometry, 3)
}

func TestOSRMClientErrorClasses(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"code":"InvalidQuery"}`, http.StatusBadRequest)
		}, ErrLowConfidence},
		{"no route", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
		}, ErrLowConfidence},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := NewOSRMClient(srv.URL, 100*time.Millisecond)
			_, err := c.Walk(context.Background(), orb.Point{36.8, -1.3}, orb.Point{36.81, -1.3})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOSRMClientHardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOSRMClient(srv.URL, time.Second)
	_, err := c.Walk(context.Background(), orb.Point{36.8, -1.3}, orb.Point{36.81, -1.3})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrLowConfidence))

	// a hard failure counts toward the breaker
	b := NewBreaker(10, 1)
	assert.Error(t, b.Record(err))
}
