package transfers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ParseBBox parses "minLat,minLng,maxLat,maxLng"
func ParseBBox(s string) (*orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox needs 4 comma separated numbers, got %q", s)
	}
	v := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return nil, fmt.Errorf("bbox min corner must be south-west of max corner: %q", s)
	}
	return &orb.Bound{Min: orb.Point{v[1], v[0]}, Max: orb.Point{v[3], v[2]}}, nil
}

// ParsePhases parses a phase list such as "1,2,3,4"
func ParsePhases(s string) ([]int, error) {
	var phases []int
	seen := make(map[int]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < PhaseLocal || n > PhaseShortcut {
			return nil, fmt.Errorf("unknown phase %q", p)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		phases = append(phases, n)
	}
	if len(phases) == 0 {
		return nil, fmt.Errorf("no phases selected")
	}
	return phases, nil
}
