package transfers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/paulmach/orb"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/geo"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/metrics"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// Build phases
const (
	PhaseLocal     = 1 // stop to nearby stops
	PhaseHubAccess = 2 // non-hub stop to and from nearby hubs
	PhaseBackbone  = 3 // hub to hub
	PhaseShortcut  = 4 // spoke to spoke across a hub edge
)

// Limit caps the candidates considered per origin stop
type Limit struct {
	Count   int
	RadiusM float64
}

// Options controls a transfer build run
type Options struct {
	CapSeconds int   // walks longer than this are discarded
	Phases     []int // phases to run, in order
	Continue   bool  // keep existing edges and skip their pairs
	Pace       time.Duration
	BBox       *orb.Bound // only stops inside act as origins when set

	Local    Limit
	Access   Limit
	Backbone Limit
	Shortcut Limit

	BreakerWindow    int
	BreakerThreshold int
}

// DefaultOptions returns the production limits
func DefaultOptions() Options {
	return Options{
		CapSeconds:       900,
		Phases:           []int{PhaseLocal, PhaseHubAccess, PhaseBackbone, PhaseShortcut},
		Local:            Limit{Count: 10, RadiusM: 500},
		Access:           Limit{Count: 3, RadiusM: 1500},
		Backbone:         Limit{Count: 15, RadiusM: 3500},
		Shortcut:         Limit{Count: 10, RadiusM: 2000},
		BreakerWindow:    10,
		BreakerThreshold: 3,
	}
}

// Store persists edges. Each insert commits on its own.
type Store interface {
	TransferEdgeKeys(ctx context.Context) (map[models.EdgeKey]struct{}, error)
	InsertTransferEdge(ctx context.Context, e models.TransferEdge) (bool, error)
	ClearTransferEdges(ctx context.Context) (int64, error)
}

// PhaseStats summarizes one phase
type PhaseStats struct {
	Phase         int
	Candidates    int
	Skipped       int // pair already had an edge
	Created       int
	TooLong       int
	LowConfidence int
	Timeouts      int
	Failures      int
	WalkSeconds   metrics.WelfordState
}

// Builder runs the transfer phases over one network
type Builder struct {
	store   Store
	router  FootRouter
	breaker *Breaker
	reg     *metrics.Registry
	opts    Options

	index *geo.StopIndex
	stops []models.Stop
	hubs  map[models.StopID]struct{}

	existing map[models.EdgeKey]struct{}
	lastCall time.Time
}

// NewBuilder creates a builder. A nil registry uses the default one.
func NewBuilder(store Store, router FootRouter, stops []models.Stop, hubs map[models.StopID]struct{}, opts Options, reg *metrics.Registry) *Builder {
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	valid := make([]models.Stop, 0, len(stops))
	for _, s := range stops {
		if s.Validate() == nil {
			valid = append(valid, s)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })

	return &Builder{
		store:    store,
		router:   router,
		breaker:  NewBreaker(opts.BreakerWindow, opts.BreakerThreshold),
		reg:      reg,
		opts:     opts,
		index:    geo.NewStopIndex(valid),
		stops:    valid,
		hubs:     hubs,
		existing: make(map[models.EdgeKey]struct{}),
	}
}

// Run executes the selected phases. It stops at the first *FatalError or
// context cancellation; edges written before that stay committed.
func (b *Builder) Run(ctx context.Context) ([]PhaseStats, error) {
	if b.rebuildsFromScratch() {
		n, err := b.store.ClearTransferEdges(ctx)
		if err != nil {
			return nil, err
		}
		log.Printf("Transfers: cleared %d existing edges", n)
	} else {
		keys, err := b.store.TransferEdgeKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing edges: %w", err)
		}
		b.existing = keys
		log.Printf("Transfers: continuing with %d existing edges", len(keys))
	}

	var all []PhaseStats
	for _, phase := range b.opts.Phases {
		stats := &PhaseStats{Phase: phase}
		start := time.Now()

		var err error
		switch phase {
		case PhaseLocal:
			err = b.runLocal(ctx, stats)
		case PhaseHubAccess:
			err = b.runHubAccess(ctx, stats)
		case PhaseBackbone:
			err = b.runBackbone(ctx, stats)
		case PhaseShortcut:
			err = b.runShortcuts(ctx, stats)
		default:
			err = fmt.Errorf("unknown phase %d", phase)
		}
		all = append(all, *stats)

		log.Printf("Transfers: phase %d: %d candidates, %d created, %d existing, %d too long, %d low confidence, %d timeouts, %d failures in %s (walk s %s)",
			phase, stats.Candidates, stats.Created, stats.Skipped, stats.TooLong,
			stats.LowConfidence, stats.Timeouts, stats.Failures,
			time.Since(start).Round(time.Millisecond), stats.WalkSeconds.String())
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// rebuildsFromScratch reports whether the table is cleared before running.
// Only a run that starts with the local phase rebuilds; later phases build
// on the edges already stored.
func (b *Builder) rebuildsFromScratch() bool {
	return !b.opts.Continue && len(b.opts.Phases) > 0 && b.opts.Phases[0] == PhaseLocal
}

func (b *Builder) inBBox(s models.Stop) bool {
	return b.opts.BBox == nil || geo.InBound(*b.opts.BBox, s.Lat, s.Lng)
}

func (b *Builder) isHub(id models.StopID) bool {
	_, ok := b.hubs[id]
	return ok
}

func (b *Builder) runLocal(ctx context.Context, stats *PhaseStats) error {
	for _, from := range b.stops {
		if !b.inBBox(from) {
			continue
		}
		for _, n := range b.index.Nearest(from.Point(), b.opts.Local.RadiusM, b.opts.Local.Count, from.ID) {
			if err := b.tryEdge(ctx, stats, from, n.Stop); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) nearestHubs(from models.Stop, lim Limit) []geo.Neighbor {
	var out []geo.Neighbor
	for _, n := range b.index.Within(from.Point(), lim.RadiusM) {
		if n.Stop.ID == from.ID || !b.isHub(n.Stop.ID) {
			continue
		}
		out = append(out, n)
		if len(out) == lim.Count {
			break
		}
	}
	return out
}

func (b *Builder) runHubAccess(ctx context.Context, stats *PhaseStats) error {
	for _, from := range b.stops {
		if b.isHub(from.ID) || !b.inBBox(from) {
			continue
		}
		for _, n := range b.nearestHubs(from, b.opts.Access) {
			if err := b.tryEdge(ctx, stats, from, n.Stop); err != nil {
				return err
			}
			if err := b.tryEdge(ctx, stats, n.Stop, from); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) runBackbone(ctx context.Context, stats *PhaseStats) error {
	for _, from := range b.stops {
		if !b.isHub(from.ID) || !b.inBBox(from) {
			continue
		}
		for _, n := range b.nearestHubs(from, b.opts.Backbone) {
			if err := b.tryEdge(ctx, stats, from, n.Stop); err != nil {
				return err
			}
		}
	}
	return nil
}

// spokes maps each hub to the non-hub stops it has an access edge with
func (b *Builder) spokes() map[models.StopID][]models.StopID {
	out := make(map[models.StopID][]models.StopID)
	seen := make(map[models.EdgeKey]bool)
	add := func(hub, spoke models.StopID) {
		k := models.EdgeKey{From: hub, To: spoke}
		if !seen[k] {
			seen[k] = true
			out[hub] = append(out[hub], spoke)
		}
	}
	for k := range b.existing {
		fromHub, toHub := b.isHub(k.From), b.isHub(k.To)
		switch {
		case fromHub && !toHub:
			add(k.From, k.To)
		case toHub && !fromHub:
			add(k.To, k.From)
		}
	}
	for hub := range out {
		list := out[hub]
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	}
	return out
}

func (b *Builder) runShortcuts(ctx context.Context, stats *PhaseStats) error {
	var hubEdges []models.EdgeKey
	for k := range b.existing {
		if b.isHub(k.From) && b.isHub(k.To) {
			hubEdges = append(hubEdges, k)
		}
	}
	sort.Slice(hubEdges, func(i, j int) bool {
		if hubEdges[i].From != hubEdges[j].From {
			return hubEdges[i].From < hubEdges[j].From
		}
		return hubEdges[i].To < hubEdges[j].To
	})
	spokes := b.spokes()

	for _, he := range hubEdges {
		for _, sa := range spokes[he.From] {
			from, ok := b.index.Get(sa)
			if !ok || !b.inBBox(from) {
				continue
			}
			var targets []geo.Neighbor
			for _, sb := range spokes[he.To] {
				to, ok := b.index.Get(sb)
				if !ok || to.ID == from.ID {
					continue
				}
				d := geo.Distance(from.Point(), to.Point())
				if d <= b.opts.Shortcut.RadiusM {
					targets = append(targets, geo.Neighbor{Stop: to, DistanceM: d})
				}
			}
			sort.Slice(targets, func(i, j int) bool {
				if targets[i].DistanceM != targets[j].DistanceM {
					return targets[i].DistanceM < targets[j].DistanceM
				}
				return targets[i].Stop.ID < targets[j].Stop.ID
			})
			if len(targets) > b.opts.Shortcut.Count {
				targets = targets[:b.opts.Shortcut.Count]
			}
			for _, t := range targets {
				if err := b.tryEdge(ctx, stats, from, t.Stop); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *Builder) pace(ctx context.Context) error {
	if b.opts.Pace <= 0 {
		return nil
	}
	wait := b.opts.Pace - time.Since(b.lastCall)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// tryEdge validates one ordered pair with the foot router and stores it.
// Only a tripped breaker, a cancelled context or a store error is returned.
func (b *Builder) tryEdge(ctx context.Context, stats *PhaseStats, from, to models.Stop) error {
	if from.ID == to.ID {
		return nil
	}
	stats.Candidates++
	key := models.EdgeKey{From: from.ID, To: to.ID}
	if _, ok := b.existing[key]; ok {
		stats.Skipped++
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.pace(ctx); err != nil {
		return err
	}

	start := time.Now()
	res, err := b.router.Walk(ctx, from.Point(), to.Point())
	b.lastCall = time.Now()
	elapsed := b.lastCall.Sub(start)

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if fatal := b.breaker.Record(err); fatal != nil {
		stats.Failures++
		b.reg.RecordWalk(metrics.WalkFailure, elapsed)
		b.reg.BreakerFailures.Set(float64(b.breaker.Failures()))
		return fatal
	}
	b.reg.BreakerFailures.Set(float64(b.breaker.Failures()))

	switch {
	case errors.Is(err, ErrTimeout):
		stats.Timeouts++
		b.reg.RecordWalk(metrics.WalkTimeout, elapsed)
		return nil
	case errors.Is(err, ErrLowConfidence):
		stats.LowConfidence++
		b.reg.RecordWalk(metrics.WalkLowConfidence, elapsed)
		return nil
	case err != nil:
		stats.Failures++
		b.reg.RecordWalk(metrics.WalkFailure, elapsed)
		log.Printf("Transfers: walk %s -> %s failed: %v", from.ID, to.ID, err)
		return nil
	}

	if res.Seconds > float64(b.opts.CapSeconds) {
		stats.TooLong++
		b.reg.RecordWalk(metrics.WalkTooLong, elapsed)
		return nil
	}
	b.reg.RecordWalk(metrics.WalkAccepted, elapsed)

	edge := models.TransferEdge{
		From:        from.ID,
		To:          to.ID,
		WalkSeconds: int(res.Seconds + 0.5),
		Geometry:    res.Geometry,
		Phase:       stats.Phase,
	}
	inserted, err := b.store.InsertTransferEdge(ctx, edge)
	if err != nil {
		return err
	}
	b.existing[key] = struct{}{}
	if inserted {
		stats.Created++
		stats.WalkSeconds.Update(res.Seconds)
		b.reg.RecordTransferEdge(stats.Phase)
	} else {
		stats.Skipped++
	}
	return nil
}
