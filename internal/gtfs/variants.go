package gtfs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

type variant struct {
	routeID   string
	direction int
	stops     []string
	trips     int
	firstTrip string
}

// Network converts the feed into boardable stops and route variants. A
// variant is one GTFS route and direction with a distinct stop sequence;
// its trip count is the number of trips running that exact sequence.
func (f *Feed) Network() ([]models.Stop, []models.Route) {
	var stops []models.Stop
	known := make(map[string]struct{}, len(f.Stops))
	for _, s := range f.Stops {
		if s.LocationType != 0 {
			continue
		}
		stop := models.Stop{ID: models.StopID(s.StopID), Name: s.StopName, Lat: s.StopLat, Lng: s.StopLon}
		if err := stop.Validate(); err != nil {
			continue
		}
		stops = append(stops, stop)
		known[s.StopID] = struct{}{}
	}

	byTrip := make(map[string][]StopTime)
	for _, st := range f.StopTimes {
		byTrip[st.TripID] = append(byTrip[st.TripID], st)
	}

	names := make(map[string]string, len(f.Routes))
	for _, r := range f.Routes {
		names[r.RouteID] = routeName(r)
	}

	variants := make(map[string]*variant)
	for _, trip := range f.Trips {
		times := byTrip[trip.TripID]
		sort.SliceStable(times, func(i, j int) bool { return times[i].StopSequence < times[j].StopSequence })

		var seq []string
		for _, st := range times {
			if _, ok := known[st.StopID]; !ok {
				continue
			}
			if len(seq) > 0 && seq[len(seq)-1] == st.StopID {
				continue
			}
			seq = append(seq, st.StopID)
		}
		if len(seq) < 2 {
			continue
		}

		key := fmt.Sprintf("%s|%d|%s", trip.RouteID, trip.DirectionID, strings.Join(seq, ","))
		v, ok := variants[key]
		if !ok {
			v = &variant{routeID: trip.RouteID, direction: trip.DirectionID, stops: seq, firstTrip: trip.TripID}
			variants[key] = v
		}
		v.trips++
	}

	ordered := make([]*variant, 0, len(variants))
	for _, v := range variants {
		ordered = append(ordered, v)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.routeID != b.routeID {
			return a.routeID < b.routeID
		}
		if a.direction != b.direction {
			return a.direction < b.direction
		}
		if a.trips != b.trips {
			return a.trips > b.trips
		}
		return a.firstTrip < b.firstTrip
	})

	routes := make([]models.Route, 0, len(ordered))
	counter := make(map[string]int)
	for _, v := range ordered {
		prefix := fmt.Sprintf("%s_%d", v.routeID, v.direction)
		counter[prefix]++

		r := models.Route{
			ID:        models.RouteID(fmt.Sprintf("%s_%d", prefix, counter[prefix])),
			Name:      names[v.routeID],
			TripCount: v.trips,
		}
		for _, id := range v.stops {
			r.StopIDs = append(r.StopIDs, models.StopID(id))
		}
		routes = append(routes, r)
	}
	return stops, routes
}

func routeName(r Route) string {
	switch {
	case r.RouteShortName != "" && r.RouteLongName != "":
		return r.RouteShortName + " " + r.RouteLongName
	case r.RouteShortName != "":
		return r.RouteShortName
	default:
		return r.RouteLongName
	}
}
