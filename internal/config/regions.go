package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// SchemaVersion is the only version of the region and curated hub files
// this build understands
const SchemaVersion = 1

// regionsFile is the on-disk layout of regions.yaml
type regionsFile struct {
	SchemaVersion int          `yaml:"schema_version" validate:"eq=1"`
	Regions       []regionSpec `yaml:"regions" validate:"required,min=1,dive"`
}

type regionSpec struct {
	ID      string   `yaml:"id" validate:"required"`
	Name    string   `yaml:"name"`
	Cells   []string `yaml:"cells" validate:"required_without=Polygon,dive,required"`
	Polygon string   `yaml:"polygon" validate:"required_without=Cells"` // GeoJSON Polygon geometry
}

// Region is a named area hubs are selected in, given either as a set of
// cells or as a polygon
type Region struct {
	ID      string
	Name    string
	Cells   []models.CellID
	Polygon orb.Polygon
}

// curatedFile is the on-disk layout of the curated hub list
type curatedFile struct {
	SchemaVersion int          `yaml:"schema_version" validate:"eq=1"`
	Hubs          []CuratedHub `yaml:"hubs" validate:"dive"`
}

// CuratedHub is a stop an operator wants forced in as a hub. Lat and Lng
// locate a replacement when the stop id is no longer in the network.
type CuratedHub struct {
	Region string  `yaml:"region" validate:"required"`
	StopID string  `yaml:"stop_id" validate:"required"`
	Name   string  `yaml:"name"`
	Lat    float64 `yaml:"lat" validate:"latitude"`
	Lng    float64 `yaml:"lng" validate:"longitude"`
}

var validate = validator.New()

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// LoadRegions reads and validates a regions file
func LoadRegions(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file: %w", err)
	}
	return ParseRegions(data)
}

// ParseRegions decodes and validates regions YAML
func ParseRegions(data []byte) ([]Region, error) {
	var f regionsFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse regions: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid regions: %w", err)
	}

	seen := make(map[string]bool)
	regions := make([]Region, 0, len(f.Regions))
	for _, spec := range f.Regions {
		if seen[spec.ID] {
			return nil, fmt.Errorf("duplicate region id %q", spec.ID)
		}
		seen[spec.ID] = true

		r := Region{ID: spec.ID, Name: spec.Name}
		for _, c := range spec.Cells {
			r.Cells = append(r.Cells, models.CellID(c))
		}
		if spec.Polygon != "" {
			poly, err := parsePolygon(spec.Polygon)
			if err != nil {
				return nil, fmt.Errorf("region %s: %w", spec.ID, err)
			}
			r.Polygon = poly
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func parsePolygon(raw string) (orb.Polygon, error) {
	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid polygon geojson: %w", err)
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("polygon must be a GeoJSON Polygon, got %s", g.Geometry().GeoJSONType())
	}
	if len(poly) == 0 || len(poly[0]) < 4 {
		return nil, errors.New("polygon ring needs at least 4 positions")
	}
	return poly, nil
}

// LoadCurated reads and validates a curated hub file
func LoadCurated(path string) ([]CuratedHub, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curated hubs: %w", err)
	}
	return ParseCurated(data)
}

// ParseCurated decodes and validates curated hub YAML
func ParseCurated(data []byte) ([]CuratedHub, error) {
	var f curatedFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse curated hubs: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid curated hubs: %w", err)
	}
	return f.Hubs, nil
}
