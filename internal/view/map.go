// Package view adapts a planned route into the map, timeline and alerts
// surfaces. Every color, icon and alert decision goes through a risk.Classifier.
package view

import (
	"math"
	"strings"

	geojson "github.com/paulmach/go.geojson"

	"github.com/i474232898/route-risk/internal/risk"
	"github.com/i474232898/route-risk/internal/route"
)

// Feature kinds set in the "kind" property.
const (
	KindRoute       = "route"
	KindStart       = "start"
	KindDestination = "destination"
	KindSegment     = "segment"
)

// LegendEntry is one row of the map legend.
type LegendEntry struct {
	Level route.RiskLevel `json:"level"`
	Label string          `json:"label"`
	Color string          `json:"color"`
}

// Legend lists the tiers from least to most severe.
func Legend(c risk.Classifier) []LegendEntry {
	levels := risk.Levels()
	out := make([]LegendEntry, 0, len(levels))
	for _, l := range levels {
		out = append(out, LegendEntry{Level: l, Label: titleCase(string(l)), Color: c.ColorFor(l)})
	}
	return out
}

// Map renders the route as a GeoJSON FeatureCollection: the full line, start and
// destination markers, and one colored line per segment. A nil route yields an
// empty collection.
func Map(planned *route.PlannedRoute, c risk.Classifier) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if planned == nil {
		return fc
	}

	if len(planned.Coordinates) >= 2 {
		line := geojson.NewLineStringFeature(positions(planned.Coordinates))
		line.SetProperty("kind", KindRoute)
		fc.AddFeature(line)
	}

	if n := len(planned.Coordinates); n > 0 {
		start := geojson.NewPointFeature(position(planned.Coordinates[0]))
		start.SetProperty("kind", KindStart)
		start.SetProperty("title", "Start")
		if !planned.DepartureTime.IsZero() {
			start.SetProperty("departure_time", planned.DepartureTime)
		}
		fc.AddFeature(start)

		dest := geojson.NewPointFeature(position(planned.Coordinates[n-1]))
		dest.SetProperty("kind", KindDestination)
		dest.SetProperty("title", "Destination")
		dest.SetProperty("distance_km", math.Round(planned.TotalDistanceMeters/100)/10)
		dest.SetProperty("duration_min", math.Round(planned.TotalDurationSeconds/60))
		fc.AddFeature(dest)
	}

	for _, seg := range planned.Segments {
		if len(seg.Coordinates) < 2 {
			continue
		}
		s := risk.FormatSegmentSummary(seg)
		f := geojson.NewLineStringFeature(positions(seg.Coordinates))
		f.SetProperty("kind", KindSegment)
		f.SetProperty("id", seg.ID)
		f.SetProperty("title", s.Title)
		f.SetProperty("eta", s.ETA)
		f.SetProperty("distance", s.Distance)
		f.SetProperty("risk_level", seg.Risk.Level)
		f.SetProperty("label", s.Label)
		f.SetProperty("color", c.ColorFor(seg.Risk.Level))
		f.SetProperty("icon", c.IconFor(seg.Weather.WeatherCode))
		f.SetProperty("description", s.Description)
		f.SetProperty("temperature_c", seg.Weather.TemperatureC)
		f.SetProperty("precipitation_mm", seg.Weather.PrecipitationMm)
		f.SetProperty("windspeed_kmh", seg.Weather.WindspeedKmh)
		fc.AddFeature(f)
	}
	return fc
}

func position(c route.Coordinate) []float64 {
	return []float64{c.Longitude, c.Latitude}
}

func positions(coords []route.Coordinate) [][]float64 {
	out := make([][]float64, 0, len(coords))
	for _, c := range coords {
		out = append(out, position(c))
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
