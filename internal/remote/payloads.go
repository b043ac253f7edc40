package remote

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/i474232898/route-risk/internal/risk"
	"github.com/i474232898/route-risk/internal/route"
)

// timestampLayouts are tried in order. Layouts without a zone are read in local time,
// which is how the service emits departure times and ETAs.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// timestamp accepts ISO-8601 values with or without a zone offset.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if layout == time.RFC3339Nano {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
			continue
		}
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// lonLat is a GeoJSON-ordered position.
type lonLat []float64

func (p lonLat) coordinate() (route.Coordinate, error) {
	if len(p) < 2 {
		return route.Coordinate{}, fmt.Errorf("position %v has fewer than two values", []float64(p))
	}
	return route.NewCoordinate(p[1], p[0])
}

func toCoordinates(points []lonLat) ([]route.Coordinate, error) {
	out := make([]route.Coordinate, 0, len(points))
	for _, p := range points {
		c, err := p.coordinate()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type searchPayload struct {
	Results []struct {
		DisplayName string  `json:"display_name"`
		Lat         float64 `json:"lat"`
		Lon         float64 `json:"lon"`
	} `json:"results"`
}

type weatherPayload struct {
	Temperature   *float64 `json:"temperature"`
	Precipitation float64  `json:"precipitation"`
	Windspeed     float64  `json:"windspeed"`
	WeatherCode   int      `json:"weathercode"`
	Description   string   `json:"description"`
}

func (w weatherPayload) snapshot() route.WeatherSnapshot {
	s := route.WeatherSnapshot{
		PrecipitationMm: w.Precipitation,
		WindspeedKmh:    w.Windspeed,
		WeatherCode:     w.WeatherCode,
		Description:     w.Description,
	}
	if w.Temperature != nil {
		s.TemperatureC = *w.Temperature
	}
	if s.Description == "" {
		s.Description = risk.Describe(w.WeatherCode)
	}
	return s
}

type planPayload struct {
	Route struct {
		TotalDistance float64   `json:"total_distance"`
		TotalDuration float64   `json:"total_duration"`
		DepartureTime timestamp `json:"departure_time"`
		Coordinates   []lonLat  `json:"coordinates"`
	} `json:"route"`
	Segments []struct {
		ID          int            `json:"id"`
		Coordinates []lonLat       `json:"coordinates"`
		Distance    float64        `json:"distance"`
		ETA         timestamp      `json:"eta"`
		Weather     weatherPayload `json:"weather"`
		Risk        struct {
			RiskLevel     string             `json:"risk_level"`
			SeverityScore float64            `json:"severity_score"`
			Factors       map[string]float64 `json:"factors"`
		} `json:"risk"`
	} `json:"segments"`
	OverallRisk float64 `json:"overall_risk"`
}

func (p planPayload) toRoute() (*route.PlannedRoute, error) {
	coords, err := toCoordinates(p.Route.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("route coordinates: %w", err)
	}

	segments := make([]route.Segment, 0, len(p.Segments))
	for _, s := range p.Segments {
		segCoords, err := toCoordinates(s.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("segment %d coordinates: %w", s.ID, err)
		}
		segments = append(segments, route.Segment{
			ID:             s.ID,
			Coordinates:    segCoords,
			DistanceMeters: s.Distance,
			ETA:            s.ETA.Time,
			Weather:        s.Weather.snapshot(),
			Risk: route.RiskAssessment{
				Level:         risk.ParseLevel(s.Risk.RiskLevel),
				SeverityScore: s.Risk.SeverityScore,
				Factors:       s.Risk.Factors,
			},
		})
	}
	slices.SortStableFunc(segments, func(a, b route.Segment) int { return cmp.Compare(a.ID, b.ID) })

	return &route.PlannedRoute{
		Coordinates:          coords,
		TotalDistanceMeters:  p.Route.TotalDistance,
		TotalDurationSeconds: p.Route.TotalDuration,
		DepartureTime:        p.Route.DepartureTime.Time,
		Segments:             segments,
		OverallRisk:          p.OverallRisk,
	}, nil
}

type departurePayload struct {
	DepartureTime timestamp `json:"departure_time"`
	AverageRisk   float64   `json:"average_risk"`
	RiskLevel     string    `json:"risk_level"`
}

func (d departurePayload) option() route.DepartureOption {
	opt := route.DepartureOption{
		DepartureTime: d.DepartureTime.Time,
		AverageRisk:   d.AverageRisk,
	}
	if d.RiskLevel != "" {
		opt.RiskLevel = risk.ParseLevel(d.RiskLevel)
	}
	return opt
}

type recommendPayload struct {
	RouteInfo struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"route_info"`
	BestDeparture      departurePayload   `json:"best_departure"`
	AllRecommendations []departurePayload `json:"all_recommendations"`
}

func (p recommendPayload) toRecommendation() *route.DepartureRecommendation {
	all := make([]route.DepartureOption, 0, len(p.AllRecommendations))
	for _, d := range p.AllRecommendations {
		all = append(all, d.option())
	}
	return &route.DepartureRecommendation{
		Best:                 p.BestDeparture.option(),
		All:                  all,
		RouteDistanceMeters:  p.RouteInfo.Distance,
		RouteDurationSeconds: p.RouteInfo.Duration,
	}
}

type forecastPayload struct {
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Forecasts []struct {
		Time          timestamp `json:"time"`
		Temperature   *float64  `json:"temperature"`
		Precipitation float64   `json:"precipitation"`
		Windspeed     float64   `json:"windspeed"`
		WeatherCode   int       `json:"weathercode"`
	} `json:"forecasts"`
}

func (p forecastPayload) toForecast() (*route.Forecast, error) {
	loc, err := route.NewCoordinate(p.Location.Latitude, p.Location.Longitude)
	if err != nil {
		return nil, fmt.Errorf("forecast location: %w", err)
	}

	hours := make([]route.ForecastHour, 0, len(p.Forecasts))
	for _, f := range p.Forecasts {
		w := weatherPayload{
			Temperature:   f.Temperature,
			Precipitation: f.Precipitation,
			Windspeed:     f.Windspeed,
			WeatherCode:   f.WeatherCode,
		}
		hours = append(hours, route.ForecastHour{Time: f.Time.Time, Weather: w.snapshot()})
	}
	slices.SortStableFunc(hours, func(a, b route.ForecastHour) int { return a.Time.Compare(b.Time) })

	return &route.Forecast{Location: loc, Hours: hours}, nil
}
