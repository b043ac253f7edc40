package route

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Coordinate is a WGS 84 point. Values are immutable once created through NewCoordinate.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// NewCoordinate validates the ranges and returns the point.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lon}
	if err := validate.Struct(c); err != nil {
		return Coordinate{}, fmt.Errorf("invalid coordinate (%f, %f): %w", lat, lon, err)
	}
	return c, nil
}

// LocationQuery is the state of one location input field.
// Selected is cleared on every edit and only set by picking a suggestion.
type LocationQuery struct {
	Text     string      `json:"text"`
	Selected *Coordinate `json:"selected_coordinate,omitempty"`
}

// Resolved reports whether the field carries a chosen coordinate.
func (q LocationQuery) Resolved() bool {
	return q.Selected != nil
}

// Suggestion is one geocoder match.
type Suggestion struct {
	DisplayName string     `json:"display_name"`
	Coordinate  Coordinate `json:"coordinate"`
}

// WeatherSnapshot is the predicted weather at a point in time.
type WeatherSnapshot struct {
	TemperatureC    float64 `json:"temperature_c"`
	PrecipitationMm float64 `json:"precipitation_mm"`
	WindspeedKmh    float64 `json:"windspeed_kmh"`
	WeatherCode     int     `json:"weather_code"`
	Description     string  `json:"description"`
}

// RiskLevel is the tier the remote service assigns to a segment.
type RiskLevel string

const (
	RiskUnknown   RiskLevel = "unknown"
	RiskSafe      RiskLevel = "safe"
	RiskModerate  RiskLevel = "moderate"
	RiskRisky     RiskLevel = "risky"
	RiskDangerous RiskLevel = "dangerous"
)

// RiskAssessment is the service's verdict for a segment.
type RiskAssessment struct {
	Level         RiskLevel          `json:"level"`
	SeverityScore float64            `json:"severity_score"`
	Factors       map[string]float64 `json:"factors,omitempty"`
}

// Segment is one contiguous part of a planned route. Segments are ordered by ID.
type Segment struct {
	ID             int             `json:"id"`
	Coordinates    []Coordinate    `json:"coordinates"`
	DistanceMeters float64         `json:"distance_meters"`
	ETA            time.Time       `json:"eta"`
	Weather        WeatherSnapshot `json:"weather"`
	Risk           RiskAssessment  `json:"risk"`
}

// PlannedRoute is replaced wholesale by every successful plan and never mutated.
type PlannedRoute struct {
	Coordinates          []Coordinate `json:"coordinates"`
	TotalDistanceMeters  float64      `json:"total_distance_meters"`
	TotalDurationSeconds float64      `json:"total_duration_seconds"`
	DepartureTime        time.Time    `json:"departure_time"`
	Segments             []Segment    `json:"segments"`
	OverallRisk          float64      `json:"overall_risk"`
}

// DepartureOption is one candidate departure scored by the service.
type DepartureOption struct {
	DepartureTime time.Time `json:"departure_time"`
	AverageRisk   float64   `json:"average_risk"`
	RiskLevel     RiskLevel `json:"risk_level,omitempty"`
}

// DepartureRecommendation holds the best departure and every scored option, lowest risk first.
type DepartureRecommendation struct {
	Best                 DepartureOption   `json:"best_departure"`
	All                  []DepartureOption `json:"all_recommendations"`
	RouteDistanceMeters  float64           `json:"route_distance_meters,omitempty"`
	RouteDurationSeconds float64           `json:"route_duration_seconds,omitempty"`
}

// ForecastHour is one hourly point of a weather forecast.
type ForecastHour struct {
	Time    time.Time       `json:"time"`
	Weather WeatherSnapshot `json:"weather"`
}

// Forecast is the hourly outlook for a single location, ordered by Time ascending.
type Forecast struct {
	Location Coordinate     `json:"location"`
	Hours    []ForecastHour `json:"hours"`
}

// PlanRequest asks the service for a weather-aware route.
type PlanRequest struct {
	Start         Coordinate
	End           Coordinate
	DepartureTime *time.Time
}

// RecommendRequest asks the service for the least risky departure within a window.
type RecommendRequest struct {
	Start       Coordinate
	End         Coordinate
	WindowHours int
}

// MinQueryLength is the shortest location text, in characters, worth geocoding.
const MinQueryLength = 2

// DefaultWindowHours is the departure search window used when none is given.
const DefaultWindowHours = 12
