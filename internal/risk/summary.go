package risk

import (
	"fmt"
	"math"
	"strconv"

	"github.com/i474232898/route-risk/internal/route"
)

// Materiality thresholds for weather callouts.
const (
	PrecipitationThresholdMm = 0.0
	WindThresholdKmh         = 30.0
	FreezingThresholdC       = 0.0
)

// CalloutKind names the weather figure a callout highlights.
type CalloutKind string

const (
	CalloutPrecipitation CalloutKind = "precipitation"
	CalloutWind          CalloutKind = "wind"
	CalloutTemperature   CalloutKind = "temperature"
)

// Callout is a weather figure worth drawing attention to.
type Callout struct {
	Kind  CalloutKind `json:"kind"`
	Value float64     `json:"value"`
	Text  string      `json:"text"`
}

// SegmentSummary holds the display fields derived from one segment.
type SegmentSummary struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	DistanceKm  float64         `json:"distance_km"`
	Distance    string          `json:"distance"`
	ETA         string          `json:"eta"`
	Description string          `json:"description"`
	Icon        Icon            `json:"icon"`
	Glyph       string          `json:"glyph"`
	Level       route.RiskLevel `json:"level"`
	Label       string          `json:"label"`
	Color       string          `json:"color"`
	Score       float64         `json:"score"`
	Callouts    []Callout       `json:"callouts,omitempty"`
}

// ETALayout is the clock format used for segment arrival times.
const ETALayout = "15:04"

// FormatSegmentSummary derives the human-readable fields of a segment.
// Callouts are included only when a figure crosses its materiality threshold.
func FormatSegmentSummary(s route.Segment) SegmentSummary {
	km := math.Round(s.DistanceMeters/100) / 10
	icon := IconFor(s.Weather.WeatherCode)

	desc := s.Weather.Description
	if desc == "" {
		desc = Describe(s.Weather.WeatherCode)
	}

	var eta string
	if !s.ETA.IsZero() {
		eta = s.ETA.Format(ETALayout)
	}

	return SegmentSummary{
		ID:          s.ID,
		Title:       fmt.Sprintf("Segment %d", s.ID+1),
		DistanceKm:  km,
		Distance:    strconv.FormatFloat(km, 'f', 1, 64) + " km",
		ETA:         eta,
		Description: desc,
		Icon:        icon,
		Glyph:       icon.Glyph(),
		Level:       s.Risk.Level,
		Label:       Label(s.Risk.Level),
		Color:       ColorFor(s.Risk.Level),
		Score:       s.Risk.SeverityScore,
		Callouts:    callouts(s.Weather),
	}
}

func callouts(w route.WeatherSnapshot) []Callout {
	var out []Callout
	if w.PrecipitationMm > PrecipitationThresholdMm {
		out = append(out, Callout{
			Kind:  CalloutPrecipitation,
			Value: w.PrecipitationMm,
			Text:  formatNumber(w.PrecipitationMm) + "mm rain",
		})
	}
	if w.WindspeedKmh > WindThresholdKmh {
		out = append(out, Callout{
			Kind:  CalloutWind,
			Value: w.WindspeedKmh,
			Text:  formatNumber(w.WindspeedKmh) + " km/h wind",
		})
	}
	if w.TemperatureC < FreezingThresholdC {
		out = append(out, Callout{
			Kind:  CalloutTemperature,
			Value: w.TemperatureC,
			Text:  formatNumber(w.TemperatureC) + " °C",
		})
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
