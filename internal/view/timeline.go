package view

import (
	"fmt"
	"strconv"

	"github.com/i474232898/route-risk/internal/risk"
	"github.com/i474232898/route-risk/internal/route"
)

// TimelineEntry is one segment card.
type TimelineEntry struct {
	risk.SegmentSummary
	TemperatureC    float64 `json:"temperature_c"`
	PrecipitationMm float64 `json:"precipitation_mm"`
	WindspeedKmh    float64 `json:"windspeed_kmh"`
	Badge           string  `json:"badge"`
}

// Timeline is the ordered list of segment cards plus the route aggregate.
type Timeline struct {
	Entries  []TimelineEntry `json:"entries"`
	Overview risk.Overview   `json:"overview"`
}

// BuildTimeline lists every segment in id order.
func BuildTimeline(planned *route.PlannedRoute, c risk.Classifier) Timeline {
	if planned == nil {
		return Timeline{Entries: []TimelineEntry{}, Overview: risk.Summarize(nil)}
	}

	entries := make([]TimelineEntry, 0, len(planned.Segments))
	for _, seg := range planned.Segments {
		s := risk.FormatSegmentSummary(seg)
		s.Color = c.ColorFor(seg.Risk.Level)
		s.Icon = c.IconFor(seg.Weather.WeatherCode)
		s.Glyph = s.Icon.Glyph()

		entries = append(entries, TimelineEntry{
			SegmentSummary:  s,
			TemperatureC:    seg.Weather.TemperatureC,
			PrecipitationMm: seg.Weather.PrecipitationMm,
			WindspeedKmh:    seg.Weather.WindspeedKmh,
			Badge:           fmt.Sprintf("%s - Score: %s", s.Label, strconv.FormatFloat(seg.Risk.SeverityScore, 'f', -1, 64)),
		})
	}
	return Timeline{Entries: entries, Overview: risk.Summarize(planned.Segments)}
}
