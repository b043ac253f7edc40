package view

import (
	"fmt"

	"github.com/i474232898/route-risk/internal/risk"
	"github.com/i474232898/route-risk/internal/route"
)

// NoAlertsMessage is shown when no segment is alertworthy.
const NoAlertsMessage = "No weather alerts for this route. Have a safe trip!"

// Alert is one alertworthy segment.
type Alert struct {
	SegmentID int             `json:"segment_id"`
	Level     route.RiskLevel `json:"level"`
	Severity  string          `json:"severity"`
	Color     string          `json:"color"`
	ETA       string          `json:"eta"`
	Message   string          `json:"message"`
	Details   []risk.Callout  `json:"details,omitempty"`
}

// AlertsPanel is the alerts surface.
type AlertsPanel struct {
	Title   string  `json:"title"`
	Count   int     `json:"count"`
	Alerts  []Alert `json:"alerts"`
	Message string  `json:"message,omitempty"`
}

// BuildAlerts lists the alertworthy segments in route order.
func BuildAlerts(segments []route.Segment, c risk.Classifier) AlertsPanel {
	alerts := []Alert{}
	for seg := range c.FilterAlertworthy(segments) {
		s := risk.FormatSegmentSummary(seg)
		alerts = append(alerts, Alert{
			SegmentID: seg.ID,
			Level:     seg.Risk.Level,
			Severity:  s.Label,
			Color:     c.ColorFor(seg.Risk.Level),
			ETA:       s.ETA,
			Message:   fmt.Sprintf("%s: %s", s.Title, s.Description),
			Details:   s.Callouts,
		})
	}

	if len(alerts) == 0 {
		return AlertsPanel{Title: "Alerts", Alerts: alerts, Message: NoAlertsMessage}
	}
	return AlertsPanel{
		Title:  fmt.Sprintf("Weather Alerts (%d)", len(alerts)),
		Count:  len(alerts),
		Alerts: alerts,
	}
}
