// Package risk maps raw segment weather and service verdicts to the display
// tiers, colors and icons shared by the map, timeline and alerts surfaces.
package risk

import (
	"iter"
	"strings"

	"github.com/i474232898/route-risk/internal/route"
)

// Display colors per tier.
const (
	ColorSafe      = "#10b981"
	ColorModerate  = "#f59e0b"
	ColorRisky     = "#f97316"
	ColorDangerous = "#ef4444"
	ColorUnknown   = "#6b7280"
)

// Icon names a weather glyph.
type Icon string

const (
	IconUnknown      Icon = "unknown"
	IconClear        Icon = "clear"
	IconPartlyCloudy Icon = "partly-cloudy"
	IconFog          Icon = "fog"
	IconRain         Icon = "rain"
	IconSnow         Icon = "snow"
	IconRainShower   Icon = "rain-shower"
	IconSnowShower   Icon = "snow-shower"
	IconThunderstorm Icon = "thunderstorm"
)

// Glyph returns the emoji renderers draw for the icon.
func (i Icon) Glyph() string {
	switch i {
	case IconClear:
		return "☀️"
	case IconPartlyCloudy:
		return "⛅"
	case IconFog:
		return "🌫️"
	case IconRain:
		return "🌧️"
	case IconSnow:
		return "❄️"
	case IconRainShower:
		return "🌦️"
	case IconSnowShower:
		return "🌨️"
	case IconThunderstorm:
		return "⛈️"
	default:
		return "❔"
	}
}

// Classifier is the capability set every presentation surface depends on.
type Classifier interface {
	ColorFor(level route.RiskLevel) string
	IconFor(weatherCode int) Icon
	FilterAlertworthy(segments []route.Segment) iter.Seq[route.Segment]
}

type classifier struct{}

func (classifier) ColorFor(level route.RiskLevel) string { return ColorFor(level) }
func (classifier) IconFor(code int) Icon                 { return IconFor(code) }
func (classifier) FilterAlertworthy(segments []route.Segment) iter.Seq[route.Segment] {
	return FilterAlertworthy(segments)
}

// Default is the package-level classifier.
var Default Classifier = classifier{}

// Levels lists the known tiers from least to most severe.
func Levels() []route.RiskLevel {
	return []route.RiskLevel{route.RiskSafe, route.RiskModerate, route.RiskRisky, route.RiskDangerous}
}

// ParseLevel normalizes a service risk string. Unrecognized input maps to RiskUnknown.
func ParseLevel(s string) route.RiskLevel {
	switch l := route.RiskLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case route.RiskSafe, route.RiskModerate, route.RiskRisky, route.RiskDangerous:
		return l
	default:
		return route.RiskUnknown
	}
}

// ColorFor returns the display color of a tier, or ColorUnknown for anything else.
func ColorFor(level route.RiskLevel) string {
	switch level {
	case route.RiskSafe:
		return ColorSafe
	case route.RiskModerate:
		return ColorModerate
	case route.RiskRisky:
		return ColorRisky
	case route.RiskDangerous:
		return ColorDangerous
	default:
		return ColorUnknown
	}
}

// IconFor maps a WMO weather code to its icon band.
// Bands: 0 clear, 1-3 partly cloudy, 4-48 fog, 49-67 rain, 68-77 snow,
// 78-82 rain shower, 83-86 snow shower, 87 and above thunderstorm.
func IconFor(code int) Icon {
	switch {
	case code < 0:
		return IconUnknown
	case code == 0:
		return IconClear
	case code <= 3:
		return IconPartlyCloudy
	case code <= 48:
		return IconFog
	case code <= 67:
		return IconRain
	case code <= 77:
		return IconSnow
	case code <= 82:
		return IconRainShower
	case code <= 86:
		return IconSnowShower
	default:
		return IconThunderstorm
	}
}

// Alertworthy reports whether a tier warrants an alert.
func Alertworthy(level route.RiskLevel) bool {
	return level == route.RiskRisky || level == route.RiskDangerous
}

// FilterAlertworthy yields the risky and dangerous segments in their original order.
// The sequence can be ranged over any number of times.
func FilterAlertworthy(segments []route.Segment) iter.Seq[route.Segment] {
	return func(yield func(route.Segment) bool) {
		for _, s := range segments {
			if !Alertworthy(s.Risk.Level) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Label is the upper-case badge text of a tier.
func Label(level route.RiskLevel) string {
	return strings.ToUpper(string(level))
}

// severityRank orders tiers for comparisons; unknown sorts lowest.
func severityRank(level route.RiskLevel) int {
	switch level {
	case route.RiskSafe:
		return 1
	case route.RiskModerate:
		return 2
	case route.RiskRisky:
		return 3
	case route.RiskDangerous:
		return 4
	default:
		return 0
	}
}
