package risk

import (
	"math"

	"github.com/i474232898/route-risk/internal/route"
)

// Overview condenses a route's segments into headline figures.
type Overview struct {
	Segments        int             `json:"segments"`
	AverageSeverity float64         `json:"average_severity"`
	Worst           route.RiskLevel `json:"worst"`
	WorstColor      string          `json:"worst_color"`
	Alerts          int             `json:"alerts"`
}

// Summarize averages severity scores (rounded to two decimals) and picks the most
// severe tier. An empty route yields a zero Overview with an unknown tier.
func Summarize(segments []route.Segment) Overview {
	ov := Overview{Worst: route.RiskUnknown, WorstColor: ColorUnknown}
	if len(segments) == 0 {
		return ov
	}

	var sum float64
	for _, s := range segments {
		sum += s.Risk.SeverityScore
		if severityRank(s.Risk.Level) > severityRank(ov.Worst) {
			ov.Worst = s.Risk.Level
		}
		if Alertworthy(s.Risk.Level) {
			ov.Alerts++
		}
	}

	ov.Segments = len(segments)
	ov.AverageSeverity = math.Round(sum/float64(len(segments))*100) / 100
	ov.WorstColor = ColorFor(ov.Worst)
	return ov
}
