package risk

import (
	"slices"
	"testing"
	"time"

	"github.com/i474232898/route-risk/internal/route"
)

func TestColorForDistinctPerLevel(t *testing.T) {
	seen := make(map[string]route.RiskLevel)
	for _, level := range Levels() {
		c := ColorFor(level)
		if c == "" || c == ColorUnknown {
			t.Fatalf("level %s has no dedicated color", level)
		}
		if prev, dup := seen[c]; dup {
			t.Fatalf("levels %s and %s share color %s", prev, level, c)
		}
		seen[c] = level
		if ColorFor(level) != c {
			t.Fatalf("ColorFor(%s) is not deterministic", level)
		}
	}
}

func TestColorForUnknownIsNeutral(t *testing.T) {
	for _, level := range []route.RiskLevel{route.RiskUnknown, "", "catastrophic", "RISKY"} {
		if got := ColorFor(level); got != ColorUnknown {
			t.Errorf("ColorFor(%q) = %s, want %s", level, got, ColorUnknown)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]route.RiskLevel{
		"safe":       route.RiskSafe,
		"Moderate":   route.RiskModerate,
		" RISKY ":    route.RiskRisky,
		"dangerous":  route.RiskDangerous,
		"unknown":    route.RiskUnknown,
		"apocalypse": route.RiskUnknown,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestIconForBands(t *testing.T) {
	cases := []struct {
		code int
		want Icon
	}{
		{0, IconClear},
		{1, IconPartlyCloudy},
		{3, IconPartlyCloudy},
		{4, IconFog},
		{45, IconFog},
		{48, IconFog},
		{49, IconRain},
		{52, IconRain},
		{67, IconRain},
		{68, IconSnow},
		{77, IconSnow},
		{78, IconRainShower},
		{82, IconRainShower},
		{83, IconSnowShower},
		{86, IconSnowShower},
		{87, IconThunderstorm},
		{95, IconThunderstorm},
		{1000, IconThunderstorm},
		{-1, IconUnknown},
	}
	for _, tc := range cases {
		if got := IconFor(tc.code); got != tc.want {
			t.Errorf("IconFor(%d) = %s, want %s", tc.code, got, tc.want)
		}
	}
}

func TestIconGlyphDefined(t *testing.T) {
	for code := 0; code <= 100; code++ {
		if IconFor(code).Glyph() == "" {
			t.Fatalf("code %d has an empty glyph", code)
		}
	}
}

func segmentsFixture() []route.Segment {
	eta := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return []route.Segment{
		{ID: 0, ETA: eta, Risk: route.RiskAssessment{Level: route.RiskSafe, SeverityScore: 5}},
		{ID: 1, ETA: eta.Add(10 * time.Minute), Risk: route.RiskAssessment{Level: route.RiskRisky, SeverityScore: 60}},
		{ID: 2, ETA: eta.Add(20 * time.Minute), Risk: route.RiskAssessment{Level: route.RiskDangerous, SeverityScore: 80}},
	}
}

func TestFilterAlertworthyKeepsOrder(t *testing.T) {
	got := slices.Collect(FilterAlertworthy(segmentsFixture()))
	if len(got) != 2 {
		t.Fatalf("expected 2 alertworthy segments, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("expected ids [1 2], got [%d %d]", got[0].ID, got[1].ID)
	}
}

func TestFilterAlertworthyIdempotent(t *testing.T) {
	once := slices.Collect(FilterAlertworthy(segmentsFixture()))
	twice := slices.Collect(FilterAlertworthy(once))
	if len(once) != len(twice) {
		t.Fatalf("expected %d segments, got %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("order changed at %d: %d vs %d", i, once[i].ID, twice[i].ID)
		}
	}
}

func TestFilterAlertworthyRestartable(t *testing.T) {
	seq := FilterAlertworthy(segmentsFixture())
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected both passes to yield 2 segments, got %d and %d", len(first), len(second))
	}

	// Early exit must stop the iteration cleanly.
	n := 0
	for range seq {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected to stop after 1 element, got %d", n)
	}
}

func TestDefaultClassifierMatchesFunctions(t *testing.T) {
	if Default.ColorFor(route.RiskRisky) != ColorRisky {
		t.Fatal("Default.ColorFor disagrees with ColorFor")
	}
	if Default.IconFor(52) != IconRain {
		t.Fatal("Default.IconFor disagrees with IconFor")
	}
	if got := slices.Collect(Default.FilterAlertworthy(segmentsFixture())); len(got) != 2 {
		t.Fatalf("Default.FilterAlertworthy returned %d segments", len(got))
	}
}

func TestSummarize(t *testing.T) {
	ov := Summarize(segmentsFixture())
	if ov.Segments != 3 || ov.Alerts != 2 {
		t.Fatalf("unexpected counts: %+v", ov)
	}
	if ov.Worst != route.RiskDangerous || ov.WorstColor != ColorDangerous {
		t.Fatalf("expected dangerous worst tier, got %+v", ov)
	}
	if ov.AverageSeverity != 48.33 {
		t.Fatalf("expected average 48.33, got %v", ov.AverageSeverity)
	}

	empty := Summarize(nil)
	if empty.Worst != route.RiskUnknown || empty.Segments != 0 {
		t.Fatalf("unexpected empty overview: %+v", empty)
	}
}
