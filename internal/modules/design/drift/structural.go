package drift

import (
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

// CompareDNA produces the unintended structural deltas between a baseline
// DNA and a candidate DNA. Fields covered by affectedRegions are excluded:
// a region may name a top-level field ("style"), a material surface
// ("roof"), or a program space ("kitchen"). Numeric fields drift only when
// the relative change exceeds cfg.StructuralTolerance; string fields drift
// on any change.
func CompareDNA(baseline, candidate domain.DesignDNA, affectedRegions []string, cfg Config) []domain.StructuralDelta {
	affected := make(map[string]bool, len(affectedRegions))
	for _, r := range affectedRegions {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			affected[r] = true
		}
	}

	var deltas []domain.StructuralDelta
	addNumeric := func(field string, before, after float64) {
		if affected[field] {
			return
		}
		if relChange(before, after) > cfg.StructuralTolerance {
			deltas = append(deltas, domain.StructuralDelta{
				Field:  field,
				Before: trimFloat(before),
				After:  trimFloat(after),
			})
		}
	}
	addString := func(field, before, after string) {
		if affected[field] {
			return
		}
		if !strings.EqualFold(before, after) {
			deltas = append(deltas, domain.StructuralDelta{Field: field, Before: before, After: after})
		}
	}

	addNumeric("length", baseline.Length, candidate.Length)
	addNumeric("width", baseline.Width, candidate.Width)
	addNumeric("height", baseline.Height, candidate.Height)
	addNumeric("floor_count", float64(baseline.FloorCount), float64(candidate.FloorCount))
	addString("style", baseline.Style, candidate.Style)
	addString("entrance", baseline.Entrance, candidate.Entrance)

	deltas = append(deltas, compareMaterials(baseline.Materials, candidate.Materials, affected)...)
	deltas = append(deltas, compareSpaces(baseline.Spaces, candidate.Spaces, affected, cfg)...)

	return deltas
}

func compareMaterials(baseline, candidate []domain.Material, affected map[string]bool) []domain.StructuralDelta {
	before := materialIndex(baseline)
	after := materialIndex(candidate)

	var deltas []domain.StructuralDelta
	for _, m := range baseline {
		if affected[m.Surface] {
			continue
		}
		got, ok := after[m.Surface]
		field := "materials." + m.Surface
		if !ok {
			deltas = append(deltas, domain.StructuralDelta{Field: field, Before: m.Finish, After: ""})
			continue
		}
		if !strings.EqualFold(m.Finish, got) {
			deltas = append(deltas, domain.StructuralDelta{Field: field, Before: m.Finish, After: got})
		}
	}
	for _, m := range candidate {
		if affected[m.Surface] {
			continue
		}
		if _, ok := before[m.Surface]; !ok {
			deltas = append(deltas, domain.StructuralDelta{
				Field:  "materials." + m.Surface,
				Before: "",
				After:  m.Finish,
			})
		}
	}
	return deltas
}

func compareSpaces(baseline, candidate []domain.ProgramSpace, affected map[string]bool, cfg Config) []domain.StructuralDelta {
	after := make(map[string]domain.ProgramSpace, len(candidate))
	for _, s := range candidate {
		after[s.Name] = s
	}
	before := make(map[string]domain.ProgramSpace, len(baseline))
	for _, s := range baseline {
		before[s.Name] = s
	}

	var deltas []domain.StructuralDelta
	for _, s := range baseline {
		if affected[s.Name] {
			continue
		}
		field := "spaces." + s.Name
		got, ok := after[s.Name]
		if !ok {
			deltas = append(deltas, domain.StructuralDelta{Field: field, Before: trimFloat(s.Area), After: ""})
			continue
		}
		if relChange(s.Area, got.Area) > cfg.StructuralTolerance {
			deltas = append(deltas, domain.StructuralDelta{Field: field + ".area", Before: trimFloat(s.Area), After: trimFloat(got.Area)})
		}
		if s.Floor != got.Floor {
			deltas = append(deltas, domain.StructuralDelta{
				Field:  field + ".floor",
				Before: fmt.Sprintf("%d", s.Floor),
				After:  fmt.Sprintf("%d", got.Floor),
			})
		}
	}
	for _, s := range candidate {
		if affected[s.Name] {
			continue
		}
		if _, ok := before[s.Name]; !ok {
			deltas = append(deltas, domain.StructuralDelta{Field: "spaces." + s.Name, Before: "", After: trimFloat(s.Area)})
		}
	}
	return deltas
}

func materialIndex(mats []domain.Material) map[string]string {
	out := make(map[string]string, len(mats))
	for _, m := range mats {
		out[m.Surface] = m.Finish
	}
	return out
}

func relChange(before, after float64) float64 {
	if before == after {
		return 0
	}
	base := math.Abs(before)
	if base == 0 {
		return math.Inf(1)
	}
	return math.Abs(after-before) / base
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
