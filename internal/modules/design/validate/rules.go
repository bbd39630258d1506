package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one rule violation. Errors block generation; warnings are
// surfaced but non-blocking.
type Issue struct {
	Rule     string   `json:"rule"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

type Result struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Validate runs the structural and semantic rules over a normalized DNA
// record. Pure rule engine: no I/O, no mutation.
func Validate(d domain.DesignDNA, cfg Config) Result {
	var errs, warns []Issue

	appendErr := func(rule, field, msg string) {
		errs = append(errs, Issue{Rule: rule, Field: field, Message: msg, Severity: SeverityError})
	}
	appendWarn := func(rule, field, msg string) {
		warns = append(warns, Issue{Rule: rule, Field: field, Message: msg, Severity: SeverityWarning})
	}

	// Dimensional sanity.
	if d.Length <= 0 {
		appendErr("positive_dimension", "length", "length must be > 0")
	}
	if d.Width <= 0 {
		appendErr("positive_dimension", "width", "width must be > 0")
	}
	if d.Height <= 0 {
		appendErr("positive_dimension", "height", "height must be > 0")
	}
	if d.FloorCount <= 0 {
		appendErr("positive_dimension", "floor_count", "floor count must be > 0")
	}

	if d.FloorCount > 0 && d.Height > 0 {
		fh := d.FloorHeight()
		if fh < cfg.FloorHeightMin || fh > cfg.FloorHeightMax {
			appendErr("floor_height_range", "height", fmt.Sprintf(
				"floor-to-floor height %.2fm outside [%.1fm, %.1fm]", fh, cfg.FloorHeightMin, cfg.FloorHeightMax))
		}
	}
	if d.Length > 0 && d.Width > 0 {
		area := d.FootprintArea()
		if area < cfg.FootprintAreaMin || area > cfg.FootprintAreaMax {
			appendErr("footprint_area_range", "length", fmt.Sprintf(
				"footprint area %.1fm2 outside [%.0fm2, %.0fm2]", area, cfg.FootprintAreaMin, cfg.FootprintAreaMax))
		}
	}

	// Material sanity.
	if len(d.Materials) == 0 {
		appendErr("materials_required", "materials", "materials list must not be empty")
	}
	facade, hasFacade := d.MaterialFor("facade")
	trim, hasTrim := d.MaterialFor("trim")
	if hasFacade && hasTrim {
		if dist, comparable := finishDistance(facade, trim); comparable && dist < cfg.MinFinishDistance {
			appendWarn("finish_contrast", "materials", fmt.Sprintf(
				"facade and trim finishes are perceptually close (distance %.0f < %.0f)", dist, cfg.MinFinishDistance))
		} else if !comparable && facade == trim {
			appendWarn("finish_contrast", "materials", "facade and trim share the same finish")
		}
	}

	// Program-space sanity.
	if len(d.Spaces) > 0 && d.FloorCount > 0 && d.FootprintArea() > 0 {
		var sum float64
		for _, s := range d.Spaces {
			sum += s.Area
		}
		total := d.FootprintArea() * float64(d.FloorCount)
		if rel := math.Abs(sum-total) / total; rel > cfg.ProgramAreaTolerance {
			appendWarn("program_area_budget", "spaces", fmt.Sprintf(
				"program spaces sum to %.1fm2, %.0f%% off the %.1fm2 floor area", sum, rel*100, total))
		}
	}

	// Cross-field consistency.
	if !domain.IsValidOrientation(d.Entrance) {
		appendErr("entrance_orientation", "entrance", fmt.Sprintf(
			"entrance %q is not one of %s", d.Entrance, strings.Join(domain.Orientations, ",")))
	}

	return Result{IsValid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// finishDistance compares two finishes when both parse as hex colors.
// Returns comparable=false for named finishes ("brick", "slate").
func finishDistance(a, b string) (float64, bool) {
	ra, ga, ba, ok := parseHexColor(a)
	if !ok {
		return 0, false
	}
	rb, gb, bb, ok := parseHexColor(b)
	if !ok {
		return 0, false
	}
	dr := float64(ra) - float64(rb)
	dg := float64(ga) - float64(gb)
	db := float64(ba) - float64(bb)
	return math.Sqrt(dr*dr + dg*dg + db*db), true
}

func parseHexColor(s string) (r, g, b uint8, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
