package validate

import (
	"math"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

// AutoFix applies only reversible, low-risk corrections: clamping
// out-of-range numeric fields to the nearest valid bound and defaulting an
// unset or invalid entrance. It never touches materials or program content.
// Returns a new record; the input is unchanged.
func AutoFix(d domain.DesignDNA, cfg Config) domain.DesignDNA {
	out := d.Clone()

	if out.FloorCount > 0 && out.Height > 0 {
		fh := out.FloorHeight()
		if fh < cfg.FloorHeightMin {
			out.Height = cfg.FloorHeightMin * float64(out.FloorCount)
		} else if fh > cfg.FloorHeightMax {
			out.Height = cfg.FloorHeightMax * float64(out.FloorCount)
		}
	}

	if out.Length > 0 && out.Width > 0 {
		area := out.FootprintArea()
		var target float64
		if area < cfg.FootprintAreaMin {
			target = cfg.FootprintAreaMin
		} else if area > cfg.FootprintAreaMax {
			target = cfg.FootprintAreaMax
		}
		if target > 0 {
			// Scale both plan dimensions uniformly so the aspect ratio the
			// user asked for survives the clamp.
			f := math.Sqrt(target / area)
			out.Length = round2(out.Length * f)
			out.Width = round2(out.Width * f)
		}
	}

	if !domain.IsValidOrientation(out.Entrance) {
		out.Entrance = domain.DefaultEntrance
	}

	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
