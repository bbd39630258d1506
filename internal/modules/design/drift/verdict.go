package drift

import (
	"fmt"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

// Evaluate folds the two independent axes into a verdict:
//
//   - no unintended structural deltas and visual within thresholds -> pass
//   - no structural deltas but the rendering drifted visually -> retry
//     (regenerate with a stronger lock, same seed)
//   - any unintended structural delta -> fail
//
// Reasons name every threshold that was crossed so the caller can explain a
// rejection instead of showing a generic error.
func Evaluate(structural []domain.StructuralDelta, visual domain.VisualSimilarity, cfg Config) domain.DriftReport {
	report := domain.DriftReport{
		StructuralDelta: structural,
		Visual:          visual,
		Reasons:         []string{},
	}
	if report.StructuralDelta == nil {
		report.StructuralDelta = []domain.StructuralDelta{}
	}

	visualOK := true
	if visual.SSIM < cfg.SSIMThreshold {
		visualOK = false
		report.Reasons = append(report.Reasons, fmt.Sprintf(
			"ssim %.3f below threshold %.2f", visual.SSIM, cfg.SSIMThreshold))
	}
	if visual.PerceptualHashDistance > cfg.HashDistanceMax {
		visualOK = false
		report.Reasons = append(report.Reasons, fmt.Sprintf(
			"perceptual hash distance %d above threshold %d", visual.PerceptualHashDistance, cfg.HashDistanceMax))
	}
	if visual.EdgeF1 > 0 && visual.EdgeF1 < cfg.EdgeF1Min {
		// Advisory only: recorded for diagnostics, does not flip the verdict
		// and stays out of the rejection reasons.
		report.Advisories = append(report.Advisories, fmt.Sprintf(
			"edge alignment f1 %.3f below advisory threshold %.2f", visual.EdgeF1, cfg.EdgeF1Min))
	}

	if len(structural) > 0 {
		for _, d := range structural {
			report.Reasons = append(report.Reasons, fmt.Sprintf(
				"unintended change to %s (%q -> %q)", d.Field, d.Before, d.After))
		}
		report.Verdict = domain.DriftFail
		return report
	}

	if visualOK {
		report.Verdict = domain.DriftPass
		return report
	}
	report.Verdict = domain.DriftRetry
	return report
}
