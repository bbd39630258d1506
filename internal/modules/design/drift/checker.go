package drift

import (
	"context"
	"fmt"
	"image"

	"github.com/yungbote/archsheet-backend/internal/domain"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

// ImageSource resolves an imageRef to decoded pixels. Satisfied by the media
// store; kept narrow so the checker stays free of storage concerns.
type ImageSource interface {
	LoadImage(ctx context.Context, ref string) (image.Image, error)
}

// Candidate is the freshly generated result being judged against a baseline.
type Candidate struct {
	DNA             domain.DesignDNA
	ImageRef        string
	AffectedRegions []string
}

// Checker combines structural DNA comparison and visual image comparison
// into a pass/retry/fail verdict. It performs no generation calls and has no
// side effects beyond reading the two images.
type Checker struct {
	cfg    Config
	images ImageSource
	log    *logger.Logger
}

func NewChecker(cfg Config, images ImageSource, baseLog *logger.Logger) *Checker {
	return &Checker{cfg: cfg, images: images, log: baseLog.With("component", "DriftChecker")}
}

func (c *Checker) Config() Config { return c.cfg }

// CheckDrift compares a candidate against the frozen baseline.
func (c *Checker) CheckDrift(ctx context.Context, baseline *domain.SheetBaseline, cand Candidate) (domain.DriftReport, error) {
	var report domain.DriftReport
	if baseline == nil {
		return report, fmt.Errorf("drift: baseline required")
	}
	baseDNA, err := baseline.DecodeDNA()
	if err != nil {
		return report, fmt.Errorf("drift: decode baseline dna: %w", err)
	}

	structural := CompareDNA(baseDNA, cand.DNA, cand.AffectedRegions, c.cfg)

	baseImg, err := c.images.LoadImage(ctx, baseline.ImageRef)
	if err != nil {
		return report, fmt.Errorf("drift: load baseline image %s: %w", baseline.ImageRef, err)
	}
	candImg, err := c.images.LoadImage(ctx, cand.ImageRef)
	if err != nil {
		return report, fmt.Errorf("drift: load candidate image %s: %w", cand.ImageRef, err)
	}
	visual := CompareImages(baseImg, candImg, c.cfg)

	report = Evaluate(structural, visual, c.cfg)
	c.log.Debug("drift check complete",
		"design_id", baseline.DesignID,
		"verdict", report.Verdict,
		"structural_deltas", len(report.StructuralDelta),
		"ssim", report.Visual.SSIM,
		"hash_distance", report.Visual.PerceptualHashDistance,
		"edge_f1", report.Visual.EdgeF1,
	)
	return report, nil
}
