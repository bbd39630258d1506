package drift

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

// Working size the visual metrics operate at. Downscaling first keeps the
// metrics resolution-independent and bounds their cost.
const workingSize = 256

// CompareImages computes the visual-axis metrics between a baseline render
// and a candidate render. The three metrics are independent and run
// concurrently.
func CompareImages(baseline, candidate image.Image, cfg Config) domain.VisualSimilarity {
	grayA := toWorkingGray(baseline)
	grayB := toWorkingGray(candidate)

	var sim domain.VisualSimilarity
	var g errgroup.Group
	g.Go(func() error {
		sim.SSIM = SSIM(grayA, grayB)
		return nil
	})
	g.Go(func() error {
		sim.PerceptualHashDistance = HashDistance(PerceptualHash(baseline), PerceptualHash(candidate))
		return nil
	})
	g.Go(func() error {
		align := AlignEdges(grayA, grayB, cfg.EdgeTolerancePx)
		sim.EdgeF1 = align.F1
		sim.EdgePrecision = align.Precision
		sim.EdgeRecall = align.Recall
		return nil
	})
	_ = g.Wait()
	return sim
}

func toWorkingGray(img image.Image) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, workingSize, workingSize))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
	return out
}
