package drift

import (
	"image"
)

// SSIM constants for 8-bit dynamic range.
const (
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
	ssimWindow = 8
)

// SSIM computes the mean structural similarity between two grayscale images
// of equal size, over non-overlapping 8x8 windows. Returns a value in [0,1]
// (1 = identical). Callers are expected to have scaled both images to the
// same working size first.
func SSIM(a, b *image.Gray) float64 {
	w := a.Bounds().Dx()
	h := a.Bounds().Dy()
	if w != b.Bounds().Dx() || h != b.Bounds().Dy() || w == 0 || h == 0 {
		return 0
	}

	var total float64
	var windows int
	for y := 0; y+ssimWindow <= h; y += ssimWindow {
		for x := 0; x+ssimWindow <= w; x += ssimWindow {
			total += windowSSIM(a, b, x, y)
			windows++
		}
	}
	if windows == 0 {
		// Image smaller than one window: treat the whole frame as a window.
		return windowSSIMRect(a, b, 0, 0, w, h)
	}
	return total / float64(windows)
}

func windowSSIM(a, b *image.Gray, x0, y0 int) float64 {
	return windowSSIMRect(a, b, x0, y0, ssimWindow, ssimWindow)
}

func windowSSIMRect(a, b *image.Gray, x0, y0, w, h int) float64 {
	n := float64(w * h)
	if n == 0 {
		return 0
	}

	var sumA, sumB float64
	for y := 0; y < h; y++ {
		ai := a.PixOffset(a.Bounds().Min.X+x0, a.Bounds().Min.Y+y0+y)
		bi := b.PixOffset(b.Bounds().Min.X+x0, b.Bounds().Min.Y+y0+y)
		for x := 0; x < w; x++ {
			sumA += float64(a.Pix[ai+x])
			sumB += float64(b.Pix[bi+x])
		}
	}
	muA := sumA / n
	muB := sumB / n

	var varA, varB, cov float64
	for y := 0; y < h; y++ {
		ai := a.PixOffset(a.Bounds().Min.X+x0, a.Bounds().Min.Y+y0+y)
		bi := b.PixOffset(b.Bounds().Min.X+x0, b.Bounds().Min.Y+y0+y)
		for x := 0; x < w; x++ {
			da := float64(a.Pix[ai+x]) - muA
			db := float64(b.Pix[bi+x]) - muB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	if n > 1 {
		varA /= n - 1
		varB /= n - 1
		cov /= n - 1
	}

	num := (2*muA*muB + ssimC1) * (2*cov + ssimC2)
	den := (muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2)
	if den == 0 {
		return 0
	}
	return num / den
}
