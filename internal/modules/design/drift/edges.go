package drift

import (
	"image"
)

// Tolerant edge-alignment between two grayscale images, after the original
// render validator: extract gradient-magnitude edges from both, dilate each
// map by tolerancePx, then score
//
//	precision = |candidate edges matching dilated baseline| / |candidate edges|
//	recall    = |baseline edges matching dilated candidate| / |baseline edges|
//	f1        = harmonic mean
//
// Dilation absorbs small pixel-level misalignment while still exposing
// structural drift.
type EdgeAlignment struct {
	Precision float64
	Recall    float64
	F1        float64
}

const edgeThreshold = 48

func AlignEdges(a, b *image.Gray, tolerancePx int) EdgeAlignment {
	if tolerancePx < 1 {
		tolerancePx = 1
	}
	ea := sobelEdges(a)
	eb := sobelEdges(b)
	da := dilate(ea, tolerancePx)
	db := dilate(eb, tolerancePx)

	var countA, countB, matchedA, matchedB int
	for i := range ea.mask {
		if eb.mask[i] {
			countB++
			if da.mask[i] {
				matchedB++
			}
		}
		if ea.mask[i] {
			countA++
			if db.mask[i] {
				matchedA++
			}
		}
	}

	var out EdgeAlignment
	if countB > 0 {
		out.Precision = float64(matchedB) / float64(countB)
	}
	if countA > 0 {
		out.Recall = float64(matchedA) / float64(countA)
	}
	if out.Precision+out.Recall > 0 {
		out.F1 = 2 * out.Precision * out.Recall / (out.Precision + out.Recall)
	}
	return out
}

type edgeMap struct {
	w, h int
	mask []bool
}

func sobelEdges(img *image.Gray) edgeMap {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	out := edgeMap{w: w, h: h, mask: make([]bool, w*h)}

	at := func(x, y int) int {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return int(img.Pix[img.PixOffset(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)])
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if gx < 0 {
				gx = -gx
			}
			if gy < 0 {
				gy = -gy
			}
			// |gx|+|gy| approximates gradient magnitude; /4 normalizes the
			// Sobel kernel gain back into 8-bit range.
			if (gx+gy)/4 >= edgeThreshold {
				out.mask[y*w+x] = true
			}
		}
	}
	return out
}

func dilate(e edgeMap, radius int) edgeMap {
	out := edgeMap{w: e.w, h: e.h, mask: make([]bool, len(e.mask))}
	for y := 0; y < e.h; y++ {
		for x := 0; x < e.w; x++ {
			if !e.mask[y*e.w+x] {
				continue
			}
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= e.h {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					xx := x + dx
					if xx < 0 || xx >= e.w {
						continue
					}
					out.mask[yy*e.w+xx] = true
				}
			}
		}
	}
	return out
}
