package drift

import (
	"image"
	"math/bits"

	"golang.org/x/image/draw"
)

// PerceptualHash computes a 64-bit average-intensity fingerprint: the image
// is reduced to 8x8 grayscale and each cell contributes one bit, set when
// the cell is brighter than the mean. Near-duplicate images produce hashes
// within a small Hamming distance.
func PerceptualHash(img image.Image) uint64 {
	small := image.NewGray(image.Rect(0, 0, 8, 8))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Over, nil)

	var sum int
	for _, p := range small.Pix {
		sum += int(p)
	}
	mean := uint8(sum / 64)

	var hash uint64
	for i, p := range small.Pix {
		if p > mean {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// HashDistance is the Hamming distance between two perceptual hashes.
func HashDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
