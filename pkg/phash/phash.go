// Package phash computes a 64-bit perceptual image hash from the
// low-frequency DCT coefficients of an image's 32x32 grayscale resample.
// Visually similar images produce hashes that differ in few bits; Hamming
// distance over the 64 bits is the similarity metric used throughout this
// module.
package phash

import (
	"image"
	"math"
	"math/bits"
	"sort"

	"golang.org/x/image/draw"
)

const (
	sampleSize = 32 // side length of the grayscale resample fed to the DCT
	blockSize  = 8  // side length of the retained low-frequency block
	numBits    = blockSize * blockSize
)

// Hash is a 64-bit perceptual fingerprint: one bit per cell of the top-left
// 8x8 low-frequency DCT block, scanned row-major starting at the DC term.
type Hash uint64

// dctBasis is the sampleSize x sampleSize orthogonal type-II DCT basis
// matrix. basis[k][n] = cos(pi/N * (n+0.5) * k). Generated once at package
// init the same way a fixed-size cosine transform matrix is generated for
// block transforms elsewhere: a closed-form cosine per cell, no FFT needed
// at this size.
var dctBasis [sampleSize][sampleSize]float64

func init() {
	for k := 0; k < sampleSize; k++ {
		for n := 0; n < sampleSize; n++ {
			dctBasis[k][n] = math.Cos(math.Pi / float64(sampleSize) * (float64(n) + 0.5) * float64(k))
		}
	}
}

// Compute derives the perceptual hash of img. The image is converted to
// grayscale and resampled to 32x32 before the transform; callers needing the
// hash of a full-resolution video frame should pass that frame directly.
func Compute(img image.Image) Hash {
	samples := grayscale32(img)
	coeffs := dct2D(samples)
	return extractBits(coeffs)
}

// grayscale32 resamples img to a 32x32 grayscale grid using a high-quality
// bicubic-family kernel (CatmullRom), row-major, [y][x].
func grayscale32(img image.Image) [sampleSize][sampleSize]float64 {
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)

	small := image.NewGray(image.Rect(0, 0, sampleSize, sampleSize))
	draw.CatmullRom.Scale(small, small.Bounds(), gray, gray.Bounds(), draw.Src, nil)

	var out [sampleSize][sampleSize]float64
	for y := 0; y < sampleSize; y++ {
		for x := 0; x < sampleSize; x++ {
			out[y][x] = float64(small.GrayAt(x, y).Y)
		}
	}
	return out
}

// dct2D applies the separable 2-D type-II DCT: rows then columns.
func dct2D(samples [sampleSize][sampleSize]float64) [sampleSize][sampleSize]float64 {
	var rows [sampleSize][sampleSize]float64
	for y := 0; y < sampleSize; y++ {
		for k := 0; k < sampleSize; k++ {
			var sum float64
			for n := 0; n < sampleSize; n++ {
				sum += samples[y][n] * dctBasis[k][n]
			}
			rows[y][k] = sum
		}
	}

	var cols [sampleSize][sampleSize]float64
	for k := 0; k < sampleSize; k++ {
		for x := 0; x < sampleSize; x++ {
			var sum float64
			for n := 0; n < sampleSize; n++ {
				sum += rows[n][x] * dctBasis[k][n]
			}
			cols[k][x] = sum
		}
	}
	return cols
}

// extractBits takes the top-left 8x8 low-frequency block of a DCT output,
// computes the median of the 63 AC coefficients (the DC term at [0][0] is
// excluded from the median but still contributes its own bit), and sets bit
// i (row-major, i=0 is the DC cell) when that cell's coefficient exceeds the
// median.
func extractBits(coeffs [sampleSize][sampleSize]float64) Hash {
	var block [numBits]float64
	i := 0
	for y := 0; y < blockSize; y++ {
		for x := 0; x < blockSize; x++ {
			block[i] = coeffs[y][x]
			i++
		}
	}

	ac := make([]float64, 0, numBits-1)
	for i, v := range block {
		if i == 0 {
			continue // DC term excluded from the median
		}
		ac = append(ac, v)
	}
	sort.Float64s(ac)
	median := medianOf(ac)

	var h Hash
	for i, v := range block {
		if v > median {
			h |= 1 << uint(i)
		}
	}
	return h
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// HammingDistance returns the number of differing bits between two hashes,
// in [0, 64].
func HammingDistance(a, b Hash) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// Similarity maps a Hamming distance to a [0,1] similarity score.
func Similarity(distance int) float64 {
	return 1 - float64(distance)/float64(numBits)
}
