package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"slices"
)

const (
	thresholdBlock = 11
	thresholdC     = 2
	medianWindow   = 3
)

// Preprocess prepares a page for OCR: grayscale, adaptive Gaussian
// thresholding, then a 3x3 median blur to remove speckles.
func Preprocess(img image.Image) *image.Gray {
	return medianBlur(adaptiveThreshold(grayscale(img), thresholdBlock, thresholdC), medianWindow)
}

func grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// gaussianKernel returns a normalized 1-D kernel using the sigma OpenCV
// derives from the kernel size when none is given.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// adaptiveThreshold sets a pixel white when it is brighter than the Gaussian
// weighted mean of its block minus c, black otherwise. Borders replicate.
func adaptiveThreshold(src *image.Gray, block int, c float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	if w == 0 || h == 0 {
		return dst
	}
	k := gaussianKernel(block)
	half := block / 2

	horiz := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			var s float64
			for i, kv := range k {
				s += kv * float64(row[clamp(x+i-half, 0, w-1)])
			}
			horiz[y*w+x] = s
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var mean float64
			for i, kv := range k {
				mean += kv * horiz[clamp(y+i-half, 0, h-1)*w+x]
			}
			if float64(src.Pix[y*src.Stride+x]) > mean-c {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

func medianBlur(src *image.Gray, window int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	half := window / 2
	buf := make([]uint8, 0, window*window)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf = buf[:0]
			for dy := -half; dy <= half; dy++ {
				row := clamp(y+dy, 0, h-1) * src.Stride
				for dx := -half; dx <= half; dx++ {
					buf = append(buf, src.Pix[row+clamp(x+dx, 0, w-1)])
				}
			}
			slices.Sort(buf)
			dst.SetGray(dst.Rect.Min.X+x, dst.Rect.Min.Y+y, color.Gray{Y: buf[len(buf)/2]})
		}
	}
	return dst
}
