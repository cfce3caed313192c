package geometry

import (
	"math"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

// floorDiv divides rounding toward negative infinity
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
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

// CenterBox computes a cropWidth x cropHeight box centred in a width x height
// image. Bounds are computed first and then clamped one at a time, so a crop
// larger than the image yields the whole image rather than a centred sub-box.
func CenterBox(width, height, cropWidth, cropHeight int) picture.Box {
	left := floorDiv(width-cropWidth, 2)
	top := floorDiv(height-cropHeight, 2)
	return picture.Box{
		Left:   clamp(left, 0, width),
		Top:    clamp(top, 0, height),
		Right:  clamp(left+cropWidth, 0, width),
		Bottom: clamp(top+cropHeight, 0, height),
	}
}

// ClampBox fits box inside a width x height image. The result never has
// Right < Left or Bottom < Top, though it may have zero area.
func ClampBox(box picture.Box, width, height int) picture.Box {
	left := clamp(box.Left, 0, width)
	top := clamp(box.Top, 0, height)
	return picture.Box{
		Left:   left,
		Top:    top,
		Right:  clamp(box.Right, left, width),
		Bottom: clamp(box.Bottom, top, height),
	}
}

// ScaleToFit returns the dimensions of width x height scaled by the largest
// factor that fits maxWidth x maxHeight. ok is false when that factor is at
// least 1, in which case the image already fits and is left alone.
func ScaleToFit(width, height, maxWidth, maxHeight int) (w, h int, ok bool) {
	scale := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	if scale >= 1 {
		return width, height, false
	}
	w = max(int(float64(width)*scale), 1)
	h = max(int(float64(height)*scale), 1)
	return w, h, true
}
