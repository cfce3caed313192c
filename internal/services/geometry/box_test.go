package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{7, 2, 3},
		{-7, 2, -4},
		{-50, 2, -25},
		{-49, 2, -25},
		{0, 2, 0},
		{6, -4, -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, floorDiv(tt.a, tt.b), "%d div %d", tt.a, tt.b)
	}
}

func TestCenterBox(t *testing.T) {
	tests := []struct {
		name               string
		w, h, cropW, cropH int
		want               picture.Box
	}{
		{"centered inside", 100, 80, 40, 20, picture.Box{Left: 30, Top: 30, Right: 70, Bottom: 50}},
		{"odd remainder rounds down", 11, 11, 4, 4, picture.Box{Left: 3, Top: 3, Right: 7, Bottom: 7}},
		{"full size", 50, 50, 50, 50, picture.Box{Left: 0, Top: 0, Right: 50, Bottom: 50}},
		{"larger than image", 50, 50, 100, 100, picture.Box{Left: 0, Top: 0, Right: 50, Bottom: 50}},
		{"larger on one axis", 50, 20, 30, 60, picture.Box{Left: 10, Top: 0, Right: 40, Bottom: 20}},
		{"odd oversize", 51, 51, 100, 100, picture.Box{Left: 0, Top: 0, Right: 51, Bottom: 51}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CenterBox(tt.w, tt.h, tt.cropW, tt.cropH))
		})
	}
}

func TestCenterBox_InsideSource(t *testing.T) {
	for w := 1; w <= 12; w++ {
		for cw := 1; cw <= w; cw++ {
			box := CenterBox(w, w, cw, cw)
			assert.Equal(t, cw, box.Width())
			assert.GreaterOrEqual(t, box.Left, 0)
			assert.LessOrEqual(t, box.Right, w)
			// the slack on each side differs by at most one pixel
			assert.LessOrEqual(t, (w-box.Right)-box.Left, 1)
			assert.GreaterOrEqual(t, (w-box.Right)-box.Left, 0)
		}
	}
}

func TestClampBox(t *testing.T) {
	tests := []struct {
		name string
		in   picture.Box
		want picture.Box
	}{
		{"inside", picture.Box{Left: 1, Top: 2, Right: 5, Bottom: 6}, picture.Box{Left: 1, Top: 2, Right: 5, Bottom: 6}},
		{"negative origin", picture.Box{Left: -5, Top: -5, Right: 5, Bottom: 5}, picture.Box{Left: 0, Top: 0, Right: 5, Bottom: 5}},
		{"past the edge", picture.Box{Left: 5, Top: 5, Right: 100, Bottom: 100}, picture.Box{Left: 5, Top: 5, Right: 10, Bottom: 8}},
		{"inverted", picture.Box{Left: 8, Top: 6, Right: 2, Bottom: 1}, picture.Box{Left: 8, Top: 6, Right: 8, Bottom: 6}},
		{"entirely outside", picture.Box{Left: 20, Top: 20, Right: 30, Bottom: 30}, picture.Box{Left: 10, Top: 8, Right: 10, Bottom: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampBox(tt.in, 10, 8)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Right, got.Left)
			assert.GreaterOrEqual(t, got.Bottom, got.Top)
		})
	}
}

func TestClampBox_AlwaysOrdered(t *testing.T) {
	for _, l := range []int{-3, 0, 4, 12} {
		for _, r := range []int{-1, 2, 9, 20} {
			got := ClampBox(picture.Box{Left: l, Top: r, Right: r, Bottom: l}, 10, 10)
			assert.GreaterOrEqual(t, got.Right, got.Left)
			assert.GreaterOrEqual(t, got.Bottom, got.Top)
			assert.True(t, got.Left >= 0 && got.Right <= 10 && got.Top >= 0 && got.Bottom <= 10)
		}
	}
}

func TestScaleToFit(t *testing.T) {
	tests := []struct {
		name             string
		w, h, maxW, maxH int
		scaled           bool
	}{
		{"landscape into 16:9", 4000, 3000, 1920, 1080, true},
		{"portrait", 3000, 4000, 1000, 1000, true},
		{"already fits", 800, 600, 1920, 1080, false},
		{"exact fit", 1920, 1080, 1920, 1080, false},
		{"thin strip", 10000, 3, 100, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := ScaleToFit(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.scaled, ok)
			if !ok {
				assert.Equal(t, tt.w, w)
				assert.Equal(t, tt.h, h)
				return
			}
			scale := math.Min(float64(tt.maxW)/float64(tt.w), float64(tt.maxH)/float64(tt.h))
			assert.Equal(t, max(int(float64(tt.w)*scale), 1), w)
			assert.Equal(t, max(int(float64(tt.h)*scale), 1), h)
			assert.LessOrEqual(t, w, tt.maxW)
			assert.LessOrEqual(t, h, tt.maxH)
		})
	}
}

func TestScaleToFit_Landscape(t *testing.T) {
	w, h, ok := ScaleToFit(4000, 3000, 1920, 1080)
	assert.True(t, ok)
	assert.Equal(t, 1440, w)
	assert.Equal(t, 1080, h)
}

func TestScaleToFit_NeverBelowOnePixel(t *testing.T) {
	w, h, ok := ScaleToFit(10000, 3, 100, 100)
	assert.True(t, ok)
	assert.Equal(t, 100, w)
	assert.Equal(t, 1, h)
}
