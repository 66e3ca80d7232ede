// SPDX-License-Identifier: MIT
package artwork

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidImage fills a WxH image with one color.
func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// quadImage builds an image with a distinct solid color per quadrant.
func quadImage(w, h int, tl, tr, bl, br color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c color.RGBA
			switch {
			case x < w/2 && y < h/2:
				c = tl
			case x >= w/2 && y < h/2:
				c = tr
			case x < w/2 && y >= h/2:
				c = bl
			default:
				c = br
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDominantColor_MidtoneAverage(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{R: 128, G: 64, B: 32, A: 255})
	got := DominantColor(img)

	// Expected: midtone pixel survives the band filter, then the average is
	// desaturated by 0.6 and darkened by 0.3.
	want := RGB{R: 128.0 / 255, G: 64.0 / 255, B: 32.0 / 255}.Desaturate(0.6).Darken(0.3)
	assert.InDelta(t, want.R, got.R, 1e-9)
	assert.InDelta(t, want.G, got.G, 1e-9)
	assert.InDelta(t, want.B, got.B, 1e-9)
}

func TestDominantColor_AllBlackFallsBack(t *testing.T) {
	img := solidImage(50, 50, color.RGBA{A: 255}) // channel sum 0 < 50
	got := DominantColor(img)
	assert.Equal(t, defaultDominant, got)
}

func TestDominantColor_AllWhiteFallsBack(t *testing.T) {
	img := solidImage(50, 50, color.RGBA{R: 255, G: 255, B: 255, A: 255}) // sum 765 > 700
	got := DominantColor(img)
	assert.Equal(t, defaultDominant, got)
}

func TestExtractPalette_QuadrantColors(t *testing.T) {
	red := color.RGBA{R: 200, A: 255}
	green := color.RGBA{G: 200, A: 255}
	blue := color.RGBA{B: 200, A: 255}
	grey := color.RGBA{R: 100, G: 100, B: 100, A: 255}

	img := quadImage(160, 160, red, green, blue, grey)
	pal := ExtractPalette(img)

	// Corner hue ordering must survive the averaging and the mild
	// desaturate/darken pass.
	assert.Greater(t, pal[0].R, pal[0].G, "top-left should stay red-dominant")
	assert.Greater(t, pal[1].G, pal[1].R, "top-right should stay green-dominant")
	assert.Greater(t, pal[2].B, pal[2].R, "bottom-left should stay blue-dominant")
	assert.InDelta(t, pal[3].R, pal[3].G, 1e-9, "bottom-right grey stays balanced")
}

func TestExtractPalette_Idempotent(t *testing.T) {
	img := quadImage(80, 80,
		color.RGBA{R: 10, G: 200, B: 30, A: 255},
		color.RGBA{R: 220, G: 10, B: 90, A: 255},
		color.RGBA{R: 60, G: 60, B: 200, A: 255},
		color.RGBA{R: 140, G: 140, B: 10, A: 255})

	first := ExtractPalette(img)
	second := ExtractPalette(img)
	assert.Equal(t, first, second)
}

func TestExtractPalette_DegenerateImageKeepsDefaults(t *testing.T) {
	// A 1-pixel-wide image stays 1 pixel wide after the fit-resize, so
	// midX == 0, no pixel satisfies x < midX, and the left quadrants keep
	// the neutral default.
	img := solidImage(1, 1000, color.RGBA{R: 250, G: 0, B: 0, A: 255})
	pal := ExtractPalette(img)
	assert.Equal(t, defaultCorner, pal[0])
	assert.Equal(t, defaultCorner, pal[2])
}

func TestQuadrantPartition_Exhaustive(t *testing.T) {
	// Every pixel of an even-sized image lands in exactly one quadrant and
	// the four counts sum to the pixel total.
	const w, h = 8, 6
	midX, midY := w/2, h/2
	var counts [4]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x < midX && y < midY:
				counts[0]++
			case x >= midX && y < midY:
				counts[1]++
			case x < midX && y >= midY:
				counts[2]++
			default:
				counts[3]++
			}
		}
	}
	assert.Equal(t, w*h, counts[0]+counts[1]+counts[2]+counts[3])
	for i, n := range counts {
		assert.Equal(t, (w/2)*(h/2), n, "quadrant %d", i)
	}
}

func TestResizeNearest_FitsWithinBounds(t *testing.T) {
	img := solidImage(400, 100, color.RGBA{R: 50, G: 50, B: 50, A: 255})
	small := resizeNearest(img, 80, 80)
	require.NotNil(t, small)
	assert.LessOrEqual(t, small.Bounds().Dx(), 80)
	assert.LessOrEqual(t, small.Bounds().Dy(), 80)
	// Aspect ratio preserved: 400x100 -> 80x20.
	assert.Equal(t, 80, small.Bounds().Dx())
	assert.Equal(t, 20, small.Bounds().Dy())
}

func TestHSVRoundTrip(t *testing.T) {
	cases := []RGB{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.5, 0.25, 0.75},
		{0.2, 0.2, 0.2},
	}
	for _, c := range cases {
		h, s, v := rgbToHSV(c.R, c.G, c.B)
		r, g, b := hsvToRGB(h, s, v)
		assert.InDelta(t, c.R, r, 1e-9)
		assert.InDelta(t, c.G, g, 1e-9)
		assert.InDelta(t, c.B, b, 1e-9)
	}
}

func TestDesaturateReducesSaturation(t *testing.T) {
	c := RGB{R: 0.9, G: 0.1, B: 0.1}
	d := c.Desaturate(0.5)
	_, s0, _ := rgbToHSV(c.R, c.G, c.B)
	_, s1, _ := rgbToHSV(d.R, d.G, d.B)
	assert.InDelta(t, s0*0.5, s1, 1e-9)
}

func TestCSS(t *testing.T) {
	assert.Equal(t, "rgb(255, 0, 127)", RGB{R: 1, G: 0, B: 0.5}.CSS())
}
