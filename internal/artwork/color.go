// SPDX-License-Identifier: MIT
//
// Package artwork derives ambient colors from cover images and resolves
// which image file belongs to a track.
package artwork

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
)

// RGB holds one color with channels in [0.0, 1.0].
type RGB struct {
	R, G, B float64
}

// Palette is a 4-corner bilinear color field indexed top-left, top-right,
// bottom-left, bottom-right.
type Palette [4]RGB

const (
	dominantSize = 150 // Downsample bound for dominant-color extraction.
	paletteSize  = 80  // Downsample bound for quadrant palette extraction.

	// Midtone band: pixels whose channel sum falls outside are treated as
	// letterboxing/background and excluded from the dominant average.
	midtoneLow  = 50
	midtoneHigh = 700
)

// Neutral fallbacks when no pixel qualifies.
var (
	defaultDominant = RGB{R: 0.4, G: 0.3, B: 0.35}
	defaultCorner   = RGB{R: 0.2, G: 0.15, B: 0.2}
)

// DefaultPalette returns the neutral palette used before any artwork has
// been extracted.
func DefaultPalette() Palette {
	return Palette{defaultCorner, defaultCorner, defaultCorner, defaultCorner}
}

// CSS renders the color as a CSS rgb() string for renderers that take one.
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)",
		uint8(c.R*255), uint8(c.G*255), uint8(c.B*255))
}

// Darken scales all channels by factor.
func (c RGB) Darken(factor float64) RGB {
	return RGB{R: c.R * factor, G: c.G * factor, B: c.B * factor}
}

// Desaturate scales saturation by (1 - amount) in HSV space.
func (c RGB) Desaturate(amount float64) RGB {
	h, s, v := rgbToHSV(c.R, c.G, c.B)
	r, g, b := hsvToRGB(h, s*(1-amount), v)
	return RGB{R: r, G: g, B: b}
}

// DominantColor averages the midtone pixels of img and applies a strong
// desaturation and darkening so the result can sit behind text. Returns a
// neutral brownish default when no pixel is inside the midtone band.
func DominantColor(img image.Image) RGB {
	small := resizeNearest(img, dominantSize, dominantSize)
	if small == nil {
		return defaultDominant
	}

	var rTotal, gTotal, bTotal, count uint64
	bounds := small.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := rgb8(small.At(x, y))
			sum := r + g + b
			if sum <= midtoneLow || sum >= midtoneHigh {
				continue
			}
			rTotal += r
			gTotal += g
			bTotal += b
			count++
		}
	}
	if count == 0 {
		return defaultDominant
	}

	avg := RGB{
		R: float64(rTotal/count) / 255.0,
		G: float64(gTotal/count) / 255.0,
		B: float64(bTotal/count) / 255.0,
	}
	return avg.Desaturate(0.6).Darken(0.3)
}

// ExtractPalette averages each spatial quadrant of img independently and
// applies a lighter desaturation/darkening than DominantColor so the corners
// stay vibrant enough for a gradient field. Quadrants with no pixels keep the
// neutral default.
func ExtractPalette(img image.Image) Palette {
	palette := DefaultPalette()

	small := resizeNearest(img, paletteSize, paletteSize)
	if small == nil {
		return palette
	}

	bounds := small.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	type accum struct{ r, g, b, count uint64 }
	var quadrants [4]accum

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := rgb8(small.At(bounds.Min.X+x, bounds.Min.Y+y))

			qi := 0
			switch {
			case x < midX && y < midY:
				qi = 0 // top-left
			case x >= midX && y < midY:
				qi = 1 // top-right
			case x < midX && y >= midY:
				qi = 2 // bottom-left
			default:
				qi = 3 // bottom-right
			}
			quadrants[qi].r += r
			quadrants[qi].g += g
			quadrants[qi].b += b
			quadrants[qi].count++
		}
	}

	for i, q := range quadrants {
		if q.count == 0 {
			continue
		}
		avg := RGB{
			R: float64(q.r/q.count) / 255.0,
			G: float64(q.g/q.count) / 255.0,
			B: float64(q.b/q.count) / 255.0,
		}
		palette[i] = avg.Desaturate(0.1).Darken(0.65)
	}
	return palette
}

// DominantColorFromFile decodes path and extracts its dominant color.
func DominantColorFromFile(path string) (RGB, error) {
	img, err := loadImage(path)
	if err != nil {
		return RGB{}, err
	}
	return DominantColor(img), nil
}

// PaletteFromFile decodes path and extracts its 4-corner palette.
func PaletteFromFile(path string) (Palette, error) {
	img, err := loadImage(path)
	if err != nil {
		return Palette{}, err
	}
	return ExtractPalette(img), nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artwork: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("artwork: decode %s: %w", path, err)
	}
	return img, nil
}

// resizeNearest downsamples img with nearest-neighbour sampling so that it
// fits within maxW x maxH, preserving aspect ratio. Returns nil for
// degenerate source dimensions.
func resizeNearest(img image.Image, maxW, maxH int) *image.RGBA {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil
	}

	ratio := math.Min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	dstW := int(math.Round(float64(srcW) * ratio))
	dstH := int(math.Round(float64(srcH) * ratio))
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		srcY := bounds.Min.Y + y*srcH/dstH
		for x := 0; x < dstW; x++ {
			srcX := bounds.Min.X + x*srcW/dstW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

// rgb8 flattens a color to 8-bit channels.
func rgb8(c color.Color) (uint64, uint64, uint64) {
	r, g, b, _ := c.RGBA()
	return uint64(r >> 8), uint64(g >> 8), uint64(b >> 8)
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	switch {
	case delta == 0:
		h = 0
	case max == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case max == g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}

	if max != 0 {
		s = delta / max
	}
	return h, s, max
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	switch int(h) / 60 {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}
