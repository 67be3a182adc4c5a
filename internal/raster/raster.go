// Package raster draws the toolkit's built-in graphics (decoration parts,
// the software cursor) into ARGB8888 shared memory.
package raster

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
)

// Canvas is little-endian ARGB8888 pixel memory with premultiplied alpha.
type Canvas struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// NewCanvas wraps pix; stride is in bytes.
func NewCanvas(pix []byte, width, height, stride int) Canvas {
	return Canvas{Pix: pix, Width: width, Height: height, Stride: stride}
}

// Bounds returns the canvas rectangle.
func (c Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// At returns the pixel at (x, y).
func (c Canvas) At(x, y int) color.RGBA {
	if !image.Pt(x, y).In(c.Bounds()) {
		return color.RGBA{}
	}
	i := y*c.Stride + x*4
	return color.RGBA{B: c.Pix[i], G: c.Pix[i+1], R: c.Pix[i+2], A: c.Pix[i+3]}
}

func (c Canvas) set(x, y int, p color.RGBA) {
	i := y*c.Stride + x*4
	c.Pix[i] = p.B
	c.Pix[i+1] = p.G
	c.Pix[i+2] = p.R
	c.Pix[i+3] = p.A
}

// Clear sets every pixel to transparent.
func (c Canvas) Clear() {
	c.Fill(c.Bounds(), color.NRGBA{})
}

// Fill replaces the pixels of r with col.
func (c Canvas) Fill(r image.Rectangle, col color.NRGBA) {
	r = r.Intersect(c.Bounds())
	p := premul(col)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c.set(x, y, p)
		}
	}
}

// Polygon is a closed outline in pixel coordinates.
type Polygon [][2]float32

// Rect returns the outline of a rectangle.
func Rect(x0, y0, x1, y1 float32) Polygon {
	return Polygon{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// Line returns the outline of a segment of the given thickness.
func Line(x0, y0, x1, y1, width float32) Polygon {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	return Polygon{
		{x0 + nx, y0 + ny},
		{x1 + nx, y1 + ny},
		{x1 - nx, y1 - ny},
		{x0 - nx, y0 - ny},
	}
}

// FillPolygons composites col over the union of polys with antialiasing.
func (c Canvas) FillPolygons(col color.NRGBA, polys ...Polygon) {
	if c.Width == 0 || c.Height == 0 {
		return
	}
	vr := vector.NewRasterizer(c.Width, c.Height)
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		vr.MoveTo(poly[0][0], poly[0][1])
		for _, pt := range poly[1:] {
			vr.LineTo(pt[0], pt[1])
		}
		vr.ClosePath()
	}
	mask := image.NewAlpha(c.Bounds())
	vr.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	src := premul(col)
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			cov := mask.AlphaAt(x, y).A
			if cov == 0 {
				continue
			}
			c.set(x, y, over(scale(src, cov), c.At(x, y)))
		}
	}
}

func premul(c color.NRGBA) color.RGBA {
	a := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: c.A,
	}
}

func scale(c color.RGBA, cov uint8) color.RGBA {
	k := uint32(cov)
	return color.RGBA{
		R: uint8(uint32(c.R) * k / 255),
		G: uint8(uint32(c.G) * k / 255),
		B: uint8(uint32(c.B) * k / 255),
		A: uint8(uint32(c.A) * k / 255),
	}
}

// over composites premultiplied src over dst.
func over(src, dst color.RGBA) color.RGBA {
	inv := 255 - uint32(src.A)
	return color.RGBA{
		R: src.R + uint8(uint32(dst.R)*inv/255),
		G: src.G + uint8(uint32(dst.G)*inv/255),
		B: src.B + uint8(uint32(dst.B)*inv/255),
		A: src.A + uint8(uint32(dst.A)*inv/255),
	}
}
