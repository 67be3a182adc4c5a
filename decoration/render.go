package decoration

import (
	"errors"
	"image"
	"image/color"

	"github.com/bnema/waykit/internal/logger"
	"github.com/bnema/waykit/internal/raster"
	"github.com/bnema/waykit/shm"
)

var (
	colorActive   = argb(0xFF3A3A3A)
	colorInactive = argb(0xFF242424)
	colorHover    = argb(0xFF808080)
	colorIcon     = argb(0xFFCCCCCC)
)

func argb(v uint32) color.NRGBA {
	return color.NRGBA{A: uint8(v >> 24), R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// Draw renders the dirty frame and commits every part. It returns false
// when nothing was drawn because the frame is hidden. A part whose buffer
// the compositor still holds is skipped and the frame stays dirty.
func (f *Frame) Draw() (bool, error) {
	if f.IsHidden() {
		return false, nil
	}
	sync := f.sync
	f.sync = false
	f.dirty = false

	if f.state.Has(StateFullscreen) {
		var errs []error
		for _, p := range f.parts {
			errs = append(errs, p.surface.Attach(nil, 0, 0), p.surface.Commit())
		}
		return true, errors.Join(errs...)
	}

	scale := f.bufferScale()
	fill := colorInactive
	if f.state.Has(StateActivated) {
		fill = colorActive
	}

	for i, p := range f.parts {
		if p.width == 0 || p.height == 0 {
			continue
		}
		part := Part(i)
		width := int(p.width) * int(scale)
		height := int(p.height) * int(scale)
		stride := width * 4

		_, buf, pix, err := f.pool.Get(part, width, stride, height, shm.FormatARGB8888)
		if errors.Is(err, shm.ErrNotFound) || errors.Is(err, shm.ErrOverlap) {
			// new part, or the part outgrew its slot
			_, buf, pix, err = f.pool.CreateBuffer(part, width, stride, height, shm.FormatARGB8888)
		}
		if errors.Is(err, shm.ErrInUse) {
			logger.Debug("frame buffer busy", "part", part)
			f.dirty = true
			continue
		}
		if err != nil {
			return true, err
		}

		canvas := raster.NewCanvas(pix, width, height, stride)
		canvas.Fill(canvas.Bounds(), fill)
		if part == PartHeader {
			f.drawButtons(canvas, float32(scale))
		}

		if err := f.commitPart(p, buf, scale, sync); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (f *Frame) commitPart(p *framePart, buf *shm.Buffer, scale int32, sync bool) error {
	if err := p.surface.SetBufferScale(scale); err != nil {
		return err
	}
	if sync {
		if err := p.sub.SetSync(); err != nil {
			return err
		}
	} else if err := p.sub.SetDesync(); err != nil {
		return err
	}
	if err := p.sub.SetPosition(p.x, p.y); err != nil {
		return err
	}
	if err := buf.AttachTo(p.surface, 0, 0); err != nil {
		return err
	}
	if err := p.surface.DamageBuffer(0, 0, 1<<31-1, 1<<31-1); err != nil {
		return err
	}
	return p.surface.Commit()
}

// drawButtons draws the buttons from the right edge of the header canvas.
func (f *Frame) drawButtons(c raster.Canvas, scale float32) {
	size := HeaderSize * scale
	for i, b := range f.buttons {
		x1 := float32(c.Width) - float32(i)*size
		x0 := x1 - size
		if x0 < 0 {
			break
		}
		if f.location == buttonLocation(b) {
			c.Fill(image.Rect(int(x0), 0, int(x1), c.Height), colorHover)
		}

		// icons sit in the middle half of the button
		pad := size / 4
		l, t, r, btm := x0+pad, pad, x1-pad, size-pad
		stroke := scale
		switch b {
		case ButtonClose:
			c.FillPolygons(colorIcon,
				raster.Line(l, t, r, btm, stroke),
				raster.Line(r, t, l, btm, stroke),
			)
		case ButtonMaximize:
			if f.state.Has(StateMaximized) {
				// restore: a smaller box offset up and right
				o := pad / 3
				c.FillPolygons(colorIcon, outline(l+o, t, r, btm-o, stroke)...)
				c.FillPolygons(colorIcon, outline(l, t+o, r-o, btm, stroke)...)
				continue
			}
			c.FillPolygons(colorIcon, outline(l, t, r, btm, stroke)...)
		case ButtonMinimize:
			c.FillPolygons(colorIcon, raster.Rect(l, btm-stroke, r, btm))
		}
	}
}

// outline returns the four edges of a box as rectangles.
func outline(x0, y0, x1, y1, w float32) []raster.Polygon {
	return []raster.Polygon{
		raster.Rect(x0, y0, x1, y0+w),
		raster.Rect(x0, y1-w, x1, y1),
		raster.Rect(x0, y0, x0+w, y1),
		raster.Rect(x1-w, y0, x1, y1),
	}
}
