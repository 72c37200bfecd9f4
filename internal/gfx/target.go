package gfx

import "errors"

// Target is an offscreen render destination: a straight-alpha RGBA
// framebuffer sized to the output resolution. Layers own their targets for
// their whole lifetime; the compositor only reads them.
type Target struct {
	w, h     int
	scale    float64
	pix      []Color
	released bool
}

// NewTarget allocates a target at logical size w x h scaled by pixelRatio.
func NewTarget(w, h int, pixelRatio float64) (*Target, error) {
	t := &Target{}
	if err := t.Resize(w, h, pixelRatio); err != nil {
		return nil, err
	}
	return t, nil
}

// Resize reallocates the backing buffer. Contents are discarded.
func (t *Target) Resize(w, h int, pixelRatio float64) error {
	if w <= 0 || h <= 0 {
		return errors.New("invalid target size")
	}
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	t.w = int(float64(w) * pixelRatio)
	t.h = int(float64(h) * pixelRatio)
	t.scale = pixelRatio
	t.pix = make([]Color, t.w*t.h)
	return nil
}

func (t *Target) Width() int          { return t.w }
func (t *Target) Height() int         { return t.h }
func (t *Target) PixelRatio() float64 { return t.scale }

// Clear fills the whole buffer with c.
func (t *Target) Clear(c Color) {
	for i := range t.pix {
		t.pix[i] = c
	}
}

// At returns the pixel at x,y; out-of-bounds reads return Transparent.
func (t *Target) At(x, y int) Color {
	if x < 0 || y < 0 || x >= t.w || y >= t.h {
		return Transparent
	}
	return t.pix[y*t.w+x]
}

// Set writes the pixel at x,y; out-of-bounds writes are dropped.
func (t *Target) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= t.w || y >= t.h {
		return
	}
	t.pix[y*t.w+x] = c
}

// Blend alpha-blends c over the existing pixel at x,y.
func (t *Target) Blend(x, y int, c Color) {
	if x < 0 || y < 0 || x >= t.w || y >= t.h {
		return
	}
	i := y*t.w + x
	t.pix[i] = Over(c, t.pix[i])
}

// FillRect fills the intersection of the rect with the buffer.
func (t *Target) FillRect(x, y, w, h int, c Color) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			t.Set(xx, yy, c)
		}
	}
}

// Pix exposes the raw buffer for per-pixel passes (compositor, sinks).
func (t *Target) Pix() []Color { return t.pix }

// Release drops the backing buffer. Further draws are no-ops; reads return
// Transparent. A target is released exactly once at manager dispose.
func (t *Target) Release() {
	t.pix = nil
	t.w, t.h = 0, 0
	t.released = true
}

func (t *Target) Released() bool { return t.released }

// Over applies the standard alpha-over operator, src over dst, straight
// alpha in and out.
func Over(src, dst Color) Color {
	inv := 1 - src.A
	return Color{
		R: src.R*src.A + dst.R*dst.A*inv,
		G: src.G*src.A + dst.G*dst.A*inv,
		B: src.B*src.A + dst.B*dst.A*inv,
		A: src.A + dst.A*inv,
	}
}
