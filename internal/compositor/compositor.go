// Package compositor blends the per-layer render targets into the final
// output frame using back-to-front alpha-over compositing.
package compositor

import (
	"fmt"

	"github.com/coreman2200/luxdeck/internal/gfx"
)

// Input is one layer's contribution: its render-target texture, its stored
// opacity, and whether the layer is active. Inactive layers contribute
// zero regardless of stored opacity.
type Input struct {
	Tex     *gfx.Target
	Opacity float64
	Active  bool
}

// Compositor owns the output target and the blend parameters. It trusts
// its inputs; opacity clamping happens at the engine/layer boundary, so
// this stays a pure sampling/blend stage.
type Compositor struct {
	out      *gfx.Target
	global   float64
	post     PostPipeline
	disposed bool
}

func New(w, h int, pixelRatio float64) (*Compositor, error) {
	out, err := gfx.NewTarget(w, h, pixelRatio)
	if err != nil {
		return nil, fmt.Errorf("compositor output: %w", err)
	}
	return &Compositor{out: out, global: 1}, nil
}

// SetGlobalOpacity sets the master fade scalar applied to the composited
// alpha.
func (c *Compositor) SetGlobalOpacity(v float64) { c.global = v }

func (c *Compositor) GlobalOpacity() float64 { return c.global }

// SetPost installs the output post stage; zero value disables it.
func (c *Compositor) SetPost(p PostPipeline) { c.post = p }

// Composite clears the output to transparent and blends every input
// back-to-front with the over operator:
//
//	rgb = top.rgb*top.a + bottom.rgb*bottom.a*(1-top.a)
//	a   = top.a + bottom.a*(1-top.a)
//
// Each layer's source alpha is premultiplied by its effective opacity
// before blending, and the final alpha is scaled by the global opacity.
func (c *Compositor) Composite(inputs []Input) *gfx.Target {
	c.out.Clear(gfx.Transparent)
	pix := c.out.Pix()
	w, h := c.out.Width(), c.out.Height()

	for _, in := range inputs {
		eff := in.Opacity
		if !in.Active {
			eff = 0
		}
		if eff == 0 || in.Tex == nil {
			continue
		}
		op := float32(eff)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				src := in.Tex.At(x, y)
				src.A *= op
				i := y*w + x
				pix[i] = gfx.Over(src, pix[i])
			}
		}
	}

	if c.global != 1 {
		g := float32(c.global)
		for i := range pix {
			pix[i].A *= g
		}
	}

	c.post.Apply(c.out)
	return c.out
}

// Output exposes the composited target (read-only for callers).
func (c *Compositor) Output() *gfx.Target { return c.out }

// Resize matches the output target to a new resolution.
func (c *Compositor) Resize(w, h int, pixelRatio float64) error {
	return c.out.Resize(w, h, pixelRatio)
}

// Dispose releases the output target. Called once at engine shutdown.
func (c *Compositor) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.out.Release()
}
