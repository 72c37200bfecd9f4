// Package marquee scrolls a line of text across the frame using a built-in
// 5x7 bitmap font. The "text" config key makes it the canonical templated
// family: each derived sibling carries its own message.
package marquee

import (
	"math"
	"strings"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/preset"
)

type Visual struct {
	cfg preset.Config

	offset float64 // scroll position in cells
	now    float64
	pulse  float64
	snap   *audio.Snapshot
}

func New() preset.Instance { return &Visual{} }

func (v *Visual) Init(scene *gfx.Scene, cfg preset.Config) error {
	v.cfg = cfg
	scene.Add(gfx.NodeFunc(v.draw))
	return nil
}

func (v *Visual) Update(now float64) {
	dt := now - v.now
	if dt < 0 || dt > 1 {
		dt = 1.0 / 60
	}
	v.now = now

	speed := v.cfg.GetFloat("speed", 12.0) // cells per second
	if v.snap != nil {
		speed *= 1 + v.snap.High*v.cfg.GetFloat("audio.speed_boost", 0.5)
	}
	v.offset += speed * dt
	v.pulse *= math.Exp(-5 * dt)
}

func (v *Visual) UpdateConfig(path string, value any) { v.cfg.Set(path, value) }
func (v *Visual) SetAudio(s *audio.Snapshot)          { v.snap = s }
func (v *Visual) SetBPM(float64)                      {}
func (v *Visual) Beat()                               { v.pulse = 1 }
func (v *Visual) Dispose()                            { v.snap = nil }

func (v *Visual) draw(t *gfx.Target) {
	w, h := t.Width(), t.Height()
	if w == 0 || h == 0 {
		return
	}
	text := []rune(strings.ToUpper(v.cfg.GetString("text", "LUXDECK")))
	if len(text) == 0 {
		return
	}

	// cell size: scale the font to a fraction of the frame height
	cell := int(v.cfg.GetFloat("size", 0.12) * float64(h) / float64(glyphH))
	if cell < 1 {
		cell = 1
	}
	textW := len(text) * (glyphW + 1) * cell
	span := w + textW

	// wrap the scroll offset so the run is seamless; start with the text
	// already on screen instead of a full blank lead-in
	px := (int(v.offset*float64(cell)) + w) % span
	x0 := w - px

	val := gfx.Clamp01(v.cfg.GetFloat("color.v", 0.95) + 0.3*v.pulse)
	fg := gfx.HSV(v.cfg.GetFloat("color.h", 0.12), v.cfg.GetFloat("color.s", 0.9), val)
	y0 := (h - glyphH*cell) / 2

	if bg := v.cfg.GetFloat("bg.alpha", 0.0); bg > 0 {
		t.FillRect(0, 0, w, h, gfx.Color{A: float32(gfx.Clamp01(bg))})
	}

	for i, r := range text {
		rows, ok := font[r]
		if !ok {
			continue
		}
		gx := x0 + i*(glyphW+1)*cell
		if gx > w || gx+glyphW*cell < 0 {
			continue
		}
		for ry := 0; ry < glyphH; ry++ {
			bits := rows[ry]
			for rx := 0; rx < glyphW; rx++ {
				if bits&(1<<(glyphW-1-rx)) == 0 {
					continue
				}
				t.FillRect(gx+rx*cell, y0+ry*cell, cell, cell, fg)
			}
		}
	}
}
