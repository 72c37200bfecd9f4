// Package plasma is the classic interference-field effect: stacked sines
// over x, y, and radius, hue-cycled over time. Mid-band energy speeds the
// field up; beats kick the phase.
package plasma

import (
	"math"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/preset"
)

type Visual struct {
	cfg preset.Config

	phase float64
	now   float64
	snap  *audio.Snapshot
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

	speed := v.cfg.GetFloat("speed", 0.6)
	if v.snap != nil {
		speed += v.snap.Mid * v.cfg.GetFloat("audio.speed_boost", 1.0)
	}
	v.phase += speed * dt
}

func (v *Visual) UpdateConfig(path string, value any) { v.cfg.Set(path, value) }
func (v *Visual) SetAudio(s *audio.Snapshot)          { v.snap = s }
func (v *Visual) SetBPM(float64)                      {}

func (v *Visual) Beat() {
	v.phase += v.cfg.GetFloat("beat.kick", 0.25)
}

func (v *Visual) Dispose() { v.snap = nil }

func (v *Visual) draw(t *gfx.Target) {
	w, h := t.Width(), t.Height()
	if w == 0 || h == 0 {
		return
	}
	scale := v.cfg.GetFloat("scale", 3.0)
	hueBase := v.cfg.GetFloat("color.hue", 0.55)
	hueSpread := v.cfg.GetFloat("color.hue_spread", 0.15)
	sat := gfx.Clamp01(v.cfg.GetFloat("color.s", 0.9))
	bright := gfx.Clamp01(v.cfg.GetFloat("color.v", 0.85))

	p := v.phase
	fw, fh := float64(w), float64(h)
	for y := 0; y < h; y++ {
		ny := float64(y) / fh
		for x := 0; x < w; x++ {
			nx := float64(x) / fw
			cx := nx - 0.5 + 0.3*math.Sin(p/3)
			cy := ny - 0.5 + 0.3*math.Cos(p/2)
			f := math.Sin(nx*scale*math.Pi + p)
			f += math.Sin((ny*scale*math.Pi + p) / 2)
			f += math.Sin((nx+ny)*scale*math.Pi/2 + p)
			f += math.Sin(math.Sqrt(cx*cx+cy*cy)*scale*2*math.Pi + p)
			f /= 4 // back to -1..1

			hue := math.Mod(hueBase+hueSpread*f+1, 1)
			val := bright * (0.6 + 0.4*f*f)
			t.Set(x, y, gfx.HSV(hue, sat, val))
		}
	}
}
