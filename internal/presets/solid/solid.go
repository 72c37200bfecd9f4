// Package solid is the simplest built-in preset: a full-frame wash of one
// color, optionally pulsing on beats and breathing with the low band.
package solid

import (
	"math"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/preset"
)

type Visual struct {
	cfg preset.Config

	level float64 // smoothed low-band energy
	pulse float64 // beat flash envelope
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

	target := 0.0
	if v.snap != nil {
		target = v.snap.Low * v.cfg.GetFloat("audio.gain", 1.0)
	}
	// fast attack, slow release
	if target > v.level {
		v.level = target
	} else {
		v.level += (target - v.level) * math.Min(1, dt*4)
	}

	decay := v.cfg.GetFloat("pulse.decay", 3.0)
	v.pulse *= math.Exp(-decay * dt)
}

func (v *Visual) UpdateConfig(path string, value any) { v.cfg.Set(path, value) }
func (v *Visual) SetAudio(s *audio.Snapshot)          { v.snap = s }
func (v *Visual) SetBPM(float64)                      {}

func (v *Visual) Beat() {
	if v.cfg.GetBool("pulse.enabled", true) {
		v.pulse = 1
	}
}

func (v *Visual) Dispose() { v.snap = nil }

func (v *Visual) draw(t *gfx.Target) {
	h := v.cfg.GetFloat("color.h", 0.6)
	s := v.cfg.GetFloat("color.s", 0.8)
	val := v.cfg.GetFloat("color.v", 0.7)

	boost := v.cfg.GetFloat("audio.boost", 0.3)*v.level + 0.4*v.pulse
	val = gfx.Clamp01(val + boost)

	c := gfx.HSV(h, s, val)
	t.FillRect(0, 0, t.Width(), t.Height(), c)
}
