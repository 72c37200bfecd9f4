// Package bars renders the audio spectrum as vertical columns with smoothed
// attack/release, the standard analyzer look.
package bars

import (
	"math"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/preset"
)

type Visual struct {
	cfg preset.Config

	levels []float64 // smoothed per-bar values
	snap   *audio.Snapshot
	now    float64
	flash  float64
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
	v.flash *= math.Exp(-4 * dt)

	count := v.barCount()
	if len(v.levels) != count {
		v.levels = make([]float64, count)
	}
	attack := v.cfg.GetFloat("smooth.attack", 0.6)
	release := v.cfg.GetFloat("smooth.release", 3.0)
	gain := v.cfg.GetFloat("audio.gain", 1.0)
	for i := range v.levels {
		target := 0.0
		if v.snap != nil {
			target = gfx.Clamp01(v.sample(i, count) * gain)
		}
		if target > v.levels[i] {
			v.levels[i] += (target - v.levels[i]) * math.Min(1, attack*60*dt)
		} else {
			v.levels[i] += (target - v.levels[i]) * math.Min(1, release*dt)
		}
	}
}

// sample maps bar i onto the spectrum, averaging the bins it covers.
func (v *Visual) sample(i, count int) float64 {
	bins := len(v.snap.Spectrum)
	if bins == 0 {
		return 0
	}
	lo := i * bins / count
	hi := (i + 1) * bins / count
	if hi <= lo {
		hi = lo + 1
	}
	sum := 0.0
	for b := lo; b < hi && b < bins; b++ {
		sum += v.snap.Band(b)
	}
	return sum / float64(hi-lo)
}

func (v *Visual) barCount() int {
	n := int(v.cfg.GetFloat("bars.count", 24))
	if n < 1 {
		n = 1
	}
	if n > 128 {
		n = 128
	}
	return n
}

func (v *Visual) UpdateConfig(path string, value any) { v.cfg.Set(path, value) }
func (v *Visual) SetAudio(s *audio.Snapshot)          { v.snap = s }
func (v *Visual) SetBPM(float64)                      {}
func (v *Visual) Beat()                               { v.flash = 1 }
func (v *Visual) Dispose()                            { v.snap = nil; v.levels = nil }

func (v *Visual) draw(t *gfx.Target) {
	w, h := t.Width(), t.Height()
	count := len(v.levels)
	if count == 0 || w == 0 || h == 0 {
		return
	}
	gap := v.cfg.GetFloat("bars.gap", 0.2)
	if gap < 0 {
		gap = 0
	}
	if gap > 0.9 {
		gap = 0.9
	}
	hueStart := v.cfg.GetFloat("color.hue_start", 0.0)
	hueRange := v.cfg.GetFloat("color.hue_range", 0.7)
	mirror := v.cfg.GetBool("bars.mirror", false)

	slot := float64(w) / float64(count)
	barW := int(slot * (1 - gap))
	if barW < 1 {
		barW = 1
	}
	for i, lvl := range v.levels {
		lvl = gfx.Clamp01(lvl + 0.15*v.flash)
		bh := int(lvl * float64(h))
		if bh == 0 {
			continue
		}
		x := int(float64(i) * slot)
		hue := hueStart + hueRange*float64(i)/float64(count)
		c := gfx.HSV(math.Mod(hue, 1), 0.85, 0.9)
		if mirror {
			mid := h / 2
			half := bh / 2
			if half < 1 {
				half = 1
			}
			t.FillRect(x, mid-half, barW, half*2, c)
		} else {
			t.FillRect(x, h-bh, barW, bh, c)
		}
	}
}
