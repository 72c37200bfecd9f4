package cue

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Cues) == 0 {
		return errors.New("program has no cues")
	}
	for i, c := range prog.Cues {
		if c.DurationS <= 0 {
			return fmt.Errorf("cue %d (%s) has non-positive duration", i, c.Name)
		}
	}
	p.prog = prog
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	p.lastGlob = -1
	return nil
}

// Start moves to Running and applies the first cue.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Cues) == 0 {
		return
	}
	p.State = Running
	if p.prog.BPM > 0 && p.hooks.SetBPM != nil {
		p.hooks.SetBPM(p.prog.BPM)
	}
	p.enterCue(p.idx)
}

// Pause pauses playback.
func (p *Player) Pause() { p.State = Paused }

// Resume resumes playback.
func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops, resets to the program start, and deactivates every layer the
// current cue touched.
func (p *Player) Stop() {
	if p.State != Idle && len(p.prog.Cues) > 0 {
		p.clearCue(p.prog.Cues[p.idx])
	}
	p.State = Idle
	p.nowS = 0
	p.idx = 0
	p.lastGlob = -1
}

// Seek jumps to absolute program time t. Clamps into [0, totalDur).
func (p *Player) Seek(t float64) {
	if len(p.prog.Cues) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	total := p.totalDuration()
	if total > 0 && t >= total {
		t = math.Nextafter(total, -1)
	}
	acc := 0.0
	idx := 0
	for i, c := range p.prog.Cues {
		if t < acc+c.DurationS {
			idx = i
			break
		}
		acc += c.DurationS
	}
	if idx != p.idx && p.State != Idle {
		p.clearCue(p.prog.Cues[p.idx])
	}
	p.idx = idx
	p.nowS = t
	if p.State == Running {
		p.enterCue(p.idx)
	}
}

// Tick advances the show by dt seconds and emits control hooks.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Cues) == 0 || dt <= 0 {
		return
	}
	p.nowS += dt

	c, localT := p.currentCueAndLocalT()

	for layerID, a := range c.Layers {
		op := 1.0
		if a.Opacity != nil {
			op = clamp01(a.Opacity.Eval(localT))
		}
		if a.FadeInS > 0 && localT < a.FadeInS {
			op *= clamp01(localT / a.FadeInS)
		}
		if p.hooks.SetLayerOpacity != nil {
			p.hooks.SetLayerOpacity(layerID, op)
		}
		for path, env := range a.Params {
			if p.hooks.SetParam != nil {
				p.hooks.SetParam(layerID, path, env.Eval(localT))
			}
		}
	}

	if c.Global != nil && p.hooks.SetGlobalOpacity != nil {
		g := clamp01(c.Global.Eval(localT))
		if g != p.lastGlob {
			p.hooks.SetGlobalOpacity(g)
			p.lastGlob = g
		}
	}

	if localT >= c.DurationS {
		p.advanceCue()
	}
}

// Position reports the current program time and cue index.
func (p *Player) Position() (t float64, cueIdx int) {
	return p.nowS, p.idx
}

func (p *Player) currentCueAndLocalT() (Cue, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Cues[i].DurationS
	}
	return p.prog.Cues[p.idx], p.nowS - acc
}

func (p *Player) totalDuration() float64 {
	total := 0.0
	for _, c := range p.prog.Cues {
		total += c.DurationS
	}
	return total
}

func (p *Player) nextIndex() int {
	ni := p.idx + 1
	if ni >= len(p.prog.Cues) {
		if p.prog.Loop {
			return 0
		}
		return -1
	}
	return ni
}

// enterCue activates every assignment and deactivates layers the previous
// cue left running that this cue does not name.
func (p *Player) enterCue(idx int) {
	c := p.prog.Cues[idx]
	if c.BPM > 0 && p.hooks.SetBPM != nil {
		p.hooks.SetBPM(c.BPM)
	}
	for layerID, a := range c.Layers {
		if p.hooks.Activate != nil {
			p.hooks.Activate(layerID, a.Preset)
		}
		if p.hooks.SetLayerOpacity != nil {
			start := 1.0
			if a.FadeInS > 0 {
				start = 0
			} else if a.Opacity != nil {
				start = clamp01(a.Opacity.Eval(0))
			}
			p.hooks.SetLayerOpacity(layerID, start)
		}
	}
}

func (p *Player) clearCue(c Cue) {
	if p.hooks.Deactivate == nil {
		return
	}
	for layerID := range c.Layers {
		p.hooks.Deactivate(layerID)
	}
}

func (p *Player) advanceCue() {
	prev := p.prog.Cues[p.idx]
	next := p.nextIndex()
	if next == -1 {
		p.clearCue(prev)
		p.State = Idle
		return
	}
	// Deactivate only the layers the next cue does not reassign; reassigned
	// layers swap presets atomically inside Activate.
	nc := p.prog.Cues[next]
	for layerID := range prev.Layers {
		if _, kept := nc.Layers[layerID]; !kept && p.hooks.Deactivate != nil {
			p.hooks.Deactivate(layerID)
		}
	}
	p.idx = next
	if p.prog.Loop && next == 0 {
		p.nowS = 0
	}
	p.lastGlob = -1
	p.enterCue(p.idx)
}

// SafePlayer wraps Player for use from multiple goroutines.
type SafePlayer struct {
	mu sync.Mutex
	P  *Player
}

func NewSafePlayer(h Hooks) *SafePlayer {
	return &SafePlayer{P: NewPlayer(h)}
}

func (s *SafePlayer) With(f func(p *Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.P)
}
