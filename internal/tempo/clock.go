// Package tempo provides a beat clock: given a BPM it fires edge-triggered
// beat callbacks on the bar grid, for presets that flash or step on beats
// when no external MIDI clock is present.
package tempo

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hooks are the clock's outputs. OnBeat fires once per beat edge; OnBPM
// fires whenever the tempo changes, including the initial value.
type Hooks struct {
	OnBeat func()
	OnBPM  func(bpm float64)
}

// Clock ticks beats at a settable BPM. Start at most once; SetBPM is safe
// from any goroutine and takes effect on the next beat boundary.
type Clock struct {
	log   zerolog.Logger
	hooks Hooks

	mu      sync.Mutex
	bpm     float64
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewClock(bpm float64, hooks Hooks, log zerolog.Logger) *Clock {
	if bpm <= 0 {
		bpm = 120
	}
	return &Clock{log: log, hooks: hooks, bpm: bpm}
}

// Interval converts a BPM to the duration of one beat.
func Interval(bpm float64) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / bpm)
}

func (c *Clock) BPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// SetBPM retunes the clock. Out-of-range values are ignored; the usable
// musical range is generous on purpose.
func (c *Clock) SetBPM(bpm float64) {
	if bpm < 20 || bpm > 999 {
		c.log.Warn().Float64("bpm", bpm).Msg("bpm out of range, ignored")
		return
	}
	c.mu.Lock()
	changed := c.bpm != bpm
	c.bpm = bpm
	c.mu.Unlock()
	if changed && c.hooks.OnBPM != nil {
		c.hooks.OnBPM(bpm)
	}
}

// Start launches the beat goroutine. The first beat fires after one full
// interval, not immediately.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	bpm := c.bpm
	c.mu.Unlock()

	if c.hooks.OnBPM != nil {
		c.hooks.OnBPM(bpm)
	}
	go c.run(ctx)
}

func (c *Clock) run(ctx context.Context) {
	defer close(c.done)
	timer := time.NewTimer(Interval(c.BPM()))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if c.hooks.OnBeat != nil {
				c.hooks.OnBeat()
			}
			timer.Reset(Interval(c.BPM()))
		}
	}
}

// Stop halts the beat goroutine and waits for it to exit.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
}
