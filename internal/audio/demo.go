package audio

import "math"

// DemoFeed synthesizes plausible band/spectrum frames so the engine can run
// standalone without a capture device. The waveform mix loosely follows a
// kick/pad/hat split so low/mid/high move independently.
type DemoFeed struct {
	bins int
	t    float64
}

func NewDemoFeed(bins int) *DemoFeed {
	if bins <= 0 {
		bins = 64
	}
	return &DemoFeed{bins: bins}
}

// Next advances the feed by dt seconds and returns a fresh snapshot.
func (d *DemoFeed) Next(dt float64) *Snapshot {
	d.t += dt
	s := &Snapshot{Spectrum: make([]float64, d.bins)}

	// pulsing kick, slow pad swell, fast hat shimmer
	s.Low = 0.5 + 0.5*math.Abs(math.Sin(d.t*math.Pi*2.0))
	s.Mid = 0.35 + 0.25*math.Sin(d.t*0.7)
	s.High = 0.2 + 0.2*math.Abs(math.Sin(d.t*11.0))
	s.Low = clamp01(s.Low)
	s.Mid = clamp01(s.Mid)
	s.High = clamp01(s.High)

	for i := range s.Spectrum {
		u := float64(i) / float64(d.bins)
		v := 0.6*math.Exp(-u*4.0)*s.Low +
			0.3*math.Exp(-math.Abs(u-0.4)*6.0)*s.Mid +
			0.25*u*s.High
		v += 0.05 * math.Sin(d.t*3.0+u*24.0)
		s.Spectrum[i] = clamp01(v)
	}
	return s
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
