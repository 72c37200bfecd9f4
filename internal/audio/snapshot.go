// Package audio carries the per-frame analysis feed shared by all active
// presets. Capture and FFT analysis are external collaborators; this
// package only defines the value shape they push into the engine.
package audio

// Snapshot is one analysis frame: three normalized band energies plus the
// full spectrum magnitudes. Treated as immutable once produced; every live
// preset instance observes the same snapshot for a given push.
type Snapshot struct {
	Low      float64
	Mid      float64
	High     float64
	Spectrum []float64
}

// Silence returns an all-zero snapshot with the given spectrum bin count.
func Silence(bins int) *Snapshot {
	if bins < 0 {
		bins = 0
	}
	return &Snapshot{Spectrum: make([]float64, bins)}
}

// Band returns the normalized magnitude of spectrum bin i, zero when out of
// range. Presets index freely without bounds bookkeeping.
func (s *Snapshot) Band(i int) float64 {
	if s == nil || i < 0 || i >= len(s.Spectrum) {
		return 0
	}
	return s.Spectrum[i]
}

// Energy is the mean of the three band levels, a cheap overall loudness.
func (s *Snapshot) Energy() float64 {
	if s == nil {
		return 0
	}
	return (s.Low + s.Mid + s.High) / 3.0
}
