// Package cue drives scripted shows: a timeline of cues, each assigning
// presets and opacity automation to layers, executed against the engine
// through injected hooks.
package cue

// Keyframe represents a value at time T (seconds) with an easing function
// that applies to the segment starting at this keyframe.
type Keyframe struct {
	T    float64 `json:"t"`
	V    float64 `json:"v"`
	Ease string  `json:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a sorted list of keyframes; Eval(t) interpolates a value.
type Envelope struct {
	Keys []Keyframe `json:"keys"`
}

// Assignment binds one layer for the duration of a cue: which preset runs,
// how its opacity evolves, and optional parameter automation keyed by the
// preset's dotted config paths.
type Assignment struct {
	Preset  string              `json:"preset"`
	Opacity *Envelope           `json:"opacity,omitempty"` // nil means full
	FadeInS float64             `json:"fadeInS,omitempty"`
	Params  map[string]Envelope `json:"params,omitempty"`
}

// Cue is one segment of a show. Layers not named in Layers are deactivated
// when the cue begins.
type Cue struct {
	Name      string                `json:"name"`
	DurationS float64               `json:"durationS"`
	Layers    map[string]Assignment `json:"layers"`
	Global    *Envelope             `json:"global,omitempty"` // master opacity
	BPM       float64               `json:"bpm,omitempty"`    // 0 leaves tempo alone
}

// Program is a full show timeline.
type Program struct {
	Version string  `json:"version"` // "show.v1"
	Name    string  `json:"name,omitempty"`
	Loop    bool    `json:"loop,omitempty"`
	BPM     float64 `json:"bpm,omitempty"`
	Cues    []Cue   `json:"cues"`
}

// PlayerState enumerates show player states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are dependency-injected callbacks into the engine. Opacity values
// are normalized [0,1].
type Hooks struct {
	Activate         func(layerID, presetID string) bool
	Deactivate       func(layerID string)
	SetLayerOpacity  func(layerID string, v float64)
	SetGlobalOpacity func(v float64)
	SetParam         func(layerID, path string, v float64)
	SetBPM           func(bpm float64)
}

// Player owns the current Program timeline and uses Hooks to drive the
// engine. Not internally synchronized; see SafePlayer.
type Player struct {
	State PlayerState

	prog     Program
	nowS     float64 // position within program
	idx      int     // current cue index
	lastGlob float64

	hooks Hooks
}
