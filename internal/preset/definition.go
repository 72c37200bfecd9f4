package preset

import (
	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
)

// ControlKind is the closed set of user-adjustable control types a
// definition may declare.
type ControlKind string

const (
	ControlSlider   ControlKind = "slider"
	ControlColor    ControlKind = "color"
	ControlCheckbox ControlKind = "checkbox"
	ControlSelect   ControlKind = "select"
	ControlText     ControlKind = "text"
)

// Control describes one adjustable parameter: its dotted config path, kind,
// and the kind-specific fields (bounds for sliders, options for selects,
// placeholder for text). Documentation for the UI; the engine only stores
// and forwards these.
type Control struct {
	Path        string      `json:"path"`
	Label       string      `json:"label"`
	Kind        ControlKind `json:"kind"`
	Min         float64     `json:"min,omitempty"`
	Max         float64     `json:"max,omitempty"`
	Step        float64     `json:"step,omitempty"`
	Options     []string    `json:"options,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Default     any         `json:"default,omitempty"`
}

// PerfHint advertises a preset's cost so the UI can warn before stacking
// heavy presets on every layer.
type PerfHint struct {
	Tier         string `json:"tier"` // "light" | "medium" | "heavy"
	TargetFPS    int    `json:"target_fps,omitempty"`
	GPUIntensive bool   `json:"gpu_intensive,omitempty"`
}

// Factory produces a fresh runnable instance for a definition.
type Factory func() Instance

// Definition is an immutable preset descriptor: identity, display metadata,
// default config tree, declared controls, and the factory. Created once at
// load; activation always works on deep copies of Defaults.
type Definition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Version     string   `json:"version,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AudioMap    string   `json:"audio_map,omitempty"` // band→effect notes, documentation only
	Perf        PerfHint `json:"perf"`

	Defaults Config    `json:"defaults"`
	Controls []Control `json:"controls,omitempty"`

	// Shader holds auxiliary program source for shader-backed presets;
	// resolved at load time and shared across a derived family.
	Shader string `json:"-"`

	Factory Factory `json:"-"`
}

// Instance is a live per-layer instantiation of a Definition. Lifecycle:
// Init exactly once, Update once per advance while active, Dispose exactly
// once. Dispose must release everything the instance allocated.
type Instance interface {
	// Init builds the instance's nodes into the layer's scene with the
	// merged config. A failed Init leaves nothing registered; the caller
	// still calls Dispose on the partially built instance.
	Init(scene *gfx.Scene, cfg Config) error

	// Update advances the animation to absolute time now (seconds).
	Update(now float64)

	// UpdateConfig applies a single dotted-path change to a live instance.
	UpdateConfig(path string, value any)

	// SetAudio stores the latest analysis snapshot. Called at the audio
	// producer's cadence, which may differ from the render cadence.
	SetAudio(s *audio.Snapshot)

	// SetBPM delivers the continuous tempo value.
	SetBPM(bpm float64)

	// Beat delivers one edge-triggered beat pulse.
	Beat()

	Dispose()
}
