// Package layer owns the fixed, ordered set of visual layers and their
// per-frame rendering. Layers are created eagerly at construction, keep
// their render targets alive for the manager's whole lifetime, and only
// swap the bound preset instance at runtime.
package layer

import (
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/preset"
)

// Default layer order, back-most first.
const (
	Background = "background"
	Mid        = "mid"
	Foreground = "foreground"
)

// DefaultOrder is the production layer stack.
func DefaultOrder() []string { return []string{Background, Mid, Foreground} }

// Layer is one compositing slot: an isolated scene, its render target, and
// the currently bound preset instance, if any.
type Layer struct {
	ID      string
	Scene   *gfx.Scene
	Target  *gfx.Target
	Active  bool
	Opacity float64 // effective [0,1], clamped at this boundary
	FadeMS  float64 // transition timing, stored and forwarded only

	PresetID string
	inst     preset.Instance
	cfg      preset.Config
}

// Status is the read-only per-layer snapshot handed to the UI.
type Status struct {
	Active bool   `json:"active"`
	Preset string `json:"preset,omitempty"`
}

// Settings carries the immediately-effective layer-level knobs. Nil fields
// are left untouched. Opacity arrives on the UI's 0-100 scale.
type Settings struct {
	Opacity *float64 `json:"opacity,omitempty"`
	FadeMS  *float64 `json:"fade_ms,omitempty"`
}

// Store is the configuration-persistence collaborator: per-(preset, layer)
// JSON-shaped config trees. Load returns (nil, nil) when nothing was ever
// saved. Failures are recoverable; callers log and fall back to defaults.
type Store interface {
	Load(presetID, layerID string) (preset.Config, error)
	Save(presetID, layerID string, cfg preset.Config) error
}
