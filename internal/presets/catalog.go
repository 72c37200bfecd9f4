// Package presets assembles the built-in preset catalog: the definitions,
// their default config trees, and the declared UI controls.
package presets

import (
	"github.com/coreman2200/luxdeck/internal/preset"
	"github.com/coreman2200/luxdeck/internal/presets/bars"
	"github.com/coreman2200/luxdeck/internal/presets/marquee"
	"github.com/coreman2200/luxdeck/internal/presets/plasma"
	"github.com/coreman2200/luxdeck/internal/presets/solid"
)

// Catalog returns the built-in definitions as a discovery source.
func Catalog() preset.Source {
	return preset.StaticSource([]preset.Raw{
		{Def: solidDef()},
		{Def: barsDef()},
		{Def: plasmaDef("plasma-ocean", "Plasma Ocean", 0.55)},
		{Def: plasmaDef("plasma-lava", "Plasma Lava", 0.02)},
		{Def: plasmaDef("plasma-violet", "Plasma Violet", 0.78)},
		{Def: marqueeDef()},
	})
}

func solidDef() *preset.Definition {
	return &preset.Definition{
		ID:          "solid",
		Name:        "Solid Wash",
		Description: "Single-color wash that breathes with the low band and flashes on beats.",
		Category:    "basic",
		Tags:        []string{"color", "beat"},
		AudioMap:    "low band drives brightness",
		Perf:        preset.PerfHint{Tier: "light"},
		Defaults: preset.Config{
			"color": map[string]any{"h": 0.6, "s": 0.8, "v": 0.7},
			"pulse": map[string]any{"enabled": true, "decay": 3.0},
			"audio": map[string]any{"gain": 1.0, "boost": 0.3},
		},
		Controls: []preset.Control{
			{Path: "color.h", Label: "Hue", Kind: preset.ControlSlider, Min: 0, Max: 1, Step: 0.01, Default: 0.6},
			{Path: "color.s", Label: "Saturation", Kind: preset.ControlSlider, Min: 0, Max: 1, Step: 0.01, Default: 0.8},
			{Path: "color.v", Label: "Brightness", Kind: preset.ControlSlider, Min: 0, Max: 1, Step: 0.01, Default: 0.7},
			{Path: "pulse.enabled", Label: "Beat Pulse", Kind: preset.ControlCheckbox, Default: true},
			{Path: "audio.gain", Label: "Audio Gain", Kind: preset.ControlSlider, Min: 0, Max: 4, Step: 0.1, Default: 1.0},
		},
		Factory: solid.New,
	}
}

func barsDef() *preset.Definition {
	return &preset.Definition{
		ID:          "bars",
		Name:        "Spectrum Bars",
		Description: "Spectrum analyzer columns with attack/release smoothing.",
		Category:    "reactive",
		Tags:        []string{"spectrum", "analyzer"},
		AudioMap:    "full spectrum, one band span per bar",
		Perf:        preset.PerfHint{Tier: "light"},
		Defaults: preset.Config{
			"bars":   map[string]any{"count": 24.0, "gap": 0.2, "mirror": false},
			"color":  map[string]any{"hue_start": 0.0, "hue_range": 0.7},
			"smooth": map[string]any{"attack": 0.6, "release": 3.0},
			"audio":  map[string]any{"gain": 1.0},
		},
		Controls: []preset.Control{
			{Path: "bars.count", Label: "Bars", Kind: preset.ControlSlider, Min: 4, Max: 128, Step: 1, Default: 24},
			{Path: "bars.gap", Label: "Gap", Kind: preset.ControlSlider, Min: 0, Max: 0.9, Step: 0.05, Default: 0.2},
			{Path: "bars.mirror", Label: "Mirror", Kind: preset.ControlCheckbox, Default: false},
			{Path: "color.hue_start", Label: "Hue Start", Kind: preset.ControlSlider, Min: 0, Max: 1, Step: 0.01, Default: 0.0},
			{Path: "audio.gain", Label: "Audio Gain", Kind: preset.ControlSlider, Min: 0, Max: 4, Step: 0.1, Default: 1.0},
		},
		Factory: bars.New,
	}
}

func plasmaDef(id, name string, hue float64) *preset.Definition {
	return &preset.Definition{
		ID:          id,
		Name:        name,
		Description: "Interference-field plasma, hue-cycled, mid band speeds it up.",
		Category:    "generative",
		Tags:        []string{"plasma", "field"},
		AudioMap:    "mid band modulates field speed, beats kick the phase",
		Perf:        preset.PerfHint{Tier: "medium"},
		Defaults: preset.Config{
			"speed": 0.6,
			"scale": 3.0,
			"beat":  map[string]any{"kick": 0.25},
			"color": map[string]any{"hue": hue, "hue_spread": 0.15, "s": 0.9, "v": 0.85},
			"audio": map[string]any{"speed_boost": 1.0},
		},
		Controls: []preset.Control{
			{Path: "speed", Label: "Speed", Kind: preset.ControlSlider, Min: 0, Max: 3, Step: 0.05, Default: 0.6},
			{Path: "scale", Label: "Scale", Kind: preset.ControlSlider, Min: 0.5, Max: 10, Step: 0.5, Default: 3.0},
			{Path: "color.hue", Label: "Hue", Kind: preset.ControlSlider, Min: 0, Max: 1, Step: 0.01, Default: hue},
			{Path: "audio.speed_boost", Label: "Audio Boost", Kind: preset.ControlSlider, Min: 0, Max: 4, Step: 0.1, Default: 1.0},
		},
		Factory: plasma.New,
	}
}

func marqueeDef() *preset.Definition {
	return &preset.Definition{
		ID:          "marquee",
		Name:        "Marquee",
		Description: "Scrolling bitmap-font text. Expand into a family for per-slot messages.",
		Category:    "text",
		Tags:        []string{"text", "template"},
		AudioMap:    "high band nudges scroll speed",
		Perf:        preset.PerfHint{Tier: "light"},
		Defaults: preset.Config{
			"text":  "LUXDECK",
			"speed": 12.0,
			"size":  0.12,
			"bg":    map[string]any{"alpha": 0.0},
			"color": map[string]any{"h": 0.12, "s": 0.9, "v": 0.95},
			"audio": map[string]any{"speed_boost": 0.5},
		},
		Controls: []preset.Control{
			{Path: "text", Label: "Text", Kind: preset.ControlText, Placeholder: "YOUR MESSAGE", Default: "LUXDECK"},
			{Path: "speed", Label: "Speed", Kind: preset.ControlSlider, Min: 1, Max: 60, Step: 1, Default: 12},
			{Path: "size", Label: "Size", Kind: preset.ControlSlider, Min: 0.05, Max: 0.5, Step: 0.01, Default: 0.12},
			{Path: "color.h", Label: "Hue", Kind: preset.ControlSlider, Min: 0, Max: 1, Step: 0.01, Default: 0.12},
		},
		Factory: marquee.New,
	}
}
