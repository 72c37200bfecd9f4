package layer

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/preset"
)

// Manager orchestrates the layer set: activation, per-frame rendering,
// sizing, tempo fan-out, disposal. Not internally synchronized; the
// engine serializes all access on its frame mutex.
type Manager struct {
	log   zerolog.Logger
	reg   *preset.Registry
	store Store

	order  []string
	layers map[string]*Layer

	w, h     int
	ratio    float64
	disposed bool
}

// NewManager eagerly creates every layer with its own scene and render
// target sized to the initial output resolution.
func NewManager(reg *preset.Registry, store Store, order []string, w, h int, pixelRatio float64, log zerolog.Logger) (*Manager, error) {
	if len(order) == 0 {
		order = DefaultOrder()
	}
	m := &Manager{
		log:    log,
		reg:    reg,
		store:  store,
		order:  append([]string(nil), order...),
		layers: make(map[string]*Layer, len(order)),
		w:      w,
		h:      h,
		ratio:  pixelRatio,
	}
	for _, id := range m.order {
		tgt, err := gfx.NewTarget(w, h, pixelRatio)
		if err != nil {
			return nil, fmt.Errorf("layer %s target: %w", id, err)
		}
		m.layers[id] = &Layer{
			ID:      id,
			Scene:   gfx.NewScene(),
			Target:  tgt,
			Opacity: 1,
		}
	}
	return m, nil
}

// Ordered returns the layers back-to-front for compositing.
func (m *Manager) Ordered() []*Layer {
	out := make([]*Layer, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.layers[id])
	}
	return out
}

func (m *Manager) key(layerID, presetID string) preset.Key {
	return preset.Key{Layer: layerID, Preset: presetID}
}

// LoadSavedConfig fetches the persisted override for (presetID, layerID).
// Load failures degrade to "no saved config". Called by the engine outside
// the frame mutex so rendering never blocks on the store.
func (m *Manager) LoadSavedConfig(presetID, layerID string) preset.Config {
	if m.store == nil {
		return nil
	}
	cfg, err := m.store.Load(presetID, layerID)
	if err != nil {
		m.log.Warn().Err(err).Str("preset", presetID).Str("layer", layerID).
			Msg("saved config load failed, using defaults")
		return nil
	}
	return cfg
}

// ActivatePreset binds presetID to the layer: the previous instance is
// fully deactivated and the scene cleared first, then the saved override
// is deep-merged over the definition defaults and a new instance is
// activated under the (layer, preset) key. On any failure the layer ends
// clean and inactive, never half-activated.
func (m *Manager) ActivatePreset(layerID, presetID string, saved preset.Config) bool {
	l, ok := m.layers[layerID]
	if !ok {
		m.log.Error().Str("layer", layerID).Msg("unknown layer")
		return false
	}
	m.DeactivatePreset(layerID)

	def, ok := m.reg.Get(presetID)
	if !ok {
		m.log.Error().Str("preset", presetID).Str("layer", layerID).Msg("preset not found")
		return false
	}
	merged := preset.Merge(def.Defaults, saved)

	inst, err := m.reg.Activate(presetID, l.Scene, m.key(layerID, presetID), merged)
	if err != nil {
		// registry already disposed whatever was constructed; make sure the
		// scene carries no leftovers from a partial Init
		l.Scene.Clear()
		return false
	}

	l.Active = true
	l.PresetID = presetID
	l.inst = inst
	l.cfg = merged
	return true
}

// DeactivatePreset unbinds the layer's instance, clears its scene, and
// marks it inactive. Idempotent.
func (m *Manager) DeactivatePreset(layerID string) {
	l, ok := m.layers[layerID]
	if !ok {
		return
	}
	if l.inst != nil {
		m.reg.Deactivate(m.key(layerID, l.PresetID))
	}
	l.Scene.Clear()
	l.inst = nil
	l.cfg = nil
	l.PresetID = ""
	l.Active = false
}

// UpdateLayerConfig applies layer-level settings: opacity (0-100 UI scale,
// normalized and clamped here) and fade time. The bound preset's own
// config is untouched.
func (m *Manager) UpdateLayerConfig(layerID string, s Settings) {
	l, ok := m.layers[layerID]
	if !ok {
		return
	}
	if s.Opacity != nil {
		l.Opacity = gfx.Clamp01(*s.Opacity / 100.0)
	}
	if s.FadeMS != nil {
		l.FadeMS = *s.FadeMS
	}
}

// SetOpacity sets the layer's effective opacity directly in [0,1],
// clamped. Used by automation (cue player) which already works in
// normalized units.
func (m *Manager) SetOpacity(layerID string, v float64) {
	if l, ok := m.layers[layerID]; ok {
		l.Opacity = gfx.Clamp01(v)
	}
}

// UpdatePresetConfig applies one dotted-path change to the layer's live
// merged config, propagates it to the instance, and persists the tree
// asynchronously. Persistence failures are logged, never fatal.
func (m *Manager) UpdatePresetConfig(layerID, path string, value any) bool {
	l, ok := m.layers[layerID]
	if !ok || l.inst == nil {
		return false
	}
	l.cfg.Set(path, value)
	l.inst.UpdateConfig(path, value)

	if m.store != nil {
		presetID := l.PresetID
		snapshot := l.cfg.Clone()
		log := m.log
		store := m.store
		go func() {
			if err := store.Save(presetID, layerID, snapshot); err != nil {
				log.Warn().Err(err).Str("preset", presetID).Str("layer", layerID).
					Msg("config save failed")
			}
		}()
	}
	return true
}

// RenderLayers draws every active layer's scene into its render target and
// then advances every live instance exactly once. Each target is cleared
// fully to transparent before redraw; accumulation effects belong inside
// presets, never to a skipped clear. A failure in one layer's render is
// contained and skips only that layer for this frame.
func (m *Manager) RenderLayers(now float64) {
	for _, id := range m.order {
		l := m.layers[id]
		if !l.Active || l.inst == nil {
			continue
		}
		m.renderOne(l)
	}
	m.reg.Advance(now)
}

func (m *Manager) renderOne(l *Layer) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error().Str("layer", l.ID).Str("preset", l.PresetID).
				Interface("panic", rec).Msg("layer render failed, skipping frame")
		}
	}()
	l.Target.Clear(gfx.Transparent)
	l.Scene.Draw(l.Target)
}

// UpdateSize resizes every layer's render target consistently.
func (m *Manager) UpdateSize(w, h int, pixelRatio float64) error {
	for _, id := range m.order {
		if err := m.layers[id].Target.Resize(w, h, pixelRatio); err != nil {
			return fmt.Errorf("resize layer %s: %w", id, err)
		}
	}
	m.w, m.h, m.ratio = w, h, pixelRatio
	return nil
}

// UpdateBPM forwards the continuous tempo value to every active instance.
func (m *Manager) UpdateBPM(bpm float64) {
	for _, id := range m.order {
		if l := m.layers[id]; l.inst != nil {
			l.inst.SetBPM(bpm)
		}
	}
}

// TriggerBeat delivers one edge-triggered beat pulse to every active
// instance.
func (m *Manager) TriggerBeat() {
	for _, id := range m.order {
		if l := m.layers[id]; l.inst != nil {
			l.inst.Beat()
		}
	}
}

// Status returns the per-layer snapshot. The key set is the layer order
// fixed at construction and never changes.
func (m *Manager) Status() map[string]Status {
	out := make(map[string]Status, len(m.order))
	for _, id := range m.order {
		l := m.layers[id]
		out[id] = Status{Active: l.Active, Preset: l.PresetID}
	}
	return out
}

// Config returns the live merged config for a layer's bound preset, nil
// when the layer is inactive. Read-only for callers.
func (m *Manager) Config(layerID string) preset.Config {
	if l, ok := m.layers[layerID]; ok {
		return l.cfg
	}
	return nil
}

// Dispose deactivates every preset, releases every render target, and
// clears every scene. Called exactly once at engine shutdown.
func (m *Manager) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	for _, id := range m.order {
		m.DeactivatePreset(id)
		m.layers[id].Target.Release()
	}
}
