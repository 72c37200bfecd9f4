package preset

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
)

// Key identifies one live instance: the same preset may run on several
// layers concurrently with independent state.
type Key struct {
	Layer  string
	Preset string
}

func (k Key) String() string { return k.Layer + "/" + k.Preset }

// Registry owns the preset catalog and every live instance. It is not
// internally synchronized; the engine serializes access (single logical
// thread of control).
type Registry struct {
	log    zerolog.Logger
	source Source

	defs  map[string]*Definition
	order []string

	live      map[Key]Instance
	liveOrder []Key

	families map[string][]string // base id -> derived ids, for templated presets

	lastNow float64 // most recent render-frame time, reused for audio-cadence advances
}

func NewRegistry(source Source, log zerolog.Logger) *Registry {
	return &Registry{
		log:      log,
		source:   source,
		defs:     map[string]*Definition{},
		live:     map[Key]Instance{},
		families: map[string][]string{},
	}
}

// LoadAll discovers the full catalog. Individual failures are logged and
// skipped; discovery of the remaining presets always proceeds.
func (r *Registry) LoadAll() []*Definition {
	raws, err := r.source.Discover()
	if err != nil {
		r.log.Error().Err(err).Msg("preset discovery failed")
		return nil
	}
	for _, raw := range raws {
		if raw.Err != nil {
			r.log.Warn().Err(raw.Err).Msg("skipping preset")
			continue
		}
		if raw.Def == nil || raw.Def.ID == "" {
			r.log.Warn().Msg("skipping preset with empty definition")
			continue
		}
		if raw.Def.Factory == nil {
			r.log.Warn().Str("preset", raw.Def.ID).Msg("skipping preset without factory")
			continue
		}
		if _, dup := r.defs[raw.Def.ID]; dup {
			r.log.Warn().Str("preset", raw.Def.ID).Msg("duplicate preset id, keeping first")
			continue
		}
		r.defs[raw.Def.ID] = raw.Def
		r.order = append(r.order, raw.Def.ID)
	}
	r.log.Info().Int("presets", len(r.order)).Msg("preset catalog loaded")
	return r.Definitions()
}

// Definitions returns the catalog in load order.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Activate constructs, initializes, and registers a new instance under key.
// Any live instance under the same key is fully disposed first, so a key
// maps to at most one live instance. Factory and Init failures (errors or
// panics) are caught, logged, and returned as nil, never propagated into
// the render loop.
func (r *Registry) Activate(presetID string, scene *gfx.Scene, key Key, cfg Config) (Instance, error) {
	def, ok := r.defs[presetID]
	if !ok {
		return nil, fmt.Errorf("preset not found: %s", presetID)
	}
	r.Deactivate(key)

	inst, err := r.construct(def)
	if err != nil {
		r.log.Error().Err(err).Str("preset", presetID).Str("key", key.String()).Msg("preset factory failed")
		return nil, err
	}
	if err := r.initInstance(inst, scene, cfg); err != nil {
		r.log.Error().Err(err).Str("preset", presetID).Str("key", key.String()).Msg("preset init failed")
		// a constructed instance that failed Init still gets disposed so it
		// cannot leak partially acquired resources
		disposeQuiet(inst, r.log, key)
		return nil, err
	}

	r.live[key] = inst
	r.liveOrder = append(r.liveOrder, key)
	r.log.Info().Str("preset", presetID).Str("key", key.String()).Msg("preset activated")
	return inst, nil
}

func (r *Registry) construct(def *Definition) (inst Instance, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			inst = nil
			err = fmt.Errorf("factory panic for %s: %v", def.ID, rec)
		}
	}()
	inst = def.Factory()
	if inst == nil {
		err = fmt.Errorf("factory for %s returned nil", def.ID)
	}
	return inst, err
}

func (r *Registry) initInstance(inst Instance, scene *gfx.Scene, cfg Config) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("init panic: %v", rec)
		}
	}()
	return inst.Init(scene, cfg)
}

// Deactivate disposes and unregisters the instance under key. No-op when
// nothing is registered there.
func (r *Registry) Deactivate(key Key) {
	inst, ok := r.live[key]
	if !ok {
		return
	}
	delete(r.live, key)
	for i, k := range r.liveOrder {
		if k == key {
			r.liveOrder = append(r.liveOrder[:i], r.liveOrder[i+1:]...)
			break
		}
	}
	disposeQuiet(inst, r.log, key)
	r.log.Info().Str("key", key.String()).Msg("preset deactivated")
}

func disposeQuiet(inst Instance, log zerolog.Logger, key Key) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("key", key.String()).Interface("panic", rec).Msg("preset dispose panicked")
		}
	}()
	inst.Dispose()
}

// Push delivers one audio snapshot to every live instance, then advances
// each once. All instances observe the snapshot before any of them
// updates, and iteration follows insertion order both times so
// frame-count-dependent presets stay deterministic.
func (r *Registry) Push(s *audio.Snapshot) {
	for _, k := range r.liveOrder {
		r.live[k].SetAudio(s)
	}
	for _, k := range r.liveOrder {
		r.live[k].Update(r.lastNow)
	}
}

// Advance updates every live instance once for the current render frame,
// in insertion order.
func (r *Registry) Advance(now float64) {
	r.lastNow = now
	for _, k := range r.liveOrder {
		r.live[k].Update(now)
	}
}

// LiveCount reports the number of registered instances.
func (r *Registry) LiveCount() int { return len(r.liveOrder) }

// FamilyIDs returns the derived ids currently registered for a base id.
func (r *Registry) FamilyIDs(baseID string) []string {
	return append([]string(nil), r.families[baseID]...)
}

// ExpandFamily regenerates the derived sibling set for a templated preset:
// baseID-1..baseID-n, each with an independently mutable clone of the base
// defaults, sharing the base factory and shader source. The previous
// family is dropped wholesale; unrelated presets are untouched. Returns
// the new ids.
func (r *Registry) ExpandFamily(baseID string, n int) ([]string, error) {
	base, ok := r.defs[baseID]
	if !ok {
		return nil, fmt.Errorf("preset not found: %s", baseID)
	}
	if n < 1 {
		return nil, fmt.Errorf("family size must be >= 1, got %d", n)
	}

	for _, id := range r.families[baseID] {
		// drop any straggler instances of the outgoing family
		for _, k := range append([]Key(nil), r.liveOrder...) {
			if k.Preset == id {
				r.Deactivate(k)
			}
		}
		delete(r.defs, id)
		for i, ordered := range r.order {
			if ordered == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}

	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		derived := *base
		derived.ID = fmt.Sprintf("%s-%d", baseID, i)
		derived.Name = fmt.Sprintf("%s %d", base.Name, i)
		derived.Defaults = base.Defaults.Clone()
		r.defs[derived.ID] = &derived
		r.order = append(r.order, derived.ID)
		ids = append(ids, derived.ID)
	}
	r.families[baseID] = ids
	r.log.Info().Str("preset", baseID).Int("count", n).Msg("preset family expanded")
	return ids, nil
}

// Dispose deactivates every live instance. The catalog remains readable
// but the registry is done producing instances after this.
func (r *Registry) Dispose() {
	for _, k := range append([]Key(nil), r.liveOrder...) {
		r.Deactivate(k)
	}
}
