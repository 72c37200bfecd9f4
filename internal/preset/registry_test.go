package preset

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
)

// probe records its lifecycle into a shared event log.
type probe struct {
	id       string
	events   *[]string
	cfg      Config
	audio    *audio.Snapshot
	initErr  error
	disposed bool
}

func (p *probe) Init(_ *gfx.Scene, cfg Config) error {
	*p.events = append(*p.events, "init:"+p.id)
	p.cfg = cfg
	return p.initErr
}
func (p *probe) Update(now float64) { *p.events = append(*p.events, "update:"+p.id) }
func (p *probe) UpdateConfig(path string, v any) {
	if p.cfg != nil {
		p.cfg.Set(path, v)
	}
}
func (p *probe) SetAudio(s *audio.Snapshot) {
	p.audio = s
	*p.events = append(*p.events, "audio:"+p.id)
}
func (p *probe) SetBPM(float64) {}
func (p *probe) Beat()          {}
func (p *probe) Dispose() {
	if p.disposed {
		*p.events = append(*p.events, "double-dispose:"+p.id)
		return
	}
	p.disposed = true
	*p.events = append(*p.events, "dispose:"+p.id)
}

func probeDef(id string, events *[]string) Raw {
	return Raw{Def: &Definition{
		ID:       id,
		Name:     id,
		Defaults: Config{"gain": 1.0},
		Factory:  func() Instance { return &probe{id: id, events: events} },
	}}
}

func newTestRegistry(t *testing.T, raws ...Raw) *Registry {
	t.Helper()
	r := NewRegistry(StaticSource(raws), zerolog.Nop())
	r.LoadAll()
	return r
}

func TestLoadAllSkipsBrokenItems(t *testing.T) {
	var events []string
	r := newTestRegistry(t,
		probeDef("good", &events),
		Raw{Err: errors.New("malformed definition")},
		Raw{Def: &Definition{ID: "nofactory"}},
		probeDef("also-good", &events),
	)
	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "good", defs[0].ID)
	assert.Equal(t, "also-good", defs[1].ID)
}

func TestActivateDisposesPredecessorBeforeInit(t *testing.T) {
	var events []string
	r := newTestRegistry(t, probeDef("p1", &events), probeDef("p2", &events))
	scene := gfx.NewScene()
	key := Key{Layer: "background", Preset: "slot"}

	_, err := r.Activate("p1", scene, key, Config{})
	require.NoError(t, err)
	_, err = r.Activate("p2", scene, key, Config{})
	require.NoError(t, err)

	assert.Equal(t, []string{"init:p1", "dispose:p1", "init:p2"}, events)
	assert.Equal(t, 1, r.LiveCount())
}

func TestDeactivateIsIdempotent(t *testing.T) {
	var events []string
	r := newTestRegistry(t, probeDef("p1", &events))
	key := Key{Layer: "mid", Preset: "p1"}
	_, err := r.Activate("p1", gfx.NewScene(), key, Config{})
	require.NoError(t, err)

	r.Deactivate(key)
	r.Deactivate(key)

	assert.Equal(t, []string{"init:p1", "dispose:p1"}, events)
}

func TestActivateUnknownPreset(t *testing.T) {
	r := newTestRegistry(t)
	inst, err := r.Activate("ghost", gfx.NewScene(), Key{Layer: "a", Preset: "ghost"}, nil)
	assert.Nil(t, inst)
	assert.Error(t, err)
}

func TestFactoryPanicIsContained(t *testing.T) {
	var events []string
	r := newTestRegistry(t,
		Raw{Def: &Definition{
			ID:      "broken",
			Factory: func() Instance { panic("no gpu") },
		}},
		probeDef("working", &events),
	)
	key := Key{Layer: "background", Preset: "broken"}
	inst, err := r.Activate("broken", gfx.NewScene(), key, nil)
	assert.Nil(t, inst)
	assert.Error(t, err)
	assert.Equal(t, 0, r.LiveCount())

	// neighbors are unaffected
	inst, err = r.Activate("working", gfx.NewScene(), Key{Layer: "background", Preset: "working"}, Config{})
	require.NoError(t, err)
	assert.NotNil(t, inst)
}

func TestInitFailureStillDisposes(t *testing.T) {
	var events []string
	r := newTestRegistry(t, Raw{Def: &Definition{
		ID: "failing",
		Factory: func() Instance {
			return &probe{id: "failing", events: &events, initErr: errors.New("shader compile")}
		},
	}})
	inst, err := r.Activate("failing", gfx.NewScene(), Key{Layer: "fg", Preset: "failing"}, nil)
	assert.Nil(t, inst)
	assert.Error(t, err)
	assert.Equal(t, []string{"init:failing", "dispose:failing"}, events)
}

func TestPushDeliversSnapshotToAllBeforeAnyUpdate(t *testing.T) {
	var events []string
	r := newTestRegistry(t, probeDef("a", &events), probeDef("b", &events))
	_, err := r.Activate("a", gfx.NewScene(), Key{Layer: "l1", Preset: "a"}, Config{})
	require.NoError(t, err)
	_, err = r.Activate("b", gfx.NewScene(), Key{Layer: "l2", Preset: "b"}, Config{})
	require.NoError(t, err)
	events = events[:0]

	snap := &audio.Snapshot{Low: 0.9}
	r.Push(snap)

	assert.Equal(t, []string{"audio:a", "audio:b", "update:a", "update:b"}, events)
}

func TestAdvanceFollowsInsertionOrder(t *testing.T) {
	var events []string
	r := newTestRegistry(t, probeDef("a", &events), probeDef("b", &events), probeDef("c", &events))
	for _, id := range []string{"c", "a", "b"} {
		_, err := r.Activate(id, gfx.NewScene(), Key{Layer: id, Preset: id}, Config{})
		require.NoError(t, err)
	}
	events = events[:0]

	for frame := 0; frame < 3; frame++ {
		r.Advance(float64(frame))
	}
	want := []string{
		"update:c", "update:a", "update:b",
		"update:c", "update:a", "update:b",
		"update:c", "update:a", "update:b",
	}
	assert.Equal(t, want, events)
}

func TestExpandFamilyIndependentConfigs(t *testing.T) {
	var events []string
	r := newTestRegistry(t, Raw{Def: &Definition{
		ID:       "text",
		Name:     "Custom Text",
		Defaults: Config{"text": Config{"value": "LUX", "size": 12.0}},
		Factory:  func() Instance { return &probe{id: "text", events: &events} },
	}})

	ids, err := r.ExpandFamily("text", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"text-1", "text-2", "text-3", "text-4"}, ids)

	d2, ok := r.Get("text-2")
	require.True(t, ok)
	d2.Defaults.Set("text.value", "HELLO")

	for _, id := range []string{"text-1", "text-3", "text-4"} {
		d, ok := r.Get(id)
		require.True(t, ok)
		assert.Equal(t, "LUX", d.Defaults.GetString("text.value", ""), id)
	}

	// re-expansion drops the old family and leaves siblings behind
	ids, err = r.ExpandFamily("text", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"text-1", "text-2"}, ids)
	_, ok = r.Get("text-3")
	assert.False(t, ok)
	d2, ok = r.Get("text-2")
	require.True(t, ok)
	assert.Equal(t, "LUX", d2.Defaults.GetString("text.value", ""))

	_, err = r.ExpandFamily("nope", 2)
	assert.Error(t, err)
}

func TestDisposeDeactivatesEverything(t *testing.T) {
	var events []string
	raws := make([]Raw, 0, 3)
	for i := 0; i < 3; i++ {
		raws = append(raws, probeDef(fmt.Sprintf("p%d", i), &events))
	}
	r := newTestRegistry(t, raws...)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("p%d", i)
		_, err := r.Activate(id, gfx.NewScene(), Key{Layer: id, Preset: id}, Config{})
		require.NoError(t, err)
	}

	r.Dispose()
	assert.Equal(t, 0, r.LiveCount())
	for _, e := range events {
		assert.NotContains(t, e, "double-dispose")
	}
}
