package layer

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/preset"
)

// paintInst fills the whole target with a fixed color each frame.
type paintInst struct {
	color    gfx.Color
	cfg      preset.Config
	bpm      float64
	beats    int
	disposed bool
	scene    *gfx.Scene
}

func (p *paintInst) Init(scene *gfx.Scene, cfg preset.Config) error {
	p.cfg = cfg
	p.scene = scene
	scene.Add(gfx.NodeFunc(func(dst *gfx.Target) {
		dst.Clear(p.color)
	}))
	return nil
}
func (p *paintInst) Update(float64)                  {}
func (p *paintInst) UpdateConfig(path string, v any) { p.cfg.Set(path, v) }
func (p *paintInst) SetAudio(*audio.Snapshot)        {}
func (p *paintInst) SetBPM(bpm float64)              { p.bpm = bpm }
func (p *paintInst) Beat()                           { p.beats++ }
func (p *paintInst) Dispose()                        { p.disposed = true }

// memStore is a synchronous fake persistence collaborator.
type memStore struct {
	mu      sync.Mutex
	data    map[string]preset.Config
	loadErr error
	saveErr error
	saved   chan struct{}
}

func newMemStore() *memStore {
	return &memStore{data: map[string]preset.Config{}, saved: make(chan struct{}, 16)}
}

func (s *memStore) Load(presetID, layerID string) (preset.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.data[presetID+"/"+layerID], nil
}

func (s *memStore) Save(presetID, layerID string, cfg preset.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.saved <- struct{}{} }()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[presetID+"/"+layerID] = cfg
	return nil
}

func testManager(t *testing.T, store Store, raws ...preset.Raw) (*Manager, *preset.Registry) {
	t.Helper()
	reg := preset.NewRegistry(preset.StaticSource(raws), zerolog.Nop())
	reg.LoadAll()
	m, err := NewManager(reg, store, nil, 64, 48, 1.0, zerolog.Nop())
	require.NoError(t, err)
	return m, reg
}

func solidRaw(id string, c gfx.Color, insts *[]*paintInst) preset.Raw {
	return preset.Raw{Def: &preset.Definition{
		ID:       id,
		Name:     id,
		Defaults: preset.Config{"a": preset.Config{"b": 1.0, "c": 2.0}},
		Factory: func() preset.Instance {
			p := &paintInst{color: c}
			if insts != nil {
				*insts = append(*insts, p)
			}
			return p
		},
	}}
}

func TestLayerSetIsStable(t *testing.T) {
	m, _ := testManager(t, nil, solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, nil))

	before := m.Status()
	assert.Len(t, before, 3)
	for _, id := range DefaultOrder() {
		assert.Contains(t, before, id)
	}

	m.ActivatePreset(Background, "red", nil)
	m.DeactivatePreset(Mid)
	after := m.Status()
	assert.Len(t, after, 3)
	for id := range before {
		assert.Contains(t, after, id)
	}
}

func TestActivateMergesSavedConfig(t *testing.T) {
	store := newMemStore()
	store.data["red/background"] = preset.Config{"a": preset.Config{"b": 5.0}}
	var insts []*paintInst
	m, _ := testManager(t, store, solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, &insts))

	saved := m.LoadSavedConfig("red", Background)
	require.True(t, m.ActivatePreset(Background, "red", saved))
	require.Len(t, insts, 1)

	assert.Equal(t, 5.0, insts[0].cfg.GetFloat("a.b", -1))
	assert.Equal(t, 2.0, insts[0].cfg.GetFloat("a.c", -1))
}

func TestActivateSwapDisposesOldInstance(t *testing.T) {
	var insts []*paintInst
	m, _ := testManager(t, nil,
		solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, &insts),
		solidRaw("blue", gfx.Color{R: 0, G: 0, B: 1, A: 1}, &insts),
	)
	require.True(t, m.ActivatePreset(Background, "red", nil))
	require.True(t, m.ActivatePreset(Background, "blue", nil))
	require.Len(t, insts, 2)
	assert.True(t, insts[0].disposed)
	assert.False(t, insts[1].disposed)
	assert.Equal(t, "blue", m.Status()[Background].Preset)
}

func TestDeactivateIdempotent(t *testing.T) {
	var insts []*paintInst
	m, _ := testManager(t, nil, solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, &insts))
	require.True(t, m.ActivatePreset(Mid, "red", nil))

	m.DeactivatePreset(Mid)
	m.DeactivatePreset(Mid)

	st := m.Status()[Mid]
	assert.False(t, st.Active)
	assert.Empty(t, st.Preset)
	assert.True(t, insts[0].disposed)
}

func TestFailedActivationLeavesLayerClean(t *testing.T) {
	var insts []*paintInst
	broken := preset.Raw{Def: &preset.Definition{
		ID:      "broken",
		Factory: func() preset.Instance { panic("device lost") },
	}}
	m, reg := testManager(t, nil, solidRaw("working", gfx.Color{R: 0, G: 1, B: 0, A: 1}, &insts), broken)

	require.True(t, m.ActivatePreset(Background, "working", nil))
	assert.False(t, m.ActivatePreset(Background, "broken", nil))

	st := m.Status()[Background]
	assert.False(t, st.Active)
	assert.Empty(t, st.Preset)
	assert.Equal(t, 0, reg.LiveCount())
	// the previous instance was still torn down
	assert.True(t, insts[0].disposed)

	// the layer remains usable afterwards
	assert.True(t, m.ActivatePreset(Background, "working", nil))

	// unknown ids behave the same way
	assert.False(t, m.ActivatePreset(Mid, "ghost", nil))
	assert.False(t, m.Status()[Mid].Active)
}

func TestOpacityNormalizationAndClamp(t *testing.T) {
	m, _ := testManager(t, nil)
	op := 75.0
	m.UpdateLayerConfig(Background, Settings{Opacity: &op})
	assert.InDelta(t, 0.75, m.Ordered()[0].Opacity, 1e-9)

	over := 150.0
	m.UpdateLayerConfig(Background, Settings{Opacity: &over})
	assert.Equal(t, 1.0, m.Ordered()[0].Opacity)

	under := -20.0
	m.UpdateLayerConfig(Background, Settings{Opacity: &under})
	assert.Equal(t, 0.0, m.Ordered()[0].Opacity)

	fade := 500.0
	m.UpdateLayerConfig(Mid, Settings{FadeMS: &fade})
	assert.Equal(t, 500.0, m.Ordered()[1].FadeMS)

	m.SetOpacity(Foreground, 1.7)
	assert.Equal(t, 1.0, m.Ordered()[2].Opacity)
}

func TestUpdatePresetConfigPersists(t *testing.T) {
	store := newMemStore()
	var insts []*paintInst
	m, _ := testManager(t, store, solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, &insts))
	require.True(t, m.ActivatePreset(Foreground, "red", nil))

	require.True(t, m.UpdatePresetConfig(Foreground, "a.b", 9.0))
	<-store.saved

	assert.Equal(t, 9.0, insts[0].cfg.GetFloat("a.b", -1))
	store.mu.Lock()
	persisted := store.data["red/foreground"]
	store.mu.Unlock()
	require.NotNil(t, persisted)
	assert.Equal(t, 9.0, persisted.GetFloat("a.b", -1))
	assert.Equal(t, 2.0, persisted.GetFloat("a.c", -1))

	// save failures are swallowed, the live config still updated
	store.saveErr = errors.New("disk full")
	require.True(t, m.UpdatePresetConfig(Foreground, "a.b", 10.0))
	<-store.saved
	assert.Equal(t, 10.0, insts[0].cfg.GetFloat("a.b", -1))

	// inactive layers reject edits
	assert.False(t, m.UpdatePresetConfig(Mid, "a.b", 1.0))
}

func TestLoadFailureFallsBackToDefaults(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("corrupt json")
	var insts []*paintInst
	m, _ := testManager(t, store, solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, &insts))

	saved := m.LoadSavedConfig("red", Background)
	assert.Nil(t, saved)
	require.True(t, m.ActivatePreset(Background, "red", saved))
	assert.Equal(t, 1.0, insts[0].cfg.GetFloat("a.b", -1))
}

func TestRenderLayersClearsEachFrame(t *testing.T) {
	m, _ := testManager(t, nil, solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 0.5}, nil))
	require.True(t, m.ActivatePreset(Background, "red", nil))

	m.RenderLayers(0)
	first := m.Ordered()[0].Target.At(0, 0)
	m.RenderLayers(1.0 / 60.0)
	second := m.Ordered()[0].Target.At(0, 0)

	// a second frame must not accumulate over the first
	assert.Equal(t, first, second)

	// deactivated layers keep their target but render nothing new
	m.DeactivatePreset(Background)
	m.RenderLayers(2.0 / 60.0)
}

func TestRenderPanicIsIsolatedPerLayer(t *testing.T) {
	faulty := preset.Raw{Def: &preset.Definition{
		ID: "faulty",
		Factory: func() preset.Instance {
			return &panickyInst{}
		},
	}}
	m, _ := testManager(t, nil, solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, nil), faulty)
	require.True(t, m.ActivatePreset(Background, "faulty", nil))
	require.True(t, m.ActivatePreset(Mid, "red", nil))

	m.RenderLayers(0)

	// the healthy layer still rendered this frame
	assert.Equal(t, gfx.Color{R: 1, G: 0, B: 0, A: 1}, m.Ordered()[1].Target.At(0, 0))
}

type panickyInst struct{}

func (p *panickyInst) Init(scene *gfx.Scene, _ preset.Config) error {
	scene.Add(gfx.NodeFunc(func(*gfx.Target) { panic("bad uniform") }))
	return nil
}
func (p *panickyInst) Update(float64)           {}
func (p *panickyInst) UpdateConfig(string, any) {}
func (p *panickyInst) SetAudio(*audio.Snapshot) {}
func (p *panickyInst) SetBPM(float64)           {}
func (p *panickyInst) Beat()                    {}
func (p *panickyInst) Dispose()                 {}

func TestResizePropagation(t *testing.T) {
	m, _ := testManager(t, nil)
	require.NoError(t, m.UpdateSize(1280, 720, 1.0))
	for _, l := range m.Ordered() {
		assert.Equal(t, 1280, l.Target.Width())
		assert.Equal(t, 720, l.Target.Height())
	}

	require.NoError(t, m.UpdateSize(640, 360, 2.0))
	for _, l := range m.Ordered() {
		assert.Equal(t, 1280, l.Target.Width())
		assert.Equal(t, 720, l.Target.Height())
	}
}

func TestTempoFanOut(t *testing.T) {
	var insts []*paintInst
	m, _ := testManager(t, nil,
		solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, &insts),
		solidRaw("blue", gfx.Color{R: 0, G: 0, B: 1, A: 1}, &insts),
	)
	require.True(t, m.ActivatePreset(Background, "red", nil))
	require.True(t, m.ActivatePreset(Foreground, "blue", nil))

	m.UpdateBPM(128)
	m.TriggerBeat()
	m.TriggerBeat()

	for _, p := range insts {
		assert.Equal(t, 128.0, p.bpm)
		assert.Equal(t, 2, p.beats)
	}
}

func TestDisposeReleasesEverything(t *testing.T) {
	var insts []*paintInst
	m, _ := testManager(t, nil, solidRaw("red", gfx.Color{R: 1, G: 0, B: 0, A: 1}, &insts))
	require.True(t, m.ActivatePreset(Mid, "red", nil))

	m.Dispose()
	m.Dispose() // second call is a no-op

	assert.True(t, insts[0].disposed)
	for _, l := range m.Ordered() {
		assert.True(t, l.Target.Released())
		assert.Equal(t, 0, l.Scene.Len())
	}
}
