// Package engine wires the preset registry, layer manager, and compositor
// into a frame-capped render loop and exposes the public control API.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/compositor"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/layer"
	"github.com/coreman2200/luxdeck/internal/preset"
)

// Sink consumes composited frames: a display surface, a websocket
// broadcaster, a headless summarizer.
type Sink interface {
	Write(frame *gfx.Target) error
}

// MaxPixelRatio caps device-pixel scaling to keep buffer sizes sane on
// hidpi outputs.
const MaxPixelRatio = 2.0

// Options fixes the logical resolution and pacing of an engine instance.
type Options struct {
	Width      int
	Height     int
	PixelRatio float64 // capped to MaxPixelRatio
	MaxFPS     int     // frame-rate cap; <=0 means 60
	LayerOrder []string
	Post       compositor.PostPipeline
}

func (o *Options) normalize() {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.PixelRatio <= 0 {
		o.PixelRatio = 1
	}
	if o.PixelRatio > MaxPixelRatio {
		o.PixelRatio = MaxPixelRatio
	}
	if o.MaxFPS <= 0 {
		o.MaxFPS = 60
	}
}

// Metrics holds the most recent frame timings in milliseconds.
type Metrics struct {
	RenderMS    float64
	CompositeMS float64
	TotalMS     float64
	Frames      uint64
}

// Engine owns the whole pipeline. All mutable state is guarded by mu; the
// render loop and every public entry point take it, so audio and tempo
// producers may call in at any time between frames.
type Engine struct {
	log  zerolog.Logger
	opts Options

	reg    *preset.Registry
	layers *layer.Manager
	comp   *compositor.Compositor
	sink   Sink

	mu          sync.Mutex
	t0          time.Time
	initialized bool
	disposed    bool
	cancel      context.CancelFunc
	loopDone    chan struct{}

	// last frame timings in ms, for the health surface
	last Metrics
}

// New builds the pipeline in dependency order: registry, layer manager,
// compositor.
func New(opts Options, source preset.Source, st layer.Store, sink Sink, log zerolog.Logger) (*Engine, error) {
	opts.normalize()

	reg := preset.NewRegistry(source, log)
	layers, err := layer.NewManager(reg, st, opts.LayerOrder, opts.Width, opts.Height, opts.PixelRatio, log)
	if err != nil {
		return nil, err
	}
	comp, err := compositor.New(opts.Width, opts.Height, opts.PixelRatio)
	if err != nil {
		layers.Dispose()
		return nil, err
	}
	comp.SetPost(opts.Post)

	return &Engine{
		log:    log,
		opts:   opts,
		reg:    reg,
		layers: layers,
		comp:   comp,
		sink:   sink,
		t0:     time.Now(),
	}, nil
}

// SetSink installs or swaps the frame consumer. Allowed at any time; the
// control surface is usually built after the engine and wired in here.
func (e *Engine) SetSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = s
}

// LoadPresets discovers the catalog without starting the render loop, for
// callers that drive frames themselves (simulators, tests). Duplicate loads
// keep the first definition per id.
func (e *Engine) LoadPresets() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reg.LoadAll()
}

// Initialize loads the preset catalog and starts the render loop. Exactly
// once per engine; re-initialization is unsupported.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return errors.New("engine already initialized")
	}
	e.initialized = true
	e.reg.LoadAll()
	ctx, e.cancel = context.WithCancel(ctx)
	e.loopDone = make(chan struct{})
	e.mu.Unlock()

	go e.loop(ctx)
	return nil
}

// loop ticks at 4x the FPS cap and executes a frame only when the frame
// interval has elapsed, so the effective rate stays under the cap without
// starving the timer chain.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.loopDone)

	interval := time.Second / time.Duration(e.opts.MaxFPS)
	tick := interval / 4
	if tick < time.Millisecond {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var lastFrame time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !lastFrame.IsZero() && now.Sub(lastFrame) < interval {
				continue
			}
			lastFrame = now
			e.RenderFrame()
		}
	}
}

// RenderFrame executes one frame: render all layers, advance instances,
// composite, hand the frame to the sink. Bounded synchronous work; also
// callable directly by simulators and tests.
func (e *Engine) RenderFrame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	start := time.Now()
	now := start.Sub(e.t0).Seconds()

	e.layers.RenderLayers(now)
	renderDone := time.Now()

	ordered := e.layers.Ordered()
	inputs := make([]compositor.Input, 0, len(ordered))
	for _, l := range ordered {
		inputs = append(inputs, compositor.Input{Tex: l.Target, Opacity: l.Opacity, Active: l.Active})
	}
	out := e.comp.Composite(inputs)

	if e.sink != nil {
		if err := e.sink.Write(out); err != nil {
			e.log.Warn().Err(err).Msg("sink write failed")
		}
	}

	end := time.Now()
	e.last.RenderMS = float64(renderDone.Sub(start).Microseconds()) / 1000.0
	e.last.CompositeMS = float64(end.Sub(renderDone).Microseconds()) / 1000.0
	e.last.TotalMS = float64(end.Sub(start).Microseconds()) / 1000.0
	e.last.Frames++
}

// ActivateLayerPreset binds a preset to a layer. The persisted override is
// loaded before the frame mutex is taken, so rendering never blocks on the
// store; the actual swap happens between frames.
func (e *Engine) ActivateLayerPreset(layerID, presetID string) bool {
	saved := e.layers.LoadSavedConfig(presetID, layerID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return false
	}
	return e.layers.ActivatePreset(layerID, presetID, saved)
}

func (e *Engine) DeactivateLayerPreset(layerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.layers.DeactivatePreset(layerID)
}

func (e *Engine) UpdateLayerConfig(layerID string, s layer.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers.UpdateLayerConfig(layerID, s)
}

// SetLayerOpacity is the normalized [0,1] opacity entry point used by
// automation (the cue player works in normalized units).
func (e *Engine) SetLayerOpacity(layerID string, v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers.SetOpacity(layerID, v)
}

func (e *Engine) UpdateLayerPresetConfig(layerID, path string, value any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return false
	}
	return e.layers.UpdatePresetConfig(layerID, path, value)
}

// UpdateAudioData fans one snapshot out to every live instance. Called at
// the audio producer's cadence, which may be faster or slower than the
// render loop; instances tolerate both.
func (e *Engine) UpdateAudioData(s *audio.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.reg.Push(s)
}

func (e *Engine) UpdateBpm(bpm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers.UpdateBPM(bpm)
}

func (e *Engine) TriggerBeat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers.TriggerBeat()
}

// SetGlobalOpacity clamps and applies the master fade scalar.
func (e *Engine) SetGlobalOpacity(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comp.SetGlobalOpacity(gfx.Clamp01(v))
}

// Resize propagates a new output resolution to every layer target and the
// compositor output. The pixel ratio is capped.
func (e *Engine) Resize(w, h int, pixelRatio float64) error {
	if pixelRatio > MaxPixelRatio {
		pixelRatio = MaxPixelRatio
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.layers.UpdateSize(w, h, pixelRatio); err != nil {
		return err
	}
	return e.comp.Resize(w, h, pixelRatio)
}

// GetAvailablePresets returns the loaded catalog in load order.
func (e *Engine) GetAvailablePresets() []*preset.Definition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Definitions()
}

// LayerStatus returns the per-layer activity snapshot for the UI.
func (e *Engine) LayerStatus() map[string]layer.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layers.Status()
}

// Metrics returns a copy of the most recent frame timings.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// ExpandPresetFamily regenerates the derived sibling set for a templated
// preset. Layers running an outgoing sibling are deactivated first so no
// layer points at a dropped definition.
func (e *Engine) ExpandPresetFamily(baseID string, n int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.reg.FamilyIDs(baseID)
	for layerID, st := range e.layers.Status() {
		for _, id := range old {
			if st.Preset == id {
				e.layers.DeactivatePreset(layerID)
			}
		}
	}
	return e.reg.ExpandFamily(baseID, n)
}

// Dispose stops the render loop, waits for it, and tears the pipeline down
// in reverse construction order. Safe to call once; later public calls
// become no-ops rather than crashing.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	cancel := e.cancel
	done := e.loopDone
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers.Dispose()
	e.comp.Dispose()
	e.reg.Dispose()
	e.log.Info().Uint64("frames", e.last.Frames).Msg("engine disposed")
}
