package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/luxdeck/internal/audio"
	diag "github.com/coreman2200/luxdeck/internal/diagnostics"
	"github.com/coreman2200/luxdeck/internal/engine"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/layer"
	"github.com/coreman2200/luxdeck/internal/preset"
	"github.com/coreman2200/luxdeck/internal/store"
)

type nullInst struct{}

func (nullInst) Init(*gfx.Scene, preset.Config) error { return nil }
func (nullInst) Update(float64)                       {}
func (nullInst) UpdateConfig(string, any)             {}
func (nullInst) SetAudio(*audio.Snapshot)             {}
func (nullInst) SetBPM(float64)                       {}
func (nullInst) Beat()                                {}
func (nullInst) Dispose()                             {}

func newTestState(t *testing.T) (*State, *engine.Engine, *diag.Recorder) {
	t.Helper()
	raws := []preset.Raw{
		{Def: &preset.Definition{ID: "solid", Name: "Solid", Factory: func() preset.Instance { return nullInst{} }}},
		{Def: &preset.Definition{ID: "doomed", Factory: func() preset.Instance { panic("no") }}},
	}
	eng, err := engine.New(engine.Options{Width: 4, Height: 4}, preset.StaticSource(raws), store.NewMemStore(), nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, eng.Initialize(context.Background()))
	t.Cleanup(eng.Dispose)

	diags := diag.NewRecorder(8)
	return NewState(eng, diags, 20), eng, diags
}

func TestControlVerbs(t *testing.T) {
	s, eng, diags := newTestState(t)

	s.ApplyControl(map[string]any{"activate": map[string]any{"layer": layer.Background, "preset": "solid"}})
	assert.True(t, eng.LayerStatus()[layer.Background].Active)

	s.ApplyControl(map[string]any{"layer": map[string]any{"id": layer.Background, "opacity": 50.0}})
	s.ApplyControl(map[string]any{"global": 0.8})
	s.ApplyControl(map[string]any{"bpm": 140.0})
	s.ApplyControl(map[string]any{"beat": true})

	s.ApplyControl(map[string]any{"deactivate": layer.Background})
	assert.False(t, eng.LayerStatus()[layer.Background].Active)

	// failed activation surfaces as a diagnostic, not an error
	s.ApplyControl(map[string]any{"activate": map[string]any{"layer": layer.Mid, "preset": "doomed"}})
	recent := diags.Recent()
	require.NotEmpty(t, recent)
	assert.Equal(t, diag.CodePresetInitFailed, recent[len(recent)-1].Code)
}

func TestWriteThrottlesWithoutClients(t *testing.T) {
	s, _, _ := newTestState(t)
	frame, err := gfx.NewTarget(2, 2, 1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Write(frame))
	}
	// no clients: frames counted, nothing buffered or sent
	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Equal(t, uint64(5), s.frameID)
}

func TestHealthEndpoint(t *testing.T) {
	s, _, diags := newTestState(t)
	diags.Publish(diag.Diagnostic{Severity: diag.Warn, Code: diag.CodeSinkStall, Summary: "slow client"})

	rec := httptest.NewRecorder()
	s.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "uptime_s")
	assert.Contains(t, resp, "layers")
	ds, ok := resp["diagnostics"].([]any)
	require.True(t, ok)
	assert.Len(t, ds, 1)
}

func TestHealthSafeWhileRendering(t *testing.T) {
	s, eng, _ := newTestState(t)
	s.ApplyControl(map[string]any{"activate": map[string]any{"layer": layer.Background, "preset": "solid"}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			eng.RenderFrame()
		}
	}()
	for i := 0; i < 200; i++ {
		rec := httptest.NewRecorder()
		s.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	<-done

	m := eng.Metrics()
	assert.GreaterOrEqual(t, m.Frames, uint64(200))
}

func TestFramesSocketReceivesCatalog(t *testing.T) {
	s, _, _ := newTestState(t)
	srv := httptest.NewServer(http.HandlerFunc(s.HandleFramesWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var cat map[string]any
	require.NoError(t, json.Unmarshal(data, &cat))
	presets, ok := cat["presets"].([]any)
	require.True(t, ok)
	assert.Len(t, presets, 2)
}
