// Package ws is the control surface: a websocket frame feed for the UI
// preview, a control socket for deck commands, a diagnostics push channel,
// and a plain HTTP health endpoint.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/luxdeck/internal/diagnostics"
	"github.com/coreman2200/luxdeck/internal/engine"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/layer"
)

type State struct {
	mu  sync.RWMutex
	eng *engine.Engine

	diags *diag.Recorder

	frameID     uint64
	startTime   time.Time
	lastSend    time.Time
	minGap      time.Duration
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
}

// NewState wires the surface to an engine. clientFPS caps the preview
// stream; the engine renders at its own rate regardless.
func NewState(eng *engine.Engine, diags *diag.Recorder, clientFPS int) *State {
	if clientFPS <= 0 {
		clientFPS = 20
	}
	s := &State{
		eng:         eng,
		diags:       diags,
		startTime:   time.Now(),
		minGap:      time.Second / time.Duration(clientFPS),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
	}
	if diags != nil {
		diags.Subscribe(s.pushDiag)
	}
	return s
}

// Write implements the engine's frame sink. Frames beyond the client FPS
// cap are counted but not encoded or sent.
func (s *State) Write(frame *gfx.Target) error {
	s.mu.Lock()
	s.frameID++
	id := s.frameID
	now := time.Now()
	throttled := now.Sub(s.lastSend) < s.minGap
	idle := len(s.clients) == 0
	if !throttled && !idle {
		s.lastSend = now
	}
	s.mu.Unlock()
	if throttled || idle {
		return nil
	}

	w, h := frame.Width(), frame.Height()
	rgba := make([]byte, w*h*4)
	for i, c := range frame.Pix() {
		cc := c.Clamped()
		rgba[i*4+0] = byte(cc.R*255 + 0.5)
		rgba[i*4+1] = byte(cc.G*255 + 0.5)
		rgba[i*4+2] = byte(cc.B*255 + 0.5)
		rgba[i*4+3] = byte(cc.A*255 + 0.5)
	}
	s.broadcastFrame(id, w, h, rgba)
	return nil
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	// catalog goes out before the conn joins the broadcast set, so the
	// frame fan-out never writes the socket concurrently with us
	s.sendCatalog(conn)
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	// replay retained diagnostics before joining the push set, keeping
	// this goroutine the sole writer during the replay
	if s.diags != nil {
		for _, d := range s.diags.Recent() {
			b, _ := json.Marshal(d)
			conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
	}
	s.mu.Lock()
	s.diagClients[conn] = true
	s.mu.Unlock()
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.diagClients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.ApplyControl(msg)
		s.sendStatus(conn)
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	frameID := s.frameID
	clients := len(s.clients)
	s.mu.RUnlock()
	m := s.eng.Metrics()
	resp := map[string]any{
		"frame_id":     frameID,
		"uptime_s":     time.Since(s.startTime).Seconds(),
		"clients":      clients,
		"render_ms":    m.RenderMS,
		"composite_ms": m.CompositeMS,
		"layers":       s.eng.LayerStatus(),
	}
	if s.diags != nil {
		resp["diagnostics"] = s.diags.Recent()
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// ApplyControl executes one decoded control message. Exposed for transports
// other than the websocket (MIDI bridges, tests).
func (s *State) ApplyControl(msg map[string]any) {
	if v, ok := msg["activate"].(map[string]any); ok {
		layerID, _ := v["layer"].(string)
		presetID, _ := v["preset"].(string)
		if !s.eng.ActivateLayerPreset(layerID, presetID) && s.diags != nil {
			s.diags.Publish(diag.Diagnostic{
				Severity: diag.Err, Code: diag.CodePresetInitFailed,
				Summary:  "Preset failed to start",
				Evidence: map[string]any{"layer": layerID, "preset": presetID},
			})
		}
	}
	if v, ok := msg["deactivate"].(string); ok {
		s.eng.DeactivateLayerPreset(v)
	}
	if v, ok := msg["layer"].(map[string]any); ok {
		layerID, _ := v["id"].(string)
		var settings layer.Settings
		if op, ok2 := v["opacity"].(float64); ok2 {
			settings.Opacity = &op
		}
		if fd, ok2 := v["fade_ms"].(float64); ok2 {
			settings.FadeMS = &fd
		}
		s.eng.UpdateLayerConfig(layerID, settings)
	}
	if v, ok := msg["param"].(map[string]any); ok {
		layerID, _ := v["layer"].(string)
		path, _ := v["path"].(string)
		s.eng.UpdateLayerPresetConfig(layerID, path, v["value"])
	}
	if v, ok := msg["global"].(float64); ok {
		s.eng.SetGlobalOpacity(v)
	}
	if v, ok := msg["bpm"].(float64); ok {
		s.eng.UpdateBpm(v)
	}
	if v, ok := msg["beat"].(bool); ok && v {
		s.eng.TriggerBeat()
	}
	if v, ok := msg["family"].(map[string]any); ok {
		base, _ := v["base"].(string)
		count, _ := v["count"].(float64)
		if _, err := s.eng.ExpandPresetFamily(base, int(count)); err != nil {
			log.Warn().Err(err).Str("base", base).Msg("family expansion rejected")
		}
	}
	if v, ok := msg["resize"].(map[string]any); ok {
		w, _ := v["w"].(float64)
		h, _ := v["h"].(float64)
		ratio, _ := v["ratio"].(float64)
		if ratio == 0 {
			ratio = 1
		}
		if err := s.eng.Resize(int(w), int(h), ratio); err != nil {
			log.Warn().Err(err).Msg("resize rejected")
		}
	}
}

// sendCatalog pushes the preset catalog and layer state to a new client.
func (s *State) sendCatalog(conn *websocket.Conn) {
	type presetInfo struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category,omitempty"`
		Controls any    `json:"controls,omitempty"`
	}
	defs := s.eng.GetAvailablePresets()
	infos := make([]presetInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, presetInfo{ID: d.ID, Name: d.Name, Category: d.Category, Controls: d.Controls})
	}
	cat := map[string]any{
		"presets": infos,
		"layers":  s.eng.LayerStatus(),
	}
	b, _ := json.Marshal(cat)
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func (s *State) sendStatus(conn *websocket.Conn) {
	b, _ := json.Marshal(map[string]any{"layers": s.eng.LayerStatus()})
	conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func (s *State) broadcastFrame(id uint64, w, h int, rgba []byte) {
	type frame struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		W       int    `json:"w"`
		H       int    `json:"h"`
		RGBA    []byte `json:"rgba"`
	}
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: id, W: w, H: h, RGBA: rgba})
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) pushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.diagClients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}
