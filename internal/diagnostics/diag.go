// Package diagnostics carries structured, user-facing problem reports from
// the pipeline to the control surface: a preset that failed to start, a
// store that cannot be written, a sink that is falling behind.
package diagnostics

import "sync"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Well-known codes the UI special-cases.
const (
	CodePresetInitFailed = "preset_init_failed"
	CodePresetPanic      = "preset_panic"
	CodeStoreIO          = "store_io"
	CodeSinkStall        = "sink_stall"
	CodeShowLoadFailed   = "show_load_failed"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Recorder keeps the most recent diagnostics in arrival order, bounded, for
// the health endpoint and late-joining UI clients.
type Recorder struct {
	mu    sync.Mutex
	max   int
	items []Diagnostic
	subs  []func(Diagnostic)
}

func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = 32
	}
	return &Recorder{max: max}
}

// Subscribe registers a callback for every future diagnostic. Callbacks run
// on the publisher's goroutine and must not block.
func (r *Recorder) Subscribe(fn func(Diagnostic)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

func (r *Recorder) Publish(d Diagnostic) {
	r.mu.Lock()
	r.items = append(r.items, d)
	if len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
	subs := append([]func(Diagnostic){}, r.subs...)
	r.mu.Unlock()
	for _, fn := range subs {
		fn(d)
	}
}

// Recent returns a copy of the retained diagnostics, oldest first.
func (r *Recorder) Recent() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.items...)
}
