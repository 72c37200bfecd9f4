package preset

import "strings"

// Config is an arbitrarily nested parameter tree. Leaf values are numbers,
// strings, booleans, color hex strings, or arrays. Trees are addressed by
// dotted paths ("particles.count") with explicit get/set/merge utilities;
// no reflection.
type Config map[string]any

// Clone deep-copies a config tree. Nested maps are copied recursively,
// slices are copied shallowly per element (leaf slices hold scalars).
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Config:
		return t.Clone()
	case map[string]any:
		return Config(t).Clone()
	case []any:
		cp := make([]any, len(t))
		copy(cp, t)
		return cp
	default:
		return v
	}
}

// Merge deep-merges override onto a clone of base and returns the result.
// Conflicting leaves take the override value, nested maps merge
// recursively, arrays replace wholesale. Neither input is mutated.
func Merge(base, override Config) Config {
	out := base.Clone()
	if out == nil {
		out = Config{}
	}
	for k, ov := range override {
		bm, bok := asMap(out[k])
		om, ook := asMap(ov)
		if bok && ook {
			out[k] = Merge(bm, om)
			continue
		}
		out[k] = cloneValue(ov)
	}
	return out
}

func asMap(v any) (Config, bool) {
	switch t := v.(type) {
	case Config:
		return t, true
	case map[string]any:
		return Config(t), true
	default:
		return nil, false
	}
}

// Get resolves a dotted path. The second return reports whether every
// segment existed.
func (c Config) Get(path string) (any, bool) {
	if c == nil || path == "" {
		return nil, false
	}
	segs := strings.Split(path, ".")
	cur := c
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return nil, false
		}
		if i == len(segs)-1 {
			return v, true
		}
		m, ok := asMap(v)
		if !ok {
			return nil, false
		}
		cur = m
	}
	return nil, false
}

// GetFloat reads a numeric leaf with a default. JSON round-trips turn
// numbers into float64; int leaves written in code are accepted too.
func (c Config) GetFloat(path string, def float64) float64 {
	v, ok := c.Get(path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// GetString reads a string leaf with a default.
func (c Config) GetString(path, def string) string {
	if v, ok := c.Get(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetBool reads a boolean leaf with a default.
func (c Config) GetBool(path string, def bool) bool {
	if v, ok := c.Get(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Set writes value at a dotted path, creating intermediate maps as needed.
// A non-map intermediate is replaced by a map (the edit wins).
func (c Config) Set(path string, value any) {
	if c == nil || path == "" {
		return
	}
	segs := strings.Split(path, ".")
	cur := c
	for i, seg := range segs {
		if i == len(segs)-1 {
			cur[seg] = value
			return
		}
		next, ok := asMap(cur[seg])
		if !ok {
			next = Config{}
			cur[seg] = next
		}
		cur = next
	}
}
