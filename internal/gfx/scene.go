package gfx

// Node is anything a scene can draw into a target. Presets populate their
// layer's scene with nodes during Init and mutate them from Update.
type Node interface {
	Draw(dst *Target)
}

// Scene is an ordered list of drawable nodes, isolated per layer.
type Scene struct {
	nodes []Node
}

func NewScene() *Scene { return &Scene{} }

func (s *Scene) Add(n Node) {
	if n == nil {
		return
	}
	s.nodes = append(s.nodes, n)
}

func (s *Scene) Remove(n Node) {
	for i, existing := range s.nodes {
		if existing == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			return
		}
	}
}

// Clear drops every node. Called when a layer swaps or drops its preset.
func (s *Scene) Clear() { s.nodes = nil }

func (s *Scene) Len() int { return len(s.nodes) }

// Draw renders nodes in insertion order.
func (s *Scene) Draw(dst *Target) {
	for _, n := range s.nodes {
		n.Draw(dst)
	}
}

// NodeFunc adapts a plain function to a Node.
type NodeFunc func(dst *Target)

func (f NodeFunc) Draw(dst *Target) { f(dst) }
