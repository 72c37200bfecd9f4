package preset

// Raw is one discovered preset: the definition (with factory and resolved
// shader source) or the error that prevented loading it. A failed item
// never aborts the batch.
type Raw struct {
	Def *Definition
	Err error
}

// Source supplies discoverable preset definitions. The mechanism (static
// registry, plugin scan, manifest) is the collaborator's business; the
// registry only depends on this shape.
type Source interface {
	Discover() ([]Raw, error)
}

// StaticSource is a compiled-in catalog, the production discovery
// mechanism for built-in presets.
type StaticSource []Raw

func (s StaticSource) Discover() ([]Raw, error) { return s, nil }
