package layer

import (
	"sort"
	"strings"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
)

// Registry resolves layers by name. It stands in for the host application's
// layer panel: inputs are registered under user-visible names and looked up
// by the pipeline's input resolver.
type Registry struct {
	layers map[string]*Layer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{layers: make(map[string]*Layer)}
}

// Register adds a layer under its name, replacing any previous layer with
// the same name.
func (r *Registry) Register(l *Layer) {
	r.layers[l.Name] = l
}

// Names returns the registered layer names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.layers))
	for name := range r.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the layer registered under name. A missing layer is
// reported with the list of available layers to aid diagnosis.
func (r *Registry) Lookup(name string) (*Layer, error) {
	if l, ok := r.layers[name]; ok {
		return l, nil
	}
	return nil, errors.New(errors.ErrCodeLayerNotFound,
		"layer %q not found (available: %s)", name, strings.Join(r.Names(), ", "))
}
