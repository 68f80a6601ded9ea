// Package layer provides the in-memory vector layer model used by the
// cadastral pipeline.
//
// A Layer is an ordered set of features, each with a geometry and optional
// properties, sharing a single coordinate reference system. Pipeline stages
// never mutate input layers; each stage constructs a new layer, so earlier
// results stay valid for diagnostics after later stages run.
//
// Layers are serialized as GeoJSON feature collections (see geojson.go) and
// resolved by name through a Registry (see registry.go).
package layer

import (
	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
)

// Feature is a single vector feature: a geometry plus freeform properties.
type Feature struct {
	ID    string
	Geom  geom.T
	Props map[string]any
}

// Clone returns a copy of the feature with an independent property map.
// The geometry is shared; features are treated as immutable once added
// to a layer.
func (f Feature) Clone() Feature {
	props := make(map[string]any, len(f.Props))
	for k, v := range f.Props {
		props[k] = v
	}
	return Feature{ID: f.ID, Geom: f.Geom, Props: props}
}

// Layer is an ordered collection of features sharing one CRS.
type Layer struct {
	Name     string
	CRS      string
	Features []Feature
}

// New creates an empty layer with the given name and CRS.
func New(name, crs string) *Layer {
	return &Layer{Name: name, CRS: crs}
}

// Add appends a feature to the layer. If the feature has no ID, a random
// one is assigned so provenance can be traced through later stages.
func (l *Layer) Add(f Feature) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	l.Features = append(l.Features, f)
}

// Count returns the number of features in the layer.
func (l *Layer) Count() int {
	return len(l.Features)
}

// Bounds returns the bounding extent of all feature geometries, or nil for
// an empty layer.
func (l *Layer) Bounds() *geom.Bounds {
	var b *geom.Bounds
	for _, f := range l.Features {
		if f.Geom == nil {
			continue
		}
		if b == nil {
			b = geom.NewBounds(f.Geom.Layout())
		}
		b.Extend(f.Geom)
	}
	return b
}
