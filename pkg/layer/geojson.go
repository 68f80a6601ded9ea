package layer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// crsMember is the legacy GeoJSON "crs" member, as written by most GIS
// tools. RFC 7946 dropped it, but layers exported from desktop GIS still
// carry it and it is the only in-band CRS signal GeoJSON has.
type crsMember struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// collection mirrors the wire format of a feature collection with an
// optional crs member.
type collection struct {
	Type     string             `json:"type"`
	CRS      *crsMember         `json:"crs,omitempty"`
	Features []*geojson.Feature `json:"features"`
}

// ReadGeoJSON decodes a GeoJSON feature collection from r into a Layer.
//
// The layer CRS is taken from the collection's legacy "crs" member when
// present, falling back to defaultCRS (per RFC 7946 an absent member means
// WGS 84, so callers typically pass "EPSG:4326").
//
// Feature IDs are preserved when present; features without an ID get a
// random one. ReadGeoJSON does not close r.
func ReadGeoJSON(r io.Reader, name, defaultCRS string) (*Layer, error) {
	var data collection
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if data.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode: expected FeatureCollection, got %q", data.Type)
	}

	crs := defaultCRS
	if data.CRS != nil && data.CRS.Properties.Name != "" {
		crs = data.CRS.Properties.Name
	}

	l := New(name, crs)
	for i, f := range data.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %d: missing geometry", i)
		}
		l.Add(Feature{ID: f.ID, Geom: f.Geometry, Props: f.Properties})
	}
	return l, nil
}

// ImportGeoJSON reads a GeoJSON file at path and returns the decoded layer.
// The file's base name is used as the layer name unless name is non-empty.
func ImportGeoJSON(path, name, defaultCRS string) (*Layer, error) {
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGeoJSON(f, name, defaultCRS)
}

// WriteGeoJSON encodes the layer as a GeoJSON feature collection and writes
// it to w. The layer CRS is recorded in the legacy "crs" member so the
// output round-trips through ReadGeoJSON.
func WriteGeoJSON(l *Layer, w io.Writer) error {
	out := collection{
		Type:     "FeatureCollection",
		Features: make([]*geojson.Feature, len(l.Features)),
	}
	if l.CRS != "" {
		crs := &crsMember{Type: "name"}
		crs.Properties.Name = l.CRS
		out.CRS = crs
	}

	for i, f := range l.Features {
		out.Features[i] = &geojson.Feature{
			ID:         f.ID,
			Geometry:   f.Geom,
			Properties: f.Props,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportGeoJSON writes the layer to a GeoJSON file at path.
// This is a convenience wrapper around [WriteGeoJSON] for file-based output.
func ExportGeoJSON(l *Layer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGeoJSON(l, f)
}
