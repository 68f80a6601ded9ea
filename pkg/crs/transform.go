package crs

import (
	"github.com/ctessum/geom/proj"
	"github.com/twpayne/go-geom"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
)

// ProjectLayer returns an equivalent layer with all geometries transformed
// into the target CRS. Feature count, IDs, properties, and geometry types
// are preserved; the input layer is not mutated.
//
// When the layer is already in the target CRS the geometries are reused
// as-is, which makes reprojection idempotent.
func ProjectLayer(l *layer.Layer, target *CRS) (*layer.Layer, error) {
	source, err := Resolve(l.CRS)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCRS, err, "layer %q has unresolvable CRS %q", l.Name, l.CRS)
	}

	out := layer.New(l.Name, target.Code)
	if source.Equal(target) {
		out.Features = append(out.Features, l.Features...)
		return out, nil
	}

	transform, err := source.sr.NewTransform(target.sr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCRS, err, "no transform from %s to %s", source, target)
	}

	for _, f := range l.Features {
		g, err := transformGeom(f.Geom, transform)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "reproject feature %s of layer %q", f.ID, l.Name)
		}
		out.Add(layer.Feature{ID: f.ID, Geom: g, Props: f.Props})
	}
	return out, nil
}

// transformGeom applies a coordinate transform to a geometry, producing a
// new geometry of the same type. Only the first two dimensions are
// transformed; any additional dimensions pass through unchanged.
func transformGeom(g geom.T, transform proj.Transformer) (geom.T, error) {
	flat, err := transformFlat(g.FlatCoords(), g.Layout().Stride(), transform)
	if err != nil {
		return nil, err
	}

	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(t.Layout(), flat), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(t.Layout(), flat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(t.Layout(), flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(t.Layout(), flat, t.Endss()), nil
	default:
		return nil, errors.New(errors.ErrCodeInternal, "unsupported geometry type %T", g)
	}
}

// transformFlat transforms a copy of a flat coordinate slice.
func transformFlat(src []float64, stride int, transform proj.Transformer) ([]float64, error) {
	dst := make([]float64, len(src))
	copy(dst, src)
	for i := 0; i+1 < len(dst); i += stride {
		x, y, err := transform(dst[i], dst[i+1])
		if err != nil {
			return nil, err
		}
		dst[i], dst[i+1] = x, y
	}
	return dst, nil
}
