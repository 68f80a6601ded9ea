package kernel

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"

	"github.com/CESMikef/cadastral-automation/pkg/layer"
)

// Buffer buffers every feature of l by distance. Buffering uses flat end
// caps, round joins, and an 8-segment circular approximation; this bounds
// the curve-approximation error to a fixed fraction of the buffer radius.
//
// With dissolve set, overlapping and adjacent buffers are merged into a
// single feature holding the union.
func (k *Kernel) Buffer(l *layer.Layer, distance float64, dissolve bool) (*layer.Layer, error) {
	geoms, err := k.layerToGeos(l)
	if err != nil {
		return nil, err
	}

	out := layer.New(l.Name, l.CRS)
	buffered := make([]*geos.Geom, len(geoms))
	if err := guard("buffer", func() {
		for i, g := range geoms {
			buffered[i] = g.BufferWithStyle(distance, quadSegments, geos.BufCapStyleFlat, geos.BufJoinStyleRound, 0)
		}
	}); err != nil {
		return nil, err
	}

	if dissolve {
		var union *geos.Geom
		if err := guard("dissolve", func() {
			union = k.ctx.NewCollection(geos.TypeIDGeometryCollection, buffered).UnaryUnion()
		}); err != nil {
			return nil, err
		}
		g, err := k.fromGeos(union)
		if err != nil {
			return nil, err
		}
		if p := polygonal(g); p != nil {
			out.Add(layer.Feature{Geom: p})
		}
		return out, nil
	}

	for i, g := range buffered {
		gg, err := k.fromGeos(g)
		if err != nil {
			return nil, err
		}
		if p := polygonal(gg); p != nil {
			out.Add(layer.Feature{ID: l.Features[i].ID, Geom: p, Props: l.Features[i].Props})
		}
	}
	return out, nil
}

// Voronoi computes a nearest-point tessellation of the input point layer:
// one cell per point, every location in a cell closer to its point than to
// any other. Cells are clipped to the layer extent grown by extentBufferPct
// percent on each axis, so boundary points get full cells instead of
// clipped slivers.
//
// The returned cell count may be lower than the point count when points
// are coincident or degenerate; callers are expected to detect and report
// the discrepancy as a warning, not an error.
//
// Each cell carries a "point_id" property naming the feature whose point
// it contains, for provenance tracking through later stages.
func (k *Kernel) Voronoi(points *layer.Layer, extentBufferPct float64) (*layer.Layer, error) {
	geoms, err := k.layerToGeos(points)
	if err != nil {
		return nil, err
	}

	b := points.Bounds()
	padX := (b.Max(0) - b.Min(0)) * extentBufferPct / 100
	padY := (b.Max(1) - b.Min(1)) * extentBufferPct / 100
	envRect := RectFromBounds(b, padX, padY)
	env, err := k.toGeos(envRect)
	if err != nil {
		return nil, err
	}

	var diagram *geos.Geom
	if err := guard("voronoi", func() {
		sites := k.ctx.NewCollection(geos.TypeIDGeometryCollection, geoms)
		diagram = sites.VoronoiDiagram(env, 0, 0)
	}); err != nil {
		return nil, err
	}

	// Sites were consumed by the collection; reconvert for containment tags.
	sites := make([]*geos.Geom, len(points.Features))
	for i, f := range points.Features {
		g, err := k.toGeos(f.Geom)
		if err != nil {
			return nil, err
		}
		sites[i] = g
	}

	out := layer.New(points.Name, points.CRS)
	for i := 0; i < diagram.NumGeometries(); i++ {
		var clipped *geos.Geom
		if err := guard("clip voronoi cell", func() {
			clipped = diagram.Geometry(i).Intersection(env)
		}); err != nil {
			return nil, err
		}
		if clipped.IsEmpty() {
			continue
		}

		props := map[string]any{}
		for j, site := range sites {
			if clipped.Contains(site) {
				props["point_id"] = points.Features[j].ID
				break
			}
		}

		g, err := k.fromGeos(clipped)
		if err != nil {
			return nil, err
		}
		if p := polygonal(g); p != nil {
			out.Add(layer.Feature{Geom: p, Props: props})
		}
	}
	return out, nil
}

// Difference subtracts the union of b's geometries from every feature of a.
// A feature may fragment into multiple disjoint parts, which stay together
// as one multi-part feature (split them with SingleParts if needed).
// Features left with no area are dropped; that is a legitimate outcome,
// not an error.
func (k *Kernel) Difference(a, b *layer.Layer) (*layer.Layer, error) {
	out := layer.New(a.Name, a.CRS)
	if b.Count() == 0 {
		out.Features = append(out.Features, a.Features...)
		return out, nil
	}

	bGeoms, err := k.layerToGeos(b)
	if err != nil {
		return nil, err
	}
	var overlay *geos.Geom
	if err := guard("dissolve overlay", func() {
		overlay = k.ctx.NewCollection(geos.TypeIDGeometryCollection, bGeoms).UnaryUnion()
	}); err != nil {
		return nil, err
	}

	for _, f := range a.Features {
		g, err := k.toGeos(f.Geom)
		if err != nil {
			return nil, err
		}
		var diff *geos.Geom
		if err := guard("difference", func() {
			diff = g.Difference(overlay)
		}); err != nil {
			return nil, err
		}
		if diff.IsEmpty() {
			continue
		}
		gg, err := k.fromGeos(diff)
		if err != nil {
			return nil, err
		}
		if p := polygonal(gg); p != nil {
			out.Add(layer.Feature{ID: f.ID, Geom: p, Props: f.Props})
		}
	}
	return out, nil
}

// Intersection clips every feature of a to every overlapping feature of b,
// producing one output feature per overlapping pair. Output features keep
// a's properties and record the clipping feature's ID under "overlay_id".
func (k *Kernel) Intersection(a, b *layer.Layer) (*layer.Layer, error) {
	bGeoms, err := k.layerToGeos(b)
	if err != nil {
		return nil, err
	}

	out := layer.New(a.Name, a.CRS)
	for _, f := range a.Features {
		g, err := k.toGeos(f.Geom)
		if err != nil {
			return nil, err
		}
		for j, bg := range bGeoms {
			var hit bool
			if err := guard("intersects", func() { hit = g.Intersects(bg) }); err != nil {
				return nil, err
			}
			if !hit {
				continue
			}
			var inter *geos.Geom
			if err := guard("intersection", func() { inter = g.Intersection(bg) }); err != nil {
				return nil, err
			}
			if inter.IsEmpty() {
				continue
			}
			gg, err := k.fromGeos(inter)
			if err != nil {
				return nil, err
			}
			p := polygonal(gg)
			if p == nil {
				continue
			}
			props := f.Clone().Props
			props["overlay_id"] = b.Features[j].ID
			out.Add(layer.Feature{Geom: p, Props: props})
		}
	}
	return out, nil
}

// SingleParts splits multi-part geometries into independent single-part
// features. Each connected component becomes its own feature carrying a
// copy of the source feature's properties. Single-part features pass
// through unchanged.
func (k *Kernel) SingleParts(l *layer.Layer) (*layer.Layer, error) {
	out := layer.New(l.Name, l.CRS)
	for _, f := range l.Features {
		switch t := f.Geom.(type) {
		case *geom.MultiPolygon:
			for i := 0; i < t.NumPolygons(); i++ {
				out.Add(layer.Feature{Geom: t.Polygon(i), Props: f.Clone().Props})
			}
		case *geom.MultiLineString:
			for i := 0; i < t.NumLineStrings(); i++ {
				out.Add(layer.Feature{Geom: t.LineString(i), Props: f.Clone().Props})
			}
		case *geom.MultiPoint:
			for i := 0; i < t.NumPoints(); i++ {
				out.Add(layer.Feature{Geom: t.Point(i), Props: f.Clone().Props})
			}
		default:
			out.Add(f)
		}
	}
	return out, nil
}

// Area returns the planar area of a geometry in squared CRS units.
func (k *Kernel) Area(g geom.T) (float64, error) {
	gg, err := k.toGeos(g)
	if err != nil {
		return 0, err
	}
	var area float64
	if err := guard("area", func() { area = gg.Area() }); err != nil {
		return 0, err
	}
	return area, nil
}

// RectFromBounds constructs a rectangular polygon covering b grown by padX
// and padY on each side.
func RectFromBounds(b *geom.Bounds, padX, padY float64) *geom.Polygon {
	minX, minY := b.Min(0)-padX, b.Min(1)-padY
	maxX, maxY := b.Max(0)+padX, b.Max(1)+padY
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	}, []int{10})
}

// polygonal extracts the polygonal content of g: the polygon or
// multi-polygon itself, or the polygon members of a mixed collection.
// Boolean overlay can emit lower-dimension components (shared edges, touch
// points) that carry no area; they are discarded. Returns nil when nothing
// polygonal remains.
func polygonal(g geom.T) geom.T {
	switch t := g.(type) {
	case *geom.Polygon:
		if len(t.FlatCoords()) == 0 {
			return nil
		}
		return t
	case *geom.MultiPolygon:
		switch t.NumPolygons() {
		case 0:
			return nil
		case 1:
			return t.Polygon(0)
		default:
			return t
		}
	case *geom.GeometryCollection:
		mp := geom.NewMultiPolygon(geom.XY)
		for _, sub := range t.Geoms() {
			switch p := polygonal(sub).(type) {
			case *geom.Polygon:
				_ = mp.Push(p)
			case *geom.MultiPolygon:
				for i := 0; i < p.NumPolygons(); i++ {
					_ = mp.Push(p.Polygon(i))
				}
			}
		}
		return polygonal(mp)
	default:
		return nil
	}
}
