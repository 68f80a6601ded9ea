package pipeline

import (
	"fmt"

	"github.com/twpayne/go-geom"

	"github.com/CESMikef/cadastral-automation/pkg/crs"
	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/kernel"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
)

// BuildRoadReserve buffers road centerlines into a single dissolved
// road-reserve polygon layer. The centerlines must already be in the
// working metric CRS.
func BuildRoadReserve(k *kernel.Kernel, roads *layer.Layer, distance float64) (*layer.Layer, error) {
	if distance <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidBuffer, "road buffer distance must be positive, got %g", distance)
	}
	reserve, err := k.Buffer(roads, distance, true)
	if err != nil {
		return nil, err
	}
	reserve.Name = "road_reserve"
	return reserve, nil
}

// ExtractBlocks derives the road-enclosed blocks: the negative space of
// the road reserve within a padded bounding extent, split into single-part
// polygons. Roads are projected into the target CRS and buffered
// internally, mirroring the parcel pipeline's reserve so the two stay
// reconcilable.
//
// The extent is the road reserve's bounds grown by 5x the buffer distance
// on all sides, which keeps blocks at the dataset edge fully enclosed.
// With no roads at all the padded rectangle itself (derived from fallback,
// typically the point layer's extent) is returned as one giant block; a
// degenerate but valid result.
func ExtractBlocks(k *kernel.Kernel, roads *layer.Layer, distance float64, target *crs.CRS, fallback *geom.Bounds) (*layer.Layer, error) {
	projected, err := crs.ProjectLayer(roads, target)
	if err != nil {
		return nil, err
	}
	reserve, err := BuildRoadReserve(k, projected, distance)
	if err != nil {
		return nil, err
	}

	bounds := reserve.Bounds()
	if bounds == nil {
		bounds = fallback
	}
	if bounds == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot determine block extent: no roads and no fallback extent")
	}

	pad := blockExtentPadFactor * distance
	extent := layer.New("blocks", target.Code)
	extent.Add(layer.Feature{Geom: kernel.RectFromBounds(bounds, pad, pad)})

	blocks, err := k.Difference(extent, reserve)
	if err != nil {
		return nil, err
	}
	blocks, err = k.SingleParts(blocks)
	if err != nil {
		return nil, err
	}
	blocks.Name = "blocks"
	return blocks, nil
}

// Tessellate computes the nearest-point partition of the building points:
// one candidate parcel cell per point, expanded by extentPct percent of
// the dataset extent so boundary points get full cells.
//
// Tessellation is undefined for fewer than two distinct locations and
// fails accordingly. A cell count below the point count (coincident or
// degenerate points) is reported through the returned warning, not as an
// error; downstream stages proceed with the cells that exist.
func Tessellate(k *kernel.Kernel, points *layer.Layer, extentPct float64) (cells *layer.Layer, warning string, err error) {
	if distinctLocations(points) < 2 {
		return nil, "", errors.New(errors.ErrCodeTooFewPoints,
			"tessellation needs at least 2 distinct building points, layer %q has %d", points.Name, distinctLocations(points))
	}

	cells, err = k.Voronoi(points, extentPct)
	if err != nil {
		return nil, "", err
	}
	cells.Name = "tessellation"

	if cells.Count() < points.Count() {
		warning = fmt.Sprintf("%d of %d points did not get a tessellation cell (coincident or degenerate points)",
			points.Count()-cells.Count(), points.Count())
	}
	return cells, warning, nil
}

// distinctLocations counts unique point coordinates in a layer.
func distinctLocations(points *layer.Layer) int {
	type xy struct{ x, y float64 }
	seen := make(map[xy]bool, points.Count())
	for _, f := range points.Features {
		if p, ok := f.Geom.(*geom.Point); ok {
			seen[xy{p.X(), p.Y()}] = true
		}
	}
	return len(seen)
}

// SubtractRoads removes the road-reserve area from each candidate parcel.
// Candidates fully inside the reserve vanish; candidates straddling a road
// fragment into multi-part features.
func SubtractRoads(k *kernel.Kernel, candidates, reserve *layer.Layer) (*layer.Layer, error) {
	out, err := k.Difference(candidates, reserve)
	if err != nil {
		return nil, err
	}
	out.Name = "parcels"
	return out, nil
}

// ClampToBlocks intersects candidate parcels with the block polygons so no
// parcel spans more than one block. Tessellation is purely distance based
// and knows nothing of road-network topology, so this explicit containment
// step is what enforces the cross-block invariant.
func ClampToBlocks(k *kernel.Kernel, candidates, blocks *layer.Layer) (*layer.Layer, error) {
	out, err := k.Intersection(candidates, blocks)
	if err != nil {
		return nil, err
	}
	out.Name = candidates.Name
	return out, nil
}

// FilterByArea keeps only polygons whose planar area lies in the closed
// interval [minArea, maxArea]; maxArea <= 0 means unbounded above.
// Survivors get an "area_sqm" property.
func FilterByArea(k *kernel.Kernel, l *layer.Layer, minArea, maxArea float64) (*layer.Layer, error) {
	out := layer.New(l.Name, l.CRS)
	for _, f := range l.Features {
		area, err := k.Area(f.Geom)
		if err != nil {
			return nil, err
		}
		if area < minArea {
			continue
		}
		if maxArea > 0 && area > maxArea {
			continue
		}
		kept := f.Clone()
		if kept.Props == nil {
			kept.Props = map[string]any{}
		}
		kept.Props["area_sqm"] = area
		out.Add(kept)
	}
	return out, nil
}
