// Package kernel wraps the GEOS computational-geometry library with the
// operations the cadastral pipeline needs: buffering, Voronoi tessellation,
// boolean overlay, multipart splitting, and area/extent queries.
//
// All operations take and return layers; geometries cross the boundary to
// GEOS as WKB and come back the same way, so the rest of the codebase only
// ever sees go-geom types. GEOS reports failures by panicking inside the
// binding; every public operation converts such panics into a structured
// KERNEL_ERROR carrying the original cause.
//
// A Kernel owns a single GEOS context and is not safe for concurrent use.
// Each pipeline run creates its own Kernel.
package kernel

import (
	"encoding/binary"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
)

// quadSegments is the number of segments used to approximate a quarter
// circle when buffering. Held constant across modes so block and parcel
// boundaries remain reconcilable.
const quadSegments = 8

// Kernel is a handle to a GEOS context.
type Kernel struct {
	ctx *geos.Context
}

// New creates a kernel with a fresh GEOS context.
func New() *Kernel {
	return &Kernel{ctx: geos.NewContext()}
}

// guard runs fn, converting GEOS panics into a KERNEL_ERROR. The original
// cause is preserved verbatim; no fallback algorithm is substituted.
func guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = errors.Wrap(errors.ErrCodeKernel, cause, "%s failed", op)
		}
	}()
	fn()
	return nil
}

// toGeos converts a go-geom geometry to a GEOS geometry via WKB.
func (k *Kernel) toGeos(g geom.T) (*geos.Geom, error) {
	data, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "encode geometry")
	}
	gg, err := k.ctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "decode geometry into kernel")
	}
	return gg, nil
}

// fromGeos converts a GEOS geometry back to a go-geom geometry via WKB.
func (k *Kernel) fromGeos(g *geos.Geom) (geom.T, error) {
	var data []byte
	if err := guard("export geometry", func() { data = g.ToWKB() }); err != nil {
		return nil, err
	}
	out, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "decode kernel geometry")
	}
	return out, nil
}

// layerToGeos converts all feature geometries of a layer.
func (k *Kernel) layerToGeos(l *layer.Layer) ([]*geos.Geom, error) {
	geoms := make([]*geos.Geom, len(l.Features))
	for i, f := range l.Features {
		g, err := k.toGeos(f.Geom)
		if err != nil {
			return nil, err
		}
		geoms[i] = g
	}
	return geoms, nil
}
