// Package pipeline implements the cadastral parcel-generation pipeline:
// an ordered sequence of geometric transformations that turns road
// centerlines and building points into a clean set of non-overlapping
// parcel polygons, each constrained to its containing road block.
//
// The pipeline is strictly sequential; each stage's output is the next
// stage's sole input, and no stage mutates its inputs. Two variants exist:
// parcel mode (tessellation, subtraction, clamping, filtering) and blocks
// mode (block outlines only). Between stages the orchestrator emits a
// progress event and polls for cancellation; a cancelled run is a distinct
// outcome from a failed one.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/CESMikef/cadastral-automation/pkg/crs"
	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/kernel"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
	"github.com/CESMikef/cadastral-automation/pkg/progress"
)

// Step counts per mode, matching the progress events each variant emits.
const (
	parcelModeSteps = 9
	blocksModeSteps = 4
)

// Stats carries feature counts and timing for diagnostics.
type Stats struct {
	RoadCount   int           `json:"road_count"`
	PointCount  int           `json:"point_count"`
	CellCount   int           `json:"cell_count"`
	BlockCount  int           `json:"block_count"`
	OutputCount int           `json:"output_count"`
	Duration    time.Duration `json:"duration"`
}

// Result is the outcome of a successful pipeline run.
type Result struct {
	// Layer is the generated parcel or block layer, in the target CRS.
	Layer *layer.Layer

	// Warnings lists non-fatal conditions encountered during the run
	// (degenerate geometry, tessellation undercount).
	Warnings []string

	// Stats carries feature counts and timing.
	Stats Stats
}

// run tracks per-invocation orchestration state: progress step counter,
// observer, logger, and accumulated warnings.
type run struct {
	kernel   *kernel.Kernel
	observer progress.Observer
	logger   *log.Logger
	step     int
	total    int
	warnings []string
}

// stage advances to the next step, polling for cancellation first.
// count is the running feature count after the previous stage, or -1.
func (r *run) stage(ctx context.Context, count int, format string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCancelled, err, "processing cancelled")
	}
	if r.observer.Cancelled() {
		return errors.New(errors.ErrCodeCancelled, "processing cancelled by user")
	}
	r.step++
	msg := fmt.Sprintf(format, args...)
	r.logger.Info(msg, "step", r.step, "total", r.total)
	r.observer.OnStage(ctx, progress.Event{Step: r.step, Total: r.total, Message: msg, FeatureCount: count})
	return nil
}

// warn records a non-fatal condition and forwards it to the observer.
func (r *run) warn(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Warn(msg)
	r.warnings = append(r.warnings, msg)
	r.observer.OnWarning(ctx, msg)
}

// Run executes the configured pipeline variant against the layers in reg
// and returns the generated layer.
//
// Configuration errors are reported before any geometric work begins. Any
// stage failure aborts the run and propagates the original cause; no stage
// is retried. Cancellation (via ctx or the observer) stops the pipeline
// cleanly between stages with a CANCELLED outcome.
func Run(ctx context.Context, reg *layer.Registry, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	r := &run{
		kernel:   kernel.New(),
		observer: opts.Observer,
		logger:   opts.Logger,
		total:    opts.TotalSteps(),
	}

	start := time.Now()
	var result *Result
	var err error
	if opts.Mode == ModeBlocks {
		result, err = r.runBlocks(ctx, reg, opts)
	} else {
		result, err = r.runParcels(ctx, reg, opts)
	}
	if err != nil {
		return nil, err
	}

	result.Warnings = r.warnings
	result.Stats.Duration = time.Since(start)
	result.Stats.OutputCount = result.Layer.Count()
	return result, nil
}

// runParcels executes the parcel-mode stage sequence.
func (r *run) runParcels(ctx context.Context, reg *layer.Registry, opts Options) (*Result, error) {
	stats := Stats{}

	if err := r.stage(ctx, -1, "Resolving input layers"); err != nil {
		return nil, err
	}
	roads, err := reg.Lookup(opts.RoadLayer)
	if err != nil {
		return nil, err
	}
	points, err := reg.Lookup(opts.PointLayer)
	if err != nil {
		return nil, err
	}
	stats.RoadCount = roads.Count()
	stats.PointCount = points.Count()
	r.logger.Debug("inputs resolved", "roads", roads.Count(), "points", points.Count(), "source_crs", roads.CRS)

	if err := r.stage(ctx, stats.PointCount, "Reprojecting layers to %s", opts.target); err != nil {
		return nil, err
	}
	roadsProjected, err := crs.ProjectLayer(roads, opts.target)
	if err != nil {
		return nil, err
	}
	pointsProjected, err := crs.ProjectLayer(points, opts.target)
	if err != nil {
		return nil, err
	}

	if err := r.stage(ctx, stats.RoadCount, "Buffering roads by %gm", opts.BufferDistance); err != nil {
		return nil, err
	}
	reserve, err := BuildRoadReserve(r.kernel, roadsProjected, opts.BufferDistance)
	if err != nil {
		return nil, err
	}
	if roads.Count() == 0 {
		r.warn(ctx, "road layer %q has no features; the whole extent becomes a single block", roads.Name)
	}

	if err := r.stage(ctx, stats.PointCount, "Tessellating building points"); err != nil {
		return nil, err
	}
	cells, warning, err := Tessellate(r.kernel, pointsProjected, opts.ExtentBufferPct)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		r.warn(ctx, "%s", warning)
	}
	stats.CellCount = cells.Count()

	if err := r.stage(ctx, stats.CellCount, "Subtracting road reserves"); err != nil {
		return nil, err
	}
	parcels, err := SubtractRoads(r.kernel, cells, reserve)
	if err != nil {
		return nil, err
	}
	r.logAreaRange(parcels, opts)

	if err := r.stage(ctx, parcels.Count(), "Extracting blocks from road network"); err != nil {
		return nil, err
	}
	blocks, err := ExtractBlocks(r.kernel, roads, opts.BufferDistance, opts.target, pointsProjected.Bounds())
	if err != nil {
		return nil, err
	}
	stats.BlockCount = blocks.Count()

	if err := r.stage(ctx, stats.BlockCount, "Clamping parcels to blocks"); err != nil {
		return nil, err
	}
	clamped, err := ClampToBlocks(r.kernel, parcels, blocks)
	if err != nil {
		return nil, err
	}
	// Each disjoint piece is an independent parcel for area filtering.
	clamped, err = r.kernel.SingleParts(clamped)
	if err != nil {
		return nil, err
	}

	if err := r.stage(ctx, clamped.Count(), "Filtering by area (%g-%s sqm)", opts.MinArea, maxAreaLabel(opts.MaxArea)); err != nil {
		return nil, err
	}
	filtered, err := FilterByArea(r.kernel, clamped, opts.MinArea, opts.MaxArea)
	if err != nil {
		return nil, err
	}
	filtered.Name = "parcels"

	if err := r.stage(ctx, filtered.Count(), "Parcels generated: %d features", filtered.Count()); err != nil {
		return nil, err
	}
	return &Result{Layer: filtered, Stats: stats}, nil
}

// runBlocks executes the blocks-mode stage sequence.
func (r *run) runBlocks(ctx context.Context, reg *layer.Registry, opts Options) (*Result, error) {
	stats := Stats{}

	if err := r.stage(ctx, -1, "Resolving input layers"); err != nil {
		return nil, err
	}
	roads, err := reg.Lookup(opts.RoadLayer)
	if err != nil {
		return nil, err
	}
	stats.RoadCount = roads.Count()

	if err := r.stage(ctx, stats.RoadCount, "Extracting blocks from road network"); err != nil {
		return nil, err
	}
	if roads.Count() == 0 {
		r.warn(ctx, "road layer %q has no features; the whole extent becomes a single block", roads.Name)
	}
	blocks, err := ExtractBlocks(r.kernel, roads, opts.BufferDistance, opts.target, roads.Bounds())
	if err != nil {
		return nil, err
	}
	stats.BlockCount = blocks.Count()

	result := blocks
	if opts.filterEnabled() {
		if err := r.stage(ctx, stats.BlockCount, "Filtering by area (%g-%s sqm)", opts.MinArea, maxAreaLabel(opts.MaxArea)); err != nil {
			return nil, err
		}
		result, err = FilterByArea(r.kernel, blocks, opts.MinArea, opts.MaxArea)
		if err != nil {
			return nil, err
		}
	} else {
		if err := r.stage(ctx, stats.BlockCount, "Area filter disabled"); err != nil {
			return nil, err
		}
	}
	result.Name = "blocks"

	if err := r.stage(ctx, result.Count(), "Blocks generated: %d features", result.Count()); err != nil {
		return nil, err
	}
	return &Result{Layer: result, Stats: stats}, nil
}

// logAreaRange logs the post-subtraction area distribution at debug level.
func (r *run) logAreaRange(parcels *layer.Layer, opts Options) {
	if parcels.Count() == 0 {
		return
	}
	var minA, maxA float64
	inRange := 0
	for i, f := range parcels.Features {
		area, err := r.kernel.Area(f.Geom)
		if err != nil {
			return
		}
		if i == 0 || area < minA {
			minA = area
		}
		if area > maxA {
			maxA = area
		}
		if area >= opts.MinArea && (opts.MaxArea <= 0 || area <= opts.MaxArea) {
			inRange++
		}
	}
	r.logger.Debug("area distribution after subtraction",
		"min_sqm", fmt.Sprintf("%.1f", minA),
		"max_sqm", fmt.Sprintf("%.1f", maxA),
		"in_range", inRange,
		"total", parcels.Count())
}

// maxAreaLabel renders the configured maximum for progress messages.
func maxAreaLabel(maxArea float64) string {
	if maxArea <= 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%g", maxArea)
}
