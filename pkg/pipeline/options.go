package pipeline

import (
	"github.com/charmbracelet/log"

	"github.com/CESMikef/cadastral-automation/pkg/crs"
	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/progress"
)

// Mode selects which pipeline variant runs.
type Mode string

const (
	// ModeParcels generates individual parcel polygons from road
	// centerlines and building points.
	ModeParcels Mode = "parcels"

	// ModeBlocks generates only the road-enclosed block outlines; no
	// point layer is needed.
	ModeBlocks Mode = "blocks"
)

// Default processing parameters.
const (
	// DefaultExtentBufferPct is the tessellation extent buffer applied
	// when the caller does not set one. Generous enough that boundary
	// points get full cells.
	DefaultExtentBufferPct = 30.0

	// MinExtentBufferPct and MaxExtentBufferPct bound the configurable
	// tessellation extent buffer.
	MinExtentBufferPct = 10.0
	MaxExtentBufferPct = 30.0

	// blockExtentPadFactor grows the road-reserve extent by this multiple
	// of the buffer distance on all sides, so blocks at the dataset edge
	// are fully enclosed rather than truncated.
	blockExtentPadFactor = 5.0
)

// Options configures a pipeline run. Construct it explicitly, call the
// orchestrator once; the pipeline never mutates it mid-run.
type Options struct {
	// RoadLayer is the registry name of the road centerline layer.
	RoadLayer string `json:"road_layer"`

	// PointLayer is the registry name of the building point layer.
	// Required in parcel mode, ignored in blocks mode.
	PointLayer string `json:"point_layer,omitempty"`

	// BufferDistance is the road buffer in meters (half road width plus
	// setback). Must be positive.
	BufferDistance float64 `json:"buffer_distance"`

	// MinArea is the minimum parcel area in square meters. Must be
	// positive in parcel mode; in blocks mode zero disables filtering.
	MinArea float64 `json:"min_area"`

	// MaxArea is the maximum parcel area in square meters. Zero means
	// unbounded.
	MaxArea float64 `json:"max_area,omitempty"`

	// TargetCRS identifies the metric working CRS (e.g. "EPSG:32736").
	TargetCRS string `json:"target_crs"`

	// Mode selects the pipeline variant. Defaults to ModeParcels.
	Mode Mode `json:"mode,omitempty"`

	// ExtentBufferPct expands the tessellation extent, as a percentage
	// of the dataset extent (10-30). Defaults to DefaultExtentBufferPct.
	ExtentBufferPct float64 `json:"extent_buffer_pct,omitempty"`

	// Runtime collaborators (not serialized).
	Logger   *log.Logger       `json:"-"`
	Observer progress.Observer `json:"-"`

	// target is the resolved CRS, populated by ValidateAndSetDefaults.
	target *crs.CRS

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the configuration and fills defaults.
// All configuration errors are detected here, before any geometric work
// begins; a failing Options produces no partial output.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Mode == "" {
		o.Mode = ModeParcels
	}
	if o.Mode != ModeParcels && o.Mode != ModeBlocks {
		return errors.New(errors.ErrCodeInvalidMode, "unknown mode %q (use %q or %q)", o.Mode, ModeParcels, ModeBlocks)
	}

	if err := errors.ValidateLayerName(o.RoadLayer); err != nil {
		return err
	}
	if o.Mode == ModeParcels {
		if o.PointLayer == "" {
			return errors.New(errors.ErrCodePointsRequired, "point layer is required in parcel mode")
		}
		if err := errors.ValidateLayerName(o.PointLayer); err != nil {
			return err
		}
	}

	if o.BufferDistance <= 0 {
		return errors.New(errors.ErrCodeInvalidBuffer, "road buffer distance must be positive, got %g", o.BufferDistance)
	}

	if o.Mode == ModeParcels && o.MinArea <= 0 {
		return errors.New(errors.ErrCodeInvalidArea, "minimum area must be positive, got %g", o.MinArea)
	}
	if o.MinArea < 0 {
		return errors.New(errors.ErrCodeInvalidArea, "minimum area cannot be negative, got %g", o.MinArea)
	}
	if o.MaxArea < 0 {
		return errors.New(errors.ErrCodeInvalidArea, "maximum area cannot be negative, got %g", o.MaxArea)
	}
	if o.MaxArea > 0 && o.MinArea >= o.MaxArea {
		return errors.New(errors.ErrCodeInvalidArea, "minimum area (%g) must be less than maximum area (%g)", o.MinArea, o.MaxArea)
	}

	if o.ExtentBufferPct == 0 {
		o.ExtentBufferPct = DefaultExtentBufferPct
	}
	if o.ExtentBufferPct < MinExtentBufferPct || o.ExtentBufferPct > MaxExtentBufferPct {
		return errors.New(errors.ErrCodeInvalidInput, "extent buffer must be between %g%% and %g%%, got %g%%",
			MinExtentBufferPct, MaxExtentBufferPct, o.ExtentBufferPct)
	}

	target, err := crs.Resolve(o.TargetCRS)
	if err != nil {
		return err
	}
	if !target.IsMetric() {
		return errors.New(errors.ErrCodeInvalidCRS, "target CRS %s is not metric; area and distance math requires linear meter units", target)
	}
	o.target = target

	if o.Logger == nil {
		o.Logger = log.Default()
	}
	o.Observer = progress.OrNoop(o.Observer)

	o.validated = true
	return nil
}

// filterEnabled reports whether the area filter runs for this
// configuration. In parcel mode it always runs; in blocks mode only when
// bounds were configured.
func (o *Options) filterEnabled() bool {
	return o.Mode == ModeParcels || o.MinArea > 0 || o.MaxArea > 0
}

// TotalSteps returns the number of progress steps the run will emit.
func (o *Options) TotalSteps() int {
	if o.Mode == ModeBlocks {
		return blocksModeSteps
	}
	return parcelModeSteps
}
