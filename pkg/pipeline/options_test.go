package pipeline

import (
	"testing"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
)

func validOptions() Options {
	return Options{
		RoadLayer:      "roads",
		PointLayer:     "buildings",
		BufferDistance: 10,
		MinArea:        250,
		MaxArea:        2000,
		TargetCRS:      "EPSG:32736",
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Options)
		wantCode errors.Code
	}{
		{"valid", func(o *Options) {}, ""},
		{"valid blocks without points", func(o *Options) {
			o.Mode = ModeBlocks
			o.PointLayer = ""
			o.MinArea = 0
			o.MaxArea = 0
		}, ""},
		{"unknown mode", func(o *Options) { o.Mode = "voronoi" }, errors.ErrCodeInvalidMode},
		{"missing road layer", func(o *Options) { o.RoadLayer = "" }, errors.ErrCodeInvalidInput},
		{"missing point layer in parcel mode", func(o *Options) { o.PointLayer = "" }, errors.ErrCodePointsRequired},
		{"zero buffer", func(o *Options) { o.BufferDistance = 0 }, errors.ErrCodeInvalidBuffer},
		{"negative buffer", func(o *Options) { o.BufferDistance = -5 }, errors.ErrCodeInvalidBuffer},
		{"zero min area in parcel mode", func(o *Options) { o.MinArea = 0 }, errors.ErrCodeInvalidArea},
		{"negative max area", func(o *Options) { o.MaxArea = -1 }, errors.ErrCodeInvalidArea},
		{"min not below max", func(o *Options) { o.MinArea = 2000; o.MaxArea = 2000 }, errors.ErrCodeInvalidArea},
		{"max zero means unbounded", func(o *Options) { o.MinArea = 5000; o.MaxArea = 0 }, ""},
		{"extent buffer too small", func(o *Options) { o.ExtentBufferPct = 5 }, errors.ErrCodeInvalidInput},
		{"extent buffer too large", func(o *Options) { o.ExtentBufferPct = 60 }, errors.ErrCodeInvalidInput},
		{"unresolvable CRS", func(o *Options) { o.TargetCRS = "EPSG:999999" }, errors.ErrCodeInvalidCRS},
		{"geographic CRS rejected", func(o *Options) { o.TargetCRS = "EPSG:4326" }, errors.ErrCodeInvalidCRS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			err := opts.ValidateAndSetDefaults()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateAndSetDefaults() = %v, want nil", err)
				}
				return
			}
			if errors.GetCode(err) != tt.wantCode {
				t.Fatalf("error code = %q (%v), want %q", errors.GetCode(err), err, tt.wantCode)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	opts := validOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Mode != ModeParcels {
		t.Errorf("default mode = %q, want %q", opts.Mode, ModeParcels)
	}
	if opts.ExtentBufferPct != DefaultExtentBufferPct {
		t.Errorf("default extent buffer = %g, want %g", opts.ExtentBufferPct, DefaultExtentBufferPct)
	}
	if opts.Logger == nil {
		t.Error("logger should default to a usable logger")
	}
	if opts.Observer == nil {
		t.Error("observer should default to a no-op")
	}
	if opts.target == nil || opts.target.Code != "EPSG:32736" {
		t.Errorf("resolved target = %v, want EPSG:32736", opts.target)
	}
}

func TestFilterEnabled(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want bool
	}{
		{"parcel mode always filters", Options{Mode: ModeParcels}, true},
		{"blocks mode without bounds", Options{Mode: ModeBlocks}, false},
		{"blocks mode with min", Options{Mode: ModeBlocks, MinArea: 100}, true},
		{"blocks mode with max", Options{Mode: ModeBlocks, MaxArea: 100000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.filterEnabled(); got != tt.want {
				t.Errorf("filterEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTotalSteps(t *testing.T) {
	parcels := Options{Mode: ModeParcels}
	if got := parcels.TotalSteps(); got != parcelModeSteps {
		t.Errorf("parcel mode steps = %d, want %d", got, parcelModeSteps)
	}
	blocks := Options{Mode: ModeBlocks}
	if got := blocks.TotalSteps(); got != blocksModeSteps {
		t.Errorf("blocks mode steps = %d, want %d", got, blocksModeSteps)
	}
}
