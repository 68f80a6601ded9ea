package crs

import (
	"math"
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantCode string
		wantErr  bool
	}{
		{"utm south", "EPSG:32736", "EPSG:32736", false},
		{"utm north", "EPSG:32633", "EPSG:32633", false},
		{"wgs84", "EPSG:4326", "EPSG:4326", false},
		{"web mercator", "EPSG:3857", "EPSG:3857", false},
		{"lowercase", "epsg:32736", "EPSG:32736", false},
		{"proj4 passthrough", "+proj=utm +zone=36 +south +datum=WGS84 +units=m +no_defs", "", false},
		{"empty", "", "", true},
		{"unknown epsg", "EPSG:99999", "", true},
		{"garbage", "not-a-crs", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Resolve(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidCRS) {
					t.Errorf("error code = %v, want INVALID_CRS", errors.GetCode(err))
				}
				return
			}
			if tt.wantCode != "" && c.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", c.Code, tt.wantCode)
			}
		})
	}
}

func TestIsMetric(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"EPSG:32736", true},
		{"EPSG:3857", true},
		{"EPSG:4326", false},
		{"+proj=utm +zone=17 +datum=WGS84 +units=ft +no_defs", false},
	}

	for _, tt := range tests {
		c, err := Resolve(tt.id)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tt.id, err)
		}
		if got := c.IsMetric(); got != tt.want {
			t.Errorf("IsMetric(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestProjectLayerIdempotent(t *testing.T) {
	target, err := Resolve("EPSG:32736")
	if err != nil {
		t.Fatal(err)
	}

	l := layer.New("roads", "EPSG:32736")
	l.Add(layer.Feature{
		ID:   "r1",
		Geom: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 100, 0}),
	})

	out, err := ProjectLayer(l, target)
	if err != nil {
		t.Fatalf("ProjectLayer() error = %v", err)
	}
	if out.Count() != l.Count() {
		t.Fatalf("Count() = %d, want %d", out.Count(), l.Count())
	}
	if out.CRS != "EPSG:32736" {
		t.Errorf("CRS = %q, want EPSG:32736", out.CRS)
	}

	got := out.Features[0].Geom.FlatCoords()
	want := l.Features[0].Geom.FlatCoords()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("coord %d = %g, want %g (identity projection)", i, got[i], want[i])
		}
	}
}

func TestProjectLayerTransforms(t *testing.T) {
	target, err := Resolve("EPSG:32736")
	if err != nil {
		t.Fatal(err)
	}

	// Points near Mbombela, South Africa, in geographic coordinates.
	l := layer.New("buildings", "EPSG:4326")
	l.Add(layer.Feature{ID: "b1", Geom: geom.NewPointFlat(geom.XY, []float64{31.0, -25.5}), Props: map[string]any{"n": 1}})
	l.Add(layer.Feature{ID: "b2", Geom: geom.NewPointFlat(geom.XY, []float64{31.01, -25.5})})

	out, err := ProjectLayer(l, target)
	if err != nil {
		t.Fatalf("ProjectLayer() error = %v", err)
	}
	if out.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", out.Count())
	}
	if out.Features[0].Props["n"] != 1 {
		t.Error("ProjectLayer should preserve properties")
	}

	// UTM 36S eastings sit in the hundreds of kilometers; a degree of
	// longitude at this latitude is roughly 100 km.
	p1 := out.Features[0].Geom.(*geom.Point)
	p2 := out.Features[1].Geom.(*geom.Point)
	if p1.X() < 100000 || p1.X() > 900000 {
		t.Errorf("easting = %g, outside plausible UTM range", p1.X())
	}
	dx := p2.X() - p1.X()
	if dx < 800 || dx > 1200 {
		t.Errorf("0.01 degree of longitude mapped to %g m, want roughly 1 km", dx)
	}

	// Input layer must not be mutated.
	if got := l.Features[0].Geom.(*geom.Point).X(); got != 31.0 {
		t.Errorf("input geometry mutated: X = %g, want 31.0", got)
	}
}

func TestProjectLayerUnresolvableSource(t *testing.T) {
	target, _ := Resolve("EPSG:32736")
	l := layer.New("roads", "EPSG:99999")
	l.Add(layer.Feature{Geom: geom.NewPointFlat(geom.XY, []float64{0, 0})})

	if _, err := ProjectLayer(l, target); !errors.Is(err, errors.ErrCodeInvalidCRS) {
		t.Errorf("error = %v, want INVALID_CRS", err)
	}
}
