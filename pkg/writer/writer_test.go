package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
)

func testLayer() *layer.Layer {
	l := layer.New("parcels", "EPSG:32736")
	l.Add(layer.Feature{
		ID:    "p1",
		Geom:  geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10}),
		Props: map[string]any{"area_sqm": 100.0},
	})
	return l
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "parcels.geojson")

	if err := Save(testLayer(), path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := layer.ImportGeoJSON(path, "parcels", "EPSG:4326")
	if err != nil {
		t.Fatalf("ImportGeoJSON() error: %v", err)
	}
	if got.CRS != "EPSG:32736" {
		t.Errorf("CRS = %q, want EPSG:32736", got.CRS)
	}
	if got.Count() != 1 || got.Features[0].ID != "p1" {
		t.Errorf("features = %+v", got.Features)
	}
	if area := got.Features[0].Props["area_sqm"]; area != 100.0 {
		t.Errorf("area_sqm = %v, want 100", area)
	}
}

func TestSaveInvalidPath(t *testing.T) {
	err := Save(testLayer(), "")
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("error = %v, want INVALID_INPUT", err)
	}
}

func TestSaveFailureLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path makes the final rename fail.
	path := filepath.Join(dir, "occupied")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}

	l := testLayer()
	err := Save(l, path)
	if errors.GetCode(err) != errors.ErrCodeWriteFailed {
		t.Fatalf("error = %v, want WRITE_FAILED", err)
	}

	// The layer is untouched and no temp files linger.
	if l.Count() != 1 {
		t.Errorf("layer mutated by failed save: %d features", l.Count())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover files after failed save: %v", entries)
	}
}
