package layer

import (
	"strings"
	"testing"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(New("roads", "EPSG:4326"))
	r.Register(New("buildings", "EPSG:4326"))

	l, err := r.Lookup("roads")
	if err != nil {
		t.Fatalf("Lookup(roads) error = %v", err)
	}
	if l.Name != "roads" {
		t.Errorf("Lookup(roads).Name = %q", l.Name)
	}
}

func TestRegistryLookupMissingListsAvailable(t *testing.T) {
	r := NewRegistry()
	r.Register(New("roads", "EPSG:4326"))
	r.Register(New("buildings", "EPSG:4326"))

	_, err := r.Lookup("parcels")
	if err == nil {
		t.Fatal("Lookup(parcels) should fail")
	}
	if !errors.Is(err, errors.ErrCodeLayerNotFound) {
		t.Errorf("error code = %v, want LAYER_NOT_FOUND", errors.GetCode(err))
	}
	// Missing-input errors list available layers to aid diagnosis.
	if msg := err.Error(); !strings.Contains(msg, "buildings") || !strings.Contains(msg, "roads") {
		t.Errorf("error should list available layers, got %q", msg)
	}
}
