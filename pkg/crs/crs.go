// Package crs resolves coordinate reference systems and reprojects layers.
//
// CRS identifiers are accepted in two forms: an EPSG shorthand such as
// "EPSG:32736" (WGS 84 / UTM zone 36S), or a raw proj4 definition string.
// The pipeline requires a metric target CRS; area and distance arithmetic
// is meaningless in an angular system, so Resolve exposes IsMetric and the
// pipeline rejects non-metric targets before any geometric work starts.
package crs

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom/proj"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
)

// CRS is a resolved coordinate reference system.
type CRS struct {
	// Code is the identifier the CRS was resolved from, normalized
	// (e.g. "EPSG:32736" or a proj4 string).
	Code string

	proj4 string
	sr    *proj.SR
}

// wellKnown maps EPSG codes without a closed-form proj4 derivation.
var wellKnown = map[int]string{
	4326: "+proj=longlat +datum=WGS84 +no_defs",
	3857: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +no_defs",
}

// Resolve parses a CRS identifier into a usable CRS.
//
// Supported identifiers:
//   - "EPSG:4326", "EPSG:3857"
//   - "EPSG:326NN" / "EPSG:327NN" (WGS 84 UTM zones, north/south)
//   - raw proj4 strings starting with "+proj="
//
// An unresolvable identifier is a configuration error.
func Resolve(id string) (*CRS, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New(errors.ErrCodeInvalidCRS, "CRS identifier is empty")
	}

	if strings.HasPrefix(id, "+proj=") {
		sr, err := proj.Parse(id)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCRS, err, "invalid proj4 definition %q", id)
		}
		return &CRS{Code: id, proj4: id, sr: sr}, nil
	}

	upper := strings.ToUpper(id)
	if !strings.HasPrefix(upper, "EPSG:") {
		return nil, errors.New(errors.ErrCodeInvalidCRS, "unsupported CRS identifier %q (use EPSG:<code> or a proj4 string)", id)
	}

	var code int
	if _, err := fmt.Sscanf(upper, "EPSG:%d", &code); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidCRS, "malformed EPSG code %q", id)
	}

	proj4, err := epsgProj4(code)
	if err != nil {
		return nil, err
	}

	sr, err := proj.Parse(proj4)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCRS, err, "resolve EPSG:%d", code)
	}
	return &CRS{Code: fmt.Sprintf("EPSG:%d", code), proj4: proj4, sr: sr}, nil
}

// epsgProj4 returns the proj4 definition for a supported EPSG code.
func epsgProj4(code int) (string, error) {
	if p, ok := wellKnown[code]; ok {
		return p, nil
	}
	// WGS 84 UTM zones: 32601-32660 north, 32701-32760 south.
	switch {
	case code >= 32601 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), nil
	case code >= 32701 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), nil
	}
	return "", errors.New(errors.ErrCodeInvalidCRS, "unknown EPSG code %d", code)
}

// IsMetric reports whether the CRS uses linear meter units, i.e. whether
// planar area and distance arithmetic is valid in it.
func (c *CRS) IsMetric() bool {
	if strings.Contains(c.proj4, "+proj=longlat") {
		return false
	}
	// Projected systems default to meters; any explicit non-meter unit
	// disqualifies the CRS.
	for _, tok := range strings.Fields(c.proj4) {
		if strings.HasPrefix(tok, "+units=") && tok != "+units=m" {
			return false
		}
	}
	return true
}

// Equal reports whether two CRS resolve to the same definition.
func (c *CRS) Equal(other *CRS) bool {
	return other != nil && c.proj4 == other.proj4
}

// String returns the normalized identifier.
func (c *CRS) String() string {
	return c.Code
}
