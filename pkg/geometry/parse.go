package geometry

import (
	"encoding/json"

	"github.com/matzehuels/infographics/pkg/errors"
)

// Parse decodes an Esri JSON geometry, detecting its type from the keys
// present. A GeoJSON-style {"geometry": {...}} wrapper is unwrapped first.
// The returned geometry has been validated.
func Parse(data []byte) (Geometry, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "decode geometry")
	}
	if inner, ok := keys["geometry"]; ok {
		return Parse(inner)
	}

	var g Geometry
	switch {
	case has(keys, "rings"):
		g = new(Polygon)
	case has(keys, "paths"):
		g = new(Polyline)
	case has(keys, "points"):
		g = new(Multipoint)
	case has(keys, "xmin", "ymin", "xmax", "ymax"):
		g = new(Envelope)
	case has(keys, "x", "y"):
		g = new(Point)
	default:
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "unrecognized geometry")
	}

	if err := json.Unmarshal(data, g); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "decode %s", g.Type())
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func has(keys map[string]json.RawMessage, names ...string) bool {
	for _, n := range names {
		v, ok := keys[n]
		if !ok || string(v) == "null" {
			return false
		}
	}
	return true
}
