// Package geometry models the study areas an infographic is run against.
//
// # Overview
//
// Geometries are expressed in the Esri JSON shape the geoenrichment service
// accepts:
//
//   - [Point]: {"x": ..., "y": ...}
//   - [Multipoint]: {"points": [[x, y], ...]}
//   - [Polyline]: {"paths": [[[x, y], ...], ...]}
//   - [Polygon]: {"rings": [[[x, y], ...], ...]}
//   - [Envelope]: {"xmin": ..., "ymin": ..., "xmax": ..., "ymax": ...}
//
// Each may carry a [SpatialReference]; without one the service assumes
// WGS84.
//
// # Sealed Interface
//
// [Geometry] can only be implemented by the types in this package. A study
// area list therefore contains either recognized geometries or nil values,
// and [ValidateAll] rejects the latter.
//
// # Parsing
//
// [Parse] detects the geometry type from the JSON keys:
//
//	g, err := geometry.Parse([]byte(`{"x": -117.19, "y": 34.05}`))
//	// g is *geometry.Point
package geometry
