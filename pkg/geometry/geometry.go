package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/matzehuels/infographics/pkg/errors"
)

// Type is the Esri geometry type name.
type Type string

// Geometry types.
const (
	TypePoint      Type = "esriGeometryPoint"
	TypeMultipoint Type = "esriGeometryMultipoint"
	TypePolyline   Type = "esriGeometryPolyline"
	TypePolygon    Type = "esriGeometryPolygon"
	TypeEnvelope   Type = "esriGeometryEnvelope"
)

// Geometry is implemented by every study-area shape in this package.
type Geometry interface {
	json.Marshaler

	// Type returns the Esri geometry type name.
	Type() Type

	// Validate reports whether the geometry is well formed. A nil
	// receiver is invalid.
	Validate() error

	geometry()
}

// SpatialReference identifies a coordinate system by well-known id or WKT.
type SpatialReference struct {
	WKID       int    `json:"wkid,omitempty"`
	LatestWKID int    `json:"latestWkid,omitempty"`
	WKT        string `json:"wkt,omitempty"`
}

// WGS84 is the geographic coordinate system used for longitude/latitude input.
var WGS84 = &SpatialReference{WKID: 4326}

// Coordinate is an [x, y] pair.
type Coordinate [2]float64

// Point is a single location.
type Point struct {
	X                float64           `json:"x"`
	Y                float64           `json:"y"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// NewPoint returns a WGS84 point at the given longitude and latitude.
func NewPoint(lon, lat float64) *Point {
	return &Point{X: lon, Y: lat, SpatialReference: WGS84}
}

// Multipoint is an unordered set of locations.
type Multipoint struct {
	Points           []Coordinate      `json:"points"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// Polyline is one or more paths.
type Polyline struct {
	Paths            [][]Coordinate    `json:"paths"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// Polygon is one or more rings. Rings need not be explicitly closed.
type Polygon struct {
	Rings            [][]Coordinate    `json:"rings"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// Envelope is an axis-aligned rectangle.
type Envelope struct {
	XMin             float64           `json:"xmin"`
	YMin             float64           `json:"ymin"`
	XMax             float64           `json:"xmax"`
	YMax             float64           `json:"ymax"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

func (*Point) Type() Type      { return TypePoint }
func (*Multipoint) Type() Type { return TypeMultipoint }
func (*Polyline) Type() Type   { return TypePolyline }
func (*Polygon) Type() Type    { return TypePolygon }
func (*Envelope) Type() Type   { return TypeEnvelope }

func (*Point) geometry()      {}
func (*Multipoint) geometry() {}
func (*Polyline) geometry()   {}
func (*Polygon) geometry()    {}
func (*Envelope) geometry()   {}

// Validate checks that the point has finite coordinates.
func (p *Point) Validate() error {
	if p == nil {
		return errNil(TypePoint)
	}
	return checkCoord(TypePoint, Coordinate{p.X, p.Y})
}

// Validate checks that the multipoint has at least one finite point.
func (m *Multipoint) Validate() error {
	if m == nil {
		return errNil(TypeMultipoint)
	}
	if len(m.Points) == 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "multipoint has no points")
	}
	return checkCoords(TypeMultipoint, m.Points)
}

// Validate checks that every path has at least two finite vertices.
func (l *Polyline) Validate() error {
	if l == nil {
		return errNil(TypePolyline)
	}
	if len(l.Paths) == 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "polyline has no paths")
	}
	for i, path := range l.Paths {
		if len(path) < 2 {
			return errors.New(errors.ErrCodeInvalidGeometry, "polyline path %d has %d vertices, need at least 2", i, len(path))
		}
		if err := checkCoords(TypePolyline, path); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every ring has at least three finite vertices.
func (p *Polygon) Validate() error {
	if p == nil {
		return errNil(TypePolygon)
	}
	if len(p.Rings) == 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "polygon has no rings")
	}
	for i, ring := range p.Rings {
		if len(ring) < 3 {
			return errors.New(errors.ErrCodeInvalidGeometry, "polygon ring %d has %d vertices, need at least 3", i, len(ring))
		}
		if err := checkCoords(TypePolygon, ring); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the envelope's bounds are finite and ordered.
func (e *Envelope) Validate() error {
	if e == nil {
		return errNil(TypeEnvelope)
	}
	if err := checkCoords(TypeEnvelope, []Coordinate{{e.XMin, e.YMin}, {e.XMax, e.YMax}}); err != nil {
		return err
	}
	if e.XMin > e.XMax || e.YMin > e.YMax {
		return errors.New(errors.ErrCodeInvalidGeometry, "envelope minimum exceeds maximum")
	}
	return nil
}

// The alias types drop the MarshalJSON method so encoding/json does not recurse.
type (
	pointJSON      Point
	multipointJSON Multipoint
	polylineJSON   Polyline
	polygonJSON    Polygon
	envelopeJSON   Envelope
)

func (p *Point) MarshalJSON() ([]byte, error)      { return json.Marshal((*pointJSON)(p)) }
func (m *Multipoint) MarshalJSON() ([]byte, error) { return json.Marshal((*multipointJSON)(m)) }
func (l *Polyline) MarshalJSON() ([]byte, error)   { return json.Marshal((*polylineJSON)(l)) }
func (p *Polygon) MarshalJSON() ([]byte, error)    { return json.Marshal((*polygonJSON)(p)) }
func (e *Envelope) MarshalJSON() ([]byte, error)   { return json.Marshal((*envelopeJSON)(e)) }

// ValidateAll checks every element of a study-area list. The error names
// the index of the first offending element.
func ValidateAll(geoms []Geometry) error {
	if len(geoms) == 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "at least one study area is required")
	}
	for i, g := range geoms {
		if g == nil {
			return errors.New(errors.ErrCodeInvalidGeometry, "study area %d is not a geometry", i)
		}
		if err := g.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidGeometry, err, "study area %d", i)
		}
	}
	return nil
}

func errNil(t Type) error {
	return errors.New(errors.ErrCodeInvalidGeometry, "nil %s", t)
}

func checkCoords(t Type, cs []Coordinate) error {
	for _, c := range cs {
		if err := checkCoord(t, c); err != nil {
			return err
		}
	}
	return nil
}

func checkCoord(t Type, c Coordinate) error {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidGeometry, "%s has non-finite coordinate %s", t, fmt.Sprint(c))
		}
	}
	return nil
}
