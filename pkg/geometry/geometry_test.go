package geometry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/matzehuels/infographics/pkg/errors"
)

func TestValidate(t *testing.T) {
	var nilPoint *Point

	tests := []struct {
		name    string
		geom    Geometry
		wantErr bool
	}{
		{"point", NewPoint(-117.19, 34.05), false},
		{"nil point", nilPoint, true},
		{"nan point", &Point{X: math.NaN(), Y: 1}, true},
		{"multipoint", &Multipoint{Points: []Coordinate{{1, 2}}}, false},
		{"empty multipoint", &Multipoint{}, true},
		{"polyline", &Polyline{Paths: [][]Coordinate{{{0, 0}, {1, 1}}}}, false},
		{"short path", &Polyline{Paths: [][]Coordinate{{{0, 0}}}}, true},
		{"polygon", &Polygon{Rings: [][]Coordinate{{{0, 0}, {0, 1}, {1, 1}, {0, 0}}}}, false},
		{"degenerate ring", &Polygon{Rings: [][]Coordinate{{{0, 0}, {1, 1}}}}, true},
		{"no rings", &Polygon{}, true},
		{"envelope", &Envelope{XMin: 0, YMin: 0, XMax: 1, YMax: 1}, false},
		{"inverted envelope", &Envelope{XMin: 2, YMin: 0, XMax: 1, YMax: 1}, true},
		{"infinite envelope", &Envelope{XMin: math.Inf(-1), YMin: 0, XMax: 1, YMax: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidGeometry) {
				t.Errorf("expected INVALID_GEOMETRY, got %v", err)
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	var nilPolygon *Polygon

	if err := ValidateAll([]Geometry{NewPoint(1, 2), &Envelope{XMax: 1, YMax: 1}}); err != nil {
		t.Errorf("ValidateAll(valid) = %v", err)
	}
	if err := ValidateAll(nil); !errors.Is(err, errors.ErrCodeInvalidGeometry) {
		t.Errorf("ValidateAll(nil) = %v, want INVALID_GEOMETRY", err)
	}
	if err := ValidateAll([]Geometry{NewPoint(1, 2), nil}); !errors.Is(err, errors.ErrCodeInvalidGeometry) {
		t.Errorf("ValidateAll(with nil) = %v, want INVALID_GEOMETRY", err)
	}
	if err := ValidateAll([]Geometry{nilPolygon}); !errors.Is(err, errors.ErrCodeInvalidGeometry) {
		t.Errorf("ValidateAll(typed nil) = %v, want INVALID_GEOMETRY", err)
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewPoint(-117.5, 34))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"x":-117.5,"y":34,"spatialReference":{"wkid":4326}}`
	if string(data) != want {
		t.Errorf("Marshal(point) = %s, want %s", data, want)
	}

	poly := &Polygon{Rings: [][]Coordinate{{{0, 0}, {0, 1}, {1, 1}}}}
	data, err = json.Marshal(poly)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"rings":[[[0,0],[0,1],[1,1]]]}` {
		t.Errorf("Marshal(polygon) = %s", data)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Type
	}{
		{"point", `{"x": -117.19, "y": 34.05, "spatialReference": {"wkid": 4326}}`, TypePoint},
		{"multipoint", `{"points": [[1, 2], [3, 4]]}`, TypeMultipoint},
		{"polyline", `{"paths": [[[0, 0], [1, 1]]]}`, TypePolyline},
		{"polygon", `{"rings": [[[0, 0], [0, 1], [1, 1], [0, 0]]]}`, TypePolygon},
		{"envelope", `{"xmin": 0, "ymin": 0, "xmax": 1, "ymax": 1}`, TypeEnvelope},
		{"wrapped", `{"geometry": {"x": 1, "y": 2}}`, TypePoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if g.Type() != tt.want {
				t.Errorf("Type() = %s, want %s", g.Type(), tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	inputs := []string{
		`not json`,
		`{"type": "Feature"}`,
		`{"x": 1}`,
		`{"rings": []}`,
		`{"rings": null}`,
		`{"rings": "oops"}`,
	}
	for _, in := range inputs {
		if _, err := Parse([]byte(in)); !errors.Is(err, errors.ErrCodeInvalidGeometry) {
			t.Errorf("Parse(%s) = %v, want INVALID_GEOMETRY", in, err)
		}
	}
}

func TestParse_RoundTripPreservesSpatialReference(t *testing.T) {
	g, err := Parse([]byte(`{"xmin": 1, "ymin": 2, "xmax": 3, "ymax": 4, "spatialReference": {"wkid": 102100, "latestWkid": 3857}}`))
	if err != nil {
		t.Fatal(err)
	}
	env := g.(*Envelope)
	if env.SpatialReference == nil || env.SpatialReference.LatestWKID != 3857 {
		t.Errorf("spatial reference lost: %+v", env.SpatialReference)
	}
}
