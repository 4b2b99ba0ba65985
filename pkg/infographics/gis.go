package infographics

import (
	"context"
	"net/url"
	"reflect"

	"github.com/matzehuels/infographics/pkg/arcgis"
	"github.com/matzehuels/infographics/pkg/errors"
)

// GIS is the session handle the catalog talks through. [*arcgis.Client]
// implements it.
type GIS interface {
	GeoenrichmentURL(ctx context.Context) (string, error)
	OrgID(ctx context.Context) (string, error)
	Get(ctx context.Context, rawURL string, params url.Values, v any) error
	Search(ctx context.Context, query string, opts arcgis.SearchOptions) ([]arcgis.Item, error)
	CreateReport(ctx context.Context, req arcgis.ReportRequest) (string, error)
}

var _ GIS = (*arcgis.Client)(nil)

// EnsureGIS checks that gis is usable for geoenrichment and returns the
// geoenrichment base URL. A missing handle or a portal without a
// geoenrichment server yields a CONFIGURATION error.
func EnsureGIS(ctx context.Context, gis GIS) (string, error) {
	if isNil(gis) {
		return "", errors.New(errors.ErrCodeConfiguration,
			"no GIS session: sign in with `infographics login` or pass a portal and token")
	}
	ge, err := gis.GeoenrichmentURL(ctx)
	if err != nil {
		return "", err
	}
	if ge == "" {
		return "", errors.New(errors.ErrCodeConfiguration, "the GIS does not appear to have a geoenrichment server configured")
	}
	return ge, nil
}

// isNil also catches a typed nil pointer stored in the interface.
func isNil(gis GIS) bool {
	if gis == nil {
		return true
	}
	v := reflect.ValueOf(gis)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
