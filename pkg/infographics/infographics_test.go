package infographics

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/matzehuels/infographics/internal/arcgistest"
	"github.com/matzehuels/infographics/pkg/arcgis"
	"github.com/matzehuels/infographics/pkg/cache"
	"github.com/matzehuels/infographics/pkg/errors"
	"github.com/matzehuels/infographics/pkg/geometry"
)

func newCatalog(t *testing.T, srv *arcgistest.Server, opts Options) *Catalog {
	t.Helper()
	client, err := arcgis.NewClient(srv.URL, arcgis.Options{Token: srv.Token})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewCatalog(client, opts)
}

func TestEnsureGIS(t *testing.T) {
	ctx := context.Background()

	if _, err := EnsureGIS(ctx, nil); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("nil GIS: expected CONFIGURATION, got %v", err)
	}
	var typedNil *arcgis.Client
	if _, err := EnsureGIS(ctx, typedNil); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("typed nil GIS: expected CONFIGURATION, got %v", err)
	}

	srv := arcgistest.NewServer(t)
	client, _ := arcgis.NewClient(srv.URL, arcgis.Options{})
	ge, err := EnsureGIS(ctx, client)
	if err != nil {
		t.Fatalf("EnsureGIS: %v", err)
	}
	if ge != srv.GeoenrichmentURL() {
		t.Errorf("EnsureGIS() = %q, want %q", ge, srv.GeoenrichmentURL())
	}
}

func TestEnsureGIS_NoGeoenrichment(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.NoGeoenrichment = true
	cat := newCatalog(t, srv, Options{})

	if _, err := EnsureGIS(context.Background(), cat.GIS()); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected CONFIGURATION, got %v", err)
	}
	if _, err := cat.StandardInfographics(context.Background(), "US"); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("StandardInfographics: expected CONFIGURATION, got %v", err)
	}
	if srv.GeoenrichmentHits() != 0 {
		t.Errorf("geoenrichment contacted %d times", srv.GeoenrichmentHits())
	}
}

func TestCountries(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	countries, err := cat.Countries(context.Background())
	if err != nil {
		t.Fatalf("Countries: %v", err)
	}
	want := Countries{
		{"US", "esri2024"}, {"US", "census"},
		{"CA", "esri2024"}, {"CA", "statcan"},
		{"GB", "esri2024"},
	}
	if !slices.Equal(countries, want) {
		t.Errorf("Countries() = %v, want %v", countries, want)
	}
	if !countries.Has("CA") || countries.Has("FR") {
		t.Error("Has reports wrong membership")
	}
	if got := countries.Hierarchies("US"); !slices.Equal(got, []string{"esri2024", "census"}) {
		t.Errorf("Hierarchies(US) = %v", got)
	}
	if got := countries.Filter("GB"); len(got) != 1 {
		t.Errorf("Filter(GB) = %v", got)
	}
	if tbl := countries.Table(); !slices.Equal(tbl.Columns, CountryColumns) || tbl.Len() != 5 {
		t.Errorf("Table() = %+v", tbl)
	}
}

func TestCountries_EmptyHierarchies(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.Countries = append(srv.Countries, arcgistest.Country{ID: "AQ", Name: "Antarctica"})
	cat := newCatalog(t, srv, Options{})

	countries, err := cat.Countries(context.Background())
	if err != nil {
		t.Fatalf("Countries: %v", err)
	}
	if !countries.Has("AQ") {
		t.Error("country without hierarchies should keep a row")
	}
}

func TestCountries_Memoized(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})
	ctx := context.Background()

	for range 3 {
		if _, err := cat.Countries(ctx); err != nil {
			t.Fatalf("Countries: %v", err)
		}
	}
	if got := srv.Hits(arcgistest.RouteCountries); got != 1 {
		t.Errorf("Countries fetched %d times, want 1", got)
	}
}

func TestCountries_CallerCopyIsIsolated(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.Reports["US/esri2024"] = []map[string]any{
		arcgistest.StandardReport("AtRisk", "At Risk Population", "US", "esri2024"),
	}
	cat := newCatalog(t, srv, Options{})
	ctx := context.Background()

	// Both the fetched and the memoized table belong to the caller.
	for range 2 {
		cs, err := cat.Countries(ctx)
		if err != nil {
			t.Fatalf("Countries: %v", err)
		}
		for i := range cs {
			cs[i].Country = "ZZ"
			cs[i].Hierarchy = "bogus"
		}
	}

	got, err := cat.StandardInfographics(ctx, "US", "esri2024")
	if err != nil {
		t.Fatalf("StandardInfographics after editing the returned table: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d rows, want 1", len(got))
	}
	cs, _ := cat.Countries(ctx)
	if !cs.Has("US") || cs.Has("ZZ") {
		t.Errorf("memoized table was modified: %v", cs)
	}
	if n := srv.Hits(arcgistest.RouteCountries); n != 1 {
		t.Errorf("Countries fetched %d times, want 1", n)
	}
}

func TestCountries_ConcurrentFirstCall(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cat.Countries(context.Background()); err != nil {
				t.Errorf("Countries: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := srv.Hits(arcgistest.RouteCountries); got != 1 {
		t.Errorf("Countries fetched %d times, want 1", got)
	}
}

func TestCountries_Invalidate(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})
	ctx := context.Background()

	if _, err := cat.Countries(ctx); err != nil {
		t.Fatal(err)
	}
	srv.Countries = append(srv.Countries, arcgistest.Country{ID: "FR", Hierarchies: []string{"esri2024"}})
	if err := cat.InvalidateCountries(ctx); err != nil {
		t.Fatalf("InvalidateCountries: %v", err)
	}

	countries, err := cat.Countries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !countries.Has("FR") {
		t.Error("invalidated table should reflect upstream changes")
	}
	if got := srv.Hits(arcgistest.RouteCountries); got != 2 {
		t.Errorf("Countries fetched %d times, want 2", got)
	}
}

func TestCountries_PersistentCache(t *testing.T) {
	srv := arcgistest.NewServer(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := newCatalog(t, srv, Options{Cache: fc}).Countries(ctx); err != nil {
		t.Fatal(err)
	}

	// A fresh catalog (new process) reads the table back from the cache.
	cat := newCatalog(t, srv, Options{Cache: fc})
	countries, err := cat.Countries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(countries) != 5 {
		t.Errorf("cached table has %d rows, want 5", len(countries))
	}
	countries[0].Country = "ZZ"
	if again, _ := cat.Countries(ctx); again[0].Country != "US" {
		t.Errorf("memoized table was modified: %v", again)
	}
	if got := srv.Hits(arcgistest.RouteCountries); got != 1 {
		t.Errorf("Countries fetched %d times, want 1", got)
	}
}

func TestStandardInfographics(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.Reports["US/esri2024"] = []map[string]any{
		arcgistest.StandardReport("AtRisk", "At Risk Population", "US", "esri2024"),
		arcgistest.StandardReport("Community", "Community Profile", "US", "esri2024"),
	}
	srv.Reports["US/census"] = []map[string]any{
		arcgistest.StandardReport("Census2020", "Census 2020 Profile", "US", "census"),
	}
	cat := newCatalog(t, srv, Options{})

	got, err := cat.StandardInfographics(context.Background(), "US")
	if err != nil {
		t.Fatalf("StandardInfographics: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	first := got[0]
	if first.ReportID != "AtRisk" || first.Title != "At Risk Population" || first.Hierarchy != "esri2024" {
		t.Errorf("unexpected first row: %+v", first)
	}
	if !slices.Equal(first.Formats, []string{"pdf", "html", "xlsx"}) {
		t.Errorf("Formats = %v", first.Formats)
	}
	if !slices.Equal(first.Countries, []string{"US"}) {
		t.Errorf("Countries = %v", first.Countries)
	}
	if first.DataVintage != "2024" || len(first.ItemID) != 32 {
		t.Errorf("DataVintage = %q, ItemID = %q", first.DataVintage, first.ItemID)
	}
	for _, ig := range got {
		if ig.Category != CategoryStandard {
			t.Errorf("Category = %q", ig.Category)
		}
	}
	if got[2].Hierarchy != "census" {
		t.Errorf("hierarchy order not preserved: %+v", got[2])
	}
	if hits := srv.Hits(arcgistest.RouteStandard); hits != 2 {
		t.Errorf("standard requests = %d, want 2", hits)
	}
}

func TestStandardInfographics_SingleHierarchy(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.Reports["US/census"] = []map[string]any{
		arcgistest.StandardReport("Census2020", "Census 2020 Profile", "US", "census"),
	}
	cat := newCatalog(t, srv, Options{})

	got, err := cat.StandardInfographics(context.Background(), "US", "census", "census")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d rows, want 1", len(got))
	}
	if hits := srv.Hits(arcgistest.RouteStandard); hits != 1 {
		t.Errorf("standard requests = %d, want 1", hits)
	}
}

func TestStandardInfographics_UnknownCountry(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	for _, country := range []string{"FR", "us", ""} {
		_, err := cat.StandardInfographics(context.Background(), country)
		if !errors.Is(err, errors.ErrCodeInvalidCountry) {
			t.Errorf("%q: expected INVALID_COUNTRY, got %v", country, err)
		}
	}
	if hits := srv.Hits(arcgistest.RouteStandard); hits != 0 {
		t.Errorf("issued %d standard requests for an unknown country", hits)
	}
}

func TestStandardInfographics_InvalidHierarchies(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	_, err := cat.StandardInfographics(context.Background(), "US", "esri2024", "bogus", "census", "nope")
	if !errors.Is(err, errors.ErrCodeInvalidHierarchy) {
		t.Fatalf("expected INVALID_HIERARCHY, got %v", err)
	}
	var herr *HierarchyError
	if !stderrors.As(err, &herr) {
		t.Fatalf("expected *HierarchyError in chain, got %T", err)
	}
	if !slices.Equal(herr.Invalid, []string{"bogus", "nope"}) {
		t.Errorf("Invalid = %v, want [bogus nope]", herr.Invalid)
	}
	if hits := srv.Hits(arcgistest.RouteStandard); hits != 0 {
		t.Errorf("issued %d standard requests despite invalid hierarchies", hits)
	}
}

func TestStandardInfographics_ReferenceCountry(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	// statcan is a Canadian hierarchy but not a US one.
	_, err := cat.StandardInfographics(context.Background(), "CA")
	var herr *HierarchyError
	if !stderrors.As(err, &herr) || !slices.Equal(herr.Invalid, []string{"statcan"}) {
		t.Fatalf("expected statcan to be rejected, got %v", err)
	}

	// census is a US hierarchy, so it passes for GB even though GB lacks it.
	if _, err := cat.StandardInfographics(context.Background(), "GB", "census"); err != nil {
		t.Errorf("GB/census: %v", err)
	}
}

func TestStandardInfographics_Empty(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	got, err := cat.StandardInfographics(context.Background(), "US")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
	tbl := got.Table()
	if !slices.Equal(tbl.Columns, StandardColumns) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, StandardColumns)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d", tbl.Len())
	}
}

func TestStandardInfographics_UpstreamError(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})
	if _, err := cat.Countries(context.Background()); err != nil {
		t.Fatal(err)
	}

	srv.Token = "required"
	_, err := cat.StandardInfographics(context.Background(), "US")
	if !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestOrganizationInfographics(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.Items = []map[string]any{
		arcgistest.ReportTemplate("0001", "Market Profile", "alice", "Report Template", "Infographic-Template"),
		arcgistest.ReportTemplate("0002", "Classic Report", "bob", "Report Template", "template"),
		arcgistest.ReportTemplate("0003", "Site Summary", "carol", "INFOGRAPHIC"),
		arcgistest.ReportTemplate("0004", "No Keywords", "dave"),
	}
	cat := newCatalog(t, srv, Options{})

	got, err := cat.OrganizationInfographics(context.Background())
	if err != nil {
		t.Fatalf("OrganizationInfographics: %v", err)
	}
	var ids []string
	for _, ig := range got {
		ids = append(ids, ig.ItemID)
		if ig.Category != CategoryCustom {
			t.Errorf("Category = %q", ig.Category)
		}
	}
	if !slices.Equal(ids, []string{"0001", "0003"}) {
		t.Errorf("item ids = %v, want [0001 0003]", ids)
	}

	first := got[0]
	if first.Title != "Market Profile" || first.Owner != "alice" || first.Description != "Market Profile description" {
		t.Errorf("unexpected projection: %+v", first)
	}
	if !slices.Equal(first.Countries, []string{"US"}) || !slices.Equal(first.Formats, []string{"pdf", "html"}) {
		t.Errorf("properties: countries=%v formats=%v", first.Countries, first.Formats)
	}
	if tbl := got.Table(); !slices.Equal(tbl.Columns, CustomColumns) || tbl.Len() != 2 {
		t.Errorf("Table() = %+v", tbl)
	}
}

func TestOrganizationInfographics_Empty(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	got, err := cat.OrganizationInfographics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
	if cols := got.Table().Columns; !slices.Equal(cols, CustomColumns) {
		t.Errorf("Columns = %v", cols)
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    ExportFormat
		wantErr bool
	}{
		{"", FormatPDF, false},
		{"pdf", FormatPDF, false},
		{"PDF", FormatPDF, false},
		{"Xlsx", FormatXLSX, false},
		{" pdf ", "", true},
		{"HTML", FormatHTML, false},
		{"docx", "", true},
		{"htm", "", true},
	}
	for _, tt := range tests {
		got, err := ParseExportFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExportFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ParseExportFormat(%q): expected INVALID_FORMAT, got %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolveOutputName(t *testing.T) {
	tests := []struct {
		name   string
		format ExportFormat
		want   string
	}{
		{"report.PDF", FormatPDF, "report.PDF"},
		{"report.pdf", FormatPDF, "report.pdf"},
		{"report", FormatXLSX, "report.xlsx"},
		{"report.htm", FormatHTML, "report.htm"},
		{"report.HTM", FormatHTML, "report.HTM"},
		{"report.html", FormatHTML, "report.html"},
		{"report.htm", FormatPDF, "report.htm.pdf"},
		{"report.pdf", FormatXLSX, "report.pdf.xlsx"},
		{"v1.2", FormatPDF, "v1.2.pdf"},
	}
	for _, tt := range tests {
		if got := ResolveOutputName(tt.name, tt.format); got != tt.want {
			t.Errorf("ResolveOutputName(%q, %s) = %q, want %q", tt.name, tt.format, got, tt.want)
		}
	}
}

func TestCreateInfographic(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})
	dir := t.TempDir()

	path, err := cat.CreateInfographic(context.Background(), CreateRequest{
		StudyAreas:    []geometry.Geometry{geometry.NewPoint(-117.19, 34.05)},
		InfographicID: "AtRisk",
		OutPath:       filepath.Join(dir, "reports", "redlands"),
		Format:        "PDF",
	})
	if err != nil {
		t.Fatalf("CreateInfographic: %v", err)
	}
	if want := filepath.Join(dir, "reports", "redlands.pdf"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report not written: %v", err)
	}

	form := srv.LastReportForm()
	if form.Get("report") != "AtRisk" || form.Get("format") != "pdf" {
		t.Errorf("unexpected form: %v", form)
	}
	want := `[{"geometry":{"x":-117.19,"y":34.05,"spatialReference":{"wkid":4326}}}]`
	if got := form.Get("studyAreas"); got != want {
		t.Errorf("studyAreas = %s, want %s", got, want)
	}
}

func TestCreateInfographic_MultipleAreas(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	poly := &geometry.Polygon{
		Rings:            [][]geometry.Coordinate{{{0, 0}, {0, 1}, {1, 1}, {0, 0}}},
		SpatialReference: geometry.WGS84,
	}
	path, err := cat.CreateInfographic(context.Background(), CreateRequest{
		StudyAreas:    []geometry.Geometry{geometry.NewPoint(1, 2), poly},
		InfographicID: "0123456789abcdef0123456789abcdef",
		OutPath:       filepath.Join(t.TempDir(), "summary.htm"),
		Format:        FormatHTML,
	})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "summary.htm" {
		t.Errorf("path = %q", path)
	}
}

func TestCreateInfographic_RejectsBeforeContact(t *testing.T) {
	var typedNil *geometry.Point
	valid := []geometry.Geometry{geometry.NewPoint(1, 2)}

	tests := []struct {
		name string
		req  CreateRequest
		code errors.Code
	}{
		{"no areas", CreateRequest{InfographicID: "AtRisk", OutPath: "r"}, errors.ErrCodeInvalidGeometry},
		{"nil area", CreateRequest{StudyAreas: []geometry.Geometry{geometry.NewPoint(1, 2), nil}, InfographicID: "AtRisk", OutPath: "r"}, errors.ErrCodeInvalidGeometry},
		{"typed nil area", CreateRequest{StudyAreas: []geometry.Geometry{typedNil}, InfographicID: "AtRisk", OutPath: "r"}, errors.ErrCodeInvalidGeometry},
		{"bad format", CreateRequest{StudyAreas: valid, InfographicID: "AtRisk", OutPath: "r", Format: "docx"}, errors.ErrCodeInvalidFormat},
		{"empty id", CreateRequest{StudyAreas: valid, OutPath: "r"}, errors.ErrCodeInvalidInput},
		{"empty path", CreateRequest{StudyAreas: valid, InfographicID: "AtRisk"}, errors.ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := arcgistest.NewServer(t)
			cat := newCatalog(t, srv, Options{})

			_, err := cat.CreateInfographic(context.Background(), tt.req)
			if !errors.Is(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
			if hits := srv.Hits(arcgistest.RouteCreateReport) + srv.Hits(arcgistest.RouteSelf); hits != 0 {
				t.Errorf("service contacted %d times", hits)
			}
		})
	}
}

func TestCreateInfographic_UpstreamError(t *testing.T) {
	srv := arcgistest.NewServer(t)
	cat := newCatalog(t, srv, Options{})

	_, err := cat.CreateInfographic(context.Background(), CreateRequest{
		StudyAreas:    []geometry.Geometry{geometry.NewPoint(1, 2)},
		InfographicID: "missing",
		OutPath:       filepath.Join(t.TempDir(), "r"),
	})
	if err == nil {
		t.Fatal("expected upstream error")
	}
	if errors.IsValidation(err) {
		t.Errorf("upstream failure reported as validation error: %v", err)
	}
}

func TestTable_Column(t *testing.T) {
	tbl := StandardInfographics{
		{ReportID: "A", Category: CategoryStandard},
		{ReportID: "B", Category: CategoryStandard},
	}.Table()
	if got := tbl.Column("reportID"); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("Column(reportID) = %v", got)
	}
	if tbl.Column("missing") != nil {
		t.Error("Column of unknown name should be nil")
	}
}
