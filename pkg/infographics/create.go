package infographics

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/infographics/pkg/arcgis"
	"github.com/matzehuels/infographics/pkg/errors"
	"github.com/matzehuels/infographics/pkg/geometry"
	"github.com/matzehuels/infographics/pkg/observability"
)

// ExportFormat is a report output format.
type ExportFormat string

// Supported export formats.
const (
	FormatPDF  ExportFormat = "pdf"
	FormatXLSX ExportFormat = "xlsx"
	FormatHTML ExportFormat = "html"
)

// DefaultFormat is used when no format is given.
const DefaultFormat = FormatPDF

// Formats lists the supported export formats.
var Formats = []ExportFormat{FormatXLSX, FormatPDF, FormatHTML}

// ParseExportFormat parses s case-insensitively. An empty string yields
// [DefaultFormat].
func ParseExportFormat(s string) (ExportFormat, error) {
	if s == "" {
		return DefaultFormat, nil
	}
	lower := strings.ToLower(s)
	for _, f := range Formats {
		if string(f) == lower {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidFormat,
		"unsupported export format %q (must be one of xlsx, pdf, html)", s)
}

// ResolveOutputName returns the file name a report in format f is saved
// under. The format's extension is appended unless name already carries
// it, compared without case. An ".htm" name is kept for html.
func ResolveOutputName(name string, f ExportFormat) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if f == FormatHTML && strings.EqualFold(ext, "htm") {
		return name
	}
	if strings.EqualFold(ext, string(f)) {
		return name
	}
	return name + "." + string(f)
}

// CreateRequest describes one infographic to generate.
type CreateRequest struct {
	// StudyAreas are the areas the report covers; at least one.
	StudyAreas []geometry.Geometry

	// InfographicID is a standard report id (e.g. "AtRisk") or the item
	// id of a custom infographic.
	InfographicID string

	// OutPath is where the report is written. The extension is adjusted
	// with [ResolveOutputName].
	OutPath string

	// Format defaults to pdf and is matched without case.
	Format ExportFormat
}

// CreateInfographic renders the infographic for the request's study areas
// and returns the path of the written file.
//
// Study areas, format, id and output path are validated before the session
// is used; nothing is sent when any of them is invalid. Rendering failures
// are returned as reported by the service.
func (c *Catalog) CreateInfographic(ctx context.Context, req CreateRequest) (string, error) {
	if err := geometry.ValidateAll(req.StudyAreas); err != nil {
		return "", err
	}
	format, err := ParseExportFormat(string(req.Format))
	if err != nil {
		return "", err
	}
	if err := errors.ValidateReportID(req.InfographicID); err != nil {
		return "", err
	}
	if err := errors.ValidateOutputPath(req.OutPath); err != nil {
		return "", err
	}

	areas := make([]arcgis.StudyArea, 0, len(req.StudyAreas))
	for i, g := range req.StudyAreas {
		raw, err := json.Marshal(g)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidGeometry, err, "encode study area %d", i)
		}
		areas = append(areas, arcgis.StudyArea{Geometry: raw})
	}

	if _, err := EnsureGIS(ctx, c.gis); err != nil {
		return "", err
	}

	dir, name := filepath.Split(filepath.Clean(req.OutPath))
	name = ResolveOutputName(name, format)

	hooks := observability.Catalog()
	hooks.OnLookupStart(ctx, "create", req.InfographicID)
	start := time.Now()

	path, err := c.gis.CreateReport(ctx, arcgis.ReportRequest{
		StudyAreas: areas,
		Report:     req.InfographicID,
		Format:     string(format),
		OutFolder:  filepath.Clean(dir),
		OutName:    name,
	})
	hooks.OnLookupComplete(ctx, "create", req.InfographicID, len(areas), time.Since(start), err)
	if err != nil {
		return "", err
	}

	c.logger.Info("infographic created", "report", req.InfographicID, "format", format,
		"areas", len(areas), "path", path)
	return path, nil
}
