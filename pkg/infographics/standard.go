package infographics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/infographics/pkg/arcgis"
	"github.com/matzehuels/infographics/pkg/errors"
	"github.com/matzehuels/infographics/pkg/observability"
)

// CategoryStandard tags rows returned by [Catalog.StandardInfographics].
const CategoryStandard = "standard"

// StandardColumns are the columns of [StandardInfographics.Table].
var StandardColumns = []string{
	"reportID", "title", "itemID", "formats", "dataVintage", "countries", "hierarchy", "category",
}

// StandardInfographic is a platform-provided infographic.
type StandardInfographic struct {
	ReportID    string   `json:"reportID"`
	Title       string   `json:"title"`
	ItemID      string   `json:"itemID"`
	Formats     []string `json:"formats"`
	DataVintage string   `json:"dataVintage"`
	Countries   []string `json:"countries"`
	Hierarchy   string   `json:"hierarchy"`
	Category    string   `json:"category"`
}

// StandardInfographics is the result of a standard lookup.
type StandardInfographics []StandardInfographic

// Table renders the infographics with [StandardColumns].
func (s StandardInfographics) Table() Table {
	t := Table{Columns: StandardColumns, Rows: make([][]string, 0, len(s))}
	for _, ig := range s {
		t.Rows = append(t.Rows, []string{
			ig.ReportID, ig.Title, ig.ItemID, joinList(ig.Formats),
			ig.DataVintage, joinList(ig.Countries), ig.Hierarchy, ig.Category,
		})
	}
	return t
}

// HierarchyError lists the requested hierarchies that are not available.
type HierarchyError struct {
	Country string
	Invalid []string
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("hierarchies %s are not available for %s", strings.Join(e.Invalid, ", "), e.Country)
}

// StandardInfographics lists the standard infographics for country. With
// no hierarchies, every hierarchy known for the country is queried.
//
// The country must appear in the country table (INVALID_COUNTRY) and every
// hierarchy must be one of [ReferenceCountry]'s (INVALID_HIERARCHY). Both
// checks complete before the first infographic request. Hierarchies
// without reports contribute no rows; the result is never nil.
func (c *Catalog) StandardInfographics(ctx context.Context, country string, hierarchies ...string) (StandardInfographics, error) {
	ge, err := EnsureGIS(ctx, c.gis)
	if err != nil {
		return nil, err
	}
	countries, err := c.Countries(ctx)
	if err != nil {
		return nil, err
	}

	if !countries.Has(country) {
		return nil, errors.New(errors.ErrCodeInvalidCountry,
			"the ISO2 country code %q does not appear to be available", country)
	}

	if len(hierarchies) == 0 {
		hierarchies = countries.Hierarchies(country)
	}
	hierarchies = dedupe(hierarchies)

	reference := countries.Hierarchies(ReferenceCountry)
	var invalid []string
	for _, h := range hierarchies {
		if !slices.Contains(reference, h) {
			invalid = append(invalid, h)
		}
	}
	if len(invalid) > 0 {
		herr := &HierarchyError{Country: country, Invalid: invalid}
		return nil, errors.Wrap(errors.ErrCodeInvalidHierarchy, herr, "invalid hierarchy")
	}

	hooks := observability.Catalog()
	hooks.OnLookupStart(ctx, "standard", country)
	start := time.Now()

	out := StandardInfographics{}
	for _, h := range hierarchies {
		reports, err := c.fetchStandard(ctx, ge, country, h)
		if err != nil {
			hooks.OnLookupComplete(ctx, "standard", country, len(out), time.Since(start), err)
			return nil, err
		}
		c.logger.Debug("standard infographics", "country", country, "hierarchy", h, "rows", len(reports))
		out = append(out, reports...)
	}

	hooks.OnLookupComplete(ctx, "standard", country, len(out), time.Since(start), nil)
	return out, nil
}

type standardResponse struct {
	Reports []map[string]json.RawMessage `json:"reports"`
}

func (c *Catalog) fetchStandard(ctx context.Context, ge, country, hierarchy string) (StandardInfographics, error) {
	u := fmt.Sprintf("%s/Geoenrichment/Infographics/Standard/%s/%s",
		ge, url.PathEscape(country), url.PathEscape(hierarchy))

	var resp standardResponse
	if err := c.gis.Get(ctx, u, url.Values{"f": {"json"}}, &resp); err != nil {
		return nil, err
	}

	out := make(StandardInfographics, 0, len(resp.Reports))
	for _, report := range resp.Reports {
		fields := flattenReport(report)
		out = append(out, StandardInfographic{
			ReportID:    text(fields["reportID"]),
			Title:       text(fields["title"]),
			ItemID:      text(fields["itemID"]),
			Formats:     list(fields["formats"]),
			DataVintage: text(fields["dataVintage"]),
			Countries:   list(fields["countries"]),
			Hierarchy:   text(fields["hierarchy"]),
			Category:    CategoryStandard,
		})
	}
	return out, nil
}

// flattenReport merges a report's metadata object into its top-level
// fields. Metadata wins when both define a field.
func flattenReport(report map[string]json.RawMessage) map[string]json.RawMessage {
	fields := make(map[string]json.RawMessage, len(report))
	for k, v := range report {
		if k != "metadata" {
			fields[k] = v
		}
	}
	var meta map[string]json.RawMessage
	if raw, ok := report["metadata"]; ok && json.Unmarshal(raw, &meta) == nil {
		for k, v := range meta {
			fields[k] = v
		}
	}
	return fields
}

// text renders a scalar field. Strings are unquoted; numbers and booleans
// keep their JSON text; null and absent fields are empty.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func list(raw json.RawMessage) []string {
	var l arcgis.StringList
	if len(raw) == 0 || json.Unmarshal(raw, &l) != nil {
		return nil
	}
	return l
}

func dedupe(vs []string) []string {
	seen := make(map[string]bool, len(vs))
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
