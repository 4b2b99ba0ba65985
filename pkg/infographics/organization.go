package infographics

import (
	"context"
	"time"

	"github.com/matzehuels/infographics/pkg/arcgis"
	"github.com/matzehuels/infographics/pkg/observability"
)

// CategoryCustom tags rows returned by [Catalog.OrganizationInfographics].
const CategoryCustom = "custom"

// reportTemplateQuery selects the items organization infographics live in.
const reportTemplateQuery = `type:"Report Template"`

// infographicKeyword marks a report template as an infographic.
const infographicKeyword = "infographic"

// CustomColumns are the columns of [CustomInfographics.Table].
var CustomColumns = []string{
	"title", "itemID", "itemDescription", "countries", "formats", "owner", "category",
}

// CustomInfographic is an infographic template published by the
// organization.
type CustomInfographic struct {
	Title       string   `json:"title"`
	ItemID      string   `json:"itemID"`
	Description string   `json:"itemDescription"`
	Countries   []string `json:"countries"`
	Formats     []string `json:"formats"`
	Owner       string   `json:"owner"`
	Category    string   `json:"category"`
}

// CustomInfographics is the result of an organization lookup.
type CustomInfographics []CustomInfographic

// Table renders the infographics with [CustomColumns].
func (s CustomInfographics) Table() Table {
	t := Table{Columns: CustomColumns, Rows: make([][]string, 0, len(s))}
	for _, ig := range s {
		t.Rows = append(t.Rows, []string{
			ig.Title, ig.ItemID, ig.Description, joinList(ig.Countries),
			joinList(ig.Formats), ig.Owner, ig.Category,
		})
	}
	return t
}

// OrganizationInfographics lists the organization's Report Template items
// that carry an "infographic" type keyword (any case, any position).
func (c *Catalog) OrganizationInfographics(ctx context.Context) (CustomInfographics, error) {
	if _, err := EnsureGIS(ctx, c.gis); err != nil {
		return nil, err
	}
	org, err := c.gis.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	hooks := observability.Catalog()
	hooks.OnLookupStart(ctx, "custom", org)
	start := time.Now()

	items, err := c.gis.Search(ctx, reportTemplateQuery, arcgis.SearchOptions{
		MaxItems: c.maxItems,
		OrgID:    org,
	})
	if err != nil {
		hooks.OnLookupComplete(ctx, "custom", org, 0, time.Since(start), err)
		return nil, err
	}

	out := CustomInfographics{}
	for _, it := range items {
		if !it.HasTypeKeyword(infographicKeyword) {
			continue
		}
		ig := CustomInfographic{
			Title:       it.Title,
			ItemID:      it.ID,
			Description: it.Description,
			Owner:       it.Owner,
			Category:    CategoryCustom,
		}
		var countries, formats arcgis.StringList
		if it.Property("countries", &countries) {
			ig.Countries = countries
		}
		if it.Property("formats", &formats) {
			ig.Formats = formats
		}
		out = append(out, ig)
	}

	c.logger.Debug("organization infographics", "templates", len(items), "infographics", len(out))
	hooks.OnLookupComplete(ctx, "custom", org, len(out), time.Since(start), nil)
	return out, nil
}
