package infographics

import (
	"context"
	"slices"
	"time"

	"github.com/matzehuels/infographics/pkg/cache"
	"github.com/matzehuels/infographics/pkg/observability"
)

// ReferenceCountry is the country whose hierarchies every requested
// hierarchy is validated against.
const ReferenceCountry = "US"

// CountryColumns are the columns of [Countries.Table].
var CountryColumns = []string{"id", "hierarchies"}

// CountryHierarchy is one (country, hierarchy) pair of the country table.
type CountryHierarchy struct {
	Country   string `json:"id"`
	Hierarchy string `json:"hierarchies"`
}

// Countries is the flattened country table, one row per pair, in the order
// the service lists them.
type Countries []CountryHierarchy

// Has reports whether country appears in the table.
func (cs Countries) Has(country string) bool {
	return slices.ContainsFunc(cs, func(ch CountryHierarchy) bool {
		return ch.Country == country
	})
}

// Hierarchies returns the hierarchies listed for country, in table order.
func (cs Countries) Hierarchies(country string) []string {
	var out []string
	for _, ch := range cs {
		if ch.Country == country {
			out = append(out, ch.Hierarchy)
		}
	}
	return out
}

// Filter returns the rows for country.
func (cs Countries) Filter(country string) Countries {
	out := Countries{}
	for _, ch := range cs {
		if ch.Country == country {
			out = append(out, ch)
		}
	}
	return out
}

// Table renders the country table.
func (cs Countries) Table() Table {
	t := Table{Columns: CountryColumns, Rows: make([][]string, 0, len(cs))}
	for _, ch := range cs {
		t.Rows = append(t.Rows, []string{ch.Country, ch.Hierarchy})
	}
	return t
}

type countriesResponse struct {
	Countries []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Hierarchies []struct {
			ID string `json:"ID"`
		} `json:"hierarchies"`
	} `json:"countries"`
}

// Countries returns the country/hierarchy table. The first successful
// result is memoized; concurrent first calls share one fetch. Callers get
// their own copy and may modify it.
func (c *Catalog) Countries(ctx context.Context) (Countries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return slices.Clone(c.countries), nil
	}

	ge, err := EnsureGIS(ctx, c.gis)
	if err != nil {
		return nil, err
	}

	key := cache.Key("countries", ge)
	var cached Countries
	if ok, err := cache.GetJSON(ctx, c.cache, "countries", key, &cached); err != nil {
		c.logger.Warn("country cache read failed", "err", err)
	} else if ok {
		c.logger.Debug("countries from cache", "rows", len(cached))
		c.countries, c.loaded = cached, true
		return slices.Clone(cached), nil
	}

	hooks := observability.Catalog()
	hooks.OnLookupStart(ctx, "countries", "")
	start := time.Now()

	countries, err := c.fetchCountries(ctx, ge)
	hooks.OnLookupComplete(ctx, "countries", "", len(countries), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, c.cache, "countries", key, countries, c.ttl); err != nil {
		c.logger.Warn("country cache write failed", "err", err)
	}
	c.logger.Debug("countries fetched", "rows", len(countries))
	c.countries, c.loaded = countries, true
	return slices.Clone(countries), nil
}

func (c *Catalog) fetchCountries(ctx context.Context, ge string) (Countries, error) {
	var resp countriesResponse
	if err := c.gis.Get(ctx, ge+"/Geoenrichment/Countries", nil, &resp); err != nil {
		return nil, err
	}
	out := Countries{}
	for _, country := range resp.Countries {
		// A country without hierarchies still gets a row.
		if len(country.Hierarchies) == 0 {
			out = append(out, CountryHierarchy{Country: country.ID})
			continue
		}
		for _, h := range country.Hierarchies {
			out = append(out, CountryHierarchy{Country: country.ID, Hierarchy: h.ID})
		}
	}
	return out, nil
}

// InvalidateCountries drops the memoized country table and its cache
// entry. The next lookup fetches it again.
func (c *Catalog) InvalidateCountries(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.countries, c.loaded = nil, false

	// Without a usable session there is no cache key to drop.
	ge, err := EnsureGIS(ctx, c.gis)
	if err != nil {
		return nil
	}
	return c.cache.Delete(ctx, cache.Key("countries", ge))
}
