package infographics

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/infographics/pkg/arcgis"
	"github.com/matzehuels/infographics/pkg/cache"
)

// DefaultCountriesTTL is how long a cached country table stays valid.
const DefaultCountriesTTL = 24 * time.Hour

// Options configures a [Catalog].
type Options struct {
	// Cache persists the country table across processes. Nil disables it;
	// the in-memory memo is always used.
	Cache cache.Cache

	// CountriesTTL is the lifetime of a cached country table.
	// DefaultCountriesTTL when zero.
	CountriesTTL time.Duration

	// MaxItems caps the organization search. arcgis.DefaultMaxItems when zero.
	MaxItems int

	Logger *log.Logger
}

// Catalog runs infographic lookups and report generation against one GIS
// session. The country table is fetched at most once per Catalog; use
// [Catalog.InvalidateCountries] to observe upstream changes.
//
// A Catalog is safe for concurrent use.
type Catalog struct {
	gis      GIS
	cache    cache.Cache
	ttl      time.Duration
	maxItems int
	logger   *log.Logger

	mu        sync.Mutex
	countries Countries
	loaded    bool
}

// NewCatalog creates a catalog bound to gis. The handle is not checked
// until the first operation.
func NewCatalog(gis GIS, opts Options) *Catalog {
	c := &Catalog{
		gis:      gis,
		cache:    opts.Cache,
		ttl:      opts.CountriesTTL,
		maxItems: opts.MaxItems,
		logger:   opts.Logger,
	}
	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}
	if c.ttl == 0 {
		c.ttl = DefaultCountriesTTL
	}
	if c.maxItems <= 0 {
		c.maxItems = arcgis.DefaultMaxItems
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// GIS returns the session handle the catalog was created with.
func (c *Catalog) GIS() GIS { return c.gis }
