package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Catalog hooks
	p := NoopCatalogHooks{}
	p.OnLookupStart(ctx, "standard", "US")
	p.OnLookupComplete(ctx, "standard", "US", 12, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "countries")
	c.OnCacheMiss(ctx, "countries")
	c.OnCacheSet(ctx, "countries", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "geoenrich.arcgis.com", "/arcgis/rest/services/World/geoenrichmentserver/Geoenrichment/Countries")
	h.OnResponse(ctx, "GET", "geoenrich.arcgis.com", "/Geoenrichment/Countries", 200, time.Second)
	h.OnError(ctx, "GET", "geoenrich.arcgis.com", "/Geoenrichment/Countries", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Catalog().(NoopCatalogHooks); !ok {
		t.Error("Catalog() should return NoopCatalogHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customCatalog := &testCatalogHooks{}
	SetCatalogHooks(customCatalog)
	if Catalog() != customCatalog {
		t.Error("SetCatalogHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Catalog().(NoopCatalogHooks); !ok {
		t.Error("Reset() should restore NoopCatalogHooks")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("Reset() should restore NoopHTTPHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testCatalogHooks{}
	SetCatalogHooks(custom)

	SetCatalogHooks(nil)

	if Catalog() != custom {
		t.Error("SetCatalogHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testCatalogHooks struct{ NoopCatalogHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
