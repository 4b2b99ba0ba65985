package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/infographics/pkg/observability"
)

// debugHooks logs catalog, cache and HTTP events at debug level.
type debugHooks struct {
	logger *log.Logger
}

// registerDebugHooks routes observability events to logger.
func registerDebugHooks(logger *log.Logger) {
	h := debugHooks{logger: logger}
	observability.SetCatalogHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h debugHooks) OnLookupStart(_ context.Context, op, subject string) {
	h.logger.Debug("lookup", "op", op, "subject", subject)
}

func (h debugHooks) OnLookupComplete(_ context.Context, op, subject string, rows int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("lookup failed", "op", op, "subject", subject, "duration", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("lookup done", "op", op, "subject", subject, "rows", rows, "duration", d.Round(time.Millisecond))
}

func (h debugHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "key", keyType)
}

func (h debugHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "key", keyType)
}

func (h debugHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "key", keyType, "bytes", size)
}

func (h debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
