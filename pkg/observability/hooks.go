// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about conversion runs and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This avoids import cycles (hooks are registered by main, not by
// libraries) and keeps the engine free of observability-framework
// dependencies.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetConversionHooks(&myConversionHooks{})
//	    // ... run application
//	}
//
// The engine calls hooks to emit events:
//
//	observability.Conversion().OnConvertStart(ctx, source, target)
//	// ... run conversion ...
//	observability.Conversion().OnConvertComplete(ctx, source, target, path, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// ConversionHooks receives events from the conversion orchestrator.
type ConversionHooks interface {
	// OnConvertStart records the beginning of a conversion run.
	OnConvertStart(ctx context.Context, source, target string)

	// OnPathAttempt records the start of one candidate path attempt.
	// The index is zero-based in ascending hop-count order.
	OnPathAttempt(ctx context.Context, index int, path string)

	// OnStepComplete records one edge application within a path attempt.
	OnStepComplete(ctx context.Context, edge string, duration time.Duration, err error)

	// OnFallback records an application of the flatten fallback before the
	// single step retry.
	OnFallback(ctx context.Context, formatName string)

	// OnConvertComplete records the end of a conversion run. On success,
	// path holds the executed path string; on failure it is empty.
	OnConvertComplete(ctx context.Context, source, target, path string, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopConversionHooks is a no-op implementation of ConversionHooks.
type NoopConversionHooks struct{}

func (NoopConversionHooks) OnConvertStart(context.Context, string, string)                 {}
func (NoopConversionHooks) OnPathAttempt(context.Context, int, string)                     {}
func (NoopConversionHooks) OnStepComplete(context.Context, string, time.Duration, error)   {}
func (NoopConversionHooks) OnFallback(context.Context, string)                             {}
func (NoopConversionHooks) OnConvertComplete(context.Context, string, string, string, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	conversionHooks ConversionHooks = NoopConversionHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	hooksMu         sync.RWMutex
)

// SetConversionHooks registers custom conversion hooks.
// This should be called once at application startup before any conversions.
func SetConversionHooks(h ConversionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		conversionHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Conversion returns the registered conversion hooks.
func Conversion() ConversionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return conversionHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	conversionHooks = NoopConversionHooks{}
	cacheHooks = NoopCacheHooks{}
}
