package pixbright

import (
	"time"

	"go.uber.org/zap"
)

// Option App option
type Option func(app *App)

// WithLogger with zap logger
func WithLogger(logger *zap.Logger) Option {
	return func(app *App) {
		if logger != nil {
			app.Logger = logger
		}
	}
}

// WithAdjuster with Adjuster, replacing the default one
func WithAdjuster(adjuster *Adjuster) Option {
	return func(app *App) {
		app.Adjuster = adjuster
	}
}

// WithStorages with source image storages, looked up in order
func WithStorages(storages ...Storage) Option {
	return func(app *App) {
		app.Storages = append(app.Storages, storages...)
	}
}

// WithResultStorages with adjusted image result storages
func WithResultStorages(storages ...Storage) Option {
	return func(app *App) {
		app.ResultStorages = append(app.ResultStorages, storages...)
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.RequestTimeout = timeout
		}
	}
}

func WithLoadTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.LoadTimeout = timeout
		}
	}
}

func WithSaveTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.SaveTimeout = timeout
		}
	}
}

func WithProcessTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.ProcessTimeout = timeout
		}
	}
}

// WithProcessConcurrency limits concurrent adjustments, unlimited if <= 0
func WithProcessConcurrency(concurrency int64) Option {
	return func(app *App) {
		if concurrency > 0 {
			app.ProcessConcurrency = concurrency
		}
	}
}

// WithMaxBodySize maximum raw body size of POST /adjust
func WithMaxBodySize(size int64) Option {
	return func(app *App) {
		if size > 0 {
			app.MaxBodySize = size
		}
	}
}

func WithCacheHeaderTTL(ttl time.Duration) Option {
	return func(app *App) {
		app.CacheHeaderTTL = ttl
	}
}

// WithModifiedTimeCheck discards result older than its source image
func WithModifiedTimeCheck(enabled bool) Option {
	return func(app *App) {
		app.ModifiedTimeCheck = enabled
	}
}

func WithDisableErrorBody(disabled bool) Option {
	return func(app *App) {
		app.DisableErrorBody = disabled
	}
}

func WithDebug(debug bool) Option {
	return func(app *App) {
		app.Debug = debug
	}
}
