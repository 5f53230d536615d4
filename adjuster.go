package pixbright

import (
	"time"

	"go.uber.org/zap"
)

// Observer receives the outcome of every transform
type Observer interface {
	ObserveAdjust(depth Depth, elapsed time.Duration, err error)
}

// Adjuster runs Adjust with logging and observation
type Adjuster struct {
	Logger   *zap.Logger
	Observer Observer
	Debug    bool
}

// AdjusterOption Adjuster option
type AdjusterOption func(a *Adjuster)

// NewAdjuster creates Adjuster
func NewAdjuster(options ...AdjusterOption) *Adjuster {
	a := &Adjuster{
		Logger: zap.NewNop(),
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// WithAdjusterLogger with logger option
func WithAdjusterLogger(logger *zap.Logger) AdjusterOption {
	return func(a *Adjuster) {
		if logger != nil {
			a.Logger = logger
		}
	}
}

// WithObserver with observer option
func WithObserver(observer Observer) AdjusterOption {
	return func(a *Adjuster) {
		a.Observer = observer
	}
}

// WithAdjusterDebug with debug option
func WithAdjusterDebug(debug bool) AdjusterOption {
	return func(a *Adjuster) {
		a.Debug = debug
	}
}

// Adjust same as Adjust, logging the execution time of every call.
// Rejected requests are logged at error level with the rejected values.
func (a *Adjuster) Adjust(buf []byte, req Request) (*Result, error) {
	start := time.Now()
	res, err := Adjust(buf, req)
	elapsed := time.Since(start)
	ms := float64(elapsed) / float64(time.Millisecond)
	if err != nil {
		a.Logger.Error("adjust",
			zap.Int("bits_per_channel", req.BitsPerChannel),
			zap.Int("width", req.Width),
			zap.Int("height", req.Height),
			zap.Int("channels", req.Channels),
			zap.Int("buffer_size", len(buf)),
			zap.Float64("elapsed_ms", ms),
			zap.Error(err))
	} else {
		a.Logger.Info("adjust",
			zap.Stringer("depth", res.Depth),
			zap.Int("size", res.Len),
			zap.Float64("elapsed_ms", ms))
		if a.Debug {
			a.Logger.Debug("adjust-request", zap.Any("request", req))
		}
	}
	if a.Observer != nil {
		var depth Depth
		if res != nil {
			depth = res.Depth
		}
		a.Observer.ObserveAdjust(depth, elapsed, err)
	}
	return res, err
}
