package config

import (
	"flag"

	"github.com/cshum/pixbright"
	"go.uber.org/zap"
)

// Callback parses the flag set and returns the logger.
// Options must register their flags before calling it.
type Callback func() (logger *zap.Logger, isDebug bool)

// Option flag based config option
type Option func(fs *flag.FlagSet, cb Callback) pixbright.Option

// applyOptions transform from config.Option to pixbright.Option,
// every option registers its flags ahead of the parse in cb
func applyOptions(
	fs *flag.FlagSet, cb Callback, options ...Option,
) (appOptions []pixbright.Option, logger *zap.Logger, isDebug bool) {
	if len(options) == 0 {
		logger, isDebug = cb()
		return
	}
	var last = len(options) - 1
	var called bool
	if options[last] == nil {
		return applyOptions(fs, cb, options[:last]...)
	}
	option := options[last](fs, func() (*zap.Logger, bool) {
		appOptions, logger, isDebug = applyOptions(fs, cb, options[:last]...)
		called = true
		return logger, isDebug
	})
	appOptions = append(appOptions, option)
	if !called {
		var opts []pixbright.Option
		opts, logger, isDebug = applyOptions(fs, cb, options[:last]...)
		appOptions = append(opts, appOptions...)
	}
	return
}
