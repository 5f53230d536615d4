// Package config builds the pixbright server from flags, env vars and a .env file
package config

import (
	"flag"
	"fmt"
	"runtime"
	"time"

	"github.com/cshum/pixbright"
	"github.com/cshum/pixbright/metrics/prometheusmetrics"
	"github.com/cshum/pixbright/server"
	"github.com/peterbourgon/ff/v3"
	"go.uber.org/zap"
)

// CreateServer create server from config options
func CreateServer(args []string, options ...Option) (srv *server.Server) {
	var (
		fs     = flag.NewFlagSet("pixbright", flag.ExitOnError)
		logger *zap.Logger
		err    error

		debug        = fs.Bool("debug", false, "Debug mode")
		version      = fs.Bool("version", false, "pixbright version")
		port         = fs.Int("port", 8000, "Server port")
		bind         = fs.String("bind", "", "Server address and port to bind e.g. myhost:8888, overrides server-address and port")
		goMaxProcess = fs.Int("gomaxprocs", 0, "GOMAXPROCS")

		_ = fs.String("config", ".env", "Retrieve configuration from the given file")

		serverAddress = fs.String("server-address", "",
			"Server address")
		serverPathPrefix = fs.String("server-path-prefix", "",
			"Server path prefix")
		serverCORS = fs.Bool("server-cors", false,
			"Enable CORS")
		serverAccessLog = fs.Bool("server-access-log", false,
			"Enable server access log")
		serverCertFile = fs.String("server-cert-file", "",
			"Server TLS certificate file, enables TLS together with server-key-file")
		serverKeyFile = fs.String("server-key-file", "",
			"Server TLS key file")
		serverShutdownTimeout = fs.Duration("server-shutdown-timeout", time.Second*10,
			"Timeout for graceful shutdown")
		sentryDsn = fs.String("sentry-dsn", "",
			"Sentry DSN for reporting errors")

		prometheusBind = fs.String("prometheus-bind", "",
			"Specify address and port to enable Prometheus metrics, e.g. :5000, prom:7000")
		prometheusPath = fs.String("prometheus-path", "/",
			"Prometheus metrics path")

		requestTimeout = fs.Duration("pixbright-request-timeout",
			time.Second*30, "Timeout for performing an image request")
		loadTimeout = fs.Duration("pixbright-load-timeout",
			time.Second*20, "Timeout for loading a source image from storage, should be smaller than pixbright-request-timeout")
		saveTimeout = fs.Duration("pixbright-save-timeout",
			time.Second*20, "Timeout for saving a result image to result storage")
		processTimeout = fs.Duration("pixbright-process-timeout",
			time.Second*20, "Timeout for brightness processing")
		processConcurrency = fs.Int64("pixbright-process-concurrency",
			-1, "Semaphore size for process concurrency control. Set -1 for no limit")
		maxBodySize = fs.Int64("pixbright-max-body-size",
			512<<20, "Max raw buffer size in bytes accepted by /adjust")
		cacheHeaderTTL = fs.Duration("pixbright-cache-header-ttl",
			time.Hour*24*7, "HTTP Cache-Control header TTL for successful image response")
		modifiedTimeCheck = fs.Bool("pixbright-modified-time-check", false,
			"Check modified time of result image against the source image. This eliminates stale result but require more lookups")
		disableErrorBody = fs.Bool("pixbright-disable-error-body", false,
			"Disable response body on error")
	)

	appOptions, logger, isDebug := applyOptions(fs, func() (*zap.Logger, bool) {
		if err = ff.Parse(fs, args,
			ff.WithEnvVars(),
			ff.WithConfigFileFlag("config"),
			ff.WithIgnoreUndefined(true),
			ff.WithAllowMissingConfigFile(true),
			ff.WithConfigFileParser(ff.EnvParser),
		); err != nil {
			panic(err)
		}
		if *debug {
			if logger, err = zap.NewDevelopment(); err != nil {
				panic(err)
			}
		} else {
			if logger, err = zap.NewProduction(); err != nil {
				panic(err)
			}
		}
		return logger, *debug
	}, append(options, WithFileSystem)...)

	if *version {
		fmt.Println(pixbright.Version)
		return
	}

	if *goMaxProcess > 0 {
		logger.Debug("GOMAXPROCS", zap.Int("count", *goMaxProcess))
		runtime.GOMAXPROCS(*goMaxProcess)
	}

	adjusterOptions := []pixbright.AdjusterOption{
		pixbright.WithAdjusterLogger(logger),
		pixbright.WithAdjusterDebug(isDebug),
	}
	var metrics *prometheusmetrics.PrometheusMetrics
	if *prometheusBind != "" {
		metrics = prometheusmetrics.New(
			prometheusmetrics.WithAddr(*prometheusBind),
			prometheusmetrics.WithPath(*prometheusPath),
			prometheusmetrics.WithLogger(logger),
		)
		adjusterOptions = append(adjusterOptions, pixbright.WithObserver(metrics))
	}

	app := pixbright.New(append(appOptions,
		pixbright.WithAdjuster(pixbright.NewAdjuster(adjusterOptions...)),
		pixbright.WithRequestTimeout(*requestTimeout),
		pixbright.WithLoadTimeout(*loadTimeout),
		pixbright.WithSaveTimeout(*saveTimeout),
		pixbright.WithProcessTimeout(*processTimeout),
		pixbright.WithProcessConcurrency(*processConcurrency),
		pixbright.WithMaxBodySize(*maxBodySize),
		pixbright.WithCacheHeaderTTL(*cacheHeaderTTL),
		pixbright.WithModifiedTimeCheck(*modifiedTimeCheck),
		pixbright.WithDisableErrorBody(*disableErrorBody),
		pixbright.WithLogger(logger),
		pixbright.WithDebug(isDebug),
	)...)

	serverOptions := []server.Option{
		server.WithAddr(*bind),
		server.WithAddress(*serverAddress),
		server.WithPort(*port),
		server.WithPathPrefix(*serverPathPrefix),
		server.WithCORS(*serverCORS),
		server.WithAccessLog(*serverAccessLog),
		server.WithCertFile(*serverCertFile),
		server.WithKeyFile(*serverKeyFile),
		server.WithShutdownTimeout(*serverShutdownTimeout),
		server.WithSentry(*sentryDsn),
		server.WithLogger(logger),
		server.WithDebug(isDebug),
	}
	if metrics != nil {
		serverOptions = append(serverOptions, server.WithMetrics(metrics))
	}
	srv = server.New(app, serverOptions...)
	if *sentryDsn != "" {
		// share the sentry attached logger
		app.Logger = srv.Logger
		app.Adjuster.Logger = srv.Logger
	}
	return srv
}
