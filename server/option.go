package server

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// Option Server option
type Option func(s *Server)

// WithAddr with listen address, overrides WithAddress and WithPort
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.Addr = addr
	}
}

func WithAddress(address string) Option {
	return func(s *Server) {
		s.Address = address
	}
}

func WithPort(port int) Option {
	return func(s *Server) {
		if port > 0 {
			s.Port = port
		}
	}
}

func WithCertFile(certFile string) Option {
	return func(s *Server) {
		s.CertFile = certFile
	}
}

func WithKeyFile(keyFile string) Option {
	return func(s *Server) {
		s.KeyFile = keyFile
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithMiddleware wraps the app handler, first added is outermost
func WithMiddleware(middleware Middleware) Option {
	return func(s *Server) {
		if middleware != nil {
			s.Middlewares = append(s.Middlewares, middleware)
		}
	}
}

// WithPathPrefix serves under path prefix e.g. /pixbright
func WithPathPrefix(prefix string) Option {
	return func(s *Server) {
		if prefix = strings.TrimRight(prefix, "/"); prefix != "" {
			if !strings.HasPrefix(prefix, "/") {
				prefix = "/" + prefix
			}
			s.PathPrefix = prefix
		}
	}
}

func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.CORS = enabled
	}
}

func WithAccessLog(enabled bool) Option {
	return func(s *Server) {
		s.AccessLog = enabled
	}
}

// WithSentry reports error logs to sentry
func WithSentry(dsn string) Option {
	return func(s *Server) {
		s.SentryDsn = dsn
	}
}

func WithStartupTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.StartupTimeout = timeout
		}
	}
}

func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.ShutdownTimeout = timeout
		}
	}
}

// WithMetrics with metrics exporter, nil to disable
func WithMetrics(metrics Metrics) Option {
	return func(s *Server) {
		if !isNil(metrics) {
			s.Metrics = metrics
		}
	}
}

func WithDebug(debug bool) Option {
	return func(s *Server) {
		s.Debug = debug
	}
}
