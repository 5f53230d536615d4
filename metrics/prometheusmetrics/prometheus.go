package prometheusmetrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cshum/pixbright"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "A histogram of latencies for requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"code", "method"},
	)
	adjustDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixbright_adjust_duration_seconds",
			Help:    "A histogram of brightness adjustment latencies",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"depth", "status"},
	)
	adjustTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixbright_adjust_total",
			Help: "Total number of brightness adjustments",
		},
		[]string{"depth", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, adjustDuration, adjustTotal)
}

// PrometheusMetrics serves the default registry on its own listener
type PrometheusMetrics struct {
	http.Server
	Path   string
	Logger *zap.Logger
}

// New creates PrometheusMetrics
func New(options ...Option) *PrometheusMetrics {
	s := &PrometheusMetrics{
		Path:   "/",
		Logger: zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}
	if s.Path != "" && s.Path != "/" {
		mux := http.NewServeMux()
		mux.Handle(s.Path, promhttp.Handler())
		s.Handler = mux
	} else {
		s.Handler = promhttp.Handler()
	}
	return s
}

// Startup listens and serves metrics in the background
func (s *PrometheusMetrics) Startup(_ context.Context) error {
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("listen", zap.Error(err))
		}
	}()
	s.Logger.Info("metrics listen", zap.String("addr", s.Addr), zap.String("path", s.Path))
	return nil
}

// Handle records request duration by status code and method
func (s *PrometheusMetrics) Handle(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(httpRequestDuration, next)
}

// ObserveAdjust implements pixbright.Observer
func (s *PrometheusMetrics) ObserveAdjust(depth pixbright.Depth, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = strconv.Itoa(pixbright.WrapError(err).Code)
	}
	adjustDuration.WithLabelValues(depth.String(), status).Observe(elapsed.Seconds())
	adjustTotal.WithLabelValues(depth.String(), status).Inc()
}

// Option PrometheusMetrics option
type Option func(s *PrometheusMetrics)

// WithAddr with listen address e.g. :5000
func WithAddr(addr string) Option {
	return func(s *PrometheusMetrics) {
		s.Addr = addr
	}
}

// WithPath with metrics path
func WithPath(path string) Option {
	return func(s *PrometheusMetrics) {
		if path != "" {
			s.Path = path
		}
	}
}

// WithLogger with logger option
func WithLogger(logger *zap.Logger) Option {
	return func(s *PrometheusMetrics) {
		if logger != nil {
			s.Logger = logger
		}
	}
}
