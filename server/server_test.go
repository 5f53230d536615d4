package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cshum/pixbright"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testApp struct {
	http.Handler
	StartupCnt  int
	ShutdownCnt int
}

func newTestApp() *testApp {
	return &testApp{Handler: pixbright.New()}
}

func (app *testApp) Startup(_ context.Context) error {
	app.StartupCnt++
	return nil
}

func (app *testApp) Shutdown(_ context.Context) error {
	app.ShutdownCnt++
	return nil
}

type testMetrics struct {
	StartupCnt  int
	ShutdownCnt int
	HandleCnt   int
}

func (m *testMetrics) Startup(_ context.Context) error {
	m.StartupCnt++
	return nil
}

func (m *testMetrics) Shutdown(_ context.Context) error {
	m.ShutdownCnt++
	return nil
}

func (m *testMetrics) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HandleCnt++
		next.ServeHTTP(w, r)
	})
}

func TestServer_RunContext(t *testing.T) {
	ctx, done := context.WithCancel(context.Background())
	app := newTestApp()
	metrics := &testMetrics{}
	s := New(app,
		WithDebug(true),
		WithAddr(":0"),
		WithStartupTimeout(time.Millisecond),
		WithShutdownTimeout(time.Millisecond),
		WithMetrics(metrics),
		WithLogger(zap.NewExample()))
	go func() {
		time.Sleep(time.Millisecond * 10)
		done()
	}()
	s.RunContext(ctx)
	assert.Equal(t, 1, app.StartupCnt)
	assert.Equal(t, 1, app.ShutdownCnt)
	assert.Equal(t, 1, metrics.StartupCnt)
	assert.Equal(t, 1, metrics.ShutdownCnt)
}

func TestServer(t *testing.T) {
	s := New(pixbright.New(),
		WithAccessLog(true),
		WithMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Foo", "Bar")
				if strings.Contains(r.URL.String(), "boom") {
					panic("booooom")
				}
				next.ServeHTTP(w, r)
			})
		}),
		WithCORS(true),
	)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/favicon.ico", nil))
	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Header().Get("Vary"))
	assert.Equal(t, "Bar", w.Header().Get("X-Foo"))

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "https://example.com/favicon.ico", nil))
	assert.Equal(t, 405, w.Code)

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/health", nil))
	assert.Equal(t, 200, w.Code)
	var stats HealthStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, pixbright.Version, stats.Version)
	assert.NotZero(t, stats.Goroutines)

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), pixbright.Version)

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/1/foo.png?boom", nil))
	assert.Equal(t, 500, w.Code)
	assert.NotEmpty(t, w.Header().Get("Vary"))
	assert.Equal(t, "Bar", w.Header().Get("X-Foo"))
	assert.Equal(t, `{"message":"booooom","status":500}`, w.Body.String())
}

func TestServerAdjust(t *testing.T) {
	s := New(pixbright.New())
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
		"https://example.com/adjust?width=1&height=1&channels=3&bits=8&brightness=20",
		strings.NewReader("\x00\x80\xff")))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, []byte{20, 148, 255}, w.Body.Bytes())
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(pixbright.New(), WithAccessLog(true), WithLogger(zap.New(core)))

	r := httptest.NewRequest(http.MethodGet, "https://example.com/1/missing.png", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	s.Handler.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.FilterMessage("access").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(404), fields["status"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/1/missing.png", fields["uri"])
	assert.Equal(t, "1.2.3.4", fields["ip"])
}

func TestServerErrorLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(pixbright.New(),
		WithLogger(zap.New(core)),
		WithMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic("booooom")
			})
		}),
	)
	ts := httptest.NewUnstartedServer(s.Handler)
	ts.Config = &s.Server
	ts.Start()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/1/bar.png")
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"message":"booooom","status":500}`, string(body))

	_, err = s.ErrorLog.Writer().Write([]byte("http: TLS handshake error from 172.16.0.3:42672: EOF"))
	assert.NoError(t, err)
	_, err = s.ErrorLog.Writer().Write([]byte("foobar"))
	assert.NoError(t, err)

	var messages []string
	var levels []zapcore.Level
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
		levels = append(levels, entry.Level)
	}
	assert.Equal(t, []string{"panic", "server", "server"}, messages)
	assert.Equal(t, []zapcore.Level{zapcore.ErrorLevel, zapcore.DebugLevel, zapcore.WarnLevel}, levels)
}

func TestServerErrorLogWriter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	writer := &serverErrorLogWriter{Logger: zap.New(core)}
	for msg, level := range map[string]zapcore.Level{
		"http: TLS handshake error from 172.16.0.3:42672: EOF\n":      zapcore.DebugLevel,
		"http: URL query contains semicolon, which is deprecated\n": zapcore.DebugLevel,
		"some other server error\n":                                 zapcore.WarnLevel,
	} {
		logs.TakeAll()
		n, err := writer.Write([]byte(msg))
		assert.NoError(t, err)
		assert.Equal(t, len(msg), n)
		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "server", entries[0].Message)
		assert.Equal(t, level, entries[0].Level)
	}
}

func TestWithPathPrefix(t *testing.T) {
	s := New(pixbright.New(), WithPathPrefix("pixbright/"))
	assert.Equal(t, "/pixbright", s.PathPrefix)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/pixbright/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://example.com/health", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWithSentry(t *testing.T) {
	s := New(pixbright.New(), WithSentry("https://12345@sentry.com/123"))
	assert.Equal(t, "https://12345@sentry.com/123", s.SentryDsn)
	assert.NotNil(t, s.Logger)

	logger, err := AttachSentry(zap.NewNop(), "not a dsn")
	assert.Error(t, err)
	assert.NotNil(t, logger)
}

func TestWithMetrics(t *testing.T) {
	metrics := &testMetrics{}
	s := New(pixbright.New(), WithMetrics(metrics))
	assert.Equal(t, metrics, s.Metrics)
	s.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, 1, metrics.HandleCnt)

	var nilMetrics *testMetrics
	s = New(pixbright.New(), WithMetrics(nilMetrics))
	assert.True(t, isNil(s.Metrics))
}

func TestServerOptions(t *testing.T) {
	app := pixbright.New()

	s := New(app)
	assert.Equal(t, ":8000", s.Addr)
	assert.Equal(t, time.Second*10, s.StartupTimeout)
	assert.Equal(t, time.Second*10, s.ShutdownTimeout)

	s = New(app, WithAddr("localhost:8080"), WithPort(1234))
	assert.Equal(t, "localhost:8080", s.Addr)

	s = New(app, WithAddress("localhost"), WithPort(9090))
	assert.Equal(t, "localhost:9090", s.Addr)

	s = New(app, WithCertFile("cert.pem"), WithKeyFile("key.pem"))
	assert.Equal(t, "cert.pem", s.CertFile)
	assert.Equal(t, "key.pem", s.KeyFile)

	logger := zap.NewExample()
	assert.Equal(t, logger, New(app, WithLogger(logger)).Logger)
	assert.NotNil(t, New(app, WithLogger(nil)).Logger)

	s = New(app, WithStartupTimeout(time.Second*5), WithShutdownTimeout(0))
	assert.Equal(t, time.Second*5, s.StartupTimeout)
	assert.Equal(t, time.Second*10, s.ShutdownTimeout)

	assert.NotNil(t, New(app, WithMiddleware(nil)).Handler)
	assert.True(t, New(app, WithDebug(true)).Debug)
}

func TestIsNil(t *testing.T) {
	var m *testMetrics
	var i Metrics = m
	assert.True(t, isNil(nil))
	assert.True(t, isNil(i))
	assert.False(t, isNil(&testMetrics{}))
	assert.False(t, isNil("string"))
	assert.False(t, isNil(42))
}
