package config

import (
	"flag"
	"testing"
	"time"

	"github.com/cshum/pixbright"
	"github.com/cshum/pixbright/metrics/prometheusmetrics"
	"github.com/cshum/pixbright/storage/filestorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefault(t *testing.T) {
	srv := CreateServer(nil)
	assert.Equal(t, ":8000", srv.Addr)
	assert.Empty(t, srv.PathPrefix)
	assert.False(t, srv.CORS)
	assert.False(t, srv.AccessLog)
	assert.Nil(t, srv.Metrics)
	assert.Equal(t, time.Second*10, srv.ShutdownTimeout)
	app := srv.App.(*pixbright.App)

	assert.False(t, app.Debug)
	assert.Equal(t, time.Second*30, app.RequestTimeout)
	assert.Equal(t, time.Second*20, app.LoadTimeout)
	assert.Equal(t, time.Second*20, app.SaveTimeout)
	assert.Equal(t, time.Second*20, app.ProcessTimeout)
	assert.Empty(t, app.ProcessConcurrency)
	assert.Equal(t, int64(512<<20), app.MaxBodySize)
	assert.Equal(t, time.Hour*24*7, app.CacheHeaderTTL)
	assert.False(t, app.ModifiedTimeCheck)
	assert.False(t, app.DisableErrorBody)
	assert.Empty(t, app.Storages)
	assert.Empty(t, app.ResultStorages)
	require.NotNil(t, app.Adjuster)
	assert.Nil(t, app.Adjuster.Observer)
}

func TestBasic(t *testing.T) {
	srv := CreateServer([]string{
		"-debug",
		"-port", "2345",
		"-server-address", "localhost",
		"-server-path-prefix", "/foo/",
		"-server-cors",
		"-server-access-log",
		"-server-shutdown-timeout", "3s",
		"-pixbright-request-timeout", "16s",
		"-pixbright-load-timeout", "7s",
		"-pixbright-save-timeout", "8s",
		"-pixbright-process-timeout", "19s",
		"-pixbright-process-concurrency", "199",
		"-pixbright-max-body-size", "1024",
		"-pixbright-cache-header-ttl", "169h",
		"-pixbright-modified-time-check",
		"-pixbright-disable-error-body",
	})
	assert.Equal(t, 2345, srv.Port)
	assert.Equal(t, "localhost:2345", srv.Addr)
	assert.Equal(t, "/foo", srv.PathPrefix)
	assert.True(t, srv.CORS)
	assert.True(t, srv.AccessLog)
	assert.True(t, srv.Debug)
	assert.Equal(t, time.Second*3, srv.ShutdownTimeout)

	app := srv.App.(*pixbright.App)
	assert.True(t, app.Debug)
	assert.True(t, app.Adjuster.Debug)
	assert.Equal(t, time.Second*16, app.RequestTimeout)
	assert.Equal(t, time.Second*7, app.LoadTimeout)
	assert.Equal(t, time.Second*8, app.SaveTimeout)
	assert.Equal(t, time.Second*19, app.ProcessTimeout)
	assert.Equal(t, int64(199), app.ProcessConcurrency)
	assert.Equal(t, int64(1024), app.MaxBodySize)
	assert.Equal(t, time.Hour*169, app.CacheHeaderTTL)
	assert.True(t, app.ModifiedTimeCheck)
	assert.True(t, app.DisableErrorBody)
}

func TestBind(t *testing.T) {
	srv := CreateServer([]string{
		"-server-address", "localhost",
		"-port", "2345",
		"-bind", ":4567",
	})
	assert.Equal(t, ":4567", srv.Addr)
}

func TestVersion(t *testing.T) {
	assert.Nil(t, CreateServer([]string{"-version"}))
}

func TestFileStorage(t *testing.T) {
	srv := CreateServer([]string{
		"-file-safe-chars", "!",

		"-file-storage-base-dir", "./foo",
		"-file-storage-path-prefix", "abcd",
		"-file-storage-mkdir-permission", "0700",
		"-file-storage-write-permission", "0600",
		"-file-storage-expiration", "1h",

		"-file-result-storage-base-dir", "./bar",
		"-file-result-storage-path-prefix", "bcda",
	})
	app := srv.App.(*pixbright.App)
	require.Len(t, app.Storages, 1)
	storage := app.Storages[0].(*filestorage.FileStorage)
	assert.Equal(t, "./foo", storage.BaseDir)
	assert.Equal(t, "/abcd/", storage.PathPrefix)
	assert.Equal(t, "!", storage.SafeChars)
	assert.Equal(t, "-rwx------", storage.MkdirPermission.String())
	assert.Equal(t, "-rw-------", storage.WritePermission.String())
	assert.Equal(t, time.Hour, storage.Expiration)

	require.Len(t, app.ResultStorages, 1)
	resultStorage := app.ResultStorages[0].(*filestorage.FileStorage)
	assert.Equal(t, "./bar", resultStorage.BaseDir)
	assert.Equal(t, "/bcda/", resultStorage.PathPrefix)
	assert.Equal(t, "!", resultStorage.SafeChars)
	assert.Equal(t, "-rwxr-xr-x", resultStorage.MkdirPermission.String())
	assert.Empty(t, resultStorage.Expiration)
}

func TestPrometheus(t *testing.T) {
	srv := CreateServer([]string{
		"-prometheus-bind", ":6789",
		"-prometheus-path", "/myprom",
	})
	pm := srv.Metrics.(*prometheusmetrics.PrometheusMetrics)
	assert.Equal(t, "/myprom", pm.Path)
	assert.Equal(t, ":6789", pm.Addr)

	app := srv.App.(*pixbright.App)
	assert.Equal(t, pm, app.Adjuster.Observer)
}

func TestSentryLogger(t *testing.T) {
	srv := CreateServer([]string{
		"-sentry-dsn", "https://public@sentry.example.com/1",
	})
	app := srv.App.(*pixbright.App)
	assert.Equal(t, "https://public@sentry.example.com/1", srv.SentryDsn)
	assert.Same(t, srv.Logger, app.Logger)
	assert.Same(t, srv.Logger, app.Adjuster.Logger)
}

func TestApplyOptions(t *testing.T) {
	var order []string
	var flags []string
	option := func(name string, callCb bool) Option {
		return func(fs *flag.FlagSet, cb Callback) pixbright.Option {
			fs.String(name, "", name)
			if callCb {
				logger, isDebug := cb()
				assert.NotNil(t, logger)
				assert.True(t, isDebug)
			}
			flags = append(flags, name)
			return func(app *pixbright.App) {
				order = append(order, name)
			}
		}
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var parsed int
	appOptions, logger, isDebug := applyOptions(fs, func() (*zap.Logger, bool) {
		parsed++
		// every option registered its flag before parse
		for _, name := range []string{"a", "b", "c"} {
			assert.NotNil(t, fs.Lookup(name))
		}
		return zap.NewNop(), true
	}, option("a", true), nil, option("b", false), option("c", true))

	assert.Equal(t, 1, parsed)
	assert.NotNil(t, logger)
	assert.True(t, isDebug)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, flags)

	app := pixbright.New(appOptions...)
	assert.NotNil(t, app)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}
