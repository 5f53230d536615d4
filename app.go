package pixbright

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Storage load and save blobs by key
type Storage interface {
	Get(r *http.Request, key string) (*Blob, error)
	Put(ctx context.Context, key string, blob *Blob) error
	Stat(ctx context.Context, key string) (*Stat, error)
	Delete(ctx context.Context, key string) error
}

// App brightness HTTP handler over raw buffers and stored images
type App struct {
	Adjuster           *Adjuster
	Storages           []Storage
	ResultStorages     []Storage
	RequestTimeout     time.Duration
	LoadTimeout        time.Duration
	SaveTimeout        time.Duration
	ProcessTimeout     time.Duration
	ProcessConcurrency int64
	MaxBodySize        int64
	CacheHeaderTTL     time.Duration
	ModifiedTimeCheck  bool
	DisableErrorBody   bool
	Logger             *zap.Logger
	Debug              bool

	g    singleflight.Group
	sema *semaphore.Weighted
}

// New creates App
func New(options ...Option) *App {
	app := &App{
		Logger:         zap.NewNop(),
		RequestTimeout: time.Second * 30,
		LoadTimeout:    time.Second * 20,
		SaveTimeout:    time.Second * 20,
		ProcessTimeout: time.Second * 20,
		MaxBodySize:    512 << 20,
		CacheHeaderTTL: time.Hour * 24 * 7,
	}
	for _, option := range options {
		option(app)
	}
	if app.Adjuster == nil {
		app.Adjuster = NewAdjuster(
			WithAdjusterLogger(app.Logger),
			WithAdjusterDebug(app.Debug),
		)
	}
	if app.ProcessConcurrency > 0 {
		app.sema = semaphore.NewWeighted(app.ProcessConcurrency)
	}
	return app
}

// Startup App startup lifecycle
func (app *App) Startup(_ context.Context) error {
	if app.Debug {
		app.debugLog()
	}
	return nil
}

// Shutdown App shutdown lifecycle
func (app *App) Shutdown(_ context.Context) error {
	return nil
}

// ServeHTTP implements http.Handler
func (app *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	if path == "/adjust" {
		if r.Method != http.MethodPost {
			app.writeError(w, ErrMethodNotAllowed)
			return
		}
		app.handleAdjust(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		app.writeError(w, ErrMethodNotAllowed)
		return
	}
	if path == "/" || path == "" {
		resJSON(w, json.RawMessage(fmt.Sprintf(
			`{"pixbright":{"version":"%s"}}`, Version,
		)))
		return
	}
	p, err := ParseParams(path, r.URL.Query())
	if err != nil {
		app.writeError(w, err)
		return
	}
	blob, err := app.Do(r, p)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		app.writeError(w, err)
		return
	}
	buf, err := blob.ReadAll()
	if err != nil {
		app.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	setCacheHeaders(w, app.CacheHeaderTTL)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf)
	}
}

// handleAdjust adjusts a raw octet-stream body described by the query
func (app *App) handleAdjust(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		app.writeError(w, err)
		return
	}
	if _, err = ParseDepth(req.BitsPerChannel); err != nil {
		// nothing to read, the adjuster rejects and observes the request
		_, err = app.Adjuster.Adjust(nil, req)
		app.writeError(w, err)
		return
	}
	if req.Width <= 0 || req.Height <= 0 || req.Channels <= 0 {
		app.writeError(w, ErrInvalid)
		return
	}
	size := req.SizeBytes()
	if size <= 0 || (app.MaxBodySize > 0 && int64(size) > app.MaxBodySize) {
		app.writeError(w, ErrMaxSizeExceeded)
		return
	}
	ctx := r.Context()
	if app.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.ProcessTimeout)
		defer cancel()
	}
	if app.sema != nil {
		if err = app.sema.Acquire(ctx, 1); err != nil {
			app.Logger.Debug("acquire", zap.Error(err))
			app.writeError(w, err)
			return
		}
		defer app.sema.Release(1)
	}
	buf := NewBuffer(size)
	if _, err = io.ReadFull(r.Body, buf); err != nil {
		app.Logger.Debug("read", zap.Int("size_bytes", size), zap.Error(err))
		app.writeError(w, ErrBufferSize)
		return
	}
	// body must match the shape exactly
	var trailing [1]byte
	if n, _ := io.ReadFull(r.Body, trailing[:]); n > 0 {
		app.Logger.Debug("read", zap.Int("size_bytes", size), zap.Bool("trailing", true))
		app.writeError(w, ErrBufferSize)
		return
	}
	res, err := app.Adjuster.Adjust(buf, req)
	if err != nil {
		app.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Buf)))
	w.Header().Set("X-Bits-Per-Channel", strconv.Itoa(int(res.Depth)))
	w.Header().Set("X-Sample-Count", strconv.Itoa(res.Len))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Buf)
}

// Do loads the image of p from storages, adjusts and saves the result
func (app *App) Do(r *http.Request, p Params) (blob *Blob, err error) {
	ctx := r.Context()
	if app.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.RequestTimeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	resultKey := p.ResultKey()
	return app.suppress(ctx, "res:"+resultKey, func(ctx context.Context) (*Blob, error) {
		r := r.WithContext(ctx)
		if blob := app.loadResult(r, resultKey, p.Image); blob != nil {
			return blob, nil
		}
		if app.sema != nil {
			if err := app.sema.Acquire(ctx, 1); err != nil {
				app.Logger.Debug("acquire", zap.Error(err))
				return nil, err
			}
			defer app.sema.Release(1)
		}
		blob, _, err := app.load(r, app.Storages, p.Image)
		if err != nil {
			app.Logger.Debug("load", zap.Any("params", p), zap.Error(err))
			return nil, err
		}
		if app.ProcessTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, app.ProcessTimeout)
			defer cancel()
		}
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if blob, err = app.Adjuster.AdjustImage(blob, p.Brightness, p.Format); err != nil {
			app.Logger.Warn("process", zap.Any("params", p), zap.Error(err))
			return nil, err
		}
		if app.Debug {
			app.Logger.Debug("processed", zap.Any("params", p))
		}
		if len(app.ResultStorages) > 0 {
			app.save(ctx, app.ResultStorages, resultKey, blob)
		}
		return blob, nil
	})
}

func (app *App) loadResult(r *http.Request, resultKey, imageKey string) *Blob {
	if len(app.ResultStorages) == 0 {
		return nil
	}
	blob, origin, err := app.load(r, app.ResultStorages, resultKey)
	if err != nil || isEmpty(blob) {
		return nil
	}
	if app.ModifiedTimeCheck && origin != nil {
		ctx := r.Context()
		resStat, err1 := origin.Stat(ctx, resultKey)
		sourceStat, err2 := app.storageStat(ctx, imageKey)
		if err1 != nil || err2 != nil || resStat == nil || sourceStat == nil ||
			resStat.ModifiedTime.Before(sourceStat.ModifiedTime) {
			return nil
		}
	}
	return blob
}

func (app *App) load(r *http.Request, storages []Storage, key string) (blob *Blob, origin Storage, err error) {
	if len(storages) == 0 {
		return nil, nil, ErrNotFound
	}
	ctx := r.Context()
	if app.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.LoadTimeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	err = ErrNotFound
	for _, storage := range storages {
		b, e := storage.Get(r, key)
		if b != nil && e == nil {
			// read within the load timeout
			e = b.Err()
		}
		if e == nil && !isEmpty(b) {
			blob, origin, err = b, storage, nil
			break
		}
		if e != nil && !errors.Is(e, ErrPass) {
			err = e
		}
	}
	if app.Debug {
		app.Logger.Debug("load", zap.String("key", key), zap.Error(err))
	}
	return
}

func (app *App) storageStat(ctx context.Context, key string) (stat *Stat, err error) {
	for _, storage := range app.Storages {
		if stat, err = storage.Stat(ctx, key); stat != nil && err == nil {
			return
		}
	}
	return
}

func (app *App) save(ctx context.Context, storages []Storage, key string, blob *Blob) {
	ctx = context.WithoutCancel(ctx)
	if app.SaveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.SaveTimeout)
		defer cancel()
	}
	var g errgroup.Group
	for _, storage := range storages {
		g.Go(func() error {
			if err := storage.Put(ctx, key, blob); err != nil {
				app.Logger.Warn("save", zap.String("key", key), zap.Error(err))
				return err
			}
			if app.Debug {
				app.Logger.Debug("saved", zap.String("key", key))
			}
			return nil
		})
	}
	_ = g.Wait()
}

type suppressKey struct {
	Key string
}

func (app *App) suppress(
	ctx context.Context,
	key string, fn func(ctx context.Context) (*Blob, error),
) (*Blob, error) {
	if isAcquired, ok := ctx.Value(suppressKey{key}).(bool); ok && isAcquired {
		return fn(ctx)
	}
	ch := app.g.DoChan(key, func() (v interface{}, err error) {
		v, err = fn(context.WithValue(ctx, suppressKey{key}, true))
		if errors.Is(err, context.Canceled) {
			app.g.Forget(key)
		}
		return v, err
	})
	select {
	case res := <-ch:
		if res.Val != nil {
			return res.Val.(*Blob), res.Err
		}
		return nil, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (app *App) writeError(w http.ResponseWriter, err error) {
	e := WrapError(err)
	if app.DisableErrorBody {
		w.WriteHeader(e.Code)
		return
	}
	buf, _ := json.Marshal(e)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(e.Code)
	_, _ = w.Write(buf)
}

func (app *App) debugLog() {
	var storages, resultStorages []string
	for _, v := range app.Storages {
		storages = append(storages, getType(v))
	}
	for _, v := range app.ResultStorages {
		resultStorages = append(resultStorages, getType(v))
	}
	app.Logger.Debug("pixbright",
		zap.String("version", Version),
		zap.Duration("request_timeout", app.RequestTimeout),
		zap.Duration("load_timeout", app.LoadTimeout),
		zap.Duration("process_timeout", app.ProcessTimeout),
		zap.Duration("save_timeout", app.SaveTimeout),
		zap.Int64("process_concurrency", app.ProcessConcurrency),
		zap.Int64("max_body_size", app.MaxBodySize),
		zap.Duration("cache_header_ttl", app.CacheHeaderTTL),
		zap.Strings("storages", storages),
		zap.Strings("result_storages", resultStorages),
	)
}

func setCacheHeaders(w http.ResponseWriter, ttl time.Duration) {
	if ttl <= 0 {
		w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
		return
	}
	expires := time.Now().Add(ttl)
	ttlSec := int64(ttl.Seconds())
	w.Header().Set("Expires", strings.Replace(expires.UTC().Format(time.RFC1123), "UTC", "GMT", -1))
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, max-age=%d, no-transform", ttlSec, ttlSec))
}

func resJSON(w http.ResponseWriter, v interface{}) {
	buf, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	_, _ = w.Write(buf)
}

func getType(v interface{}) string {
	if t := reflect.TypeOf(v); t.Kind() == reflect.Ptr {
		return t.Elem().Name()
	} else {
		return t.Name()
	}
}
