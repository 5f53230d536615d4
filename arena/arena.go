// Package arena hands out pinned blocks of linear memory to a WebAssembly host.
//
// The host allocates a block, writes pixel data at the returned address,
// calls the transform and frees the block once it has read the result back.
// Blocks are 8-byte aligned so 16-bit samples can be reinterpreted in place.
package arena

import (
	"sync"
	"unsafe"

	"github.com/cshum/pixbright"
	"go.uber.org/zap"
)

// DefaultMaxBytes maximum total bytes held by an Arena, 4 GiB
const DefaultMaxBytes = 4 << 30

// Arena registry of pinned blocks keyed by address
type Arena struct {
	MaxBytes int64
	Logger   *zap.Logger

	blocks    map[uintptr][]byte
	allocated int64
	l         sync.Mutex
}

// New creates Arena
func New(options ...Option) *Arena {
	a := &Arena{
		MaxBytes: DefaultMaxBytes,
		Logger:   zap.NewNop(),
		blocks:   map[uintptr][]byte{},
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Alloc allocates a zeroed block of n bytes and returns its address
func (a *Arena) Alloc(n int) (uintptr, error) {
	if n <= 0 {
		return 0, pixbright.ErrInvalid
	}
	a.l.Lock()
	defer a.l.Unlock()
	if a.MaxBytes > 0 && a.allocated+int64(n) > a.MaxBytes {
		a.Logger.Warn("alloc", zap.Int("size", n), zap.Int64("allocated", a.allocated), zap.Error(pixbright.ErrMaxSizeExceeded))
		return 0, pixbright.ErrMaxSizeExceeded
	}
	words := make([]uint64, (n+7)/8)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	a.blocks[addr] = buf
	a.allocated += int64(n)
	a.Logger.Debug("alloc", zap.Uintptr("addr", addr), zap.Int("size", n))
	return addr, nil
}

// Bytes resolves the block at addr, sliced to n bytes
func (a *Arena) Bytes(addr uintptr, n int) ([]byte, error) {
	a.l.Lock()
	buf, ok := a.blocks[addr]
	a.l.Unlock()
	if !ok {
		return nil, pixbright.ErrNotFound
	}
	if n < 0 || n > len(buf) {
		return nil, pixbright.ErrBufferSize
	}
	return buf[:n], nil
}

// Free releases the block at addr
func (a *Arena) Free(addr uintptr) error {
	a.l.Lock()
	defer a.l.Unlock()
	buf, ok := a.blocks[addr]
	if !ok {
		return pixbright.ErrNotFound
	}
	delete(a.blocks, addr)
	a.allocated -= int64(len(buf))
	a.Logger.Debug("free", zap.Uintptr("addr", addr), zap.Int("size", len(buf)))
	return nil
}

// Len number of live blocks
func (a *Arena) Len() int {
	a.l.Lock()
	defer a.l.Unlock()
	return len(a.blocks)
}

// Allocated total bytes of live blocks
func (a *Arena) Allocated() int64 {
	a.l.Lock()
	defer a.l.Unlock()
	return a.allocated
}

// Option Arena option
type Option func(a *Arena)

// WithMaxBytes with maximum total bytes option, 0 for no limit
func WithMaxBytes(n int64) Option {
	return func(a *Arena) {
		if n >= 0 {
			a.MaxBytes = n
		}
	}
}

// WithLogger with logger option
func WithLogger(logger *zap.Logger) Option {
	return func(a *Arena) {
		if logger != nil {
			a.Logger = logger
		}
	}
}
