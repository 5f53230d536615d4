// Package binding exposes the brightness transform to a JavaScript host.
//
// The host contract mirrors an emscripten module:
//
//	const ptr = _malloc(sizeBytes)
//	new Uint8Array(memory.buffer).set(pixels, ptr)
//	const res = adjust_brightness(ptr, width, height, channels, bitsPerChannel, brightness)
//	// res.file_output is a Uint8Array or Uint16Array aliasing memory at ptr,
//	// absent when the call was rejected
//	_free(ptr)
//
// The buffer is borrowed: adjust_brightness never frees it, the host does once
// it has read file_output back. Growing the memory detaches previous views.
package binding

import (
	"github.com/cshum/pixbright"
	"github.com/cshum/pixbright/arena"
	"go.uber.org/zap"
)

// OutputField name of the result field holding the typed view
const OutputField = "file_output"

// Output describes the typed view to hand back to the host
type Output struct {
	Addr  uintptr
	Len   int
	Depth pixbright.Depth
}

// Binding wires the arena to an Adjuster
type Binding struct {
	Arena    *arena.Arena
	Adjuster *pixbright.Adjuster
}

// New creates Binding
func New(a *arena.Arena, adjuster *pixbright.Adjuster) *Binding {
	if a == nil {
		a = arena.New()
	}
	if adjuster == nil {
		adjuster = pixbright.NewAdjuster()
	}
	return &Binding{Arena: a, Adjuster: adjuster}
}

// Malloc allocates a block for the host
func (b *Binding) Malloc(size int) (uintptr, error) {
	return b.Arena.Alloc(size)
}

// Free releases a block of the host
func (b *Binding) Free(addr uintptr) error {
	return b.Arena.Free(addr)
}

// AdjustBrightness resolves the block at addr and adjusts it in place.
// The block is only resolved for a well formed request,
// anything else is left to the Adjuster to reject and observe.
func (b *Binding) AdjustBrightness(addr uintptr, req pixbright.Request) (*Output, error) {
	var buf []byte
	if _, err := pixbright.ParseDepth(req.BitsPerChannel); err == nil {
		if size := req.SizeBytes(); size > 0 {
			if buf, err = b.Arena.Bytes(addr, size); err != nil {
				b.Adjuster.Logger.Error("adjust_brightness", zap.Uintptr("addr", addr), zap.Int("size_bytes", size), zap.Error(err))
				return nil, err
			}
		}
	}
	res, err := b.Adjuster.Adjust(buf, req)
	if err != nil {
		return nil, err
	}
	return &Output{Addr: addr, Len: res.Len, Depth: res.Depth}, nil
}

// ParseArgs maps the six positional host arguments onto addr and Request
func ParseArgs(args []int) (uintptr, pixbright.Request, error) {
	if len(args) < 6 {
		return 0, pixbright.Request{}, pixbright.ErrInvalid
	}
	if args[0] <= 0 {
		return 0, pixbright.Request{}, pixbright.ErrNotFound
	}
	return uintptr(args[0]), pixbright.Request{
		Width:          args[1],
		Height:         args[2],
		Channels:       args[3],
		BitsPerChannel: args[4],
		Brightness:     args[5],
	}, nil
}
