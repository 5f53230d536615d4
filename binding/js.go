//go:build js && wasm

package binding

import (
	"syscall/js"

	"github.com/cshum/pixbright"
	"go.uber.org/zap"
)

// Register installs adjust_brightness, _malloc and _free on target.
// memory resolves the WebAssembly.Memory of the running instance on every call,
// since growing the memory replaces its buffer.
func (b *Binding) Register(target js.Value, memory func() js.Value) {
	uint8Array := js.Global().Get("Uint8Array")
	uint16Array := js.Global().Get("Uint16Array")
	object := js.Global().Get("Object")

	target.Set("adjust_brightness", js.FuncOf(func(_ js.Value, args []js.Value) any {
		result := object.New()
		ints, ok := toInts(args)
		if !ok {
			b.Adjuster.Logger.Error("adjust_brightness", zap.Error(pixbright.ErrInvalid))
			return result
		}
		addr, req, err := ParseArgs(ints)
		if err != nil {
			b.Adjuster.Logger.Error("adjust_brightness", zap.Ints("args", ints), zap.Error(err))
			return result
		}
		out, err := b.AdjustBrightness(addr, req)
		if err != nil {
			return result
		}
		mem := memory()
		if mem.IsUndefined() || mem.IsNull() {
			b.Adjuster.Logger.Error("adjust_brightness", zap.String("error", "memory not attached"))
			return result
		}
		ctor := uint8Array
		if out.Depth == pixbright.Depth16 {
			ctor = uint16Array
		}
		result.Set(OutputField, ctor.New(mem.Get("buffer"), int(out.Addr), out.Len))
		return result
	}))

	target.Set("_malloc", js.FuncOf(func(_ js.Value, args []js.Value) any {
		ints, ok := toInts(args)
		if !ok || len(ints) < 1 {
			return 0
		}
		addr, err := b.Malloc(ints[0])
		if err != nil {
			b.Adjuster.Logger.Error("_malloc", zap.Int("size", ints[0]), zap.Error(err))
			return 0
		}
		return int(addr)
	}))

	target.Set("_free", js.FuncOf(func(_ js.Value, args []js.Value) any {
		ints, ok := toInts(args)
		if !ok || len(ints) < 1 {
			return nil
		}
		if err := b.Free(uintptr(ints[0])); err != nil {
			b.Adjuster.Logger.Warn("_free", zap.Int("addr", ints[0]), zap.Error(err))
		}
		return nil
	}))
}

func toInts(args []js.Value) ([]int, bool) {
	ints := make([]int, len(args))
	for i, arg := range args {
		if arg.Type() != js.TypeNumber {
			return nil, false
		}
		ints[i] = arg.Int()
	}
	return ints, true
}
