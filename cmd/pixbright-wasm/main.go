//go:build js && wasm

// Command pixbright-wasm is the WebAssembly module loaded by the editor plugin.
//
//	GOOS=js GOARCH=wasm go build -o pixbright.wasm ./cmd/pixbright-wasm
//
// After go.run(instance) the host attaches the instance memory:
//
//	globalThis.pixbright.memory = instance.exports.mem
package main

import (
	"os"
	"syscall/js"

	"github.com/cshum/pixbright"
	"github.com/cshum/pixbright/arena"
	"github.com/cshum/pixbright/binding"
	"go.uber.org/zap"
)

// exportName global the functions are registered on, override with -ldflags -X
var exportName = "pixbright"

// debug enables debug logs, override with -ldflags "-X main.debug=true"
var debug = "false"

func main() {
	logger := binding.NewLogger(os.Stdout, os.Stderr, debug == "true")

	target := js.Global().Get(exportName)
	if target.IsUndefined() || target.IsNull() {
		target = js.Global().Get("Object").New()
		js.Global().Set(exportName, target)
	}
	b := binding.New(
		arena.New(arena.WithLogger(logger)),
		pixbright.NewAdjuster(
			pixbright.WithAdjusterLogger(logger),
			pixbright.WithAdjusterDebug(debug == "true"),
		),
	)
	b.Register(target, func() js.Value {
		return target.Get("memory")
	})
	target.Set("version", pixbright.Version)
	logger.Debug("registered", zap.String("export", exportName), zap.String("version", pixbright.Version))

	select {}
}
