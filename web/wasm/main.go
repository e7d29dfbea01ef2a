//go:build js && wasm

// Command wasm exposes the demo processors to an AudioWorklet as the global
// AlgoFrame object. Failures surface in the host as thrown Error values named
// ContractViolation or InitializationError.
package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/cwbudde/algo-frame/dsp/core"
	"github.com/cwbudde/algo-frame/dsp/frame"
	"github.com/cwbudde/algo-frame/internal/demo"
)

var (
	registry *frame.Registry
	node     *frame.Adapter
	api      js.Value
	funcs    []js.Func

	in     [][]float64
	out    [][]float64
	params = map[string][]float64{}
)

// rethrow wraps an exported Go function so an Error it returns is thrown on
// the JavaScript side. A panic inside a Go callback would abort the program.
var rethrow = js.Global().Get("Function").New("fn",
	"return function() { const r = fn.apply(this, arguments); if (r instanceof Error) { throw r; } return r; };")

func main() {
	reg, err := demo.NewRegistry()
	if err != nil {
		panic(err)
	}

	js.Global().Set("AlgoFrame", newAPI(reg))
	select {}
}

func newAPI(reg *frame.Registry) js.Value {
	registry = reg
	node = nil
	api = js.Global().Get("Object").New()

	api.Set("processors", export(func(args []js.Value) any {
		names := registry.Names()
		arr := js.Global().Get("Array").New(len(names))
		for i, name := range names {
			arr.SetIndex(i, name)
		}
		return arr
	}))

	api.Set("parameterDescriptors", export(parameterDescriptors))
	api.Set("init", export(initNode))
	api.Set("process", export(process))

	api.Set("postMessage", export(func(args []js.Value) any {
		if node == nil || len(args) < 1 {
			return js.Null()
		}

		msg := args[0]
		if msg.Type() == js.TypeString {
			node.HandleMessage(msg.String())
		} else {
			node.HandleMessage(msg)
		}
		return js.Null()
	}))

	return api
}

// parameterDescriptors returns the descriptors of the named processor, or of
// the current node when no name is given.
func parameterDescriptors(args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		if node == nil {
			return hostError(errors.New("parameterDescriptors: processor name required"))
		}
		return js.ValueOf(frame.AudioParamDescriptors(node.ParameterDescriptors()))
	}

	def := registry.Lookup(args[0].String())
	if def == nil {
		return hostError(fmt.Errorf("parameterDescriptors: unknown processor %q", args[0].String()))
	}
	return js.ValueOf(frame.AudioParamDescriptors(def.ParameterDescriptors()))
}

// initNode handles init(name, sampleRate, channels, options). options may set
// processOnly and an onmessage listener for inbound control messages.
func initNode(args []js.Value) any {
	if len(args) < 1 {
		return hostError(errors.New("init: processor name required"))
	}

	def := registry.Lookup(args[0].String())
	if def == nil {
		return hostError(fmt.Errorf("init: unknown processor %q", args[0].String()))
	}

	sr := 48000.0
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		sr = args[1].Float()
	}
	channels := 2
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		channels = args[2].Int()
	}

	opts := []frame.Option{
		frame.WithSampleRate(sr),
		frame.WithOutputChannels(channels),
	}
	if len(args) > 3 && args[3].Type() == js.TypeObject {
		opts = append(opts, nodeOptions(args[3])...)
	}

	node = def.New(frame.PortFunc(postToHost), opts...)
	return js.Null()
}

func nodeOptions(obj js.Value) []frame.Option {
	var opts []frame.Option

	if v := obj.Get("processOnly"); v.Type() == js.TypeBoolean {
		opts = append(opts, frame.WithProcessOnly(v.Bool()))
	}

	if cb := obj.Get("onmessage"); cb.Type() == js.TypeFunction {
		opts = append(opts, frame.WithOnMessage(func(msg any) {
			cb.Invoke(msg)
		}))
	}

	return opts
}

func process(args []js.Value) any {
	if node == nil {
		return hostError(errors.New("process: init has not been called"))
	}
	if len(args) < 2 {
		return hostError(errors.New("process: inputs and outputs required"))
	}

	in = readBus(in, args[0])
	out = sizeBus(out, args[1])

	for name := range params {
		params[name] = params[name][:0]
	}
	if len(args) > 2 && args[2].Type() == js.TypeObject {
		readParams(args[2])
	}

	keep, err := node.Process(in, out, params)
	if err != nil {
		return hostError(err)
	}

	writeBus(args[1], out)
	return keep
}

// hostError converts err into a JavaScript Error for rethrow.
func hostError(err error) js.Value {
	e := js.Global().Get("Error").New(err.Error())

	switch {
	case errors.Is(err, frame.ErrContractViolation):
		e.Set("name", "ContractViolation")
	case errors.Is(err, frame.ErrInitialization):
		e.Set("name", "InitializationError")
	}

	return e
}

// postToHost delivers node notifications to AlgoFrame.onmessage.
func postToHost(msg any) error {
	cb := api.Get("onmessage")
	if cb.Type() == js.TypeFunction {
		cb.Invoke(msg)
	}
	return nil
}

// readBus copies an array of Float32Array channels. An empty or missing
// array means the input is disconnected.
func readBus(bus [][]float64, v js.Value) [][]float64 {
	if v.Type() != js.TypeObject || v.Length() == 0 {
		return nil
	}

	channels := v.Length()
	bus = core.EnsureBus(bus, channels, v.Index(0).Length())
	for ch := 0; ch < channels; ch++ {
		src := v.Index(ch)
		bus[ch] = core.EnsureLen(bus[ch], src.Length())
		for i := range bus[ch] {
			bus[ch][i] = src.Index(i).Float()
		}
	}
	return bus
}

func sizeBus(bus [][]float64, v js.Value) [][]float64 {
	if v.Type() != js.TypeObject || v.Length() == 0 {
		return bus[:0]
	}
	return core.EnsureBus(bus, v.Length(), v.Index(0).Length())
}

func writeBus(v js.Value, bus [][]float64) {
	for ch, samples := range bus {
		dst := v.Index(ch)
		for i, s := range samples {
			dst.SetIndex(i, s)
		}
	}
}

// readParams copies {name: Float32Array} automation into params.
func readParams(obj js.Value) {
	keys := js.Global().Get("Object").Call("keys", obj)
	for i := 0; i < keys.Length(); i++ {
		name := keys.Index(i).String()
		values := obj.Get(name)

		buf := core.EnsureLen(params[name], values.Length())
		for j := range buf {
			buf[j] = values.Index(j).Float()
		}
		params[name] = buf
	}
}

func export(fn func([]js.Value) any) js.Value {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return rethrow.Invoke(f)
}
