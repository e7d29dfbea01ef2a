package frame

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-frame/dsp/core"
)

// Adapter drives one node: it turns block-sized Process calls into one
// implementation call per frame.
//
// Process must be called serially by a single host thread. HandleMessage and
// Listen may run on any goroutine.
type Adapter struct {
	mu sync.Mutex

	cfg         config
	log         *zap.Logger
	descriptors []ParameterDescriptor

	ctx        *Context
	dispatch   dispatcher
	step       func(ctx *Context) Output
	arate      []automation
	sampleRate float64

	done     atomic.Bool
	notified atomic.Bool
	failed   error
}

// New creates a node for impl. port receives the node's outbound control
// messages and may be nil.
func New(impl Implementation, port Port, opts ...Option) *Adapter {
	cfg := applyOptions(opts)
	descriptors := resolveDescriptors(impl, cfg)

	return &Adapter{
		cfg:         cfg,
		log:         cfg.logger,
		descriptors: descriptors,
		ctx:         newContext(cfg, descriptors, port),
		dispatch:    dispatcher{impl: impl},
		arate:       make([]automation, 0, len(descriptors)),
		sampleRate:  cfg.proc.SampleRate,
	}
}

// SetSampleRate updates the sample rate reported in Context.Env from the next
// block on.
func (a *Adapter) SetSampleRate(sampleRate float64) {
	if sampleRate > 0 {
		a.sampleRate = sampleRate
	}
}

// SampleRate returns the sample rate the next block will report.
func (a *Adapter) SampleRate() float64 {
	return a.sampleRate
}

// Context returns the node's frame context. It is only valid to read between
// Process calls.
func (a *Adapter) Context() *Context {
	return a.ctx
}

// Kind reports the call contract of the node's implementation.
func (a *Adapter) Kind() Kind {
	return a.dispatch.impl.kind
}

// ParameterDescriptors returns the descriptors the node was built with.
func (a *Adapter) ParameterDescriptors() []ParameterDescriptor {
	return a.descriptors
}

// Done reports whether the node has terminated.
func (a *Adapter) Done() bool {
	return a.done.Load()
}

// Process runs one block.
//
// in holds zero or more input channels (none when disconnected) and out the
// output channels, all of the block's length. params maps each parameter to
// either one value for the whole block or one value per frame. The output
// channel count is taken from out on every call.
//
// Each frame's Output is fitted to out: a sequence at least as long as out is
// copied positionally, a shorter sequence broadcasts its first entry, a scalar
// is broadcast.
//
// Process returns whether the host should keep calling. It returns false
// without error when the implementation finishes, and ErrContractViolation
// for any call after that.
func (a *Adapter) Process(in, out [][]float64, params map[string][]float64) (bool, error) {
	if a.done.Load() {
		a.notifyDone()
		return false, ErrContractViolation
	}

	if a.failed != nil {
		return false, fmt.Errorf("%w: %w", ErrContractViolation, a.failed)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ctx := a.ctx

	a.arate = a.arate[:0]
	for name, values := range params {
		if len(values) == 0 {
			continue
		}

		ctx.Params[name] = values[0]
		if len(values) != 1 {
			a.arate = append(a.arate, automation{name: name, values: values})
		}
	}

	ctx.Env.OutputChannels = len(out)
	ctx.Env.SampleRate = a.sampleRate
	ctx.Input = core.EnsureLen(ctx.Input, len(in))

	frames := blockFrames(in, out, a.cfg.proc.BlockSize)
	for i := 0; i < frames; i++ {
		if a.done.Load() {
			return false, nil
		}

		for _, p := range a.arate {
			if i < len(p.values) {
				ctx.Params[p.name] = p.values[i]
			}
		}

		for ch, samples := range in {
			if i < len(samples) {
				ctx.Input[ch] = samples[i]
			} else {
				ctx.Input[ch] = 0
			}
		}

		var res Output
		if a.step != nil {
			res = a.step(ctx)
		} else {
			var err error
			res, err = a.resolve()
			if err != nil {
				return false, err
			}
		}

		if res.Done {
			a.finish()
			return false, nil
		}

		res.writeTo(out, i)
	}

	return a.keepAlive(in), nil
}

// HandleMessage delivers one inbound control message. The string "stop" in
// any letter case terminates the node and releases coroutine state. Every
// message, stop included, is then passed to the WithOnMessage listener.
//
// HandleMessage must not be called from inside an implementation.
func (a *Adapter) HandleMessage(msg any) {
	if s, ok := msg.(string); ok && strings.EqualFold(s, MessageStop) {
		if !a.done.Swap(true) {
			a.log.Debug("frame: stop received", zap.Stringer("kind", a.dispatch.impl.kind))
		}

		a.mu.Lock()
		a.cleanup()
		a.mu.Unlock()
	}

	if a.cfg.onMessage != nil {
		a.cfg.onMessage(msg)
	}
}

// Listen feeds messages to HandleMessage until ctx is cancelled or messages
// is closed.
func (a *Adapter) Listen(ctx context.Context, messages <-chan any) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			a.HandleMessage(msg)
		}
	}
}

func (a *Adapter) resolve() (Output, error) {
	res, err := a.dispatch.resolve(a.ctx)
	if err != nil {
		a.failed = err
		a.log.Error("frame: implementation rejected", zap.Error(err))

		return Output{}, err
	}

	a.step = a.dispatch.step
	a.log.Debug("frame: implementation resolved",
		zap.Stringer("kind", a.dispatch.impl.kind),
		zap.Int("outputChannels", a.ctx.Env.OutputChannels),
		zap.Float64("sampleRate", a.ctx.Env.SampleRate),
	)

	return res, nil
}

// finish handles completion reported by the implementation. Caller holds mu.
func (a *Adapter) finish() {
	a.done.Store(true)
	a.cleanup()
	a.notifyDone()
}

// cleanup releases implementation state. Caller holds mu.
func (a *Adapter) cleanup() {
	err := a.dispatch.close()
	if err != nil {
		a.log.Warn("frame: cleanup failed", zap.Error(err))
	}
}

func (a *Adapter) notifyDone() {
	if a.notified.Swap(true) {
		return
	}

	a.log.Debug("frame: done", zap.Stringer("kind", a.dispatch.impl.kind))

	if a.ctx.Port == nil {
		return
	}

	err := a.ctx.Port.PostMessage(MessageDone)
	if err != nil {
		a.log.Warn("frame: done notification dropped", zap.Error(err))
	}
}

func (a *Adapter) keepAlive(in [][]float64) bool {
	if a.cfg.processOnly && len(in) == 0 {
		return false
	}
	return true
}

func blockFrames(in, out [][]float64, fallback int) int {
	if len(out) > 0 {
		return len(out[0])
	}
	if len(in) > 0 {
		return len(in[0])
	}
	return fallback
}
