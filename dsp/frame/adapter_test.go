package frame

import (
	"context"
	"errors"
	"iter"
	"reflect"
	"testing"

	"github.com/cwbudde/algo-frame/internal/testutil"
)

func TestProcessPureBroadcastsInput(t *testing.T) {
	t.Parallel()

	a := New(Pure(passthrough), nil)
	in := testutil.Bus(1, testBlock, 0.5)
	out := testutil.Bus(2, testBlock, 0)

	keep, err := a.Process(in, out, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !keep {
		t.Fatal("expected keep-alive")
	}

	testutil.RequireConstant(t, out, 0.5)
}

func TestProcessOutputShaping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  Output
		want []float64
	}{
		{name: "longer sequence", out: Frame([]float64{0.1, 0.2, 0.3}), want: []float64{0.1, 0.2}},
		{name: "exact sequence", out: Frame([]float64{0.4, 0.5}), want: []float64{0.4, 0.5}},
		{name: "mono fallback", out: Frame([]float64{0.1}), want: []float64{0.1, 0.1}},
		{name: "empty sequence", out: Frame(nil), want: []float64{0, 0}},
		{name: "scalar", out: Sample(-0.7), want: []float64{-0.7, -0.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := New(Pure(func(*Context) Output { return tt.out }), nil)
			out := testutil.Bus(2, testBlock, 9)

			_, err := a.Process(nil, out, nil)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}

			for ch := range out {
				for i, v := range out[ch] {
					if v != tt.want[ch] {
						t.Fatalf("channel %d frame %d = %v, want %v", ch, i, v, tt.want[ch])
					}
				}
			}
		})
	}
}

func TestProcessZeroOutputChannels(t *testing.T) {
	t.Parallel()

	calls := 0
	a := New(Pure(func(*Context) Output {
		calls++
		return Frame([]float64{1, 2})
	}), nil, WithBlockSize(16))

	_, err := a.Process(nil, nil, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if calls != 16 {
		t.Fatalf("calls = %d, want block size 16", calls)
	}
}

func TestEnvTracksLiveOutputChannels(t *testing.T) {
	t.Parallel()

	var seen []int
	a := New(Pure(func(ctx *Context) Output {
		seen = append(seen, ctx.Env.OutputChannels)
		return Sample(0)
	}), nil, WithOutputChannels(2))

	if got := a.Context().Env.OutputChannels; got != 2 {
		t.Fatalf("construction env = %d, want 2", got)
	}

	for _, channels := range []int{3, 1} {
		seen = seen[:0]
		out := testutil.Bus(channels, testBlock, 0)

		_, err := a.Process(nil, out, nil)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}

		for i, got := range seen {
			if got != channels {
				t.Fatalf("frame %d saw %d output channels, want %d", i, got, channels)
			}
		}
	}
}

func TestSetSampleRate(t *testing.T) {
	t.Parallel()

	var rate float64
	a := New(Pure(func(ctx *Context) Output {
		rate = ctx.Env.SampleRate
		return Sample(0)
	}), nil, WithSampleRate(44100))

	_, _ = a.Process(nil, testutil.Bus(1, testBlock, 0), nil)
	if rate != 44100 {
		t.Fatalf("rate = %v, want 44100", rate)
	}

	a.SetSampleRate(96000)
	a.SetSampleRate(-1)

	_, _ = a.Process(nil, testutil.Bus(1, testBlock, 0), nil)
	if rate != 96000 {
		t.Fatalf("rate = %v, want 96000", rate)
	}
}

func TestCoroutineFirstFrameIsSilent(t *testing.T) {
	t.Parallel()

	r := &countingResumer{}
	a := New(Coroutine(func(*Context) Resumer { return r }), nil)

	out := testutil.Bus(3, 1, 9)

	_, err := a.Process(nil, out, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	testutil.RequireConstant(t, out, 0)

	if r.resumes != 0 {
		t.Fatalf("resumed %d times before frame 1", r.resumes)
	}

	out = testutil.Bus(1, testBlock, 0)

	_, err = a.Process(nil, out, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, out[0], testutil.Ramp(1, 1, testBlock), 0)
}

func TestCoroutineDelaysOutputByOneFrame(t *testing.T) {
	t.Parallel()

	r := &countingResumer{}
	a := New(Coroutine(func(*Context) Resumer { return r }), nil)
	out := testutil.Bus(1, testBlock, 0)

	_, err := a.Process(nil, out, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, out[0], testutil.Ramp(0, 1, testBlock), 0)

	if r.resumes != testBlock-1 {
		t.Fatalf("resumes = %d, want %d", r.resumes, testBlock-1)
	}
}

func TestGeneratorExhaustionFinishes(t *testing.T) {
	t.Parallel()

	port := &recordingPort{}
	a := New(Generator(func(*Context) iter.Seq[Output] {
		return func(yield func(Output) bool) {
			for _, v := range []float64{1, 2, 3} {
				if !yield(Sample(v)) {
					return
				}
			}
		}
	}), port)

	out := testutil.Bus(1, testBlock, -1)

	keep, err := a.Process(nil, out, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if keep {
		t.Fatal("expected finished node to stop")
	}

	testutil.RequireSliceNearlyEqual(t, out[0], []float64{0, 1, 2, 3, -1, -1, -1, -1}, 0)

	if n := port.count(MessageDone); n != 1 {
		t.Fatalf("done posted %d times, want 1", n)
	}

	_, err = a.Process(nil, out, nil)
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("err = %v, want ErrContractViolation", err)
	}

	if n := port.count(MessageDone); n != 1 {
		t.Fatalf("done posted %d times after second call, want 1", n)
	}
}

func TestParameterAutomation(t *testing.T) {
	t.Parallel()

	a := New(Pure(func(ctx *Context) Output {
		return Frame([]float64{ctx.Params["gain"], ctx.Params["freq"]})
	}), nil)

	out := testutil.Bus(2, testBlock, 0)
	params := map[string][]float64{
		"gain": testutil.Ramp(0, 1, testBlock),
		"freq": {440},
	}

	_, err := a.Process(nil, out, params)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, out[0], testutil.Ramp(0, 1, testBlock), 0)
	testutil.RequireSliceNearlyEqual(t, out[1], testutil.DC(440, testBlock), 0)

	// The classification is per block: gain turns constant, freq per frame.
	params = map[string][]float64{
		"gain": {0.5},
		"freq": testutil.Ramp(100, 10, testBlock),
	}

	_, err = a.Process(nil, out, params)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, out[0], testutil.DC(0.5, testBlock), 0)
	testutil.RequireSliceNearlyEqual(t, out[1], testutil.Ramp(100, 10, testBlock), 0)

	// Parameters missing from a block keep their last value.
	_, err = a.Process(nil, out, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, out[0], testutil.DC(0.5, testBlock), 0)
	testutil.RequireSliceNearlyEqual(t, out[1], testutil.DC(170, testBlock), 0)
}

func TestDescriptorDefaultsSeedParams(t *testing.T) {
	t.Parallel()

	var seen float64
	impl := Stateful(func(ctx *Context) (any, error) {
		seen = ctx.Params["cutoff"]
		return &counter{}, nil
	})

	a := New(impl, nil, WithParameterDescriptors(ParameterDescriptor{Name: "cutoff", DefaultValue: 1000}))

	_, err := a.Process(nil, testutil.Bus(1, testBlock, 0), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if seen != 1000 {
		t.Fatalf("constructor saw cutoff %v, want default 1000", seen)
	}
}

func TestInputTracksLiveChannelCount(t *testing.T) {
	t.Parallel()

	var widths []int
	a := New(Pure(func(ctx *Context) Output {
		widths = append(widths, len(ctx.Input))
		return Sample(ctx.InputAt(1))
	}), nil, WithInputChannels(1))

	for _, channels := range []int{2, 3, 0, 1} {
		widths = widths[:0]
		in := testutil.Bus(channels, testBlock, 0.25)
		out := testutil.Bus(1, testBlock, 9)

		_, err := a.Process(in, out, nil)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}

		for i, w := range widths {
			if w != channels {
				t.Fatalf("%d channels: frame %d saw %d inputs", channels, i, w)
			}
		}

		want := 0.0
		if channels > 1 {
			want = 0.25
		}
		testutil.RequireConstant(t, out, want)
	}
}

// identityRecorder checks that the context and its containers never change.
type identityRecorder struct {
	ctx      *Context
	params   uintptr
	input    *float64
	mismatch int
}

func (p *identityRecorder) Next(ctx *Context) Output {
	if ctx != p.ctx ||
		reflect.ValueOf(ctx.Params).Pointer() != p.params ||
		&ctx.Input[0] != p.input {
		p.mismatch++
	}

	return Sample(ctx.Input[0])
}

func TestContextIdentityIsStable(t *testing.T) {
	t.Parallel()

	rec := &identityRecorder{}
	a := New(Stateful(func(ctx *Context) (any, error) {
		rec.ctx = ctx
		rec.params = reflect.ValueOf(ctx.Params).Pointer()
		rec.input = &ctx.Input[0]

		return rec, nil
	}), nil, WithInputChannels(2))

	for block := 0; block < 4; block++ {
		params := map[string][]float64{"x": testutil.Ramp(float64(block), 1, testBlock)}

		_, err := a.Process(testutil.Bus(1, testBlock, 1), testutil.Bus(2, testBlock, 0), params)
		if err != nil {
			t.Fatalf("block %d: %v", block, err)
		}
	}

	if rec.mismatch != 0 {
		t.Fatalf("context identity changed on %d frames", rec.mismatch)
	}

	if a.Context() != rec.ctx {
		t.Fatal("Context() differs from the context handed to the implementation")
	}
}

func TestCompletionStopsProcessing(t *testing.T) {
	t.Parallel()

	port := &recordingPort{}
	c := &counter{limit: 5}
	built := 0
	a := New(Stateful(func(*Context) (any, error) {
		built++
		return c, nil
	}), port)

	out := testutil.Bus(2, testBlock, -1)

	keep, err := a.Process(nil, out, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if keep || !a.Done() {
		t.Fatalf("keep = %v, done = %v; want false, true", keep, a.Done())
	}

	want := []float64{1, 2, 3, 4, 5, -1, -1, -1}
	testutil.RequireSliceNearlyEqual(t, out[0], want, 0)
	testutil.RequireSliceNearlyEqual(t, out[1], want, 0)

	if c.closed != 1 {
		t.Fatalf("closed %d times, want 1", c.closed)
	}

	for i := 0; i < 2; i++ {
		_, err = a.Process(nil, out, nil)
		if !errors.Is(err, ErrContractViolation) {
			t.Fatalf("call %d: err = %v, want ErrContractViolation", i, err)
		}
	}

	if built != 1 {
		t.Fatalf("constructor ran %d times, want 1", built)
	}

	if c.frames != 5 {
		t.Fatalf("frames = %d, want 5", c.frames)
	}

	if n := port.count(MessageDone); n != 1 {
		t.Fatalf("done posted %d times, want 1", n)
	}
}

func TestStopTerminatesCoroutine(t *testing.T) {
	t.Parallel()

	for _, msg := range []string{"stop", "STOP", "Stop", "sToP"} {
		t.Run(msg, func(t *testing.T) {
			t.Parallel()

			port := &recordingPort{}
			r := &countingResumer{}

			var forwarded []any
			a := New(Coroutine(func(*Context) Resumer { return r }), port,
				WithOnMessage(func(m any) { forwarded = append(forwarded, m) }))

			out := testutil.Bus(1, testBlock, 0)

			_, err := a.Process(nil, out, nil)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}

			a.HandleMessage(msg)
			a.HandleMessage(msg)

			if !a.Done() {
				t.Fatal("node not done after stop")
			}

			if r.closed != 1 {
				t.Fatalf("cleanup ran %d times, want 1", r.closed)
			}

			if len(forwarded) != 2 || forwarded[0] != msg {
				t.Fatalf("forwarded = %v, want the stop message twice", forwarded)
			}

			_, err = a.Process(nil, out, nil)
			if !errors.Is(err, ErrContractViolation) {
				t.Fatalf("err = %v, want ErrContractViolation", err)
			}

			if n := port.count(MessageDone); n != 1 {
				t.Fatalf("done posted %d times, want 1", n)
			}
		})
	}
}

func TestStopStopsGenerator(t *testing.T) {
	t.Parallel()

	stopped := false
	a := New(Generator(func(*Context) iter.Seq[Output] {
		return func(yield func(Output) bool) {
			defer func() { stopped = true }()
			for {
				if !yield(Sample(1)) {
					return
				}
			}
		}
	}), nil)

	_, err := a.Process(nil, testutil.Bus(1, testBlock, 0), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	a.HandleMessage("stop")

	if !stopped {
		t.Fatal("generator was not stopped")
	}
}

func TestStopBeforeFirstBlock(t *testing.T) {
	t.Parallel()

	started := false
	a := New(Coroutine(func(*Context) Resumer {
		started = true
		return &countingResumer{}
	}), nil)

	a.HandleMessage("stop")

	_, err := a.Process(nil, testutil.Bus(1, testBlock, 0), nil)
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("err = %v, want ErrContractViolation", err)
	}

	if started {
		t.Fatal("coroutine started after stop")
	}
}

func TestStopObservedAtFrameBoundary(t *testing.T) {
	t.Parallel()

	var a *Adapter
	frames := 0
	a = New(Pure(func(*Context) Output {
		frames++
		if frames == 3 {
			// Simulates a stop delivered by another goroutine mid-block.
			a.done.Store(true)
		}
		return Sample(1)
	}), nil)

	out := testutil.Bus(1, testBlock, 0)

	keep, err := a.Process(nil, out, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if keep {
		t.Fatal("expected stop")
	}

	testutil.RequireSliceNearlyEqual(t, out[0], []float64{1, 1, 1, 0, 0, 0, 0, 0}, 0)
}

func TestOnMessageForwarding(t *testing.T) {
	t.Parallel()

	var got []any
	a := New(Pure(passthrough), nil, WithOnMessage(func(m any) { got = append(got, m) }))

	a.HandleMessage("hello")
	a.HandleMessage(42)
	a.HandleMessage("stopping")

	if a.Done() {
		t.Fatal("non-stop message terminated the node")
	}

	if len(got) != 3 || got[0] != "hello" || got[1] != 42 || got[2] != "stopping" {
		t.Fatalf("forwarded = %v", got)
	}
}

func TestListen(t *testing.T) {
	t.Parallel()

	var got []any
	a := New(Pure(passthrough), nil, WithOnMessage(func(m any) { got = append(got, m) }))

	messages := make(chan any, 2)
	messages <- "hello"
	messages <- "STOP"
	close(messages)

	err := a.Listen(context.Background(), messages)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	if !a.Done() || len(got) != 2 {
		t.Fatalf("done = %v, forwarded = %v", a.Done(), got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = a.Listen(ctx, make(chan any))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestInitializationErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	tests := []struct {
		name string
		impl Implementation
		kind Kind
	}{
		{name: "zero", impl: Implementation{}, kind: KindNone},
		{name: "nil pure", impl: Pure(nil), kind: KindPure},
		{name: "nil constructor", impl: Stateful(nil), kind: KindStateful},
		{
			name: "no frame advance",
			impl: Stateful(func(*Context) (any, error) { return notAdvancer{}, nil }),
			kind: KindStateful,
		},
		{
			name: "constructor error",
			impl: Stateful(func(*Context) (any, error) { return nil, boom }),
			kind: KindStateful,
		},
		{name: "nil start", impl: Coroutine(nil), kind: KindCoroutine},
		{
			name: "nil resumer",
			impl: Coroutine(func(*Context) Resumer { return nil }),
			kind: KindCoroutine,
		},
		{
			name: "nil sequence",
			impl: Generator(func(*Context) iter.Seq[Output] { return nil }),
			kind: KindCoroutine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			port := &recordingPort{}
			a := New(tt.impl, port)
			out := testutil.Bus(1, testBlock, 0)

			_, err := a.Process(nil, out, nil)
			if !errors.Is(err, ErrInitialization) {
				t.Fatalf("err = %v, want ErrInitialization", err)
			}

			var initErr *InitError
			if !errors.As(err, &initErr) || initErr.Kind != tt.kind {
				t.Fatalf("err = %#v, want *InitError of kind %s", err, tt.kind)
			}

			_, err = a.Process(nil, out, nil)
			if !errors.Is(err, ErrContractViolation) || !errors.Is(err, ErrInitialization) {
				t.Fatalf("second call err = %v, want contract violation wrapping the init error", err)
			}

			if port.count(MessageDone) != 0 {
				t.Fatal("init failure posted done")
			}
		})
	}

	t.Run("constructor error is wrapped", func(t *testing.T) {
		t.Parallel()

		a := New(Stateful(func(*Context) (any, error) { return nil, boom }), nil)

		_, err := a.Process(nil, testutil.Bus(1, testBlock, 0), nil)
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	})
}

func TestProcessOnlyContinuation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		processOnly bool
		inputs      int
		want        bool
	}{
		{name: "default connected", processOnly: false, inputs: 1, want: true},
		{name: "default disconnected", processOnly: false, inputs: 0, want: true},
		{name: "process-only connected", processOnly: true, inputs: 1, want: true},
		{name: "process-only disconnected", processOnly: true, inputs: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := New(Pure(passthrough), nil, WithProcessOnly(tt.processOnly))

			keep, err := a.Process(testutil.Bus(tt.inputs, testBlock, 0), testutil.Bus(1, testBlock, 0), nil)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}

			if keep != tt.want {
				t.Fatalf("keep = %v, want %v", keep, tt.want)
			}
		})
	}
}

func TestProcessSteadyStateDoesNotAllocate(t *testing.T) {
	const block = 128

	scratch := make([]float64, 2)
	a := New(Pure(func(ctx *Context) Output {
		scratch[0] = ctx.InputAt(0) * ctx.Params["gain"]
		scratch[1] = ctx.InputAt(1) * ctx.Params["gain"]
		return Frame(scratch)
	}), nil, WithParameterDescriptors(
		ParameterDescriptor{Name: "gain", DefaultValue: 1},
		ParameterDescriptor{Name: "pan", DefaultValue: 0},
	))

	in := testutil.Bus(2, block, 0.5)
	out := testutil.Bus(2, block, 0)
	params := map[string][]float64{
		"gain": testutil.Ramp(0, 0.01, block),
		"pan":  {0.25},
	}

	_, err := a.Process(in, out, params)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = a.Process(in, out, params)
	})
	if allocs != 0 {
		t.Fatalf("Process allocated %.1f times per block, want 0", allocs)
	}
}

func TestAdapterAccessors(t *testing.T) {
	t.Parallel()

	descs := []ParameterDescriptor{{Name: "gain", MinValue: 0, MaxValue: 1, DefaultValue: 0.5}}
	a := New(Pure(passthrough), nil, WithParameterDescriptors(descs...), WithSampleRate(22050))

	if a.Kind() != KindPure {
		t.Fatalf("Kind = %s, want pure", a.Kind())
	}

	if a.SampleRate() != 22050 {
		t.Fatalf("SampleRate = %v, want 22050", a.SampleRate())
	}

	if got := a.ParameterDescriptors(); len(got) != 1 || got[0] != descs[0] {
		t.Fatalf("ParameterDescriptors = %v", got)
	}

	if a.Context().Param("gain") != 0.5 {
		t.Fatalf("gain = %v, want 0.5", a.Context().Param("gain"))
	}
}

func TestProcessorOptionsLayer(t *testing.T) {
	t.Parallel()

	d, err := Define(Pure(passthrough), WithSampleRate(44100), WithOutputChannels(1))
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	a := d.New(nil, WithSampleRate(0), WithOutputChannels(3), WithInputChannels(-1))

	if a.SampleRate() != 44100 {
		t.Fatalf("SampleRate = %v, want 44100", a.SampleRate())
	}

	env := a.Context().Env
	if env.OutputChannels != 3 || env.SampleRate != 44100 {
		t.Fatalf("Env = %+v, want 3 channels at 44100", env)
	}

	if got := cap(a.Context().Input); got != 2 {
		t.Fatalf("cap(Input) = %d, want default 2", got)
	}
}
