package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/cwbudde/algo-frame/dsp/frame"
	"github.com/cwbudde/algo-frame/internal/config"
	"github.com/cwbudde/algo-frame/internal/demo"
	"github.com/cwbudde/algo-frame/internal/testutil"
)

type donePort struct {
	mu   sync.Mutex
	done int
}

func (p *donePort) PostMessage(msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg == frame.MessageDone {
		p.done++
	}

	return nil
}

func session(processor string, blocks, blockSize int) *config.Session {
	s := config.Default()
	s.Processor = processor
	s.Blocks = blocks
	s.BlockSize = blockSize

	return &s
}

func newNode(t *testing.T, s *config.Session, port frame.Port) *frame.Adapter {
	t.Helper()

	r, err := demo.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	node, err := NewNode(r, s, port)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}

	return node
}

func TestRunSine(t *testing.T) {
	t.Parallel()

	s := session(demo.NameSine, 4, 128)
	s.Params = map[string]float64{"frequency": 1000, "amplitude": 0.5}

	res, err := Run(context.Background(), newNode(t, s, nil), s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Blocks != 4 || res.Finished || res.Stopped || res.Released {
		t.Fatalf("unexpected result flags %+v", res)
	}
	if len(res.Channels) != 2 || res.Frames() != 512 {
		t.Fatalf("got %d channels of %d frames", len(res.Channels), res.Frames())
	}

	testutil.RequireSliceNearlyEqual(t, res.Channels[1], res.Channels[0], 0)

	want := testutil.DeterministicSine(1000, 48000, 0.5, 512)
	testutil.RequireSliceNearlyEqual(t, res.Channels[0], want, 1e-9)
}

func TestRunFinishes(t *testing.T) {
	t.Parallel()

	s := session(demo.NameClick, 10, 8)
	s.OutputChannels = 1
	s.Params = map[string]float64{"bpm": s.SampleRate * 60 / 4, "beats": 2}

	port := &donePort{}

	res, err := Run(context.Background(), newNode(t, s, port), s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The second click lands on frame 5; the metronome finishes on frame 6.
	if !res.Finished || res.Blocks != 1 || res.Frames() != 8 {
		t.Fatalf("result %+v, want finished within the first block", res)
	}

	want := []float64{0, 1, 0, 0, 0, 1, 0, 0}
	testutil.RequireSliceNearlyEqual(t, res.Channels[0], want, 0)

	if port.done != 1 {
		t.Fatalf("done posted %d times, want 1", port.done)
	}
}

func TestRunStopAfter(t *testing.T) {
	t.Parallel()

	s := session(demo.NameSine, 10, 16)
	s.StopAfterBlocks = 3

	port := &donePort{}
	node := newNode(t, s, port)

	res, err := Run(context.Background(), node, s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !res.Stopped || res.Blocks != 3 || res.Frames() != 48 {
		t.Fatalf("result %+v, want stopped after 3 blocks", res)
	}
	if !node.Done() {
		t.Fatal("node not terminated")
	}
	if port.done != 1 {
		t.Fatalf("done posted %d times, want 1", port.done)
	}
}

func TestRunProcessOnlyReleased(t *testing.T) {
	t.Parallel()

	s := session(demo.NameGain, 10, 16)
	s.ProcessOnly = true

	res, err := Run(context.Background(), newNode(t, s, nil), s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !res.Released || res.Blocks != 1 {
		t.Fatalf("result %+v, want released after 1 block", res)
	}
}

func TestRunInputAndAutomation(t *testing.T) {
	t.Parallel()

	s := session(demo.NameGain, 2, 4)
	s.InputChannels = 1
	s.OutputChannels = 1
	s.ProcessOnly = true
	s.Automation = []config.Ramp{{Name: "gain", From: 0, To: 7}}

	input := [][]float64{testutil.DC(0.5, 6)}

	res, err := Run(context.Background(), newNode(t, s, nil), s, WithInput(input))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Released || res.Blocks != 2 {
		t.Fatalf("result %+v, want 2 live blocks", res)
	}

	// The ramp reaches 7 on the last frame; input is silent past frame 6.
	want := []float64{0, 0.5, 1, 1.5, 2, 2.5, 0, 0}
	testutil.RequireSliceNearlyEqual(t, res.Channels[0], want, 1e-12)
}

func TestRunRampOverridesConstant(t *testing.T) {
	t.Parallel()

	s := session(demo.NameGain, 1, 3)
	s.InputChannels = 1
	s.OutputChannels = 1
	s.Params = map[string]float64{"gain": 4}
	s.Automation = []config.Ramp{{Name: "gain", From: 1, To: 2}}

	res, err := Run(context.Background(), newNode(t, s, nil), s, WithInput([][]float64{testutil.DC(1, 3)}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, res.Channels[0], []float64{1, 1.5, 2}, 1e-12)
}

func TestAutomationFlatRamp(t *testing.T) {
	t.Parallel()

	s := session(demo.NameGain, 2, 4)
	s.Params = map[string]float64{"gain": 2}
	s.Automation = []config.Ramp{{Name: "gain", From: 0.25, To: 0.25}}

	a := NewAutomation(s)

	for _, start := range []int{0, 4} {
		block := a.Block(start, 4)
		testutil.RequireSliceNearlyEqual(t, block["gain"], testutil.DC(0.25, 4), 0)
	}

	block := a.Block(8, 2)
	if len(block["gain"]) != 2 {
		t.Fatalf("len = %d, want 2", len(block["gain"]))
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	s := session(demo.NameSine, 4, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, newNode(t, s, nil), s)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunInitFailure(t *testing.T) {
	t.Parallel()

	s := session("broken", 4, 8)
	node := frame.New(frame.Implementation{}, nil, NodeOptions(s)...)

	_, err := Run(context.Background(), node, s)
	if !errors.Is(err, frame.ErrInitialization) {
		t.Fatalf("err = %v, want ErrInitialization", err)
	}
	if !strings.HasPrefix(err.Error(), "render: block 0:") {
		t.Fatalf("err %q lacks block context", err)
	}
}

func TestNewNodeUnknown(t *testing.T) {
	t.Parallel()

	r, err := demo.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}

	_, err = NewNode(r, session("missing", 1, 8), nil)
	if !errors.Is(err, ErrUnknownProcessor) {
		t.Fatalf("err = %v, want ErrUnknownProcessor", err)
	}
}

func TestMixdownAndInterleave(t *testing.T) {
	t.Parallel()

	res := &Result{
		Channels:   [][]float64{{1, 1}, {0, 1}},
		SampleRate: 8000,
	}

	testutil.RequireSliceNearlyEqual(t, res.Mixdown(), []float64{0.5, 1}, 0)

	got := res.Interleaved()
	want := []float32{1, 0, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("interleaved = %v, want %v", got, want)
		}
	}

	if len((&Result{}).Mixdown()) != 0 {
		t.Fatal("empty result should mix down to nothing")
	}
}

func TestWriteWAV(t *testing.T) {
	t.Parallel()

	res := &Result{
		Channels:   [][]float64{{0.5, -0.5, 0.25}, {1, 0, -1}},
		SampleRate: 44100,
	}

	var buf bytes.Buffer
	if err := res.WriteWAV(&buf); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	data := buf.Bytes()
	if len(data) != 44+3*2*4 {
		t.Fatalf("len = %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Fatal("bad chunk ids")
	}
	if got := binary.LittleEndian.Uint16(data[20:]); got != 3 {
		t.Fatalf("format = %d, want IEEE float", got)
	}
	if got := binary.LittleEndian.Uint16(data[22:]); got != 2 {
		t.Fatalf("channels = %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:]); got != 44100 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[44+4:])); got != 1 {
		t.Fatalf("second sample = %v, want 1", got)
	}

	err := (&Result{SampleRate: 8000}).WriteWAV(&buf)
	if !errors.Is(err, ErrNoChannels) {
		t.Fatalf("err = %v, want ErrNoChannels", err)
	}
}
