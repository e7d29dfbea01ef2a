package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-frame/dsp/core"
	"github.com/cwbudde/algo-frame/dsp/frame"
)

// Server runs one node for an external host over a frame stream.
type Server struct {
	node     *frame.Adapter
	messages <-chan any
	dec      *FrameDecoder
	enc      *FrameEncoder
	log      *zap.Logger

	out [][]float64
}

// NewServer serves node over r and w. messages carries what the node posts
// on its port (the peer end of its message channel) and may be nil.
func NewServer(node *frame.Adapter, messages <-chan any, r io.Reader, w io.Writer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		node:     node,
		messages: messages,
		dec:      NewFrameDecoder(r),
		enc:      NewFrameEncoder(w),
		log:      log,
	}
}

// Serve handles frames until the input ends, ctx is cancelled or the stream
// breaks. Each block frame is answered by one result frame, preceded by any
// messages the node posted while processing it. Inbound message frames are
// delivered to the node's HandleMessage.
func (s *Server) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := s.dec.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("ipc: %w", err)
		}

		v, err := DecodeFrame(payload)
		if err != nil {
			if IsFatalFrameError(err) {
				return fmt.Errorf("ipc: %w", err)
			}
			s.log.Warn("ipc: frame skipped", zap.Error(err))
			continue
		}

		switch f := v.(type) {
		case *BlockRequest:
			err = s.block(f)
		case *Message:
			s.node.HandleMessage(f.Data)
			err = s.flushMessages()
		default:
			s.log.Warn("ipc: unexpected frame from host", zap.String("type", fmt.Sprintf("%T", v)))
		}

		if err != nil {
			return err
		}
	}
}

func (s *Server) block(req *BlockRequest) error {
	if req.SampleRate > 0 {
		s.node.SetSampleRate(req.SampleRate)
	}

	frames := req.Frames
	if frames <= 0 && len(req.Input) > 0 {
		frames = len(req.Input[0])
	}
	if frames <= 0 {
		frames = core.DefaultProcessorConfig().BlockSize
	}

	var in [][]float64
	if len(req.Input) > 0 {
		in = req.Input
	}

	s.out = core.EnsureBus(s.out, req.OutputChannels, frames)

	keep, err := s.node.Process(in, s.out, req.Params)

	res := &BlockResult{Type: TypeResult, Output: s.out, KeepAlive: keep}
	if err != nil {
		res.Error = err.Error()
		s.log.Debug("ipc: block failed", zap.Error(err))
	}

	if err := s.flushMessages(); err != nil {
		return err
	}

	return s.enc.WriteFrame(res)
}

// flushMessages forwards everything the node has posted so far.
func (s *Server) flushMessages() error {
	if s.messages == nil {
		return nil
	}

	for {
		select {
		case msg, ok := <-s.messages:
			if !ok {
				s.messages = nil
				return nil
			}

			data, isString := msg.(string)
			if !isString {
				data = fmt.Sprint(msg)
			}

			if err := s.enc.WriteFrame(NewMessage(data)); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
