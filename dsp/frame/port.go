package frame

import "sync"

// Control messages understood and emitted by every node.
const (
	MessageStop = "stop"
	MessageDone = "done"
)

// Port is the outbound half of a node's control channel.
type Port interface {
	PostMessage(msg any) error
}

// PortFunc adapts a function to Port.
type PortFunc func(msg any) error

// PostMessage calls f(msg).
func (f PortFunc) PostMessage(msg any) error {
	return f(msg)
}

// MessagePort is one end of an in-memory message channel. Posting never
// blocks, so a port can be used from the audio thread.
type MessagePort struct {
	mu     sync.RWMutex
	closed bool
	out    chan any
	in     chan any
}

// NewMessageChannel returns two entangled ports. A message posted on one is
// received from the other's Messages channel. Each direction buffers up to
// buffer messages.
func NewMessageChannel(buffer int) (*MessagePort, *MessagePort) {
	if buffer < 1 {
		buffer = 1
	}
	ab := make(chan any, buffer)
	ba := make(chan any, buffer)

	return &MessagePort{out: ab, in: ba}, &MessagePort{out: ba, in: ab}
}

// PostMessage queues msg for the peer. It returns ErrPortFull instead of
// waiting when the peer has not drained its queue.
func (p *MessagePort) PostMessage(msg any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	select {
	case p.out <- msg:
		return nil
	default:
		return ErrPortFull
	}
}

// Messages returns the channel of messages posted by the peer. It is closed
// when the peer closes.
func (p *MessagePort) Messages() <-chan any {
	return p.in
}

// Close stops the outbound direction. The peer's Messages channel is closed
// after it has been drained.
func (p *MessagePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.out)

	return nil
}
