package ipc

// Frame type discriminants.
const (
	TypeBlock   = "block"
	TypeResult  = "result"
	TypeMessage = "message"
)

// BlockRequest asks the node to process one block.
type BlockRequest struct {
	Type           string               `msgpack:"type"`
	Input          [][]float64          `msgpack:"input"`
	OutputChannels int                  `msgpack:"output_channels"`
	Frames         int                  `msgpack:"frames"`
	Params         map[string][]float64 `msgpack:"params"`
	SampleRate     float64              `msgpack:"sample_rate"`
}

// BlockResult answers a BlockRequest.
type BlockResult struct {
	Type      string      `msgpack:"type"`
	Output    [][]float64 `msgpack:"output"`
	KeepAlive bool        `msgpack:"keep_alive"`
	Error     string      `msgpack:"error,omitempty"`
}

// Message carries a control message in either direction.
type Message struct {
	Type string `msgpack:"type"`
	Data string `msgpack:"data"`
}

// NewBlockRequest returns a block frame.
func NewBlockRequest(input [][]float64, outputChannels, frames int, params map[string][]float64) *BlockRequest {
	return &BlockRequest{
		Type:           TypeBlock,
		Input:          input,
		OutputChannels: outputChannels,
		Frames:         frames,
		Params:         params,
	}
}

// NewMessage returns a control message frame.
func NewMessage(data string) *Message {
	return &Message{Type: TypeMessage, Data: data}
}
