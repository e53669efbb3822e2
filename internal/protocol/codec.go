package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// DefaultMaxFrame bounds a single envelope on the wire.
const DefaultMaxFrame = 1 << 20

// Codec frames JSON envelopes with a 4-byte big-endian length prefix. One
// request and one response cross the wire per round trip.
type Codec struct {
	rw       io.ReadWriter
	maxFrame int
}

// NewCodec wraps a connection with the framing codec.
func NewCodec(rw io.ReadWriter, maxFrame int) *Codec {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &Codec{rw: rw, maxFrame: maxFrame}
}

// ReadRequest reads one request envelope.
func (c *Codec) ReadRequest() (Request, error) {
	var req Request
	data, err := c.readFrame()
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("protocol: decode request: %w", err)
	}
	return req, nil
}

// WriteResponse writes one response envelope.
func (c *Codec) WriteResponse(resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("protocol: encode response: %w", err)
	}
	return c.writeFrame(data)
}

// WriteRequest writes one request envelope. Used by clients and tests.
func (c *Codec) WriteRequest(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("protocol: encode request: %w", err)
	}
	return c.writeFrame(data)
}

// ReadResponse reads one response envelope into a generic form where the
// payload stays raw JSON. Used by clients and tests.
func (c *Codec) ReadResponse() (Status, string, json.RawMessage, string, error) {
	data, err := c.readFrame()
	if err != nil {
		return "", "", nil, "", err
	}
	var wire struct {
		Status    Status          `json:"status"`
		Message   string          `json:"message"`
		Payload   json.RawMessage `json:"payload"`
		AuthToken string          `json:"authToken"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return "", "", nil, "", fmt.Errorf("protocol: decode response: %w", err)
	}
	return wire.Status, wire.Message, wire.Payload, wire.AuthToken, nil
}

func (c *Codec) readFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		return nil, err
	}
	size := int(binary.BigEndian.Uint32(header[:]))
	if size == 0 || size > c.maxFrame {
		return nil, fmt.Errorf("protocol: frame size %d out of bounds", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(c.rw, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Codec) writeFrame(data []byte) error {
	if len(data) > c.maxFrame {
		return fmt.Errorf("protocol: frame size %d out of bounds", len(data))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := c.rw.Write(header[:]); err != nil {
		return err
	}
	_, err := c.rw.Write(data)
	return err
}
