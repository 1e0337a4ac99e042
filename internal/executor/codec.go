package executor

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMessageSize bounds a single frame. Screenshots of large
// multi-monitor desktops dominate the size.
const DefaultMaxMessageSize = 64 << 20

const headerSize = 4

var (
	// ErrZeroLength is returned for a frame that declares an empty payload.
	ErrZeroLength = errors.New("executor: zero-length frame")
	// ErrMessageTooLarge is returned for a frame above the configured maximum.
	ErrMessageTooLarge = errors.New("executor: frame exceeds maximum size")
)

// Codec reads and writes length-prefixed JSON frames.
type Codec struct {
	r   io.Reader
	w   io.Writer
	max int
}

// NewCodec creates a codec. maxSize <= 0 selects DefaultMaxMessageSize.
func NewCodec(r io.Reader, w io.Writer, maxSize int) *Codec {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Codec{r: r, w: w, max: maxSize}
}

// Write encodes v as one frame.
func (c *Codec) Write(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("executor: encode message: %w", err)
	}
	if len(payload) > c.max {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}

	frame := make([]byte, headerSize+len(payload))
	binary.NativeEndian.PutUint32(frame[:headerSize], uint32(len(payload)))
	copy(frame[headerSize:], payload)

	if _, err := c.w.Write(frame); err != nil {
		return fmt.Errorf("executor: write frame: %w", err)
	}
	return nil
}

// ReadRaw returns the payload of the next frame.
func (c *Codec) ReadRaw() ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return nil, fmt.Errorf("executor: read header: %w", err)
	}

	n := binary.NativeEndian.Uint32(header[:])
	if n == 0 {
		return nil, ErrZeroLength
	}
	if uint64(n) > uint64(c.max) {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return nil, fmt.Errorf("executor: read payload: %w", err)
	}
	return payload, nil
}

// Read decodes the next frame into v.
func (c *Codec) Read(v any) error {
	payload, err := c.ReadRaw()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("executor: decode message: %w", err)
	}
	return nil
}
