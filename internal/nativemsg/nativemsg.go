// Package nativemsg implements the browser native messaging framing: each
// message is UTF-8 JSON preceded by its length as a 32-bit unsigned integer
// in native byte order.
package nativemsg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	// MaxOutgoing is the largest message the browser accepts from a host.
	MaxOutgoing = 1 << 20
	// DefaultMaxIncoming bounds messages read from the browser.
	DefaultMaxIncoming = 64 << 20
)

// ErrMessageTooLarge reports a frame over the configured limit.
var ErrMessageTooLarge = errors.New("native message too large")

// Conn reads and writes framed messages on a stdio pair.
type Conn struct {
	r           io.Reader
	w           io.Writer
	closer      io.Closer
	maxIncoming int

	readMu  sync.Mutex
	writeMu sync.Mutex
}

// Option configures a Conn.
type Option func(*Conn)

// WithMaxIncoming overrides the incoming message cap.
func WithMaxIncoming(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.maxIncoming = n
		}
	}
}

// WithCloser sets what Close releases, usually stdin.
func WithCloser(closer io.Closer) Option {
	return func(c *Conn) {
		c.closer = closer
	}
}

// NewConn wraps a reader/writer pair.
func NewConn(r io.Reader, w io.Writer, opts ...Option) *Conn {
	c := &Conn{r: r, w: w, maxIncoming: DefaultMaxIncoming}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Read returns the next message payload. io.EOF means the browser closed
// the pipe between messages.
func (c *Conn) Read() ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	var header [4]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, err
	}
	size := binary.NativeEndian.Uint32(header[:])
	if int64(size) > int64(c.maxIncoming) {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}

// Write sends one message.
func (c *Conn) Write(payload []byte) error {
	if len(payload) > MaxOutgoing {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}
	frame := make([]byte, 4+len(payload))
	binary.NativeEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.w.Write(frame)
	return err
}

// Close releases the underlying reader when a closer was configured.
func (c *Conn) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
