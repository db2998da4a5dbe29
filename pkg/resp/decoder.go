package resp

import (
	"errors"
	"fmt"
	"io"

	kverrors "github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/tidwall/redcon"
)

// Decoder buffer defaults. Malformed input after a valid type marker is
// buffered until DefaultMaxFrameSize before it is rejected.
const (
	DefaultReadBufferSize = 4096
	DefaultMaxFrameSize   = 32 * 1024 * 1024
)

// Decoder reads frames from a byte stream. It buffers partial input and
// grows the buffer up to the configured maximum frame size.
type Decoder struct {
	r        io.Reader
	buf      []byte
	start    int
	end      int
	consumed int
	maxFrame int
	err      error
}

// NewDecoder creates a decoder. Non-positive sizes select the defaults.
func NewDecoder(r io.Reader, bufSize, maxFrame int) *Decoder {
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	if bufSize > maxFrame {
		bufSize = maxFrame
	}
	return &Decoder{
		r:        r,
		buf:      make([]byte, bufSize),
		maxFrame: maxFrame,
	}
}

// Decode returns the next complete frame. Undecodable input yields a
// *errors.ProtocolError; a stream that ends mid-frame yields
// io.ErrUnexpectedEOF.
func (d *Decoder) Decode() (Frame, error) {
	for {
		if d.end > d.start {
			n, r := redcon.ReadNextRESP(d.buf[d.start:d.end])
			if n > 0 {
				d.start += n
				d.consumed += n
				return fromRESP(r), nil
			}
			if !validMarker(d.buf[d.start]) {
				return Frame{}, kverrors.NewProtocolError(
					fmt.Sprintf("unexpected type marker %q", d.buf[d.start]), d.consumed)
			}
			if d.end-d.start >= d.maxFrame {
				return Frame{}, kverrors.NewProtocolError(
					fmt.Sprintf("frame exceeds %d bytes", d.maxFrame), d.consumed)
			}
		}

		if d.err != nil {
			if errors.Is(d.err, io.EOF) && d.end > d.start {
				return Frame{}, io.ErrUnexpectedEOF
			}
			return Frame{}, d.err
		}

		d.fill()
	}
}

// Buffered returns the number of bytes read but not yet decoded.
func (d *Decoder) Buffered() int {
	return d.end - d.start
}

func (d *Decoder) fill() {
	if d.start > 0 {
		copy(d.buf, d.buf[d.start:d.end])
		d.end -= d.start
		d.start = 0
	}
	if d.end == len(d.buf) {
		size := len(d.buf) * 2
		if size > d.maxFrame {
			size = d.maxFrame
		}
		grown := make([]byte, size)
		copy(grown, d.buf[:d.end])
		d.buf = grown
	}
	n, err := d.r.Read(d.buf[d.end:])
	d.end += n
	if err != nil {
		d.err = err
	}
}

func validMarker(b byte) bool {
	switch Kind(b) {
	case KindSimpleString, KindError, KindInteger, KindBulk, KindArray:
		return true
	}
	return false
}
