// Package resp holds the decoded reply tree and outbound command encoding
// for the key-value store wire protocol. Parsing and encoding of individual
// values is delegated to redcon.
package resp

import (
	"bytes"
	"strconv"

	"github.com/tidwall/redcon"
)

// Kind is the RESP type marker of a frame.
type Kind byte

const (
	KindSimpleString Kind = redcon.String
	KindError        Kind = redcon.Error
	KindInteger      Kind = redcon.Integer
	KindBulk         Kind = redcon.Bulk
	KindArray        Kind = redcon.Array
)

func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Frame is one decoded reply. Scalars carry their payload in Data; arrays
// carry their children in Elems. Frames own their memory and stay valid
// after the decoder moves on.
type Frame struct {
	Kind  Kind
	Data  []byte
	Elems []Frame
	Null  bool
}

// Len returns the number of elements of an array frame, 0 otherwise.
func (f Frame) Len() int {
	if f.Kind != KindArray {
		return 0
	}
	return len(f.Elems)
}

// IsError reports whether the frame is an error reply.
func (f Frame) IsError() bool {
	return f.Kind == KindError
}

// IsNull reports whether the frame is a null bulk string or null array.
func (f Frame) IsNull() bool {
	return f.Null
}

// Elem returns the i-th element, or the zero Frame when out of range.
func (f Frame) Elem(i int) Frame {
	if i < 0 || i >= f.Len() {
		return Frame{}
	}
	return f.Elems[i]
}

// Bytes returns the scalar payload.
func (f Frame) Bytes() []byte {
	return f.Data
}

// String returns the scalar payload as a string.
func (f Frame) String() string {
	return string(f.Data)
}

// Int parses the payload as a base-10 integer. Both integer replies and
// numeric bulk strings are accepted.
func (f Frame) Int() (int64, error) {
	return strconv.ParseInt(string(f.Data), 10, 64)
}

// Equal compares the scalar payload with token byte-for-byte.
func (f Frame) Equal(token []byte) bool {
	return f.Kind != KindArray && bytes.Equal(f.Data, token)
}

// Array builds an array frame.
func Array(elems ...Frame) Frame {
	return Frame{Kind: KindArray, Elems: elems}
}

// BulkString builds a bulk string frame.
func BulkString(s string) Frame {
	return Frame{Kind: KindBulk, Data: []byte(s)}
}

// Bulk builds a bulk frame from raw bytes.
func Bulk(b []byte) Frame {
	return Frame{Kind: KindBulk, Data: b}
}

// SimpleString builds a status reply frame.
func SimpleString(s string) Frame {
	return Frame{Kind: KindSimpleString, Data: []byte(s)}
}

// Integer builds an integer frame.
func Integer(n int64) Frame {
	return Frame{Kind: KindInteger, Data: strconv.AppendInt(nil, n, 10)}
}

// ErrorFrame builds an error reply frame.
func ErrorFrame(msg string) Frame {
	return Frame{Kind: KindError, Data: []byte(msg)}
}

// NullBulk builds a null bulk string frame.
func NullBulk() Frame {
	return Frame{Kind: KindBulk, Null: true}
}

// AppendFrame encodes f onto dst.
func AppendFrame(dst []byte, f Frame) []byte {
	switch f.Kind {
	case KindArray:
		if f.Null {
			return append(dst, '*', '-', '1', '\r', '\n')
		}
		dst = redcon.AppendArray(dst, len(f.Elems))
		for _, e := range f.Elems {
			dst = AppendFrame(dst, e)
		}
		return dst
	case KindBulk:
		if f.Null {
			return redcon.AppendNull(dst)
		}
		return redcon.AppendBulk(dst, f.Data)
	case KindInteger:
		n, _ := f.Int()
		return redcon.AppendInt(dst, n)
	case KindError:
		return redcon.AppendError(dst, string(f.Data))
	default:
		return redcon.AppendString(dst, string(f.Data))
	}
}

// fromRESP copies a parsed value out of the decoder buffer.
func fromRESP(r redcon.RESP) Frame {
	f := Frame{Kind: Kind(r.Type)}
	switch f.Kind {
	case KindArray:
		if r.Count < 0 {
			f.Null = true
			return f
		}
		f.Elems = make([]Frame, 0, r.Count)
		r.ForEach(func(child redcon.RESP) bool {
			f.Elems = append(f.Elems, fromRESP(child))
			return true
		})
	case KindBulk:
		if r.Data == nil {
			f.Null = true
			return f
		}
		f.Data = append([]byte{}, r.Data...)
	default:
		f.Data = append([]byte{}, r.Data...)
	}
	return f
}
