package resp

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	kverrors "github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandEncode(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{
			name:     "no args",
			cmd:      NewCommand("PING"),
			expected: "*1\r\n$4\r\nPING\r\n",
		},
		{
			name:     "subscribe two channels",
			cmd:      NewCommand(CmdSubscribe, "a", "news"),
			expected: "*3\r\n$9\r\nSUBSCRIBE\r\n$1\r\na\r\n$4\r\nnews\r\n",
		},
		{
			name:     "binary-safe argument",
			cmd:      Command{Name: CmdPSubscribe, Args: [][]byte{[]byte("x\r\n*")}},
			expected: "*2\r\n$10\r\nPSUBSCRIBE\r\n$4\r\nx\r\n*\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.cmd.Encode(nil)))
		})
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "UNSUBSCRIBE a b", NewCommand(CmdUnsubscribe, "a", "b").String())
	assert.Equal(t, "PING", NewCommand("PING").String())
}

func TestDecodePubSubFrames(t *testing.T) {
	input := "*3\r\n$7\r\nmessage\r\n$5\r\nchan1\r\n$7\r\npayload\r\n" +
		"*4\r\n$8\r\npmessage\r\n$3\r\nch*\r\n$5\r\nchan1\r\n$0\r\n\r\n" +
		"*3\r\n$9\r\nsubscribe\r\n$5\r\nchan1\r\n:4\r\n" +
		"-ERR unknown command\r\n"

	dec := NewDecoder(strings.NewReader(input), 16, 1024)

	msg, err := dec.Decode()
	require.NoError(t, err)
	require.Equal(t, 3, msg.Len())
	assert.True(t, msg.Elem(0).Equal([]byte("message")))
	assert.Equal(t, "chan1", msg.Elem(1).String())
	assert.Equal(t, "payload", msg.Elem(2).String())

	pmsg, err := dec.Decode()
	require.NoError(t, err)
	require.Equal(t, 4, pmsg.Len())
	assert.Equal(t, "ch*", pmsg.Elem(1).String())
	assert.False(t, pmsg.Elem(3).IsNull())
	assert.Empty(t, pmsg.Elem(3).Bytes())

	ack, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, KindInteger, ack.Elem(2).Kind)
	n, err := ack.Elem(2).Int()
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	errFrame, err := dec.Decode()
	require.NoError(t, err)
	assert.True(t, errFrame.IsError())
	assert.Equal(t, "ERR unknown command", errFrame.String())

	_, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeOneByteAtATime(t *testing.T) {
	frame := Array(BulkString("message"), BulkString("news"), Bulk(bytes.Repeat([]byte("x"), 300)))
	wire := AppendFrame(nil, frame)

	dec := NewDecoder(iotest.OneByteReader(bytes.NewReader(wire)), 16, 4096)
	got, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, frame, got)
	assert.Zero(t, dec.Buffered())
}

func TestDecodeFramesOwnTheirMemory(t *testing.T) {
	wire := AppendFrame(nil, Array(BulkString("message"), BulkString("a"), BulkString("first")))
	wire = AppendFrame(wire, Array(BulkString("message"), BulkString("b"), BulkString("second")))

	dec := NewDecoder(bytes.NewReader(wire), 64, 1024)
	first, err := dec.Decode()
	require.NoError(t, err)
	_, err = dec.Decode()
	require.NoError(t, err)

	assert.Equal(t, "first", first.Elem(2).String())
}

func TestDecodeNulls(t *testing.T) {
	dec := NewDecoder(strings.NewReader("*3\r\n$11\r\nunsubscribe\r\n$-1\r\n:0\r\n*-1\r\n"), 0, 0)

	ack, err := dec.Decode()
	require.NoError(t, err)
	assert.True(t, ack.Elem(1).IsNull())

	nullArray, err := dec.Decode()
	require.NoError(t, err)
	assert.True(t, nullArray.IsNull())
	assert.Equal(t, 0, nullArray.Len())
}

func TestDecodeErrors(t *testing.T) {
	t.Run("bad marker", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader("+OK\r\n?what\r\n"), 0, 0)
		_, err := dec.Decode()
		require.NoError(t, err)
		_, err = dec.Decode()
		require.Error(t, err)
		assert.True(t, kverrors.IsProtocol(err))

		var perr *kverrors.ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 5, perr.Offset)
	})

	t.Run("frame too large", func(t *testing.T) {
		wire := AppendFrame(nil, Bulk(bytes.Repeat([]byte("y"), 200)))
		dec := NewDecoder(bytes.NewReader(wire), 16, 64)
		_, err := dec.Decode()
		assert.True(t, kverrors.IsProtocol(err))
	})

	t.Run("truncated stream", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader("*3\r\n$7\r\nmessage\r\n"), 0, 0)
		_, err := dec.Decode()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestFrameAccessors(t *testing.T) {
	f := Array(BulkString("a"))
	assert.Equal(t, Frame{}, f.Elem(5))
	assert.Equal(t, Frame{}, f.Elem(-1))
	assert.Equal(t, 0, BulkString("x").Len())
	assert.False(t, f.Equal([]byte("a")))

	_, err := BulkString("nope").Int()
	assert.Error(t, err)

	n, err := Integer(-12).Int()
	require.NoError(t, err)
	assert.EqualValues(t, -12, n)
}

func TestAppendFrameRoundTrip(t *testing.T) {
	frames := []Frame{
		SimpleString("OK"),
		ErrorFrame("ERR boom"),
		Integer(42),
		NullBulk(),
		Array(BulkString("pmessage"), BulkString("n*"), BulkString("news"), Bulk([]byte{0, 1, 2})),
	}

	var wire []byte
	for _, f := range frames {
		wire = AppendFrame(wire, f)
	}

	dec := NewDecoder(bytes.NewReader(wire), 8, 1024)
	for _, want := range frames {
		got, err := dec.Decode()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
