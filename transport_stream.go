package stun

import (
	"io"
	"net"

	"github.com/pkg/errors"
)

// NewStreamTransport adapts a stream connection (TCP, TLS). STUN
// messages are self-delimiting via the header length field, so the
// adapter reads exactly one message per Recv: partial reads are buffered
// until the declared payload is complete and coalesced messages are
// split into separate frames. The transport is reliable, so the engine
// sends each request once.
func NewStreamTransport(conn net.Conn) Transport {
	return &streamTransport{
		conn: conn,
		buf:  make([]byte, MaxPacketSize),
	}
}

type streamTransport struct {
	conn net.Conn
	buf  []byte
}

// ErrFrameTooBig means that the declared message length exceeds the
// frame buffer. The stream cannot be resynchronized after this and
// should be closed.
const ErrFrameTooBig Error = "declared message length exceeds frame buffer"

// ErrStreamDesync means that the bytes at the current stream position do
// not start a STUN message.
const ErrStreamDesync Error = "stream does not contain a STUN message"

func (t *streamTransport) Send(p []byte, _ net.Addr) (int, error) {
	n, err := t.conn.Write(p)
	return n, errors.Wrap(err, "stream send")
}

func (t *streamTransport) Recv() ([]byte, net.Addr, error) {
	header := t.buf[:messageHeaderSize]
	if _, err := io.ReadFull(t.conn, header); err != nil {
		return nil, nil, errors.Wrap(err, "stream recv header")
	}
	if !IsMessage(header) {
		return nil, nil, ErrStreamDesync
	}
	size := int(bin.Uint16(header[2:4]))
	full := messageHeaderSize + size
	if full > len(t.buf) {
		return nil, nil, ErrFrameTooBig
	}
	if _, err := io.ReadFull(t.conn, t.buf[messageHeaderSize:full]); err != nil {
		return nil, nil, errors.Wrap(err, "stream recv payload")
	}
	return t.buf[:full], t.conn.RemoteAddr(), nil
}

func (t *streamTransport) Reliable() bool { return true }

func (t *streamTransport) Close() error { return t.conn.Close() }
