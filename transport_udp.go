package stun

import (
	"net"

	"github.com/pkg/errors"
)

// NewDatagramTransport adapts an unconnected packet socket. Every
// received datagram is one frame; the engine runs its retransmission
// loop.
func NewDatagramTransport(conn net.PacketConn) Transport {
	return &datagramTransport{
		conn: conn,
		buf:  make([]byte, MaxPacketSize),
	}
}

type datagramTransport struct {
	conn net.PacketConn
	buf  []byte
}

// ErrNoDestination means that a send over an unconnected transport had
// no destination address.
const ErrNoDestination Error = "no destination address"

func (t *datagramTransport) Send(p []byte, dst net.Addr) (int, error) {
	if dst == nil {
		return 0, ErrNoDestination
	}
	n, err := t.conn.WriteTo(p, dst)
	return n, errors.Wrap(err, "datagram send")
}

func (t *datagramTransport) Recv() ([]byte, net.Addr, error) {
	n, from, err := t.conn.ReadFrom(t.buf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "datagram recv")
	}
	return t.buf[:n], from, nil
}

func (t *datagramTransport) Reliable() bool { return false }

func (t *datagramTransport) Close() error { return t.conn.Close() }

// NewDatagramConnTransport adapts a connected datagram socket: a dialed
// UDP or DTLS connection. The destination argument of Send is ignored.
func NewDatagramConnTransport(conn net.Conn) Transport {
	return &datagramConnTransport{
		conn: conn,
		buf:  make([]byte, MaxPacketSize),
	}
}

type datagramConnTransport struct {
	conn net.Conn
	buf  []byte
}

func (t *datagramConnTransport) Send(p []byte, _ net.Addr) (int, error) {
	n, err := t.conn.Write(p)
	return n, errors.Wrap(err, "datagram send")
}

func (t *datagramConnTransport) Recv() ([]byte, net.Addr, error) {
	n, err := t.conn.Read(t.buf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "datagram recv")
	}
	return t.buf[:n], t.conn.RemoteAddr(), nil
}

func (t *datagramConnTransport) Reliable() bool { return false }

func (t *datagramConnTransport) Close() error { return t.conn.Close() }
