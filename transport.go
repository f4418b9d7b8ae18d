package stun

import "net"

// Transport is the minimal capability the transaction engine needs from
// the underlying medium: send bytes to a destination and receive inbound
// frames, one STUN message per frame.
//
// Reliable reports whether the transport performs its own retransmission
// (streams over TCP, TLS); the engine suppresses its retransmission loop
// for reliable transports and sends each request exactly once.
//
// Connection setup, socket lifecycle and OS binding belong to the
// adapter, not to the engine.
type Transport interface {
	// Send writes one message to dst. Adapters over connected sockets
	// ignore dst and it may be nil.
	Send(p []byte, dst net.Addr) (int, error)
	// Recv blocks until the next inbound frame is available and returns
	// its payload and source address. The payload is only valid until
	// the next Recv call. Recv returns an error after Close.
	Recv() ([]byte, net.Addr, error)
	// Reliable reports whether the transport retransmits on its own.
	Reliable() bool
	// Close releases the underlying resources and unblocks Recv.
	Close() error
}
