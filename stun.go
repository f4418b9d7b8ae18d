// Package stun implements the Session Traversal Utilities for NAT (STUN)
// wire protocol as specified by RFC 5389 and RFC 8489.
//
// The package provides three layers:
//
// Message codec: the Message type with buffer-backed encoding and decoding
// of the 20-byte header and the attribute section, plus typed attribute
// values (XORMappedAddress, MessageIntegrity, Fingerprint, ...) that
// implement the Setter, Getter and Checker interfaces.
//
// Transaction engine: the Agent owns the table of pending transactions and
// the Client drives requests over a Transport with RFC 5389 Section 7.2.1
// retransmission timing.
//
// Transports: minimal adapters over UDP datagrams and self-delimited
// streams (TCP, TLS, DTLS), selected via DialURI.
package stun

import "encoding/binary"

// bin is shorthand for binary.BigEndian: STUN is network byte order
// throughout.
var bin = binary.BigEndian //nolint:gochecknoglobals

const (
	// magicCookie is the fixed value distinguishing STUN packets from
	// packets of other protocols multiplexed on the same port.
	//
	// The magic cookie field MUST contain the fixed value 0x2112A442 in
	// network byte order. See RFC 5389 Section 6.
	magicCookie         = 0x2112A442
	attributeHeaderSize = 4
	messageHeaderSize   = 20

	// TransactionIDSize is the length of a transaction id, 96 bits.
	TransactionIDSize = 12
)

// DefaultPort is the IANA assigned port for the "stun" protocol.
const DefaultPort = 3478

// DefaultTLSPort is the IANA assigned port for the "stuns" protocol.
const DefaultTLSPort = 5349
