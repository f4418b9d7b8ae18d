package stun

import (
	"crypto/tls"
	"net"
	"strconv"

	"github.com/pion/dtls/v3"
	"github.com/pkg/errors"
)

// Dial connects to the address on the named network ("udp" or "tcp")
// and returns a Client over the matching transport.
func Dial(network, address string) (*Client, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	switch network {
	case "tcp", "tcp4", "tcp6":
		return NewClient(NewStreamTransport(conn))
	default:
		return NewClient(NewDatagramConnTransport(conn))
	}
}

// DialConfig is used to pass configuration to DialURI.
type DialConfig struct {
	// Net is "udp" or "tcp"; defaults to "udp".
	Net string
	// DTLSConfig is used for "stuns" over UDP.
	DTLSConfig *dtls.Config
	// TLSConfig is used for "stuns" over TCP.
	TLSConfig *tls.Config
	// Options are passed to NewClient.
	Options []ClientOption
}

// ErrUnsupportedURI means that the URI scheme and network combination is
// not supported.
const ErrUnsupportedURI Error = "unsupported URI scheme and network combination"

// DialURI connects to the STUN server described by uri: plain UDP or TCP
// for "stun", DTLS over UDP or TLS over TCP for "stuns". The default
// ports are 3478 and 5349 respectively.
func DialURI(uri URI, cfg *DialConfig) (*Client, error) { //nolint:cyclop
	if cfg == nil {
		cfg = &DialConfig{}
	}
	network := cfg.Net
	if network == "" {
		network = "udp"
	}
	secure := false
	port := uri.Port
	switch uri.Scheme {
	case Scheme:
		if port == 0 {
			port = DefaultPort
		}
	case SchemeSecure:
		secure = true
		if port == 0 {
			port = DefaultTLSPort
		}
	default:
		return nil, ErrUnsupportedURI
	}
	addr := net.JoinHostPort(uri.Host, strconv.Itoa(port))

	var (
		t   Transport
		err error
	)
	switch {
	case !secure && network == "udp":
		var conn net.Conn
		if conn, err = net.Dial("udp", addr); err != nil {
			return nil, errors.Wrap(err, "dial udp")
		}
		t = NewDatagramConnTransport(conn)
	case !secure && network == "tcp":
		var conn net.Conn
		if conn, err = net.Dial("tcp", addr); err != nil {
			return nil, errors.Wrap(err, "dial tcp")
		}
		t = NewStreamTransport(conn)
	case secure && network == "udp":
		dtlsCfg := cfg.DTLSConfig
		if dtlsCfg == nil {
			dtlsCfg = &dtls.Config{ServerName: uri.Host}
		}
		var raddr *net.UDPAddr
		if raddr, err = net.ResolveUDPAddr("udp", addr); err != nil {
			return nil, errors.Wrap(err, "resolve udp")
		}
		var conn net.Conn
		if conn, err = dtls.Dial("udp", raddr, dtlsCfg); err != nil {
			return nil, errors.Wrap(err, "dial dtls")
		}
		t = NewDatagramConnTransport(conn)
	case secure && network == "tcp":
		tlsCfg := cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{ServerName: uri.Host, MinVersion: tls.VersionTLS12}
		}
		var conn net.Conn
		if conn, err = tls.Dial("tcp", addr, tlsCfg); err != nil {
			return nil, errors.Wrap(err, "dial tls")
		}
		t = NewStreamTransport(conn)
	default:
		return nil, ErrUnsupportedURI
	}
	return NewClient(t, cfg.Options...)
}
