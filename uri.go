package stun

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// URI schemes from RFC 7064.
const (
	// Scheme is the "stun" URI scheme.
	Scheme = "stun"
	// SchemeSecure is the "stuns" URI scheme.
	SchemeSecure = "stuns"
)

// URI is a parsed "stun:" or "stuns:" URI.
type URI struct {
	Scheme string
	Host   string
	Port   int
}

func (u URI) String() string {
	host := u.Host
	if len(u.Scheme) > 0 {
		host = u.Scheme + ":" + host
	}
	if u.Port > 0 {
		return host + ":" + strconv.Itoa(u.Port)
	}
	return host
}

// ParseURI parses a STUN URI per RFC 7064: "stun:" or "stuns:" followed
// by host and optional port, non-hierarchical.
func ParseURI(rawURI string) (URI, error) {
	// Carefully reusing URI parser from net/url.
	u, urlParseErr := url.Parse(rawURI)
	if urlParseErr != nil {
		return URI{}, errors.Wrap(urlParseErr, "failed to parse URI")
	}
	if u.Scheme != Scheme && u.Scheme != SchemeSecure {
		return URI{}, fmt.Errorf("unknown URI scheme %q", u.Scheme)
	}
	if u.Opaque == "" {
		// stun URIs are non-hierarchical: "stun://host" is invalid.
		return URI{}, errors.New("invalid URI format: hierarchical part is not empty")
	}
	host, rawPort, err := net.SplitHostPort(u.Opaque)
	if err != nil {
		// Just a hostname without a port.
		return URI{
			Host:   u.Opaque,
			Scheme: u.Scheme,
		}, nil
	}
	port, portErr := strconv.Atoi(rawPort)
	if portErr != nil {
		return URI{}, errors.Wrap(portErr, "failed to parse port")
	}
	return URI{
		Host:   host,
		Port:   port,
		Scheme: u.Scheme,
	}, nil
}
