package stun

import (
	"net"

	"github.com/pion/logging"
	"github.com/pkg/errors"
)

// Server is a basic RFC 5389 server: it answers Binding requests with
// the XOR-MAPPED-ADDRESS of the request source. It does not implement
// credential mechanisms or ALTERNATE-SERVER.
type Server struct {
	// Software, when non-empty, is added to responses as the SOFTWARE
	// attribute.
	Software string
	// Fingerprint adds the FINGERPRINT attribute to responses.
	Fingerprint bool
	// SurfaceUnknownAttributes disables the automatic 420 error
	// response for requests carrying unrecognized comprehension-required
	// attributes; such requests are then answered like any other, and a
	// wrapping application can apply its own policy via Handler.
	SurfaceUnknownAttributes bool
	// Recognize overrides the set of comprehension-required attribute
	// types the server understands; nil means the package defaults.
	Recognize func(AttrType) bool
	// Handler, when set, observes every decoded inbound message before
	// the built-in processing. Returning true consumes the message.
	Handler func(m *Message, from net.Addr) bool
	// LoggerFactory customizes logging; nil means the pion default.
	LoggerFactory logging.LoggerFactory

	log logging.LeveledLogger
}

func (s *Server) logger() logging.LeveledLogger {
	if s.log == nil {
		f := s.LoggerFactory
		if f == nil {
			f = logging.NewDefaultLoggerFactory()
		}
		s.log = f.NewLogger("stun-server")
	}
	return s.log
}

// Serve reads requests from the transport until it is closed. Responses
// go back to the frame source. Decode failures are logged and skipped;
// they never stop the loop.
func (s *Server) Serve(t Transport) error {
	log := s.logger()
	req := new(Message)
	res := new(Message)
	for {
		p, from, err := t.Recv()
		if err != nil {
			return errors.Wrap(err, "serve recv")
		}
		if !IsMessage(p) {
			log.Trace("skipping non-STUN frame")
			continue
		}
		if err = Decode(p, req); err != nil {
			log.Warnf("discarding malformed message from %v: %v", from, err)
			continue
		}
		if s.Handler != nil && s.Handler(req, from) {
			continue
		}
		res.Reset()
		if !s.process(req, res, from) {
			continue
		}
		if _, err = t.Send(res.Raw, from); err != nil {
			log.Errorf("send to %v failed: %v", from, err)
		}
	}
}

// process fills res for req and reports whether there is anything to
// send.
func (s *Server) process(req, res *Message, from net.Addr) bool {
	log := s.logger()
	if req.Type.Class != ClassRequest {
		// Indications are accepted but produce no response; responses
		// reaching a server are ignored.
		return false
	}
	if unknown := req.CheckComprehension(s.Recognize); unknown != nil && !s.SurfaceUnknownAttributes {
		log.Debugf("unknown comprehension-required attributes from %v: %v", from, unknown)
		return s.buildOK(res, req,
			NewType(req.Type.Method, ClassErrorResponse),
			CodeUnknownAttribute,
			UnknownAttributes(unknown),
		)
	}
	if req.Type.Method != MethodBinding {
		return s.buildOK(res, req,
			NewType(req.Type.Method, ClassErrorResponse),
			CodeBadRequest,
		)
	}
	ip, port, err := sourceAddr(from)
	if err != nil {
		log.Errorf("cannot derive mapped address: %v", err)
		return false
	}
	return s.buildOK(res, req, BindingSuccess, &XORMappedAddress{IP: ip, Port: port})
}

func (s *Server) buildOK(res, req *Message, t MessageType, extra ...Setter) bool {
	setters := make([]Setter, 0, len(extra)+3)
	setters = append(setters, NewTransactionIDSetter(req.TransactionID), t)
	setters = append(setters, extra...)
	if s.Software != "" {
		setters = append(setters, NewSoftware(s.Software))
	}
	if s.Fingerprint {
		setters = append(setters, Fingerprint)
	}
	if err := res.Build(setters...); err != nil {
		s.logger().Errorf("failed to build response: %v", err)
		return false
	}
	return true
}

// ErrUnsupportedSourceAddr means that the transport source address type
// cannot be mapped.
const ErrUnsupportedSourceAddr Error = "unsupported source address type"

func sourceAddr(addr net.Addr) (net.IP, int, error) {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP, a.Port, nil
	case *net.TCPAddr:
		return a.IP, a.Port, nil
	}
	return nil, 0, ErrUnsupportedSourceAddr
}
