package stun

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverTransport feeds Serve from a channel and captures responses.
type serverTransport struct {
	in   chan recvFrame
	out  chan recvFrame
	done chan struct{}
}

func newServerTransport() *serverTransport {
	return &serverTransport{
		in:   make(chan recvFrame, 8),
		out:  make(chan recvFrame, 8),
		done: make(chan struct{}),
	}
}

func (t *serverTransport) Send(p []byte, dst net.Addr) (int, error) {
	t.out <- recvFrame{p: append([]byte{}, p...), addr: dst}
	return len(p), nil
}

func (t *serverTransport) Recv() ([]byte, net.Addr, error) {
	select {
	case f := <-t.in:
		return f.p, f.addr, nil
	case <-t.done:
		return nil, nil, io.ErrClosedPipe
	}
}

func (t *serverTransport) Reliable() bool { return false }

func (t *serverTransport) Close() error {
	close(t.done)
	return nil
}

func serveAndAsk(t *testing.T, s *Server, req *Message, from net.Addr) *Message {
	t.Helper()
	tr := newServerTransport()
	served := make(chan error, 1)
	go func() {
		served <- s.Serve(tr)
	}()
	defer func() {
		require.NoError(t, tr.Close())
		assert.Error(t, <-served, "serve returns the recv error")
	}()
	tr.in <- recvFrame{p: req.Raw, addr: from}
	select {
	case f := <-tr.out:
		assert.Equal(t, from, f.addr, "response goes back to the frame source")
		res := new(Message)
		require.NoError(t, Decode(f.p, res))
		return res
	case <-time.After(time.Second):
		return nil
	}
}

func TestServer_Binding(t *testing.T) {
	s := &Server{Software: "test server", Fingerprint: true}
	from := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 41000}
	req := MustBuild(TransactionID, BindingRequest)

	res := serveAndAsk(t, s, req, from)
	require.NotNil(t, res, "no response")
	assert.Equal(t, BindingSuccess, res.Type)
	assert.Equal(t, req.TransactionID, res.TransactionID)

	var addr XORMappedAddress
	require.NoError(t, addr.GetFrom(res))
	assert.True(t, addr.IP.Equal(from.IP))
	assert.Equal(t, from.Port, addr.Port)

	var soft Software
	require.NoError(t, soft.GetFrom(res))
	assert.Equal(t, "test server", soft.String())
	require.NoError(t, res.Check(Fingerprint))
}

func TestServer_BindingTCP(t *testing.T) {
	s := &Server{}
	from := &net.TCPAddr{IP: net.ParseIP("2001:db8::9"), Port: 52000}
	res := serveAndAsk(t, s, MustBuild(TransactionID, BindingRequest), from)
	require.NotNil(t, res)
	var addr XORMappedAddress
	require.NoError(t, addr.GetFrom(res))
	assert.True(t, addr.IP.Equal(from.IP))
	assert.Equal(t, from.Port, addr.Port)
}

func TestServer_UnknownAttributes(t *testing.T) {
	from := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 41000}
	req := MustBuild(TransactionID, BindingRequest)
	req.Add(AttrChannelNumber, []byte{0, 0, 0, 0})
	req.Add(AttrType(0x0033), []byte{1, 2, 3, 4})

	t.Run("Default420", func(t *testing.T) {
		res := serveAndAsk(t, &Server{}, req, from)
		require.NotNil(t, res)
		assert.Equal(t, ClassErrorResponse, res.Type.Class)
		assert.Equal(t, req.TransactionID, res.TransactionID)

		var code ErrorCodeAttribute
		require.NoError(t, code.GetFrom(res))
		assert.Equal(t, CodeUnknownAttribute, code.Code)

		var unknown UnknownAttributes
		require.NoError(t, unknown.GetFrom(res))
		assert.Equal(t, UnknownAttributes{AttrChannelNumber, AttrType(0x0033)}, unknown)
	})
	t.Run("Surfaced", func(t *testing.T) {
		// With the policy disabled the request is answered normally.
		res := serveAndAsk(t, &Server{SurfaceUnknownAttributes: true}, req, from)
		require.NotNil(t, res)
		assert.Equal(t, BindingSuccess, res.Type)
	})
	t.Run("Recognize", func(t *testing.T) {
		s := &Server{Recognize: func(at AttrType) bool {
			return at == AttrChannelNumber || at == AttrType(0x0033) || defaultRecognized(at)
		}}
		res := serveAndAsk(t, s, req, from)
		require.NotNil(t, res)
		assert.Equal(t, BindingSuccess, res.Type)
	})
}

func TestServer_NonBinding(t *testing.T) {
	from := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 41000}
	req := MustBuild(TransactionID, NewType(MethodAllocate, ClassRequest))
	res := serveAndAsk(t, &Server{}, req, from)
	require.NotNil(t, res)
	assert.Equal(t, NewType(MethodAllocate, ClassErrorResponse), res.Type)
	var code ErrorCodeAttribute
	require.NoError(t, code.GetFrom(res))
	assert.Equal(t, CodeBadRequest, code.Code)
}

func TestServer_IgnoresNonRequests(t *testing.T) {
	tr := newServerTransport()
	s := &Server{}
	served := make(chan error, 1)
	go func() {
		served <- s.Serve(tr)
	}()
	from := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 41000}

	// Indications, malformed frames and non-STUN data produce no
	// response; a following request still does.
	ind := MustBuild(TransactionID, NewType(MethodBinding, ClassIndication))
	tr.in <- recvFrame{p: ind.Raw, addr: from}
	tr.in <- recvFrame{p: []byte("not a message"), addr: from}
	tr.in <- recvFrame{p: make([]byte, messageHeaderSize), addr: from}
	req := MustBuild(TransactionID, BindingRequest)
	tr.in <- recvFrame{p: req.Raw, addr: from}

	select {
	case f := <-tr.out:
		res := new(Message)
		require.NoError(t, Decode(f.p, res))
		assert.Equal(t, req.TransactionID, res.TransactionID)
	case <-time.After(time.Second):
		t.Fatal("request after junk frames not answered")
	}
	require.NoError(t, tr.Close())
	assert.Error(t, <-served)
}

func TestServer_Handler(t *testing.T) {
	tr := newServerTransport()
	consumed := make(chan [TransactionIDSize]byte, 1)
	s := &Server{Handler: func(m *Message, _ net.Addr) bool {
		consumed <- m.TransactionID
		return true
	}}
	served := make(chan error, 1)
	go func() {
		served <- s.Serve(tr)
	}()
	from := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 41000}
	req := MustBuild(TransactionID, BindingRequest)
	tr.in <- recvFrame{p: req.Raw, addr: from}
	select {
	case id := <-consumed:
		assert.Equal(t, req.TransactionID, id)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	select {
	case <-tr.out:
		t.Fatal("consumed request must not be answered")
	default:
	}
	require.NoError(t, tr.Close())
	assert.Error(t, <-served)
}
