package stun

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeAttribute_RoundTrip(t *testing.T) {
	m := New()
	a := ErrorCodeAttribute{Code: 404, Reason: []byte("not found!")}
	require.NoError(t, a.AddTo(m))
	m.WriteHeader()

	decoded := new(Message)
	_, err := decoded.Write(m.Raw)
	require.NoError(t, err)
	got := ErrorCodeAttribute{}
	require.NoError(t, got.GetFrom(decoded))
	assert.Equal(t, a.Code, got.Code)
	assert.Equal(t, a.Reason, got.Reason)
	assert.Equal(t, "404: not found!", got.String())
}

func TestErrorCodeAttribute_Wire(t *testing.T) {
	// Class and number occupy the third and fourth bytes.
	m := New()
	require.NoError(t, ErrorCodeAttribute{Code: 438, Reason: []byte("Stale Nonce")}.AddTo(m))
	v, err := m.Get(AttrErrorCode)
	require.NoError(t, err)
	assert.Equal(t, byte(0), v[0])
	assert.Equal(t, byte(0), v[1])
	assert.Equal(t, byte(4), v[2], "class")
	assert.Equal(t, byte(38), v[3], "number")
	assert.Equal(t, "Stale Nonce", string(v[4:]))
}

func TestErrorCodeAttribute_ReasonOverflow(t *testing.T) {
	m := New()
	a := ErrorCodeAttribute{Code: 500, Reason: []byte(strings.Repeat("a", 800))}
	err := a.AddTo(m)
	require.Error(t, err)
	assert.True(t, IsAttrSizeOverflow(err))
}

func TestErrorCodeAttribute_GetErrors(t *testing.T) {
	got := ErrorCodeAttribute{}
	assert.ErrorIs(t, got.GetFrom(New()), ErrAttributeNotFound)

	m := New()
	m.Add(AttrErrorCode, []byte{1, 2, 3})
	assert.ErrorIs(t, got.GetFrom(m), io.ErrUnexpectedEOF)
}

func TestErrorCode_DefaultReasons(t *testing.T) {
	for code, reason := range errorReasons {
		m := New()
		require.NoError(t, code.AddTo(m))
		got := ErrorCodeAttribute{}
		require.NoError(t, got.GetFrom(m))
		assert.Equal(t, code, got.Code)
		assert.Equal(t, reason, got.Reason)
	}
}

func TestErrorCode_NoDefaultReason(t *testing.T) {
	assert.ErrorIs(t, ErrorCode(999).AddTo(New()), ErrNoDefaultReason)
}
