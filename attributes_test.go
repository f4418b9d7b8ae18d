package stun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrType_Range(t *testing.T) {
	require.True(t, AttrUsername.Required())
	require.True(t, AttrErrorCode.Required())
	require.False(t, AttrUsername.Optional())
	require.True(t, AttrSoftware.Optional())
	require.True(t, AttrFingerprint.Optional())
	require.False(t, AttrSoftware.Required())
	// Boundary values.
	assert.True(t, AttrType(0x7FFF).Required())
	assert.True(t, AttrType(0x8000).Optional())
}

func TestAttrType_String(t *testing.T) {
	assert.Equal(t, "MAPPED-ADDRESS", AttrMappedAddress.String())
	assert.Equal(t, "FINGERPRINT", AttrFingerprint.String())
	assert.Equal(t, "0x7fff", AttrType(0x7FFF).String(), "unknown types render as hex")
	for attr, name := range attrNames() {
		assert.Equal(t, name, attr.String())
	}
}

func TestAttributes_Get(t *testing.T) {
	m := New()
	m.Add(AttrSoftware, []byte("one"))
	m.Add(AttrSoftware, []byte("two"))

	a, ok := m.Attributes.Get(AttrSoftware)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), a.Value, "Get returns the first attribute")

	_, ok = m.Attributes.Get(AttrRealm)
	assert.False(t, ok)
	_, err := m.Get(AttrRealm)
	assert.ErrorIs(t, err, ErrAttributeNotFound)
}

func TestRawAttribute(t *testing.T) {
	a := RawAttribute{Type: AttrSoftware, Length: 3, Value: []byte{1, 2, 3}}
	b := RawAttribute{Type: AttrSoftware, Length: 3, Value: []byte{1, 2, 3}}
	assert.True(t, a.Equal(b))
	b.Value = []byte{1, 2, 4}
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(RawAttribute{Type: AttrRealm, Length: 3, Value: []byte{1, 2, 3}}))

	m := New()
	require.NoError(t, a.AddTo(m))
	v, err := m.Get(AttrSoftware)
	require.NoError(t, err)
	assert.Equal(t, a.Value, v)
}

func TestMessage_CheckComprehension(t *testing.T) {
	t.Run("Clean", func(t *testing.T) {
		m := MustBuild(TransactionID, BindingRequest, NewUsername("user"))
		assert.Nil(t, m.CheckComprehension(nil))
	})
	t.Run("UnknownRequired", func(t *testing.T) {
		m := MustBuild(TransactionID, BindingRequest)
		m.Add(AttrType(0x0033), []byte{1, 2, 3, 4})
		m.Add(AttrChannelNumber, []byte{0, 0, 0, 0})
		unknown := m.CheckComprehension(nil)
		assert.Equal(t, []AttrType{AttrType(0x0033), AttrChannelNumber}, unknown)
	})
	t.Run("UnknownOptionalIgnored", func(t *testing.T) {
		m := MustBuild(TransactionID, BindingRequest)
		m.Add(AttrType(0x8777), []byte{1})
		assert.Nil(t, m.CheckComprehension(nil))
	})
	t.Run("CustomPredicate", func(t *testing.T) {
		m := MustBuild(TransactionID, BindingRequest)
		m.Add(AttrChannelNumber, []byte{0, 0, 0, 0})
		known := func(at AttrType) bool { return at == AttrChannelNumber }
		assert.Nil(t, m.CheckComprehension(known))
	})
}
