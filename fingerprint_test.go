package stun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_RoundTrip(t *testing.T) {
	m := MustBuild(TransactionID, BindingRequest, NewSoftware("software"))
	require.NoError(t, Fingerprint.AddTo(m))
	assert.True(t, m.Contains(AttrFingerprint))

	decoded := new(Message)
	_, err := decoded.Write(m.Raw)
	require.NoError(t, err, "fingerprint is verified during decode")
	require.NoError(t, decoded.Check(Fingerprint))
}

func TestFingerprint_SingleBitFlip(t *testing.T) {
	m := MustBuild(TransactionID, BindingRequest, NewSoftware("1234"))
	require.NoError(t, Fingerprint.AddTo(m))

	for byteIdx := 0; byteIdx < len(m.Raw); byteIdx++ {
		for bit := uint(0); bit < 8; bit++ {
			corrupted := append([]byte{}, m.Raw...)
			corrupted[byteIdx] ^= 1 << bit
			decoded := new(Message)
			_, err := decoded.Write(corrupted)
			if err == nil {
				// A flip of the attribute type byte turns FINGERPRINT
				// into an unknown attribute; the message itself decodes
				// but verification has nothing valid to find.
				err = decoded.Check(Fingerprint)
			}
			assert.Error(t, err,
				"flip of bit %d of byte %d must be detected", bit, byteIdx,
			)
		}
	}
}

func TestFingerprint_NotLast(t *testing.T) {
	m := MustBuild(TransactionID, BindingRequest)
	require.NoError(t, Fingerprint.AddTo(m))
	m.Add(AttrSoftware, []byte("late"))

	decoded := new(Message)
	_, err := decoded.Write(m.Raw)
	assert.Error(t, err, "attributes after FINGERPRINT are rejected")
}

func TestFingerprint_CheckErrors(t *testing.T) {
	m := MustBuild(TransactionID, BindingRequest)
	assert.ErrorIs(t, Fingerprint.Check(m), ErrAttributeNotFound)

	m.Add(AttrFingerprint, []byte{1, 2, 3})
	assert.True(t, IsAttrSizeInvalid(Fingerprint.Check(m)))
}

func TestCRCMismatch_Error(t *testing.T) {
	err := &CRCMismatch{Expected: 1, Actual: 2}
	assert.Contains(t, err.Error(), "CRC mismatch")
}
