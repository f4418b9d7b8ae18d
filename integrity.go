package stun

import (
	"crypto/hmac"
	"crypto/md5"  //nolint:gosec
	"crypto/sha1" //nolint:gosec
	"fmt"
	"strings"
)

// separator for long-term credentials.
const credentialsSep = ":"

// NewLongTermIntegrity returns new MessageIntegrity with a key derived
// for long-term credentials. Password, username, and realm must be
// SASL-prepared.
func NewLongTermIntegrity(username, realm, password string) MessageIntegrity {
	k := strings.Join([]string{username, realm, password}, credentialsSep)
	h := md5.New() //nolint:gosec
	fmt.Fprint(h, k)
	return MessageIntegrity(h.Sum(nil))
}

// NewShortTermIntegrity returns new MessageIntegrity with a key for
// short-term credentials. Password must be SASL-prepared.
func NewShortTermIntegrity(password string) MessageIntegrity {
	return MessageIntegrity(password)
}

// MessageIntegrity represents MESSAGE-INTEGRITY attribute. The value is
// the key material, accepted as an opaque byte string; the digest is an
// HMAC-SHA1 over the message bytes preceding the attribute.
//
// Integrity is never verified implicitly on decode because the key is
// context-dependent: call Check explicitly once the key is known.
//
// RFC 5389 Section 15.4.
type MessageIntegrity []byte

func newHMAC(key, message []byte) []byte {
	mac := hmac.New(sha1.New, key)
	writeOrPanic(mac, message)
	return mac.Sum(nil)
}

func (i MessageIntegrity) String() string {
	return fmt.Sprintf("KEY: 0x%x", []byte(i))
}

const messageIntegritySize = 20

// ErrFingerprintBeforeIntegrity means that FINGERPRINT attribute is
// already in the message, so MESSAGE-INTEGRITY attribute cannot be added
// after it.
const ErrFingerprintBeforeIntegrity Error = "FINGERPRINT before MESSAGE-INTEGRITY attribute"

// AddTo adds MESSAGE-INTEGRITY attribute to the message. The HMAC input
// is the message up to and including the attribute preceding
// MESSAGE-INTEGRITY, with the header length set as though the message
// ended immediately after the MESSAGE-INTEGRITY attribute.
func (i MessageIntegrity) AddTo(m *Message) error {
	for _, a := range m.Attributes {
		// Message must not contain a FINGERPRINT attribute before
		// MESSAGE-INTEGRITY.
		if a.Type == AttrFingerprint {
			return ErrFingerprintBeforeIntegrity
		}
	}
	length := m.Length
	// Adjusting m.Length to account for the MESSAGE-INTEGRITY TLV.
	m.Length += messageIntegritySize + attributeHeaderSize
	m.WriteLength()
	v := newHMAC(i, m.Raw)
	m.Length = length
	m.Add(AttrMessageIntegrity, v)
	return nil
}

// ErrIntegrityMismatch means that the computed HMAC differs from the
// expected one.
const ErrIntegrityMismatch Error = "integrity check failed"

// Check verifies the MESSAGE-INTEGRITY attribute of m against the key.
//
// The attribute may be followed by FINGERPRINT (or, from servers that do
// not comply strictly, other attributes); anything past the integrity
// attribute is excluded from the HMAC input and the length field is
// rewound accordingly for the computation.
func (i MessageIntegrity) Check(m *Message) error {
	v, err := m.Get(AttrMessageIntegrity)
	if err != nil {
		return err
	}
	// Adjusting the length in header to match the value that was used
	// when the HMAC was computed.
	var (
		length         = m.Length
		afterIntegrity = false
		sizeReduced    int
	)
	for _, a := range m.Attributes {
		if afterIntegrity {
			sizeReduced += nearestPaddedValueLength(int(a.Length))
			sizeReduced += attributeHeaderSize
		}
		if a.Type == AttrMessageIntegrity {
			afterIntegrity = true
		}
	}
	m.Length -= uint32(sizeReduced)
	m.WriteLength()
	// startOfHMAC is the first byte of the integrity attribute's TLV.
	startOfHMAC := messageHeaderSize + m.Length - (attributeHeaderSize + messageIntegritySize)
	b := m.Raw[:startOfHMAC]
	expected := newHMAC(i, b)
	m.Length = length
	m.WriteLength() // writing length back
	return checkHMAC(v, expected)
}
