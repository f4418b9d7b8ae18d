package stun

import (
	"fmt"
	"hash/crc32"
)

// FingerprintAttr represents FINGERPRINT attribute.
//
// RFC 5389 Section 15.5.
type FingerprintAttr struct{}

// CRCMismatch represents a FINGERPRINT check error.
type CRCMismatch struct {
	Expected uint32
	Actual   uint32
}

func (m *CRCMismatch) Error() string {
	return fmt.Sprintf("CRC mismatch: %x (expected) != %x (actual)",
		m.Expected, m.Actual,
	)
}

// Fingerprint is shorthand for FingerprintAttr.
//
// Example:
//
//	m := New()
//	Fingerprint.AddTo(m)
var Fingerprint FingerprintAttr //nolint:gochecknoglobals

const (
	fingerprintXORValue uint32 = 0x5354554e
	fingerprintSize            = 4 // 32 bit
)

// FingerprintValue returns the CRC-32 of b XOR-ed with 0x5354554e.
//
// The value of the attribute is computed as the CRC-32 of the STUN
// message up to (but excluding) the FINGERPRINT attribute itself,
// XOR-ed with the 32-bit value 0x5354554e. The XOR helps in cases where
// an application packet is also using CRC-32.
func FingerprintValue(b []byte) uint32 {
	return crc32.ChecksumIEEE(b) ^ fingerprintXORValue
}

// AddTo adds FINGERPRINT attribute to the message, which must be added
// last: nothing may follow it on the wire.
func (FingerprintAttr) AddTo(m *Message) error {
	l := m.Length
	// The checksum covers the header with the length field counting the
	// fingerprint TLV itself.
	m.Length += fingerprintSize + attributeHeaderSize
	m.WriteLength()
	b := make([]byte, fingerprintSize)
	val := FingerprintValue(m.Raw)
	bin.PutUint32(b, val)
	m.Length = l
	m.Add(AttrFingerprint, b)
	return nil
}

// Check reads the FINGERPRINT value from m and verifies it. Can return
// *AttrLengthErr, ErrAttributeNotFound and *CRCMismatch.
func (FingerprintAttr) Check(m *Message) error {
	b, err := m.Get(AttrFingerprint)
	if err != nil {
		return err
	}
	if err := CheckSize(AttrFingerprint, len(b), fingerprintSize); err != nil {
		return err
	}
	val := bin.Uint32(b)
	attrStart := len(m.Raw) - (fingerprintSize + attributeHeaderSize)
	expected := FingerprintValue(m.Raw[:attrStart])
	return checkFingerprint(val, expected)
}
