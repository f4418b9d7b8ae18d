package stun

import (
	"crypto/hmac"
	"io"
)

// ErrAttrSizeInvalid means that attribute size is invalid.
const ErrAttrSizeInvalid Error = "attribute size is invalid"

// CheckSize returns *AttrLengthErr if got is not equal to expected.
func CheckSize(t AttrType, got, expected int) error {
	if got == expected {
		return nil
	}
	return &AttrLengthErr{
		Attr:     t,
		Got:      got,
		Expected: expected,
	}
}

// CheckOverflow returns *AttrOverflowErr if got is bigger than max.
func CheckOverflow(t AttrType, got, max int) error {
	if got <= max {
		return nil
	}
	return &AttrOverflowErr{
		Type: t,
		Got:  got,
		Max:  max,
	}
}

func checkHMAC(got, expected []byte) error {
	if hmac.Equal(got, expected) {
		return nil
	}
	return ErrIntegrityMismatch
}

func checkFingerprint(got, expected uint32) error {
	if got == expected {
		return nil
	}
	return &CRCMismatch{
		Actual:   got,
		Expected: expected,
	}
}

// IsAttrSizeInvalid returns true if error means that attribute size is
// invalid.
func IsAttrSizeInvalid(err error) bool {
	_, ok := err.(*AttrLengthErr) //nolint:errorlint
	return ok
}

// IsAttrSizeOverflow returns true if error means that attribute size is
// too big.
func IsAttrSizeOverflow(err error) bool {
	_, ok := err.(*AttrOverflowErr) //nolint:errorlint
	return ok
}

func writeOrPanic(w io.Writer, b []byte) {
	if _, err := w.Write(b); err != nil {
		panic(err) //nolint
	}
}

func readFullOrPanic(r io.Reader, v []byte) int {
	n, err := io.ReadFull(r, v)
	if err != nil {
		panic(err) //nolint
	}
	return n
}
