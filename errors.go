package stun

import "fmt"

// Error is the constant error type used for sentinel errors in this
// package.
type Error string

func (e Error) Error() string {
	return string(e)
}

// DecodeErr records a codec failure and the place where it occurred.
// Decoding stops at the first failure: a Message is either decoded in
// full or not at all.
type DecodeErr struct {
	Place   DecodeErrPlace
	Message string
}

// DecodeErrPlace names the message or attribute section that failed to
// decode.
type DecodeErrPlace struct {
	Parent   string
	Children string
}

func (p DecodeErrPlace) String() string {
	return fmt.Sprintf("%s/%s", p.Parent, p.Children)
}

func (e *DecodeErr) Error() string {
	return fmt.Sprintf("BadFormat for %s: %s", e.Place, e.Message)
}

// IsPlace reports whether the error occurred at p.
func (e *DecodeErr) IsPlace(p DecodeErrPlace) bool {
	return e.Place == p
}

// IsPlaceParent reports whether the error parent is p.
func (e *DecodeErr) IsPlaceParent(p string) bool {
	return e.Place.Parent == p
}

// IsPlaceChildren reports whether the error children is c.
func (e *DecodeErr) IsPlaceChildren(c string) bool {
	return e.Place.Children == c
}

func newDecodeErr(parent, children, message string) *DecodeErr {
	return &DecodeErr{
		Place:   DecodeErrPlace{Parent: parent, Children: children},
		Message: message,
	}
}

func newAttrDecodeErr(children, message string) *DecodeErr {
	return newDecodeErr("attribute", children, message)
}

// AttrOverflowErr is returned when an attribute value is longer than
// expected for its type.
type AttrOverflowErr struct {
	Type AttrType
	Got  int
	Max  int
}

func (e *AttrOverflowErr) Error() string {
	return fmt.Sprintf("incorrect length of %s attribute: %d exceeds maximum %d",
		e.Type, e.Got, e.Max,
	)
}

// AttrLengthErr is returned when an attribute value has a length other
// than the one its type requires.
type AttrLengthErr struct {
	Attr     AttrType
	Got      int
	Expected int
}

func (e *AttrLengthErr) Error() string {
	return fmt.Sprintf("incorrect length of %s attribute: got %d, expected %d",
		e.Attr, e.Got, e.Expected,
	)
}
