package stun

import "strings"

// UnknownAttributes represents UNKNOWN-ATTRIBUTES attribute: a list of
// 16-bit attribute types the server did not understand. It is present
// only in an error response with ERROR-CODE 420.
//
// RFC 5389 Section 15.9.
type UnknownAttributes []AttrType

func (a UnknownAttributes) String() string {
	if len(a) == 0 {
		return "<nil>"
	}
	s := make([]string, len(a))
	for i, t := range a {
		s[i] = t.String()
	}
	return strings.Join(s, ", ")
}

// type size is 16 bit.
const attrTypeSize = 2

// AddTo adds UNKNOWN-ATTRIBUTES attribute to message.
func (a UnknownAttributes) AddTo(m *Message) error {
	v := make([]byte, 0, attrTypeSize*20) // 20 should be enough
	for _, t := range a {
		v = append(v, 0, 0)
		bin.PutUint16(v[len(v)-attrTypeSize:], t.Value())
	}
	m.Add(AttrUnknownAttributes, v)
	return nil
}

// GetFrom parses UNKNOWN-ATTRIBUTES from message.
func (a *UnknownAttributes) GetFrom(m *Message) error {
	v, err := m.Get(AttrUnknownAttributes)
	if err != nil {
		return err
	}
	if len(v)%attrTypeSize != 0 {
		return newAttrDecodeErr("unknown-attributes",
			"invalid length (must be multiple of 2)",
		)
	}
	*a = (*a)[:0]
	for i := 0; i < len(v); i += attrTypeSize {
		*a = append(*a, AttrType(bin.Uint16(v[i:i+attrTypeSize])))
	}
	return nil
}
