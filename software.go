package stun

// Software is SOFTWARE attribute.
//
// RFC 5389 Section 15.10.
type Software []byte

const maxSoftwareB = 763

// NewSoftware returns Software from string.
func NewSoftware(software string) Software {
	return Software(software)
}

func (s Software) String() string {
	return string(s)
}

// AddTo adds SOFTWARE attribute to message.
func (s Software) AddTo(m *Message) error {
	if err := CheckOverflow(AttrSoftware, len(s), maxSoftwareB); err != nil {
		return err
	}
	m.Add(AttrSoftware, s)
	return nil
}

// GetFrom gets SOFTWARE from message.
func (s *Software) GetFrom(m *Message) error {
	v, err := m.Get(AttrSoftware)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
