package stun

// Username represents USERNAME attribute.
//
// RFC 5389 Section 15.3.
type Username []byte

const maxUsernameB = 513

// NewUsername returns Username with provided value.
func NewUsername(username string) Username {
	return Username(username)
}

func (u Username) String() string {
	return string(u)
}

// AddTo adds USERNAME attribute to message.
func (u Username) AddTo(m *Message) error {
	if err := CheckOverflow(AttrUsername, len(u), maxUsernameB); err != nil {
		return err
	}
	m.Add(AttrUsername, u)
	return nil
}

// GetFrom gets USERNAME from message.
func (u *Username) GetFrom(m *Message) error {
	v, err := m.Get(AttrUsername)
	if err != nil {
		return err
	}
	*u = v
	return nil
}
