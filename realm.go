package stun

// Realm represents REALM attribute.
//
// RFC 5389 Section 15.7.
type Realm []byte

const maxRealmB = 763

// NewRealm returns Realm with provided value.
func NewRealm(realm string) Realm {
	return Realm(realm)
}

func (n Realm) String() string {
	return string(n)
}

// AddTo adds REALM to message.
func (n Realm) AddTo(m *Message) error {
	if err := CheckOverflow(AttrRealm, len(n), maxRealmB); err != nil {
		return err
	}
	m.Add(AttrRealm, n)
	return nil
}

// GetFrom gets REALM from message.
func (n *Realm) GetFrom(m *Message) error {
	v, err := m.Get(AttrRealm)
	if err != nil {
		return err
	}
	*n = v
	return nil
}
