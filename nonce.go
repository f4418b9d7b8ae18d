package stun

// Nonce represents NONCE attribute.
//
// RFC 5389 Section 15.8.
type Nonce []byte

const maxNonceB = 763

// NewNonce returns Nonce with provided value.
func NewNonce(nonce string) Nonce {
	return Nonce(nonce)
}

func (n Nonce) String() string {
	return string(n)
}

// AddTo adds NONCE to message.
func (n Nonce) AddTo(m *Message) error {
	if err := CheckOverflow(AttrNonce, len(n), maxNonceB); err != nil {
		return err
	}
	m.Add(AttrNonce, n)
	return nil
}

// GetFrom gets NONCE from message.
func (n *Nonce) GetFrom(m *Message) error {
	v, err := m.Get(AttrNonce)
	if err != nil {
		return err
	}
	*n = v
	return nil
}
