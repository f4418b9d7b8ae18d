package stun

// Setter sets a *Message attribute.
type Setter interface {
	AddTo(m *Message) error
}

// Getter parses an attribute from a *Message.
type Getter interface {
	GetFrom(m *Message) error
}

// Checker checks a *Message attribute.
type Checker interface {
	Check(m *Message) error
}

// Build resets the message and applies the setters in order, aborting on
// the first failure.
//
// Transaction id is copied from the previous state unless a setter
// changes it, so
//
//	m.Build(NewTransactionIDSetter(id), BindingRequest, fingerprint)
//
// produces a well-formed request.
func (m *Message) Build(setters ...Setter) error {
	m.Reset()
	m.WriteHeader()
	for _, s := range setters {
		if err := s.AddTo(m); err != nil {
			return err
		}
	}
	return nil
}

// Check applies the checkers in order, returning the first error.
func (m *Message) Check(checkers ...Checker) error {
	for _, c := range checkers {
		if err := c.Check(m); err != nil {
			return err
		}
	}
	return nil
}

// Parse applies the getters in order, returning the first error.
func (m *Message) Parse(getters ...Getter) error {
	for _, g := range getters {
		if err := g.GetFrom(m); err != nil {
			return err
		}
	}
	return nil
}

// MustBuild wraps Build call and panics on error.
func MustBuild(setters ...Setter) *Message {
	m, err := Build(setters...)
	if err != nil {
		panic(err) //nolint
	}
	return m
}

// Build wraps Message.Build method.
func Build(setters ...Setter) (*Message, error) {
	m := new(Message)
	if err := m.Build(setters...); err != nil {
		return nil, err
	}
	return m, nil
}

// ForceSetLength sets the Message.Length and writes it to the buffer
// without any validation. Used to compute integrity over a truncated
// view of the message; never needed in normal operation.
func (m *Message) ForceSetLength(l uint32) {
	m.Length = l
	m.WriteLength()
}

// Decode decodes the data buffer as a STUN message into m.
func Decode(data []byte, m *Message) error {
	if m == nil {
		return ErrDecodeToNil
	}
	m.Raw = append(m.Raw[:0], data...)
	return m.Decode()
}

// ErrDecodeToNil occurs on Decode(data, nil) call.
const ErrDecodeToNil Error = "attempt to decode to nil message"

// NewTransactionIDSetter returns a Setter that sets the message
// transaction id to value.
func NewTransactionIDSetter(value [TransactionIDSize]byte) Setter {
	return tidSetter(value)
}

type tidSetter [TransactionIDSize]byte

func (t tidSetter) AddTo(m *Message) error {
	m.TransactionID = t
	m.WriteTransactionID()
	return nil
}

type transactionIDValueSetter struct{}

// TransactionID is a Setter that sets the message transaction id to a
// new random value.
var TransactionID Setter = transactionIDValueSetter{} //nolint:gochecknoglobals

func (transactionIDValueSetter) AddTo(m *Message) error {
	return m.NewTransactionID()
}
