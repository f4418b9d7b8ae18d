package stun

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
)

// NewTransactionID returns a new random transaction ID using crypto/rand
// as source.
func NewTransactionID() (b [TransactionIDSize]byte) {
	readFullOrPanic(rand.Reader, b[:])
	return b
}

// IsMessage reports whether b looks like a STUN message: useful when STUN
// is multiplexed with other protocols on one port. It does not guarantee
// that decoding will succeed.
func IsMessage(b []byte) bool {
	return len(b) >= messageHeaderSize &&
		b[0]&0xC0 == 0 &&
		bin.Uint32(b[4:8]) == magicCookie
}

// New returns *Message with pre-allocated Raw.
func New() *Message {
	const defaultRawCapacity = 120
	m := &Message{
		Raw: make([]byte, messageHeaderSize, defaultRawCapacity),
	}
	m.WriteHeader()
	return m
}

// Message represents a single STUN packet. It keeps the encoded form in
// Raw and the decoded form in the remaining fields, and maintains both on
// every mutation, so there are usage constraints:
//
//   - Message and its fields are valid only until the next Reset or reuse.
//   - Attribute values returned by getters alias Raw.
type Message struct {
	Type          MessageType
	Length        uint32 // len(Raw) not including header
	TransactionID [TransactionIDSize]byte
	Attributes    Attributes
	Raw           []byte
}

// NewTransactionID sets m.TransactionID (and corresponding bytes of
// m.Raw) to a new random value generated by crypto/rand.
func (m *Message) NewTransactionID() error {
	_, err := rand.Read(m.TransactionID[:])
	if err == nil {
		m.WriteTransactionID()
	}
	return err
}

func (m *Message) String() string {
	tID := base64.StdEncoding.EncodeToString(m.TransactionID[:])
	aInfo := ""
	for k, a := range m.Attributes {
		aInfo += fmt.Sprintf("attr%d=%s ", k, a.Type)
	}
	return fmt.Sprintf("%s l=%d attrs=%d id=%s, %s", m.Type, m.Length, len(m.Attributes), tID, aInfo)
}

// Reset resets Message, attributes and underlying buffer length.
func (m *Message) Reset() {
	m.Raw = m.Raw[:0]
	m.Length = 0
	m.Attributes = m.Attributes[:0]
}

// grow ensures that internal buffer has n length.
func (m *Message) grow(n int) {
	if len(m.Raw) >= n {
		return
	}
	if cap(m.Raw) >= n {
		m.Raw = m.Raw[:n]
		return
	}
	m.Raw = append(m.Raw, make([]byte, n-len(m.Raw))...)
}

// Add appends a new attribute to the message. The value is copied into
// the internal buffer, so it is safe to reuse v. Not goroutine-safe.
//
// Padding to the next 4-byte boundary is zero-filled and not counted in
// the attribute's declared length.
func (m *Message) Add(t AttrType, v []byte) {
	// Allocating space for the TLV at the tail of Raw:
	// [0:20)                 message header
	// [20:20+m.Length)       previously encoded attributes
	// [first:last)           the new TLV
	allocSize := attributeHeaderSize + len(v)
	first := messageHeaderSize + int(m.Length)
	last := first + allocSize
	m.grow(last)
	m.Raw = m.Raw[:last]
	m.Length += uint32(allocSize)

	buf := m.Raw[first:last]
	value := buf[attributeHeaderSize:]
	attr := RawAttribute{
		Type:   t,
		Length: uint16(len(v)),
		Value:  value,
	}
	bin.PutUint16(buf[0:2], attr.Type.Value())
	bin.PutUint16(buf[2:4], attr.Length)
	copy(value, v)

	if attr.Length%padding != 0 {
		bytesToAdd := nearestPaddedValueLength(len(v)) - len(v)
		last += bytesToAdd
		m.grow(last)
		// Zero-filling padding to prevent data leak from previous
		// buffer contents.
		buf = m.Raw[last-bytesToAdd : last]
		for i := range buf {
			buf[i] = 0
		}
		m.Raw = m.Raw[:last]
		m.Length += uint32(bytesToAdd)
	}
	m.Attributes = append(m.Attributes, attr)
	m.WriteLength()
}

// Equal reports whether b is equivalent to m: same type, same
// transaction id and same attribute set. Raw is ignored.
func (m *Message) Equal(b *Message) bool {
	if m == nil && b == nil {
		return true
	}
	if m == nil || b == nil {
		return false
	}
	if m.Type != b.Type {
		return false
	}
	if m.TransactionID != b.TransactionID {
		return false
	}
	if m.Length != b.Length {
		return false
	}
	for _, a := range m.Attributes {
		aB, ok := b.Attributes.Get(a.Type)
		if !ok {
			return false
		}
		if !aB.Equal(a) {
			return false
		}
	}
	return true
}

// WriteLength writes m.Length into the header of m.Raw.
func (m *Message) WriteLength() {
	m.grow(4)
	bin.PutUint16(m.Raw[2:4], uint16(m.Length))
}

// WriteHeader writes the 20-byte header (type, length, magic cookie and
// transaction id) to the underlying buffer. Not goroutine-safe.
func (m *Message) WriteHeader() {
	m.grow(messageHeaderSize)
	_ = m.Raw[:messageHeaderSize] // early bounds check

	bin.PutUint16(m.Raw[0:2], m.Type.Value())
	bin.PutUint32(m.Raw[4:8], magicCookie)
	copy(m.Raw[8:messageHeaderSize], m.TransactionID[:])
	m.WriteLength()
}

// WriteTransactionID writes m.TransactionID to m.Raw.
func (m *Message) WriteTransactionID() {
	copy(m.Raw[8:messageHeaderSize], m.TransactionID[:])
}

// WriteAttributes encodes all m.Attributes to the buffer.
func (m *Message) WriteAttributes() {
	attributes := m.Attributes
	m.Attributes = attributes[:0]
	for _, a := range attributes {
		m.Add(a.Type, a.Value)
	}
}

// WriteType writes m.Type to m.Raw.
func (m *Message) WriteType() {
	m.grow(2)
	bin.PutUint16(m.Raw[0:2], m.Type.Value())
}

// SetType sets m.Type and writes it to m.Raw.
func (m *Message) SetType(t MessageType) {
	m.Type = t
	m.WriteType()
}

// Encode re-encodes the message from its decoded fields.
func (m *Message) Encode() {
	m.Raw = m.Raw[:0]
	m.Length = 0
	m.WriteHeader()
	m.WriteAttributes()
}

// WriteTo implements io.WriterTo.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.Raw)
	return int64(n), err
}

// ReadFrom implements io.ReaderFrom. It reads one message from r into
// m.Raw and decodes it.
func (m *Message) ReadFrom(r io.Reader) (int64, error) {
	tBuf := m.Raw[:cap(m.Raw)]
	var (
		n   int
		err error
	)
	if n, err = r.Read(tBuf); err != nil {
		return int64(n), err
	}
	m.Raw = tBuf[:n]
	return int64(n), m.Decode()
}

// Write copies tBuf to the internal buffer and decodes it, implementing
// io.Writer.
func (m *Message) Write(tBuf []byte) (int, error) {
	m.Raw = append(m.Raw[:0], tBuf...)
	return len(tBuf), m.Decode()
}

// CloneTo clones m to b, including the underlying buffer.
func (m *Message) CloneTo(b *Message) error {
	b.Raw = append(b.Raw[:0], m.Raw...)
	return b.Decode()
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	c := New()
	c.Raw = append(c.Raw[:0], m.Raw...)
	if err := c.Decode(); err != nil {
		// m was decoded or encoded before, so its buffer is valid.
		panic(err) //nolint
	}
	return c
}

// ErrUnexpectedHeaderEOF means that there were not enough bytes in
// m.Raw to read the header.
const ErrUnexpectedHeaderEOF Error = "unexpected EOF: not enough bytes to read header"

// Decode decodes m.Raw into m, validating the header and walking the
// attribute section strictly by declared TLV boundaries.
//
// The whole message is rejected when the first byte does not start with
// two zero bits, the magic cookie is wrong, the declared length does not
// match the remaining byte count exactly, any attribute overruns the
// buffer, or a present FINGERPRINT attribute fails verification.
func (m *Message) Decode() error {
	buf := m.Raw
	if len(buf) < messageHeaderSize {
		return ErrUnexpectedHeaderEOF
	}
	if buf[0]&0xC0 != 0 {
		return newDecodeErr("message", "type",
			"first two bits of a STUN message must be zeroes",
		)
	}
	var (
		t        = bin.Uint16(buf[0:2])
		size     = int(bin.Uint16(buf[2:4]))
		cookie   = bin.Uint32(buf[4:8])
		fullSize = messageHeaderSize + size
	)
	if cookie != magicCookie {
		msg := fmt.Sprintf("%x is invalid magic cookie (should be %x)", cookie, magicCookie)
		return newDecodeErr("message", "cookie", msg)
	}
	if len(buf) != fullSize {
		msg := fmt.Sprintf(
			"buffer length %d does not match %d (header + declared attributes size)",
			len(buf), fullSize,
		)
		return newDecodeErr("message", "length", msg)
	}
	// Saving the header.
	m.Type.ReadValue(t)
	m.Length = uint32(size)
	copy(m.TransactionID[:], buf[8:messageHeaderSize])

	m.Attributes = m.Attributes[:0]
	var (
		offset = 0
		b      = buf[messageHeaderSize:fullSize]
	)
	for offset < size {
		if len(b) < attributeHeaderSize {
			msg := fmt.Sprintf(
				"buffer length %d is less than %d (expected header size)",
				len(b), attributeHeaderSize,
			)
			return newAttrDecodeErr("header", msg)
		}
		a := RawAttribute{
			Type:   AttrType(bin.Uint16(b[0:2])),
			Length: bin.Uint16(b[2:4]),
		}
		aL := int(a.Length)                    // attribute value length
		aBuffL := nearestPaddedValueLength(aL) // payload length with padding
		b = b[attributeHeaderSize:]
		offset += attributeHeaderSize
		if len(b) < aBuffL {
			msg := fmt.Sprintf(
				"buffer length %d is less than %d (expected value size for %s)",
				len(b), aBuffL, a.Type,
			)
			return newAttrDecodeErr("value", msg)
		}
		a.Value = b[:aL]
		offset += aBuffL
		b = b[aBuffL:]
		m.Attributes = append(m.Attributes, a)

		if a.Type == AttrFingerprint {
			// FINGERPRINT covers all bytes before its own TLV and must be
			// the last attribute of the message. A present but wrong
			// fingerprint is treated as corruption of the whole message.
			if offset != size {
				return newDecodeErr("message", "fingerprint",
					"FINGERPRINT is not the last attribute",
				)
			}
			if err := Fingerprint.Check(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// MaxPacketSize is the maximum size of a STUN datagram this package
// processes.
const MaxPacketSize = 2048

// MessageClass is an 8-bit representation of the 2-bit STUN message
// class.
type MessageClass byte

// Possible values for message class in STUN Message Type.
const (
	ClassRequest         MessageClass = 0x00 // 0b00
	ClassIndication      MessageClass = 0x01 // 0b01
	ClassSuccessResponse MessageClass = 0x02 // 0b10
	ClassErrorResponse   MessageClass = 0x03 // 0b11
)

func (c MessageClass) String() string {
	switch c {
	case ClassRequest:
		return "request"
	case ClassIndication:
		return "indication"
	case ClassSuccessResponse:
		return "success response"
	case ClassErrorResponse:
		return "error response"
	default:
		panic("unknown message class") //nolint
	}
}

// Method is a uint16 representation of the 12-bit STUN method.
type Method uint16

// Methods from RFC 5389 and companion specifications.
const (
	MethodBinding          Method = 0x001
	MethodAllocate         Method = 0x003
	MethodRefresh          Method = 0x004
	MethodSend             Method = 0x006
	MethodData             Method = 0x007
	MethodCreatePermission Method = 0x008
	MethodChannelBind      Method = 0x009
)

func (m Method) String() string {
	switch m {
	case MethodBinding:
		return "Binding"
	case MethodAllocate:
		return "Allocate"
	case MethodRefresh:
		return "Refresh"
	case MethodSend:
		return "Send"
	case MethodData:
		return "Data"
	case MethodCreatePermission:
		return "CreatePermission"
	case MethodChannelBind:
		return "ChannelBind"
	default:
		return fmt.Sprintf("0x%s", strconv.FormatUint(uint64(m), 16))
	}
}

// MessageType is the STUN Message Type field: 2-bit class interleaved
// with the 12-bit method.
type MessageType struct {
	Method Method
	Class  MessageClass
}

// NewType returns a new MessageType with provided method and class.
func NewType(method Method, class MessageClass) MessageType {
	return MessageType{
		Method: method,
		Class:  class,
	}
}

// AddTo sets m type to t.
func (t MessageType) AddTo(m *Message) error {
	m.SetType(t)
	return nil
}

// Common STUN message types.
var (
	// BindingRequest is a Binding request message type.
	BindingRequest = NewType(MethodBinding, ClassRequest)
	// BindingSuccess is a Binding success response message type.
	BindingSuccess = NewType(MethodBinding, ClassSuccessResponse)
	// BindingError is a Binding error response message type.
	BindingError = NewType(MethodBinding, ClassErrorResponse)
)

const (
	methodABits = 0xf   // 0b0000000000001111
	methodBBits = 0x70  // 0b0000000001110000
	methodDBits = 0xf80 // 0b0000111110000000

	methodBShift = 1
	methodDShift = 2

	firstBit  = 0x1
	secondBit = 0x2

	c0Bit = firstBit
	c1Bit = secondBit

	classC0Shift = 4
	classC1Shift = 7
)

// Value returns the bit representation of the message type.
//
//	 0                 1
//	 2  3  4 5 6 7 8 9 0 1 2 3 4 5
//	+--+--+-+-+-+-+-+-+-+-+-+-+-+-+
//	|M |M |M|M|M|C|M|M|M|C|M|M|M|M|
//	|11|10|9|8|7|1|6|5|4|0|3|2|1|0|
//	+--+--+-+-+-+-+-+-+-+-+-+-+-+-+
//
// See RFC 5389 Section 6, Figure 3.
func (t MessageType) Value() uint16 {
	// Splitting M into A (M0-M3), B (M4-M6) and D (M7-M11), then
	// shifting B and D left to leave holes for the class bits C0 (bit 4)
	// and C1 (bit 8).
	m := uint16(t.Method)
	a := m & methodABits
	b := m & methodBBits
	d := m & methodDBits
	m = a + (b << methodBShift) + (d << methodDShift)

	c := uint16(t.Class)
	c0 := (c & c0Bit) << classC0Shift
	c1 := (c & c1Bit) << classC1Shift

	return m + c0 + c1
}

// ReadValue decodes uint16 into MessageType.
func (t *MessageType) ReadValue(v uint16) {
	c0 := (v >> classC0Shift) & c0Bit
	c1 := (v >> classC1Shift) & c1Bit
	t.Class = MessageClass(c0 + c1)

	a := v & methodABits
	b := (v >> methodBShift) & methodBBits
	d := (v >> methodDShift) & methodDBits
	t.Method = Method(a + b + d)
}

func (t MessageType) String() string {
	return fmt.Sprintf("%s %s", t.Method, t.Class)
}
