package stun

import (
	"errors"
	"fmt"
)

// Attributes is the ordered list of attributes of a message. Order is
// significant on the wire and is preserved through encode and decode.
type Attributes []RawAttribute

// Get returns the first attribute of type t and whether it was found.
//
// The returned RawAttribute shares memory with the message buffer and is
// valid only until the message is modified or reused.
func (a Attributes) Get(t AttrType) (RawAttribute, bool) {
	for _, candidate := range a {
		if candidate.Type == t {
			return candidate, true
		}
	}
	return RawAttribute{}, false
}

// AttrType is the 16-bit type of a message attribute.
type AttrType uint16

// Required reports whether the attribute type is comprehension-required:
// values from 0x0000 through 0x7FFF must be understood by the receiving
// agent. See RFC 5389 Section 18.2.
func (t AttrType) Required() bool {
	return t <= 0x7FFF
}

// Optional reports whether the attribute type is comprehension-optional.
func (t AttrType) Optional() bool {
	return t >= 0x8000
}

// Value returns the numeric representation of the attribute type.
func (t AttrType) Value() uint16 {
	return uint16(t)
}

// Attribute types introduced by RFC 5389.
const (
	AttrMappedAddress     AttrType = 0x0001 // MAPPED-ADDRESS
	AttrUsername          AttrType = 0x0006 // USERNAME
	AttrMessageIntegrity  AttrType = 0x0008 // MESSAGE-INTEGRITY
	AttrErrorCode         AttrType = 0x0009 // ERROR-CODE
	AttrUnknownAttributes AttrType = 0x000A // UNKNOWN-ATTRIBUTES
	AttrRealm             AttrType = 0x0014 // REALM
	AttrNonce             AttrType = 0x0015 // NONCE
	AttrXORMappedAddress  AttrType = 0x0020 // XOR-MAPPED-ADDRESS
	AttrSoftware          AttrType = 0x8022 // SOFTWARE
	AttrAlternateServer   AttrType = 0x8023 // ALTERNATE-SERVER
	AttrFingerprint       AttrType = 0x8028 // FINGERPRINT
)

// Attribute types introduced by RFC 8489.
const (
	AttrMessageIntegritySHA256 AttrType = 0x001C // MESSAGE-INTEGRITY-SHA256
	AttrPasswordAlgorithm      AttrType = 0x001D // PASSWORD-ALGORITHM
	AttrUserhash               AttrType = 0x001E // USERHASH
	AttrPasswordAlgorithms     AttrType = 0x8002 // PASSWORD-ALGORITHMS
	AttrAlternateDomain        AttrType = 0x8003 // ALTERNATE-DOMAIN
)

// Attribute types defined by companion specifications and kept here so
// unknown-attribute reporting can name them.
const (
	AttrChannelNumber      AttrType = 0x000C // CHANNEL-NUMBER
	AttrLifetime           AttrType = 0x000D // LIFETIME
	AttrXORPeerAddress     AttrType = 0x0012 // XOR-PEER-ADDRESS
	AttrData               AttrType = 0x0013 // DATA
	AttrXORRelayedAddress  AttrType = 0x0016 // XOR-RELAYED-ADDRESS
	AttrEvenPort           AttrType = 0x0018 // EVEN-PORT
	AttrRequestedTransport AttrType = 0x0019 // REQUESTED-TRANSPORT
	AttrDontFragment       AttrType = 0x001A // DONT-FRAGMENT
	AttrReservationToken   AttrType = 0x0022 // RESERVATION-TOKEN
	AttrPriority           AttrType = 0x0024 // PRIORITY
	AttrUseCandidate       AttrType = 0x0025 // USE-CANDIDATE
	AttrICEControlled      AttrType = 0x8029 // ICE-CONTROLLED
	AttrICEControlling     AttrType = 0x802A // ICE-CONTROLLING
)

// attrNames returns the mapping of known attribute types to their
// canonical names.
func attrNames() map[AttrType]string {
	return map[AttrType]string{
		AttrMappedAddress:          "MAPPED-ADDRESS",
		AttrUsername:               "USERNAME",
		AttrErrorCode:              "ERROR-CODE",
		AttrMessageIntegrity:       "MESSAGE-INTEGRITY",
		AttrUnknownAttributes:      "UNKNOWN-ATTRIBUTES",
		AttrRealm:                  "REALM",
		AttrNonce:                  "NONCE",
		AttrXORMappedAddress:       "XOR-MAPPED-ADDRESS",
		AttrSoftware:               "SOFTWARE",
		AttrAlternateServer:        "ALTERNATE-SERVER",
		AttrFingerprint:            "FINGERPRINT",
		AttrMessageIntegritySHA256: "MESSAGE-INTEGRITY-SHA256",
		AttrPasswordAlgorithm:      "PASSWORD-ALGORITHM",
		AttrUserhash:               "USERHASH",
		AttrPasswordAlgorithms:     "PASSWORD-ALGORITHMS",
		AttrAlternateDomain:        "ALTERNATE-DOMAIN",
		AttrChannelNumber:          "CHANNEL-NUMBER",
		AttrLifetime:               "LIFETIME",
		AttrXORPeerAddress:         "XOR-PEER-ADDRESS",
		AttrData:                   "DATA",
		AttrXORRelayedAddress:      "XOR-RELAYED-ADDRESS",
		AttrEvenPort:               "EVEN-PORT",
		AttrRequestedTransport:     "REQUESTED-TRANSPORT",
		AttrDontFragment:           "DONT-FRAGMENT",
		AttrReservationToken:       "RESERVATION-TOKEN",
		AttrPriority:               "PRIORITY",
		AttrUseCandidate:           "USE-CANDIDATE",
		AttrICEControlled:          "ICE-CONTROLLED",
		AttrICEControlling:         "ICE-CONTROLLING",
	}
}

func (t AttrType) String() string {
	s, ok := attrNames()[t]
	if !ok {
		// Just return hex representation of unknown attribute type.
		return fmt.Sprintf("0x%x", uint16(t))
	}
	return s
}

// RawAttribute is a type-length-value attribute as it appears on the
// wire. Value holds the attribute value without padding.
type RawAttribute struct {
	Type   AttrType
	Length uint16 // value length, pre-padding
	Value  []byte
}

// AddTo implements Setter, adding the raw attribute to m as is.
func (a RawAttribute) AddTo(m *Message) error {
	m.Add(a.Type, a.Value)
	return nil
}

// Equal reports whether a equals b.
func (a RawAttribute) Equal(b RawAttribute) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Length != b.Length {
		return false
	}
	if len(a.Value) != len(b.Value) {
		return false
	}
	for i, v := range a.Value {
		if b.Value[i] != v {
			return false
		}
	}
	return true
}

func (a RawAttribute) String() string {
	return fmt.Sprintf("%s: 0x%x", a.Type, a.Value)
}

// ErrAttributeNotFound means that attribute with provided attribute
// type does not exist in message.
var ErrAttributeNotFound = errors.New("attribute not found")

// Get returns the value of the first attribute of type t, or
// ErrAttributeNotFound if the message has no such attribute.
//
// The returned slice shares memory with the message buffer.
func (m *Message) Get(t AttrType) ([]byte, error) {
	v, ok := m.Attributes.Get(t)
	if !ok {
		return nil, ErrAttributeNotFound
	}
	return v.Value, nil
}

// Contains reports whether the message has an attribute of type t.
func (m *Message) Contains(t AttrType) bool {
	for _, a := range m.Attributes {
		if a.Type == t {
			return true
		}
	}
	return false
}

// CheckComprehension returns the comprehension-required attribute types
// of m that the known predicate does not recognize, in message order.
// If known is nil, the types this package implements are considered
// recognized. A nil result means the message can be processed safely.
//
// Whether an offending request is answered with a 420 or handed to the
// application is the caller's policy. See Server.SurfaceUnknownAttributes
// for the bundled server's take.
func (m *Message) CheckComprehension(known func(AttrType) bool) []AttrType {
	if known == nil {
		known = defaultRecognized
	}
	var unknown []AttrType
	for _, a := range m.Attributes {
		if a.Type.Optional() {
			continue
		}
		if !known(a.Type) {
			unknown = append(unknown, a.Type)
		}
	}
	return unknown
}

func defaultRecognized(t AttrType) bool {
	switch t {
	case AttrMappedAddress, AttrUsername, AttrMessageIntegrity,
		AttrErrorCode, AttrUnknownAttributes, AttrRealm, AttrNonce,
		AttrXORMappedAddress:
		return true
	}
	return false
}
