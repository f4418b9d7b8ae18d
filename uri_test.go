package stun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	for _, tc := range []struct {
		rawURI   string
		expected URI
		mustFail bool
	}{
		{
			rawURI: "stun:example.org",
			expected: URI{
				Host:   "example.org",
				Scheme: Scheme,
			},
		},
		{
			rawURI: "stuns:example.org",
			expected: URI{
				Host:   "example.org",
				Scheme: SchemeSecure,
			},
		},
		{
			rawURI: "stun:example.org:8000",
			expected: URI{
				Host:   "example.org",
				Scheme: Scheme,
				Port:   8000,
			},
		},
		{
			rawURI: "stun:[::1]:3478",
			expected: URI{
				Host:   "::1",
				Scheme: Scheme,
				Port:   3478,
			},
		},
		{rawURI: "stun:example.org:port", mustFail: true},
		{rawURI: "stun://example.org", mustFail: true},
		{rawURI: "turn:example.org", mustFail: true},
		{rawURI: ":::", mustFail: true},
	} {
		t.Run(tc.rawURI, func(t *testing.T) {
			parsed, err := ParseURI(tc.rawURI)
			if tc.mustFail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, parsed)
		})
	}
}

func TestURI_String(t *testing.T) {
	assert.Equal(t, "stun:example.org", URI{Scheme: Scheme, Host: "example.org"}.String())
	assert.Equal(t, "stuns:example.org:3478", URI{Scheme: SchemeSecure, Host: "example.org", Port: 3478}.String())
	assert.Equal(t, "example.org", URI{Host: "example.org"}.String())
}
