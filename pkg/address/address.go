// Package address encodes and decodes Kaspa addresses.
//
// An address is "<prefix>:<base32 body>" where the body carries a version
// byte, the payload and an 8 character checksum computed with the 40-bit
// BCH polymod used by cashaddr.
package address

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/kaspa-bridge/deposit-sender/pkg/config"
)

type Version byte

const (
	VersionPubKey      Version = 0
	VersionPubKeyECDSA Version = 1
	VersionScriptHash  Version = 8
)

var versionPayloadLength = map[Version]int{
	VersionPubKey:      32,
	VersionPubKeyECDSA: 33,
	VersionScriptHash:  32,
}

func (v Version) String() string {
	switch v {
	case VersionPubKey:
		return "PubKey"
	case VersionPubKeyECDSA:
		return "PubKeyECDSA"
	case VersionScriptHash:
		return "ScriptHash"
	default:
		return fmt.Sprintf("Version(%d)", byte(v))
	}
}

var (
	ErrMissingPrefix   = errors.New("address is missing a network prefix")
	ErrUnknownPrefix   = errors.New("unknown address prefix")
	ErrInvalidChecksum = errors.New("invalid address checksum")
	ErrInvalidChar     = errors.New("invalid character in address")
	ErrMixedCase       = errors.New("address mixes upper and lower case")
	ErrWrongNetwork    = errors.New("address belongs to a different network")
)

// Address is a decoded Kaspa address.
type Address struct {
	Prefix  string
	Version Version
	Payload []byte
}

// New builds an address after checking the payload length for the version.
func New(prefix string, version Version, payload []byte) (*Address, error) {
	if _, ok := config.AddressPrefixToNetworkType[prefix]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrefix, prefix)
	}
	want, ok := versionPayloadLength[version]
	if !ok {
		return nil, fmt.Errorf("unsupported address version %d", byte(version))
	}
	if len(payload) != want {
		return nil, fmt.Errorf("%s address payload must be %d bytes, got %d", version, want, len(payload))
	}
	return &Address{Prefix: prefix, Version: version, Payload: append([]byte{}, payload...)}, nil
}

// NewPubKey returns the P2PK address of a 32 byte x-only Schnorr public key.
func NewPubKey(network config.NetworkId, xOnlyPubKey []byte) (*Address, error) {
	return New(network.AddressPrefix(), VersionPubKey, xOnlyPubKey)
}

// Parse decodes an address of any known network.
func Parse(s string) (*Address, error) {
	s = strings.TrimSpace(s)
	if strings.ToLower(s) != s && strings.ToUpper(s) != s {
		return nil, ErrMixedCase
	}
	s = strings.ToLower(s)

	prefix, body, ok := strings.Cut(s, ":")
	if !ok || prefix == "" {
		return nil, ErrMissingPrefix
	}
	if _, known := config.AddressPrefixToNetworkType[prefix]; !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrefix, prefix)
	}
	if len(body) < checksumLength+1 {
		return nil, fmt.Errorf("address body is too short")
	}

	data := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		v := charsetRev[body[i]]
		if v < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidChar, body[i])
		}
		data[i] = byte(v)
	}

	if polymod(prefix, data) != 0 {
		return nil, ErrInvalidChecksum
	}

	decoded, err := convertBits(data[:len(data)-checksumLength], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("invalid address body: %w", err)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("address has no version byte")
	}
	return New(prefix, Version(decoded[0]), decoded[1:])
}

// ParseForNetwork decodes an address and requires it to match the network prefix.
func ParseForNetwork(s string, network config.NetworkId) (*Address, error) {
	addr, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if addr.Prefix != network.AddressPrefix() {
		return nil, fmt.Errorf("%w: %s address on %s", ErrWrongNetwork, addr.Prefix, network)
	}
	return addr, nil
}

// String renders the canonical lowercase form.
func (a *Address) String() string {
	data, _ := convertBits(append([]byte{byte(a.Version)}, a.Payload...), 8, 5, true)
	checksum := checksum(a.Prefix, data)

	var sb strings.Builder
	sb.Grow(len(a.Prefix) + 1 + len(data) + checksumLength)
	sb.WriteString(a.Prefix)
	sb.WriteByte(':')
	for _, d := range data {
		sb.WriteByte(charset[d])
	}
	for i := 0; i < checksumLength; i++ {
		sb.WriteByte(charset[(checksum>>(5*(checksumLength-1-i)))&31])
	}
	return sb.String()
}

func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Prefix == other.Prefix && a.Version == other.Version && bytes.Equal(a.Payload, other.Payload)
}

func (a *Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}
