// Package ss58 implements the SS58 address format used by Substrate chains:
// base58(prefix || pubkey || checksum) where the checksum is the first two
// bytes of blake2b-512 over "SS58PRE" || prefix || pubkey.
package ss58

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
)

// checksumPrefix is the domain separator mixed into every SS58 checksum.
var checksumPrefix = []byte("SS58PRE")

const (
	publicKeyLength = 32
	checksumLength  = 2
	// MaxPrefix is the largest representable SS58 network prefix.
	MaxPrefix = 0x3FFF
)

// Decode decodes an SS58 address into its public key and network prefix.
//
// Parameters:
// - address: the SS58-encoded address.
//
// Returns:
// - []byte: the 32-byte public key.
// - uint16: the network prefix the address was encoded with.
// - error: an INVALID_ADDRESS error for malformed input.
func Decode(address string) ([]byte, uint16, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, 0, xerrors.Wrap(xerrors.CodeInvalidAddress, err, "not a base58 address").
			WithDetail("address", address)
	}
	if len(raw) < 1+publicKeyLength+checksumLength {
		return nil, 0, xerrors.New(xerrors.CodeInvalidAddress, "address payload too short").
			WithDetail("address", address)
	}

	var prefix uint16
	var offset int
	switch {
	case raw[0] < 64:
		prefix = uint16(raw[0])
		offset = 1
	case raw[0] < 128:
		// Two-byte prefix: 14 bits spread over the low 6 bits of each byte.
		lower := byte((raw[0]&0x3F)<<2) | raw[1]>>6
		upper := raw[1] & 0x3F
		prefix = uint16(lower) | uint16(upper)<<8
		offset = 2
	default:
		return nil, 0, xerrors.New(xerrors.CodeInvalidAddress, "reserved address prefix").
			WithDetail("address", address)
	}

	if len(raw) != offset+publicKeyLength+checksumLength {
		return nil, 0, xerrors.New(xerrors.CodeInvalidAddress, "unexpected address length").
			WithDetail("address", address)
	}

	body := raw[:len(raw)-checksumLength]
	pubkey := raw[offset : len(raw)-checksumLength]

	expected := checksum(body)
	actual := raw[len(raw)-checksumLength:]
	if expected[0] != actual[0] || expected[1] != actual[1] {
		return nil, 0, xerrors.New(xerrors.CodeInvalidAddress, "address checksum mismatch").
			WithDetail("address", address)
	}

	out := make([]byte, publicKeyLength)
	copy(out, pubkey)
	return out, prefix, nil
}

// Encode encodes a 32-byte public key into an SS58 address for the given
// network prefix.
//
// Parameters:
// - pubkey: the 32-byte public key.
// - prefix: the network prefix (0..16383).
//
// Returns:
// - string: the SS58-encoded address.
// - error: an error for invalid key length or prefix.
func Encode(pubkey []byte, prefix uint16) (string, error) {
	if len(pubkey) != publicKeyLength {
		return "", errors.Errorf("public key must be %d bytes, got %d", publicKeyLength, len(pubkey))
	}
	if prefix > MaxPrefix {
		return "", errors.Errorf("prefix %d out of range", prefix)
	}

	var body []byte
	if prefix < 64 {
		body = append(body, byte(prefix))
	} else {
		body = append(body,
			byte((prefix&0xFC)>>2)|0x40,
			byte(prefix>>8)|byte(prefix&0x3)<<6,
		)
	}
	body = append(body, pubkey...)

	sum := checksum(body)
	return base58.Encode(append(body, sum[:checksumLength]...)), nil
}

// Reencode re-encodes an address into the given network prefix. An address
// valid on one network is not byte-identical across prefixes; re-encoding the
// recipient prevents cross-network misdelivery.
//
// Parameters:
// - address: the SS58 address in any prefix.
// - prefix: the target network prefix.
//
// Returns:
// - string: the address re-encoded to the target prefix.
// - error: an INVALID_ADDRESS error when the input does not decode.
func Reencode(address string, prefix uint16) (string, error) {
	pubkey, _, err := Decode(address)
	if err != nil {
		return "", err
	}
	return Encode(pubkey, prefix)
}

// Valid reports whether the address decodes under any prefix.
func Valid(address string) bool {
	_, _, err := Decode(address)
	return err == nil
}

func checksum(body []byte) [blake2b.Size]byte {
	input := make([]byte, 0, len(checksumPrefix)+len(body))
	input = append(input, checksumPrefix...)
	input = append(input, body...)
	return blake2b.Sum512(input)
}
