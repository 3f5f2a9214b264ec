package models

import (
	"encoding/hex"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

const Bytes32Length = 32

// Identity is a chain-agnostic 32 byte account or emitter identity.
// EVM addresses are left-padded with zeros.
type Identity [Bytes32Length]byte

// Fingerprint is the replay-protection key of an attested message.
type Fingerprint [Bytes32Length]byte

func parseBytes32(s string) ([Bytes32Length]byte, error) {
	var out [Bytes32Length]byte
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != Bytes32Length {
		return out, fmt.Errorf("invalid length: expected %d bytes, got %d", Bytes32Length, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func unmarshalBytes32BSON(t bsontype.Type, data []byte) ([Bytes32Length]byte, error) {
	var out [Bytes32Length]byte
	raw := bson.RawValue{Type: t, Value: data}
	s, ok := raw.StringValueOK()
	if !ok {
		return out, fmt.Errorf("cannot decode %s into a 32 byte value", t)
	}
	return parseBytes32(s)
}

func ParseIdentity(s string) (Identity, error) {
	b, err := parseBytes32(s)
	return Identity(b), err
}

func (i Identity) Hex() string {
	return "0x" + hex.EncodeToString(i[:])
}

func (i Identity) String() string {
	return i.Hex()
}

func (i Identity) IsZero() bool {
	return i == Identity{}
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.Hex()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	b, err := parseBytes32(string(text))
	if err != nil {
		return err
	}
	*i = Identity(b)
	return nil
}

func (i Identity) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(i.Hex())
}

func (i *Identity) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	b, err := unmarshalBytes32BSON(t, data)
	if err != nil {
		return err
	}
	*i = Identity(b)
	return nil
}

func ParseFingerprint(s string) (Fingerprint, error) {
	b, err := parseBytes32(s)
	return Fingerprint(b), err
}

func (f Fingerprint) Hex() string {
	return "0x" + hex.EncodeToString(f[:])
}

func (f Fingerprint) String() string {
	return f.Hex()
}

func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

func (f *Fingerprint) UnmarshalText(text []byte) error {
	b, err := parseBytes32(string(text))
	if err != nil {
		return err
	}
	*f = Fingerprint(b)
	return nil
}

func (f Fingerprint) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(f.Hex())
}

func (f *Fingerprint) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	b, err := unmarshalBytes32BSON(t, data)
	if err != nil {
		return err
	}
	*f = Fingerprint(b)
	return nil
}
