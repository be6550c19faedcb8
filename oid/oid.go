// Package oid models the 64-bit object identifiers used as record keys.
package oid

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	counterMask = 0x0000FFFFFFFFFFFF
	// KeySize is the number of leading key bytes that carry the identifier.
	KeySize = 8
)

// ID is an object identifier: [tableId:16][counter:48].
type ID uint64

// New composes an ID from table and counter parts.
func New(table uint16, counter uint64) ID {
	return ID(uint64(table)<<48 | counter&counterMask)
}

// TableID returns the logical sub-database that issued the id.
func (id ID) TableID() uint16 { return uint16((uint64(id) >> 48) & 0xFFFF) }

// Counter returns the per-table counter.
func (id ID) Counter() uint64 { return uint64(id) & counterMask }

// String formats the id as fixed-width uppercase hex with 0x prefix.
func (id ID) String() string { return fmt.Sprintf("0x%016X", uint64(id)) }

// Key returns the little-endian key bytes.
func (id ID) Key() []byte {
	b := make([]byte, KeySize)
	binary.LittleEndian.PutUint64(b, uint64(id))
	return b
}

// KeyHex returns the key as emitted by the dump protocol.
func (id ID) KeyHex() string { return hex.EncodeToString(id.Key()) }

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// FromKey reads an id from the first 8 key bytes.
func FromKey(key []byte) (ID, error) {
	if len(key) < KeySize {
		return 0, errors.Errorf("oid: key too short: %d bytes", len(key))
	}
	return ID(binary.LittleEndian.Uint64(key[:KeySize])), nil
}

// FromKeyHex decodes a dump-protocol key line.
func FromKeyHex(keyHex string) (ID, error) {
	keyHex = NormalizeKeyHex(keyHex)
	if len(keyHex) < KeySize*2 {
		return 0, errors.Errorf("oid: key too short: %q", keyHex)
	}
	b, err := hex.DecodeString(keyHex[:KeySize*2])
	if err != nil {
		return 0, errors.Wrapf(err, "oid: invalid key %q", keyHex)
	}
	return FromKey(b)
}

// NormalizeKeyHex trims and lowercases a key and cuts it to the identifier prefix.
func NormalizeKeyHex(keyHex string) string {
	keyHex = strings.ToLower(strings.TrimSpace(keyHex))
	if len(keyHex) > KeySize*2 {
		keyHex = keyHex[:KeySize*2]
	}
	return keyHex
}

// Parse accepts "0x..." hex, bare hex or decimal.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(lower, "0x"):
		v, err = strconv.ParseUint(lower[2:], 16, 64)
	default:
		v, err = strconv.ParseUint(lower, 10, 64)
		if err != nil {
			v, err = strconv.ParseUint(lower, 16, 64)
		}
	}
	if err != nil {
		return 0, errors.Wrapf(err, "oid: invalid id %q", s)
	}
	return ID(v), nil
}
