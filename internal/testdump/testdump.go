// Package testdump builds payloads and dump-protocol text for tests.
package testdump

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/viant/odbview/field"
	"github.com/viant/odbview/oid"
)

// Field is one raw payload field.
type Field struct {
	Hash uint32
	Data []byte
}

// Record is one key/value entry of a dump.
type Record struct {
	ID    oid.ID
	Value []byte
}

// String encodes a u16 length-prefixed string.
func String(s string) []byte {
	return append(binary.LittleEndian.AppendUint16(nil, uint16(len(s))), s...)
}

// Int encodes a little-endian int32.
func Int(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

// Named creates a field whose hash is derived from name.
func Named(name string, data []byte) Field {
	return Field{Hash: field.Hash(name), Data: data}
}

// Payload encodes fields with the record framing.
func Payload(fields ...Field) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(len(fields)))
	for _, f := range fields {
		out = binary.LittleEndian.AppendUint32(out, f.Hash)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(f.Data)))
		out = append(out, f.Data...)
	}
	return out
}

// ClassPayload encodes a payload whose first field is the class name.
func ClassPayload(class string, fields ...Field) []byte {
	all := append([]Field{{Hash: field.ClassNameHash, Data: String(class)}}, fields...)
	return Payload(all...)
}

// Compress zlib-compresses data.
func Compress(data []byte) []byte {
	var buf bytes.Buffer
	writer := zlib.NewWriter(&buf)
	_, _ = writer.Write(data)
	_ = writer.Close()
	return buf.Bytes()
}

// Text renders records as db_dump output.
func Text(records ...Record) string {
	var sb strings.Builder
	sb.WriteString("VERSION=3\nformat=bytevalue\ntype=btree\ndb_pagesize=16384\nHEADER=END\n")
	for _, r := range records {
		key := append(r.ID.Key(), 0, 0)
		sb.WriteString(" " + hex.EncodeToString(key) + "\n")
		sb.WriteString(" " + hex.EncodeToString(r.Value) + "\n")
	}
	sb.WriteString("DATA=END\n")
	return sb.String()
}

// Fixture returns a mixed set of compressed and raw records across classes.
func Fixture() []Record {
	classes := []string{"CreatureObject", "BuildingObject", "CreatureObject", "PlayerObject", "CreatureObject",
		"BuildingObject", "CreatureObject", "PlayerObject", "CreatureObject", "CreatureObject"}
	var records []Record
	for i, class := range classes {
		payload := ClassPayload(class,
			Named("SceneObject.containerVolume", Int(int32(i))),
			Named("SceneObject.objectName", append(String("obj_n"), String(class)...)),
		)
		if i%2 == 0 {
			payload = Compress(payload)
		}
		records = append(records, Record{ID: oid.New(1, uint64(i+1)), Value: payload})
	}
	return records
}
