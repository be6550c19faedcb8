package record

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/viant/odbview/field"
)

// UnknownClass is reported when a record carries no class-name field.
const UnknownClass = "(unknown)"

const fieldHeaderSize = 8

// Summary is the cheapest record representation.
type Summary struct {
	ClassName        string `json:"className"`
	FieldCount       int    `json:"fieldCount"`
	CompressedSize   int    `json:"compressedSize"`
	DecompressedSize int    `json:"decompressedSize"`
}

// Detail carries every decoded field.
type Detail struct {
	ClassName        string               `json:"className"`
	Fields           []field.DecodedField `json:"fields"`
	DecompressedSize int                  `json:"decompressedSize"`
}

// DecodeHex converts a dump-protocol value line into bytes.
func DecodeHex(valueHex string) ([]byte, error) {
	data, err := hex.DecodeString(strings.TrimSpace(valueHex))
	if err != nil {
		return nil, errors.Wrap(err, "record: invalid value hex")
	}
	return data, nil
}

// fields walks the u16 count + (u32 hash, u32 size, data) framing, stopping
// at the first field whose declared size overruns the payload.
func fields(payload []byte, visit func(hash uint32, data []byte) bool) int {
	if len(payload) < 2 {
		return 0
	}
	count := int(binary.LittleEndian.Uint16(payload))
	off := 2
	for i := 0; i < count; i++ {
		if len(payload)-off < fieldHeaderSize {
			return count
		}
		hash := binary.LittleEndian.Uint32(payload[off:])
		size := int(binary.LittleEndian.Uint32(payload[off+4:]))
		off += fieldHeaderSize
		if size < 0 || size > len(payload)-off {
			return count
		}
		if !visit(hash, payload[off:off+size]) {
			return count
		}
		off += size
	}
	return count
}

func className(data []byte) string {
	value := field.Decode(field.ParseType("String"), data)
	if value == "" {
		return UnknownClass
	}
	return value
}

// ParseSummary extracts the class name and counts, scanning fields only
// until the class-name field is found.
func ParseSummary(value []byte) Summary {
	payload := Decompress(value)
	ret := Summary{ClassName: UnknownClass, CompressedSize: len(value), DecompressedSize: len(payload)}
	ret.FieldCount = fields(payload, func(hash uint32, data []byte) bool {
		if hash != field.ClassNameHash {
			return true
		}
		ret.ClassName = className(data)
		return false
	})
	return ret
}

// ParseDetail decodes every field, returning the fields parsed before the
// first structurally invalid one.
func ParseDetail(value []byte, dict *field.Dictionary) Detail {
	payload := Decompress(value)
	ret := Detail{ClassName: UnknownClass, DecompressedSize: len(payload)}
	fields(payload, func(hash uint32, data []byte) bool {
		decoded := dict.DecodeField(hash, data)
		if hash == field.ClassNameHash {
			ret.ClassName = className(data)
		}
		ret.Fields = append(ret.Fields, decoded)
		return true
	})
	return ret
}
