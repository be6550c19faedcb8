package field

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const (
	hexDumpLimit       = 64
	maxCollectionCount = 10000
	collectionPreview  = 20
	mapPreviewBytes    = 16
	coordinateFields   = 6
	maxLegacyFields    = 32
)

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Decode renders field bytes according to the declared type. It never fails:
// bytes that do not fit the type are rendered with HexDump.
func Decode(t Type, data []byte) string {
	switch t.Kind {
	case KindCollection:
		return decodeCollection(t, data)
	case KindMap:
		return decodeMap(data)
	case KindCoordinate:
		return decodeCoordinate(data)
	case KindUnknown:
		return HexDump(data)
	}
	c := &cursor{data: data}
	value, ok := decodeValue(t, c)
	if !ok {
		return HexDump(data)
	}
	return value
}

// HexDump renders up to the first 64 bytes as spaced uppercase hex.
func HexDump(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	n := len(data)
	if n > hexDumpLimit {
		n = hexDumpLimit
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", data[i])
	}
	if len(data) > hexDumpLimit {
		fmt.Fprintf(&sb, "... (%d bytes)", len(data))
	}
	return sb.String()
}

// decodeValue reads one value of a non-container kind from the cursor.
func decodeValue(t Type, c *cursor) (string, bool) {
	switch t.Kind {
	case KindBool:
		v, ok := c.u8()
		return strconv.FormatBool(v != 0), ok
	case KindByte:
		v, ok := c.u8()
		return strconv.Itoa(int(v)), ok
	case KindShort:
		v, ok := c.u16()
		return strconv.Itoa(int(int16(v))), ok
	case KindUnsignedShort:
		v, ok := c.u16()
		return strconv.Itoa(int(v)), ok
	case KindInt, KindAtomicInteger:
		v, ok := c.i32()
		return strconv.Itoa(int(v)), ok
	case KindUnsignedInt:
		v, ok := c.u32()
		if v > 0xFFFF {
			return fmt.Sprintf("0x%08X", v), ok
		}
		return strconv.FormatUint(uint64(v), 10), ok
	case KindFloat:
		v, ok := c.f32()
		return formatFloat(v), ok
	case KindInt64:
		v, ok := c.u64()
		if v == 0 {
			return "0", ok
		}
		return fmt.Sprintf("0x%016X", v), ok
	case KindReference:
		v, ok := c.u64()
		if v == 0 {
			return "null", ok
		}
		return fmt.Sprintf("0x%016X", v), ok
	case KindString:
		return readString(c)
	case KindUnicodeString:
		return readUnicode(c)
	case KindQuaternion:
		parts := make([]string, 4)
		for i := range parts {
			v, ok := c.f32()
			if !ok {
				return "", false
			}
			parts[i] = strconv.FormatFloat(float64(v), 'f', 4, 32)
		}
		return "(" + strings.Join(parts, ", ") + ")", true
	case KindStringID:
		return readStringID(c)
	case KindTime:
		v, ok := c.u32()
		if !ok {
			return "", false
		}
		if v == 0 {
			return "0 (never)", true
		}
		return time.Unix(int64(v), 0).UTC().Format("2006-01-02T15:04:05.000Z"), true
	}
	return "", false
}

func formatFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', 4, 32)
	if strings.IndexByte(s, '.') != -1 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

func truncated(n int) string { return fmt.Sprintf("[truncated, len=%d]", n) }

func readString(c *cursor) (string, bool) {
	n, ok := c.u16()
	if !ok {
		return "", false
	}
	b, ok := c.bytes(int(n))
	if !ok {
		c.off = len(c.data)
		return truncated(int(n)), true
	}
	if !utf8.Valid(b) {
		return strings.ToValidUTF8(string(b), "�"), true
	}
	return string(b), true
}

func readUnicode(c *cursor) (string, bool) {
	n, ok := c.u32()
	if !ok {
		return "", false
	}
	b, ok := c.bytes(int(n) * 2)
	if !ok {
		c.off = len(c.data)
		return truncated(int(n)), true
	}
	out, err := utf16Decoder.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func readStringID(c *cursor) (string, bool) {
	var parts [2]string
	for i := range parts {
		n, ok := c.u16()
		if !ok {
			return "", false
		}
		b, ok := c.bytes(int(n))
		if !ok {
			return "", false
		}
		parts[i] = string(b)
	}
	if parts[0] == "" && parts[1] == "" {
		return "(empty)", true
	}
	return "@" + parts[0] + ":" + parts[1], true
}

func decodeCollection(t Type, data []byte) string {
	if t.Elem == nil || !t.Elem.IsElement() {
		return HexDump(data)
	}
	c := &cursor{data: data}
	count, ok := c.i32()
	if !ok || count < 0 || count > maxCollectionCount {
		return HexDump(data)
	}
	n := int(count)
	if n > collectionPreview {
		n = collectionPreview
	}
	items := make([]string, 0, n+1)
	for i := 0; i < n; i++ {
		item, ok := decodeValue(*t.Elem, c)
		if !ok {
			return HexDump(data)
		}
		items = append(items, item)
	}
	if int(count) > collectionPreview {
		items = append(items, fmt.Sprintf("... (%d total)", count))
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func decodeMap(data []byte) string {
	c := &cursor{data: data}
	count, ok := c.i32()
	if !ok || count < 0 {
		return HexDump(data)
	}
	capacity, ok := c.i32()
	if !ok {
		return HexDump(data)
	}
	preview := data[c.off:]
	suffix := ""
	if len(preview) > mapPreviewBytes {
		preview = preview[:mapPreviewBytes]
		suffix = "..."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "{count=%d, capacity=%d}", count, capacity)
	if len(preview) > 0 {
		sb.WriteByte(' ')
		for _, b := range preview {
			fmt.Fprintf(&sb, "%02X", b)
		}
		sb.WriteString(suffix)
	}
	return sb.String()
}

func decodeCoordinate(data []byte) string {
	if value, ok := decodeLegacyFloats(data); ok {
		return value
	}
	if len(data) >= 4*coordinateFields {
		c := &cursor{data: data}
		parts := make([]string, coordinateFields)
		for i := range parts {
			v, _ := c.f32()
			parts[i] = formatFloat(v)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return HexDump(data)
}

// decodeLegacyFloats reads the named-variable framing: u16 count, then
// count x (u16 name length, name, u32 size, data). Only float members are kept.
func decodeLegacyFloats(data []byte) (string, bool) {
	c := &cursor{data: data}
	count, ok := c.u16()
	if !ok || count == 0 || count > maxLegacyFields {
		return "", false
	}
	var parts []string
	for i := 0; i < int(count) && len(parts) < coordinateFields; i++ {
		n, ok := c.u16()
		if !ok || n == 0 {
			return "", false
		}
		name, ok := c.bytes(int(n))
		if !ok || !isIdentifier(name) {
			return "", false
		}
		size, ok := c.u32()
		if !ok {
			return "", false
		}
		value, ok := c.bytes(int(size))
		if !ok {
			return "", false
		}
		if size == 4 {
			v, _ := (&cursor{data: value}).f32()
			parts = append(parts, string(name)+"="+formatFloat(v))
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return "{" + strings.Join(parts, ", ") + "}", true
}

func isIdentifier(b []byte) bool {
	for _, ch := range b {
		if ch != '_' && ch != '.' && (ch < '0' || ch > '9') && (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') {
			return false
		}
	}
	return true
}
