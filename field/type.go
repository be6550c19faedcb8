package field

import (
	"strings"
)

// Kind enumerates decodable field types.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindByte
	KindShort
	KindUnsignedShort
	KindInt
	KindUnsignedInt
	KindFloat
	KindInt64
	KindString
	KindUnicodeString
	KindReference
	KindQuaternion
	KindStringID
	KindTime
	KindAtomicInteger
	KindCollection
	KindMap
	KindCoordinate
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindBool:          "bool",
	KindByte:          "byte",
	KindShort:         "short",
	KindUnsignedShort: "unsigned short",
	KindInt:           "int",
	KindUnsignedInt:   "unsigned int",
	KindFloat:         "float",
	KindInt64:         "int64",
	KindString:        "string",
	KindUnicodeString: "unicode string",
	KindReference:     "reference",
	KindQuaternion:    "quaternion",
	KindStringID:      "string id",
	KindTime:          "time",
	KindAtomicInteger: "atomic integer",
	KindCollection:    "collection",
	KindMap:           "map",
	KindCoordinate:    "coordinate",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Type is a parsed declared type. Raw keeps the dictionary text.
type Type struct {
	Kind Kind
	Elem *Type
	Raw  string
}

// IsElement reports whether values of this kind can appear inside a collection.
func (t Type) IsElement() bool {
	switch t.Kind {
	case KindUnknown, KindCollection, KindMap, KindCoordinate:
		return false
	}
	return true
}

var scalarKinds = map[string]Kind{
	"bool":               KindBool,
	"byte":               KindByte,
	"char":               KindByte,
	"signed char":        KindByte,
	"unsigned char":      KindByte,
	"uint8":              KindByte,
	"int8":               KindByte,
	"short":              KindShort,
	"int16":              KindShort,
	"unsigned short":     KindUnsignedShort,
	"uint16":             KindUnsignedShort,
	"int":                KindInt,
	"signed int":         KindInt,
	"int32":              KindInt,
	"unsigned int":       KindUnsignedInt,
	"uint32":             KindUnsignedInt,
	"uint":               KindUnsignedInt,
	"float":              KindFloat,
	"long":               KindInt64,
	"unsigned long":      KindInt64,
	"long long":          KindInt64,
	"unsigned long long": KindInt64,
	"int64":              KindInt64,
	"uint64":             KindInt64,
	"string":             KindString,
	"std::string":        KindString,
	"unicodestring":      KindUnicodeString,
	"unicode::string":    KindUnicodeString,
	"quaternion":         KindQuaternion,
	"stringid":           KindStringID,
	"time":               KindTime,
	"atomicinteger":      KindAtomicInteger,
	"coordinate":         KindCoordinate,
}

var genericKinds = map[string]Kind{
	"managedreference":     KindReference,
	"managedweakreference": KindReference,
	"reference":            KindReference,
	"weakreference":        KindReference,
	"vector":               KindCollection,
	"sortedvector":         KindCollection,
	"deltavector":          KindCollection,
	"deltasortedvector":    KindCollection,
	"arraylist":            KindCollection,
	"vectormap":            KindMap,
	"sortedvectormap":      KindMap,
	"deltavectormap":       KindMap,
	"hashtable":            KindMap,
	"hashset":              KindMap,
}

// ParseType converts a declared type string into a Type.
func ParseType(raw string) Type {
	ret := Type{Raw: raw}
	name, args := splitGeneric(normalizeTypeName(raw))
	lower := strings.ToLower(name)
	if args == "" {
		if kind, ok := scalarKinds[lower]; ok {
			ret.Kind = kind
		}
		if kind, ok := genericKinds[lower]; ok && kind == KindReference {
			ret.Kind = kind
		}
		return ret
	}
	kind, ok := genericKinds[lower]
	if !ok {
		return ret
	}
	ret.Kind = kind
	if kind == KindCollection {
		elem := ParseType(args)
		ret.Elem = &elem
	}
	return ret
}

func normalizeTypeName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "const ")
	name = strings.TrimRight(name, "*& ")
	return strings.Join(strings.Fields(name), " ")
}

// splitGeneric splits "Vector<int>" into ("Vector", "int").
func splitGeneric(name string) (string, string) {
	open := strings.IndexByte(name, '<')
	if open == -1 {
		return name, ""
	}
	closing := strings.LastIndexByte(name, '>')
	if closing < open {
		return strings.TrimSpace(name[:open]), ""
	}
	return strings.TrimSpace(name[:open]), strings.TrimSpace(name[open+1 : closing])
}
