package field

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// UnknownType is reported for hashes missing from the dictionary.
const UnknownType = "?"

// Entry describes a known field.
type Entry struct {
	Hash uint32
	Name string
	Type Type
}

// Dictionary maps field hashes to names and declared types.
// It is read-only once constructed.
type Dictionary struct {
	entries map[uint32]Entry
}

// NewDictionary creates a dictionary. The class-name field is always present.
func NewDictionary(entries ...Entry) *Dictionary {
	d := &Dictionary{entries: make(map[uint32]Entry, len(entries)+1)}
	for _, entry := range entries {
		if entry.Hash == 0 && entry.Name != "" {
			entry.Hash = Hash(entry.Name)
		}
		d.entries[entry.Hash] = entry
	}
	d.entries[ClassNameHash] = Entry{Hash: ClassNameHash, Name: ClassNameField, Type: ParseType("String")}
	return d
}

// Len returns number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }

// Lookup returns the entry for a hash.
func (d *Dictionary) Lookup(hash uint32) (Entry, bool) {
	entry, ok := d.entries[hash]
	return entry, ok
}

// Name returns the field name or a [0xHHHHHHHH] placeholder.
func (d *Dictionary) Name(hash uint32) string {
	if entry, ok := d.entries[hash]; ok {
		return entry.Name
	}
	return UnknownName(hash)
}

// UnknownName formats the placeholder name for an unresolved hash.
func UnknownName(hash uint32) string { return fmt.Sprintf("[0x%08X]", hash) }

// DecodeField resolves and decodes one field.
func (d *Dictionary) DecodeField(hash uint32, data []byte) DecodedField {
	ret := DecodedField{Hash: hash, Size: len(data), Raw: data}
	entry, ok := d.entries[hash]
	if !ok {
		ret.Name = UnknownName(hash)
		ret.Type = UnknownType
		ret.Value = HexDump(data)
		return ret
	}
	ret.Name = entry.Name
	ret.Type = entry.Type.Raw
	ret.Value = Decode(entry.Type, data)
	return ret
}

type dictionaryFile struct {
	Fields []struct {
		Hash string `yaml:"hash"`
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"fields"`
}

// ParseDictionary parses YAML dictionary content.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var file dictionaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "dictionary: invalid yaml")
	}
	entries := make([]Entry, 0, len(file.Fields))
	for i, item := range file.Fields {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, errors.Errorf("dictionary: field #%d has no name", i)
		}
		entry := Entry{Name: name, Type: ParseType(item.Type)}
		if hash := strings.TrimSpace(item.Hash); hash != "" {
			v, err := strconv.ParseUint(hash, 0, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "dictionary: field %s has invalid hash %q", name, hash)
			}
			entry.Hash = uint32(v)
		} else {
			entry.Hash = Hash(name)
		}
		entries = append(entries, entry)
	}
	return NewDictionary(entries...), nil
}

// LoadDictionary reads a YAML dictionary from a local path or storage URL.
func LoadDictionary(ctx context.Context, URL string) (*Dictionary, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, errors.Wrapf(err, "dictionary: failed to load %s", URL)
	}
	return ParseDictionary(data)
}
