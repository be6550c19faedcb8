// Package field resolves and decodes hash-tagged record fields.
package field

// DecodedField is one resolved field of a record payload.
type DecodedField struct {
	Hash  uint32 `json:"hash"`
	Size  int    `json:"size"`
	Raw   []byte `json:"-"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}
