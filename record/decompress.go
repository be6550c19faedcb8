// Package record decodes record payloads into summaries and field lists.
package record

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// zlibSignature is the first byte (CMF, deflate with 32K window) of a zlib stream.
const zlibSignature = 0x78

// Decompress inflates a zlib payload. Raw payloads and payloads that fail to
// inflate are returned unchanged.
func Decompress(data []byte) []byte {
	if len(data) == 0 || data[0] != zlibSignature {
		return data
	}
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer reader.Close()
	out, err := io.ReadAll(reader)
	if err != nil {
		return data
	}
	return out
}
