package index

import (
	"fmt"
	"os"
	"strconv"

	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
)

var fingerprintKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Fingerprint hashes the source path, size and modification time so a
// rebuilt or modified source can be told apart from the indexed one.
func Fingerprint(sourcePath string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", errors.Wrapf(err, "index: failed to stat %s", sourcePath)
	}
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", err
	}
	_, _ = h.Write([]byte(sourcePath))
	_, _ = h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
	_, _ = h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
