package cache

import (
	"os"

	"github.com/rotisserie/eris"
)

// SchemaVersion tags cache entries with the column set the loader
// recognized when the entry was built. Bump it whenever the recognized
// optional columns change so stale entries rebuild instead of
// deserializing into the wrong shape.
const SchemaVersion = 2

// Fingerprint is a cheap proxy for workbook content: modification
// time and size. Matching both is required for a cache hit.
type Fingerprint struct {
	MTimeUnixNano int64 `json:"mtime_unix_nano"`
	Size          int64 `json:"size"`
}

// Stat computes the fingerprint of the file at path.
func Stat(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, eris.Wrapf(err, "cache: stat %s", path)
	}
	return Fingerprint{
		MTimeUnixNano: info.ModTime().UnixNano(),
		Size:          info.Size(),
	}, nil
}
