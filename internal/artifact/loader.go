package artifact

import (
	"fmt"
	"os"

	"github.com/felix-dieterle/mycontracts/internal/fileutil"
)

// Loaded holds an artifact's payload and digest.
type Loaded struct {
	Path     string
	Checksum string
	Content  []byte
}

// Load reads the full artifact and computes its SHA-256 digest, hex-encoded.
// The digest matches the one computed for stored files.
func Load(path string) (Loaded, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return Loaded{Path: path, Checksum: Checksum(content), Content: content}, nil
}

// Checksum returns the lowercase hex SHA-256 of data.
func Checksum(data []byte) string {
	return fileutil.HashBytes(data)
}
