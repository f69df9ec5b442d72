package program

import (
	"crypto/sha256"
	"fmt"

	"ravens/internal/project"
)

// Digest hashes the canonical msgpack encoding of the program. Two documents
// that differ only in declaration order share a digest.
func (p *Program) Digest() (project.Digest, error) {
	data, err := EncodeDocument(p.doc)
	if err != nil {
		return project.Digest{}, fmt.Errorf("encode program %q: %w", p.Name, err)
	}
	return project.Digest(sha256.Sum256(data)), nil
}
