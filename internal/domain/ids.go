package domain

import (
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// NewID returns a 24-hex-character entity id.
// The leading bytes of a UUIDv7 keep ids roughly time ordered.
func NewID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(u[:12]), nil
}

// IsValidID reports whether id has the entity id shape.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}
