package location

import (
	"fmt"
	"strings"
)

const (
	maxNameLength    = 100
	maxAddressLength = 500
	maxMetadataKeys  = 50
)

// ValidateName checks a house or room name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateHouse checks the writable fields of h.
func ValidateHouse(h *House) error {
	if err := ValidateName(h.Name); err != nil {
		return err
	}
	if len(h.Address) > maxAddressLength {
		return fmt.Errorf("%w: address exceeds %d characters", ErrInvalidName, maxAddressLength)
	}
	if len(h.Metadata) > maxMetadataKeys {
		return fmt.Errorf("%w: more than %d keys", ErrInvalidMetadata, maxMetadataKeys)
	}
	return nil
}
