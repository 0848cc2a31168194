package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// Identifier is a value object naming a persisted entity.
// Identifiers are UUIDv7 strings: the leading 48 bits carry the creation time in
// milliseconds, so the canonical text form sorts by creation time and a range
// query over sort keys returns the newest records first without a date index.
type Identifier struct {
	value string
}

// NextIdentifier returns a new time-sortable, globally unique identifier.
func NextIdentifier() Identifier {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source fails; fall back to v4 so
		// callers never receive an empty identifier.
		return Identifier{value: uuid.NewString()}
	}
	return Identifier{value: id.String()}
}

// ParseIdentifier creates an Identifier from an existing string. Any spelling
// uuid.Parse accepts is reduced to the lower-case dashed form used in keys.
func ParseIdentifier(s string) (Identifier, error) {
	if s == "" {
		return Identifier{}, errors.New("identifier cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return Identifier{}, errors.New("identifier must be a valid UUID")
	}
	return Identifier{value: parsed.String()}, nil
}

// MustParseIdentifier is ParseIdentifier for trusted input such as stored records.
func MustParseIdentifier(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the string representation of the Identifier
func (id Identifier) String() string {
	return id.value
}

// Equals checks if two Identifiers are equal
func (id Identifier) Equals(other Identifier) bool {
	return id.value == other.value
}

// IsZero checks if the Identifier is the zero value
func (id Identifier) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *Identifier) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		id.value = ""
		return nil
	}
	parsed, err := ParseIdentifier(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
