package valueobjects

import "github.com/google/uuid"

// RowVersion is an opaque optimistic-concurrency token. Two versions are only
// ever compared for equality; they carry no ordering.
type RowVersion string

// NextVersion returns a fresh random version token.
func NextVersion() RowVersion {
	return RowVersion(uuid.NewString())
}

// String returns the token text
func (v RowVersion) String() string {
	return string(v)
}

// IsZero reports whether the entity has never been persisted
func (v RowVersion) IsZero() bool {
	return v == ""
}
