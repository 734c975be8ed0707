package metadata

import "github.com/google/uuid"

// NewTableUUID generates a fresh table-uuid (UUIDv4), as required when
// creating a new table (spec §3, §8 invariant 3).
func NewTableUUID() string {
	return uuid.New().String()
}
