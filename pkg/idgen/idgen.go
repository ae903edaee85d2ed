// Package idgen generates entity ids, mirroring the teacher's
// common.GenerateUUIDv7 helper.
package idgen

import "github.com/google/uuid"

// New generates a new UUIDv7 string. UUIDv7 is time-ordered, which keeps
// index locality for append-heavy tables like ledger_entry.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsUUID reports whether s is a syntactically valid UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
