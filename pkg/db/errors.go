package db

import "strings"

// IsUniqueViolation reports whether the error references a Postgres unique
// violation. SQLite (used by tests) phrases it differently, so both message
// shapes are recognized. When constraintName is provided, the helper looks
// for that constraint text instead.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
