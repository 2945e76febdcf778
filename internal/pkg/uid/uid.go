// Package uid generates identifiers: UUIDv7 strings for correlation IDs and
// snowflake numbers for audit records.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates time-ordered numeric identifiers.
type NumberID interface {
	Generate() int64
}
