package config

import (
	"io"
	"time"
)

// Config is a read-only view over the service configuration.
//
// Lookups never fail: a missing key, or one that cannot be converted,
// yields the zero value of the requested type.
type Config interface {
	io.Closer

	// GetBool returns the value for key as a bool.
	GetBool(key string) bool

	// GetString returns the value for key as a string.
	GetString(key string) string

	// GetInt returns the value for key as an int.
	GetInt(key string) int

	// GetInt32 returns the value for key as an int32.
	GetInt32(key string) int32

	// GetInt64 returns the value for key as an int64.
	GetInt64(key string) int64

	// GetFloat64 returns the value for key as a float64.
	GetFloat64(key string) float64

	// GetSecond interprets the value for key as a number of seconds.
	GetSecond(key string) time.Duration

	// GetMinute interprets the value for key as a number of minutes.
	GetMinute(key string) time.Duration

	// GetBinary returns the value for key decoded from base64.
	GetBinary(key string) []byte

	// GetArray returns the value for key split on commas.
	// Values are stored with format <element1>,<element2>,...
	GetArray(key string) []string

	// GetMap returns the value for key parsed from <key1>:<value1>,<key2>:<value2>,...
	GetMap(key string) map[string]string
}
