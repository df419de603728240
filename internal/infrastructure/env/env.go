package env

import "os"

// GetString returns the value of the named environment variable, or the
// fallback when it is unset or empty.
func GetString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
