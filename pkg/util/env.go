package util

import (
	"os"
	"strings"
)

// GetEnvOrDefault returns the value of the first of envs that is set to a non-blank
// value, otherwise def.
func GetEnvOrDefault(def string, envs ...string) string {
	for _, env := range envs {
		if val := strings.TrimSpace(os.Getenv(env)); val != "" {
			return val
		}
	}
	return def
}
