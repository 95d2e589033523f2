package storage

import (
	"fmt"
)

// identityKey identifies a stored finding within one file.
func identityKey(key string, line, char int) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s|%d|%d", key, line, char)
}
