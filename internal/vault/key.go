package vault

import (
	"fmt"
	"path"
	"strings"
)

// cleanKey normalizes a slash-separated object key and rejects keys that
// would escape the vault.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	cleaned := path.Clean(strings.TrimPrefix(key, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	return cleaned, nil
}

// cleanDir is cleanKey for directory prefixes. The empty string is the vault root.
func cleanDir(dir string) (string, error) {
	trimmed := strings.Trim(dir, "/")
	if trimmed == "" {
		return "", nil
	}
	return cleanKey(trimmed)
}
