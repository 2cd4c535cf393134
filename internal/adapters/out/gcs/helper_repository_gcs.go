// internal/adapters/out/gcs/helper_repository_gcs.go
package gcs

import (
	"net/url"
	"path"
	"strings"
)

// escapeKeySegment turns an identity key into one object path segment.
// The mapping is reversible, so distinct keys never share an object.
func escapeKeySegment(key string) string {
	return url.PathEscape(key)
}

// unescapeKeySegment inverts escapeKeySegment. Segments it could not have
// produced report false.
func unescapeKeySegment(seg string) (string, bool) {
	key, err := url.PathUnescape(seg)
	if err != nil || key == "" || escapeKeySegment(key) != seg {
		return "", false
	}
	return key, true
}

// isKeepObject returns true if the objectPath represents a ".keep" object.
// Both "xxx/.keep" and ".keep" are treated as keep objects.
func isKeepObject(objectPath string) bool {
	p := strings.TrimSpace(objectPath)
	if p == "" {
		return false
	}
	return path.Base(p) == ".keep"
}
