package store

import "strings"

// splitPath breaks a slash-separated path into its segments, ignoring
// leading, trailing and repeated slashes.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// pathsOverlap reports whether a change at one path is visible from a
// subscription at the other: true when either is a prefix of the other.
func pathsOverlap(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
