// Package pathsafe validates user-supplied file paths before they reach
// storage or filters.
package pathsafe

import "strings"

// Characters never allowed in a document file path.
const forbiddenChars = `<>:"|?*`

// Valid reports whether p is acceptable as a document file path: relative,
// free of parent-directory traversal, and free of characters that are
// invalid on common filesystems.
func Valid(p string) bool {
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return false
	}
	if strings.ContainsAny(p, forbiddenChars) {
		return false
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return false
		}
	}
	return true
}
