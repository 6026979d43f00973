package archive

import (
	"path/filepath"
	"strings"
)

// ResolvePath resolves a user-supplied relative path against the
// archive root and returns an absolute path guaranteed to be the root
// itself or nested under it. The comparison runs on the cleaned
// absolute candidate, not on the raw string, so crafted ".." segments
// cannot escape. An empty userPath resolves to the root. Existence of
// the result is not checked; callers stat separately.
func ResolvePath(root, userPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absRoot = filepath.Clean(absRoot)

	candidate := filepath.Clean(
		filepath.Join(absRoot, filepath.FromSlash(userPath)),
	)

	if candidate != absRoot &&
		!strings.HasPrefix(candidate, absRoot+string(filepath.Separator)) {
		return "", &SecurityError{Path: userPath}
	}
	return candidate, nil
}

// hasDotDot reports whether any slash- or backslash-separated segment
// of name is "..". Upload filenames are rejected on this alone, before
// resolution, so a hostile client cannot even probe the sandbox check.
func hasDotDot(name string) bool {
	for _, seg := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '/' || r == '\\'
	}) {
		if seg == ".." {
			return true
		}
	}
	return false
}
