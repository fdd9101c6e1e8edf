package names

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// versionMarker matches a trailing "_V<n>" immediately before the extension.
var versionMarker = regexp.MustCompile(`^(.*)_V([1-9][0-9]*)$`)

// SplitExtension splits a display name into base and extension. Names
// without a dot (or with only a leading dot) have an empty extension.
func SplitExtension(name string) (base, ext string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i:]
	}
	return name, ""
}

// ParseVersioned splits a display name into its stem, version number and
// extension. A name with no version marker reports version 0.
func ParseVersioned(name string) (stem string, version int, ext string) {
	base, ext := SplitExtension(name)
	m := versionMarker.FindStringSubmatch(base)
	if m == nil {
		return base, 0, ext
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return base, 0, ext
	}
	return m[1], v, ext
}

// FormatVersioned renders stem + "_V<n>" + ext.
func FormatVersioned(stem string, version int, ext string) string {
	return fmt.Sprintf("%s_V%d%s", stem, version, ext)
}

// BumpOnce applies a single version-bump step: "stem_V<n>" becomes
// "stem_V<n+1>", anything else gets "_V2" appended before the extension.
func BumpOnce(name string) string {
	stem, version, ext := ParseVersioned(name)
	if version > 0 {
		return FormatVersioned(stem, version+1, ext)
	}
	return FormatVersioned(stem, 2, ext)
}

// Normalize produces the case-insensitive uniqueness key for a display name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// EnsureExtension appends ext when the trimmed name does not already carry
// it (case-insensitively).
func EnsureExtension(name, ext string) string {
	name = strings.TrimSpace(name)
	if ext == "" {
		return name
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return name
	}
	return name + ext
}
