package utils

import (
	"strings"

	"github.com/yukikurage/projecthub-api/internal/constants"
)

// SanitizeProjectKey uppercases raw and strips everything that is not A-Z or
// 0-9. The result may be empty.
func SanitizeProjectKey(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ProjectKeyBase derives the dedup base for a key generated from a project
// name: sanitized, truncated, falling back to the default key when the name
// contains no usable characters.
func ProjectKeyBase(name string) string {
	base := SanitizeProjectKey(name)
	if len(base) > constants.ProjectKeyBaseLength {
		base = base[:constants.ProjectKeyBaseLength]
	}
	if base == "" {
		return constants.DefaultProjectKey
	}
	return base
}
