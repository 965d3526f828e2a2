package loop

import "strings"

// slugify converts a task title into a branch-name-safe slug: lowercase,
// spaces and underscores become hyphens, everything else non-alphanumeric
// is dropped. Returns "unknown" when nothing usable remains.
func slugify(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteByte('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return "unknown"
	}
	return slug
}
