package util

import "strings"

// FileSlug converts a device name into a string safe for file names.
// Lowercases, maps anything outside [a-z0-9] to separators, and joins the
// remaining words with underscores. Returns "device" when nothing usable
// remains.
func FileSlug(name string) string {
	slug := strings.ToLower(name)

	// Replace non-alphanumeric with spaces
	var result []rune
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			result = append(result, r)
		} else {
			result = append(result, ' ')
		}
	}

	words := strings.Fields(string(result))
	if len(words) == 0 {
		return "device"
	}
	return strings.Join(words, "_")
}
