package models

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify derives the URL segment for a new album: lowercase ASCII letters and
// digits, any other run of characters collapsed into a single '-'
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(name) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "album"
	}
	return slug
}

// SyncSlug maps a bucket path segment to the slug it was originally created with
func SyncSlug(segment string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(segment), "-")
}

// nextFreeSlug returns base, or base-2, base-3... whichever is not taken yet
func nextFreeSlug(base string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}
	if !used[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !used[candidate] {
			return candidate
		}
	}
}
