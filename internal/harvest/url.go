package harvest

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// Normalize canonicalizes a URL by stripping its fragment and query
// string. Malformed input is returned unchanged, never an error, so
// the function is safe on arbitrary anchor hrefs. Normalize is
// idempotent.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""
	return u.String()
}

// fileExtensions lists binary-resource extensions that are never
// fetched for outbound links.
var fileExtensions = map[string]struct{}{
	".7z": {}, ".avi": {}, ".bmp": {}, ".doc": {}, ".docx": {},
	".exe": {}, ".gif": {}, ".gz": {}, ".ico": {}, ".jpeg": {},
	".jpg": {}, ".mov": {}, ".mp3": {}, ".mp4": {}, ".pdf": {},
	".png": {}, ".ppt": {}, ".pptx": {}, ".rar": {}, ".svg": {},
	".tar": {}, ".webp": {}, ".wmv": {}, ".xls": {}, ".xlsx": {},
	".zip": {},
}

// IsFileHref reports whether the href points at a known binary
// resource type.
func IsFileHref(href string) bool {
	u, err := url.Parse(href)
	target := href
	if err == nil {
		target = u.Path
	}
	ext := strings.ToLower(path.Ext(target))
	_, ok := fileExtensions[ext]
	return ok
}

// FileExtensionPattern returns a case-insensitive POSIX regex matching
// hrefs that end in a known binary-resource extension, suitable for
// SQL-side matching.
func FileExtensionPattern() string {
	exts := make([]string, 0, len(fileExtensions))
	for ext := range fileExtensions {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(exts)
	return `\.(` + strings.Join(exts, "|") + `)$`
}

// SameOrigin reports whether the candidate URL shares scheme and host
// with the origin.
func SameOrigin(origin *url.URL, candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return u.Scheme == origin.Scheme && strings.EqualFold(u.Host, origin.Host)
}
