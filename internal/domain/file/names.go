package file

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameLen    = 255
	maxKeyNameLen = 80
)

// cleanName trims and validates a display name.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		utf8.RuneCountInString(name) > maxNameLen ||
		strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidName
		}
	}
	return name, nil
}

// keyName is the object-key form of a display name: URL-safe ASCII with
// the extension kept.
func keyName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) > 10 || strings.Trim(ext, ".") == "" {
		ext = ""
	}
	base := strings.TrimSuffix(name, path.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, base)
	if len(base) > maxKeyNameLen {
		base = base[:maxKeyNameLen]
	}
	if strings.Trim(base, "_") == "" {
		base = "file"
	}
	ext = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, ext)
	if ext == "." {
		ext = ""
	}
	return base + ext
}
