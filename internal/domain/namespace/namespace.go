// Package namespace maps tenant-relative paths to object-store keys.
//
// Every user owns one prefix, derived from their identity-provider subject
// when the user row is first written. All object keys of that user live
// under "<prefix>/". Code that touches the object store on behalf of a user
// goes through a Store bound to that prefix.
package namespace

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	prefixHead = "user-"
	hashChars  = 24
	separator  = "/"
)

// Owner is anything that carries an assigned prefix.
type Owner interface {
	NamespacePrefix() string
}

// Derive returns the prefix for a new user. It depends only on the subject,
// so re-running it for the same subject always agrees with the stored value.
func Derive(subjectID string) string {
	sum := blake2b.Sum256([]byte(subjectID))
	return prefixHead + hex.EncodeToString(sum[:])[:hashChars]
}

// PrefixFor returns the owner's stored prefix.
func PrefixFor(o Owner) string {
	return o.NamespacePrefix()
}

// Key joins prefix and relative with exactly one separator between
// segments. Empty, "." and ".." segments are dropped, so the result can
// never climb out of the prefix. An empty relative yields the namespace
// root "<prefix>/".
func Key(prefix, relative string) string {
	segs := clean(relative)
	if len(segs) == 0 {
		return strings.Trim(prefix, separator) + separator
	}
	return strings.Trim(prefix, separator) + separator + strings.Join(segs, separator)
}

// Strip removes the prefix from a full key. Keys outside the prefix are
// returned unchanged.
func Strip(prefix, fullKey string) string {
	root := strings.Trim(prefix, separator) + separator
	if rest, ok := strings.CutPrefix(fullKey, root); ok {
		return rest
	}
	return fullKey
}

// Owns reports whether key names an object inside prefix.
func Owns(prefix, key string) bool {
	p := strings.Trim(prefix, separator)
	if p == "" {
		return false
	}
	rest, ok := strings.CutPrefix(key, p+separator)
	if !ok || rest == "" {
		return false
	}
	for _, s := range strings.Split(rest, separator) {
		if s == ".." {
			return false
		}
	}
	return true
}

func clean(relative string) []string {
	parts := strings.Split(relative, separator)
	out := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return out
}
