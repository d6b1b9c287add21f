// Package access holds the permission model shared by API keys and the
// request authentication resolver.
package access

import (
	"sort"
	"strings"
)

type Permission string

const (
	PermRead   Permission = "read"
	PermWrite  Permission = "write"
	PermDelete Permission = "delete"
)

var allPermissions = []Permission{PermRead, PermWrite, PermDelete}

func (p Permission) Valid() bool {
	switch p {
	case PermRead, PermWrite, PermDelete:
		return true
	}
	return false
}

// Set is a normalized, sorted, duplicate-free permission list.
type Set []Permission

// Full is what a session owner gets on their own data.
func Full() Set {
	return append(Set(nil), allPermissions...)
}

// ParseSet validates and normalizes names. ok is false when any entry is unknown.
func ParseSet(names []string) (Set, bool) {
	seen := make(map[Permission]bool, len(names))
	for _, n := range names {
		p := Permission(strings.ToLower(strings.TrimSpace(n)))
		if !p.Valid() {
			return nil, false
		}
		seen[p] = true
	}
	out := make(Set, 0, len(seen))
	for _, p := range allPermissions {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out, true
}

func (s Set) Has(p Permission) bool {
	for _, have := range s {
		if have == p {
			return true
		}
	}
	return false
}

func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = string(p)
	}
	sort.Strings(out)
	return out
}

// Encode is the storage form: "delete,read,write".
func (s Set) Encode() string {
	return strings.Join(s.Strings(), ",")
}

// Decode is the inverse of Encode; unknown entries are dropped.
func Decode(v string) Set {
	var names []string
	for _, part := range strings.Split(v, ",") {
		if p := Permission(strings.TrimSpace(part)); p.Valid() {
			names = append(names, string(p))
		}
	}
	s, _ := ParseSet(names)
	return s
}

type AuthType string

const (
	AuthSession AuthType = "session"
	AuthAPIKey  AuthType = "api_key"
)

// Principal is the resolved caller of a request.
type Principal struct {
	UserID      string
	SubjectID   string
	Prefix      string
	Permissions Set
	AuthType    AuthType
	APIKeyID    string
}

func (p *Principal) Can(perm Permission) bool {
	return p != nil && p.Permissions.Has(perm)
}
