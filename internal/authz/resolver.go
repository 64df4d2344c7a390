package authz

import (
	"context"
	"sort"
)

// PermissionSet is the materialized grant set for one caller. Superuser is
// computed once at resolution time from the ADMIN label so gates never
// compare against the bypass string themselves.
type PermissionSet struct {
	labels    map[string]struct{}
	Superuser bool
}

func NewPermissionSet(labels []string) PermissionSet {
	set := PermissionSet{labels: make(map[string]struct{}, len(labels))}
	for _, label := range labels {
		set.labels[label] = struct{}{}
		if label == PermAdmin {
			set.Superuser = true
		}
	}
	return set
}

func (s PermissionSet) Has(label string) bool {
	_, ok := s.labels[label]
	return ok
}

func (s PermissionSet) HasAll(labels []string) bool {
	for _, label := range labels {
		if !s.Has(label) {
			return false
		}
	}
	return true
}

// Missing returns the subset of labels the caller does not hold.
func (s PermissionSet) Missing(labels []string) []string {
	var missing []string
	for _, label := range labels {
		if !s.Has(label) {
			missing = append(missing, label)
		}
	}
	return missing
}

func (s PermissionSet) Labels() []string {
	out := make([]string, 0, len(s.labels))
	for label := range s.labels {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func (s PermissionSet) Len() int {
	return len(s.labels)
}

// Resolver computes the effective permission set for a user by traversing
// user -> roles -> permissions. An unknown user resolves to the empty set,
// not an error, so gates can emit a clean deny.
type Resolver interface {
	Resolve(ctx context.Context, userID int64) (PermissionSet, error)
}

type permsCtxKey string

const contextPermissionsKey permsCtxKey = "permissions"

// PermissionsFromContext returns the permission set a gate attached for
// downstream handlers.
func PermissionsFromContext(ctx context.Context) (PermissionSet, bool) {
	set, ok := ctx.Value(contextPermissionsKey).(PermissionSet)
	return set, ok
}

func ContextWithPermissions(ctx context.Context, set PermissionSet) context.Context {
	return context.WithValue(ctx, contextPermissionsKey, set)
}
