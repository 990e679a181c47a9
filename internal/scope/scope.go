// Package scope decides which owners' records a caller may read or change.
package scope

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Elevated roles see every owner's records.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// IsElevated is the single role predicate shared by every aggregator and mutation path.
func IsElevated(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin, RoleManager:
		return true
	}
	return false
}

// Scope is the read-visibility filter. A nil OwnerID means no owner restriction.
type Scope struct {
	OwnerID *primitive.ObjectID
}

// All is the unrestricted scope.
func All() Scope { return Scope{} }

// Owner restricts reads to one owner.
func Owner(id primitive.ObjectID) Scope { return Scope{OwnerID: &id} }

// Restricted reports whether an owner filter applies.
func (s Scope) Restricted() bool { return s.OwnerID != nil }

// Key is a stable string form used in cache keys and response metadata.
func (s Scope) Key() string {
	if s.OwnerID == nil {
		return "all"
	}
	return s.OwnerID.Hex()
}

// Resolve derives the scope for a caller. Elevated callers get the explicit
// owner filter when it parses as an ObjectID; a malformed value is ignored and
// the request runs unrestricted. Everyone else is pinned to their own records
// whatever they asked for.
func Resolve(role string, caller primitive.ObjectID, explicitOwner string) Scope {
	if !IsElevated(role) {
		return Owner(caller)
	}
	explicitOwner = strings.TrimSpace(explicitOwner)
	if explicitOwner == "" {
		return All()
	}
	id, err := primitive.ObjectIDFromHex(explicitOwner)
	if err != nil {
		return All()
	}
	return Owner(id)
}

// CanModify reports whether the caller may mutate a record owned by owner.
func CanModify(role string, caller, owner primitive.ObjectID) bool {
	return IsElevated(role) || caller == owner
}
