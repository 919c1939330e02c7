package notes

import (
	"fmt"

	"notes-go/internal/model"
)

// Relation is how the acting user relates to the resource owner.
type Relation int

const (
	RelationNone Relation = iota
	RelationOwner
)

// Decision is the outcome of a policy evaluation.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Policy decides whether a caller with the given relation may perform action.
type Policy func(rel Relation, action model.Action) Decision

// OwnerPolicy allows owners every recognized action and denies everything else.
func OwnerPolicy(rel Relation, action model.Action) Decision {
	if rel == RelationOwner && action.Known() {
		return Allow
	}
	return Deny
}

// Authorizer is the single decision point for owner actions.
// Every mutating or sharing operation consults it before touching state.
type Authorizer struct {
	policy Policy
}

// NewAuthorizer returns an Authorizer for p, or for OwnerPolicy when p is nil.
func NewAuthorizer(p Policy) *Authorizer {
	if p == nil {
		p = OwnerPolicy
	}
	return &Authorizer{policy: p}
}

// Authorize returns an ErrForbidden error unless the policy allows actorID
// to perform action on a resource owned by ownerID.
func (a *Authorizer) Authorize(actorID, ownerID string, action model.Action) error {
	rel := RelationNone
	if actorID != "" && actorID == ownerID {
		rel = RelationOwner
	}
	if a.policy(rel, action) != Allow {
		return fmt.Errorf("action %s not permitted: %w", action, ErrForbidden)
	}
	return nil
}
