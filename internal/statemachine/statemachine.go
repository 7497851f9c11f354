// Package statemachine is the single transition validator shared by the
// land-transaction and service-request lifecycles. Each edge declares which
// actors may drive it; a transition must match both the adjacency and the
// caller's role.
package statemachine

import "github.com/PeterAforo/ghanaland-sub000/internal/apperrors"

// Actor is the role attempting a transition.
type Actor string

const (
	ActorBuyer        Actor = "buyer"
	ActorSeller       Actor = "seller"
	ActorClient       Actor = "client"
	ActorProfessional Actor = "professional"
	ActorAdmin        Actor = "admin"
	// ActorSystem drives transitions triggered by payment reconciliation,
	// never by a direct API caller.
	ActorSystem Actor = "system"
)

type Edge struct {
	To     string
	Actors []Actor
}

// Table maps a state to the edges leaving it.
type Table map[string][]Edge

// Validate checks that the edge from "from" to "to" exists in the table
// and that actor is
// permitted on that edge. A missing edge is a state conflict; a known edge
// with the wrong actor is an authorization failure.
func (t Table) Validate(from, to string, actor Actor) error {
	edges, ok := t[from]
	if !ok {
		return apperrors.StateConflictf("no transitions are possible from state %q", from)
	}
	for _, e := range edges {
		if e.To != to {
			continue
		}
		for _, a := range e.Actors {
			if a == actor {
				return nil
			}
		}
		return apperrors.Authorizationf("role %q may not move a record from %q to %q", actor, from, to)
	}
	return apperrors.StateConflictf("cannot move from %q to %q", from, to)
}

// CanReach reports whether any actor could drive the transition.
func (t Table) CanReach(from, to string) bool {
	for _, e := range t[from] {
		if e.To == to {
			return true
		}
	}
	return false
}
