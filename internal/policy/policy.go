// Package policy decides who may perform which action on which
// resource. The decision is a pure function over (actor, action,
// resource) so it can be tested without any transport or store.
package policy

type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

type ResourceKind int

const (
	ResourceEvent ResourceKind = iota
	ResourceArtist
)

// Actor describes the caller. The zero value is an anonymous request.
type Actor struct {
	Authenticated bool
	UserID        uint
	IsOrganizer   bool
}

// Resource describes the target. OwnerID is zero for resources that
// have no owner, such as a not-yet-created event or any artist.
type Resource struct {
	Kind    ResourceKind
	OwnerID uint
}

type Verdict struct {
	Allowed bool
	Reason  string
}

func allow() Verdict             { return Verdict{Allowed: true} }
func deny(reason string) Verdict { return Verdict{Allowed: false, Reason: reason} }

// Rules configures the policy table. Artist mutation currently requires
// authentication only, unlike events; RequireOrganizerForArtists exists
// so that behavior can be tightened without code changes elsewhere.
type Rules struct {
	RequireOrganizerForArtists bool
}

// Decide returns the verdict for one action.
//
// Reads are open to everyone. Creating an event requires an
// authenticated organizer. Updating or deleting an event requires the
// host; the organizer flag does not grant access to other hosts'
// events.
func (r Rules) Decide(actor Actor, action Action, resource Resource) Verdict {
	if action == ActionRead {
		return allow()
	}

	if !actor.Authenticated {
		return deny("authentication required")
	}

	switch resource.Kind {
	case ResourceArtist:
		if r.RequireOrganizerForArtists && !actor.IsOrganizer {
			return deny("organizer role required")
		}
		return allow()

	case ResourceEvent:
		if action == ActionCreate {
			if !actor.IsOrganizer {
				return deny("organizer role required")
			}
			return allow()
		}
		if actor.UserID != resource.OwnerID {
			return deny("only the host may modify this event")
		}
		return allow()
	}

	return deny("unknown resource")
}
