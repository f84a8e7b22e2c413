package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	anonymous = Actor{}
	attendee  = Actor{Authenticated: true, UserID: 2}
	organizer = Actor{Authenticated: true, UserID: 3, IsOrganizer: true}
	host      = Actor{Authenticated: true, UserID: 4, IsOrganizer: true}

	hostedEvent = Resource{Kind: ResourceEvent, OwnerID: 4}
	newEvent    = Resource{Kind: ResourceEvent}
	artist      = Resource{Kind: ResourceArtist}
)

func TestDecideReadIsOpenToEveryone(t *testing.T) {
	rules := Rules{}
	for _, actor := range []Actor{anonymous, attendee, organizer, host} {
		assert.True(t, rules.Decide(actor, ActionRead, hostedEvent).Allowed)
		assert.True(t, rules.Decide(actor, ActionRead, artist).Allowed)
	}
}

func TestDecideEventCreate(t *testing.T) {
	rules := Rules{}

	tests := []struct {
		name    string
		actor   Actor
		allowed bool
	}{
		{"anonymous denied", anonymous, false},
		{"attendee denied", attendee, false},
		{"organizer allowed", organizer, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := rules.Decide(tt.actor, ActionCreate, newEvent)
			assert.Equal(t, tt.allowed, verdict.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, verdict.Reason)
			}
		})
	}
}

func TestDecideEventMutationRequiresHost(t *testing.T) {
	rules := Rules{}

	for _, action := range []Action{ActionUpdate, ActionDelete} {
		assert.True(t, rules.Decide(host, action, hostedEvent).Allowed)

		verdict := rules.Decide(organizer, action, hostedEvent)
		assert.False(t, verdict.Allowed, "an organizer who is not the host must be denied")
		assert.Equal(t, "only the host may modify this event", verdict.Reason)

		assert.False(t, rules.Decide(attendee, action, hostedEvent).Allowed)
		assert.False(t, rules.Decide(anonymous, action, hostedEvent).Allowed)
	}
}

func TestDecideArtistMutation(t *testing.T) {
	rules := Rules{}

	// Any authenticated user may mutate artists under default rules.
	for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		assert.True(t, rules.Decide(attendee, action, artist).Allowed)
		assert.True(t, rules.Decide(organizer, action, artist).Allowed)
		assert.False(t, rules.Decide(anonymous, action, artist).Allowed)
	}
}

func TestDecideArtistMutationWithOrganizerRule(t *testing.T) {
	rules := Rules{RequireOrganizerForArtists: true}

	assert.False(t, rules.Decide(attendee, ActionCreate, artist).Allowed)
	assert.True(t, rules.Decide(organizer, ActionCreate, artist).Allowed)
}
