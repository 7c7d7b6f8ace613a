package authz

import (
	"github.com/google/uuid"

	"atfal-portal/internal/models"
)

// Party is the slice of a user record the contact policy needs.
type Party struct {
	ID       uuid.UUID
	Role     models.Role
	MajlisID *uuid.UUID
}

// Decision is the outcome of a contact-policy check. Reason is set only on
// denial and is safe to show to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// CanContact decides whether actor may open a conversation with other.
// It is a pure function: all relationship state is passed in via areFriends.
//
// Every role pairing is enumerated explicitly so policy gaps are visible.
func CanContact(actor, other Party, areFriends bool) Decision {
	if actor.ID == other.ID {
		return deny("cannot message yourself")
	}

	// Regional nazims have unrestricted reach, in either direction.
	if actor.Role == models.RoleRegionalNazim || other.Role == models.RoleRegionalNazim {
		return allow()
	}

	switch {
	case actor.Role == models.RoleTifl && other.Role == models.RoleTifl:
		if !areFriends {
			return deny("You must be friends to message")
		}
		return allow()

	case actor.Role == models.RoleTifl && other.Role == models.RoleLocalNazim:
		if !sameMajlis(actor.MajlisID, other.MajlisID) {
			return deny("You can only message your Local Nazim")
		}
		return allow()

	case actor.Role == models.RoleLocalNazim && other.Role == models.RoleTifl:
		if !sameMajlis(actor.MajlisID, other.MajlisID) {
			return deny("You can only message Tifls in your Majlis")
		}
		return allow()

	case actor.Role == models.RoleLocalNazim && other.Role == models.RoleLocalNazim:
		// No nazim-to-nazim channel exists.
		return deny("messaging between local nazims is not available")
	}

	return deny("messaging is not permitted between these roles")
}

func sameMajlis(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}
