package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of portal roles.
type Role string

const (
	RoleTifl          Role = "tifl"
	RoleLocalNazim    Role = "local_nazim"
	RoleRegionalNazim Role = "regional_nazim"
)

// Valid reports whether the role is one of the known portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTifl, RoleLocalNazim, RoleRegionalNazim:
		return true
	}
	return false
}

// User is a read-only view of a portal user record. The users table is owned
// by the surrounding portal; this service never writes to it.
type User struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Role      Role       `db:"role" json:"role"`
	MajlisID  *uuid.UUID `db:"majlis_id" json:"majlis_id,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}
