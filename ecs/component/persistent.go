package component

import "github.com/google/uuid"

// Identity is the stable id of an actor. It survives save/load, unlike the
// generational entity handle, and is what snapshots use to relink pairs.
type Identity struct {
	ID uuid.UUID
}

func NewIdentity() *Identity {
	return &Identity{ID: uuid.New()}
}

var IdentityComponent = NewComponent[Identity]("identity")
