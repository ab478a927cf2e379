package room

// Target selects the recipients of an Effect.
type Target int

const (
	ToOne    Target = iota // PlayerID only
	ToAll                  // every member and spectator
	ToOthers               // everyone except PlayerID
)

// Effect is one outbound consequence of a state transition.
type Effect struct {
	Target     Target
	PlayerID   string
	Msg        any  // nil sends nothing
	Disconnect bool   // close PlayerID's connection after sending
	Reason     string // close reason when Disconnect is set
}

// Outcome is what handling an intent produced.
type Outcome struct {
	Effects []Effect
	Removed []string // members that left the room
	Reindex bool     // joinability may have changed
}

func toOne(id string, msg any) Effect    { return Effect{Target: ToOne, PlayerID: id, Msg: msg} }
func toAll(msg any) Effect               { return Effect{Target: ToAll, Msg: msg} }
func toOthers(id string, msg any) Effect { return Effect{Target: ToOthers, PlayerID: id, Msg: msg} }
func disconnect(id, reason string) Effect {
	return Effect{Target: ToOne, PlayerID: id, Disconnect: true, Reason: reason}
}
