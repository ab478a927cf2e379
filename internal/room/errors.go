package room

// Code is a policy rejection sent back to the requester. Codes are
// comparable, so errors.Is works against the exported values.
type Code string

func (c Code) Error() string { return string(c) }

const (
	ErrRoomNotFound     Code = "ROOM_NOT_FOUND"
	ErrRoomFull         Code = "ROOM_FULL"
	ErrGameStarted      Code = "GAME_STARTED"
	ErrElementTaken     Code = "ELEMENT_TAKEN"
	ErrInvalidElement   Code = "INVALID_ELEMENT"
	ErrNotHost          Code = "NOT_HOST"
	ErrElementRequired  Code = "ELEMENT_REQUIRED"
	ErrNotAllReady      Code = "NOT_ALL_READY"
	ErrNotEnoughPlayers Code = "NOT_ENOUGH_PLAYERS"
	ErrCannotKickSelf   Code = "CANNOT_KICK_SELF"
	ErrPlayerNotFound   Code = "PLAYER_NOT_FOUND"
)

var startMessages = map[Code]string{
	ErrNotHost:          "Only the host can start the game",
	ErrNotEnoughPlayers: "At least 2 players are required to start the game",
	ErrElementRequired:  "All players must select a character before starting",
	ErrNotAllReady:      "All players must be ready before starting",
}
