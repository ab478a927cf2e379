package game

import (
	"encoding/json"
	"time"
)

// EventType classifies journal entries.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeCapture
	EventTypeElimination
	EventTypeMatchEnd
)

// EventVersion is bumped when a payload changes shape.
const EventVersion uint8 = 1

// Event is one journal line.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Kind      string          `json:"kind"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	TickNum   uint64          `json:"tickNum"`
	RoomID    string          `json:"roomId,omitempty"`
	PlayerID  string          `json:"playerId,omitempty"` // rate limit key
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (t EventType) String() string {
	switch t {
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeCapture:
		return "capture"
	case EventTypeElimination:
		return "elimination"
	case EventTypeMatchEnd:
		return "match_end"
	default:
		return "unknown"
	}
}

// PlayerJoinPayload records a spawn.
type PlayerJoinPayload struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Element    Element `json:"element,omitempty"`
	SpawnX     int     `json:"spawnX"`
	SpawnY     int     `json:"spawnY"`
}

// PlayerLeavePayload records a departure and the cells it released.
type PlayerLeavePayload struct {
	PlayerID string `json:"playerId"`
	Released int    `json:"released"`
}

// CapturePayload records a loop closure.
type CapturePayload struct {
	PlayerID  string `json:"playerId"`
	TrailLen  int    `json:"trailLen"`
	Gained    int    `json:"gained"`
	AreaCount int    `json:"areaCount"`
}

// EliminationPayload records a death. KillerID is empty for self-collision.
type EliminationPayload struct {
	VictimID string `json:"victimId"`
	KillerID string `json:"killerId,omitempty"`
	Released int    `json:"released"`
}

// MatchEndPayload records the final result.
type MatchEndPayload struct {
	WinnerID   string     `json:"winnerId,omitempty"`
	WinnerName string     `json:"winnerName"`
	Standings  []Standing `json:"standings"`
}

// EncodePayload marshals a payload, returning nil on failure.
func EncodePayload(payload interface{}) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType EventType, tickNum uint64, roomID, playerID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Kind:      eventType.String(),
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		RoomID:    roomID,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
