// Package protocol defines the JSON messages exchanged over the game
// websocket. Every message is a flat object with a "type" discriminator.
package protocol

import "land-grab/internal/game"

// Client to server.
const (
	MsgJoinPublic    = "JOIN_PUBLIC"
	MsgJoinPrivate   = "JOIN_PRIVATE"
	MsgCreatePrivate = "CREATE_PRIVATE"
	MsgSetReady      = "LOBBY_SET_READY"
	MsgSetElement    = "LOBBY_SET_ELEMENT"
	MsgLobbyChat     = "LOBBY_CHAT"
	MsgKickPlayer    = "KICK_PLAYER"
	MsgStartGame     = "START_GAME"
	MsgMovement      = "MOVEMENT"
	MsgChat          = "CHAT_MESSAGE"
	MsgSpectate      = "SPECTATE"
)

// Server to client.
const (
	MsgLobbyJoined       = "LOBBY_JOINED"
	MsgJoinError         = "JOIN_ERROR"
	MsgLobbyState        = "LOBBY_STATE_UPDATE"
	MsgLobbyPlayerJoined = "LOBBY_PLAYER_JOINED"
	MsgLobbyPlayerLeft   = "LOBBY_PLAYER_LEFT"
	MsgElementError      = "ELEMENT_SELECTION_ERROR"
	MsgLobbyChatMessage  = "LOBBY_CHAT_MESSAGE"
	MsgKickError         = "KICK_ERROR"
	MsgGameStartError    = "GAME_START_ERROR"
	MsgGameStarted       = "GAME_STARTED"
	MsgInit              = "INIT"
	MsgGameState         = "GAME_STATE_UPDATE"
	MsgGameDelta         = "GAME_STATE_DELTA"
	MsgPlayerJoined      = "PLAYER_JOINED"
	MsgPlayerLeft        = "PLAYER_LEFT"
	MsgSpectateInit      = "SPECTATE_INIT"
	MsgSpectatorJoined   = "SPECTATOR_JOINED"
	MsgSpectatorLeft     = "SPECTATOR_LEFT"
)

// ============================================================================
// Inbound payloads
// ============================================================================

type JoinPublic struct {
	Name string `json:"name"`
}

type JoinPrivate struct {
	Name     string `json:"name"`
	RoomCode string `json:"roomCode"`
}

type CreatePrivate struct {
	Name string `json:"name"`
}

type SetReady struct {
	IsReady bool `json:"isReady"`
}

type SetElement struct {
	Element string `json:"element"`
}

// Chat is used for both LOBBY_CHAT and in-match CHAT_MESSAGE.
type Chat struct {
	Message string `json:"message"`
}

type KickPlayer struct {
	TargetPlayerID string `json:"targetPlayerId"`
}

type Movement struct {
	Direction string `json:"direction"`
}

type Spectate struct {
	Name     string `json:"name"`
	RoomCode string `json:"roomCode,omitempty"`
}

// ============================================================================
// Shared shapes
// ============================================================================

// LobbyPlayer is one member row of the lobby view. Element is null until
// the member picks one.
type LobbyPlayer struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Element *game.Element `json:"element"`
	IsReady bool          `json:"isReady"`
	IsHost  bool          `json:"isHost"`
}

// LobbyState is the lobby view broadcast on every membership change.
type LobbyState struct {
	RoomID     string        `json:"roomId"`
	RoomCode   *string       `json:"roomCode"`
	IsPrivate  bool          `json:"isPrivate"`
	State      string        `json:"state"`
	Players    []LobbyPlayer `json:"players"`
	MaxPlayers int           `json:"maxPlayers"`
}

// Arena describes the grid geometry clients render.
type Arena struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	CellSize int `json:"cellSize"`
}

// ============================================================================
// Outbound messages
// ============================================================================

type LobbyJoined struct {
	Type       string     `json:"type"`
	PlayerID   string     `json:"playerId"`
	LobbyState LobbyState `json:"lobbyState"`
}

type JoinError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type LobbyStateUpdate struct {
	Type       string     `json:"type"`
	LobbyState LobbyState `json:"lobbyState"`
}

type LobbyPlayerJoined struct {
	Type   string      `json:"type"`
	Player LobbyPlayer `json:"player"`
}

type PlayerLeft struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

type ElementError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type LobbyChatMessage struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

type KickError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type GameStartError struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type GameStarted struct {
	Type string `json:"type"`
}

type Init struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"playerId"`
	Player   game.Player `json:"player"`
	Arena    Arena       `json:"arena"`
}

type GameStateUpdate struct {
	Type      string         `json:"type"`
	GameState game.FullState `json:"gameState"`
	Timestamp int64          `json:"timestamp"`
}

type GameStateDelta struct {
	Type      string     `json:"type"`
	Delta     game.Delta `json:"delta"`
	Timestamp int64      `json:"timestamp"`
}

type PlayerJoined struct {
	Type   string      `json:"type"`
	Player game.Player `json:"player"`
}

type ChatMessage struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

type SpectateInit struct {
	Type      string          `json:"type"`
	PlayerID  string          `json:"playerId"`
	Arena     Arena           `json:"arena"`
	Lobby     LobbyState      `json:"lobbyState"`
	GameState *game.FullState `json:"gameState,omitempty"`
}

type SpectatorEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
}
