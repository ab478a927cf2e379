// Package room hosts lobbies and running matches. A Room owns its lobby, its
// engine once started, the connections of its members and spectators, and the
// scheduler goroutine that ticks the engine and broadcasts state.
package room

import (
	"log"
	"sync"
	"time"

	"land-grab/internal/chat"
	"land-grab/internal/game"
	"land-grab/internal/metrics"
	"land-grab/internal/protocol"
)

// Conn is the outbound half of a client connection. Send must not block.
// Close ends the connection; reason is shown to the peer and may be empty.
type Conn interface {
	Send(data []byte) error
	Close(reason string) error
}

// KickReason is the close reason a kicked player's connection receives.
const KickReason = "Kicked by host"

// State is the room lifecycle.
type State string

const (
	StateLobby      State = "LOBBY"
	StateInProgress State = "IN_PROGRESS"
	StateEnded      State = "ENDED"
)

type spectator struct {
	id   string
	name string
}

// Room is one lobby and, once started, its match. Methods are safe for
// concurrent use.
type Room struct {
	ID        string
	Code      string // empty for public rooms
	Private   bool
	CreatedAt time.Time

	mu         sync.Mutex
	settings   Settings
	state      State
	lobby      *Lobby
	conns      map[string]Conn
	spectators []spectator
	engine     *game.Engine
	frame      uint64
	closed     bool
	stop       chan struct{}

	manual bool // no scheduler goroutine; tests call advance
	events *game.EventLog
	chat   *chat.RateLimiter
	now    func() time.Time
}

func newRoom(id, code string, settings Settings, events *game.EventLog, limiter *chat.RateLimiter, manual bool) *Room {
	return &Room{
		ID:        id,
		Code:      code,
		Private:   code != "",
		CreatedAt: time.Now(),
		settings:  settings,
		state:     StateLobby,
		lobby:     NewLobby(settings.Match.MaxPlayers),
		conns:     make(map[string]Conn),
		manual:    manual,
		events:    events,
		chat:      limiter,
		now:       time.Now,
	}
}

// Summary is the HTTP view of a room.
type Summary struct {
	ID         string              `json:"id"`
	Code       string              `json:"code,omitempty"`
	Private    bool                `json:"isPrivate"`
	State      State               `json:"state"`
	Players    int                 `json:"players"`
	MaxPlayers int                 `json:"maxPlayers"`
	Spectators int                 `json:"spectators"`
	CreatedAt  time.Time           `json:"createdAt"`
	Match      *game.MatchSnapshot `json:"match,omitempty"`
}

func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{
		ID:         r.ID,
		Code:       r.Code,
		Private:    r.Private,
		State:      r.state,
		Players:    r.lobby.Len(),
		MaxPlayers: r.lobby.Max(),
		Spectators: len(r.spectators),
		CreatedAt:  r.CreatedAt,
	}
	if r.engine != nil {
		s.Match = r.engine.Snapshot()
	}
	return s
}

func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Engine returns the running match, or nil before START_GAME.
func (r *Room) Engine() *game.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine
}

// Settings returns the room's geometry and rules.
func (r *Room) Settings() Settings {
	return r.settings
}

// Members returns the lobby seats in join order.
func (r *Room) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Member, 0, r.lobby.Len())
	for _, m := range r.lobby.Members() {
		out = append(out, *m)
	}
	return out
}

// joinable reports whether the public matchmaker may place a player here.
func (r *Room) joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && !r.Private && r.state == StateLobby && !r.lobby.Full()
}

func (r *Room) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lobby.Len() == 0 && len(r.spectators) == 0
}

func (r *Room) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lobby.Get(id) != nil || r.spectatorIndex(id) >= 0
}

func (r *Room) counts() (players, spectators int, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lobby.Len(), len(r.spectators), r.state
}

func (r *Room) spectatorIndex(id string) int {
	for i, s := range r.spectators {
		if s.id == id {
			return i
		}
	}
	return -1
}

func (r *Room) lobbyState() protocol.LobbyState {
	var code *string
	if r.Code != "" {
		c := r.Code
		code = &c
	}
	return protocol.LobbyState{
		RoomID:     r.ID,
		RoomCode:   code,
		IsPrivate:  r.Private,
		State:      string(r.state),
		Players:    r.lobby.View(),
		MaxPlayers: r.lobby.Max(),
	}
}

func (r *Room) lobbyUpdate() protocol.LobbyStateUpdate {
	return protocol.LobbyStateUpdate{Type: protocol.MsgLobbyState, LobbyState: r.lobbyState()}
}

func (r *Room) timestamp() int64 {
	return r.now().UnixMilli()
}

// join seats a player in the lobby.
func (r *Room) join(id, name string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.state != StateLobby {
		return ErrGameStarted
	}
	m, err := r.lobby.Add(id, name)
	if err != nil {
		return err
	}
	r.conns[id] = conn

	r.apply([]Effect{
		toOne(id, protocol.LobbyJoined{Type: protocol.MsgLobbyJoined, PlayerID: id, LobbyState: r.lobbyState()}),
		toOthers(id, protocol.LobbyPlayerJoined{Type: protocol.MsgLobbyPlayerJoined, Player: m.View()}),
		toAll(r.lobbyUpdate()),
	})
	return nil
}

// spectate attaches a read-only observer.
func (r *Room) spectate(id, name string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	r.spectators = append(r.spectators, spectator{id: id, name: name})
	r.conns[id] = conn

	welcome := protocol.SpectateInit{
		Type:     protocol.MsgSpectateInit,
		PlayerID: id,
		Arena:    r.settings.arena(),
		Lobby:    r.lobbyState(),
	}
	if r.engine != nil {
		full := r.engine.GetFullState()
		welcome.GameState = &full
	}
	r.apply([]Effect{
		toOne(id, welcome),
		toOthers(id, protocol.SpectatorEvent{Type: protocol.MsgSpectatorJoined, PlayerID: id, Name: name}),
	})
	return nil
}

// leave detaches a member or spectator and tells the rest of the room.
// It reports whether id was a member (not a spectator).
func (r *Room) leave(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.spectatorIndex(id); i >= 0 {
		r.spectators = append(r.spectators[:i], r.spectators[i+1:]...)
		delete(r.conns, id)
		r.apply([]Effect{toAll(protocol.SpectatorEvent{Type: protocol.MsgSpectatorLeft, PlayerID: id})})
		return false
	}
	effects, ok := r.removeMember(id)
	if !ok {
		return false
	}
	delete(r.conns, id)
	r.apply(effects)
	return true
}

// removeMember drops id from the lobby and the match and returns the
// announcements for everyone left.
func (r *Room) removeMember(id string) ([]Effect, bool) {
	removed, newHost := r.lobby.Remove(id)
	if removed == nil {
		return nil, false
	}
	if r.chat != nil {
		r.chat.Forget(id)
	}
	if newHost != nil {
		log.Printf("👑 [%s] host left, %s (%s) takes over", r.ID, newHost.Name, newHost.ID)
	}

	var effects []Effect
	if r.engine != nil {
		r.engine.RemovePlayer(id)
		effects = append(effects, toOthers(id, protocol.PlayerLeft{Type: protocol.MsgPlayerLeft, PlayerID: id}))
	} else {
		effects = append(effects, toOthers(id, protocol.PlayerLeft{Type: protocol.MsgLobbyPlayerLeft, PlayerID: id}))
	}
	effects = append(effects, toOthers(id, r.lobbyUpdate()))
	return effects, true
}

// Handle applies one client intent from playerID and delivers the resulting
// messages. Unknown or out-of-phase intents are ignored.
func (r *Room) Handle(playerID string, env protocol.Envelope) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Outcome{}
	}
	out := r.transition(playerID, env)
	r.apply(out.Effects)
	return out
}

func (r *Room) transition(playerID string, env protocol.Envelope) Outcome {
	member := r.lobby.Get(playerID)

	switch env.Type {
	case protocol.MsgSetReady:
		if member == nil || r.state != StateLobby {
			return Outcome{}
		}
		msg, err := protocol.DecodePayload[protocol.SetReady](env)
		if err != nil {
			return Outcome{}
		}
		r.lobby.SetReady(playerID, msg.IsReady)
		return Outcome{Effects: []Effect{toAll(r.lobbyUpdate())}}

	case protocol.MsgSetElement:
		if member == nil || r.state != StateLobby {
			return Outcome{}
		}
		msg, err := protocol.DecodePayload[protocol.SetElement](env)
		if err != nil {
			return Outcome{}
		}
		if err := r.lobby.SetElement(playerID, msg.Element); err != nil {
			metrics.RecordRejection(err.Error())
			return Outcome{Effects: []Effect{
				toOne(playerID, protocol.ElementError{Type: protocol.MsgElementError, Reason: err.Error()}),
			}}
		}
		return Outcome{Effects: []Effect{toAll(r.lobbyUpdate())}}

	case protocol.MsgLobbyChat:
		if member == nil {
			return Outcome{}
		}
		text, ok := r.chatLine(playerID, env)
		if !ok {
			return Outcome{}
		}
		return Outcome{Effects: []Effect{toAll(protocol.LobbyChatMessage{
			Type:       protocol.MsgLobbyChatMessage,
			PlayerID:   playerID,
			PlayerName: member.Name,
			Message:    text,
			Timestamp:  r.timestamp(),
		})}}

	case protocol.MsgChat:
		if member == nil || r.state == StateLobby {
			return Outcome{}
		}
		text, ok := r.chatLine(playerID, env)
		if !ok {
			return Outcome{}
		}
		return Outcome{Effects: []Effect{toAll(protocol.ChatMessage{
			Type:       protocol.MsgChat,
			PlayerID:   playerID,
			PlayerName: member.Name,
			Message:    text,
			Timestamp:  r.timestamp(),
		})}}

	case protocol.MsgKickPlayer:
		if member == nil {
			return Outcome{}
		}
		msg, err := protocol.DecodePayload[protocol.KickPlayer](env)
		if err != nil {
			return Outcome{}
		}
		return r.kick(member, msg.TargetPlayerID)

	case protocol.MsgStartGame:
		if member == nil || r.state != StateLobby {
			return Outcome{}
		}
		if err := r.lobby.CanStart(playerID, r.settings.Match.MinPlayers); err != nil {
			code, _ := err.(Code)
			metrics.RecordRejection(string(code))
			return Outcome{Effects: []Effect{toOne(playerID, protocol.GameStartError{
				Type:    protocol.MsgGameStartError,
				Error:   string(code),
				Message: startMessages[code],
			})}}
		}
		return r.start()

	case protocol.MsgMovement:
		if member == nil || r.state != StateInProgress {
			return Outcome{}
		}
		msg, err := protocol.DecodePayload[protocol.Movement](env)
		if err != nil {
			return Outcome{}
		}
		r.engine.SetDirection(playerID, game.Direction(msg.Direction))
		return Outcome{}
	}
	return Outcome{}
}

func (r *Room) chatLine(playerID string, env protocol.Envelope) (string, bool) {
	msg, err := protocol.DecodePayload[protocol.Chat](env)
	if err != nil {
		return "", false
	}
	text, ok := chat.Sanitize(msg.Message, chat.MaxMessageRunes)
	if !ok {
		return "", false
	}
	if r.chat != nil && !r.chat.Allow(playerID) {
		return "", false
	}
	return text, true
}

func (r *Room) kick(host *Member, targetID string) Outcome {
	var code Code
	switch {
	case !host.Host:
		code = ErrNotHost
	case targetID == host.ID:
		code = ErrCannotKickSelf
	case r.lobby.Get(targetID) == nil:
		code = ErrPlayerNotFound
	}
	if code != "" {
		metrics.RecordRejection(string(code))
		return Outcome{Effects: []Effect{toOne(host.ID, protocol.KickError{Type: protocol.MsgKickError, Error: string(code)})}}
	}

	log.Printf("👢 [%s] %s kicked %s", r.ID, host.ID, targetID)
	effects := []Effect{disconnect(targetID, KickReason)}
	rest, _ := r.removeMember(targetID)
	effects = append(effects, rest...)
	return Outcome{Effects: effects, Removed: []string{targetID}, Reindex: true}
}

// start creates the engine, spawns every member in join order and hands the
// room to the scheduler.
func (r *Room) start() Outcome {
	engine, err := game.NewEngine(
		r.settings.engineConfig(time.Now().UnixNano()),
		game.WithEventLog(r.events),
		game.WithRoomID(r.ID),
	)
	if err != nil {
		log.Printf("❌ [%s] cannot start match: %v", r.ID, err)
		return Outcome{}
	}

	var effects []Effect
	var spawned []game.Player
	for _, m := range r.lobby.Members() {
		p, err := engine.AddPlayer(game.Spec{ID: m.ID, Name: m.Name, Element: m.Element})
		if err != nil {
			log.Printf("⚠️  [%s] spawn %s failed: %v", r.ID, m.ID, err)
			continue
		}
		spawned = append(spawned, p)
		effects = append(effects, toOne(m.ID, protocol.Init{
			Type:     protocol.MsgInit,
			PlayerID: m.ID,
			Player:   p,
			Arena:    r.settings.arena(),
		}))
	}
	for _, p := range spawned {
		effects = append(effects, toAll(protocol.PlayerJoined{Type: protocol.MsgPlayerJoined, Player: p}))
	}

	r.engine = engine
	r.state = StateInProgress
	r.frame = 0
	effects = append(effects,
		toAll(protocol.GameStarted{Type: protocol.MsgGameStarted}),
		toAll(r.lobbyUpdate()),
	)

	metrics.MatchStarted()
	log.Printf("🎮 [%s] match started with %d players", r.ID, len(spawned))
	r.startScheduler()
	return Outcome{Effects: effects, Reindex: true}
}

func (r *Room) startScheduler() {
	if r.manual {
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	go r.run(stop, time.Second/time.Duration(r.settings.Match.TickRate))
}

func (r *Room) run(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !r.advance() {
				return
			}
		}
	}
}

// advance runs one engine tick and broadcasts state: a full snapshot every
// FullStateEvery frames, a delta every DeltaEvery frames when something
// changed. It reports whether the match is still running.
func (r *Room) advance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state != StateInProgress {
		return false
	}
	started := time.Now()
	r.engine.Tick()
	r.frame++

	var effects []Effect
	switch {
	case r.engine.GameOver():
		r.state = StateEnded
		r.stop = nil
		r.engine.GetDelta()
		effects = append(effects,
			toAll(protocol.GameStateUpdate{Type: protocol.MsgGameState, GameState: r.engine.GetFullState(), Timestamp: r.timestamp()}),
			toAll(r.lobbyUpdate()),
		)
		metrics.RecordSync("full")
		metrics.MatchFinished()
	case r.frame%r.settings.fullStateEvery() == 0:
		effects = append(effects, toAll(protocol.GameStateUpdate{
			Type:      protocol.MsgGameState,
			GameState: r.engine.GetFullState(),
			Timestamp: r.timestamp(),
		}))
		metrics.RecordSync("full")
	case r.frame%r.settings.deltaEvery() == 0 && r.engine.HasChanges():
		effects = append(effects, toAll(protocol.GameStateDelta{
			Type:      protocol.MsgGameDelta,
			Delta:     r.engine.GetDelta(),
			Timestamp: r.timestamp(),
		}))
		metrics.RecordSync("delta")
	}
	r.apply(effects)
	metrics.RecordTick(time.Since(started))
	return r.state == StateInProgress
}

// close stops the scheduler. The goroutine exits on its next wake-up; close
// never waits for it because advance holds the same lock.
func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

// apply delivers effects. Each message is encoded once and sent without
// blocking; slow connections drop frames on their side.
func (r *Room) apply(effects []Effect) {
	for _, ef := range effects {
		if ef.Msg != nil {
			data, err := protocol.Encode(ef.Msg)
			if err != nil {
				log.Printf("❌ [%s] encode failed: %v", r.ID, err)
				continue
			}
			switch ef.Target {
			case ToOne:
				r.send(ef.PlayerID, data)
			case ToAll, ToOthers:
				for id := range r.conns {
					if ef.Target == ToOthers && id == ef.PlayerID {
						continue
					}
					r.send(id, data)
				}
			}
		}
		if ef.Disconnect {
			if c, ok := r.conns[ef.PlayerID]; ok {
				delete(r.conns, ef.PlayerID)
				c.Close(ef.Reason)
			}
		}
	}
}

func (r *Room) send(id string, data []byte) {
	c, ok := r.conns[id]
	if !ok {
		return
	}
	if err := c.Send(data); err != nil {
		metrics.RecordDropped()
	}
}
