package room

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"land-grab/internal/chat"
	"land-grab/internal/game"
	"land-grab/internal/metrics"
	"land-grab/internal/protocol"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithEvents journals every match to el.
func WithEvents(el *game.EventLog) RegistryOption {
	return func(g *Registry) { g.events = el }
}

// WithManualTicks disables scheduler goroutines. Tests drive rooms with Step.
func WithManualTicks() RegistryOption {
	return func(g *Registry) { g.manual = true }
}

// WithMetricsInterval sets how often gauges are refreshed. Zero disables the
// reporter.
func WithMetricsInterval(d time.Duration) RegistryOption {
	return func(g *Registry) { g.reportEvery = d }
}

// Registry tracks every room, the private room codes, the public
// matchmaking index and which room each connected player is in.
//
// Lock order: registry, then room, then engine.
type Registry struct {
	mu         sync.RWMutex
	settings   Settings
	rooms      map[string]*Room
	order      []string // creation order
	codes      map[string]string
	public     []string // joinable public rooms, creation order
	playerRoom map[string]string

	events      *game.EventLog
	chat        *chat.RateLimiter
	manual      bool
	reportEvery time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewRegistry creates an empty registry. Call Close when done.
func NewRegistry(settings Settings, opts ...RegistryOption) *Registry {
	g := &Registry{
		settings:    settings,
		rooms:       make(map[string]*Room),
		codes:       make(map[string]string),
		playerRoom:  make(map[string]string),
		reportEvery: 5 * time.Second,
		stopChan:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.chat = chat.NewRateLimiter(settings.Chat)
	if g.reportEvery > 0 {
		go g.reportLoop()
	}
	return g
}

// NewPlayerID mints an id for a fresh connection.
func NewPlayerID() string {
	return uuid.New().String()
}

// Dispatch routes one decoded client message. conn is used when the message
// places the player in a room.
func (g *Registry) Dispatch(playerID string, conn Conn, env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgJoinPublic, protocol.MsgJoinPrivate, protocol.MsgCreatePrivate, protocol.MsgSpectate:
		g.place(playerID, conn, env)
		return
	}

	g.mu.RLock()
	r := g.rooms[g.playerRoom[playerID]]
	g.mu.RUnlock()
	if r == nil {
		return
	}

	out := r.Handle(playerID, env)
	if len(out.Removed) == 0 && !out.Reindex {
		return
	}

	g.mu.Lock()
	for _, id := range out.Removed {
		delete(g.playerRoom, id)
	}
	g.disposeIfEmptyLocked(r)
	g.reindexLocked()
	g.mu.Unlock()
	g.publishMetrics()
}

func (g *Registry) place(playerID string, conn Conn, env protocol.Envelope) {
	g.mu.Lock()
	if roomID, ok := g.playerRoom[playerID]; ok {
		r := g.rooms[roomID]
		if r != nil && r.State() != StateEnded {
			// already seated; a second join is ignored
			g.mu.Unlock()
			return
		}
		// the match is over: leave it and queue again
		delete(g.playerRoom, playerID)
		if r != nil {
			r.leave(playerID)
			g.disposeIfEmptyLocked(r)
		}
	}

	var err error
	switch env.Type {
	case protocol.MsgJoinPublic:
		var msg protocol.JoinPublic
		if msg, err = protocol.DecodePayload[protocol.JoinPublic](env); err == nil {
			err = g.joinPublicLocked(playerID, chat.Name(msg.Name, "Player"), conn)
		}
	case protocol.MsgJoinPrivate:
		var msg protocol.JoinPrivate
		if msg, err = protocol.DecodePayload[protocol.JoinPrivate](env); err == nil {
			err = g.joinPrivateLocked(playerID, chat.Name(msg.Name, "Player"), msg.RoomCode, conn)
		}
	case protocol.MsgCreatePrivate:
		var msg protocol.CreatePrivate
		if msg, err = protocol.DecodePayload[protocol.CreatePrivate](env); err == nil {
			err = g.createPrivateLocked(playerID, chat.Name(msg.Name, "Player"), conn)
		}
	case protocol.MsgSpectate:
		var msg protocol.Spectate
		if msg, err = protocol.DecodePayload[protocol.Spectate](env); err == nil {
			err = g.spectateLocked(playerID, chat.Name(msg.Name, "Spectator"), msg.RoomCode, conn)
		}
	}
	g.reindexLocked()
	g.mu.Unlock()

	if err != nil {
		code, ok := err.(Code)
		if !ok {
			return
		}
		metrics.RecordRejection(string(code))
		if data, encErr := protocol.Encode(protocol.JoinError{Type: protocol.MsgJoinError, Error: string(code)}); encErr == nil {
			if conn.Send(data) != nil {
				metrics.RecordDropped()
			}
		}
		return
	}
	g.publishMetrics()
}

func (g *Registry) joinPublicLocked(playerID, name string, conn Conn) error {
	for _, id := range g.public {
		r := g.rooms[id]
		if r == nil {
			continue
		}
		if err := r.join(playerID, name, conn); err == nil {
			g.playerRoom[playerID] = r.ID
			return nil
		}
	}
	r := g.createLocked(false)
	if err := r.join(playerID, name, conn); err != nil {
		g.disposeIfEmptyLocked(r)
		return err
	}
	g.playerRoom[playerID] = r.ID
	return nil
}

func (g *Registry) joinPrivateLocked(playerID, name, code string, conn Conn) error {
	r := g.rooms[g.codes[strings.ToUpper(strings.TrimSpace(code))]]
	if r == nil {
		return ErrRoomNotFound
	}
	if err := r.join(playerID, name, conn); err != nil {
		return err
	}
	g.playerRoom[playerID] = r.ID
	return nil
}

func (g *Registry) createPrivateLocked(playerID, name string, conn Conn) error {
	r := g.createLocked(true)
	if err := r.join(playerID, name, conn); err != nil {
		g.disposeIfEmptyLocked(r)
		return err
	}
	g.playerRoom[playerID] = r.ID
	log.Printf("🔒 Private room %s created with code %s", r.ID, r.Code)
	return nil
}

// spectateLocked attaches to the room with code, or to the first public room
// with a match running, or any public room.
func (g *Registry) spectateLocked(playerID, name, code string, conn Conn) error {
	var target *Room
	if code != "" {
		target = g.rooms[g.codes[strings.ToUpper(strings.TrimSpace(code))]]
	} else {
		for _, id := range g.order {
			r := g.rooms[id]
			if r.Private {
				continue
			}
			if r.State() == StateInProgress {
				target = r
				break
			}
			if target == nil {
				target = r
			}
		}
	}
	if target == nil {
		return ErrRoomNotFound
	}
	if err := target.spectate(playerID, name, conn); err != nil {
		return err
	}
	g.playerRoom[playerID] = target.ID
	return nil
}

func (g *Registry) createLocked(private bool) *Room {
	code := ""
	if private {
		code = g.newCodeLocked()
	}
	r := newRoom(uuid.New().String(), code, g.settings, g.events, g.chat, g.manual)
	g.rooms[r.ID] = r
	g.order = append(g.order, r.ID)
	if code != "" {
		g.codes[code] = r.ID
	}
	log.Printf("🏠 Room %s created (private=%v)", r.ID, private)
	return r
}

func (g *Registry) newCodeLocked() string {
	max := big.NewInt(int64(len(codeAlphabet)))
	for {
		var b strings.Builder
		for i := 0; i < codeLength; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				panic(fmt.Sprintf("room code: %v", err))
			}
			b.WriteByte(codeAlphabet[n.Int64()])
		}
		if _, taken := g.codes[b.String()]; !taken {
			return b.String()
		}
	}
}

// Disconnect removes a player or spectator from wherever they are.
func (g *Registry) Disconnect(playerID string) {
	g.mu.Lock()
	roomID, ok := g.playerRoom[playerID]
	if !ok {
		g.mu.Unlock()
		return
	}
	delete(g.playerRoom, playerID)
	r := g.rooms[roomID]
	if r != nil {
		r.leave(playerID)
		g.disposeIfEmptyLocked(r)
	}
	g.reindexLocked()
	g.mu.Unlock()
	g.publishMetrics()
}

func (g *Registry) disposeIfEmptyLocked(r *Room) {
	if !r.empty() {
		return
	}
	r.close()
	delete(g.rooms, r.ID)
	if r.Code != "" {
		delete(g.codes, r.Code)
	}
	for i, id := range g.order {
		if id == r.ID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	log.Printf("🗑️  Room %s disposed", r.ID)
}

// reindexLocked rebuilds the public index from scratch in creation order.
func (g *Registry) reindexLocked() {
	g.public = g.public[:0]
	for _, id := range g.order {
		if g.rooms[id].joinable() {
			g.public = append(g.public, id)
		}
	}
}

// Room returns a room by id.
func (g *Registry) Room(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	return r, ok
}

// RoomByCode resolves a private room code, case-insensitively.
func (g *Registry) RoomByCode(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[g.codes[strings.ToUpper(strings.TrimSpace(code))]]
	return r, ok
}

// RoomOf returns the room a player or spectator is in.
func (g *Registry) RoomOf(playerID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[g.playerRoom[playerID]]
	return r, ok
}

// PublicRooms lists rooms that are not private, in creation order.
func (g *Registry) PublicRooms() []Summary {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Summary, 0, len(g.order))
	for _, id := range g.order {
		if r := g.rooms[id]; !r.Private {
			out = append(out, r.Summary())
		}
	}
	return out
}

// Stats is a registry-wide census.
type Stats struct {
	Rooms       int            `json:"rooms"`
	ByState     map[string]int `json:"byState"`
	PublicOpen  int            `json:"publicOpen"`
	Private     int            `json:"private"`
	Players     int            `json:"players"`
	Spectators  int            `json:"spectators"`
	Connections int            `json:"connections"`
}

func (g *Registry) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{
		Rooms:       len(g.rooms),
		ByState:     map[string]int{string(StateLobby): 0, string(StateInProgress): 0, string(StateEnded): 0},
		PublicOpen:  len(g.public),
		Private:     len(g.codes),
		Connections: len(g.playerRoom),
	}
	for _, r := range g.rooms {
		players, spectators, state := r.counts()
		s.ByState[string(state)]++
		s.Players += players
		s.Spectators += spectators
	}
	return s
}

// Step advances every running room by one tick. Only meaningful with
// WithManualTicks.
func (g *Registry) Step() {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.order))
	for _, id := range g.order {
		rooms = append(rooms, g.rooms[id])
	}
	g.mu.RUnlock()

	for _, r := range rooms {
		r.advance()
	}
}

// CheckInvariants verifies the cross-index bookkeeping and returns the first
// violation found.
func (g *Registry) CheckInvariants() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inPublic := make(map[string]bool, len(g.public))
	for _, id := range g.public {
		r, ok := g.rooms[id]
		if !ok {
			return fmt.Errorf("public index holds unknown room %s", id)
		}
		if !r.joinable() {
			return fmt.Errorf("public index holds unjoinable room %s", id)
		}
		inPublic[id] = true
	}
	for id, r := range g.rooms {
		if r.joinable() && !inPublic[id] {
			return fmt.Errorf("joinable room %s missing from public index", id)
		}
		if r.Private {
			if g.codes[r.Code] != id {
				return fmt.Errorf("private room %s code %q not indexed", id, r.Code)
			}
		} else if r.Code != "" {
			return fmt.Errorf("public room %s carries a code", id)
		}
		if r.empty() {
			return fmt.Errorf("empty room %s not disposed", id)
		}
		for _, m := range r.Members() {
			if g.playerRoom[m.ID] != id {
				return fmt.Errorf("member %s of room %s not mapped", m.ID, id)
			}
		}
	}
	for code, id := range g.codes {
		r, ok := g.rooms[id]
		if !ok || r.Code != code {
			return fmt.Errorf("code %s points at wrong room %s", code, id)
		}
	}
	for pid, id := range g.playerRoom {
		r, ok := g.rooms[id]
		if !ok {
			return fmt.Errorf("player %s mapped to unknown room %s", pid, id)
		}
		if !r.has(pid) {
			return fmt.Errorf("player %s mapped to room %s but not in it", pid, id)
		}
	}
	if len(g.order) != len(g.rooms) {
		return fmt.Errorf("creation order has %d rooms, map has %d", len(g.order), len(g.rooms))
	}
	return nil
}

func (g *Registry) publishMetrics() {
	s := g.Stats()
	metrics.SetRooms(s.ByState)
	metrics.SetPlayers(s.Players)
	metrics.SetSpectators(s.Spectators)
}

func (g *Registry) reportLoop() {
	ticker := time.NewTicker(g.reportEvery)
	defer ticker.Stop()
	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.publishMetrics()
		}
	}
}

// Close stops every room and background goroutine.
func (g *Registry) Close() {
	g.stopOnce.Do(func() {
		close(g.stopChan)
		g.chat.Stop()

		g.mu.Lock()
		defer g.mu.Unlock()
		for _, r := range g.rooms {
			r.close()
		}
	})
}
