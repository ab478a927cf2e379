package game

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	ErrPlayerExists = errors.New("player already in match")
	ErrNoSpawn      = errors.New("no free spawn block")
	ErrMatchOver    = errors.New("match is over")
)

// EngineConfig holds the simulation parameters of one match.
//
// Players advance one cell every MoveEvery ticks, not every tick. The default
// of 6 gives 10 cells/s at 60 Hz; MoveEvery = 1 steps on every tick.
type EngineConfig struct {
	Width         int           // cells
	Height        int           // cells
	TickRate      int           // ticks per second
	MoveEvery     int           // ticks per movement step; values below 1 mean 1
	MatchDuration time.Duration // countdown length
	Seed          int64
}

// DefaultEngineConfig is a 3 minute match at 60 Hz moving 10 cells/s.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Width:         40,
		Height:        30,
		TickRate:      60,
		MoveEvery:     6,
		MatchDuration: 3 * time.Minute,
		Seed:          time.Now().UnixNano(),
	}
}

func (c EngineConfig) validate() error {
	if c.Width < 4 || c.Height < 4 {
		return fmt.Errorf("arena %dx%d too small", c.Width, c.Height)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	return nil
}

// TickDuration is the simulated time one Tick represents.
func (c EngineConfig) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Option customises an Engine.
type Option func(*Engine)

// WithEventLog journals match events to el.
func WithEventLog(el *EventLog) Option {
	return func(e *Engine) { e.events = el }
}

// WithRoomID tags journal entries with the owning room.
func WithRoomID(id string) Option {
	return func(e *Engine) { e.roomID = id }
}

// Engine is the authoritative simulation of one match. All methods are safe
// for concurrent use; Tick is expected to be driven by a single scheduler.
type Engine struct {
	mu  sync.Mutex
	cfg EngineConfig

	arena   *Arena
	players map[string]*Player
	order   []*Player // join order, the processing order of every tick
	joined  int

	tickCount  uint64
	remaining  time.Duration
	gameOver   bool
	winnerID   string
	winnerName string

	leaderboard *Leaderboard
	changes     changeSet

	snapshots *SnapshotPool
	events    *EventLog
	roomID    string
}

// NewEngine builds an empty arena ready for AddPlayer.
func NewEngine(cfg EngineConfig, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MoveEvery < 1 {
		cfg.MoveEvery = 1
	}

	e := &Engine{
		cfg:         cfg,
		arena:       NewArena(cfg.Width, cfg.Height),
		players:     make(map[string]*Player),
		remaining:   cfg.MatchDuration,
		leaderboard: NewLeaderboard(cfg.Seed),
		changes:     newChangeSet(),
		snapshots:   NewSnapshotPool(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.publishSnapshot()
	return e, nil
}

// Config returns the engine parameters.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// spawnAnchors returns the preferred top-left corners in join order.
func (e *Engine) spawnAnchors() [][2]int {
	w, h := e.cfg.Width, e.cfg.Height
	clampX := func(x int) int { return min(max(x, 0), w-2) }
	clampY := func(y int) int { return min(max(y, 0), h-2) }
	return [][2]int{
		{clampX(w / 4), clampY(h / 4)},
		{clampX(3 * w / 4), clampY(h / 4)},
		{clampX(w / 4), clampY(3 * h / 4)},
		{clampX(3 * w / 4), clampY(3 * h / 4)},
	}
}

func (e *Engine) blockFree(x, y int) bool {
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			if !e.arena.InBounds(x+dx, y+dy) || e.arena.At(x+dx, y+dy).OwnerID != "" {
				return false
			}
		}
	}
	for _, p := range e.order {
		if p.Alive && p.X >= x && p.X <= x+1 && p.Y >= y && p.Y <= y+1 {
			return false
		}
	}
	return true
}

func (e *Engine) findSpawn() (int, int, bool) {
	anchors := e.spawnAnchors()
	if e.joined < len(anchors) {
		a := anchors[e.joined]
		if e.blockFree(a[0], a[1]) {
			return a[0], a[1], true
		}
	}
	for y := 0; y+1 < e.cfg.Height; y++ {
		for x := 0; x+1 < e.cfg.Width; x++ {
			if e.blockFree(x, y) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// AddPlayer spawns a new actor with a 2x2 starting territory.
func (e *Engine) AddPlayer(spec Spec) (Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver {
		return Player{}, ErrMatchOver
	}
	if _, ok := e.players[spec.ID]; ok {
		return Player{}, ErrPlayerExists
	}
	x, y, ok := e.findSpawn()
	if !ok {
		return Player{}, ErrNoSpawn
	}

	p := &Player{
		ID:        spec.ID,
		Name:      spec.Name,
		Element:   spec.Element,
		Color:     spec.Element.Color(),
		X:         x,
		Y:         y,
		Direction: DirNone,
		Alive:     true,
		order:     e.joined,
		lastStep:  DirNone,
	}
	e.joined++
	e.players[p.ID] = p
	e.order = append(e.order, p)
	delete(e.changes.removed, p.ID)

	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			e.setCell(e.arena.Index(x+dx, y+dy), Cell{OwnerID: p.ID, Color: p.Color})
		}
	}
	e.changes.markPlayer(p.ID)

	e.events.EmitSimple(EventTypePlayerJoin, e.tickCount, e.roomID, p.ID, PlayerJoinPayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Element:    p.Element,
		SpawnX:     x,
		SpawnY:     y,
	})
	return p.clone(), nil
}

// RemovePlayer drops an actor and releases its cells. It reports whether the
// player was present.
func (e *Engine) RemovePlayer(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.players[id]
	if !ok {
		return false
	}
	released := e.release(p)
	delete(e.players, id)
	for i, q := range e.order {
		if q == p {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.leaderboard.Remove(id)
	delete(e.changes.players, id)
	e.changes.removed[id] = struct{}{}

	e.events.EmitSimple(EventTypePlayerLeave, e.tickCount, e.roomID, id, PlayerLeavePayload{
		PlayerID: id,
		Released: released,
	})
	e.publishSnapshot()
	return true
}

// SetDirection queues a heading for the next movement step. Unknown or
// eliminated players, a finished match, and reversals while moving are
// ignored and reported as false.
func (e *Engine) SetDirection(id string, dir Direction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver {
		return false
	}
	dir, ok := ParseDirection(string(dir))
	if !ok {
		return false
	}
	p, found := e.players[id]
	if !found || !p.Alive {
		return false
	}
	if dir == p.Direction {
		return true
	}
	if p.Direction != DirNone && dir != DirNone {
		if dir == p.Direction.Opposite() || dir == p.lastStep.Opposite() {
			return false
		}
	}
	p.Direction = dir
	e.changes.markPlayer(id)
	return true
}

// Tick advances the match by one fixed step.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver {
		return
	}
	e.tickCount++

	if e.tickCount%uint64(e.cfg.MoveEvery) == 0 {
		for _, p := range e.order {
			if p.Alive && p.Direction != DirNone {
				e.step(p)
			}
		}
	}

	e.remaining -= e.cfg.TickDuration()
	if e.remaining <= 0 {
		e.remaining = 0
		e.finish()
	}
	e.publishSnapshot()
}

// step moves p one cell and resolves what it lands on.
func (e *Engine) step(p *Player) {
	dx, dy := p.Direction.Delta()
	nx, ny := p.X+dx, p.Y+dy
	if !e.arena.InBounds(nx, ny) {
		return
	}
	p.X, p.Y = nx, ny
	p.lastStep = p.Direction
	e.changes.markPlayer(p.ID)

	idx := e.arena.Index(nx, ny)
	c := e.arena.cells[idx]

	switch {
	case c.OwnerID == p.ID && c.Trail:
		e.eliminate(p, "")
	case c.OwnerID == p.ID:
		if p.HasTrail() {
			e.capture(p)
		}
	case c.Trail:
		if victim, ok := e.players[c.OwnerID]; ok {
			e.eliminate(victim, p.ID)
		}
		e.layTrail(p, idx)
	default:
		e.layTrail(p, idx)
	}
}

func (e *Engine) layTrail(p *Player, idx int) {
	e.setCell(idx, Cell{OwnerID: p.ID, Color: p.Color, Trail: true})
	p.trail = append(p.trail, idx)
}

// release returns every trail and territory cell of p to unclaimed.
func (e *Engine) release(p *Player) int {
	released := 0
	for _, idx := range p.trail {
		if e.arena.cells[idx].OwnerID == p.ID {
			e.setCell(idx, unclaimedCell())
			released++
		}
	}
	p.trail = nil
	if e.arena.Area(p.ID) > 0 {
		for idx, c := range e.arena.cells {
			if c.OwnerID == p.ID {
				e.setCell(idx, unclaimedCell())
				released++
			}
		}
	}
	return released
}

func (e *Engine) eliminate(p *Player, killerID string) {
	if !p.Alive {
		return
	}
	released := e.release(p)
	p.Alive = false
	p.Direction = DirNone
	p.AreaCount = 0
	e.leaderboard.Remove(p.ID)
	e.changes.markPlayer(p.ID)

	log.Printf("💀 [%s] %s eliminated (killer=%q)", e.roomID, p.Name, killerID)
	e.events.EmitSimple(EventTypeElimination, e.tickCount, e.roomID, p.ID, EliminationPayload{
		VictimID: p.ID,
		KillerID: killerID,
		Released: released,
	})
}

// setCell is the single write path for the grid. It marks the cell dirty and
// refreshes the area of any owner whose territory changed.
func (e *Engine) setCell(idx int, c Cell) {
	old := e.arena.set(idx, c)
	if old == c {
		return
	}
	e.changes.markCell(idx)
	if old.OwnerID != "" && !old.Trail {
		e.refreshArea(old.OwnerID)
	}
	if c.OwnerID != "" && !c.Trail {
		e.refreshArea(c.OwnerID)
	}
}

func (e *Engine) refreshArea(id string) {
	p, ok := e.players[id]
	if !ok {
		return
	}
	area := e.arena.Area(id)
	if p.AreaCount == area {
		return
	}
	p.AreaCount = area
	e.changes.markPlayer(id)
	if p.Alive {
		e.leaderboard.UpdateArea(id, area)
	}
}

// finish freezes the match and picks the winner among alive players.
func (e *Engine) finish() {
	e.gameOver = true
	for _, p := range e.order {
		if p.Direction != DirNone {
			p.Direction = DirNone
			e.changes.markPlayer(p.ID)
		}
	}
	if id, ok := e.leaderboard.Leader(); ok {
		e.winnerID = id
		e.winnerName = e.players[id].Name
	}

	log.Printf("🏁 [%s] match over, winner=%q", e.roomID, e.winnerName)
	e.events.EmitSimple(EventTypeMatchEnd, e.tickCount, e.roomID, "", MatchEndPayload{
		WinnerID:   e.winnerID,
		WinnerName: e.winnerName,
		Standings:  e.leaderboard.Top(len(e.order)),
	})
}

func (e *Engine) publishSnapshot() {
	alive := 0
	for _, p := range e.order {
		if p.Alive {
			alive++
		}
	}
	e.snapshots.Publish(&MatchSnapshot{
		TickNumber:    e.tickCount,
		PlayerCount:   len(e.order),
		AliveCount:    alive,
		TimeRemaining: e.remaining,
		GameOver:      e.gameOver,
		WinnerName:    e.winnerName,
		Unclaimed:     e.arena.Unclaimed(),
		Standings:     e.leaderboard.Top(MaxSnapshotStandings),
	})
}

// Snapshot returns the last published summary without locking the engine.
func (e *Engine) Snapshot() *MatchSnapshot {
	return e.snapshots.Latest()
}

// Player returns a copy of one actor.
func (e *Engine) Player(id string) (Player, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.players[id]
	if !ok {
		return Player{}, false
	}
	return p.clone(), true
}

// Players returns copies of all resident actors in join order.
func (e *Engine) Players() []Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Player, len(e.order))
	for i, p := range e.order {
		out[i] = p.clone()
	}
	return out
}

// GameOver reports whether the countdown has expired.
func (e *Engine) GameOver() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gameOver
}

// Winner returns the winning player's name; empty when nobody survived.
func (e *Engine) Winner() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winnerName
}

// TimeRemaining returns the countdown.
func (e *Engine) TimeRemaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// TickCount returns the number of ticks processed.
func (e *Engine) TickCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}

// Census counts cells by kind: territory per alive owner, unclaimed, trail.
// It scans the grid rather than trusting the counters.
func (e *Engine) Census() (territory map[string]int, unclaimed, trail int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	territory = make(map[string]int)
	for _, c := range e.arena.cells {
		switch {
		case c.OwnerID == "":
			unclaimed++
		case c.Trail:
			trail++
		default:
			territory[c.OwnerID]++
		}
	}
	return territory, unclaimed, trail
}

// Cell returns the cell at column x, row y.
func (e *Engine) Cell(x, y int) Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.At(x, y)
}

// ForEachCell visits the grid in row-major order under the engine lock.
func (e *Engine) ForEachCell(fn func(row, col int, c Cell)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for idx, c := range e.arena.cells {
		x, y := e.arena.Coords(idx)
		fn(y, x, c)
	}
}
