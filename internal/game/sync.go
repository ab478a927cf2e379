package game

import "sort"

// FullState is the complete authoritative view sent to (re)synchronise a
// client. Players includes eliminated actors.
type FullState struct {
	Players       map[string]Player `json:"players"`
	Cells         [][]Cell          `json:"cells"`
	TimeRemaining int64             `json:"timeRemaining"` // ms
	GameOver      bool              `json:"gameOver"`
	WinnerName    string            `json:"winnerName"`
}

// CellUpdate is one changed cell in a delta.
type CellUpdate struct {
	Row  int  `json:"row"`
	Col  int  `json:"col"`
	Cell Cell `json:"cell"`
}

// Delta lists what changed since the previous delta. A nil player entry
// means the player left. Scalar fields are present only when they changed.
type Delta struct {
	Cells         []CellUpdate       `json:"cells"`
	Players       map[string]*Player `json:"players"`
	TimeRemaining *int64             `json:"timeRemaining,omitempty"`
	GameOver      *bool              `json:"gameOver,omitempty"`
	WinnerName    *string            `json:"winnerName,omitempty"`
}

// Empty reports whether the delta carries nothing.
func (d Delta) Empty() bool {
	return len(d.Cells) == 0 && len(d.Players) == 0 &&
		d.TimeRemaining == nil && d.GameOver == nil && d.WinnerName == nil
}

type changeSet struct {
	cells   map[int]struct{}
	players map[string]struct{}
	removed map[string]struct{}

	// last values reported by GetDelta
	sent          bool
	sentRemaining int64
	sentGameOver  bool
	sentWinner    string
}

func newChangeSet() changeSet {
	return changeSet{
		cells:   make(map[int]struct{}),
		players: make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

func (c *changeSet) markCell(idx int) {
	c.cells[idx] = struct{}{}
}

func (c *changeSet) markPlayer(id string) {
	c.players[id] = struct{}{}
}

func (c *changeSet) reset() {
	clear(c.cells)
	clear(c.players)
	clear(c.removed)
}

// GetFullState copies the whole match. It does not reset change tracking.
func (e *Engine) GetFullState() FullState {
	e.mu.Lock()
	defer e.mu.Unlock()

	players := make(map[string]Player, len(e.players))
	for id, p := range e.players {
		players[id] = p.clone()
	}
	return FullState{
		Players:       players,
		Cells:         e.arena.Rows(),
		TimeRemaining: e.remaining.Milliseconds(),
		GameOver:      e.gameOver,
		WinnerName:    e.winnerName,
	}
}

// HasChanges reports whether any cell or player changed since the last
// GetDelta.
func (e *Engine) HasChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.changes.cells) > 0 || len(e.changes.players) > 0 || len(e.changes.removed) > 0
}

// GetDelta returns everything changed since the previous call and resets
// tracking. Cells come in row-major order.
func (e *Engine) GetDelta() Delta {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := &e.changes
	d := Delta{
		Cells:   make([]CellUpdate, 0, len(ch.cells)),
		Players: make(map[string]*Player, len(ch.players)+len(ch.removed)),
	}

	idxs := make([]int, 0, len(ch.cells))
	for idx := range ch.cells {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	for _, idx := range idxs {
		x, y := e.arena.Coords(idx)
		d.Cells = append(d.Cells, CellUpdate{Row: y, Col: x, Cell: e.arena.cells[idx]})
	}

	for id := range ch.players {
		if p, ok := e.players[id]; ok {
			c := p.clone()
			d.Players[id] = &c
		}
	}
	for id := range ch.removed {
		d.Players[id] = nil
	}

	remaining := e.remaining.Milliseconds()
	if !ch.sent || remaining != ch.sentRemaining {
		d.TimeRemaining = &remaining
	}
	if !ch.sent || e.gameOver != ch.sentGameOver {
		over := e.gameOver
		d.GameOver = &over
	}
	if !ch.sent || e.winnerName != ch.sentWinner {
		winner := e.winnerName
		d.WinnerName = &winner
	}
	ch.sent = true
	ch.sentRemaining = remaining
	ch.sentGameOver = e.gameOver
	ch.sentWinner = e.winnerName

	ch.reset()
	return d
}

// ApplyDelta merges d into s the way a client does. s.Cells must already
// have the arena dimensions.
func ApplyDelta(s *FullState, d Delta) {
	for _, u := range d.Cells {
		if u.Row < 0 || u.Row >= len(s.Cells) || u.Col < 0 || u.Col >= len(s.Cells[u.Row]) {
			continue
		}
		s.Cells[u.Row][u.Col] = u.Cell
	}
	if s.Players == nil {
		s.Players = make(map[string]Player)
	}
	for id, p := range d.Players {
		if p == nil {
			delete(s.Players, id)
			continue
		}
		s.Players[id] = *p
	}
	if d.TimeRemaining != nil {
		s.TimeRemaining = *d.TimeRemaining
	}
	if d.GameOver != nil {
		s.GameOver = *d.GameOver
	}
	if d.WinnerName != nil {
		s.WinnerName = *d.WinnerName
	}
}
