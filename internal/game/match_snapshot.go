package game

import (
	"sync/atomic"
	"time"
)

// MaxSnapshotStandings caps the standings copied into each snapshot.
const MaxSnapshotStandings = 8

// MatchSnapshot is an immutable summary of a match, published once per tick
// so HTTP readers never touch the engine lock.
type MatchSnapshot struct {
	Sequence      uint64        `json:"sequence"`
	Timestamp     time.Time     `json:"timestamp"`
	TickNumber    uint64        `json:"tick"`
	PlayerCount   int           `json:"playerCount"`
	AliveCount    int           `json:"aliveCount"`
	TimeRemaining time.Duration `json:"-"`
	RemainingMs   int64         `json:"timeRemaining"`
	GameOver      bool          `json:"gameOver"`
	WinnerName    string        `json:"winnerName"`
	Unclaimed     int           `json:"unclaimed"`
	Standings     []Standing    `json:"standings"`
}

// SnapshotPool hands out the latest published snapshot. Each publish swaps
// in a fresh value, so a reader may hold on to what it got indefinitely.
type SnapshotPool struct {
	latest   atomic.Pointer[MatchSnapshot]
	sequence atomic.Uint64
}

func NewSnapshotPool() *SnapshotPool {
	p := &SnapshotPool{}
	p.latest.Store(&MatchSnapshot{})
	return p
}

// Publish stamps and stores snap. The caller must not modify it afterwards.
func (p *SnapshotPool) Publish(snap *MatchSnapshot) {
	snap.Sequence = p.sequence.Add(1)
	snap.Timestamp = time.Now()
	snap.RemainingMs = snap.TimeRemaining.Milliseconds()
	p.latest.Store(snap)
}

// Latest returns the most recent snapshot. It is never nil.
func (p *SnapshotPool) Latest() *MatchSnapshot {
	return p.latest.Load()
}
