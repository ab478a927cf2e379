package game

import "land-grab/internal/game/rank"

// Standing is one row of the area ranking.
type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Area     int    `json:"area"`
}

// Leaderboard ranks alive players by territory. Equal areas are ordered by
// player id so the leader is always well defined.
type Leaderboard struct {
	list *rank.SkipList
}

func NewLeaderboard(seed int64) *Leaderboard {
	return &Leaderboard{list: rank.NewSkipList(seed)}
}

func (lb *Leaderboard) UpdateArea(playerID string, area int) {
	lb.list.Insert(playerID, float64(area))
}

func (lb *Leaderboard) Remove(playerID string) {
	lb.list.Remove(playerID)
}

// Leader returns the top-ranked player id.
func (lb *Leaderboard) Leader() (string, bool) {
	e, ok := lb.list.ByRank(1)
	return e.Key, ok
}

// Top returns up to n standings.
func (lb *Leaderboard) Top(n int) []Standing {
	entries := lb.list.Range(1, n)
	out := make([]Standing, len(entries))
	for i, e := range entries {
		out[i] = Standing{Rank: i + 1, PlayerID: e.Key, Area: int(e.Score)}
	}
	return out
}
