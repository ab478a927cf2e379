package room

import (
	"land-grab/internal/game"
	"land-grab/internal/protocol"
)

// Member is a seat in the lobby.
type Member struct {
	ID      string
	Name    string
	Element game.Element
	Ready   bool
	Host    bool
}

// Lobby keeps members in join order. The first member is always the host.
type Lobby struct {
	members []*Member
	max     int
}

func NewLobby(max int) *Lobby {
	return &Lobby{max: max}
}

func (l *Lobby) Len() int   { return len(l.members) }
func (l *Lobby) Full() bool { return len(l.members) >= l.max }
func (l *Lobby) Max() int   { return l.max }

func (l *Lobby) Get(id string) *Member {
	for _, m := range l.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Add seats a new member. The first one becomes host.
func (l *Lobby) Add(id, name string) (*Member, error) {
	if l.Full() {
		return nil, ErrRoomFull
	}
	m := &Member{ID: id, Name: name, Host: len(l.members) == 0}
	l.members = append(l.members, m)
	return m, nil
}

// Remove drops a member. When the host leaves, the next member in join order
// takes over and is returned as newHost.
func (l *Lobby) Remove(id string) (removed, newHost *Member) {
	for i, m := range l.members {
		if m.ID != id {
			continue
		}
		l.members = append(l.members[:i], l.members[i+1:]...)
		if m.Host && len(l.members) > 0 {
			l.members[0].Host = true
			newHost = l.members[0]
		}
		return m, newHost
	}
	return nil, nil
}

func (l *Lobby) SetReady(id string, ready bool) bool {
	m := l.Get(id)
	if m == nil {
		return false
	}
	m.Ready = ready
	return true
}

// SetElement claims an element for id. Two members never share one.
func (l *Lobby) SetElement(id, token string) error {
	m := l.Get(id)
	if m == nil {
		return ErrPlayerNotFound
	}
	el, ok := game.ParseElement(token)
	if !ok {
		return ErrInvalidElement
	}
	for _, other := range l.members {
		if other.ID != id && other.Element == el {
			return ErrElementTaken
		}
	}
	m.Element = el
	return nil
}

// CanStart checks the start gate for requester, in order: host, head count,
// elements, readiness.
func (l *Lobby) CanStart(requester string, minPlayers int) error {
	if m := l.Get(requester); m == nil || !m.Host {
		return ErrNotHost
	}
	if len(l.members) < minPlayers {
		return ErrNotEnoughPlayers
	}
	for _, m := range l.members {
		if m.Element == "" {
			return ErrElementRequired
		}
	}
	for _, m := range l.members {
		if !m.Ready {
			return ErrNotAllReady
		}
	}
	return nil
}

// Members returns the seats in join order.
func (l *Lobby) Members() []*Member {
	return append([]*Member(nil), l.members...)
}

// View is the member's row in the lobby broadcast.
func (m *Member) View() protocol.LobbyPlayer {
	v := protocol.LobbyPlayer{
		ID:      m.ID,
		Name:    m.Name,
		IsReady: m.Ready,
		IsHost:  m.Host,
	}
	if m.Element != "" {
		el := m.Element
		v.Element = &el
	}
	return v
}

func (l *Lobby) View() []protocol.LobbyPlayer {
	out := make([]protocol.LobbyPlayer, len(l.members))
	for i, m := range l.members {
		out[i] = m.View()
	}
	return out
}
