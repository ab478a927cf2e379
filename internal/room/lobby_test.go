package room

import (
	"errors"
	"testing"
)

func TestLobbyCapacityAndHost(t *testing.T) {
	l := NewLobby(2)
	a, err := l.Add("a", "A")
	if err != nil || !a.Host {
		t.Fatalf("first member should be host, err=%v", err)
	}
	if b, _ := l.Add("b", "B"); b.Host {
		t.Error("second member should not be host")
	}
	if _, err := l.Add("c", "C"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("expected ROOM_FULL, got %v", err)
	}

	removed, newHost := l.Remove("a")
	if removed == nil || newHost == nil || newHost.ID != "b" {
		t.Fatalf("expected b to inherit host, got %+v", newHost)
	}
	if removed, _ := l.Remove("a"); removed != nil {
		t.Error("second remove should be a no-op")
	}
	if _, newHost := l.Remove("b"); newHost != nil {
		t.Error("no host when the lobby empties")
	}
}

func TestLobbyCanStart(t *testing.T) {
	l := NewLobby(4)
	l.Add("a", "A")

	if err := l.CanStart("a", 2); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("expected NOT_ENOUGH_PLAYERS, got %v", err)
	}
	l.Add("b", "B")
	if err := l.CanStart("b", 2); !errors.Is(err, ErrNotHost) {
		t.Errorf("expected NOT_HOST, got %v", err)
	}
	if err := l.CanStart("ghost", 2); !errors.Is(err, ErrNotHost) {
		t.Errorf("expected NOT_HOST for a stranger, got %v", err)
	}
	if err := l.CanStart("a", 2); !errors.Is(err, ErrElementRequired) {
		t.Errorf("expected ELEMENT_REQUIRED, got %v", err)
	}
	l.SetElement("a", "penguin")
	l.SetElement("b", "whale")
	l.SetReady("a", true)
	if err := l.CanStart("a", 2); !errors.Is(err, ErrNotAllReady) {
		t.Errorf("expected NOT_ALL_READY, got %v", err)
	}
	l.SetReady("b", true)
	if err := l.CanStart("a", 2); err != nil {
		t.Errorf("expected start to be allowed, got %v", err)
	}
}

func TestLobbyView(t *testing.T) {
	l := NewLobby(4)
	l.Add("a", "A")
	l.Add("b", "B")
	l.SetElement("b", "duck")
	l.SetReady("b", true)

	v := l.View()
	if len(v) != 2 || v[0].ID != "a" || !v[0].IsHost || elementOf(v[1]) != "duck" || !v[1].IsReady {
		t.Errorf("unexpected view %+v", v)
	}
	if v[0].Element != nil {
		t.Errorf("unpicked element should be null, got %q", *v[0].Element)
	}
	if err := l.SetElement("ghost", "dog"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected PLAYER_NOT_FOUND, got %v", err)
	}
}
