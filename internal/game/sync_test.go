package game

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

// TestDeltaTracksSpawn reports the starting block and resets afterwards
func TestDeltaTracksSpawn(t *testing.T) {
	e := newTestEngine(t, 10, 10, "p1")

	if !e.HasChanges() {
		t.Fatal("expected changes after spawn")
	}
	d := e.GetDelta()
	if len(d.Cells) != 4 {
		t.Errorf("delta cells = %d, want 4", len(d.Cells))
	}
	if p := d.Players["p1"]; p == nil || p.AreaCount != 4 {
		t.Errorf("delta player = %+v", p)
	}
	if d.TimeRemaining == nil || d.GameOver == nil || d.WinnerName == nil {
		t.Error("first delta should carry all scalars")
	}
	// row-major order
	want := [][2]int{{2, 2}, {2, 3}, {3, 2}, {3, 3}}
	for i, u := range d.Cells {
		if u.Row != want[i][0] || u.Col != want[i][1] {
			t.Errorf("cell %d at (%d,%d), want %v", i, u.Row, u.Col, want[i])
		}
	}

	if e.HasChanges() {
		t.Error("tracking should reset after GetDelta")
	}
	d = e.GetDelta()
	if len(d.Cells) != 0 || len(d.Players) != 0 {
		t.Errorf("second delta not empty: %+v", d)
	}
	if d.GameOver != nil || d.WinnerName != nil {
		t.Error("unchanged scalars should be omitted")
	}
}

// TestFullStateDoesNotResetTracking keeps pending changes for the next delta
func TestFullStateDoesNotResetTracking(t *testing.T) {
	e := newTestEngine(t, 10, 10, "p1")
	full := e.GetFullState()

	if len(full.Cells) != 10 || len(full.Cells[0]) != 10 {
		t.Fatalf("cells shape %dx%d", len(full.Cells), len(full.Cells[0]))
	}
	if full.Cells[2][3].OwnerID != "p1" {
		t.Errorf("cell row 2 col 3 = %+v", full.Cells[2][3])
	}
	if !e.HasChanges() {
		t.Error("GetFullState must not consume changes")
	}
}

// TestDeltaMarksRemovedPlayers sends null for departed players
func TestDeltaMarksRemovedPlayers(t *testing.T) {
	e := newTestEngine(t, 10, 10, "p1", "p2")
	e.GetDelta()

	e.RemovePlayer("p2")
	d := e.GetDelta()
	p, ok := d.Players["p2"]
	if !ok || p != nil {
		t.Fatalf("expected p2 -> nil, got %v (present=%v)", p, ok)
	}
	if len(d.Cells) != 4 {
		t.Errorf("released cells = %d, want 4", len(d.Cells))
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	js := string(data)
	if !strings.Contains(js, `"p2":null`) || !strings.Contains(js, `"ownerId":null`) {
		t.Errorf("unexpected wire form: %s", js)
	}
}

// TestDeltaConvergence replays deltas and periodic snapshots on a client copy
func TestDeltaConvergence(t *testing.T) {
	e := newTestEngine(t, 16, 12, "a", "b", "c")
	rng := rand.New(rand.NewSource(5))
	dirs := []Direction{DirUp, DirDown, DirLeft, DirRight}
	ids := []string{"a", "b", "c"}

	client := e.GetFullState()
	for tick := 1; tick <= 600; tick++ {
		for _, id := range ids {
			if rng.Intn(4) == 0 {
				e.SetDirection(id, dirs[rng.Intn(len(dirs))])
			}
		}
		e.Tick()

		switch {
		case tick%60 == 0:
			client = e.GetFullState()
		case tick%2 == 0 && e.HasChanges():
			ApplyDelta(&client, e.GetDelta())
		}
	}
	ApplyDelta(&client, e.GetDelta())

	server := e.GetFullState()
	if !reflect.DeepEqual(client.Cells, server.Cells) {
		t.Error("cells diverged")
	}
	if !reflect.DeepEqual(client.Players, server.Players) {
		t.Errorf("players diverged:\nclient %+v\nserver %+v", client.Players, server.Players)
	}
	if client.TimeRemaining != server.TimeRemaining {
		t.Errorf("time %d vs %d", client.TimeRemaining, server.TimeRemaining)
	}
}

// TestCellJSON round-trips the null owner form
func TestCellJSON(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{"unclaimed", unclaimedCell(), `{"ownerId":null,"color":"#FFFFFF","isTrail":false}`},
		{"trail", Cell{OwnerID: "x", Color: "#2BBAA5", Trail: true}, `{"ownerId":"x","color":"#2BBAA5","isTrail":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cell)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
			var back Cell
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatal(err)
			}
			if back != tt.cell {
				t.Errorf("round trip %+v != %+v", back, tt.cell)
			}
		})
	}
}
