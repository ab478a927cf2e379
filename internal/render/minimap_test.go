package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
	"time"

	"land-grab/internal/game"
)

func newEngine(t *testing.T) *game.Engine {
	t.Helper()
	e, err := game.NewEngine(game.EngineConfig{
		Width: 10, Height: 8, TickRate: 60, MoveEvery: 1, MatchDuration: time.Minute, Seed: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddPlayer(game.Spec{ID: "a", Name: "A", Element: game.ElementWhale}); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestMinimapSize(t *testing.T) {
	img := Minimap(10, 8, newEngine(t), MinimapOptions{CellPx: 6})
	if b := img.Bounds(); b.Dx() != 60 || b.Dy() != 48 {
		t.Errorf("expected 60x48, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestMinimapPaintsTerritory(t *testing.T) {
	e := newEngine(t)
	p, _ := e.Player("a")
	img := Minimap(10, 8, e, MinimapOptions{CellPx: 10})

	// top-left corner of the spawn block is territory, away from the avatar
	r, g, b, _ := img.At(p.X*10+1, p.Y*10+1).RGBA()
	got := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255}
	want := parseHexColor(game.ElementWhale.Color())
	if diff := int(got.B) - int(want.B); diff < -18 || diff > 18 {
		t.Errorf("expected a whale-blue tile, got %v want ~%v", got, want)
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, 10, 8, nil, DefaultMinimapOptions()); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("not a png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 64 {
		t.Errorf("unexpected bounds %v", b)
	}
}

func TestShadeClamps(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	if s := shade(white, 3); s != white {
		t.Errorf("expected clamp at white, got %v", s)
	}
	if s := shade(color.RGBA{5, 5, 5, 255}, 2); s.R != 0 {
		t.Errorf("expected clamp at black, got %v", s)
	}
}
