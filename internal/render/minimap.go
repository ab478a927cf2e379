// Package render draws server-side previews of an arena.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"land-grab/internal/game"
	"land-grab/internal/protocol"
)

// textureVariants is the number of tile shades a territory cycles through.
const textureVariants = 4

// Source is what a minimap needs from a match. *game.Engine implements it.
type Source interface {
	ForEachCell(fn func(row, col int, c game.Cell))
	Players() []game.Player
}

// MinimapOptions controls the output size and tile shading.
type MinimapOptions struct {
	CellPx int    // pixels per cell
	Seed   string // texture seed shared with clients
}

func DefaultMinimapOptions() MinimapOptions {
	return MinimapOptions{CellPx: 8, Seed: "0"}
}

var (
	background = color.RGBA{12, 12, 28, 255}
	gridLine   = color.RGBA{30, 30, 45, 255}
)

// Minimap renders a width x height arena. A nil src draws the empty grid of a
// room that has not started.
func Minimap(width, height int, src Source, opts MinimapOptions) image.Image {
	if opts.CellPx < 1 {
		opts.CellPx = 1
	}
	px := float64(opts.CellPx)
	dc := gg.NewContext(width*opts.CellPx, height*opts.CellPx)

	dc.SetColor(background)
	dc.DrawRectangle(0, 0, float64(width)*px, float64(height)*px)
	dc.Fill()

	if src == nil {
		drawEmpty(dc, width, height, px)
		return dc.Image()
	}

	src.ForEachCell(func(row, col int, c game.Cell) {
		x, y := float64(col)*px, float64(row)*px
		base := parseHexColor(c.Color)
		if c.OwnerID == "" {
			base = parseHexColor(game.UnclaimedColor)
		}
		dc.SetColor(shade(base, protocol.TextureVariant(row, col, c.OwnerID, opts.Seed, textureVariants)))
		dc.DrawRectangle(x, y, px, px)
		dc.Fill()

		// trails are drawn as an inset stripe on a darker tile
		if c.Trail {
			dc.SetColor(color.RGBA{0, 0, 0, 90})
			dc.DrawRectangle(x, y, px, px)
			dc.Fill()
			dc.SetColor(base)
			inset := px / 4
			dc.DrawRectangle(x+inset, y+inset, px-2*inset, px-2*inset)
			dc.Fill()
		}
	})

	for _, p := range src.Players() {
		if p.Alive {
			drawPlayer(dc, p, px)
		}
	}
	return dc.Image()
}

func drawEmpty(dc *gg.Context, width, height int, px float64) {
	dc.SetColor(parseHexColor(game.UnclaimedColor))
	dc.DrawRectangle(0, 0, float64(width)*px, float64(height)*px)
	dc.Fill()

	if px < 4 {
		return
	}
	dc.SetColor(gridLine)
	dc.SetLineWidth(1)
	for col := 0; col <= width; col++ {
		dc.DrawLine(float64(col)*px, 0, float64(col)*px, float64(height)*px)
		dc.Stroke()
	}
	for row := 0; row <= height; row++ {
		dc.DrawLine(0, float64(row)*px, float64(width)*px, float64(row)*px)
		dc.Stroke()
	}
}

func drawPlayer(dc *gg.Context, p game.Player, px float64) {
	cx := float64(p.X)*px + px/2
	cy := float64(p.Y)*px + px/2
	radius := px * 0.45

	// Shadow
	dc.SetColor(color.RGBA{0, 0, 0, 128})
	dc.DrawCircle(cx, cy+px/8, radius)
	dc.Fill()

	// Body
	dc.SetColor(parseHexColor(p.Color))
	dc.DrawCircle(cx, cy, radius)
	dc.Fill()

	// Border
	dc.SetColor(color.RGBA{20, 25, 35, 255})
	dc.SetLineWidth(max(1, px/8))
	dc.DrawCircle(cx, cy, radius)
	dc.Stroke()
}

// WritePNG renders and encodes a minimap.
func WritePNG(w io.Writer, width, height int, src Source, opts MinimapOptions) error {
	img := Minimap(width, height, src, opts)
	dc := gg.NewContextForImage(img)
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode minimap: %w", err)
	}
	return nil
}

// shade lightens or darkens c by a small step per texture variant.
func shade(c color.RGBA, variant int) color.RGBA {
	delta := []int{0, 10, -10, 18}[variant%textureVariants]
	return color.RGBA{clamp(int(c.R) + delta), clamp(int(c.G) + delta), clamp(int(c.B) + delta), c.A}
}

func clamp(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}

	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}
