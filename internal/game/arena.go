package game

import "encoding/json"

// UnclaimedColor is the fill of cells nobody owns.
const UnclaimedColor = "#FFFFFF"

// Cell is one grid square. OwnerID is empty for unclaimed cells.
type Cell struct {
	OwnerID string
	Color   string
	Trail   bool
}

type wireCell struct {
	OwnerID *string `json:"ownerId"`
	Color   string  `json:"color"`
	IsTrail bool    `json:"isTrail"`
}

// MarshalJSON encodes an unclaimed owner as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	w := wireCell{Color: c.Color, IsTrail: c.Trail}
	if c.OwnerID != "" {
		id := c.OwnerID
		w.OwnerID = &id
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var w wireCell
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Color = w.Color
	c.Trail = w.IsTrail
	c.OwnerID = ""
	if w.OwnerID != nil {
		c.OwnerID = *w.OwnerID
	}
	return nil
}

func unclaimedCell() Cell {
	return Cell{Color: UnclaimedColor}
}

// Arena is the width x height cell grid with live per-owner accounting.
// Cells are stored row-major; row is y and col is x.
type Arena struct {
	Width  int
	Height int

	cells  []Cell
	area   map[string]int // territory cells per owner
	trails int
}

// NewArena returns a fully unclaimed grid.
func NewArena(width, height int) *Arena {
	a := &Arena{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
		area:   make(map[string]int),
	}
	for i := range a.cells {
		a.cells[i] = unclaimedCell()
	}
	return a
}

func (a *Arena) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < a.Width && y < a.Height
}

func (a *Arena) Index(x, y int) int {
	return y*a.Width + x
}

func (a *Arena) Coords(idx int) (x, y int) {
	return idx % a.Width, idx / a.Width
}

// At returns the cell at column x, row y.
func (a *Arena) At(x, y int) Cell {
	return a.cells[a.Index(x, y)]
}

// Size is the total number of cells.
func (a *Arena) Size() int {
	return len(a.cells)
}

// Area returns the territory count of owner.
func (a *Arena) Area(owner string) int {
	return a.area[owner]
}

// TrailCells returns how many cells are trail.
func (a *Arena) TrailCells() int {
	return a.trails
}

// Unclaimed returns how many cells have no owner.
func (a *Arena) Unclaimed() int {
	n := len(a.cells) - a.trails
	for _, c := range a.area {
		n -= c
	}
	return n
}

// set replaces a cell and keeps the counters in step. It returns the old cell.
func (a *Arena) set(idx int, c Cell) Cell {
	old := a.cells[idx]
	if old == c {
		return old
	}
	a.uncount(old)
	a.count(c)
	a.cells[idx] = c
	return old
}

func (a *Arena) count(c Cell) {
	switch {
	case c.OwnerID == "":
	case c.Trail:
		a.trails++
	default:
		a.area[c.OwnerID]++
	}
}

func (a *Arena) uncount(c Cell) {
	switch {
	case c.OwnerID == "":
	case c.Trail:
		a.trails--
	default:
		a.area[c.OwnerID]--
		if a.area[c.OwnerID] == 0 {
			delete(a.area, c.OwnerID)
		}
	}
}

// Rows returns a deep copy of the grid as [row][col].
func (a *Arena) Rows() [][]Cell {
	rows := make([][]Cell, a.Height)
	for y := 0; y < a.Height; y++ {
		row := make([]Cell, a.Width)
		copy(row, a.cells[y*a.Width:(y+1)*a.Width])
		rows[y] = row
	}
	return rows
}

// neighbors4 calls fn for each in-bounds orthogonal neighbour of idx.
func (a *Arena) neighbors4(idx int, fn func(n int)) {
	x, y := a.Coords(idx)
	if x > 0 {
		fn(idx - 1)
	}
	if x < a.Width-1 {
		fn(idx + 1)
	}
	if y > 0 {
		fn(idx - a.Width)
	}
	if y < a.Height-1 {
		fn(idx + a.Width)
	}
}
