package game

import "strings"

// Direction is a queued heading. NONE means stand still.
type Direction string

const (
	DirNone  Direction = "NONE"
	DirUp    Direction = "UP"
	DirDown  Direction = "DOWN"
	DirLeft  Direction = "LEFT"
	DirRight Direction = "RIGHT"
)

// ParseDirection maps a wire token to a Direction. Tokens are case-insensitive.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case DirNone, DirUp, DirDown, DirLeft, DirRight:
		return d, true
	}
	return "", false
}

// Delta returns the cell offset of one step.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

// Opposite returns the reverse heading; NONE has none.
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	}
	return DirNone
}

// Element is the cosmetic faction a lobby member picks.
type Element string

const (
	ElementDog     Element = "dog"
	ElementDuck    Element = "duck"
	ElementPenguin Element = "penguin"
	ElementWhale   Element = "whale"
)

// Elements lists the selectable elements in display order.
var Elements = []Element{ElementDog, ElementDuck, ElementPenguin, ElementWhale}

var elementColors = map[Element]string{
	ElementDog:     "#2BBAA5",
	ElementDuck:    "#FAECB6",
	ElementPenguin: "#F5F3D8",
	ElementWhale:   "#1D2A62",
}

// ParseElement validates an element token.
func ParseElement(s string) (Element, bool) {
	e := Element(strings.ToLower(strings.TrimSpace(s)))
	_, ok := elementColors[e]
	return e, ok
}

// Color returns the territory color of the element.
func (e Element) Color() string {
	if c, ok := elementColors[e]; ok {
		return c
	}
	return "#888888"
}

// Player is one actor in a running match.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Element   Element   `json:"element,omitempty"`
	Color     string    `json:"color"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Direction Direction `json:"direction"`
	AreaCount int       `json:"area"`
	Alive     bool      `json:"alive"`

	order    int
	lastStep Direction
	trail    []int // cell indices in the order they were laid
}

// Spec describes a player to add to an engine.
type Spec struct {
	ID      string
	Name    string
	Element Element
}

// HasTrail reports whether the player is outside its territory.
func (p *Player) HasTrail() bool {
	return len(p.trail) > 0
}

// TrailLen returns the number of open trail cells.
func (p *Player) TrailLen() int {
	return len(p.trail)
}

// clone returns a value copy that shares no memory with p.
func (p *Player) clone() Player {
	c := *p
	if p.trail != nil {
		c.trail = append([]int(nil), p.trail...)
	}
	return c
}
