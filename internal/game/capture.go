package game

// capture closes p's loop: its trail becomes territory and any unclaimed
// pocket fully enclosed by p's territory is claimed.
//
// A cell is outside when it can reach the arena border without crossing p's
// territory. Enclosed cells are claimed only if they are unclaimed and
// connected to p's land through other unclaimed enclosed cells, so a pocket
// walled off by another player's land or trail is left alone.
func (e *Engine) capture(p *Player) {
	before := e.arena.Area(p.ID)
	trailLen := len(p.trail)

	for _, idx := range p.trail {
		e.setCell(idx, Cell{OwnerID: p.ID, Color: p.Color})
	}
	p.trail = nil

	a := e.arena
	own := func(idx int) bool {
		c := a.cells[idx]
		return c.OwnerID == p.ID && !c.Trail
	}

	outside := make([]bool, a.Size())
	queue := make([]int, 0, 2*(a.Width+a.Height))
	seed := func(idx int) {
		if !outside[idx] && !own(idx) {
			outside[idx] = true
			queue = append(queue, idx)
		}
	}
	for x := 0; x < a.Width; x++ {
		seed(a.Index(x, 0))
		seed(a.Index(x, a.Height-1))
	}
	for y := 0; y < a.Height; y++ {
		seed(a.Index(0, y))
		seed(a.Index(a.Width-1, y))
	}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		a.neighbors4(idx, seed)
	}

	claimable := func(idx int) bool {
		return !outside[idx] && a.cells[idx].OwnerID == ""
	}
	claimed := make([]bool, a.Size())
	queue = queue[:0]
	for idx := range a.cells {
		if !own(idx) {
			continue
		}
		a.neighbors4(idx, func(n int) {
			if !claimed[n] && claimable(n) {
				claimed[n] = true
				queue = append(queue, n)
			}
		})
	}
	for i := 0; i < len(queue); i++ {
		a.neighbors4(queue[i], func(n int) {
			if !claimed[n] && claimable(n) {
				claimed[n] = true
				queue = append(queue, n)
			}
		})
	}
	for _, idx := range queue {
		e.setCell(idx, Cell{OwnerID: p.ID, Color: p.Color})
	}

	gained := e.arena.Area(p.ID) - before
	e.events.EmitSimple(EventTypeCapture, e.tickCount, e.roomID, p.ID, CapturePayload{
		PlayerID:  p.ID,
		TrailLen:  trailLen,
		Gained:    gained,
		AreaCount: p.AreaCount,
	})
}
