package lod

import "fmt"

// Grid holds the active tier of every tile in a width x height arrangement.
// Tile (x, y) lives at index y*Width + x; y grows towards the bottom side.
type Grid struct {
	Width, Height int
	Tiers         []int
}

// NewGrid creates a grid with every tile at tier 0.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Tiers:  make([]int, width*height),
	}
}

// Index returns the flat index of tile (x, y).
func (g *Grid) Index(x, y int) int {
	return y*g.Width + x
}

// Neighbor returns the flat index of the tile on side s of (x, y), or -1 at the grid edge.
func (g *Grid) Neighbor(x, y int, s Side) int {
	switch s {
	case Left:
		x--
	case Right:
		x++
	case Top:
		y--
	case Bottom:
		y++
	default:
		panic(fmt.Sprintf("lod: unknown side %d", s))
	}
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return -1
	}
	return g.Index(x, y)
}

// Reconcile clamps tiers until no tile is more than one tier coarser than its finest
// neighbor. Each pass scans the whole grid and lowers an offending tile by one; passes
// repeat until one makes no change. It returns the number of passes run, including the
// final clean pass.
func (g *Grid) Reconcile() int {
	passes := 0
	for {
		passes++
		changed := false
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				i := g.Index(x, y)
				limit, ok := g.finestNeighbor(x, y)
				if ok && g.Tiers[i] > limit+1 {
					g.Tiers[i]--
					changed = true
				}
			}
		}
		if !changed {
			return passes
		}
	}
}

func (g *Grid) finestNeighbor(x, y int) (int, bool) {
	best, found := 0, false
	for _, s := range Sides {
		n := g.Neighbor(x, y, s)
		if n < 0 {
			continue
		}
		if !found || g.Tiers[n] < best {
			best = g.Tiers[n]
			found = true
		}
	}
	return best, found
}

// Code returns the neighbor code of tile (x, y): a side's bit is set when that neighbor's
// tier is strictly finer.
func (g *Grid) Code(x, y int) NeighborCode {
	tier := g.Tiers[g.Index(x, y)]
	var c NeighborCode
	for _, s := range Sides {
		n := g.Neighbor(x, y, s)
		if n >= 0 && g.Tiers[n] < tier {
			c |= 1 << s
		}
	}
	return c
}

// MaxNeighborDifference returns the largest tier difference between adjacent tiles.
func (g *Grid) MaxNeighborDifference() int {
	worst := 0
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			t := g.Tiers[g.Index(x, y)]
			for _, s := range []Side{Right, Bottom} {
				n := g.Neighbor(x, y, s)
				if n < 0 {
					continue
				}
				d := t - g.Tiers[n]
				if d < 0 {
					d = -d
				}
				if d > worst {
					worst = d
				}
			}
		}
	}
	return worst
}
