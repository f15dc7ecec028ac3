// Package lod implements screen-space-error level of detail selection shared by the
// clipmap and geo-mipmap terrain drivers.
package lod

import (
	"fmt"
	"strings"
)

// Side identifies one edge of a tile.
type Side int

// Tile sides, in NeighborCode bit order.
const (
	Left Side = iota
	Right
	Top
	Bottom
)

// Sides lists every side in bit order.
var Sides = [4]Side{Left, Right, Top, Bottom}

// String returns the side name.
func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// NeighborCode is a 4-bit mask of the sides whose neighbor is at a finer tier.
type NeighborCode uint8

// Neighbor code bits.
const (
	LeftFiner   NeighborCode = 1 << Left
	RightFiner  NeighborCode = 1 << Right
	TopFiner    NeighborCode = 1 << Top
	BottomFiner NeighborCode = 1 << Bottom

	// NeighborCodes is the number of distinct codes.
	NeighborCodes = 16
)

// Encode packs per-side flags into a code.
func Encode(left, right, top, bottom bool) NeighborCode {
	var c NeighborCode
	if left {
		c |= LeftFiner
	}
	if right {
		c |= RightFiner
	}
	if top {
		c |= TopFiner
	}
	if bottom {
		c |= BottomFiner
	}
	return c
}

// Decode unpacks a code into per-side flags. It panics on a code above 15,
// which cannot be produced by Encode or Grid.Code.
func (c NeighborCode) Decode() (left, right, top, bottom bool) {
	c.mustBeValid()
	return c&LeftFiner != 0, c&RightFiner != 0, c&TopFiner != 0, c&BottomFiner != 0
}

// Has reports whether the neighbor on side s is finer.
func (c NeighborCode) Has(s Side) bool {
	c.mustBeValid()
	return c&(1<<s) != 0
}

// Valid reports whether the code fits in 4 bits.
func (c NeighborCode) Valid() bool {
	return c < NeighborCodes
}

func (c NeighborCode) mustBeValid() {
	if !c.Valid() {
		panic(fmt.Sprintf("lod: neighbor code %d out of range", uint8(c)))
	}
}

// String returns e.g. "left|top" or "none".
func (c NeighborCode) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, s := range Sides {
		if c&(1<<s) != 0 {
			parts = append(parts, s.String())
		}
	}
	if !c.Valid() {
		parts = append(parts, fmt.Sprintf("invalid(%d)", uint8(c)))
	}
	return strings.Join(parts, "|")
}
