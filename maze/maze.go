// Package maze models a rectangular grid of cells separated by walls and generates
// perfect mazes over it.
//
// A perfect maze is one whose open walls form a spanning tree of the grid: every cell
// is reachable from every other through exactly one path.
package maze

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Direction names one of the four walls of a cell.
type Direction uint8

const (
	North Direction = iota
	South
	East
	West
)

var directions = [...]Direction{West, East, North, South}

// Delta returns the coordinate offset of the neighbour in direction d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	default:
		return -1, 0
	}
}

// Opposite returns the direction pointing back from the neighbour.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Cell is a single maze position. A true wall flag means the wall is open.
type Cell struct {
	North, South, East, West bool
	Visited                  bool
}

// Open reports whether the wall in direction d is open.
func (c *Cell) Open(d Direction) bool {
	switch d {
	case North:
		return c.North
	case South:
		return c.South
	case East:
		return c.East
	default:
		return c.West
	}
}

func (c *Cell) setOpen(d Direction) {
	switch d {
	case North:
		c.North = true
	case South:
		c.South = true
	case East:
		c.East = true
	default:
		c.West = true
	}
}

// Point is a cell coordinate.
type Point struct {
	X, Y int
}

// Maze is a Width×Height grid of cells stored in row-major order.
type Maze struct {
	Width, Height int
	cells         []Cell
}

// New returns a maze with every wall closed and every cell unvisited.
// It panics if either dimension is not positive.
func New(width, height int) *Maze {
	if width <= 0 || height <= 0 {
		panic("maze: dimensions must be positive")
	}
	return &Maze{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}
}

// In reports whether (x, y) lies inside the grid.
func (m *Maze) In(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// Cell returns the cell at (x, y). It panics if (x, y) is outside the grid; use In to
// check coordinates that do not come from the maze itself.
func (m *Maze) Cell(x, y int) *Cell {
	if !m.In(x, y) {
		panic(fmt.Sprintf("maze: cell (%d, %d) out of range %dx%d", x, y, m.Width, m.Height))
	}
	return &m.cells[y*m.Width+x]
}

// Carve opens the wall pair between two adjacent cells.
// It returns false, changing nothing, if the cells are not adjacent.
func (m *Maze) Carve(ax, ay, bx, by int) bool {
	d, ok := direction(ax, ay, bx, by)
	if !ok || !m.In(ax, ay) || !m.In(bx, by) {
		return false
	}
	m.Cell(ax, ay).setOpen(d)
	m.Cell(bx, by).setOpen(d.Opposite())
	return true
}

// direction derives the wall of a that faces b from the coordinate delta.
func direction(ax, ay, bx, by int) (Direction, bool) {
	switch {
	case bx == ax+1 && by == ay:
		return East, true
	case bx == ax-1 && by == ay:
		return West, true
	case by == ay+1 && bx == ax:
		return South, true
	case by == ay-1 && bx == ax:
		return North, true
	}
	return 0, false
}

// neighbours appends the in-grid neighbours of (x, y) matching keep.
func (m *Maze) neighbours(dst []Point, x, y int, keep func(d Direction, c *Cell) bool) []Point {
	for _, d := range directions {
		dx, dy := d.Delta()
		nx, ny := x+dx, y+dy
		if m.In(nx, ny) && keep(d, m.Cell(nx, ny)) {
			dst = append(dst, Point{nx, ny})
		}
	}
	return dst
}

func (m *Maze) hasVisitedNeighbour(x, y int) bool {
	for _, d := range directions {
		dx, dy := d.Delta()
		if m.In(x+dx, y+dy) && m.Cell(x+dx, y+dy).Visited {
			return true
		}
	}
	return false
}

// Passages returns the cells joined to (x, y) through an open wall.
func (m *Maze) Passages(x, y int) []Point {
	c := m.Cell(x, y)
	return m.neighbours(nil, x, y, func(d Direction, _ *Cell) bool {
		return c.Open(d)
	})
}

// Generate carves a perfect maze rooted at (x, y) using an iterative randomized
// backtracker, drawing choices from rng (a randomly seeded source if nil). Visited
// flags are cleared on return.
func (m *Maze) Generate(x, y int, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	stack := make([]Point, 0, m.Width*m.Height)
	stack = append(stack, Point{x, y})
	candidates := make([]Point, 0, 4)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		m.Cell(cur.X, cur.Y).Visited = true

		candidates = m.neighbours(candidates[:0], cur.X, cur.Y, func(_ Direction, c *Cell) bool {
			return !c.Visited
		})
		n := 0
		for _, p := range candidates {
			if m.hasVisitedNeighbour(p.X, p.Y) {
				candidates[n] = p
				n++
			}
		}
		if n == 0 {
			continue
		}

		next := candidates[rng.IntN(n)]
		m.Carve(cur.X, cur.Y, next.X, next.Y)
		stack = append(stack, cur, next)
	}

	m.Reset()
}

// Reset clears every visited flag, leaving walls untouched.
func (m *Maze) Reset() {
	for i := range m.cells {
		m.cells[i].Visited = false
	}
}

// OpenWalls counts open wall pairs, each shared wall counted once.
func (m *Maze) OpenWalls() int {
	n := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c := m.Cell(x, y)
			if c.East && x+1 < m.Width {
				n++
			}
			if c.South && y+1 < m.Height {
				n++
			}
		}
	}
	return n
}

// String renders the maze as ASCII art, marking visited cells with '.'.
func (m *Maze) String() string {
	var b strings.Builder
	b.WriteString("+" + strings.Repeat("--+", m.Width) + "\n")
	for y := 0; y < m.Height; y++ {
		row := []byte{'|'}
		floor := []byte{'+'}
		for x := 0; x < m.Width; x++ {
			c := m.Cell(x, y)
			if c.Visited {
				row = append(row, ' ', '.')
			} else {
				row = append(row, ' ', ' ')
			}
			if c.East {
				row = append(row, ' ')
			} else {
				row = append(row, '|')
			}
			if c.South {
				floor = append(floor, ' ', ' ', '+')
			} else {
				floor = append(floor, '-', '-', '+')
			}
		}
		b.Write(row)
		b.WriteByte('\n')
		b.Write(floor)
		b.WriteByte('\n')
	}
	return b.String()
}
