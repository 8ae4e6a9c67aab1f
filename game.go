package mazeboard

import (
	"image"
	"image/color"

	"github.com/flavioheleno/mazeboard/maze"
	log "github.com/sirupsen/logrus"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
)

// DefaultTolerance is the radius in pixels within which a tap still selects the
// nearest clickable cell.
const DefaultTolerance = 20

// Opts is the configuration of a Game.
type Opts struct {
	// Cell geometry in pixels (default: 20x20)
	CellSize image.Point
	// Top-left corner of the maze on the display
	Offset image.Point

	// Tap approximation radius in pixels (default: DefaultTolerance)
	Tolerance int

	// Colors (defaults: white walls, green path, red markers, black background)
	Wall, Path, Marker, Background color.RGBA

	// Logger (default: logrus standard logger)
	Logger log.FieldLogger
}

var (
	defaultWall   = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	defaultPath   = color.RGBA{G: 0xFF, A: 0xFF}
	defaultMarker = color.RGBA{R: 0xFF, A: 0xFF}
	defaultBg     = color.RGBA{A: 0xFF}
)

// Game holds the maze being solved and the mapping between cells and pixels.
//
// The solved region is the set of visited cells. It starts as the top-left cell and
// grows one cell per move toward the goal in the bottom-right corner.
type Game struct {
	maze   *maze.Maze
	cell   image.Point
	offset image.Point
	tol    int

	wall, path, marker, bg color.RGBA

	log log.FieldLogger
}

// NewGame starts a game on m, marking the start cell visited.
// opts can be nil to use defaults.
func NewGame(m *maze.Maze, opts *Opts) *Game {
	g := &Game{
		maze:   m,
		cell:   image.Point{X: 20, Y: 20},
		tol:    DefaultTolerance,
		wall:   defaultWall,
		path:   defaultPath,
		marker: defaultMarker,
		bg:     defaultBg,
		log:    log.StandardLogger(),
	}
	if opts != nil {
		if opts.CellSize.X > 0 && opts.CellSize.Y > 0 {
			g.cell = opts.CellSize
		}
		g.offset = opts.Offset
		if opts.Tolerance > 0 {
			g.tol = opts.Tolerance
		}
		if opts.Wall != (color.RGBA{}) {
			g.wall = opts.Wall
		}
		if opts.Path != (color.RGBA{}) {
			g.path = opts.Path
		}
		if opts.Marker != (color.RGBA{}) {
			g.marker = opts.Marker
		}
		if opts.Background != (color.RGBA{}) {
			g.bg = opts.Background
		}
		if opts.Logger != nil {
			g.log = opts.Logger
		}
	}
	m.Cell(0, 0).Visited = true
	return g
}

// Next returns a game on m with the same geometry, colors and logger.
func (g *Game) Next(m *maze.Maze) *Game {
	n := *g
	n.maze = m
	m.Cell(0, 0).Visited = true
	return &n
}

// Maze returns the maze being played.
func (g *Game) Maze() *maze.Maze {
	return g.maze
}

// Goal returns the cell that finishes the game.
func (g *Game) Goal() image.Point {
	return image.Point{X: g.maze.Width - 1, Y: g.maze.Height - 1}
}

// Solved reports whether the goal cell has been reached.
func (g *Game) Solved() bool {
	goal := g.Goal()
	return g.maze.Cell(goal.X, goal.Y).Visited
}

// Rect returns the pixel rectangle covered by the maze, walls included.
func (g *Game) Rect() image.Rectangle {
	r := image.Rect(0, 0, g.maze.Width*g.cell.X+1, g.maze.Height*g.cell.Y+1)
	return r.Add(g.offset)
}

// Clickable reports whether (x, y) is unvisited and joined by an open wall to a
// visited cell. Cells outside the grid are never clickable.
func (g *Game) Clickable(x, y int) bool {
	if !g.maze.In(x, y) || g.maze.Cell(x, y).Visited {
		return false
	}
	for _, n := range g.maze.Passages(x, y) {
		if g.maze.Cell(n.X, n.Y).Visited {
			return true
		}
	}
	return false
}

// Frontier returns every clickable cell in row-major order.
func (g *Game) Frontier() []image.Point {
	var cells []image.Point
	for y := 0; y < g.maze.Height; y++ {
		for x := 0; x < g.maze.Width; x++ {
			if g.Clickable(x, y) {
				cells = append(cells, image.Point{X: x, Y: y})
			}
		}
	}
	return cells
}

// center returns the pixel at the middle of cell (x, y).
func (g *Game) center(x, y int) image.Point {
	return image.Point{
		X: x*g.cell.X + g.cell.X/2 + g.offset.X,
		Y: y*g.cell.Y + g.cell.Y/2 + g.offset.Y,
	}
}

// cellAt maps a pixel to the cell containing it. Points above or left of the maze
// are clamped onto its first row or column.
func (g *Game) cellAt(x, y int) (image.Point, bool) {
	col := max(x-g.offset.X, 0) / g.cell.X
	row := max(y-g.offset.Y, 0) / g.cell.Y
	if col >= g.maze.Width || row >= g.maze.Height {
		return image.Point{}, false
	}
	return image.Point{X: col, Y: row}, true
}

// Resolve maps a tap at (x, y) to the nearest clickable cell whose window of tol
// pixels per axis contains it. A tap landing on a visited cell resolves to nothing
// without searching, so taps inside the solved region are never redirected.
func (g *Game) Resolve(x, y, tol int) (image.Point, bool) {
	c, ok := g.cellAt(x, y)
	if !ok || g.maze.Cell(c.X, c.Y).Visited {
		return image.Point{}, false
	}

	rx, ry := tol/g.cell.X, tol/g.cell.Y
	minX, maxX := max(c.X-rx, 0), min(c.X+rx, g.maze.Width-1)
	minY, maxY := max(c.Y-ry, 0), min(c.Y+ry, g.maze.Height-1)

	best, bestDist, found := image.Point{}, 0, false
	for row := minY; row <= maxY; row++ {
		for col := minX; col <= maxX; col++ {
			if !g.Clickable(col, row) {
				continue
			}
			p := g.center(col, row)
			dx, dy := p.X-x, p.Y-y
			if d := dx*dx + dy*dy; !found || d < bestDist {
				best, bestDist, found = image.Point{X: col, Y: row}, d, true
			}
		}
	}
	if found {
		g.log.WithFields(log.Fields{"tap": image.Pt(x, y), "cell": best}).Debug("closest clickable cell")
	}
	return best, found
}

// ApplyMove joins c to every visited cell it has a passage to, drawing each new
// connection on d, and marks c visited. It returns false if c has no visited
// passage neighbour.
func (g *Game) ApplyMove(c image.Point, d drivers.Displayer) bool {
	if !g.maze.In(c.X, c.Y) {
		return false
	}
	from := g.center(c.X, c.Y)
	connected := false
	for _, n := range g.maze.Passages(c.X, c.Y) {
		if !g.maze.Cell(n.X, n.Y).Visited {
			continue
		}
		g.maze.Carve(c.X, c.Y, n.X, n.Y)
		to := g.center(n.X, n.Y)
		tinydraw.Line(d, int16(from.X), int16(from.Y), int16(to.X), int16(to.Y), g.path)
		connected = true
	}
	if connected {
		g.maze.Cell(c.X, c.Y).Visited = true
		g.log.WithField("cell", c).Debug("cell joined")
	}
	return connected
}

// Click resolves a tap with the configured tolerance and applies the move.
func (g *Game) Click(x, y int, d drivers.Displayer) bool {
	c, ok := g.Resolve(x, y, g.tol)
	if !ok {
		return false
	}
	return g.ApplyMove(c, d)
}

// Draw renders every closed wall and the start and goal markers onto d.
func (g *Game) Draw(d drivers.Displayer) {
	w, h := g.cell.X, g.cell.Y
	line := func(x0, y0, x1, y1 int) {
		tinydraw.Line(d,
			int16(x0+g.offset.X), int16(y0+g.offset.Y),
			int16(x1+g.offset.X), int16(y1+g.offset.Y),
			g.wall)
	}
	for y := 0; y < g.maze.Height; y++ {
		for x := 0; x < g.maze.Width; x++ {
			c := g.maze.Cell(x, y)
			left, top := x*w, y*h
			if !c.North {
				line(left, top, left+w, top)
			}
			if !c.South {
				line(left, top+h, left+w, top+h)
			}
			if !c.East {
				line(left+w, top, left+w, top+h)
			}
			if !c.West {
				line(left, top, left, top+h)
			}
		}
	}
	goal := g.Goal()
	g.drawMarker(0, 0, d)
	g.drawMarker(goal.X, goal.Y, d)
}

func (g *Game) drawMarker(x, y int, d drivers.Displayer) {
	r := (min(g.cell.X, g.cell.Y) - 3) / 2
	if r < 1 {
		return
	}
	p := g.center(x, y)
	tinydraw.Circle(d, int16(p.X), int16(p.Y), int16(r), g.marker)
}

// Erase paints the maze area with the background color.
func (g *Game) Erase(d drivers.Displayer) {
	r := g.Rect()
	tinydraw.FilledRectangle(d, int16(r.Min.X), int16(r.Min.Y), int16(r.Dx()), int16(r.Dy()), g.bg)
}
