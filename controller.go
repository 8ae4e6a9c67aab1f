package mazeboard

import (
	"context"
	"time"

	"github.com/flavioheleno/mazeboard/maze"
	"github.com/flavioheleno/mazeboard/touch"
	log "github.com/sirupsen/logrus"
	"tinygo.org/x/drivers"
)

// DefaultIdle is how long Run sleeps when a loop iteration handled no touch event.
const DefaultIdle = 10 * time.Millisecond

// ControllerOpts is the configuration of a Controller.
type ControllerOpts struct {
	Idle     time.Duration // Sleep between idle iterations (default: DefaultIdle)
	OnSolved func()        // Called once when the goal is reached (optional)
	Logger   log.FieldLogger
}

// Controller runs the game loop: it polls the touch sampler, applies at most one
// move per iteration and flushes the display.
type Controller struct {
	game     *Game
	sampler  *touch.Sampler
	display  drivers.Displayer
	idle     time.Duration
	onSolved func()
	solved   bool
	log      log.FieldLogger
}

// NewController wires a game to a touch sampler and a display.
// opts can be nil to use defaults.
func NewController(g *Game, s *touch.Sampler, d drivers.Displayer, opts *ControllerOpts) *Controller {
	c := &Controller{
		game:    g,
		sampler: s,
		display: d,
		idle:    DefaultIdle,
		log:     g.log,
	}
	if opts != nil {
		if opts.Idle > 0 {
			c.idle = opts.Idle
		}
		c.onSolved = opts.OnSolved
		if opts.Logger != nil {
			c.log = opts.Logger
		}
	}
	return c
}

// Game returns the game currently played.
func (c *Controller) Game() *Game {
	return c.game
}

// Start renders the whole maze and flushes it.
func (c *Controller) Start() error {
	c.game.Draw(c.display)
	return c.display.Display()
}

// Restart replaces the maze, keeping the game geometry and colors, and renders it.
func (c *Controller) Restart(m *maze.Maze) error {
	c.game.Erase(c.display)
	c.game = c.game.Next(m)
	c.solved = false
	c.log.WithField("size", [2]int{m.Width, m.Height}).Info("new maze")
	return c.Start()
}

// Step runs one loop iteration. handled reports whether a touch event was consumed.
// The display is flushed on every iteration so a region left dirty by a failed
// transfer is retried.
func (c *Controller) Step() (handled bool, err error) {
	ev, ok, err := c.sampler.Poll()
	if err != nil {
		c.log.WithError(err).Debug("touch poll failed")
	}
	if ok && (ev.Kind == touch.Pressed || ev.Kind == touch.Moved) {
		if c.game.Click(ev.X, ev.Y, c.display) {
			c.checkSolved()
		}
	}
	return ok, c.display.Display()
}

func (c *Controller) checkSolved() {
	if c.solved || !c.game.Solved() {
		return
	}
	c.solved = true
	c.log.Info("maze solved")
	if c.onSolved != nil {
		c.onSolved()
	}
}

// Run loops Step until ctx is done, sleeping between idle iterations.
// Display errors are logged and left to the next iteration to retry.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		handled, err := c.Step()
		if err != nil {
			c.log.WithError(err).Warn("display flush failed")
		}
		if handled {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.idle):
		}
	}
}
