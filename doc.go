// Package mazeboard runs a maze puzzle on a small touch display.
//
// A perfect maze is generated with package maze and drawn onto a drawing surface (a
// tinygo drivers.Displayer, normally a framebuffer.FrameBuffer). The player taps cells
// next to the solved region to walk from the start marker in the top-left corner to
// the goal marker in the bottom-right corner.
//
// # Touch Tolerance
//
// The touch panel is coarser than the cell grid, so taps are approximated. A tap first
// maps to the cell under it. If that cell is already solved the tap is ignored.
// Otherwise every cell within Opts.Tolerance pixels (per axis) is considered, and the
// clickable cell whose centre is closest to the tap is chosen. A cell is clickable if
// it is unsolved and joined by an open wall to a solved cell.
//
// # Incremental Drawing
//
// Draw renders the full maze once. Each move only draws the new path segment, and the
// framebuffer's dirty row tracking keeps the following flush small:
//
//	fb, _ := framebuffer.New(dev, 800, 480, nil)
//	m := maze.New(38, 22)
//	m.Generate(0, 0, rand.New(rand.NewPCG(seed, seed)))
//	g := mazeboard.NewGame(m, &mazeboard.Opts{Offset: image.Pt(20, 20)})
//	c := mazeboard.NewController(g, touch.NewSampler(ts, nil), fb, nil)
//	c.Start()
//	c.Run(context.Background())
//
// # Hardware
//
// Package panel drives MIPI-DCS RGB565 TFT controllers over SPI and package gt911
// reads GT911 capacitive touch controllers over I2C, both through periph.io. Package
// termsim provides terminal-backed stand-ins for both so the game runs on a desktop.
//
// See the examples directory for runnable programs.
package mazeboard
