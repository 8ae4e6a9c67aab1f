// Package termsim runs the maze board in a terminal.
//
// Screen stands in for both the panel and the touch controller: pixel transfers are
// downsampled onto half-block characters and mouse clicks become touch samples.
package termsim

import (
	"fmt"
	"image"
	"sync"

	"github.com/flavioheleno/mazeboard/rgb565"
	"github.com/flavioheleno/mazeboard/touch"
	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"
)

// halfBlock paints the upper half of a cell with the foreground color.
const halfBlock = '▀'

// Opts is the configuration of a Screen.
type Opts struct {
	// Simulated panel size in pixels (default: 800x480)
	W, H int
	// Panel pixels per terminal column (default: fit the panel in the terminal)
	Scale int

	// Logger (default: logrus standard logger)
	Logger log.FieldLogger
}

// Screen is a tcell backed panel and touch controller.
//
// Each terminal cell shows a Scale x 2*Scale block of panel pixels: the top half in
// the foreground color and the bottom half in the background color.
type Screen struct {
	s     tcell.Screen
	rect  image.Rectangle
	scale int
	img   *rgb565.Image
	log   log.FieldLogger

	mu     sync.Mutex
	sample touch.Sample

	quit     chan struct{}
	quitOnce sync.Once
	newMaze  chan struct{}
}

// New initializes s and returns a Screen on it. opts can be nil to use defaults.
func New(s tcell.Screen, opts *Opts) (*Screen, error) {
	if opts == nil {
		opts = &Opts{}
	}
	w, h := opts.W, opts.H
	if w == 0 && h == 0 {
		w, h = 800, 480
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("termsim: invalid panel size %dx%d", w, h)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("termsim: %w", err)
	}
	s.EnableMouse()
	s.HideCursor()
	s.Clear()

	scale := opts.Scale
	if scale <= 0 {
		cols, rows := s.Size()
		scale = max(ceilDiv(w, max(cols, 1)), ceilDiv(h, max(2*rows, 1)), 1)
	}

	t := &Screen{
		s:       s,
		rect:    image.Rect(0, 0, w, h),
		scale:   scale,
		img:     rgb565.NewImage(image.Rect(0, 0, w, h)),
		log:     log.StandardLogger(),
		quit:    make(chan struct{}),
		newMaze: make(chan struct{}, 1),
	}
	if opts.Logger != nil {
		t.log = opts.Logger
	}
	t.log.WithFields(log.Fields{"panel": t.rect.Size(), "scale": scale}).Debug("terminal screen ready")
	return t, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Bounds returns the simulated panel area.
func (t *Screen) Bounds() image.Rectangle {
	return t.rect
}

// Scale returns the number of panel pixels per terminal column.
func (t *Screen) Scale() int {
	return t.scale
}

// DrawBitmap stores pix in the half-open rectangle [x0, x1) x [y0, y1) and repaints
// the terminal cells covering it.
func (t *Screen) DrawBitmap(x0, y0, x1, y1 int, pix []byte) error {
	r := image.Rect(x0, y0, x1, y1)
	if r.Empty() || !r.In(t.rect) {
		return fmt.Errorf("termsim: rectangle %v outside of %v", r, t.rect)
	}
	rowBytes := r.Dx() * 2
	if len(pix) != rowBytes*r.Dy() {
		return fmt.Errorf("termsim: invalid buffer size %d, want %d", len(pix), rowBytes*r.Dy())
	}
	for y := y0; y < y1; y++ {
		i := t.img.PixOffset(x0, y)
		copy(t.img.Pix[i:i+rowBytes], pix[(y-y0)*rowBytes:])
	}

	cell := image.Rect(x0/t.scale, y0/(2*t.scale), (x1-1)/t.scale+1, (y1-1)/(2*t.scale)+1)
	for cy := cell.Min.Y; cy < cell.Max.Y; cy++ {
		for cx := cell.Min.X; cx < cell.Max.X; cx++ {
			t.paint(cx, cy)
		}
	}
	t.s.Show()
	return nil
}

// paint renders terminal cell (cx, cy).
func (t *Screen) paint(cx, cy int) {
	px := image.Rect(cx*t.scale, 2*cy*t.scale, (cx+1)*t.scale, (2*cy+1)*t.scale)
	top := t.average(px)
	bottom := t.average(px.Add(image.Pt(0, t.scale)))
	st := tcell.StyleDefault.Foreground(tcellColor(top)).Background(tcellColor(bottom))
	t.s.SetContent(cx, cy, halfBlock, nil, st)
}

// average returns the mean color of the panel pixels in r.
func (t *Screen) average(r image.Rectangle) rgb565.Color {
	r = r.Intersect(t.rect)
	if r.Empty() {
		return rgb565.Black
	}
	acc := t.img.RGB565At(r.Min.X, r.Min.Y)
	n := 1
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if x == r.Min.X && y == r.Min.Y {
				continue
			}
			n++
			if c := t.img.RGB565At(x, y); c != acc {
				acc = rgb565.Blend(c, acc, 1/float32(n))
			}
		}
	}
	return acc
}

func tcellColor(c rgb565.Color) tcell.Color {
	r, g, b := c.Channels()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// ReadTouch returns the latest mouse state in panel pixels.
func (t *Screen) ReadTouch() (touch.Sample, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sample, nil
}

// Quit is closed when the user asks to leave.
func (t *Screen) Quit() <-chan struct{} {
	return t.quit
}

// NewMaze receives a value when the user asks for a new maze.
func (t *Screen) NewMaze() <-chan struct{} {
	return t.newMaze
}

// Pump handles terminal events until the screen is closed. Run it in its own
// goroutine.
func (t *Screen) Pump() {
	for {
		ev := t.s.PollEvent()
		if ev == nil {
			return
		}
		t.handle(ev)
	}
}

func (t *Screen) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventMouse:
		cx, cy := ev.Position()
		s := touch.Sample{
			X:       int16(min(cx*t.scale+t.scale/2, t.rect.Max.X-1)),
			Y:       int16(min(cy*2*t.scale+t.scale, t.rect.Max.Y-1)),
			Pressed: ev.Buttons()&tcell.Button1 != 0,
		}
		t.mu.Lock()
		if !s.Pressed {
			// Keep the coordinates of the last press like a touch controller does.
			s.X, s.Y = t.sample.X, t.sample.Y
		}
		t.sample = s
		t.mu.Unlock()

	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC,
			ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			t.quitOnce.Do(func() { close(t.quit) })
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'n':
			select {
			case t.newMaze <- struct{}{}:
			default:
			}
		}

	case *tcell.EventResize:
		t.s.Sync()
	}
}

// Close restores the terminal. Pump returns once the screen is closed.
func (t *Screen) Close() {
	t.s.Fini()
}
