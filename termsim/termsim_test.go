package termsim

import (
	"image"
	"io"
	"testing"
	"time"

	"github.com/flavioheleno/mazeboard/framebuffer"
	"github.com/flavioheleno/mazeboard/rgb565"
	"github.com/flavioheleno/mazeboard/touch"
	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"
)

var _ framebuffer.Bitmapper = &Screen{}
var _ touch.Reader = &Screen{}

func newScreen(t *testing.T, opts *Opts) (*Screen, tcell.SimulationScreen) {
	t.Helper()
	l := log.New()
	l.SetOutput(io.Discard)
	opts.Logger = l

	sim := tcell.NewSimulationScreen("UTF-8")
	s, err := New(sim, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s, sim
}

// bitmap returns the wire bytes of w*h pixels colored by f.
func bitmap(w, h int, f func(x, y int) rgb565.Color) []byte {
	img := rgb565.NewImage(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGB565(x, y, f(x, y))
		}
	}
	return img.Pix
}

func TestNewFitsTerminal(t *testing.T) {
	s, sim := newScreen(t, &Opts{})
	cols, rows := sim.Size()
	if s.Bounds() != image.Rect(0, 0, 800, 480) {
		t.Errorf("Bounds() = %v", s.Bounds())
	}
	if s.Scale()*cols < 800 || s.Scale()*2*rows < 480 {
		t.Errorf("Scale() = %d does not fit the panel in %dx%d", s.Scale(), cols, rows)
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(tcell.NewSimulationScreen("UTF-8"), &Opts{W: -1, H: 10}); err == nil {
		t.Error("New should reject a negative size")
	}
}

func TestDrawBitmapHalfBlocks(t *testing.T) {
	s, sim := newScreen(t, &Opts{W: 8, H: 8, Scale: 2})

	pix := bitmap(8, 8, func(x, y int) rgb565.Color {
		if y < 2 {
			return rgb565.Red
		}
		return rgb565.Blue
	})
	if err := s.DrawBitmap(0, 0, 8, 8, pix); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		cx, cy int
		fg, bg rgb565.Color
	}{
		{"first row", 0, 0, rgb565.Red, rgb565.Blue},
		{"first row right cell", 3, 0, rgb565.Red, rgb565.Blue},
		{"second row", 1, 1, rgb565.Blue, rgb565.Blue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, st, _ := sim.GetContent(tt.cx, tt.cy)
			if r != halfBlock {
				t.Errorf("rune = %q, want %q", r, halfBlock)
			}
			fg, bg, _ := st.Decompose()
			if fg != tcellColor(tt.fg) || bg != tcellColor(tt.bg) {
				t.Errorf("colors = (%v, %v), want (%v, %v)", fg, bg, tcellColor(tt.fg), tcellColor(tt.bg))
			}
		})
	}
}

func TestDrawBitmapPartial(t *testing.T) {
	s, sim := newScreen(t, &Opts{W: 8, H: 8, Scale: 2})

	pix := bitmap(8, 1, func(int, int) rgb565.Color { return rgb565.Green })
	if err := s.DrawBitmap(0, 6, 8, 7, pix); err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := sim.GetContent(0, 0); r == halfBlock {
		t.Error("cell row 0 should not be repainted")
	}
	r, _, st, _ := sim.GetContent(0, 1)
	if r != halfBlock {
		t.Fatal("cell row 1 should be repainted")
	}
	// Rows 6 and 7 form the bottom half of cell row 1.
	_, bg, _ := st.Decompose()
	red, green, blue := bg.RGB()
	if green == 0 || red != 0 || blue != 0 {
		t.Errorf("bottom color = (%d, %d, %d), want a shade of green", red, green, blue)
	}
}

func TestDrawBitmapAverages(t *testing.T) {
	s, sim := newScreen(t, &Opts{W: 2, H: 4, Scale: 2})

	pix := bitmap(2, 4, func(x, y int) rgb565.Color {
		if y == 0 {
			return rgb565.White
		}
		return rgb565.Black
	})
	if err := s.DrawBitmap(0, 0, 2, 4, pix); err != nil {
		t.Fatal(err)
	}
	_, _, st, _ := sim.GetContent(0, 0)
	fg, bg, _ := st.Decompose()
	if r, _, _ := fg.RGB(); r <= 0 || r >= 0xFF {
		t.Errorf("top red channel = %d, want a gray between black and white", r)
	}
	if bg != tcellColor(rgb565.Black) {
		t.Errorf("bottom = %v, want black", bg)
	}
}

func TestDrawBitmapInvalid(t *testing.T) {
	s, _ := newScreen(t, &Opts{W: 8, H: 8, Scale: 2})
	if err := s.DrawBitmap(0, 0, 9, 1, make([]byte, 18)); err == nil {
		t.Error("DrawBitmap outside the panel should fail")
	}
	if err := s.DrawBitmap(0, 0, 2, 2, make([]byte, 7)); err == nil {
		t.Error("DrawBitmap with a short buffer should fail")
	}
}

func TestMouseToTouch(t *testing.T) {
	s, _ := newScreen(t, &Opts{W: 8, H: 8, Scale: 2})

	tests := []struct {
		name string
		ev   *tcell.EventMouse
		want touch.Sample
	}{
		{"press", tcell.NewEventMouse(1, 1, tcell.Button1, tcell.ModNone), touch.Sample{X: 3, Y: 6, Pressed: true}},
		{"release keeps position", tcell.NewEventMouse(3, 0, tcell.ButtonNone, tcell.ModNone), touch.Sample{X: 3, Y: 6}},
		{"drag clamps to panel", tcell.NewEventMouse(10, 10, tcell.Button1, tcell.ModNone), touch.Sample{X: 7, Y: 7, Pressed: true}},
		{"right button is not a touch", tcell.NewEventMouse(0, 0, tcell.Button2, tcell.ModNone), touch.Sample{X: 7, Y: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.handle(tt.ev)
			got, err := s.ReadTouch()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ReadTouch() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	s, _ := newScreen(t, &Opts{W: 8, H: 8, Scale: 2})

	s.handle(tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone))
	s.handle(tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone))
	select {
	case <-s.NewMaze():
	default:
		t.Fatal("'n' should request a new maze")
	}

	select {
	case <-s.Quit():
		t.Fatal("quit before any quit key")
	default:
	}
	s.handle(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	s.handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	select {
	case <-s.Quit():
	default:
		t.Error("'q' should close Quit")
	}
}

func TestPump(t *testing.T) {
	sim := tcell.NewSimulationScreen("UTF-8")
	l := log.New()
	l.SetOutput(io.Discard)
	s, err := New(sim, &Opts{W: 8, H: 8, Scale: 2, Logger: l})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		s.Pump()
		close(done)
	}()
	if err := sim.PostEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-s.Quit():
	case <-time.After(time.Second):
		t.Fatal("Pump did not deliver the quit key")
	}
	s.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pump did not return after Close")
	}
}
