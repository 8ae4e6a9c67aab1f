// Package framebuffer keeps an in-memory copy of a panel's pixels and sends only the
// rows changed since the last flush, split into transfers the panel bus can carry.
package framebuffer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/flavioheleno/mazeboard/rgb565"
)

// DefaultMaxTransfer is the largest single bitmap transfer in bytes.
// It covers 60 rows of an 800 pixel wide RGB565 panel.
const DefaultMaxTransfer = 96000

// ErrTransferFailed is wrapped by Flush errors caused by the panel.
var ErrTransferFailed = errors.New("framebuffer: transfer failed")

// Bitmapper is implemented by panels accepting a rectangle of RGB565 pixels.
// x1 and y1 are exclusive. pix holds (x1-x0)*(y1-y0) big-endian pixels and is only
// valid for the duration of the call.
type Bitmapper interface {
	DrawBitmap(x0, y0, x1, y1 int, pix []byte) error
}

// Opts configures a FrameBuffer.
type Opts struct {
	// MaxTransfer bounds the bytes sent per DrawBitmap call (default DefaultMaxTransfer).
	MaxTransfer int
}

// FrameBuffer is a full-screen RGB565 buffer with dirty row tracking.
//
// All methods are safe for concurrent use; a single lock covers the pixels and the
// dirty range so a flush never observes a half-recorded write.
type FrameBuffer struct {
	mu    sync.Mutex
	panel Bitmapper
	img   *rgb565.Image
	lines int

	// Dirty rows, inclusive. Empty when minY > maxY.
	minY, maxY int
}

// New returns a black FrameBuffer of w×h pixels flushing to p.
func New(p Bitmapper, w, h int, opts *Opts) (*FrameBuffer, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New("framebuffer: dimensions must be positive")
	}
	maxTransfer := DefaultMaxTransfer
	if opts != nil && opts.MaxTransfer > 0 {
		maxTransfer = opts.MaxTransfer
	}
	lines := maxTransfer / (w * 2)
	if lines < 1 {
		return nil, fmt.Errorf("framebuffer: max transfer of %d bytes cannot hold a %d pixel row", maxTransfer, w)
	}
	return &FrameBuffer{
		panel: p,
		img:   rgb565.NewImage(image.Rect(0, 0, w, h)),
		lines: lines,
		minY:  h,
		maxY:  -1,
	}, nil
}

// Lines returns the number of rows sent per transfer.
func (f *FrameBuffer) Lines() int {
	return f.lines
}

// Bounds returns the buffer bounds.
func (f *FrameBuffer) Bounds() image.Rectangle {
	return f.img.Rect
}

// ColorModel returns rgb565.Model.
func (f *FrameBuffer) ColorModel() color.Model {
	return rgb565.Model
}

// Size implements drivers.Displayer.
func (f *FrameBuffer) Size() (x, y int16) {
	return int16(f.img.Rect.Dx()), int16(f.img.Rect.Dy())
}

// SetPixel implements drivers.Displayer.
func (f *FrameBuffer) SetPixel(x, y int16, c color.RGBA) {
	f.Plot(int(x), int(y), rgb565.FromRGBA(c))
}

// Display implements drivers.Displayer by flushing the dirty rows.
func (f *FrameBuffer) Display() error {
	_, err := f.Flush()
	return err
}

// Set implements draw.Image.
func (f *FrameBuffer) Set(x, y int, c color.Color) {
	f.Plot(x, y, rgb565.Model.Convert(c).(rgb565.Color))
}

// Plot writes one pixel. Coordinates outside the buffer are ignored.
func (f *FrameBuffer) Plot(x, y int, c rgb565.Color) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !(image.Point{X: x, Y: y}.In(f.img.Rect)) {
		return
	}
	f.img.SetRGB565(x, y, c)
	f.mark(y, y)
}

// Draw copies src into the rectangle r, clipped to the buffer, like draw.Draw with
// draw.Src.
func (f *FrameBuffer) Draw(r image.Rectangle, src image.Image, sp image.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clipped := r.Intersect(f.img.Rect)
	if clipped.Empty() {
		return
	}
	sp = sp.Add(clipped.Min.Sub(r.Min))
	draw.Draw(f.img, clipped, src, sp, draw.Src)
	f.mark(clipped.Min.Y, clipped.Max.Y-1)
}

// At implements image.Image.
func (f *FrameBuffer) At(x, y int) color.Color {
	return f.Pixel(x, y)
}

// Pixel returns the buffered pixel at (x, y), or Black outside the buffer.
func (f *FrameBuffer) Pixel(x, y int) rgb565.Color {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.img.RGB565At(x, y)
}

// Dirty returns the inclusive dirty row range; ok is false when nothing is pending.
func (f *FrameBuffer) Dirty() (minY, maxY int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minY, f.maxY, f.minY <= f.maxY
}

// mark widens the dirty range to include rows [y0, y1]. f.mu must be held.
func (f *FrameBuffer) mark(y0, y1 int) {
	if y0 < f.minY {
		f.minY = y0
	}
	if y1 > f.maxY {
		f.maxY = y1
	}
}

func (f *FrameBuffer) clean() {
	f.minY = f.img.Rect.Dy()
	f.maxY = -1
}

// Flush sends the dirty rows to the panel in chunks of at most Lines rows, passing
// slices of the buffer itself. It returns false if nothing was dirty.
//
// If the panel fails, the error wraps ErrTransferFailed and the dirty range keeps every
// row not yet confirmed, so calling Flush again retries the same region.
func (f *FrameBuffer) Flush() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flush()
}

func (f *FrameBuffer) flush() (bool, error) {
	if f.minY > f.maxY {
		return false, nil
	}
	w, h := f.img.Rect.Dx(), f.img.Rect.Dy()
	for y := f.minY; y <= f.maxY; y += f.lines {
		end := min(y+f.lines, h, f.maxY+1)
		if y >= end {
			continue
		}
		if err := f.panel.DrawBitmap(0, y, w, end, f.img.Rows(y, end)); err != nil {
			f.minY = y
			return true, fmt.Errorf("%w: rows [%d, %d): %w", ErrTransferFailed, y, end, err)
		}
	}
	f.clean()
	return true, nil
}

// Fill sets every pixel to c and flushes the whole buffer.
func (f *FrameBuffer) Fill(c rgb565.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.img.Fill(c)
	f.mark(0, f.img.Rect.Dy()-1)
	_, err := f.flush()
	return err
}
