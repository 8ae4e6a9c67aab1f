// Package panel controls MIPI-DCS RGB565 TFT panel controllers via SPI.
//
// Controllers such as the ILI9488, ST7796 and NT35510 share the DCS command set for
// addressing and pixel writes. The panel is driven in 16-bit RGB565 mode, pixels are
// sent big-endian.
//
// See the examples for how to use this package.
package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/flavioheleno/mazeboard/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// DCS commands.
const (
	cmdSoftReset   = 0x01
	cmdSleepOut    = 0x11
	cmdInvertOff   = 0x20
	cmdInvertOn    = 0x21
	cmdDisplayOff  = 0x28
	cmdDisplayOn   = 0x29
	cmdColumnAddr  = 0x2A
	cmdRowAddr     = 0x2B
	cmdMemoryWrite = 0x2C
	cmdMemoryCtl   = 0x36
	cmdPixelFormat = 0x3A
)

// Memory access control bits.
const (
	madctlMY  = 0x80
	madctlMX  = 0x40
	madctlMV  = 0x20
	madctlBGR = 0x08
)

// pixelFormat16 selects 16 bits per pixel on both interfaces.
const pixelFormat16 = 0x55

// ErrHalted is returned by operations on a halted device.
var ErrHalted = errors.New("panel: halted")

// Opts is the configuration for the panel.
type Opts struct {
	// Display dimensions in pixels (default: 800x480)
	W int
	H int

	// Optional hardware reset pin
	RST gpio.PinIO

	// Offset of the visible area inside the controller RAM
	GapX, GapY int

	// Orientation
	MirrorX bool
	MirrorY bool
	SwapXY  bool // Exchange rows and columns

	Invert bool // Color inversion, needed by many IPS panels
	BGR    bool // Panel subpixels are wired blue first
}

// Dev is the device handle for the panel.
type Dev struct {
	// Communication
	c   conn.Conn   // SPI connection
	dc  gpio.PinOut // Data/Command pin
	rst gpio.PinIO  // Reset pin (optional)

	// Display geometry
	rect       image.Rectangle
	gapX, gapY int

	// Controller state
	madctl byte
	invert bool
	halted bool
}

var _ display.Drawer = &Dev{}

// NewSPI creates a new panel device connected via SPI.
//
// The SPI port is configured for 40MHz, Mode0, 8-bit transfers. The dc (Data/Command)
// GPIO pin must be provided and configured as an output.
//
// opts can be nil to use defaults (800x480 panel).
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	w, h := opts.W, opts.H
	if w == 0 && h == 0 {
		w, h = 800, 480
	}
	if w <= 0 || w > 0xFFFF || h <= 0 || h > 0xFFFF {
		return nil, errors.New("panel: invalid dimensions")
	}
	if dc == nil {
		return nil, errors.New("panel: dc pin is required")
	}

	c, err := p.Connect(40*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("panel: failed to connect: %w", err)
	}

	d := &Dev{
		c:      c,
		dc:     dc,
		rst:    opts.RST,
		rect:   image.Rect(0, 0, w, h),
		gapX:   opts.GapX,
		gapY:   opts.GapY,
		madctl: memoryControl(opts.MirrorX, opts.MirrorY, opts.SwapXY, opts.BGR),
		invert: opts.Invert,
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func memoryControl(mirrorX, mirrorY, swapXY, bgr bool) byte {
	var b byte
	if mirrorY {
		b |= madctlMY
	}
	if mirrorX {
		b |= madctlMX
	}
	if swapXY {
		b |= madctlMV
	}
	if bgr {
		b |= madctlBGR
	}
	return b
}

// init resets the controller and sends the initialization sequence.
func (d *Dev) init() error {
	if err := d.Reset(); err != nil {
		return err
	}
	if err := d.command(cmdSleepOut); err != nil {
		return err
	}
	time.Sleep(120 * time.Millisecond)

	if err := d.command(cmdPixelFormat, pixelFormat16); err != nil {
		return err
	}
	if err := d.command(cmdMemoryCtl, d.madctl); err != nil {
		return err
	}
	if err := d.command(d.inversion()); err != nil {
		return err
	}
	return d.command(cmdDisplayOn)
}

func (d *Dev) inversion() byte {
	if d.invert {
		return cmdInvertOn
	}
	return cmdInvertOff
}

// Reset pulses the hardware reset pin, or sends a software reset when no pin is
// configured.
func (d *Dev) Reset() error {
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("panel: failed to pull RST low: %w", err)
		}
		time.Sleep(20 * time.Millisecond)

		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("panel: failed to pull RST high: %w", err)
		}
		time.Sleep(120 * time.Millisecond)
		return nil
	}
	if err := d.command(cmdSoftReset); err != nil {
		return err
	}
	time.Sleep(150 * time.Millisecond)
	return nil
}

// command sends a command byte followed by its parameters.
func (d *Dev) command(cmd byte, params ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("panel: failed to select command mode: %w", err)
	}
	if err := d.c.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("panel: command 0x%02X: %w", cmd, err)
	}
	if len(params) == 0 {
		return nil
	}
	return d.sendData(params)
}

// sendData sends data bytes, split to the connection's maximum transfer size.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("panel: failed to select data mode: %w", err)
	}
	chunk := len(data)
	if l, ok := d.c.(conn.Limits); ok {
		if m := l.MaxTxSize(); m > 0 && m < chunk {
			chunk = m
		}
	}
	for len(data) > 0 {
		n := min(chunk, len(data))
		if err := d.c.Tx(data[:n], nil); err != nil {
			return fmt.Errorf("panel: data write: %w", err)
		}
		data = data[n:]
	}
	return nil
}

// window sets the RAM address window to the inclusive range [x0, x1] x [y0, y1] and
// starts a memory write.
func (d *Dev) window(x0, y0, x1, y1 int) error {
	x0, x1 = x0+d.gapX, x1+d.gapX
	y0, y1 = y0+d.gapY, y1+d.gapY
	if err := d.command(cmdColumnAddr, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdRowAddr, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.command(cmdMemoryWrite)
}

// DrawBitmap writes pix to the half-open rectangle [x0, x1) x [y0, y1).
// pix holds big-endian RGB565 pixels in row-major order and must cover the rectangle
// exactly.
func (d *Dev) DrawBitmap(x0, y0, x1, y1 int, pix []byte) error {
	if d.halted {
		return ErrHalted
	}
	r := image.Rect(x0, y0, x1, y1)
	if r.Empty() || !r.In(d.rect) {
		return fmt.Errorf("panel: rectangle %v outside of %v", r, d.rect)
	}
	if want := r.Dx() * r.Dy() * 2; len(pix) != want {
		return fmt.Errorf("panel: invalid buffer size %d, want %d", len(pix), want)
	}
	if err := d.window(x0, y0, x1-1, y1-1); err != nil {
		return err
	}
	return d.sendData(pix)
}

// Draw draws an image onto the display.
// The dst rectangle specifies the destination region on the display.
// The src image is positioned at src point sp within the destination.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}

	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}

	// Fast path: the source already holds the rows in wire format.
	if img, ok := src.(*rgb565.Image); ok && dst.Dx() == d.rect.Dx() {
		at := image.Rectangle{Min: sp, Max: sp.Add(dst.Size())}
		if at.Min.X == img.Rect.Min.X && at.Max.X == img.Rect.Max.X && at.In(img.Rect) {
			return d.DrawBitmap(dst.Min.X, dst.Min.Y, dst.Max.X, dst.Max.Y, img.Rows(at.Min.Y, at.Max.Y))
		}
	}

	buf := rgb565.NewImage(dst)
	draw.Draw(buf, dst, src, sp, draw.Src)
	return d.DrawBitmap(dst.Min.X, dst.Min.Y, dst.Max.X, dst.Max.Y, buf.Pix)
}

// SetGap sets the offset of the visible area inside the controller RAM.
func (d *Dev) SetGap(dx, dy int) error {
	if d.halted {
		return ErrHalted
	}
	d.gapX, d.gapY = dx, dy
	return nil
}

// Mirror flips the scan direction of columns and rows.
func (d *Dev) Mirror(x, y bool) error {
	if d.halted {
		return ErrHalted
	}
	m := d.madctl &^ (madctlMX | madctlMY)
	if x {
		m |= madctlMX
	}
	if y {
		m |= madctlMY
	}
	return d.setMemoryControl(m)
}

// SwapAxes exchanges rows and columns. The caller is responsible for the bounds
// matching the new orientation.
func (d *Dev) SwapAxes(swap bool) error {
	if d.halted {
		return ErrHalted
	}
	m := d.madctl &^ madctlMV
	if swap {
		m |= madctlMV
	}
	return d.setMemoryControl(m)
}

func (d *Dev) setMemoryControl(m byte) error {
	if err := d.command(cmdMemoryCtl, m); err != nil {
		return err
	}
	d.madctl = m
	return nil
}

// InvertColor enables or disables color inversion.
func (d *Dev) InvertColor(invert bool) error {
	if d.halted {
		return ErrHalted
	}
	d.invert = invert
	return d.command(d.inversion())
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Halt turns the display off.
// After calling Halt, the display will not respond to further commands
// until the device is re-initialized.
func (d *Dev) Halt() error {
	d.halted = true
	return d.command(cmdDisplayOff)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("panel.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
