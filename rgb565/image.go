// Package rgb565 provides the 16-bit packed color format used by TFT panel controllers.
//
// Each pixel holds 5 bits of red, 6 bits of green and 5 bits of blue. Images store pixels
// big-endian, two bytes per pixel, which is the byte order the panel expects on the wire,
// so rows of an Image can be sent to the display without conversion.
package rgb565

import (
	"image"
	"image/color"
)

// Color is a packed 5/6/5 color: bits 15-11 red, 10-5 green, 4-0 blue.
type Color uint16

// Common colors.
const (
	Black   Color = 0x0000
	White   Color = 0xFFFF
	Red     Color = 0xF800
	Green   Color = 0x07E0
	Blue    Color = 0x001F
	Cyan    Color = 0x07FF
	Magenta Color = 0xF81F
	Yellow  Color = 0xFFE0
)

// New packs 8-bit channels into a Color, dropping the low bits of each channel.
func New(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// FromRGBA converts an 8-bit RGBA color. Alpha is ignored.
func FromRGBA(c color.RGBA) Color {
	return New(c.R, c.G, c.B)
}

// Channels returns the color expanded to 8-bit channels.
// The high bits are replicated into the low bits so White maps to 0xFF.
func (c Color) Channels() (r, g, b uint8) {
	r5 := uint8(c>>11) & 0x1F
	g6 := uint8(c>>5) & 0x3F
	b5 := uint8(c) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.Channels()
	r = uint32(r8) * 0x101
	g = uint32(g8) * 0x101
	b = uint32(b8) * 0x101
	return r, g, b, 0xFFFF
}

// ToRGBA converts the color to an opaque color.RGBA.
func (c Color) ToRGBA() color.RGBA {
	r, g, b := c.Channels()
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// Blend mixes fg over bg. alpha is the weight of fg, clamped to [0, 1].
func Blend(fg, bg Color, alpha float32) Color {
	if alpha <= 0 {
		return bg
	}
	if alpha >= 1 {
		return fg
	}
	fr, fgr, fb := fg.Channels()
	br, bgr, bb := bg.Channels()
	mix := func(f, b uint8) uint8 {
		return uint8(float32(f)*alpha + float32(b)*(1-alpha))
	}
	return New(mix(fr, br), mix(fgr, bgr), mix(fb, bb))
}

func toRGB565(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return New(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model converts colors to Color.
var Model = color.ModelFunc(toRGB565)

// Image is an RGB565 image with big-endian pixel storage.
type Image struct {
	Pix    []byte          // Pixel data (2 bytes per pixel, high byte first)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// NewImage creates a new Image with the specified bounds.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Image{Rect: r}
	}
	stride := w * 2
	return &Image{
		Pix:    make([]byte, stride*h),
		Stride: stride,
		Rect:   r,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model {
	return Model
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At implements image.Image.
func (p *Image) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the pixel at (x, y), or Black outside the bounds.
func (p *Image) RGB565At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return Black
	}
	i := p.PixOffset(x, y)
	return Color(uint16(p.Pix[i])<<8 | uint16(p.Pix[i+1]))
}

// Set implements draw.Image.
func (p *Image) Set(x, y int, c color.Color) {
	p.SetRGB565(x, y, Model.Convert(c).(Color))
}

// SetRGB565 sets the pixel at (x, y). Writes outside the bounds are ignored.
func (p *Image) SetRGB565(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	p.Pix[i] = byte(c >> 8)
	p.Pix[i+1] = byte(c)
}

// Fill sets every pixel to c.
func (p *Image) Fill(c Color) {
	hi, lo := byte(c>>8), byte(c)
	for i := 0; i+1 < len(p.Pix); i += 2 {
		p.Pix[i] = hi
		p.Pix[i+1] = lo
	}
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}

// Rows returns the bytes of rows [y0, y1) without copying.
func (p *Image) Rows(y0, y1 int) []byte {
	return p.Pix[(y0-p.Rect.Min.Y)*p.Stride : (y1-p.Rect.Min.Y)*p.Stride]
}
