package rgb565

import (
	"image"
	"image/color"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    Color
	}{
		{"black", 0, 0, 0, Black},
		{"white", 0xFF, 0xFF, 0xFF, White},
		{"red", 0xFF, 0, 0, Red},
		{"green", 0, 0xFF, 0, Green},
		{"blue", 0, 0, 0xFF, Blue},
		{"low bits dropped", 0x07, 0x03, 0x07, Black},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("New(%d, %d, %d) = 0x%04X, want 0x%04X", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestColorRGBA(t *testing.T) {
	r, g, b, a := White.RGBA()
	if r != 0xFFFF || g != 0xFFFF || b != 0xFFFF || a != 0xFFFF {
		t.Errorf("White.RGBA() = (%x, %x, %x, %x), want all 0xFFFF", r, g, b, a)
	}
	r, g, b, _ = Black.RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("Black.RGBA() = (%x, %x, %x), want zeros", r, g, b)
	}
	if got := Red.ToRGBA(); got != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Errorf("Red.ToRGBA() = %v", got)
	}
}

func TestModelConvert(t *testing.T) {
	tests := []struct {
		name  string
		input color.Color
		want  Color
	}{
		{"passthrough", Color(0x1234), Color(0x1234)},
		{"black", color.Black, Black},
		{"white", color.White, White},
		{"rgba", color.RGBA{R: 0xFF, G: 0xFF, A: 0xFF}, Yellow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Model.Convert(tt.input).(Color); got != tt.want {
				t.Errorf("Model.Convert(%v) = 0x%04X, want 0x%04X", tt.input, got, tt.want)
			}
		})
	}
}

func TestBlend(t *testing.T) {
	if got := Blend(White, Black, 1); got != White {
		t.Errorf("Blend alpha 1 = 0x%04X, want White", got)
	}
	if got := Blend(White, Black, 0); got != Black {
		t.Errorf("Blend alpha 0 = 0x%04X, want Black", got)
	}
	r, g, b := Blend(White, Black, 0.5).Channels()
	if r < 0x70 || r > 0x88 || g < 0x70 || g > 0x88 || b < 0x70 || b > 0x88 {
		t.Errorf("Blend alpha 0.5 = (%d, %d, %d), want mid gray", r, g, b)
	}
}

func TestNewImage(t *testing.T) {
	tests := []struct {
		name       string
		rect       image.Rectangle
		wantStride int
		wantPixLen int
	}{
		{"800x480", image.Rect(0, 0, 800, 480), 1600, 768000},
		{"3x2", image.Rect(0, 0, 3, 2), 6, 12},
		{"offset rect", image.Rect(10, 20, 14, 22), 8, 16},
		{"empty", image.Rect(0, 0, 0, 4), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage(tt.rect)
			if img.Rect != tt.rect {
				t.Errorf("Rect = %v, want %v", img.Rect, tt.rect)
			}
			if img.Stride != tt.wantStride {
				t.Errorf("Stride = %d, want %d", img.Stride, tt.wantStride)
			}
			if len(img.Pix) != tt.wantPixLen {
				t.Errorf("len(Pix) = %d, want %d", len(img.Pix), tt.wantPixLen)
			}
		})
	}
}

func TestImageByteOrder(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 2, 1))
	img.SetRGB565(0, 0, Color(0xABCD))
	img.SetRGB565(1, 0, Color(0x1234))

	want := []byte{0xAB, 0xCD, 0x12, 0x34}
	for i, b := range want {
		if img.Pix[i] != b {
			t.Errorf("Pix[%d] = 0x%02X, want 0x%02X", i, img.Pix[i], b)
		}
	}
}

func TestImageSetGet(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 4, 2))
	img.Set(3, 1, color.White)
	if got := img.RGB565At(3, 1); got != White {
		t.Errorf("RGB565At(3, 1) = 0x%04X, want White", got)
	}
	c, ok := img.At(3, 1).(Color)
	if !ok || c != White {
		t.Errorf("At(3, 1) = %v, want White", img.At(3, 1))
	}
}

func TestImageOutOfBounds(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 4, 4))

	img.SetRGB565(-1, 0, White)
	img.SetRGB565(0, -1, White)
	img.SetRGB565(4, 0, White)
	img.SetRGB565(0, 4, White)

	for i, b := range img.Pix {
		if b != 0 {
			t.Fatalf("Pix[%d] = 0x%02X after out-of-bounds writes, want 0", i, b)
		}
	}
	if got := img.RGB565At(-1, 0); got != Black {
		t.Errorf("RGB565At(-1, 0) = 0x%04X, want Black", got)
	}
}

func TestImageOffsetRect(t *testing.T) {
	img := NewImage(image.Rect(100, 50, 102, 52))
	img.SetRGB565(101, 51, Red)
	if got := img.PixOffset(101, 51); got != 6 {
		t.Errorf("PixOffset(101, 51) = %d, want 6", got)
	}
	if img.Pix[6] != 0xF8 || img.Pix[7] != 0x00 {
		t.Errorf("Pix[6:8] = %X, want F800", img.Pix[6:8])
	}
}

func TestImageFillAndRows(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 3, 4))
	img.Fill(Blue)
	for y := 0; y < 4; y++ {
		for x := 0; x < 3; x++ {
			if got := img.RGB565At(x, y); got != Blue {
				t.Fatalf("RGB565At(%d, %d) = 0x%04X, want Blue", x, y, got)
			}
		}
	}

	rows := img.Rows(1, 3)
	if len(rows) != 2*img.Stride {
		t.Fatalf("len(Rows(1, 3)) = %d, want %d", len(rows), 2*img.Stride)
	}
	rows[0] = 0xFF
	if img.Pix[img.Stride] != 0xFF {
		t.Error("Rows must alias the pixel buffer")
	}
}
