// Package gt911 reads Goodix GT911 capacitive touch controllers via I2C.
//
// Only the first touch point is reported. The controller is polled, the interrupt
// line is not used.
package gt911

import (
	"errors"
	"fmt"
	"time"

	"github.com/flavioheleno/mazeboard/touch"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// DefaultAddr is the controller address when INT is held low during reset.
const DefaultAddr = 0x5D

// Registers.
const (
	regProductID = 0x8140
	regStatus    = 0x814E
	regPoint1    = 0x814F
)

const (
	statusReady = 0x80
	maxPoints   = 5
)

// ErrNotFound is returned by Init when the product id does not identify a GT911.
var ErrNotFound = errors.New("gt911: controller not found")

// Opts is the configuration for the controller.
type Opts struct {
	Addr uint16      // I2C address (default: DefaultAddr)
	RST  gpio.PinOut // Reset pin (optional, nil if not used)

	// Logger (default: logrus standard logger)
	Logger log.FieldLogger
}

// Dev is the device handle for the touch controller.
type Dev struct {
	c   i2c.Dev
	rst gpio.PinOut
	log log.FieldLogger

	last touch.Sample
}

var _ touch.Reader = &Dev{}

// New returns a handle on bus. It does not talk to the controller, see Init.
// opts can be nil to use defaults.
func New(bus i2c.Bus, opts *Opts) *Dev {
	d := &Dev{
		c:   i2c.Dev{Bus: bus, Addr: DefaultAddr},
		log: log.StandardLogger(),
	}
	if opts != nil {
		if opts.Addr != 0 {
			d.c.Addr = opts.Addr
		}
		d.rst = opts.RST
		if opts.Logger != nil {
			d.log = opts.Logger
		}
	}
	return d
}

// Open returns an initialized controller, resetting it between failed attempts.
func Open(bus i2c.Bus, opts *Opts, attempts int) (*Dev, error) {
	d := New(bus, opts)
	var err error
	for i := 0; i < max(attempts, 1); i++ {
		if i > 0 {
			d.log.WithError(err).WithField("attempt", i).Warn("touch controller init failed, resetting")
			if rerr := d.ResetLine(); rerr != nil {
				return nil, rerr
			}
		}
		if err = d.Init(); err == nil {
			return d, nil
		}
	}
	return nil, err
}

// ResetLine pulses the reset pin. It is a no-op without a reset pin.
func (d *Dev) ResetLine() error {
	if d.rst == nil {
		return nil
	}
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("gt911: failed to pull RST low: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("gt911: failed to pull RST high: %w", err)
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

// Init checks the product id and clears any pending touch data.
func (d *Dev) Init() error {
	id := make([]byte, 4)
	if err := d.read(regProductID, id); err != nil {
		return err
	}
	if string(id[:3]) != "911" {
		return fmt.Errorf("%w: product id %q", ErrNotFound, id)
	}
	d.log.WithField("addr", fmt.Sprintf("%#02x", d.c.Addr)).Debug("touch controller found")
	d.last = touch.Sample{}
	return d.write(regStatus, 0)
}

// ReadTouch returns the current state of the first touch point. When the controller
// has no fresh data the last reported sample is returned.
func (d *Dev) ReadTouch() (touch.Sample, error) {
	var status [1]byte
	if err := d.read(regStatus, status[:]); err != nil {
		return d.last, err
	}
	if status[0]&statusReady == 0 {
		return d.last, nil
	}

	switch n := int(status[0] & 0x0F); {
	case n == 0:
		d.last.Pressed = false
	case n <= maxPoints:
		var p [8]byte
		if err := d.read(regPoint1, p[:]); err != nil {
			return d.last, err
		}
		d.last = touch.Sample{
			X:       int16(uint16(p[1]) | uint16(p[2])<<8),
			Y:       int16(uint16(p[3]) | uint16(p[4])<<8),
			Pressed: true,
		}
	default:
		d.log.WithField("status", status[0]).Debug("invalid touch point count")
	}

	// The controller does not refresh the buffer until the status is cleared.
	return d.last, d.write(regStatus, 0)
}

func (d *Dev) read(reg uint16, r []byte) error {
	if err := d.c.Tx([]byte{byte(reg >> 8), byte(reg)}, r); err != nil {
		return fmt.Errorf("gt911: read 0x%04X: %w", reg, err)
	}
	return nil
}

func (d *Dev) write(reg uint16, b ...byte) error {
	w := append([]byte{byte(reg >> 8), byte(reg)}, b...)
	if err := d.c.Tx(w, nil); err != nil {
		return fmt.Errorf("gt911: write 0x%04X: %w", reg, err)
	}
	return nil
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("gt911.Dev{%#02x}", d.c.Addr)
}
