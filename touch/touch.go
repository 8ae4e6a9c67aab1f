// Package touch turns raw, polled touch controller snapshots into edge-triggered
// press, move and release events.
package touch

import (
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the minimum time between two hardware reads.
const DefaultInterval = 10 * time.Millisecond

// Sample is one raw controller snapshot.
type Sample struct {
	X, Y    int16
	Pressed bool
}

// Reader is implemented by touch controllers. ReadTouch returns the controller's current
// state; it carries no notion of change since the previous read.
type Reader interface {
	ReadTouch() (Sample, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func() (Sample, error)

// ReadTouch calls f.
func (f ReaderFunc) ReadTouch() (Sample, error) {
	return f()
}

// Kind is the kind of a touch event.
type Kind uint8

const (
	Pressed Kind = iota + 1
	Moved
	Released
)

func (k Kind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Moved:
		return "moved"
	case Released:
		return "released"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Event is a touch state transition. X and Y are zero for Released.
type Event struct {
	Kind Kind
	X, Y int
}

func (e Event) String() string {
	if e.Kind == Released {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s(%d,%d)", e.Kind, e.X, e.Y)
}

// Opts configures a Sampler.
type Opts struct {
	Interval time.Duration    // Minimum time between reads (default DefaultInterval)
	Now      func() time.Time // Clock (default time.Now)
}

// Sampler rate-limits a Reader and reports only state changes.
type Sampler struct {
	r        Reader
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	last     Sample
	lastPoll time.Time
	polled   bool
}

// NewSampler returns a Sampler reading from r. opts may be nil.
func NewSampler(r Reader, opts *Opts) *Sampler {
	s := &Sampler{r: r, interval: DefaultInterval, now: time.Now}
	if opts != nil {
		if opts.Interval > 0 {
			s.interval = opts.Interval
		}
		if opts.Now != nil {
			s.now = opts.Now
		}
	}
	return s
}

// Poll reads the controller at most once per interval. ok is false when there is no
// new information: the interval has not elapsed, the state is unchanged, or the
// change does not form an event.
//
// A failed read counts as a poll for rate limiting but leaves the last state intact.
func (s *Sampler) Poll() (ev Event, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.polled && now.Sub(s.lastPoll) < s.interval {
		return Event{}, false, nil
	}
	s.polled = true
	s.lastPoll = now

	cur, err := s.r.ReadTouch()
	if err != nil {
		return Event{}, false, fmt.Errorf("touch: read failed: %w", err)
	}
	prev := s.last
	s.last = cur
	if cur == prev {
		return Event{}, false, nil
	}

	switch {
	case cur.Pressed && !prev.Pressed:
		return Event{Kind: Pressed, X: int(cur.X), Y: int(cur.Y)}, true, nil
	case cur.Pressed:
		return Event{Kind: Moved, X: int(cur.X), Y: int(cur.Y)}, true, nil
	case prev.Pressed:
		return Event{Kind: Released}, true, nil
	}
	return Event{}, false, nil
}

// Last returns the most recent successfully read sample.
func (s *Sampler) Last() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
