// Package rng provides the deterministic linear congruential streams used by
// the simulation core and by driver policies.
package rng

import "github.com/OCAP2/racesim/pkg/core"

const (
	multiplier = 0x015a4e35
	increment  = 1
)

// Stream is a single LCG sequence. The zero value is not seeded; use NewStream.
type Stream struct {
	seed uint32
}

// NewStream returns a stream starting at seed.
func NewStream(seed uint32) *Stream {
	return &Stream{seed: seed}
}

// Next returns the next value in [0, core.MaxRand].
func (s *Stream) Next() int {
	s.seed = multiplier*s.seed + increment
	return int((s.seed >> 16) & core.MaxRand)
}

// Float returns the next value scaled to [0, 1].
func (s *Stream) Float() float64 {
	return float64(s.Next()) / core.MaxRand
}

// Seed returns the current internal state.
func (s *Stream) Seed() uint32 { return s.seed }

// Source pairs the core stream with the stream exposed to drivers.
type Source struct {
	initial  uint32
	Core     *Stream
	External *Stream
}

// New seeds the core stream and derives the external stream from its first draw.
func New(seed uint32) *Source {
	c := NewStream(seed)
	return &Source{
		initial:  seed,
		Core:     c,
		External: NewStream(uint32(c.Next())),
	}
}

// InitialSeed is the seed the source was created with.
func (s *Source) InitialSeed() uint32 { return s.initial }

var _ core.Random = (*Stream)(nil)
