package driver

import (
	"encoding/binary"

	"github.com/OCAP2/racesim/pkg/core"
)

// rollTicks is how long Reverse rolls forward before it turns around.
const rollTicks = 10

// Reverse rolls off the grid, turns around and drives against the direction
// of the track until it is retired. It keeps its tick count in the scratch
// area.
type Reverse struct{}

func (Reverse) Name() string { return "Reverse" }

func (Reverse) Drive(s *core.Situation) core.ControlCommand {
	var n uint32
	if !s.Starting && len(s.Scratch) >= 4 {
		n = binary.LittleEndian.Uint32(s.Scratch)
	}
	n++
	if len(s.Scratch) >= 4 {
		binary.LittleEndian.PutUint32(s.Scratch, n)
	}

	var damp float64
	if s.V > 0 {
		damp = s.Vn / s.V
	}
	switch {
	case n <= rollTicks:
		return core.ControlCommand{Vc: s.V, Alpha: -damp}
	case !s.Backward:
		return core.ControlCommand{Vc: 30, Alpha: .5}
	default:
		return core.ControlCommand{Vc: 40}
	}
}
