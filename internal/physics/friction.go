// Package physics holds the tire, power and integration models used to move
// a car one timestep.
package physics

import (
	"fmt"
	"math"
)

// SlipSpeed is the slip that generates half of the maximum friction.
const SlipSpeed = 2.0

// SkidThreshold is the slip above which the asphalt preset loses grip.
const SkidThreshold = 20.0

const skidLoss = .2

// Surface selects one of the friction presets.
type Surface int

const (
	// SurfaceLoose is a very loose surface with a rational saturation curve.
	SurfaceLoose Surface = iota
	// SurfaceHard is a harder surface for ordinary cars.
	SurfaceHard
	// SurfaceAsphalt is asphalt with racing tires. It derates past SkidThreshold.
	SurfaceAsphalt
)

// ParseSurface validates a configured surface index.
func ParseSurface(n int) (Surface, error) {
	if n < int(SurfaceLoose) || n > int(SurfaceAsphalt) {
		return SurfaceHard, fmt.Errorf("unknown surface preset %d", n)
	}
	return Surface(n), nil
}

// MaxFriction is the saturation coefficient of the preset.
func (s Surface) MaxFriction() float64 {
	switch s {
	case SurfaceLoose:
		return 1.0
	case SurfaceAsphalt:
		return 1.8
	default:
		return 1.05
	}
}

func (s Surface) String() string {
	switch s {
	case SurfaceLoose:
		return "loose"
	case SurfaceAsphalt:
		return "asphalt"
	default:
		return "hard"
	}
}

// Friction returns the coefficient of friction at the given slip speed.
func Friction(s Surface, slip float64) float64 {
	return friction(s, slip, SlipSpeed)
}

// RandomFriction perturbs the half-saturation slip into [1.5, 2.5] using u in [0, 1].
func RandomFriction(s Surface, slip, u float64) float64 {
	return friction(s, slip, 1.5+u)
}

func friction(s Surface, slip, slipping float64) float64 {
	switch s {
	case SurfaceLoose:
		return s.MaxFriction() * slip / (slipping + slip)
	case SurfaceAsphalt:
		mu := s.MaxFriction() * (1 - math.Exp(-slip/slipping))
		if slip > SkidThreshold {
			mu -= skidLoss
		}
		return mu
	default:
		return s.MaxFriction() * (1 - math.Exp(-slip/slipping))
	}
}
