// pkg/core/constants.go
package core

import "fmt"

// Physical and race constants. Units are feet, seconds, slugs and pounds.
const (
	Gravity          = 32.2
	NearbyCars       = 5
	MaxRand          = 0x7FFF
	QualifyingCutoff = 1.20
	FPSToMPH         = 3600.0 / 5280.0

	CarLength = 20.0
	CarWidth  = 10.0

	MaxPower                = 1e5
	DragCoefficient         = .0065
	CarMass                 = 75.0
	MaxFuel                 = 150.0
	SpecificFuelConsumption = .45e-6
	MaxDamage               = 30000
	StartingSpeed           = 20.0
	ReverseGearLimit        = 20.0
	PrivateDataSize         = 4096

	// DefaultPowerTarget is the fraction of MaxPower the power-limit solver
	// aims for once a command exceeds the engine's capacity.
	DefaultPowerTarget = .9975

	// BackwardTickLimit is how many consecutive ticks a car may drive against
	// the track direction before it is retired with maximum damage.
	BackwardTickLimit = 100

	// PitRequestWindow is the stretch past pit entry, in feet, inside which a
	// pit request is accepted.
	PitRequestWindow = 100.0

	// CollisionFlash is the number of ticks a car stays flagged after contact.
	CollisionFlash = 15

	// NoCar marks an unused NearbyCar slot.
	NoCar = 999

	DefaultDeltaTime = .0549
)

// Stage is the phase of competition a session belongs to.
type Stage int

const (
	StageBefore Stage = iota
	StageQualifying
	StagePractice
	StageRacing
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageQualifying:
		return "qualifying"
	case StagePractice:
		return "practice"
	case StageRacing:
		return "racing"
	case StageFinished:
		return "finished"
	default:
		return "before"
	}
}

// PitState is the pit-lane sub-state of a car.
type PitState int

const (
	PitNone PitState = iota
	PitApproach
	PitStopped
	PitExit
)

func (p PitState) String() string {
	switch p {
	case PitApproach:
		return "approach"
	case PitStopped:
		return "stopped"
	case PitExit:
		return "exit"
	default:
		return "none"
	}
}

// QualifyingMode selects the metric qualifying is ranked by.
type QualifyingMode int

const (
	QualifyBestLap QualifyingMode = iota
	QualifyAvgSpeed
)

// ParseQualifyingMode accepts "bestlap" or "avgspeed".
func ParseQualifyingMode(s string) (QualifyingMode, error) {
	switch s {
	case "", "bestlap":
		return QualifyBestLap, nil
	case "avgspeed":
		return QualifyAvgSpeed, nil
	}
	return QualifyBestLap, fmt.Errorf("unknown qualifying mode %q", s)
}

func (m QualifyingMode) String() string {
	if m == QualifyAvgSpeed {
		return "avgspeed"
	}
	return "bestlap"
}
