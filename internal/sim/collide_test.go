package sim

import (
	"math"
	"testing"

	"github.com/OCAP2/racesim/internal/collision"
	"github.com/OCAP2/racesim/internal/physics"
	"github.com/OCAP2/racesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCollisions_HeadOn(t *testing.T) {
	c, rec := arena(t, 2)
	c.Opts.Model = physics.NewModel(physics.SurfaceHard)
	a := put(c, 0, 300, 30, 0, 20)
	b := put(c, 1, 318, 32, math.Pi, 20)
	for _, car := range c.Cars {
		c.observe(car)
	}

	c.checkCollisions(a)
	c.checkCollisions(b)

	require.GreaterOrEqual(t, rec.collisions, 1)
	assert.Greater(t, a.Damage, b.Damage, "the car handling the pair takes the larger share")
	assert.Greater(t, b.Damage, 10)
	assert.Equal(t, core.CollisionFlash, a.CollisionFlash)
	assert.InDelta(t, 0, collision.Overlap(a.body(), b.body()), 1e-6)
}

func TestCheckCollisions_NoDamageInPractice(t *testing.T) {
	c, rec := arena(t, 2)
	c.Stage = core.StagePractice
	a := put(c, 0, 300, 30, 0, 22)
	b := put(c, 1, 318, 32, math.Pi, 20)

	c.checkCollisions(a)
	assert.Equal(t, 1, rec.collisions)
	assert.Zero(t, a.Damage)
	assert.Zero(t, b.Damage)
	assert.Less(t, a.XDot, 22.0, "momentum is still exchanged")
}

func TestCheckCollisions_NoDamageInPitManeuver(t *testing.T) {
	c, _ := arena(t, 2)
	a := put(c, 0, 300, 30, 0, 22)
	b := put(c, 1, 318, 32, math.Pi, 20)
	b.OutPits = true

	c.checkCollisions(a)
	assert.Zero(t, a.Damage)
	assert.Zero(t, b.Damage)
}

func TestCheckCollisions_SlowerCarSkipsPair(t *testing.T) {
	c, rec := arena(t, 2)
	a := put(c, 0, 300, 30, 0, 10)
	put(c, 1, 315, 30, 0, 5)

	c.checkCollisions(c.Cars[1])
	assert.Zero(t, rec.collisions)

	c.checkCollisions(a)
	assert.Equal(t, 1, rec.collisions)
	assert.Greater(t, c.Cars[1].XDot, 5.0, "the car in front is shoved along")
}

func TestCheckCollisions_DeadAhead(t *testing.T) {
	c, _ := arena(t, 2)
	a := put(c, 0, 300, 30, 0, 100)
	put(c, 1, 380, 30, 0, 20)
	for _, car := range c.Cars {
		c.observe(car)
	}

	c.checkCollisions(a)
	assert.True(t, a.DeadAhead)

	// off to the side is not dead ahead
	c.Cars[1].Y = 70
	c.observe(c.Cars[1])
	c.checkCollisions(a)
	assert.False(t, a.DeadAhead)
}
