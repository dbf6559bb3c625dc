package sim

import (
	"testing"

	"github.com/OCAP2/racesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nearbyArena(t *testing.T) *Context {
	c, _ := arena(t, 5)
	put(c, 0, 300, 30, 0, 50) // me
	put(c, 1, 350, 30, 0, 50) // straight ahead
	put(c, 2, 320, 40, 0, 50) // close, to the left
	put(c, 3, 250, 30, 0, 50) // behind
	put(c, 4, 900, 30, 0, 50) // beyond braking distance
	for _, car := range c.Cars {
		c.observe(car)
	}
	return c
}

func who(s *core.Situation) []int {
	var ids []int
	for _, n := range s.Nearby {
		ids = append(ids, n.Who)
	}
	return ids
}

func TestCheckNearby_NearestFirst(t *testing.T) {
	c := nearbyArena(t)
	me := c.Cars[0]
	c.checkNearby(me)

	s := me.Situation()
	assert.Equal(t, []int{2, 1, core.NoCar, core.NoCar, core.NoCar}, who(s))

	b := s.Nearby[0]
	assert.InDelta(t, -10, b.RelX, 1e-9, "negative is to the left")
	assert.InDelta(t, 20, b.RelY, 1e-9)
	assert.InDelta(t, 0, b.RelXDot, 1e-9)
	assert.InDelta(t, 0, b.RelYDot, 1e-9)
	assert.InDelta(t, 22.3607, b.Dist, 1e-4)
	assert.InDelta(t, 35, b.ToLeft, 1e-9)
	assert.InDelta(t, 50, b.V, 1e-9)
	assert.True(t, b.ForPosition)
	assert.False(t, b.Braking)
}

func TestCheckNearby_PitLane(t *testing.T) {
	c := nearbyArena(t)
	me := c.Cars[0]
	c.Cars[2].OnPitLane = true

	c.checkNearby(me)
	assert.Equal(t, []int{1, core.NoCar, core.NoCar, core.NoCar, core.NoCar}, who(me.Situation()))

	// a car leaving the pits needs to see the lane
	me.ComingFromPits = true
	c.checkNearby(me)
	assert.Equal(t, 2, me.Situation().Nearby[0].Who)
}

func TestCheckNearby_SkipsRetiredAndInactive(t *testing.T) {
	c := nearbyArena(t)
	me := c.Cars[0]
	c.Cars[2].Out = Retired

	c.checkNearby(me)
	assert.Equal(t, 1, me.Situation().Nearby[0].Who)
	assert.True(t, me.Situation().Nearby[1].Empty())

	c.Active = 0
	c.checkNearby(me)
	assert.True(t, me.Situation().Nearby[0].Empty(), "only the active car is on track")
}

func TestCheckNearby_SideVision(t *testing.T) {
	c, _ := arena(t, 2)
	me := put(c, 0, 300, 30, 0, 50)
	put(c, 1, 290, 45, 0, 50) // alongside, slightly behind
	for _, car := range c.Cars {
		c.observe(car)
	}

	c.checkNearby(me)
	require.True(t, me.Situation().Nearby[0].Empty())

	c.Opts.SideVision = true
	me.Situation().SideVision = true
	c.checkNearby(me)
	assert.Equal(t, 1, me.Situation().Nearby[0].Who)
	assert.Less(t, me.Situation().Nearby[0].RelY, 0.0)
}
