package sim

import (
	"testing"

	"github.com/OCAP2/racesim/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestFarther(t *testing.T) {
	a := &Car{Laps: 3, Distance: 100}
	b := &Car{Laps: 2, Distance: 4000}
	assert.True(t, Farther(a, b))
	assert.False(t, Farther(b, a))

	b.Laps = 3
	assert.True(t, Farther(b, a))

	b.Out = DidNotQualify
	assert.False(t, Farther(b, a))
	assert.True(t, Farther(a, b))
}

func TestSortem(t *testing.T) {
	c, rec := arena(t, 4)
	laps := []int{1, 3, 2, 3}
	dist := []float64{500, 100, 900, 200}
	for i, car := range c.Cars {
		car.Laps, car.Distance = laps[i], dist[i]
	}

	c.Sortem()
	assert.Equal(t, []int{3, 1, 2, 0}, c.Order)
	for pos, id := range c.Order {
		assert.Equal(t, pos, c.PosOf[id])
	}
	assert.Zero(t, rec.moves, "Sortem itself does not notify")
}

func TestSortem_FinishedCarsKeepPlace(t *testing.T) {
	c, _ := arena(t, 3)
	c.Cars[0].Laps, c.Cars[0].Done = 10, true
	c.Cars[1].Laps, c.Cars[1].Distance = 10, 50
	c.Cars[2].Laps, c.Cars[2].Distance = 10, 300

	c.Sortem()
	assert.Equal(t, []int{0, 2, 1}, c.Order)
}

func TestSortem_DNQStaysLast(t *testing.T) {
	c, _ := arena(t, 3)
	c.SetOrder([]int{0, 1, 2})
	c.Cars[2].Out = DidNotQualify
	c.Cars[2].Laps = 50
	c.Cars[0].Laps = 1
	c.Cars[1].Laps = 2

	c.Sortem()
	assert.Equal(t, []int{1, 0, 2}, c.Order)
}

func TestQualifyingSort(t *testing.T) {
	c, _ := arena(t, 4)
	best := []float64{100, 120, 130, 110}
	for i, car := range c.Cars {
		car.QualBestLap = best[i]
		car.QualAvgSpeed = 200 - best[i]
	}
	c.Cars[2].Out = DidNotQualify

	c.QualifyingSort()
	assert.Equal(t, []int{1, 3, 0, 2}, c.Order)
	assert.Equal(t, 0, c.PosOf[1])

	c.Opts.QualifyingMode = core.QualifyAvgSpeed
	c.QualifyingSort()
	assert.Equal(t, []int{0, 3, 1, 2}, c.Order)
	assert.Equal(t, 100.0, c.QualifyingMetric(c.Cars[0]))
}
