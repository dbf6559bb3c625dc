package sim

import (
	"cmp"
	"slices"

	"github.com/OCAP2/racesim/pkg/core"
)

// Farther reports whether a has gone farther than b: more laps first, then
// more distance into the lap. A car that did not qualify is never farther
// than one that did.
func Farther(a, b *Car) bool {
	if dnqA, dnqB := a.Out == DidNotQualify, b.Out == DidNotQualify; dnqA != dnqB {
		return dnqB
	}
	if a.Laps != b.Laps {
		return a.Laps > b.Laps
	}
	return a.Distance > b.Distance
}

// Sortem keeps Order and PosOf up to date. It is an insertion sort that is
// cheap when the order barely changes between ticks. Finished cars keep the
// place they finished in.
func (c *Context) Sortem() {
	frozen := func(i int) bool {
		car := c.Cars[c.Order[i]]
		return car.Out == DidNotQualify || car.Done
	}
	for i := 0; i < len(c.Order)-1; i++ {
		if frozen(i) {
			continue
		}
		for Farther(c.Cars[c.Order[i+1]], c.Cars[c.Order[i]]) {
			c.swap(i)
			if i == 0 {
				break
			}
			i--
			if frozen(i) {
				break
			}
		}
	}
}

func (c *Context) swap(i int) {
	c.Order[i], c.Order[i+1] = c.Order[i+1], c.Order[i]
	c.PosOf[c.Order[i]] = i
	c.PosOf[c.Order[i+1]] = i + 1
}

// QualifyingSort orders cars by their qualifying metric, best first, with
// cars that did not qualify last. Ties keep their current order.
func (c *Context) QualifyingSort() {
	metric := func(id int) float64 { return c.QualifyingMetric(c.Cars[id]) }
	slices.SortStableFunc(c.Order, func(a, b int) int {
		dnqA, dnqB := c.Cars[a].Out == DidNotQualify, c.Cars[b].Out == DidNotQualify
		if dnqA != dnqB {
			if dnqA {
				return 1
			}
			return -1
		}
		return cmp.Compare(metric(b), metric(a))
	})
	for pos, id := range c.Order {
		c.PosOf[id] = pos
	}
}

// QualifyingMetric is the value qualifying ranks the car by.
func (c *Context) QualifyingMetric(car *Car) float64 {
	if c.Opts.QualifyingMode == core.QualifyAvgSpeed {
		return car.QualAvgSpeed
	}
	return car.QualBestLap
}
