package race

import (
	"slices"

	"github.com/OCAP2/racesim/pkg/core"
)

// startOrderer is implemented by replay sources that carry the recorded grid.
type startOrderer interface {
	StartOrder() []int
}

// raceOrder is the grid for race index: the recorded grid when replaying,
// the qualifying order when qualifying ran, the configured order otherwise.
func (o *Orchestrator) raceOrder(index int) []int {
	n := len(o.sim.Cars)
	if index == 0 {
		if so, ok := o.deps.Replayer.(startOrderer); ok {
			if order := so.StartOrder(); len(order) == n {
				return slices.Clone(order)
			}
		}
	}
	if o.qualOrder != nil {
		return slices.Clone(o.qualOrder)
	}
	return o.startOrder(index)
}

// startOrder picks the running order for session index and remembers it.
// In random mode even sessions are shuffled and odd sessions start in the
// reverse of the previous grid.
func (o *Orchestrator) startOrder(index int) []int {
	n := len(o.sim.Cars)
	var order []int
	switch o.opts.StartOrder {
	case StartKeep:
		order = identity(n)
	case StartReverse:
		prev := o.lastFinish
		if prev == nil {
			prev = identity(n)
		}
		order = reversed(prev)
	default:
		if index%2 == 1 && o.lastStart != nil {
			order = reversed(o.lastStart)
		} else {
			order = pickRandomOrder(n, o.sim.Rand.Core)
		}
	}
	o.lastStart = slices.Clone(order)
	return order
}

// pickRandomOrder draws a permutation of 0..n-1, filling it from the back.
func pickRandomOrder(n int, r core.Random) []int {
	order := make([]int, n)
	picked := make([]bool, n)
	for j := n; j > 0; j-- {
		k := 0
		if j > 1 {
			k = (r.Next() / 128) % j
		}
		for i, count := 0, 0; i < n; i++ {
			if picked[i] {
				continue
			}
			if count == k {
				picked[i] = true
				order[j-1] = i
				break
			}
			count++
		}
	}
	return order
}
