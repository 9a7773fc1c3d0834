package robot

import (
	"sync/atomic"

	"github.com/arobi-robotics/robotd/internal/dof"
)

// dofCell is a seqlock-guarded dof.Variables pair (measures and
// setpoints): the control thread is the sole writer of measures and
// sole reader of setpoints, while the network/dispatch thread is the
// sole writer of setpoints and sole reader of measures. A seqlock lets
// both sides proceed without blocking each other or allocating per
// tick, at the cost of a reader retry on a rare writer/reader race.
type dofCell struct {
	measuresSeq  atomic.Uint64
	measures     dof.Variables
	setpointsSeq atomic.Uint64
	setpoints    dof.Variables
	hasChanged   atomic.Bool
}

func (c *dofCell) writeMeasures(v dof.Variables) {
	c.measuresSeq.Add(1)
	c.measures = v
	c.measuresSeq.Add(1)
}

func (c *dofCell) readMeasures() dof.Variables {
	for {
		seq1 := c.measuresSeq.Load()
		if seq1%2 != 0 {
			continue
		}
		v := c.measures
		seq2 := c.measuresSeq.Load()
		if seq1 == seq2 {
			return v
		}
	}
}

func (c *dofCell) writeSetpoints(v dof.Variables) {
	c.setpointsSeq.Add(1)
	c.setpoints = v
	c.setpointsSeq.Add(1)
}

func (c *dofCell) readSetpoints() dof.Variables {
	for {
		seq1 := c.setpointsSeq.Load()
		if seq1%2 != 0 {
			continue
		}
		v := c.setpoints
		seq2 := c.setpointsSeq.Load()
		if seq1 == seq2 {
			return v
		}
	}
}
