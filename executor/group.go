// File: executor/group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package executor

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/promise"
)

// powerOfTwoChooser uses a bitmask when the executor count is a power of
// two; genericChooser falls back to modulus otherwise. Spec.md §4.C /
// scenario 1.
type powerOfTwoChooser struct {
	executors []api.EventExecutor
	idx       uint64
	mask      uint64
}

func (c *powerOfTwoChooser) Next() api.EventExecutor {
	i := atomic.AddUint64(&c.idx, 1) - 1
	return c.executors[i&c.mask]
}

type genericChooser struct {
	executors []api.EventExecutor
	idx       uint64
}

func (c *genericChooser) Next() api.EventExecutor {
	i := atomic.AddUint64(&c.idx, 1) - 1
	return c.executors[i%uint64(len(c.executors))]
}

func newChooser(executors []api.EventExecutor) api.Chooser {
	n := len(executors)
	if n&(n-1) == 0 {
		return &powerOfTwoChooser{executors: executors, mask: uint64(n - 1)}
	}
	return &genericChooser{executors: executors}
}

// Group is api.EventExecutorGroup: N executors and a chooser. Construction
// cannot fail part-way, since SingleThreadEventExecutor.New never fails;
// reactor.Group, a separate type that does return errors from platform
// selector setup, shuts down and joins the loops it already built before
// surfacing such an error (spec.md §4.C).
type Group struct {
	executors []api.EventExecutor
	chooser   api.Chooser
	term      *promise.DefaultPromise
	remaining atomic.Int32
}

// NewGroup builds a Group of nThreads named executors, prefixed by
// namePrefix-<i>.
func NewGroup(nThreads int, namePrefix string) *Group {
	if nThreads <= 0 {
		nThreads = 1
	}
	execs := make([]api.EventExecutor, nThreads)
	for i := 0; i < nThreads; i++ {
		execs[i] = New(namePrefix+"-"+strconv.Itoa(i), 256)
	}
	g := &Group{
		executors: execs,
		chooser:   newChooser(execs),
		term:      promise.New(nil),
	}
	g.remaining.Store(int32(nThreads))
	for _, e := range execs {
		e.TerminationFuture().AddListener(func(api.Future) {
			if g.remaining.Add(-1) == 0 {
				g.term.TrySuccess(nil)
			}
		})
	}
	return g
}

func (g *Group) Next() api.EventExecutor { return g.chooser.Next() }
func (g *Group) All() []api.EventExecutor {
	out := make([]api.EventExecutor, len(g.executors))
	copy(out, g.executors)
	return out
}

func (g *Group) ShutdownGracefully(quietPeriod, timeout time.Duration) api.Future {
	for _, e := range g.executors {
		e.ShutdownGracefully(quietPeriod, timeout)
	}
	return g.term
}

func (g *Group) TerminationFuture() api.Future { return g.term }

var _ api.EventExecutorGroup = (*Group)(nil)
