// File: reactor/group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package reactor

import (
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/promise"
)

// Group is api.EventLoopGroup: nThreads reactors sharing a chooser.
// Construction is atomic: if any selector fails to open, every
// already-created loop is shut down and joined before the error surfaces
// (spec.md §4.C).
type Group struct {
	loops     []*EventLoop
	execs     []api.EventExecutor
	idx       uint64
	mask      uint64
	pow2      bool
	term      *promise.DefaultPromise
	remaining atomic.Int32
}

// NewGroup builds a reactor group of nThreads event loops, each with its
// own Selector and the given ioRatio (default 50). newSelector defaults to
// NewSelector (the platform backend) when nil, letting tests inject
// NewFakeSelector instead.
func NewGroup(nThreads, ioRatio int, newSelector func() (Selector, error)) (*Group, error) {
	if nThreads <= 0 {
		nThreads = 1
	}
	if newSelector == nil {
		newSelector = NewSelector
	}
	loops := make([]*EventLoop, 0, nThreads)
	for i := 0; i < nThreads; i++ {
		sel, err := newSelector()
		if err != nil {
			for _, l := range loops {
				l.ShutdownGracefully(0, 0).Sync()
			}
			return nil, err
		}
		loops = append(loops, NewEventLoop("reactor-"+strconv.Itoa(i), sel, ioRatio))
	}
	execs := make([]api.EventExecutor, len(loops))
	for i, l := range loops {
		execs[i] = l
	}
	g := &Group{
		loops: loops,
		execs: execs,
		term:  promise.New(nil),
	}
	n := len(loops)
	g.pow2 = n&(n-1) == 0
	g.mask = uint64(n - 1)
	g.remaining.Store(int32(n))
	for _, l := range loops {
		l.TerminationFuture().AddListener(func(api.Future) {
			if g.remaining.Add(-1) == 0 {
				g.term.TrySuccess(nil)
			}
		})
	}
	return g, nil
}

// SetLogger points every loop's select-error and recovered-panic logging
// at logger instead of the no-op default.
func (g *Group) SetLogger(logger *zap.SugaredLogger) {
	for _, l := range g.loops {
		l.SetLogger(logger)
	}
}

func (g *Group) next() *EventLoop {
	i := atomic.AddUint64(&g.idx, 1) - 1
	if g.pow2 {
		return g.loops[i&g.mask]
	}
	return g.loops[i%uint64(len(g.loops))]
}

func (g *Group) Next() api.EventExecutor { return g.next() }
func (g *Group) NextLoop() api.EventLoop { return g.next() }

func (g *Group) All() []api.EventExecutor {
	out := make([]api.EventExecutor, len(g.execs))
	copy(out, g.execs)
	return out
}

func (g *Group) RegisterChannel(ch api.Channel) api.Future {
	return g.NextLoop().Register(ch)
}

func (g *Group) ShutdownGracefully(quietPeriod, timeout time.Duration) api.Future {
	for _, l := range g.loops {
		l.ShutdownGracefully(quietPeriod, timeout)
	}
	return g.term
}

func (g *Group) TerminationFuture() api.Future { return g.term }

var _ api.EventLoopGroup = (*Group)(nil)
