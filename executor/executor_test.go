// File: executor/executor_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package executor

import (
	"sync"
	"testing"
	"time"
)

// TestChooserMathPowerOfTwo is spec.md §8 scenario 1: a group of 4
// executors round-robins {0,1,2,3,0,1,2,3} via the bitmask chooser.
func TestChooserMathPowerOfTwo(t *testing.T) {
	g := NewGroup(4, "pow2")
	var got []int
	for i := 0; i < 8; i++ {
		e := g.Next()
		for idx, cand := range g.All() {
			if cand == e {
				got = append(got, idx)
			}
		}
	}
	want := []int{0, 1, 2, 3, 0, 1, 2, 3}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("index %d: got %d want %d (full=%v)", i, got[i], w, got)
		}
	}
}

// TestChooserMathGeneric is spec.md §8 scenario 1's 3-executor case,
// exercising the generic modulus chooser.
func TestChooserMathGeneric(t *testing.T) {
	g := NewGroup(3, "gen")
	var got []int
	for i := 0; i < 8; i++ {
		e := g.Next()
		for idx, cand := range g.All() {
			if cand == e {
				got = append(got, idx)
			}
		}
	}
	want := []int{0, 1, 2, 0, 1, 2, 0, 1}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("index %d: got %d want %d (full=%v)", i, got[i], w, got)
		}
	}
}

func TestExecuteRunsFIFO(t *testing.T) {
	e := New("fifo", 16)
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		i := i
		e.Execute(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestInEventLoopAffinity(t *testing.T) {
	e := New("affinity", 16)
	if e.InEventLoop() {
		t.Fatal("calling goroutine should not be in the loop")
	}
	done := make(chan bool, 1)
	e.Execute(func() {
		done <- e.InEventLoop()
	})
	if !<-done {
		t.Fatal("task running on the worker should observe InEventLoop() true")
	}
}

// TestGroupShutdownGracefullyTerminatesWithinTimeout is spec.md §8
// invariant 6: after ShutdownGracefully(q, t), TerminationFuture completes
// within t + epsilon.
func TestGroupShutdownGracefullyTerminatesWithinTimeout(t *testing.T) {
	g := NewGroup(2, "shutdown")
	start := time.Now()
	fut := g.ShutdownGracefully(10*time.Millisecond, 200*time.Millisecond)
	if !fut.Await(500 * time.Millisecond) {
		t.Fatal("termination future did not complete in time")
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("shutdown took too long: %v", elapsed)
	}
}
