// File: reactor/fake_selector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FakeSelector is a pure-Go, in-memory Selector used by tests that need a
// reactor without real sockets or a Linux host, grounded on the pack's
// fake-transport test doubles.
package reactor

import (
	"sync"
	"time"
)

type FakeSelector struct {
	mu      sync.Mutex
	keys    map[uintptr]*SelectionKey
	pending []ReadyEvent
	wake    chan struct{}
}

func NewFakeSelector() *FakeSelector {
	return &FakeSelector{
		keys: make(map[uintptr]*SelectionKey),
		wake: make(chan struct{}, 1),
	}
}

func (s *FakeSelector) Register(fd uintptr, interest Interest, attachment any) (*SelectionKey, error) {
	key := &SelectionKey{FD: fd, Interest: interest, Attachment: attachment}
	s.mu.Lock()
	s.keys[fd] = key
	s.mu.Unlock()
	return key, nil
}

func (s *FakeSelector) Modify(key *SelectionKey, interest Interest) error {
	key.Interest = interest
	return nil
}

func (s *FakeSelector) Cancel(key *SelectionKey) error {
	key.cancelled = true
	s.mu.Lock()
	delete(s.keys, key.FD)
	s.mu.Unlock()
	return nil
}

// Fire injects a readiness event for test scenarios to drive, as if the OS
// had reported it.
func (s *FakeSelector) Fire(fd uintptr, ready Interest) {
	s.mu.Lock()
	key, ok := s.keys[fd]
	if ok && !key.cancelled {
		s.pending = append(s.pending, ReadyEvent{FD: fd, Ready: ready, Attachment: key.Attachment})
	}
	s.mu.Unlock()
	s.Wakeup()
}

func (s *FakeSelector) drain(out []ReadyEvent) []ReadyEvent {
	s.mu.Lock()
	out = append(out, s.pending...)
	s.pending = nil
	s.mu.Unlock()
	return out
}

func (s *FakeSelector) Select(timeout time.Duration, out []ReadyEvent) ([]ReadyEvent, error) {
	out = s.drain(out)
	if len(out) > 0 || timeout == 0 {
		return out, nil
	}
	select {
	case <-s.wake:
	case <-time.After(timeout):
	}
	return s.drain(out), nil
}

func (s *FakeSelector) SelectNow(out []ReadyEvent) ([]ReadyEvent, error) {
	return s.drain(out), nil
}

func (s *FakeSelector) Wakeup() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *FakeSelector) Close() error { return nil }

var _ Selector = (*FakeSelector)(nil)
