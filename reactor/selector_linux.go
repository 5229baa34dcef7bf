//go:build linux

// File: reactor/selector_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll backend for the Selector contract, generalized from the
// pack's epoll reactor: epoll_create1, EPOLL_CTL_ADD/MOD/DEL, epoll_wait.
package reactor

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

type epollSelector struct {
	epfd int

	mu   sync.Mutex
	keys map[int]*SelectionKey

	wakeR int
	wakeW int
}

// NewEpollSelector opens a fresh epoll instance and arms a self-pipe-style
// eventfd for Wakeup.
func NewEpollSelector() (Selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	s := &epollSelector{
		epfd:  epfd,
		keys:  make(map[int]*SelectionKey),
		wakeR: efd,
		wakeW: efd,
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, efd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(efd)}); err != nil {
		unix.Close(epfd)
		unix.Close(efd)
		return nil, err
	}
	return s, nil
}

func toEpollEvents(i Interest) uint32 {
	var ev uint32
	if i&OpRead != 0 || i&OpAccept != 0 {
		ev |= unix.EPOLLIN
	}
	if i&OpWrite != 0 || i&OpConnect != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (s *epollSelector) Register(fd uintptr, interest Interest, attachment any) (*SelectionKey, error) {
	key := &SelectionKey{FD: fd, Interest: interest, Attachment: attachment}
	ev := unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev)
	if err != nil {
		// Spec.md §4.D: a stale cancelled key from a prior registration on
		// this fd is a known quirk of common selector implementations;
		// retry once after a SelectNow-equivalent no-op poll.
		var tmp [1]ReadyEvent
		_, _ = s.SelectNow(tmp[:0])
		err = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev)
		if err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	s.keys[int(fd)] = key
	s.mu.Unlock()
	return key, nil
}

func (s *epollSelector) Modify(key *SelectionKey, interest Interest) error {
	key.Interest = interest
	ev := unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(key.FD)}
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, int(key.FD), &ev)
}

func (s *epollSelector) Cancel(key *SelectionKey) error {
	key.cancelled = true
	s.mu.Lock()
	delete(s.keys, int(key.FD))
	s.mu.Unlock()
	err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, int(key.FD), nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (s *epollSelector) poll(timeoutMs int, out []ReadyEvent) ([]ReadyEvent, error) {
	var raw [256]unix.EpollEvent
	n, err := unix.EpollWait(s.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return out, nil
		}
		return out, err
	}
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == s.wakeR {
			var buf [8]byte
			_, _ = unix.Read(s.wakeR, buf[:])
			continue
		}
		s.mu.Lock()
		key, ok := s.keys[fd]
		s.mu.Unlock()
		if !ok || key.Cancelled() {
			continue // cancelled or invalid keys are skipped, spec.md §4.D
		}
		var ready Interest
		if raw[i].Events&unix.EPOLLIN != 0 {
			if key.Interest&OpAccept != 0 {
				ready |= OpAccept
			} else {
				ready |= OpRead
			}
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			if key.Interest&OpConnect != 0 {
				ready |= OpConnect
			} else {
				ready |= OpWrite
			}
		}
		if raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			ready |= OpRead | OpWrite
		}
		out = append(out, ReadyEvent{FD: uintptr(fd), Ready: ready, Attachment: key.Attachment})
	}
	return out, nil
}

func (s *epollSelector) Select(timeout time.Duration, out []ReadyEvent) ([]ReadyEvent, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	return s.poll(ms, out)
}

func (s *epollSelector) SelectNow(out []ReadyEvent) ([]ReadyEvent, error) {
	return s.poll(0, out)
}

func (s *epollSelector) Wakeup() {
	var one [8]byte
	one[0] = 1
	_, _ = unix.Write(s.wakeW, one[:])
}

func (s *epollSelector) Close() error {
	unix.Close(s.wakeR)
	return unix.Close(s.epfd)
}

var _ Selector = (*epollSelector)(nil)

// NewSelector returns the platform-default selector backend.
func NewSelector() (Selector, error) { return NewEpollSelector() }
