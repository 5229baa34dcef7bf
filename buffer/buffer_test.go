// File: buffer/buffer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package buffer

import (
	"testing"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
)

func TestRetainReleaseBalances(t *testing.T) {
	b := New([]byte("hello"))
	b.Retain()
	if b.RefCount() != 2 {
		t.Fatalf("expected refcount 2, got %d", b.RefCount())
	}
	if b.Release() {
		t.Fatal("first release should not deallocate")
	}
	if !b.Release() {
		t.Fatal("second release should deallocate")
	}
}

func TestDoubleReleasePanicsIllegalRefCount(t *testing.T) {
	b := New([]byte("x"))
	b.Release()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on double release")
		}
		if !errs.OfKind(r.(error), errs.KindIllegalRefCount) {
			t.Fatalf("expected IllegalRefCount, got %v", r)
		}
	}()
	b.Release()
}

func TestUseAfterReleasePanicsBufferReleased(t *testing.T) {
	b := New([]byte("x"))
	b.Release()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on use-after-release")
		}
		if !errs.OfKind(r.(error), errs.KindBufferReleased) {
			t.Fatalf("expected BufferReleased, got %v", r)
		}
	}()
	_ = b.Bytes()
}

func TestRetainNReleaseNCancel(t *testing.T) {
	b := New([]byte("x"))
	b.RetainN(4)
	if b.RefCount() != 5 {
		t.Fatalf("expected 5, got %d", b.RefCount())
	}
	b.ReleaseN(4)
	if b.RefCount() != 1 {
		t.Fatalf("expected refcount back to 1, got %d", b.RefCount())
	}
}

func TestSliceRetainsParent(t *testing.T) {
	b := New([]byte("hello world"))
	s := b.Slice(0, 5)
	if b.RefCount() != 2 {
		t.Fatalf("slicing should retain parent, got refcount %d", b.RefCount())
	}
	if string(s.Bytes()) != "hello" {
		t.Fatalf("unexpected slice contents: %q", s.Bytes())
	}
	s.Release()
	if b.RefCount() != 1 {
		t.Fatalf("releasing slice should release parent once, got %d", b.RefCount())
	}
}

func TestPooledDirectAllocatorRoundTrip(t *testing.T) {
	alloc := NewPooledDirect()
	if !alloc.IsDirectBufferPooled() {
		t.Fatal("expected direct pooling enabled")
	}
	b := alloc.DirectBuffer(128)
	b.WriteBytes([]byte("payload"))
	if string(b.Bytes()) != "payload" {
		t.Fatalf("unexpected bytes: %q", b.Bytes())
	}
	b.Release()

	b2 := alloc.DirectBuffer(128)
	defer b2.Release()
	if b2.Capacity() != 1024 {
		t.Fatalf("expected size-class rounding to 1024, got %d", b2.Capacity())
	}
}

func TestUnpooledAllocatorAlwaysFresh(t *testing.T) {
	var alloc api.BufferAllocator = UnpooledAllocator{}
	if alloc.IsDirectBufferPooled() {
		t.Fatal("unpooled allocator must report unpooled")
	}
	b := alloc.IOBuffer(16)
	defer b.Release()
	if b.Capacity() != 16 {
		t.Fatalf("expected exact capacity, got %d", b.Capacity())
	}
}

func TestNewDirectBufferCostAvoidance(t *testing.T) {
	unpooled := UnpooledAllocator{}
	src := New([]byte("abc"))
	out := NewDirectBuffer(unpooled, src)
	if out != src {
		t.Fatal("unpooled allocator should return the source unchanged")
	}

	pooled := NewPooledDirect()
	src2 := New([]byte("xyz"))
	out2 := NewDirectBuffer(pooled, src2)
	if out2 == src2 {
		t.Fatal("pooled direct allocator should copy into a new buffer")
	}
	if string(out2.Bytes()) != "xyz" {
		t.Fatalf("unexpected copied bytes: %q", out2.Bytes())
	}
}

func TestConcatCopiesAndReleases(t *testing.T) {
	a := New([]byte("foo"))
	b := New([]byte("bar"))
	out := Concat(a, b)
	if string(out.Bytes()) != "foobar" {
		t.Fatalf("unexpected concat result: %q", out.Bytes())
	}
	if a.RefCount() != 0 || b.RefCount() != 0 {
		t.Fatal("concat must release its inputs")
	}
}
