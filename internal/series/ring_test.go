package series

import "testing"

func TestRing_PushEvicts(t *testing.T) {
	r := NewRing[string](2)
	if _, over := r.Push("a"); over {
		t.Error("first push should not overwrite")
	}
	r.Push("b")
	ev, over := r.Push("c")
	if !over || ev != "a" {
		t.Errorf("Push(c) evicted (%q, %v), want (a, true)", ev, over)
	}
	items := r.Items(nil)
	if len(items) != 2 || items[0] != "b" || items[1] != "c" {
		t.Errorf("Items() = %v, want [b c]", items)
	}
	if !r.Full() {
		t.Error("ring should be full")
	}
}

func TestRing_AtBounds(t *testing.T) {
	r := NewRing[int](3)
	if _, ok := r.At(0); ok {
		t.Error("At(0) on empty ring should be !ok")
	}
	if _, ok := r.Newest(); ok {
		t.Error("Newest on empty ring should be !ok")
	}
	r.Push(5)
	if v, ok := r.Oldest(); !ok || v != 5 {
		t.Errorf("Oldest() = (%d, %v), want (5, true)", v, ok)
	}
	if _, ok := r.At(1); ok {
		t.Error("At(1) with one element should be !ok")
	}
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := NewRing[int](0)
	if r.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", r.Cap())
	}
	r.Push(1)
	r.Push(2)
	if v, _ := r.Newest(); v != 2 || r.Len() != 1 {
		t.Errorf("got newest %d len %d, want 2, 1", v, r.Len())
	}
	r.Reset()
	if r.Len() != 0 {
		t.Error("Reset should empty the ring")
	}
}
