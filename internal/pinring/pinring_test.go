package pinring

import "testing"

func TestDropOldestPerKeyPreservesOrder(t *testing.T) {
	r := New[uint8, int](2)
	r.Push(4, 1)
	r.Push(4, 2)
	r.Push(4, 3) // drops 1, keeps [2,3]

	if d := r.Drops(4); d != 1 {
		t.Fatalf("drops = %d, want 1", d)
	}
	v, ok := r.Pop()
	if !ok || v != 2 {
		t.Fatalf("Pop() = %v,%v want 2,true", v, ok)
	}
	v, ok = r.Pop()
	if !ok || v != 3 {
		t.Fatalf("Pop() = %v,%v want 3,true", v, ok)
	}
}

func TestRoundRobinAcrossKeys(t *testing.T) {
	r := New[uint8, int](4)
	r.Push(1, 10)
	r.Push(2, 20)
	r.Push(1, 11)

	var got []int
	for i := 0; i < 3; i++ {
		v, ok := r.Pop()
		if !ok {
			t.Fatalf("expected item at i=%d", i)
		}
		got = append(got, v)
	}
	if got[0] != 10 || got[1] != 20 || got[2] != 11 {
		t.Fatalf("got %v, want [10 20 11]", got)
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("expected empty ring")
	}
}

func TestPopEmpty(t *testing.T) {
	r := New[uint8, string](2)
	if _, ok := r.Pop(); ok {
		t.Fatal("expected ok=false on empty ring")
	}
}
