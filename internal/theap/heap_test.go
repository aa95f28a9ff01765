package theap

import (
	"reflect"
	"sort"
	"testing"
)

type item struct {
	pos int
	v   int
}

func (it *item) Less(other *item) bool { return it.v < other.v }
func (it *item) Pos() int              { return it.pos }
func (it *item) SetPos(p int)          { it.pos = p }

func makeHeap(xs ...int) *Heap[*item] {
	var h Heap[*item]
	for _, x := range xs {
		h.Push(&item{v: x})
	}
	return &h
}

func values(h *Heap[*item]) []int {
	ret := make([]int, 0, h.Size())
	for !h.IsEmpty() {
		ret = append(ret, h.Pop().v)
	}
	return ret
}

func TestHeapPopIsSorted(t *testing.T) {
	for _, test := range []struct {
		name string
		in   []int
	}{
		{name: "empty-ish single", in: []int{3}},
		{name: "already sorted", in: []int{1, 2, 3}},
		{name: "unsorted", in: []int{4, 2, 3, 1, 5}},
		{name: "duplicates", in: []int{3, 1, 3, 1, 2}},
	} {
		t.Run(test.name, func(t *testing.T) {
			h := makeHeap(test.in...)
			act := values(h)

			exp := append([]int{}, test.in...)
			sort.Ints(exp)

			if !reflect.DeepEqual(act, exp) {
				t.Fatalf("heapsort failed: %v; want %v", act, exp)
			}
		})
	}
}

func TestHeapPosInvariant(t *testing.T) {
	h := makeHeap(5, 1, 4, 2, 3)
	for i, x := range h.data {
		if x.pos != i {
			t.Fatalf("item at %d has stale pos %d", i, x.pos)
		}
	}
}

func TestHeapRemoveMiddle(t *testing.T) {
	var h Heap[*item]
	items := make([]*item, 5)
	for i, v := range []int{5, 1, 4, 2, 3} {
		items[i] = &item{v: v}
		h.Push(items[i])
	}

	// Remove the item holding value 4, wherever the heap has moved it.
	var target *item
	for _, it := range items {
		if it.v == 4 {
			target = it
		}
	}
	if !h.Remove(target) {
		t.Fatal("Remove reported item not found")
	}
	if target.Pos() != -1 {
		t.Fatalf("Remove did not reset Pos: %d", target.Pos())
	}

	act := values(&h)
	exp := []int{1, 2, 3, 5}
	if !reflect.DeepEqual(act, exp) {
		t.Fatalf("unexpected remaining order: %v; want %v", act, exp)
	}
}

func TestHeapRemoveAlreadyPopped(t *testing.T) {
	var h Heap[*item]
	a := &item{v: 1}
	h.Push(a)
	h.Pop()

	if h.Remove(a) {
		t.Fatal("Remove reported success for an item no longer in the heap")
	}
}

func TestHeapReserveIsFull(t *testing.T) {
	var h Heap[*item]
	h.Reserve(2)
	if h.IsFull() {
		t.Fatal("freshly reserved heap reports full")
	}
	h.Push(&item{v: 1})
	h.Push(&item{v: 2})
	if !h.IsFull() {
		t.Fatal("heap at reserved capacity does not report full")
	}
}
