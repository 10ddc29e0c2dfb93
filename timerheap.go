package reactor

import (
	"fmt"
	"time"
)

type timerNode struct {
	id      uint64
	expires time.Time
	cb      func()
}

// TimerHeap is a 4-ary min-heap of deadlines keyed by id. The children of
// node i live at 4i+1 through 4i+4, and ref maps every id in the heap to
// its slot.
//
// TimerHeap is not safe for concurrent use; the reactor owns it.
type TimerHeap struct {
	heap []timerNode
	ref  map[uint64]int
	now  func() time.Time
}

// NewTimerHeap returns an empty heap reading time from now, or from
// time.Now when now is nil.
func NewTimerHeap(now func() time.Time) *TimerHeap {
	if now == nil {
		now = time.Now
	}
	return &TimerHeap{
		heap: make([]timerNode, 0, 64),
		ref:  make(map[uint64]int),
		now:  now,
	}
}

// Add schedules cb to fire timeout from now. An id already present has its
// deadline and callback replaced.
func (t *TimerHeap) Add(id uint64, timeout time.Duration, cb func()) {
	var expires = t.now().Add(timeout)
	if i, ok := t.ref[id]; ok {
		t.heap[i].expires = expires
		t.heap[i].cb = cb
		t.fix(i)
		return
	}
	var i = len(t.heap)
	t.ref[id] = i
	t.heap = append(t.heap, timerNode{id: id, expires: expires, cb: cb})
	t.siftUp(i)
}

// Adjust moves the deadline of id to timeout from now. Adjusting an id that
// is not scheduled is a programming error and panics.
func (t *TimerHeap) Adjust(id uint64, timeout time.Duration) {
	var i, ok = t.ref[id]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrTimerNotFound, id))
	}
	t.heap[i].expires = t.now().Add(timeout)
	t.fix(i)
}

// Disable removes id without firing it. It reports whether id was present.
func (t *TimerHeap) Disable(id uint64) bool {
	var i, ok = t.ref[id]
	if !ok {
		return false
	}
	t.del(i)
	return true
}

// PopExpiredAndFire fires every timer whose deadline has passed, earliest
// first. Each node leaves the heap before its callback runs, so a callback
// may freely add, adjust or disable timers, including its own id.
func (t *TimerHeap) PopExpiredAndFire() int {
	var now = t.now()
	var fired int
	for len(t.heap) > 0 {
		var node = t.heap[0]
		if node.expires.After(now) {
			break
		}
		t.del(0)
		fired++
		if node.cb != nil {
			node.cb()
		}
	}
	return fired
}

// NextExpiryMs returns the milliseconds until the earliest deadline, rounded
// up, 0 when it is already due, or -1 when the heap is empty.
func (t *TimerHeap) NextExpiryMs() int {
	if len(t.heap) == 0 {
		return -1
	}
	var d = t.heap[0].expires.Sub(t.now())
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

func (t *TimerHeap) Len() int {
	return len(t.heap)
}

func (t *TimerHeap) Contains(id uint64) bool {
	var _, ok = t.ref[id]
	return ok
}

// Clear drops every timer without firing any.
func (t *TimerHeap) Clear() {
	clear(t.heap)
	t.heap = t.heap[:0]
	clear(t.ref)
}

func (t *TimerHeap) less(i, j int) bool {
	return t.heap[i].expires.Before(t.heap[j].expires)
}

func (t *TimerHeap) swap(i, j int) {
	t.heap[i], t.heap[j] = t.heap[j], t.heap[i]
	t.ref[t.heap[i].id] = i
	t.ref[t.heap[j].id] = j
}

func (t *TimerHeap) fix(i int) {
	if !t.siftDown(i, len(t.heap)) {
		t.siftUp(i)
	}
}

func (t *TimerHeap) siftUp(i int) {
	for i > 0 {
		var parent = (i - 1) / 4
		if !t.less(i, parent) {
			break
		}
		t.swap(i, parent)
		i = parent
	}
}

// siftDown reports whether the node at index moved.
func (t *TimerHeap) siftDown(index, n int) bool {
	var i = index
	for {
		var first = 4*i + 1
		if first >= n {
			break
		}
		var last = first + 4
		if last > n {
			last = n
		}
		var min = first
		for j := first + 1; j < last; j++ {
			if t.less(j, min) {
				min = j
			}
		}
		if !t.less(min, i) {
			break
		}
		t.swap(i, min)
		i = min
	}
	return i > index
}

func (t *TimerHeap) del(i int) {
	var n = len(t.heap) - 1
	if i < n {
		t.swap(i, n)
		if !t.siftDown(i, n) {
			t.siftUp(i)
		}
	}
	delete(t.ref, t.heap[n].id)
	t.heap[n] = timerNode{}
	t.heap = t.heap[:n]
}
