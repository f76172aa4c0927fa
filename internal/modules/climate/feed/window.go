package feed

import (
	"github.com/gammazero/deque"

	"climate-tracker/internal/modules/climate/types"
)

// Window is a bounded FIFO of readings. It is not safe for concurrent use;
// Feed owns it and only hands out copies.
type Window struct {
	buf      deque.Deque[types.Reading]
	capacity int
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{capacity: capacity}
}

// Push appends r, evicting the oldest reading once the window is full.
// It reports the evicted reading, if any.
func (w *Window) Push(r types.Reading) (evicted types.Reading, ok bool) {
	w.buf.PushBack(r)
	if w.buf.Len() > w.capacity {
		return w.buf.PopFront(), true
	}
	return types.Reading{}, false
}

func (w *Window) Len() int { return w.buf.Len() }

func (w *Window) Cap() int { return w.capacity }

// Items returns a copy of the window, oldest first.
func (w *Window) Items() []types.Reading {
	out := make([]types.Reading, w.buf.Len())
	for i := range out {
		out[i] = w.buf.At(i)
	}
	return out
}
