package feed

// sinkQueueSize is how many snapshots a slow handler may fall behind before
// the oldest queued one is dropped.
const sinkQueueSize = 4

type sink struct {
	id     int
	handle Handler
	queue  chan *Snapshot
}

func newSink(id int, h Handler) *sink {
	return &sink{id: id, handle: h, queue: make(chan *Snapshot, sinkQueueSize)}
}

// offer queues snap without blocking, evicting the oldest queued snapshot
// when the queue is full. It reports whether anything was dropped.
func (s *sink) offer(snap *Snapshot) (dropped bool) {
	for {
		select {
		case s.queue <- snap:
			return dropped
		default:
		}
		select {
		case <-s.queue:
			dropped = true
		default:
		}
	}
}
