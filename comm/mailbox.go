package comm

import "sync"

type laneKey struct {
	src, tag int
}

// mailbox is the receive side of one rank. Each (source, tag) pair has its
// own unbuffered lane, so deliver blocks until take hands the payload over.
type mailbox struct {
	mu    sync.Mutex
	lanes map[laneKey]chan []int64
	done  chan struct{}
	once  sync.Once
}

func newMailbox() *mailbox {
	return &mailbox{
		lanes: make(map[laneKey]chan []int64),
		done:  make(chan struct{}),
	}
}

func (b *mailbox) lane(src, tag int) chan []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := laneKey{src: src, tag: tag}
	ch, ok := b.lanes[k]
	if !ok {
		ch = make(chan []int64)
		b.lanes[k] = ch
	}
	return ch
}

func (b *mailbox) deliver(src, tag int, payload []int64) error {
	select {
	case b.lane(src, tag) <- payload:
		return nil
	case <-b.done:
		return ErrClosed
	}
}

func (b *mailbox) take(src, tag int) ([]int64, error) {
	select {
	case p := <-b.lane(src, tag):
		return p, nil
	case <-b.done:
		return nil, ErrClosed
	}
}

func (b *mailbox) close() {
	b.once.Do(func() { close(b.done) })
}
