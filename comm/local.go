package comm

// LocalWorld runs every rank inside one process. Payloads are copied on
// send so ranks never share a buffer.
type LocalWorld struct {
	boxes []*mailbox
}

func NewLocalWorld(size int) *LocalWorld {
	w := &LocalWorld{boxes: make([]*mailbox, size)}
	for i := range w.boxes {
		w.boxes[i] = newMailbox()
	}
	return w
}

func (w *LocalWorld) Size() int { return len(w.boxes) }

// Comm returns the endpoint for rank.
func (w *LocalWorld) Comm(rank int) *LocalComm {
	return &LocalComm{world: w, rank: rank}
}

// Close releases every rank still blocked in Send or Recv.
func (w *LocalWorld) Close() {
	for _, b := range w.boxes {
		b.close()
	}
}

type LocalComm struct {
	world *LocalWorld
	rank  int
}

func (c *LocalComm) Rank() int { return c.rank }
func (c *LocalComm) Size() int { return len(c.world.boxes) }

func (c *LocalComm) Send(dest, tag int, payload []int64) error {
	if err := checkRank(dest, c.Size()); err != nil {
		return err
	}
	cp := make([]int64, len(payload))
	copy(cp, payload)
	return c.world.boxes[dest].deliver(c.rank, tag, cp)
}

func (c *LocalComm) Recv(src, tag int) ([]int64, error) {
	if err := checkRank(src, c.Size()); err != nil {
		return nil, err
	}
	return c.world.boxes[c.rank].take(src, tag)
}

// Close closes this rank's mailbox only; peers sending to it get ErrClosed.
func (c *LocalComm) Close() error {
	c.world.boxes[c.rank].close()
	return nil
}
