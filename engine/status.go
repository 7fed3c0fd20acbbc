package engine

import (
	"fmt"

	"distributed-matmul/comm"
	"distributed-matmul/shared"
)

// StatusBroadcaster makes one status code visible to every participant
// before any of them proceeds.
type StatusBroadcaster interface {
	// BroadcastStatus is called by the coordinator only.
	BroadcastStatus(code shared.StatusCode) error
	// AwaitStatus blocks a worker until the coordinator's code arrives.
	AwaitStatus() (shared.StatusCode, error)
}

// commBroadcaster messages each worker individually. Sends are
// rendezvous, so by the time BroadcastStatus returns every worker holds
// the code.
type commBroadcaster struct {
	c comm.Comm
}

func NewStatusBroadcaster(c comm.Comm) StatusBroadcaster {
	return &commBroadcaster{c: c}
}

func (b *commBroadcaster) BroadcastStatus(code shared.StatusCode) error {
	for r := 0; r < b.c.Size(); r++ {
		if r == shared.CoordinatorRank {
			continue
		}
		if err := b.c.Send(r, shared.TagStatus, []int64{int64(code)}); err != nil {
			return fmt.Errorf("send status to rank %d: %w", r, err)
		}
	}
	return nil
}

func (b *commBroadcaster) AwaitStatus() (shared.StatusCode, error) {
	raw, err := b.c.Recv(shared.CoordinatorRank, shared.TagStatus)
	if err != nil {
		return shared.StatusAbort, fmt.Errorf("receive status: %w", err)
	}
	if len(raw) != 1 {
		return shared.StatusAbort, fmt.Errorf("status message has %d values", len(raw))
	}
	return shared.StatusCode(raw[0]), nil
}
