package shared

import "fmt"

// StatusCode is the decision the coordinator sends to every worker after a stage
type StatusCode int64

const (
	StatusContinue StatusCode = iota
	StatusAbort
)

func (s StatusCode) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusAbort:
		return "abort"
	}
	return fmt.Sprintf("status(%d)", int64(s))
}

// Role is fixed for the lifetime of a process
type Role int

const (
	RoleCoordinator Role = iota
	RoleWorker
)

func (r Role) String() string {
	if r == RoleCoordinator {
		return "coordinator"
	}
	return "worker"
}

// RoleOf returns the role statically assigned to rank
func RoleOf(rank int) Role {
	if rank == CoordinatorRank {
		return RoleCoordinator
	}
	return RoleWorker
}

// Message tags. Status uses tag 0 so it never collides with matrix traffic.
const (
	TagStatus = iota
	TagBlockA
	TagMatrixB
	TagPartial
)

// Envelope is a single point-to-point message on the wire
type Envelope struct {
	Source  int
	Dest    int
	Tag     int
	Payload []int64
}

// Ack is returned once the receiver has taken an envelope
type Ack struct {
	Received bool
}
