// Package comm provides blocking point-to-point messaging between a fixed
// set of ranks. Every transport has the same contract: Send returns only
// after the destination has taken the payload with a matching Recv, and
// there is no timeout. A message nobody receives blocks the sender forever.
package comm

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

var (
	// ErrClosed is returned by operations on a closed Comm
	ErrClosed = errors.New("comm: closed")
	// ErrMPIUnavailable is returned when the binary was built without MPI support
	ErrMPIUnavailable = errors.New("comm: built without mpi support (use -tags mpi)")
)

// RankError reports a rank outside [0, size)
type RankError struct {
	Rank int
	Size int
}

func (e RankError) Error() string {
	return fmt.Sprintf("comm: rank %d out of range [0, %d)", e.Rank, e.Size)
}

// Comm is one rank's endpoint.
type Comm interface {
	Rank() int
	Size() int
	Send(dest, tag int, payload []int64) error
	Recv(src, tag int) ([]int64, error)
	Close() error
}

func checkRank(rank, size int) error {
	if rank < 0 || rank >= size {
		return RankError{Rank: rank, Size: size}
	}
	return nil
}

// Transport names accepted by Open
const (
	TransportLocal = "local"
	TransportRPC   = "rpc"
	TransportGRPC  = "grpc"
	TransportMPI   = "mpi"
)

type options struct {
	certFile, keyFile string
	dialAttempts      int
	dialBackoff       time.Duration
	logger            *log.Logger
}

// Option configures a network transport.
type Option func(*options)

// WithTLS serves and dials with the given certificate. The certificate is
// also the trust root, so every rank must share it.
func WithTLS(certFile, keyFile string) Option {
	return func(o *options) {
		o.certFile, o.keyFile = certFile, keyFile
	}
}

// WithDialRetry bounds how often a peer is dialled before Send gives up.
func WithDialRetry(attempts int, backoff time.Duration) Option {
	return func(o *options) {
		o.dialAttempts, o.dialBackoff = attempts, backoff
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{dialAttempts: 5, dialBackoff: 2 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard, "", 0)
	}
	return o
}

// Open connects rank to the process set described by peers over the named
// network transport. The local transport cannot be opened this way because
// its ranks live in one process; use NewLocalWorld.
func Open(transport string, rank int, peers []string, opts ...Option) (Comm, error) {
	switch transport {
	case TransportRPC:
		c, err := ListenRPC(rank, peers, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	case TransportGRPC:
		c, err := ListenGRPC(rank, peers, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	case TransportMPI:
		return NewMPI()
	case TransportLocal:
		return nil, fmt.Errorf("comm: transport %q runs all ranks in one process", transport)
	}
	return nil, fmt.Errorf("comm: unknown transport %q", transport)
}
