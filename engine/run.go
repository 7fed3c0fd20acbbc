// Package engine runs the benchmark on one rank: dimension validation,
// row-block distribution, local compute, ordered gather, verification
// against the sequential reference and the status round that keeps every
// rank in lockstep.
package engine

import (
	"io"
	"log"

	"distributed-matmul/comm"
	"distributed-matmul/matrix"
	"distributed-matmul/shared"
)

// Options configure a run. Everything except Dims and Logger is read by
// the coordinator only.
type Options struct {
	Dims       Dims
	Seed       int64
	ReportPath string
	// DumpPath, when set, receives A, B and the verified product.
	DumpPath string
	Logger   *log.Logger
	// BeforeVerify, when set, replaces the gathered product before it is
	// compared with the reference.
	BeforeVerify func(matrix.Matrix) matrix.Matrix
}

// Run executes the caller's role to completion. The returned error is
// already logged; pass it to ExitCode for the process status.
func Run(c comm.Comm, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.ReportPath == "" {
		opts.ReportPath = shared.ReportFile
	}

	if err := ValidateDims(opts.Dims, c.Size()); err != nil {
		opts.Logger.Printf("%v", err)
		return err
	}

	if shared.RoleOf(c.Rank()) == shared.RoleCoordinator {
		return newCoordinator(c, opts).run()
	}
	return newWorker(c, opts.Logger).run()
}
