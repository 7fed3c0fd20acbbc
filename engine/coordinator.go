package engine

import (
	"errors"
	"log"
	"time"

	"distributed-matmul/comm"
	"distributed-matmul/matrix"
	"distributed-matmul/report"
	"distributed-matmul/shared"
)

const variant1D = "1D"

// Coordinator owns everything workers must never see: the inputs, the
// sequential reference, the report and the timing records.
type Coordinator struct {
	comm    comm.Comm
	status  StatusBroadcaster
	opts    Options
	log     *log.Logger
	report  *report.Report
	timings *report.Timings

	a, b      matrix.Matrix
	reference matrix.Matrix

	// first report write error, surfaced at the next status round
	writeErr error
}

func newCoordinator(c comm.Comm, opts Options) *Coordinator {
	return &Coordinator{
		comm:    c,
		status:  NewStatusBroadcaster(c),
		opts:    opts,
		log:     opts.Logger,
		timings: report.NewTimings(),
	}
}

func (co *Coordinator) run() error {
	rep, err := report.Open(co.opts.ReportPath)
	if err != nil {
		return co.abort(ResourceError{Path: co.opts.ReportPath, Err: err})
	}
	co.report = rep
	defer func() {
		if err := rep.Close(); err != nil {
			co.log.Printf("Error closing report: %v", err)
		}
	}()
	if err := co.status.BroadcastStatus(shared.StatusContinue); err != nil {
		co.log.Printf("%v", err)
		return err
	}

	d, p := co.opts.Dims, co.comm.Size()
	co.write(rep.WriteHeader())
	co.write(rep.WriteDims(d.M, d.N, d.Q, p))

	seedA, seedB := inputSeeds(co.opts.Seed)
	co.a = matrix.Random(d.M, d.N, seedA)
	co.b = matrix.Random(d.N, d.Q, seedB)

	if err := co.sequential(); err != nil {
		return err
	}
	return co.rowBlock(p)
}

// seedSpread separates B's generator from A's. Rows are seeded with
// seed+row, so nearby seeds would make B a row-shifted copy of A.
const seedSpread = 0x9e3779b9

func inputSeeds(seed int64) (a, b int64) {
	return seed, seed ^ seedSpread
}

// sequential computes the reference product once; every distributed
// variant is compared against it.
func (co *Coordinator) sequential() error {
	start := time.Now()
	ref, err := matrix.Multiply(co.a, co.b)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}
	co.reference = ref
	co.record(report.StageSequential, elapsed)
	co.log.Printf("Sequential product took %v", elapsed)
	return nil
}

// rowBlock runs the 1D variant: distribute, compute rank 0's block,
// gather, verify, then tell every worker whether to continue.
func (co *Coordinator) rowBlock(p int) error {
	start := time.Now()
	own, err := Distribute(co.comm, co.a, co.b)
	if err != nil {
		co.log.Printf("%v", err)
		return err
	}
	partial, err := ComputeBlock(own, co.b)
	if err != nil {
		co.log.Printf("%v", err)
		return err
	}
	product, err := Gather(co.comm, partial, co.opts.Dims.M)
	if err != nil {
		co.log.Printf("%v", err)
		return err
	}
	elapsed := time.Since(start)

	if co.opts.BeforeVerify != nil {
		product = co.opts.BeforeVerify(product)
	}
	if code, verr := Verify(variant1D, co.reference, product); code == shared.StatusAbort {
		co.write(co.report.WriteMarker(shared.ErrorMarker))
		co.write(co.report.EndRow())
		return co.abort(verr)
	}

	co.record(report.Stage1D, elapsed)
	if seq, ok := co.timings.Get(report.StageSequential); ok && elapsed > 0 {
		co.log.Printf("1D product on %d processes took %v, speedup %.3f", p, elapsed, seq.Seconds()/elapsed.Seconds())
	}
	return co.finalize(product)
}

// finalize completes the row and flushes it before the last status round,
// so a failing write still aborts every rank.
func (co *Coordinator) finalize(product matrix.Matrix) error {
	// No 2D decomposition exists; its column is marked, never timed.
	co.write(co.report.WriteMarker(shared.UnimplementedMarker))
	co.write(co.report.EndRow())
	if co.writeErr != nil {
		return co.abort(ResourceError{Path: co.report.Path(), Err: co.writeErr})
	}

	if co.opts.DumpPath != "" {
		err := report.DumpMatrices(co.opts.DumpPath,
			report.Named{Name: "A", Matrix: co.a},
			report.Named{Name: "B", Matrix: co.b},
			report.Named{Name: "C", Matrix: product},
		)
		if err != nil {
			return co.abort(ResourceError{Path: co.opts.DumpPath, Err: err})
		}
	}

	if err := co.status.BroadcastStatus(shared.StatusContinue); err != nil {
		co.log.Printf("%v", err)
		return err
	}
	co.log.Printf("Report written to %s", co.report.Path())
	return nil
}

func (co *Coordinator) record(stage string, d time.Duration) {
	if err := co.timings.Record(stage, d); err != nil {
		co.write(err)
		return
	}
	co.write(co.report.WriteSeconds(d))
}

func (co *Coordinator) write(err error) {
	if err != nil && co.writeErr == nil {
		co.writeErr = err
	}
}

// abort tells every worker to stop and returns cause.
func (co *Coordinator) abort(cause error) error {
	co.log.Printf("%v", cause)
	if err := co.status.BroadcastStatus(shared.StatusAbort); err != nil {
		co.log.Printf("%v", err)
		return errors.Join(cause, err)
	}
	return cause
}
