package engine

import (
	"log"

	"distributed-matmul/comm"
	"distributed-matmul/shared"
)

// Worker receives its block, computes, returns the partial product and
// obeys status codes. It holds no report or reference state.
type Worker struct {
	comm   comm.Comm
	status StatusBroadcaster
	log    *log.Logger
}

func newWorker(c comm.Comm, logger *log.Logger) *Worker {
	return &Worker{comm: c, status: NewStatusBroadcaster(c), log: logger}
}

func (w *Worker) run() error {
	// The first status tells whether the coordinator could open its report.
	if err := w.await("startup"); err != nil {
		return err
	}

	block, b, err := ReceiveInputs(w.comm)
	if err != nil {
		w.log.Printf("Distribution failed: %v", err)
		return err
	}
	partial, err := ComputeBlock(block, b)
	if err != nil {
		w.log.Printf("Compute failed: %v", err)
		return err
	}
	if err := SendPartial(w.comm, partial); err != nil {
		w.log.Printf("%v", err)
		return err
	}
	w.log.Printf("Sent %dx%d partial product", partial.Rows(), partial.Cols())

	return w.await("1D")
}

func (w *Worker) await(stage string) error {
	code, err := w.status.AwaitStatus()
	if err != nil {
		w.log.Printf("%v", err)
		return err
	}
	if code != shared.StatusContinue {
		w.log.Printf("Coordinator aborted the run after %s", stage)
		return ErrAborted
	}
	return nil
}
