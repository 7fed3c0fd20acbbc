package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// killWaitDelay bounds how long Wait drains output after a child is killed.
const killWaitDelay = time.Second

// lockedWriter serialises the output of several children.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// RunLocal starts every process on this machine and waits for all of them.
// A rank that cannot start or exits non-zero takes the whole set down: the
// others are killed rather than left blocked on a peer that is gone.
func RunLocal(ctx context.Context, procs []Process, stdout, stderr io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := &lockedWriter{w: stdout}
	errOut := &lockedWriter{w: stderr}

	cmds := make([]*exec.Cmd, len(procs))
	for i, p := range procs {
		cmd := exec.CommandContext(ctx, p.Binary, p.Args...)
		cmd.Env = append(os.Environ(), p.Env...)
		cmd.Stdout = out
		cmd.Stderr = errOut
		cmd.WaitDelay = killWaitDelay
		if err := cmd.Start(); err != nil {
			cancel()
			for _, started := range cmds[:i] {
				started.Wait()
			}
			return fmt.Errorf("start rank %d: %w", p.Rank, err)
		}
		cmds[i] = cmd
	}

	codes := make([]int, len(procs))
	var wg sync.WaitGroup
	for i, cmd := range cmds {
		wg.Add(1)
		go func(i int, cmd *exec.Cmd) {
			defer wg.Done()
			code := exitCode(cmd.Wait())
			codes[procs[i].Rank] = code
			if code != 0 {
				cancel()
			}
		}(i, cmd)
	}
	wg.Wait()
	return collect(codes)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
