// Package launch starts the fixed process set of a run: one coordinator and
// np-1 workers, either as child processes on this machine or over SSH on
// the hosts of a cluster file.
package launch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"distributed-matmul/shared"
)

const (
	CoordinatorBinary = "coordinator"
	WorkerBinary      = "worker"
)

// Process is one rank's command
type Process struct {
	Rank   int
	Binary string
	Args   []string
	Env    []string // KEY=VALUE pairs added to the inherited environment
}

// Plan builds the commands for np ranks reading configPath. extra is
// appended to every command line, so positional dimensions go last.
func Plan(binDir, configPath string, np int, extra []string) []Process {
	procs := make([]Process, 0, np)
	for r := 0; r < np; r++ {
		p := Process{Rank: r, Args: []string{"-config", configPath}}
		if shared.RoleOf(r) == shared.RoleCoordinator {
			p.Binary = binaryPath(binDir, CoordinatorBinary)
		} else {
			p.Binary = binaryPath(binDir, WorkerBinary)
			p.Args = append(p.Args, "-rank", strconv.Itoa(r))
		}
		p.Args = append(p.Args, extra...)
		procs = append(procs, p)
	}
	return procs
}

// binaryPath keeps a bare name from being looked up in PATH.
func binaryPath(dir, name string) string {
	p := filepath.Join(dir, name)
	if !strings.ContainsRune(p, filepath.Separator) {
		p = "." + string(filepath.Separator) + p
	}
	return p
}

// CommandLine renders p for a POSIX shell.
func (p Process) CommandLine() string {
	words := make([]string, 0, len(p.Env)+1+len(p.Args))
	for _, kv := range p.Env {
		words = append(words, shellQuote(kv))
	}
	words = append(words, shellQuote(p.Binary))
	for _, a := range p.Args {
		words = append(words, shellQuote(a))
	}
	return strings.Join(words, " ")
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./:=,+@%-]+$`)

func shellQuote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ExitError reports the ranks that did not exit cleanly.
type ExitError struct {
	Codes []int // indexed by rank
}

func (e *ExitError) Error() string {
	var failed []string
	for r, c := range e.Codes {
		if c != 0 {
			failed = append(failed, fmt.Sprintf("rank %d exited %d", r, c))
		}
	}
	return strings.Join(failed, ", ")
}

// Code is the status the launcher itself should exit with.
func (e *ExitError) Code() int {
	for _, c := range e.Codes {
		if c != 0 {
			return 1
		}
	}
	return 0
}

func collect(codes []int) error {
	for _, c := range codes {
		if c != 0 {
			return &ExitError{Codes: codes}
		}
	}
	return nil
}
