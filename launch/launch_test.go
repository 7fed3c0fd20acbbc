package launch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"distributed-matmul/configs"
)

func TestPlan(t *testing.T) {
	procs := Plan("bin", "cluster.json", 3, []string{"8", "8", "8"})
	if len(procs) != 3 {
		t.Fatalf("got %d processes", len(procs))
	}
	want := []string{
		filepath.Join("bin", "coordinator") + " -config cluster.json 8 8 8",
		filepath.Join("bin", "worker") + " -config cluster.json -rank 1 8 8 8",
		filepath.Join("bin", "worker") + " -config cluster.json -rank 2 8 8 8",
	}
	for i, p := range procs {
		if p.Rank != i {
			t.Errorf("process %d has rank %d", i, p.Rank)
		}
		if got := p.CommandLine(); got != want[i] {
			t.Errorf("rank %d: %q, want %q", i, got, want[i])
		}
	}
}

func TestPlanKeepsBareNamesOutOfPath(t *testing.T) {
	procs := Plan("", "c.json", 1, nil)
	if want := "." + string(filepath.Separator) + "coordinator"; procs[0].Binary != want {
		t.Errorf("Binary = %q, want %q", procs[0].Binary, want)
	}
}

func TestCommandLineQuoting(t *testing.T) {
	p := Process{
		Binary: "/opt/bench dir/worker",
		Args:   []string{"-report", "it's.txt", "-rank", "1"},
		Env:    []string{"GOMAXPROCS=2"},
	}
	want := `GOMAXPROCS=2 '/opt/bench dir/worker' -report 'it'\''s.txt' -rank 1`
	if got := p.CommandLine(); got != want {
		t.Errorf("CommandLine() = %q, want %q", got, want)
	}
}

func TestRemoteCommand(t *testing.T) {
	p := Process{Binary: "./worker", Args: []string{"-rank", "2"}}
	got := remoteCommand(configs.HostConfig{Workdir: "/srv/matmul"}, p)
	if got != "cd /srv/matmul && ./worker -rank 2" {
		t.Errorf("remoteCommand = %q", got)
	}
	if got := remoteCommand(configs.HostConfig{}, p); got != "./worker -rank 2" {
		t.Errorf("remoteCommand without workdir = %q", got)
	}
}

func TestRunRemoteNeedsHosts(t *testing.T) {
	if err := RunRemote(context.Background(), configs.Config{}, nil, nil, nil); err == nil {
		t.Error("expected an error without hosts")
	}
}

func TestPlacementFollowsPeerAddresses(t *testing.T) {
	cfg := configs.Config{
		Peers: []configs.PeerConfig{
			{Rank: 0, Address: "10.0.0.1:1234"},
			{Rank: 1, Address: "10.0.0.2:1235"},
			{Rank: 2, Address: "10.0.0.1:1236"},
			{Rank: 3, Address: "10.0.0.3:1237"},
		},
		// deliberately not in rank order
		Hosts: []configs.HostConfig{{Address: "10.0.0.3"}, {Address: "10.0.0.1"}, {Address: "10.0.0.2"}},
	}
	got, err := Placement(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 1, 0}
	for r := range want {
		if got[r] != want[r] {
			t.Errorf("rank %d placed on host %d, want %d", r, got[r], want[r])
		}
	}
}

func TestPlacementRejectsUnlistedHost(t *testing.T) {
	cases := []struct {
		name string
		cfg  configs.Config
	}{
		{"no hosts", configs.Config{Peers: []configs.PeerConfig{{Rank: 0, Address: "10.0.0.1:1234"}}}},
		{"peer host missing", configs.Config{
			Peers: []configs.PeerConfig{{Rank: 0, Address: "10.0.0.1:1234"}, {Rank: 1, Address: "10.0.0.9:1235"}},
			Hosts: []configs.HostConfig{{Address: "10.0.0.1"}},
		}},
		{"address without port", configs.Config{
			Peers: []configs.PeerConfig{{Rank: 0, Address: "10.0.0.1"}},
			Hosts: []configs.HostConfig{{Address: "10.0.0.1"}},
		}},
	}
	for _, c := range cases {
		if _, err := Placement(c.cfg); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

// helper runs this test binary as a child that prints its rank and exits
// with the given code.
func helper(rank, code int) Process {
	return Process{
		Rank:   rank,
		Binary: os.Args[0],
		Args:   []string{"-test.run=TestHelperProcess", "--", strconv.Itoa(rank), strconv.Itoa(code)},
		Env:    []string{"LAUNCH_WANT_HELPER_PROCESS=1"},
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("LAUNCH_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	rank, _ := strconv.Atoi(args[1])
	if args[2] == "sleep" {
		time.Sleep(time.Minute)
	}
	code, _ := strconv.Atoi(args[2])
	fmt.Printf("rank %d done\n", rank)
	os.Exit(code)
}

func TestRunLocalSucceeds(t *testing.T) {
	var stdout, stderr bytes.Buffer
	procs := []Process{helper(0, 0), helper(1, 0), helper(2, 0)}
	if err := RunLocal(context.Background(), procs, &stdout, &stderr); err != nil {
		t.Fatalf("RunLocal: %v (stderr %s)", err, stderr.String())
	}
	for r := 0; r < 3; r++ {
		if !strings.Contains(stdout.String(), fmt.Sprintf("rank %d done", r)) {
			t.Errorf("missing output of rank %d in %q", r, stdout.String())
		}
	}
}

func TestRunLocalReportsEveryExitCode(t *testing.T) {
	var out bytes.Buffer
	procs := []Process{helper(0, 1), helper(1, 0), helper(2, 1)}
	err := RunLocal(context.Background(), procs, &out, &out)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	want := []int{1, 0, 1}
	for r, c := range exitErr.Codes {
		if c != want[r] {
			t.Errorf("rank %d code %d, want %d", r, c, want[r])
		}
	}
	if exitErr.Code() != 1 {
		t.Errorf("Code() = %d", exitErr.Code())
	}
	if msg := exitErr.Error(); msg != "rank 0 exited 1, rank 2 exited 1" {
		t.Errorf("Error() = %q", msg)
	}
}

// sleeper is a helper that blocks far longer than any test should take.
func sleeper(rank int) Process {
	p := helper(rank, 0)
	p.Args[len(p.Args)-1] = "sleep"
	return p
}

func TestRunLocalFailureStopsEveryRank(t *testing.T) {
	var out bytes.Buffer
	procs := []Process{helper(0, 1), sleeper(1), sleeper(2)}

	start := time.Now()
	errc := make(chan error, 1)
	go func() { errc <- RunLocal(context.Background(), procs, &out, &out) }()

	var err error
	select {
	case err = <-errc:
	case <-time.After(30 * time.Second):
		t.Fatal("RunLocal kept the other ranks alive after rank 0 failed")
	}
	if elapsed := time.Since(start); elapsed > 20*time.Second {
		t.Errorf("RunLocal returned after %v", elapsed)
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	for r, c := range exitErr.Codes {
		if c == 0 {
			t.Errorf("rank %d reported success after being killed", r)
		}
	}
}

func TestRunLocalMissingBinary(t *testing.T) {
	var out bytes.Buffer
	procs := []Process{helper(0, 0), {Rank: 1, Binary: filepath.Join(t.TempDir(), "absent")}}
	err := RunLocal(context.Background(), procs, &out, &out)
	if err == nil || !strings.Contains(err.Error(), "start rank 1") {
		t.Errorf("expected start failure for rank 1, got %v", err)
	}
}
