package node

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"distributed-matmul/comm"
	"distributed-matmul/configs"
	"distributed-matmul/engine"
	"distributed-matmul/shared"
)

func TestParseDims(t *testing.T) {
	cases := []struct {
		args []string
		want engine.Dims
		ok   bool
	}{
		{nil, engine.Dims{M: 16, N: 16, Q: 16}, true},
		{[]string{"8", "4", "12"}, engine.Dims{M: 8, N: 4, Q: 12}, true},
		{[]string{"8", "4"}, engine.Dims{}, false},
		{[]string{"8", "4", "12", "1"}, engine.Dims{}, false},
		{[]string{"8", "0", "12"}, engine.Dims{}, false},
		{[]string{"8", "-4", "12"}, engine.Dims{}, false},
		{[]string{"eight", "4", "12"}, engine.Dims{}, false},
	}
	for _, c := range cases {
		got, err := ParseDims(c.args)
		if (err == nil) != c.ok {
			t.Errorf("ParseDims(%v) error = %v", c.args, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseDims(%v) = %+v, want %+v", c.args, got, c.want)
		}
	}
}

func TestBindDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := Bind(fs)
	if err := fs.Parse([]string{"-seed", "7", "-transport", "grpc", "4", "4", "4"}); err != nil {
		t.Fatal(err)
	}
	if f.Seed != 7 || f.Transport != "grpc" || f.Report != shared.ReportFile || f.NP != DefaultProcs {
		t.Errorf("flags = %+v", f)
	}
	if got := strings.Join(fs.Args(), " "); got != "4 4 4" {
		t.Errorf("positional args = %q", got)
	}
}

func TestClusterOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.json")
	if err := configs.WriteConfig(path, configs.LocalConfig(2, 5000, comm.TransportRPC)); err != nil {
		t.Fatal(err)
	}

	f := &Flags{Config: path, Transport: comm.TransportGRPC, Cert: "c.pem", Key: "k.pem"}
	cfg, err := f.cluster()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transport != comm.TransportGRPC || cfg.CertFile != "c.pem" || len(cfg.Peers) != 2 {
		t.Errorf("cluster = %+v", cfg)
	}

	cfg, err = (&Flags{NP: 3}).cluster()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transport != comm.TransportLocal || len(cfg.Peers) != 3 {
		t.Errorf("default cluster = %+v", cfg)
	}
}

func TestWorkerNeedsRank(t *testing.T) {
	f := &Flags{Rank: -1}
	if _, err := f.open(shared.RoleWorker, configs.LocalConfig(2, 0, comm.TransportRPC)); err == nil {
		t.Error("expected an error for a worker without -rank")
	}
}

func TestMainLocalTransport(t *testing.T) {
	report := filepath.Join(t.TempDir(), shared.ReportFile)
	code := Main(shared.RoleCoordinator, []string{"-np", "2", "-report", report, "8", "8", "8"})
	if code != 0 {
		t.Fatalf("Main exited %d", code)
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "m") || strings.Contains(string(b), shared.ErrorMarker) {
		t.Errorf("unexpected report:\n%s", b)
	}
}

func TestMainExitCodes(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		role shared.Role
		args []string
		want int
	}{
		{"indivisible dims", shared.RoleCoordinator, []string{"-np", "3", "-report", filepath.Join(dir, "a.txt"), "8", "8", "8"}, 1},
		{"two dims", shared.RoleCoordinator, []string{"8", "8"}, 1},
		{"worker on local transport", shared.RoleWorker, []string{"-rank", "1"}, 1},
		{"unknown flag", shared.RoleCoordinator, []string{"-bogus"}, 1},
		{"missing cluster file", shared.RoleCoordinator, []string{"-config", filepath.Join(dir, "none.json")}, 1},
	}
	for _, c := range cases {
		if got := Main(c.role, c.args); got != c.want {
			t.Errorf("%s: Main = %d, want %d", c.name, got, c.want)
		}
	}
}
