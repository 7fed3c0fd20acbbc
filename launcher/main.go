// Command launcher starts a coordinator and its workers together. Without
// -config it writes a cluster file for np ranks on localhost and runs the
// binaries found in -bin. With a cluster file that lists Hosts, ranks are
// started over SSH; the binaries and the cluster file must already be in
// each host's Workdir.
//
//	launcher [-np 4] [-transport rpc] [-bin dir] [-config cluster.json] [-- coordinator/worker args]
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"distributed-matmul/comm"
	"distributed-matmul/configs"
	"distributed-matmul/launch"
	"distributed-matmul/node"
)

func main() {
	np := flag.Int("np", node.DefaultProcs, "number of processes")
	transport := flag.String("transport", comm.TransportRPC, "rpc or grpc")
	basePort := flag.Int("port", configs.DefaultBasePort(), "port of rank 0; rank r listens on port+r")
	binDir := flag.String("bin", "", "directory holding the coordinator and worker binaries (default: next to the launcher)")
	configPath := flag.String("config", "", "existing cluster file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if *configPath != "" {
		err = runConfigured(ctx, *configPath, *binDir, flag.Args())
	} else {
		err = runLocal(ctx, *np, *basePort, *transport, *binDir, flag.Args())
	}
	if err != nil {
		log.Printf("%v", err)
		var exitErr *launch.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code())
		}
		os.Exit(1)
	}
}

func runLocal(ctx context.Context, np, basePort int, transport, binDir string, extra []string) error {
	cfg := configs.LocalConfig(np, basePort, transport)
	f, err := os.CreateTemp("", "cluster-*.json")
	if err != nil {
		return err
	}
	f.Close()
	defer os.Remove(f.Name())
	if err := configs.WriteConfig(f.Name(), cfg); err != nil {
		return err
	}

	dir, err := binaries(binDir)
	if err != nil {
		return err
	}
	log.Printf("Starting %d processes over %s", np, transport)
	return launch.RunLocal(ctx, launch.Plan(dir, f.Name(), np, extra), os.Stdout, os.Stderr)
}

func runConfigured(ctx context.Context, path, binDir string, extra []string) error {
	cfg, err := configs.ReadConfig(path)
	if err != nil {
		return err
	}
	np := len(cfg.Peers)
	if len(cfg.Hosts) == 0 {
		dir, err := binaries(binDir)
		if err != nil {
			return err
		}
		log.Printf("Starting %d processes over %s", np, cfg.Transport)
		return launch.RunLocal(ctx, launch.Plan(dir, path, np, extra), os.Stdout, os.Stderr)
	}
	// remote commands run from Workdir, next to their copy of the file
	log.Printf("Starting %d processes on %d hosts over %s", np, len(cfg.Hosts), cfg.Transport)
	procs := launch.Plan("", filepath.Base(path), np, extra)
	return launch.RunRemote(ctx, cfg, procs, os.Stdout, os.Stderr)
}

func binaries(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}
