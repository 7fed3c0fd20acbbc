package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"distributed-matmul/configs"
)

const sshDialTimeout = 10 * time.Second

// Placement maps every rank to the index of the host that owns its peer
// address, so each rank starts on the machine it has to listen on.
func Placement(cfg configs.Config) ([]int, error) {
	if len(cfg.Hosts) == 0 {
		return nil, errors.New("launch: no hosts to run on")
	}
	placed := make([]int, len(cfg.Peers))
	for i := range placed {
		placed[i] = -1
	}
	for _, p := range cfg.Peers {
		host, _, err := net.SplitHostPort(p.Address)
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", p.Rank, err)
		}
		for h, hc := range cfg.Hosts {
			if hc.Address == host {
				placed[p.Rank] = h
				break
			}
		}
		if placed[p.Rank] < 0 {
			return nil, fmt.Errorf("launch: rank %d listens on %s, which is not a listed host", p.Rank, host)
		}
	}
	return placed, nil
}

// RunRemote starts each of procs on the host that owns its rank's peer
// address and waits for every remote command to finish. Binaries must
// already be in each host's Workdir. A rank exiting non-zero, or ctx being
// cancelled, drops every SSH connection, which hangs up the remaining
// remote processes.
func RunRemote(ctx context.Context, cfg configs.Config, procs []Process, stdout, stderr io.Writer) error {
	placed, err := Placement(cfg)
	if err != nil {
		return err
	}
	for _, p := range procs {
		if p.Rank < 0 || p.Rank >= len(placed) {
			return fmt.Errorf("launch: rank %d has no peer entry", p.Rank)
		}
	}
	hosts := cfg.Hosts

	clients := make([]*ssh.Client, len(hosts))
	for i, h := range hosts {
		client, err := dialHost(h)
		if err != nil {
			closeAll(clients)
			return fmt.Errorf("ssh %s: %w", h.Address, err)
		}
		clients[i] = client
	}
	var once sync.Once
	shutdown := func() { once.Do(func() { closeAll(clients) }) }
	defer shutdown()

	stop := context.AfterFunc(ctx, shutdown)
	defer stop()

	out := &lockedWriter{w: stdout}
	errOut := &lockedWriter{w: stderr}

	codes := make([]int, len(placed))
	var wg sync.WaitGroup
	for _, p := range procs {
		h := placed[p.Rank]
		wg.Add(1)
		go func(p Process, client *ssh.Client, host configs.HostConfig) {
			defer wg.Done()
			err := remoteRun(client, remoteCommand(host, p), out, errOut)
			if err != nil {
				fmt.Fprintf(errOut, "rank %d on %s: %v\n", p.Rank, host.Address, err)
			}
			code := remoteExitCode(err)
			codes[p.Rank] = code
			if code != 0 {
				shutdown()
			}
		}(p, clients[h], hosts[h])
	}
	wg.Wait()
	return collect(codes)
}

func dialHost(h configs.HostConfig) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            h.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(h.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshDialTimeout,
	}
	port := h.Port
	if port == "" {
		port = "22"
	}
	return ssh.Dial("tcp", net.JoinHostPort(h.Address, port), config)
}

func remoteCommand(h configs.HostConfig, p Process) string {
	if h.Workdir == "" {
		return p.CommandLine()
	}
	return "cd " + shellQuote(h.Workdir) + " && " + p.CommandLine()
}

func remoteRun(client *ssh.Client, command string, stdout, stderr io.Writer) error {
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr
	return session.Run(command)
}

func remoteExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitStatus() > 0 {
		return exitErr.ExitStatus()
	}
	return 1
}

func closeAll(clients []*ssh.Client) {
	for _, c := range clients {
		if c != nil {
			c.Close()
		}
	}
}
