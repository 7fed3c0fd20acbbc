/*
Package configs reads and writes the cluster description shared by every
process of a run: which transport to use, where each rank listens, TLS
material, and the hosts the launcher deploys to over SSH.
*/
package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"distributed-matmul/shared"
)

// PeerConfig is where one rank listens
type PeerConfig struct {
	Rank    int
	Address string
}

// HostConfig is a machine the launcher deploys ranks to.
// Password as plain text is acceptable for lab clusters only.
type HostConfig struct {
	Address  string
	Port     string
	Username string
	Password string
	Workdir  string // directory holding the coordinator and worker binaries
}

// Config is the content of the cluster file
type Config struct {
	Transport string
	Peers     []PeerConfig
	CertFile  string
	KeyFile   string
	Hosts     []HostConfig
}

// ReadConfig loads a cluster file
func ReadConfig(path string) (Config, error) {
	c := Config{}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("decode %s: %w", path, err)
	}
	return c, c.Validate()
}

// WriteConfig stores c at path
func WriteConfig(path string, c Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// LocalConfig describes np ranks on this machine, listening on consecutive
// ports from basePort. Rank 0 gets the coordinator port.
func LocalConfig(np, basePort int, transport string) Config {
	c := Config{Transport: transport}
	for r := 0; r < np; r++ {
		c.Peers = append(c.Peers, PeerConfig{
			Rank:    r,
			Address: net.JoinHostPort("localhost", strconv.Itoa(basePort+r)),
		})
	}
	return c
}

// DefaultBasePort is shared.CoordinatorPort as a number.
func DefaultBasePort() int {
	p, _ := strconv.Atoi(shared.CoordinatorPort)
	return p
}

// Validate checks that every rank in [0, len(Peers)) appears exactly once.
func (c Config) Validate() error {
	if len(c.Peers) == 0 {
		return errors.New("config lists no peers")
	}
	seen := make([]bool, len(c.Peers))
	for _, p := range c.Peers {
		if p.Rank < 0 || p.Rank >= len(c.Peers) {
			return fmt.Errorf("peer %q has rank %d outside [0, %d)", p.Address, p.Rank, len(c.Peers))
		}
		if seen[p.Rank] {
			return fmt.Errorf("rank %d listed twice", p.Rank)
		}
		if p.Address == "" {
			return fmt.Errorf("rank %d has no address", p.Rank)
		}
		seen[p.Rank] = true
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("CertFile and KeyFile must be set together")
	}
	return nil
}

// Addresses returns peer addresses indexed by rank.
func (c Config) Addresses() []string {
	addrs := make([]string, len(c.Peers))
	for _, p := range c.Peers {
		addrs[p.Rank] = p.Address
	}
	return addrs
}
