package configs

import (
	"path/filepath"
	"testing"

	"distributed-matmul/shared"
)

func TestLocalConfig(t *testing.T) {
	c := LocalConfig(3, DefaultBasePort(), "rpc")
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	want := []string{shared.LocalCoordinatorAddr, "localhost:1235", "localhost:1236"}
	got := c.Addresses()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d address %s, want %s", i, got[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"empty", Config{}, false},
		{"duplicate rank", Config{Peers: []PeerConfig{{0, "a:1"}, {0, "b:1"}}}, false},
		{"rank out of range", Config{Peers: []PeerConfig{{0, "a:1"}, {2, "b:1"}}}, false},
		{"missing address", Config{Peers: []PeerConfig{{0, ""}}}, false},
		{"cert without key", Config{Peers: []PeerConfig{{0, "a:1"}}, CertFile: "c.pem"}, false},
		{"out of order ranks", Config{Peers: []PeerConfig{{1, "b:1"}, {0, "a:1"}}}, true},
	}
	for _, c := range cases {
		if err := c.cfg.Validate(); (err == nil) != c.ok {
			t.Errorf("%s: Validate() = %v", c.name, err)
		}
	}
}

func TestAddressesAreIndexedByRank(t *testing.T) {
	c := Config{Peers: []PeerConfig{{1, "b:1"}, {0, "a:1"}}}
	addrs := c.Addresses()
	if addrs[0] != "a:1" || addrs[1] != "b:1" {
		t.Errorf("Addresses() = %v", addrs)
	}
}

func TestReadConfigValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.json")
	if err := WriteConfig(path, Config{Transport: "rpc"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadConfig(path); err == nil {
		t.Error("expected ReadConfig to reject a config without peers")
	}

	good := LocalConfig(2, 4000, "grpc")
	good.Hosts = []HostConfig{{Address: "10.0.0.2", Username: "bench"}}
	if err := WriteConfig(path, good); err != nil {
		t.Fatal(err)
	}
	got, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Transport != "grpc" || len(got.Hosts) != 1 || got.Hosts[0].Username != "bench" {
		t.Errorf("ReadConfig = %+v", got)
	}
}
