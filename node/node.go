// Package node is the process bootstrap shared by the coordinator and
// worker executables: flags, cluster file, transport and the run itself.
package node

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"distributed-matmul/comm"
	"distributed-matmul/configs"
	"distributed-matmul/engine"
	"distributed-matmul/shared"
)

// DefaultProcs is the process count used by the local transport and by
// network runs started without a cluster file.
const DefaultProcs = 4

// Flags are the command line options of both executables.
type Flags struct {
	Config    string
	Transport string
	Report    string
	Dump      string
	Cert      string
	Key       string
	Seed      int64
	Rank      int
	NP        int
}

// Bind registers the flags on fs.
func Bind(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "cluster file (JSON)")
	fs.StringVar(&f.Transport, "transport", "", "local, rpc, grpc or mpi (default: the cluster file's, else local)")
	fs.StringVar(&f.Report, "report", shared.ReportFile, "report file written by the coordinator")
	fs.StringVar(&f.Dump, "dump", "", "optional file receiving A, B and the product")
	fs.StringVar(&f.Cert, "cert", "", "TLS certificate for rpc and grpc")
	fs.StringVar(&f.Key, "key", "", "TLS key for rpc and grpc")
	fs.Int64Var(&f.Seed, "seed", shared.DefaultSeed, "seed for the generated matrices")
	fs.IntVar(&f.Rank, "rank", -1, "this worker's rank")
	fs.IntVar(&f.NP, "np", DefaultProcs, "number of processes when no cluster file is given")
	return f
}

// ParseDims reads the positional m n q. All three or none must be given.
func ParseDims(args []string) (engine.Dims, error) {
	switch len(args) {
	case 0:
		return engine.Dims{M: shared.DefaultDim, N: shared.DefaultDim, Q: shared.DefaultDim}, nil
	case 3:
	default:
		return engine.Dims{}, fmt.Errorf("expected m n q or no arguments, got %d arguments", len(args))
	}
	var v [3]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n <= 0 {
			return engine.Dims{}, fmt.Errorf("dimension %q is not a positive integer", a)
		}
		v[i] = n
	}
	return engine.Dims{M: v[0], N: v[1], Q: v[2]}, nil
}

// Main runs one executable and returns its exit status.
func Main(role shared.Role, args []string) int {
	fs := flag.NewFlagSet(role.String(), flag.ContinueOnError)
	f := Bind(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	boot := log.New(os.Stderr, fmt.Sprintf("[%s] ", role), log.LstdFlags)
	dims, err := ParseDims(fs.Args())
	if err != nil {
		boot.Printf("%v", err)
		return 1
	}

	cfg, err := f.cluster()
	if err != nil {
		boot.Printf("Error loading cluster file: %v", err)
		return 1
	}

	opts := engine.Options{
		Dims:       dims,
		Seed:       f.Seed,
		ReportPath: f.Report,
		DumpPath:   f.Dump,
	}

	if cfg.Transport == comm.TransportLocal {
		if role != shared.RoleCoordinator {
			boot.Printf("The local transport runs every rank inside the coordinator")
			return 1
		}
		return RunLocal(f.NP, opts)
	}

	c, err := f.open(role, cfg)
	if err != nil {
		boot.Printf("%v", err)
		return 1
	}
	defer c.Close()

	opts.Logger = rankLogger(c.Rank())
	return engine.ExitCode(engine.Run(c, opts))
}

// RunLocal runs np ranks as goroutines over an in-process world. The result
// is non-zero when any rank fails.
func RunLocal(np int, opts engine.Options) int {
	if np <= 0 {
		log.Printf("Process count must be positive, got %d", np)
		return 1
	}
	w := comm.NewLocalWorld(np)
	defer w.Close()

	codes := make([]int, np)
	var wg sync.WaitGroup
	for r := 0; r < np; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			o := opts
			if o.Logger == nil {
				o.Logger = rankLogger(r)
			}
			codes[r] = engine.ExitCode(engine.Run(w.Comm(r), o))
		}(r)
	}
	wg.Wait()

	for _, c := range codes {
		if c != 0 {
			return 1
		}
	}
	return 0
}

func rankLogger(rank int) *log.Logger {
	return log.New(os.Stderr, fmt.Sprintf("[rank %d] ", rank), log.LstdFlags)
}

// cluster resolves the cluster description: the file when given, otherwise
// np ranks on localhost starting at the coordinator port. -transport
// overrides the file's transport.
func (f *Flags) cluster() (configs.Config, error) {
	var cfg configs.Config
	if f.Config != "" {
		var err error
		if cfg, err = configs.ReadConfig(f.Config); err != nil {
			return cfg, err
		}
	} else {
		cfg = configs.LocalConfig(f.NP, configs.DefaultBasePort(), comm.TransportLocal)
	}
	if f.Transport != "" {
		cfg.Transport = f.Transport
	}
	if cfg.Transport == "" {
		cfg.Transport = comm.TransportLocal
	}
	if f.Cert != "" || f.Key != "" {
		cfg.CertFile, cfg.KeyFile = f.Cert, f.Key
	}
	return cfg, nil
}

// open connects this process to the others. The coordinator is always
// rank 0; a worker needs -rank except under MPI, where the launcher
// assigns it.
func (f *Flags) open(role shared.Role, cfg configs.Config) (comm.Comm, error) {
	rank := f.Rank
	if role == shared.RoleCoordinator {
		rank = shared.CoordinatorRank
	} else if rank < 0 && cfg.Transport != comm.TransportMPI {
		return nil, errors.New("a worker needs -rank")
	}

	var opts []comm.Option
	opts = append(opts, comm.WithLogger(rankLogger(rank)))
	if cfg.CertFile != "" {
		opts = append(opts, comm.WithTLS(cfg.CertFile, cfg.KeyFile))
	}
	c, err := comm.Open(cfg.Transport, rank, cfg.Addresses(), opts...)
	if err != nil {
		return nil, err
	}
	if got := shared.RoleOf(c.Rank()); got != role {
		c.Close()
		return nil, fmt.Errorf("rank %d is a %s, not a %s", c.Rank(), got, role)
	}
	return c, nil
}
