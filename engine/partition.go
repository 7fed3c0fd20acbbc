package engine

// Dims are the problem dimensions: A is M x N, B is N x Q.
type Dims struct {
	M, N, Q int
}

// ValidateDims checks that every dimension is positive and divisible by p.
// It is the first thing every rank does and involves no messaging.
func ValidateDims(d Dims, p int) error {
	if p <= 0 || d.M <= 0 || d.N <= 0 || d.Q <= 0 ||
		d.M%p != 0 || d.N%p != 0 || d.Q%p != 0 {
		return ConfigurationError{Dims: d, Procs: p}
	}
	return nil
}

// Partition is the contiguous row range [Start, End) owned by Rank.
type Partition struct {
	Rank       int
	Start, End int
}

func (p Partition) Len() int { return p.End - p.Start }

// BlockFor returns rank's row block of a matrix with the given row count
// split across p processes.
func BlockFor(rank, rows, p int) Partition {
	return Partition{Rank: rank, Start: rank * rows / p, End: (rank + 1) * rows / p}
}

// Partitions returns every rank's block in rank order.
func Partitions(rows, p int) []Partition {
	parts := make([]Partition, p)
	for r := range parts {
		parts[r] = BlockFor(r, rows, p)
	}
	return parts
}
