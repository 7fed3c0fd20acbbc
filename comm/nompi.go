//go:build !mpi

package comm

// NewMPI is unavailable unless the binary is built with -tags mpi.
func NewMPI() (Comm, error) {
	return nil, ErrMPIUnavailable
}
