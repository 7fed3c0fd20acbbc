package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"distributed-matmul/matrix"
)

// Named pairs a matrix with the label used in a dump.
type Named struct {
	Name   string
	Matrix matrix.Matrix
}

// DumpMatrices writes each matrix to path under a "Matrix X (shape r x c):"
// heading.
func DumpMatrices(path string, named ...Named) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	werr := writeMatrices(f, named)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}

func writeMatrices(dst io.Writer, named []Named) error {
	w := bufio.NewWriter(dst)
	for _, nm := range named {
		_, err := fmt.Fprintf(w, "Matrix %s (shape %dx%d):\n%s\n",
			nm.Name, nm.Matrix.Rows(), nm.Matrix.Cols(), nm.Matrix.String())
		if err != nil {
			return err
		}
	}
	return w.Flush()
}
