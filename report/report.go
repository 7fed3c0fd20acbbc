// Package report writes the fixed-column benchmark report. Only the
// coordinator ever opens one.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	dimWidth  = 10
	timeWidth = 25
)

// Columns are the fixed header labels, in order.
var Columns = []string{"m", "n", "q", "p", "Time_Sequential", "Time_1D", "Time_2D"}

// numDimColumns leading columns hold dimensions, the rest hold timings.
const numDimColumns = 4

var ErrRowFull = errors.New("report: row already has every column")

// Report is an open report file. Cells are written as soon as they are
// known, so a run that aborts leaves everything recorded up to the abort.
type Report struct {
	path string
	file *os.File
	w    *bufio.Writer
	col  int
}

// Open takes an exclusive lock on path, creating it if needed, and then
// truncates it. The file is left untouched when the lock is held elsewhere.
func Open(path string) (*Report, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		unlockFile(f)
		f.Close()
		return nil, err
	}
	return &Report{path: path, file: f, w: bufio.NewWriter(f)}, nil
}

func (r *Report) Path() string { return r.path }

// WriteHeader writes the header row.
func (r *Report) WriteHeader() error {
	for i, c := range Columns {
		if err := r.pad(c, widthOf(i)); err != nil {
			return err
		}
	}
	_, err := r.w.WriteString("\n")
	return err
}

// WriteDims writes the dimension columns of the data row.
func (r *Report) WriteDims(m, n, q, p int) error {
	for _, v := range []int{m, n, q, p} {
		if err := r.cell(fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}

// WriteSeconds writes an elapsed time as fractional seconds.
func (r *Report) WriteSeconds(d time.Duration) error {
	return r.cell(FormatSeconds(d))
}

// WriteMarker writes a literal marker such as shared.ErrorMarker.
func (r *Report) WriteMarker(s string) error {
	return r.cell(s)
}

// EndRow terminates the data row and flushes it to disk.
func (r *Report) EndRow() error {
	if _, err := r.w.WriteString("\n"); err != nil {
		return err
	}
	return r.w.Flush()
}

// Close flushes pending cells, releases the lock and closes the file.
func (r *Report) Close() error {
	ferr := r.w.Flush()
	unlockFile(r.file)
	cerr := r.file.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

func (r *Report) cell(s string) error {
	if r.col >= len(Columns) {
		return ErrRowFull
	}
	err := r.pad(s, widthOf(r.col))
	r.col++
	return err
}

func (r *Report) pad(s string, width int) error {
	_, err := fmt.Fprintf(r.w, "%-*s", width, s)
	return err
}

func widthOf(col int) int {
	if col < numDimColumns {
		return dimWidth
	}
	return timeWidth
}

// FormatSeconds renders d with six significant digits.
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.6g", d.Seconds())
}
