package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"distributed-matmul/matrix"
	"distributed-matmul/shared"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestReportLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), shared.ReportFile)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteDims(16, 16, 16, 4); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteSeconds(1500 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteMarker(shared.ErrorMarker); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteMarker(shared.UnimplementedMarker); err != nil {
		t.Fatal(err)
	}
	if err := r.EndRow(); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(readFile(t, path), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one data row, got %d lines", len(lines))
	}
	header := "m         n         q         p         " +
		"Time_Sequential          Time_1D                  Time_2D                  "
	if lines[0] != header {
		t.Errorf("header =\n%q want\n%q", lines[0], header)
	}
	row := "16        16        16        4         " +
		"1.5                      ERROR FOUND              N/A                      "
	if lines[1] != row {
		t.Errorf("row =\n%q want\n%q", lines[1], row)
	}
	if got := strings.Fields(lines[0]); len(got) != len(Columns) {
		t.Errorf("header has %d labels", len(got))
	}
}

func TestRowRejectsExtraCells(t *testing.T) {
	r, err := Open(filepath.Join(t.TempDir(), "r.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	r.WriteDims(1, 1, 1, 1)
	for i := 0; i < 3; i++ {
		if err := r.WriteMarker("x"); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.WriteMarker("x"); !errors.Is(err, ErrRowFull) {
		t.Errorf("expected ErrRowFull, got %v", err)
	}
}

func TestOpenMissingDirectory(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing", "out.txt")); err == nil {
		t.Error("expected error opening report in a missing directory")
	}
}

func TestOpenTruncatesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("stale data\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
	if got := readFile(t, path); got != "" {
		t.Errorf("report not truncated: %q", got)
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{2 * time.Second, "2"},
		{1234567 * time.Microsecond, "1.23457"},
		{42 * time.Microsecond, "4.2e-05"},
	}
	for _, c := range cases {
		if got := FormatSeconds(c.d); got != c.want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestTimingsRecordOnce(t *testing.T) {
	tm := NewTimings()
	if err := tm.Record(StageSequential, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := tm.Record(Stage1D, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := tm.Record(StageSequential, 3*time.Second); err == nil {
		t.Error("expected error recording a stage twice")
	}
	if d, _ := tm.Get(StageSequential); d != time.Second {
		t.Errorf("stage overwritten: %v", d)
	}
	stages := tm.Stages()
	if len(stages) != 2 || stages[0] != StageSequential || stages[1] != Stage1D {
		t.Errorf("Stages = %v", stages)
	}
}

func TestDumpMatrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.txt")
	a, _ := matrix.FromRows([][]int64{{1, 2}, {3, 4}})
	if err := DumpMatrices(path, Named{Name: "A", Matrix: a}); err != nil {
		t.Fatal(err)
	}
	want := "Matrix A (shape 2x2):\n1 2\n3 4\n\n"
	if got := readFile(t, path); got != want {
		t.Errorf("dump = %q, want %q", got, want)
	}
}

func TestDumpMatricesReportsWriteErrors(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full on this platform")
	}
	m := matrix.Random(64, 64, 1)
	if err := DumpMatrices("/dev/full", Named{Name: "A", Matrix: m}); err == nil {
		t.Error("expected an error writing to a full device")
	}
}
