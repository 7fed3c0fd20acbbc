package report

import (
	"fmt"
	"time"
)

// Stage names recorded by the coordinator
const (
	StageSequential = "Time_Sequential"
	Stage1D         = "Time_1D"
)

// Timings maps stage name to elapsed time. A stage is recorded at most
// once and never changed afterwards.
type Timings struct {
	order   []string
	elapsed map[string]time.Duration
}

func NewTimings() *Timings {
	return &Timings{elapsed: make(map[string]time.Duration)}
}

func (t *Timings) Record(stage string, d time.Duration) error {
	if _, ok := t.elapsed[stage]; ok {
		return fmt.Errorf("report: stage %q already recorded", stage)
	}
	t.order = append(t.order, stage)
	t.elapsed[stage] = d
	return nil
}

func (t *Timings) Get(stage string) (time.Duration, bool) {
	d, ok := t.elapsed[stage]
	return d, ok
}

// Stages returns recorded stage names in recording order.
func (t *Timings) Stages() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
