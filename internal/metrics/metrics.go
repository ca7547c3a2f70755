// Package metrics tracks simple run counters and per-stage wall-clock
// timers, logged at the end of each pipeline stage in the style of a
// periodic progress counter within a long-running loop, generalized
// here into one small reusable stopwatch/counter type instead of ad
// hoc package globals.
package metrics

import (
	"log"
	"strconv"
	"sync"
	"time"
)

// Stage accumulates counters for one pipeline stage and logs a summary
// when Finish is called.
type Stage struct {
	name   string
	logger *log.Logger
	start  time.Time

	mu       sync.Mutex
	counters map[string]int64
}

// StartStage begins timing a named stage.
func StartStage(logger *log.Logger, name string) *Stage {
	return &Stage{
		name:     name,
		logger:   logger,
		start:    time.Now(),
		counters: make(map[string]int64),
	}
}

// Add increments a named counter by delta.
func (s *Stage) Add(counter string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[counter] += delta
}

// Finish logs the stage's elapsed time and final counters.
func (s *Stage) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Since(s.start)
	s.logger.Printf("stage %s done in %s: %s", s.name, elapsed.Round(time.Millisecond), formatCounters(s.counters))
}

func formatCounters(counters map[string]int64) string {
	if len(counters) == 0 {
		return "(no counters)"
	}
	out := ""
	first := true
	for k, v := range counters {
		if !first {
			out += ", "
		}
		first = false
		out += k + "=" + strconv.FormatInt(v, 10)
	}
	return out
}
