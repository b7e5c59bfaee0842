package driver

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Stats collects engine-wide counters across every Analyze call, the
// driver counterpart of the teacher's MetricsCollector: atomic counters
// for cheap increments from whatever goroutine a batch run lands on, an
// exponential moving average for run duration, and a snapshot type for
// reporting.
type Stats struct {
	mu sync.RWMutex

	nodesVisited     int64
	pathsCompleted   int64
	pathsDropped     int64
	loopBoundHits    int64
	callsResolved    int64
	externalCalls    int64
	runsStarted      int64
	runsCompleted    int64
	runsFailed       int64

	avgRunDuration time.Duration
	startTime      time.Time
}

// NewStats returns an empty Stats ready to be shared across every
// Analyze call an Engine makes over its lifetime.
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) RecordNodeVisited()  { atomic.AddInt64(&s.nodesVisited, 1) }
func (s *Stats) RecordPathCompleted() { atomic.AddInt64(&s.pathsCompleted, 1) }
func (s *Stats) RecordPathDropped()  { atomic.AddInt64(&s.pathsDropped, 1) }
func (s *Stats) RecordLoopBound()    { atomic.AddInt64(&s.loopBoundHits, 1) }
func (s *Stats) RecordCallResolved() { atomic.AddInt64(&s.callsResolved, 1) }
func (s *Stats) RecordExternalCall() { atomic.AddInt64(&s.externalCalls, 1) }

// RecordRun marks one Analyze call's outcome and folds its wall time into
// the running average, mirroring updateAverageTime's alpha=0.1 EMA.
func (s *Stats) RecordRun(started time.Time, ok bool) {
	atomic.AddInt64(&s.runsStarted, 1)
	if ok {
		atomic.AddInt64(&s.runsCompleted, 1)
	} else {
		atomic.AddInt64(&s.runsFailed, 1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Since(started)
	s.avgRunDuration = time.Duration(float64(s.avgRunDuration)*0.9 + float64(elapsed)*0.1)
}

// Snapshot is a point-in-time copy of Stats, safe to hold and print after
// the Engine has moved on to further runs.
type Snapshot struct {
	NodesVisited   int64
	PathsCompleted int64
	PathsDropped   int64
	LoopBoundHits  int64
	CallsResolved  int64
	ExternalCalls  int64
	RunsStarted    int64
	RunsCompleted  int64
	RunsFailed     int64
	AvgRunDuration time.Duration
	Uptime         time.Duration
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		NodesVisited:   atomic.LoadInt64(&s.nodesVisited),
		PathsCompleted: atomic.LoadInt64(&s.pathsCompleted),
		PathsDropped:   atomic.LoadInt64(&s.pathsDropped),
		LoopBoundHits:  atomic.LoadInt64(&s.loopBoundHits),
		CallsResolved:  atomic.LoadInt64(&s.callsResolved),
		ExternalCalls:  atomic.LoadInt64(&s.externalCalls),
		RunsStarted:    atomic.LoadInt64(&s.runsStarted),
		RunsCompleted:  atomic.LoadInt64(&s.runsCompleted),
		RunsFailed:     atomic.LoadInt64(&s.runsFailed),
		AvgRunDuration: s.avgRunDuration,
		Uptime:         time.Since(s.startTime),
	}
}

// Report renders a human-readable summary, logged by cmd/formula's
// analyze and batch commands once they finish.
func (sn Snapshot) Report() string {
	total := sn.PathsCompleted + sn.PathsDropped
	survivalRate := 0.0
	if total > 0 {
		survivalRate = float64(sn.PathsCompleted) / float64(total) * 100
	}
	return fmt.Sprintf(
		"runs: %d completed, %d failed (avg %v)\npaths: %d completed, %d dropped (%.1f%% survived)\nnodes visited: %d\nloop bounds hit: %d\ninternal calls resolved: %d\nexternal calls resolved: %d\nuptime: %v",
		sn.RunsCompleted, sn.RunsFailed, sn.AvgRunDuration,
		sn.PathsCompleted, sn.PathsDropped, survivalRate,
		sn.NodesVisited, sn.LoopBoundHits, sn.CallsResolved, sn.ExternalCalls, sn.Uptime,
	)
}
