package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/flowshell/internal/timing"
)

// RecordingSink is a timing.Sink that remembers every call.
//
// Tests use it to check pairing and nesting of start/stop calls without
// depending on wall-clock durations.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingSink struct {
	mu       sync.Mutex
	calls    []string
	depth    map[timing.Kind]int
	maxDepth map[timing.Kind]int
	unpaired int
}

// NewRecordingSink creates an empty recording sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{
		depth:    make(map[timing.Kind]int),
		maxDepth: make(map[timing.Kind]int),
	}
}

// TimeStart records "start:<kind>".
func (s *RecordingSink) TimeStart(kind timing.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("start:%s", kind))
	s.depth[kind]++
	if s.depth[kind] > s.maxDepth[kind] {
		s.maxDepth[kind] = s.depth[kind]
	}
}

// TimeStop records "stop:<kind>".
func (s *RecordingSink) TimeStop(kind timing.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("stop:%s", kind))
	if s.depth[kind] == 0 {
		s.unpaired++
		return
	}
	s.depth[kind]--
}

// Calls returns a copy of all recorded calls in order.
func (s *RecordingSink) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// Count returns how many times "start:<kind>" or "stop:<kind>" was recorded.
func (s *RecordingSink) Count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

// Depth returns the number of currently open intervals for kind.
func (s *RecordingSink) Depth(kind timing.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth[kind]
}

// MaxDepth returns the deepest nesting observed for kind.
func (s *RecordingSink) MaxDepth(kind timing.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxDepth[kind]
}

// Unpaired returns the number of stops seen without a matching start.
func (s *RecordingSink) Unpaired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unpaired
}
