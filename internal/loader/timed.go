package loader

import "github.com/roach88/flowshell/internal/timing"

// Timed wraps parent so every call is bracketed by
// sink.TimeStart(timing.Load) / sink.TimeStop(timing.Load).
//
// Results and errors from parent pass through unchanged. Time is recorded
// for failed lookups too. The decorator holds no cache and no policy.
func Timed(parent Loader, sink timing.Sink) Loader {
	return &timed{parent: parent, sink: sink}
}

type timed struct {
	parent Loader
	sink   timing.Sink
}

func (t *timed) LoadUnit(name string) (Source, error) {
	t.sink.TimeStart(timing.Load)
	defer t.sink.TimeStop(timing.Load)
	return t.parent.LoadUnit(name)
}

func (t *timed) FindResource(name string) (string, error) {
	t.sink.TimeStart(timing.Load)
	defer t.sink.TimeStop(timing.Load)
	return t.parent.FindResource(name)
}

func (t *timed) FindResources(name string) ([]string, error) {
	t.sink.TimeStart(timing.Load)
	defer t.sink.TimeStop(timing.Load)
	return t.parent.FindResources(name)
}
