package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowshell/internal/testutil"
	"github.com/roach88/flowshell/internal/timing"
)

// failingLoader returns a fixed error from every call.
type failingLoader struct{ err error }

func (f failingLoader) LoadUnit(string) (Source, error)        { return Source{}, f.err }
func (f failingLoader) FindResource(string) (string, error)    { return "", f.err }
func (f failingLoader) FindResources(string) ([]string, error) { return nil, f.err }

func TestTimed_RecordsEveryOperation(t *testing.T) {
	parent := NewMapLoader(map[string]string{"util": "return {}"})
	parent.AddResource("data.txt", "mem:data.txt")
	sink := testutil.NewRecordingSink()
	l := Timed(parent, sink)

	src, err := l.LoadUnit("util")
	require.NoError(t, err)
	assert.Equal(t, "return {}", src.Text)

	loc, err := l.FindResource("data.txt")
	require.NoError(t, err)
	assert.Equal(t, "mem:data.txt", loc)

	locs, err := l.FindResources("data.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"mem:data.txt"}, locs)

	assert.Equal(t, []string{
		"start:load", "stop:load",
		"start:load", "stop:load",
		"start:load", "stop:load",
	}, sink.Calls())
	assert.Equal(t, 0, sink.Depth(timing.Load))
}

func TestTimed_NotFoundPassesThroughAndIsTimed(t *testing.T) {
	sink := testutil.NewRecordingSink()
	l := Timed(NewMapLoader(nil), sink)

	_, err := l.LoadUnit("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "module", nf.Kind)
	assert.Equal(t, "missing", nf.Name)

	_, err = l.FindResource("missing.txt")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, 2, sink.Count("start:load"))
	assert.Equal(t, 2, sink.Count("stop:load"))
	assert.Equal(t, 0, sink.Unpaired())
}

func TestTimed_OtherErrorsPassThroughUnchanged(t *testing.T) {
	boom := errors.New("disk on fire")
	sink := testutil.NewRecordingSink()
	l := Timed(failingLoader{err: boom}, sink)

	_, err := l.LoadUnit("x")
	assert.Same(t, boom, err)
	_, err = l.FindResource("x")
	assert.Same(t, boom, err)
	_, err = l.FindResources("x")
	assert.Same(t, boom, err)

	assert.Equal(t, 3, sink.Count("stop:load"))
	assert.Equal(t, 0, sink.Depth(timing.Load))
}

func TestTimed_WithAccumulator(t *testing.T) {
	clock := testutil.NewStepClock(0)
	acc := timing.NewAccumulator(timing.WithClock(clock.Now))
	l := Timed(NewMapLoader(map[string]string{"a": "return 1"}), acc)

	_, _ = l.LoadUnit("a")
	_, _ = l.LoadUnit("b")

	assert.Equal(t, int64(2), acc.Total(timing.Load).Count)
	assert.Equal(t, int64(0), acc.Total(timing.Parse).Count)
}
