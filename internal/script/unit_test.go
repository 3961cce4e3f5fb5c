package script

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

// fakeContext is a minimal Context for unit tests.
type fakeContext struct {
	id       string
	bindings map[string]string

	mu   sync.Mutex
	echo []string
}

func (f *fakeContext) ID() string { return f.id }

func (f *fakeContext) Bindings() map[string]string {
	out := make(map[string]string, len(f.bindings))
	for k, v := range f.bindings {
		out[k] = v
	}
	return out
}

func (f *fakeContext) Echo(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.echo = append(f.echo, msg)
}

func compile(t *testing.T, source string, v Variant) *Unit {
	t.Helper()
	u, err := NewCompiler().Compile("U", source, v)
	require.NoError(t, err)
	return u
}

func TestInjectContext_BindsAndIsIdempotent(t *testing.T) {
	u := compile(t, "--!pipeline\nreturn 1", VariantLibrary)
	ctx := &fakeContext{id: "exec-1"}

	require.NoError(t, u.InjectContext(ctx))
	assert.Same(t, ctx, u.Context())

	require.NoError(t, u.InjectContext(ctx))
	assert.Same(t, ctx, u.Context())
}

func TestInjectContext_MissingBindingFails(t *testing.T) {
	u := compile(t, "--!pipeline\n--!requires B, A\nreturn 1", VariantLibrary)
	ctx := &fakeContext{id: "exec-1", bindings: map[string]string{"C": "x"}}

	err := u.InjectContext(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A, B")
	assert.Nil(t, u.Context(), "failed setup must leave the unit unbound")
}

func TestInjectContext_Nil(t *testing.T) {
	u := compile(t, "return 1", VariantPipeline)
	assert.Error(t, u.InjectContext(nil))
}

func TestCall_Library(t *testing.T) {
	u := compile(t, "return { 1, 2, 3 }", VariantLibrary)

	L := lua.NewState()
	defer L.Close()

	v, err := u.Call(L)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, ToGo(v))
	assert.Equal(t, 0, L.GetTop())
}

func TestCall_PipelineInstallsGlobals(t *testing.T) {
	u := compile(t, `--!pipeline
echo("hello", binding.NAME)
return execution_id .. ":" .. binding.NAME`, VariantLibrary)
	ctx := &fakeContext{id: "exec-7", bindings: map[string]string{"NAME": "world"}}
	require.NoError(t, u.InjectContext(ctx))

	L := lua.NewState()
	defer L.Close()

	v, err := u.Call(L)
	require.NoError(t, err)
	assert.Equal(t, "exec-7:world", ToGo(v))
	assert.Equal(t, []string{"hello world"}, ctx.echo)
}

func TestCall_PipelineWithoutContext(t *testing.T) {
	u := compile(t, "return 1", VariantPipeline)

	L := lua.NewState()
	defer L.Close()

	_, err := u.Call(L)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoContext))
}

func TestCall_RuntimeError(t *testing.T) {
	u := compile(t, `error("boom")`, VariantLibrary)

	L := lua.NewState()
	defer L.Close()

	_, err := u.Call(L)
	require.Error(t, err)

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "U", re.Unit)
	assert.Contains(t, err.Error(), "boom")
}

func TestToGo(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	require.NoError(t, L.DoString(`
result = {
  name = "x",
  n = 3,
  ok = true,
  list = { "a", "b" },
}
cyclic = {}
cyclic.self = cyclic
mixed = { 1, 2, x = 3 }
`))

	got := ToGo(L.GetGlobal("result"))
	assert.Equal(t, map[string]any{
		"name": "x",
		"n":    3.0,
		"ok":   true,
		"list": []any{"a", "b"},
	}, got)

	assert.Equal(t, map[string]any{"self": nil}, ToGo(L.GetGlobal("cyclic")))
	assert.Equal(t, map[string]any{"1": 1.0, "2": 2.0, "x": 3.0}, ToGo(L.GetGlobal("mixed")))
	assert.Nil(t, ToGo(lua.LNil))
}
