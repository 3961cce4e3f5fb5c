package shell

import (
	"context"
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/flowshell/internal/loader"
	"github.com/roach88/flowshell/internal/script"
)

// Run executes u in a fresh Lua state and returns its first result as Go data.
//
// The state gets three shell-backed globals:
//
//	require(name)     module from the shell cache, loaded on first use
//	resource(name)    location of the first matching resource, or nil, message
//	resources(name)   list of all matching locations
//
// Each module body runs at most once per Run. Cancelling ctx stops the script.
func (s *Shell) Run(ctx context.Context, u *script.Unit) (any, error) {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	s.installRuntime(L)

	v, err := u.Call(L)
	if err != nil {
		return nil, err
	}
	return script.ToGo(v), nil
}

func (s *Shell) installRuntime(L *lua.LState) {
	loaded := make(map[string]lua.LValue)

	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if v, ok := loaded[name]; ok {
			L.Push(v)
			return 1
		}

		m, err := s.module(name, nil)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		// Mark before running so a module requiring itself sees a value.
		loaded[name] = lua.LTrue
		v, err := m.Call(L)
		if err != nil {
			delete(loaded, name)
			L.RaiseError("%s", err.Error())
			return 0
		}
		if v == lua.LNil {
			v = lua.LTrue
		}
		loaded[name] = v
		L.Push(v)
		return 1
	}))

	L.SetGlobal("resource", L.NewFunction(func(L *lua.LState) int {
		loc, err := s.loader.FindResource(L.CheckString(1))
		if err != nil {
			if errors.Is(err, loader.ErrNotFound) {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(lua.LString(loc))
		return 1
	}))

	L.SetGlobal("resources", L.NewFunction(func(L *lua.LState) int {
		locs, err := s.loader.FindResources(L.CheckString(1))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		tbl := L.NewTable()
		for _, loc := range locs {
			tbl.Append(lua.LString(loc))
		}
		L.Push(tbl)
		return 1
	}))
}
