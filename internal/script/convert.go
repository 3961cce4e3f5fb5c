package script

import (
	lua "github.com/yuin/gopher-lua"
)

// ToGo converts a Lua value to plain Go data.
//
// Sequences become []any and numbers float64. Other tables, mixed ones
// included, become map[string]any keyed by the string form of each key.
// Functions and userdata become their string form. Cyclic tables are cut
// at the repeated reference, which converts to nil.
func ToGo(v lua.LValue) any {
	return toGo(v, make(map[*lua.LTable]bool))
}

func toGo(v lua.LValue, seen map[*lua.LTable]bool) any {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if seen[v] {
			return nil
		}
		seen[v] = true
		defer delete(seen, v)

		if n := v.MaxN(); n > 0 && isSequence(v, n) {
			list := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				list = append(list, toGo(v.RawGetInt(i), seen))
			}
			return list
		}
		m := make(map[string]any)
		v.ForEach(func(key, value lua.LValue) {
			m[key.String()] = toGo(value, seen)
		})
		return m
	case nil:
		return nil
	default:
		return v.String()
	}
}

// isSequence reports whether every key of t is an integer in 1..n.
// Tables with other keys convert to maps so no entry is dropped.
func isSequence(t *lua.LTable, n int) bool {
	seq := true
	t.ForEach(func(key, _ lua.LValue) {
		k, ok := key.(lua.LNumber)
		if !ok || float64(k) != float64(int(k)) || int(k) < 1 || int(k) > n {
			seq = false
		}
	})
	return seq
}
