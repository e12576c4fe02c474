package script

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/askiada/go-stagerun/pkg/pipeline"
)

// ErrScript wraps the errors raised by Lua scripts, including timeouts.
var ErrScript = errors.New("script failed")

// envGlobal is the Lua global holding the environment.
const envGlobal = "env"

// program is a compiled script. Every call runs in a fresh state.
type program struct {
	name    string
	proto   *lua.FunctionProto
	timeout time.Duration
}

func compile(name, src string, timeout time.Duration) (*program, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDefinition, "unable to parse script %s: %v", name, err)
	}

	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDefinition, "unable to compile script %s: %v", name, err)
	}

	return &program{name: name, proto: proto, timeout: timeout}, nil
}

// newSandbox opens the base, string, table and math libraries only: scripts have no access
// to files, processes or modules.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for name, open := range map[string]lua.LGFunction{
		lua.BaseLibName:   lua.OpenBase,
		lua.StringLibName: lua.OpenString,
		lua.TabLibName:    lua.OpenTable,
		lua.MathLibName:   lua.OpenMath,
	} {
		L.Push(L.NewFunction(open))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}

// call runs the script with env exposed as the env global. Once the script returns, the
// content of the env global replaces the content of env. The value returned by the script
// is converted to Go.
func (p *program) call(ctx context.Context, env pipeline.Env) (any, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	L := newSandbox()
	defer L.Close()

	L.SetContext(ctx)
	L.SetGlobal(envGlobal, toLValue(L, map[string]any(env)))
	L.Push(L.NewFunctionFromProto(p.proto))

	err := L.PCall(0, 1, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrScript, "%s: %v", p.name, err)
	}

	ret := fromLValue(L.Get(-1))
	L.Pop(1)

	out, err := toEnv(fromLValue(L.GetGlobal(envGlobal)))
	if err != nil {
		return nil, errors.Wrapf(ErrScript, "%s: %v", p.name, err)
	}

	clear(env)
	maps.Copy(env, out)

	return ret, nil
}

func (p *program) unitFunc() pipeline.UnitFunc {
	return func(ctx context.Context, env pipeline.Env) error {
		_, err := p.call(ctx, env)

		return err
	}
}

// toEnv converts a Lua table. An empty table converts to an empty slice, which is an empty
// environment too.
func toEnv(v any) (pipeline.Env, error) {
	switch x := v.(type) {
	case map[string]any:
		return pipeline.Env(x), nil
	case []any:
		if len(x) == 0 {
			return pipeline.Env{}, nil
		}
	}

	return nil, errors.Errorf("%s must be a table with string keys, got %T", envGlobal, v)
}

func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(float64(x))
	case int32:
		return lua.LNumber(float64(x))
	case int64:
		return lua.LNumber(float64(x))
	case uint:
		return lua.LNumber(float64(x))
	case uint64:
		return lua.LNumber(float64(x))
	case float32:
		return lua.LNumber(float64(x))
	case float64:
		return lua.LNumber(x)
	case time.Duration:
		return lua.LString(x.String())
	case pipeline.Env:
		return toLValue(L, map[string]any(x))
	case map[string]any:
		tbl := L.NewTable()
		for k, v2 := range x {
			tbl.RawSetString(k, toLValue(L, v2))
		}

		return tbl
	case map[string]string:
		tbl := L.NewTable()
		for k, v2 := range x {
			tbl.RawSetString(k, lua.LString(v2))
		}

		return tbl
	case []any:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, toLValue(L, v2))
		}

		return tbl
	case []string:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, lua.LString(v2))
		}

		return tbl
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

// fromLValue converts tables with keys 1..n to slices and other tables to maps.
// Functions, userdata and threads convert to nil.
func fromLValue(v lua.LValue) any {
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTBool:
		return lua.LVAsBool(v)
	case lua.LTNumber:
		return float64(v.(lua.LNumber))
	case lua.LTString:
		return v.String()
	case lua.LTTable:
		return fromLTable(v.(*lua.LTable))
	default:
		return nil
	}
}

func fromLTable(t *lua.LTable) any {
	keys := []lua.LValue{}
	t.ForEach(func(k, _ lua.LValue) {
		keys = append(keys, k)
	})

	if n := t.Len(); n == len(keys) {
		arr := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			arr = append(arr, fromLValue(t.RawGetInt(i)))
		}

		return arr
	}

	obj := make(map[string]any, len(keys))
	for _, k := range keys {
		obj[k.String()] = fromLValue(t.RawGet(k))
	}

	return obj
}
