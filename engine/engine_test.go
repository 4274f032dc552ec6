/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package engine

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cml/class"
	"cml/config"
	"cml/host"
	"cml/types"
	"cml/value"
)

func newTestEngine(t *testing.T) *Engine {
	eng, err := New(config.Default())
	require.NoError(t, err)
	return eng
}

// addHostMethod appends a host-implemented method directly to c, the way a
// user class built programmatically (rather than parsed from source) would
// -- exercising RegisterClass/MakeStorage/Run without needing a parser round
// trip.
func addHostMethod(c *class.Class, name string, ret types.ID, ctor bool, fn class.HostMethod) types.ID {
	id := types.ID(len(c.Methods) + 1)
	c.Methods = append(c.Methods, class.MethodDescriptor{
		Name: name, ID: id, ReturnType: ret, Constructor: ctor, Visibility: types.VisPublic,
	})
	c.Bodies = append(c.Bodies, &class.MethodBody{MethodID: id, Host: fn})
	return id
}

func TestRunInvokesStartAndReturnsInt4ExitCode(t *testing.T) {
	eng := newTestEngine(t)

	greeter := class.NewClass("MEng.Greeter")
	greeter.ParentPath = "MEng.Object"
	addHostMethod(greeter, "Start", eng.Intrinsics.Object.ID, false, func(params []interface{}) (interface{}, error) {
		out := value.NewIntrinsic(eng.classIDForKind(value.KindInt4), value.KindInt4, false)
		out.Num.I32 = 7
		return out, nil
	})

	id, err := eng.RegisterClass(greeter)
	require.NoError(t, err)

	v, err := eng.MakeStorage(id, "$main", false)
	require.NoError(t, err)

	code, err := eng.Run(v, nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(7), code)
}

func TestInvokeDefaultCtorRunsZeroArgConstructor(t *testing.T) {
	eng := newTestEngine(t)

	greeter := class.NewClass("MEng.Greeter")
	greeter.ParentPath = "MEng.Object"
	ran := false
	addHostMethod(greeter, "Greeter", types.BadID, true, func(params []interface{}) (interface{}, error) {
		ran = true
		return nil, nil
	})

	id, err := eng.RegisterClass(greeter)
	require.NoError(t, err)

	v, err := eng.MakeStorage(id, "$main", false)
	require.NoError(t, err)

	ok, err := eng.InvokeDefaultCtor(v, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, ran)
}

func TestInvokeDefaultCtorNoCtorIsNotAnError(t *testing.T) {
	eng := newTestEngine(t)

	plain := class.NewClass("MEng.Plain")
	plain.ParentPath = "MEng.Object"
	id, err := eng.RegisterClass(plain)
	require.NoError(t, err)

	v, err := eng.MakeStorage(id, "$main", false)
	require.NoError(t, err)

	ok, err := eng.InvokeDefaultCtor(v, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunWithArgsSplitsQuotedTokens(t *testing.T) {
	eng := newTestEngine(t)

	greeter := class.NewClass("MEng.ArgEcho")
	greeter.ParentPath = "MEng.Object"
	var seen []string
	addHostMethod(greeter, "Start", eng.Intrinsics.Object.ID, false, func(params []interface{}) (interface{}, error) {
		for _, p := range params[1:] {
			seen = append(seen, p.(*value.Value).Str)
		}
		return nil, nil
	})

	id, err := eng.RegisterClass(greeter)
	require.NoError(t, err)
	v, err := eng.MakeStorage(id, "$main", false)
	require.NoError(t, err)

	_, err = eng.RunWithArgs(v, `one "two three" four`, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two three", "four"}, seen)
}

func TestLoaderChainTriesFirstInsertedFirst(t *testing.T) {
	c := newLoaderChain()
	c.add(fakeManager{name: "second"}, InsertLast)
	c.add(fakeManager{name: "first"}, InsertFirst)

	require.True(t, c.Exists("anything"))
	rc, err := c.Open("anything", host.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, _ := rc.Read(buf)
	require.Equal(t, "first", string(buf[:n]))
}

// fakeManager is a minimal host.ClassManager stub for testing loaderChain's
// first/last insertion ordering.
type fakeManager struct {
	name string
}

func (fakeManager) Exists(string) bool { return true }
func (m fakeManager) Open(path string, mode host.OpenMode) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(m.name)), nil
}
func (fakeManager) Store(string, string) error { return nil }
func (fakeManager) UndoWriteMode(string) error { return nil }
func (fakeManager) Select(mode host.OpenMode) (string, bool, error) { return "", false, nil }
