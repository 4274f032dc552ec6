/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cml/class"
	"cml/config"
	"cml/opcode"
	"cml/types"
	"cml/value"
)

func newTestRegistry(t *testing.T) *class.Registry {
	reg := class.NewRegistry()
	for i := value.Kind(0); i < value.NumIntrinsicKinds; i++ {
		c := class.NewClass(intrinsicPathFor(i))
		_, err := reg.AddClass(c)
		require.NoError(t, err)
		require.NoError(t, reg.BaseClassInit(c))
	}
	return reg
}

func intrinsicPathFor(k value.Kind) string {
	return "MEng." + k.String()
}

// TestStringAssignWritesBackToOutParam models the "hello name" scenario
// (spec §8): a method with an out String parameter assigns a literal into
// it via PushParm/PushStrPoolItem/Copy, and the caller observes the write
// through the same pointer it passed in.
func TestStringAssignWritesBackToOutParam(t *testing.T) {
	reg := newTestRegistry(t)

	greeter := class.NewClass("MEng.Greeter")
	_, err := reg.AddClass(greeter)
	require.NoError(t, err)
	require.NoError(t, reg.BaseClassInit(greeter))

	greeter.Methods = append(greeter.Methods, class.MethodDescriptor{
		Name: "Start",
		ID:   1,
		Params: []class.Parameter{
			{Name: "name", TypeID: types.ID(value.KindString), Direction: types.DirOut},
		},
	})
	body := &class.MethodBody{MethodID: 1}
	body.AddString("Alice", true)
	body.Code = []opcode.Opcode{
		opcode.WithIdx(opcode.PushParm, 0),
		opcode.WithIdx(opcode.PushStrPoolItem, 0),
		opcode.New(opcode.Copy),
		opcode.New(opcode.PopTop),
		opcode.New(opcode.Return),
	}
	greeter.Bodies = append(greeter.Bodies, body)

	in := New(reg, config.Default())
	recv, err := value.Construct(reg, greeter.ID, false)
	require.NoError(t, err)

	nameArg := value.NewIntrinsic(types.ID(value.KindString), value.KindString, false)
	result, thrown, err := in.Invoke(recv, 1, types.DispatchPolymorphic, []*value.Value{nameArg})
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Nil(t, result)
	require.Equal(t, "Alice", nameArg.Str)
	require.Equal(t, 0, in.Stack.Len(), "stack must be balanced after Return")
}

// TestTryCatchUnwindsToHandler models spec §8's try/catch scenario: a Throw
// inside a Try region is caught by the nearest EndTry/catch offset in the
// same frame, and execution resumes there rather than propagating out.
func TestTryCatchUnwindsToHandler(t *testing.T) {
	reg := newTestRegistry(t)

	errEnumClassID := types.ID(9000)
	c := class.NewClass("MEng.Thrower")
	_, err := reg.AddClass(c)
	require.NoError(t, err)
	require.NoError(t, reg.BaseClassInit(c))

	c.Methods = append(c.Methods, class.MethodDescriptor{Name: "Run", ID: 1, ReturnType: types.ID(value.KindCard4)})
	body := &class.MethodBody{MethodID: 1}
	body.AddLocal(class.Local{Name: "result", TypeID: types.ID(value.KindCard4)})

	// try { throw errEnum(0) } catch { result := 7 } ; push result ; return
	code := []opcode.Opcode{
		opcode.WithOffset(opcode.Try, 0), // offset patched below
		opcode.WithIdx(opcode.PushEnum, errEnumClassID, 0),
		opcode.New(opcode.Throw),
		opcode.New(opcode.EndTry), // unreachable, skipped by the unwind
		opcode.New(opcode.NoOp),   // index 4: catch handler begins here
	}
	code[0].Offset = 4
	catchTail := []opcode.Opcode{
		opcode.WithIdx(opcode.PushLocal, 0),
		opcode.WithNumeric(opcode.PushImCard4, opcode.Numeric{Uint32: 7}),
		opcode.New(opcode.Copy),
		opcode.New(opcode.PopTop),
		opcode.WithIdx(opcode.PushLocal, 0),
		opcode.New(opcode.PopToReturn),
		opcode.New(opcode.Return),
	}
	body.Code = append(code, catchTail...)
	c.Bodies = append(c.Bodies, body)

	in := New(reg, config.Default())
	recv, err := value.Construct(reg, c.ID, false)
	require.NoError(t, err)

	result, thrown, err := in.Invoke(recv, 1, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.NotNil(t, result)
	require.Equal(t, uint32(7), result.Num.U32)
	require.Equal(t, 0, in.Stack.Len())
}

// TestUncaughtThrowPropagatesAsThrown verifies that a Throw with no
// enclosing Try returns via the thrown channel rather than as a Go error,
// and that the frame is fully unwound.
func TestUncaughtThrowPropagatesAsThrown(t *testing.T) {
	reg := newTestRegistry(t)
	errEnumClassID := types.ID(9001)

	c := class.NewClass("MEng.Thrower2")
	_, err := reg.AddClass(c)
	require.NoError(t, err)
	require.NoError(t, reg.BaseClassInit(c))
	c.Methods = append(c.Methods, class.MethodDescriptor{Name: "Run", ID: 1})
	body := &class.MethodBody{
		MethodID: 1,
		Code: []opcode.Opcode{
			opcode.WithIdx(opcode.PushEnum, errEnumClassID, 2),
			opcode.New(opcode.Throw),
		},
	}
	c.Bodies = append(c.Bodies, body)

	in := New(reg, config.Default())
	recv, err := value.Construct(reg, c.ID, false)
	require.NoError(t, err)

	result, thrown, err := in.Invoke(recv, 1, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, thrown)
	require.Equal(t, 2, thrown.Ordinal)
	require.Equal(t, 0, in.Stack.Len())
}

// TestPolymorphicCallDispatchesOverride models spec §8's polymorphic-call
// scenario: CallMember-style dispatch on a receiver resolves to the most
// derived override present on that receiver's runtime class.
func TestPolymorphicCallDispatchesOverride(t *testing.T) {
	reg := newTestRegistry(t)

	base := class.NewClass("MEng.Base")
	_, err := reg.AddClass(base)
	require.NoError(t, err)
	require.NoError(t, reg.BaseClassInit(base))
	base.Methods = append(base.Methods, class.MethodDescriptor{Name: "Value", ID: 1, ReturnType: types.ID(value.KindCard4)})
	base.Bodies = append(base.Bodies, &class.MethodBody{
		MethodID: 1,
		Code: []opcode.Opcode{
			opcode.WithNumeric(opcode.PushImCard4, opcode.Numeric{Uint32: 1}),
			opcode.New(opcode.PopToReturn),
			opcode.New(opcode.Return),
		},
	})

	derived := class.NewClass("MEng.Derived")
	derived.ParentPath = "MEng.Base"
	_, err = reg.AddClass(derived)
	require.NoError(t, err)
	require.NoError(t, reg.BaseClassInit(derived))
	derived.Bodies = append(derived.Bodies, &class.MethodBody{
		MethodID: 1,
		Code: []opcode.Opcode{
			opcode.WithNumeric(opcode.PushImCard4, opcode.Numeric{Uint32: 2}),
			opcode.New(opcode.PopToReturn),
			opcode.New(opcode.Return),
		},
	})

	in := New(reg, config.Default())
	recv, err := value.Construct(reg, derived.ID, false)
	require.NoError(t, err)

	result, thrown, err := in.Invoke(recv, 1, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, uint32(2), result.Num.U32)
}

// TestTempPoolReleasedOnNormalReturn exercises spec §8's "temp-pool in_use
// counts are restored": a PushTempVar borrowed and then discarded by a
// MultiPop must come back to the ring with InUse cleared.
func TestTempPoolReleasedOnNormalReturn(t *testing.T) {
	reg := newTestRegistry(t)
	c := class.NewClass("MEng.TempUser")
	_, err := reg.AddClass(c)
	require.NoError(t, err)
	require.NoError(t, reg.BaseClassInit(c))
	c.Methods = append(c.Methods, class.MethodDescriptor{Name: "Run", ID: 1})
	c.Bodies = append(c.Bodies, &class.MethodBody{
		MethodID: 1,
		Code: []opcode.Opcode{
			opcode.WithIdx(opcode.PushTempVar, types.ID(value.KindCard4)),
			opcode.WithIdx(opcode.MultiPop, 1),
			opcode.New(opcode.Return),
		},
	})

	in := New(reg, config.Default())
	recv, err := value.Construct(reg, c.ID, false)
	require.NoError(t, err)

	_, thrown, err := in.Invoke(recv, 1, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, 1, in.TempPool.idleCount(types.ID(value.KindCard4), false))
}

// TestCastRangeIsCatchable models spec §8's numeric-cast-range scenario: a
// TypeCast that overflows its target width raises an exception that a
// Try/Catch wrapping it can catch, rather than aborting the frame with a
// bare Go error.
func TestCastRangeIsCatchable(t *testing.T) {
	reg := newTestRegistry(t)

	c := class.NewClass("MEng.Caster")
	_, err := reg.AddClass(c)
	require.NoError(t, err)
	require.NoError(t, reg.BaseClassInit(c))

	c.Methods = append(c.Methods, class.MethodDescriptor{Name: "Run", ID: 1, ReturnType: types.ID(value.KindCard4)})
	body := &class.MethodBody{MethodID: 1}
	body.AddLocal(class.Local{Name: "result", TypeID: types.ID(value.KindCard4)})

	// try { Card2(70000) } catch { result := 9 } ; push result ; return
	code := []opcode.Opcode{
		opcode.WithOffset(opcode.Try, 0), // offset patched below
		opcode.WithNumeric(opcode.PushImCard4, opcode.Numeric{Uint32: 70000}),
		opcode.WithIdx(opcode.TypeCast, types.ID(value.KindCard2)),
		opcode.New(opcode.PopTop),
		opcode.New(opcode.EndTry), // unreachable, skipped by the unwind
		opcode.New(opcode.NoOp),   // index 5: catch handler begins here
	}
	code[0].Offset = 5
	catchTail := []opcode.Opcode{
		opcode.WithIdx(opcode.PushLocal, 0),
		opcode.WithNumeric(opcode.PushImCard4, opcode.Numeric{Uint32: 9}),
		opcode.New(opcode.Copy),
		opcode.New(opcode.PopTop),
		opcode.WithIdx(opcode.PushLocal, 0),
		opcode.New(opcode.PopToReturn),
		opcode.New(opcode.Return),
	}
	body.Code = append(code, catchTail...)
	c.Bodies = append(c.Bodies, body)

	in := New(reg, config.Default())
	recv, err := value.Construct(reg, c.ID, false)
	require.NoError(t, err)

	result, thrown, err := in.Invoke(recv, 1, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.NotNil(t, result)
	require.Equal(t, uint32(9), result.Num.U32)
	require.Equal(t, 0, in.Stack.Len())
}
