/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Stack-inspection and manipulation accessors a host-implemented intrinsic
// method can use to reach into the running interpreter's operand stack
// (spec §6, "Stack accessors"). Grounded on the teacher's frame-stack
// display/unwind helpers (jvm/errors_test.go) generalized from a debug-only
// dump into a typed read/write surface a host-implemented method can call
// on an *Engine it holds (a HostMethod is passed only its params).
package engine

import (
	"cml/cmlerr"
	"cml/interp"
	"cml/types"
	"cml/value"
)

// valueStackAt returns the value item n below the top (0 == top), optionally
// checking its Kind against want. A checkType of false skips the check, for
// callers that only need whatever happens to be there.
func (e *Engine) valueStackAt(index int, checkType bool, want value.Kind) (*value.Value, error) {
	it, err := e.Interp.Stack.At(index)
	if err != nil {
		return nil, err
	}
	if it.Kind != interp.ItemValue {
		return nil, cmlerr.New(cmlerr.KindTypeMismatch, "stack item is not a value")
	}
	if checkType && it.Value.Kind != want {
		return nil, cmlerr.New(cmlerr.KindTypeMismatch, "stack value is not the expected intrinsic type")
	}
	return it.Value, nil
}

// BoolStackAt reads the Boolean at index (spec §6, "bool_stack_at").
func (e *Engine) BoolStackAt(index int, checkType bool) (bool, error) {
	v, err := e.valueStackAt(index, checkType, value.KindBoolean)
	if err != nil {
		return false, err
	}
	return v.Num.Bool, nil
}

// CharStackAt reads the Char at index (spec §6, "char_stack_at").
func (e *Engine) CharStackAt(index int, checkType bool) (rune, error) {
	v, err := e.valueStackAt(index, checkType, value.KindChar)
	if err != nil {
		return 0, err
	}
	return v.Num.Char, nil
}

// CardStackAt reads a Card1/2/4/8 at index as a uint64 (spec §6,
// "card_stack_at"). checkType accepts any of the four Card kinds.
func (e *Engine) CardStackAt(index int, checkType bool) (uint64, error) {
	v, err := e.valueStackAt(index, false, 0)
	if err != nil {
		return 0, err
	}
	if checkType {
		switch v.Kind {
		case value.KindCard1, value.KindCard2, value.KindCard4, value.KindCard8:
		default:
			return 0, cmlerr.New(cmlerr.KindTypeMismatch, "stack value is not a Card type")
		}
	}
	switch v.Kind {
	case value.KindCard1:
		return uint64(v.Num.U8), nil
	case value.KindCard2:
		return uint64(v.Num.U16), nil
	case value.KindCard4:
		return uint64(v.Num.U32), nil
	default:
		return v.Num.U64, nil
	}
}

// IntStackAt reads an Int1/2/4 at index as an int64 (spec §6,
// "int_stack_at"). checkType accepts any of the three Int kinds.
func (e *Engine) IntStackAt(index int, checkType bool) (int64, error) {
	v, err := e.valueStackAt(index, false, 0)
	if err != nil {
		return 0, err
	}
	if checkType {
		switch v.Kind {
		case value.KindInt1, value.KindInt2, value.KindInt4:
		default:
			return 0, cmlerr.New(cmlerr.KindTypeMismatch, "stack value is not an Int type")
		}
	}
	switch v.Kind {
	case value.KindInt1:
		return int64(v.Num.I8), nil
	case value.KindInt2:
		return int64(v.Num.I16), nil
	default:
		return int64(v.Num.I32), nil
	}
}

// FloatStackAt reads a Float4/8 at index as a float64 (spec §6,
// "float_stack_at"). checkType accepts either Float kind.
func (e *Engine) FloatStackAt(index int, checkType bool) (float64, error) {
	v, err := e.valueStackAt(index, false, 0)
	if err != nil {
		return 0, err
	}
	if checkType {
		switch v.Kind {
		case value.KindFloat4, value.KindFloat8:
		default:
			return 0, cmlerr.New(cmlerr.KindTypeMismatch, "stack value is not a Float type")
		}
	}
	if v.Kind == value.KindFloat4 {
		return float64(v.Num.F32), nil
	}
	return v.Num.F64, nil
}

// StringStackAt reads the String at index (spec §6, "string_stack_at").
func (e *Engine) StringStackAt(index int, checkType bool) (string, error) {
	v, err := e.valueStackAt(index, checkType, value.KindString)
	if err != nil {
		return "", err
	}
	return v.Str, nil
}

// FlipTop swaps the top two stack items in place (spec §6, "flip_top"),
// used by host methods that built their result below a value already on
// the stack and need it on top before returning.
func (e *Engine) FlipTop() error {
	top, err := e.Interp.Stack.At(0)
	if err != nil {
		return err
	}
	next, err := e.Interp.Stack.At(1)
	if err != nil {
		return err
	}
	*top, *next = *next, *top
	return nil
}

// MultiPop discards the top n items (spec §6, "multi_pop(n)"), releasing
// any temp-pool borrowings the usual way.
func (e *Engine) MultiPop(n int) error {
	items, err := e.Interp.Stack.PopN(n)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Kind == interp.ItemValue && it.SubKind == interp.SubTemp && !it.Repush {
			e.Interp.TempPool.Release(it.Value)
		}
	}
	return nil
}

func (e *Engine) pushIntrinsic(classID types.ID, kind value.Kind, set func(*value.Value)) {
	v := value.NewIntrinsic(classID, kind, false)
	set(v)
	e.Interp.Stack.PushValue(v, interp.SubTemp)
}

// PushBool pushes a Boolean value (spec §6, "push_bool").
func (e *Engine) PushBool(b bool) {
	e.pushIntrinsic(e.Intrinsics.Boolean.ID, value.KindBoolean, func(v *value.Value) { v.Num.Bool = b })
}

// PushChar pushes a Char value (spec §6, "push_char").
func (e *Engine) PushChar(r rune) {
	e.pushIntrinsic(e.Intrinsics.Char.ID, value.KindChar, func(v *value.Value) { v.Num.Char = r })
}

// PushCard4 pushes a Card4 value (spec §6, "push_card").
func (e *Engine) PushCard4(n uint32) {
	e.pushIntrinsic(e.classIDForKind(value.KindCard4), value.KindCard4, func(v *value.Value) { v.Num.U32 = n })
}

// PushInt4 pushes an Int4 value (spec §6, "push_int").
func (e *Engine) PushInt4(n int32) {
	e.pushIntrinsic(e.classIDForKind(value.KindInt4), value.KindInt4, func(v *value.Value) { v.Num.I32 = n })
}

// PushFloat8 pushes a Float8 value (spec §6, "push_float").
func (e *Engine) PushFloat8(f float64) {
	e.pushIntrinsic(e.classIDForKind(value.KindFloat8), value.KindFloat8, func(v *value.Value) { v.Num.F64 = f })
}

// PushString pushes a String value (spec §6, "push_string").
func (e *Engine) PushString(s string) {
	e.pushIntrinsic(e.Intrinsics.String.ID, value.KindString, func(v *value.Value) { v.Str = s })
}

// classIDForKind resolves a numeric intrinsic's class id by path lookup,
// since Classes names none of the numeric intrinsics.
func (e *Engine) classIDForKind(kind value.Kind) types.ID {
	path := "MEng." + kind.String()
	c, err := e.Registry.ByPath(path)
	if err != nil {
		return types.BadID
	}
	return c.ID
}
