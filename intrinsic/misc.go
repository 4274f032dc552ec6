/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package intrinsic

import (
	"time"

	"cml/class"
	"cml/cmlerr"
	"cml/types"
	"cml/value"
)

func addBooleanMethods(c *class.Class) {
	selfP := selfParam("rhs", c.ID)
	addMethod(c, "Equals", selfP, c.ID, func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		return boolValue(c.ID, recv.Num.Bool == rhs.Num.Bool), nil
	})
	addMethod(c, "NotEquals", selfP, c.ID, func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		return boolValue(c.ID, recv.Num.Bool != rhs.Num.Bool), nil
	})
}

func addCharMethods(c *class.Class, boolClassID types.ID) {
	selfP := selfParam("rhs", c.ID)
	cmp := func(op cmpKind) class.HostMethod {
		return func(params []interface{}) (interface{}, error) {
			recv, rhs, err := receiverAndArg(params)
			if err != nil {
				return nil, err
			}
			a, b := recv.Num.Char, rhs.Num.Char
			return boolValue(boolClassID, cmpResult(op, a < b, a == b)), nil
		}
	}
	addMethod(c, "Equals", selfP, boolClassID, cmp(cmpEq))
	addMethod(c, "NotEquals", selfP, boolClassID, cmp(cmpNe))
	addMethod(c, "LessThan", selfP, boolClassID, cmp(cmpLt))
	addMethod(c, "GreaterThan", selfP, boolClassID, cmp(cmpGt))
	addMethod(c, "LessThanEq", selfP, boolClassID, cmp(cmpLe))
	addMethod(c, "GreaterThanEq", selfP, boolClassID, cmp(cmpGe))
	addMethod(c, "IsDigit", nil, boolClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		r := recv.Num.Char
		return boolValue(boolClassID, r >= '0' && r <= '9'), nil
	})
	addMethod(c, "IsAlpha", nil, boolClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		r := recv.Num.Char
		return boolValue(boolClassID, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')), nil
	})
}

// addTimeMethods registers Time's comparison and formatting surface. A
// Time value's payload rides in its Num.U64 field as Unix seconds UTC,
// matching the teacher's preference for primitive Go types over a bespoke
// calendar struct (object/javaByteArray.go does the analogous thing for
// byte-array payloads).
func addTimeMethods(c *class.Class, stringClassID, boolClassID types.ID) {
	selfP := selfParam("rhs", c.ID)
	cmp := func(op cmpKind) class.HostMethod {
		return func(params []interface{}) (interface{}, error) {
			recv, rhs, err := receiverAndArg(params)
			if err != nil {
				return nil, err
			}
			a, b := recv.Num.U64, rhs.Num.U64
			return boolValue(boolClassID, cmpResult(op, a < b, a == b)), nil
		}
	}
	addMethod(c, "Equals", selfP, boolClassID, cmp(cmpEq))
	addMethod(c, "NotEquals", selfP, boolClassID, cmp(cmpNe))
	addMethod(c, "LessThan", selfP, boolClassID, cmp(cmpLt))
	addMethod(c, "GreaterThan", selfP, boolClassID, cmp(cmpGt))
	addMethod(c, "LessThanEq", selfP, boolClassID, cmp(cmpLe))
	addMethod(c, "GreaterThanEq", selfP, boolClassID, cmp(cmpGe))

	addMethod(c, "SetToNow", nil, types.BadID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		recv.Num.U64 = uint64(time.Now().Unix())
		return nil, nil
	})
	addMethod(c, "ToText", nil, stringClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(stringClassID, value.KindString, false)
		out.Str = time.Unix(int64(recv.Num.U64), 0).UTC().Format(time.RFC3339)
		return out, nil
	})
}

// addExceptionMethods registers the accessors a catch block uses on
// $Exception (spec glossary "thrown exception value"). A user-declared
// error-enum class must set ParentClass MEng.Exception to inherit these,
// mirroring CIDMacroEng's MEng.Exception base for macro-level error enums
// (CIDMacroEng_MacroExcept.hpp) -- without it, $Exception still resolves to
// a plain Enum value but these accessor names are unavailable.
func addExceptionMethods(c *class.Class, stringClassID, boolClassID, card4ClassID types.ID) {
	checkParams := []class.Parameter{
		{Name: "errClass", TypeID: c.ID, Direction: types.DirIn},
		{Name: "ordinal", TypeID: card4ClassID, Direction: types.DirIn},
	}
	// Check reports whether the in-flight exception ($Exception, the
	// receiver) is error ordinal of the given enum class -- errClass is
	// any value of the enum class being tested against (spec glossary,
	// "thrown exception value"; CIDMacroEng_MacroExcept.hpp's Check).
	addMethod(c, "Check", checkParams, boolClassID, func(params []interface{}) (interface{}, error) {
		recv, errClass, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		ordinalVal, ok := asValue(params, 2)
		if !ok || ordinalVal == nil {
			return nil, cmlerr.New(cmlerr.KindFormat, "Check: missing ordinal argument")
		}
		match := recv.ClassID == errClass.ClassID &&
			recv.Enum != nil &&
			uint64(recv.Enum.Ordinal) == getCard(ordinalVal)
		return boolValue(boolClassID, match), nil
	})
	addMethod(c, "GetErrorText", nil, stringClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(stringClassID, value.KindString, false)
		if recv.Enum != nil && recv.Enum.Ordinal >= 0 && recv.Enum.Ordinal < len(recv.Enum.Texts) {
			out.Str = recv.Enum.Texts[recv.Enum.Ordinal]
		}
		return out, nil
	})
	addMethod(c, "GetErrorName", nil, stringClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(stringClassID, value.KindString, false)
		if recv.Enum != nil && recv.Enum.Ordinal >= 0 && recv.Enum.Ordinal < len(recv.Enum.Names) {
			out.Str = recv.Enum.Names[recv.Enum.Ordinal]
		}
		return out, nil
	})
}

// addBaseInfoMethods registers the read-only static numeric-limit
// constants CIDMacroEng_BaseInfoClass.hpp exposes to macros, as zero-arg
// host methods on an otherwise member-less intrinsic class.
func addBaseInfoMethods(c *class.Class, byKind map[value.Kind]*class.Class) {
	constU := func(kind value.Kind, n uint64) class.HostMethod {
		id := byKind[kind].ID
		return func(params []interface{}) (interface{}, error) {
			if _, err := receiverOnly(params); err != nil {
				return nil, err
			}
			out := value.NewIntrinsic(id, kind, false)
			setCard(out, n)
			return out, nil
		}
	}
	constI := func(kind value.Kind, n int64) class.HostMethod {
		id := byKind[kind].ID
		return func(params []interface{}) (interface{}, error) {
			if _, err := receiverOnly(params); err != nil {
				return nil, err
			}
			out := value.NewIntrinsic(id, kind, false)
			setInt(out, n)
			return out, nil
		}
	}

	addMethod(c, "Card1MaxValue", nil, byKind[value.KindCard1].ID, constU(value.KindCard1, 0xFF))
	addMethod(c, "Card2MaxValue", nil, byKind[value.KindCard2].ID, constU(value.KindCard2, 0xFFFF))
	addMethod(c, "Card4MaxValue", nil, byKind[value.KindCard4].ID, constU(value.KindCard4, 0xFFFFFFFF))
	addMethod(c, "Card8MaxValue", nil, byKind[value.KindCard8].ID, constU(value.KindCard8, 0xFFFFFFFFFFFFFFFF))
	addMethod(c, "Int1MaxValue", nil, byKind[value.KindInt1].ID, constI(value.KindInt1, 127))
	addMethod(c, "Int1MinValue", nil, byKind[value.KindInt1].ID, constI(value.KindInt1, -128))
	addMethod(c, "Int2MaxValue", nil, byKind[value.KindInt2].ID, constI(value.KindInt2, 32767))
	addMethod(c, "Int2MinValue", nil, byKind[value.KindInt2].ID, constI(value.KindInt2, -32768))
	addMethod(c, "Int4MaxValue", nil, byKind[value.KindInt4].ID, constI(value.KindInt4, 2147483647))
	addMethod(c, "Int4MinValue", nil, byKind[value.KindInt4].ID, constI(value.KindInt4, -2147483648))
}
