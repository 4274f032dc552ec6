/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package intrinsic

import (
	"math"

	"cml/class"
	"cml/cmlerr"
	"cml/types"
	"cml/value"
)

// addNumericMethods wires Add/Subtract/Multiply/Divide/Modulo and the six
// comparison methods onto one numeric intrinsic class. Every binary
// operator in CML source compiles to one of these (spec §4.5's Design
// Note: the opcode set carries no arithmetic or comparison opcodes of its
// own, so "1 + 2" is really "1.Add(2)").
func addNumericMethods(c *class.Class, kind value.Kind, boolClassID types.ID) {
	rhs := selfParam("rhs", c.ID)
	addMethod(c, "Add", rhs, c.ID, numericArith(kind, arithAdd))
	addMethod(c, "Subtract", rhs, c.ID, numericArith(kind, arithSub))
	addMethod(c, "Multiply", rhs, c.ID, numericArith(kind, arithMul))
	addMethod(c, "Divide", rhs, c.ID, numericArith(kind, arithDiv))
	addMethod(c, "Modulo", rhs, c.ID, numericArith(kind, arithMod))
	addMethod(c, "Equals", rhs, boolClassID, numericCompare(kind, boolClassID, cmpEq))
	addMethod(c, "NotEquals", rhs, boolClassID, numericCompare(kind, boolClassID, cmpNe))
	addMethod(c, "LessThan", rhs, boolClassID, numericCompare(kind, boolClassID, cmpLt))
	addMethod(c, "GreaterThan", rhs, boolClassID, numericCompare(kind, boolClassID, cmpGt))
	addMethod(c, "LessThanEq", rhs, boolClassID, numericCompare(kind, boolClassID, cmpLe))
	addMethod(c, "GreaterThanEq", rhs, boolClassID, numericCompare(kind, boolClassID, cmpGe))
}

type arithKind int

const (
	arithAdd arithKind = iota
	arithSub
	arithMul
	arithDiv
	arithMod
)

type cmpKind int

const (
	cmpEq cmpKind = iota
	cmpNe
	cmpLt
	cmpGt
	cmpLe
	cmpGe
)

func numericArith(kind value.Kind, op arithKind) class.HostMethod {
	return func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		result := value.NewIntrinsic(recv.ClassID, recv.Kind, false)
		switch {
		case kind.IsFloat():
			a, b := getFloat(recv), getFloat(rhs)
			r, err := floatArith(a, b, op)
			if err != nil {
				return nil, err
			}
			setFloat(result, r)
		case kind <= value.KindCard8:
			a, b := getCard(recv), getCard(rhs)
			r, err := cardArith(a, b, op)
			if err != nil {
				return nil, err
			}
			setCard(result, r)
		default:
			a, b := getInt(recv), getInt(rhs)
			r, err := intArith(a, b, op)
			if err != nil {
				return nil, err
			}
			setInt(result, r)
		}
		return result, nil
	}
}

func numericCompare(kind value.Kind, boolClassID types.ID, op cmpKind) class.HostMethod {
	return func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		var lt, eq bool
		switch {
		case kind.IsFloat():
			a, b := getFloat(recv), getFloat(rhs)
			lt, eq = a < b, a == b
		case kind <= value.KindCard8:
			a, b := getCard(recv), getCard(rhs)
			lt, eq = a < b, a == b
		default:
			a, b := getInt(recv), getInt(rhs)
			lt, eq = a < b, a == b
		}
		out := value.NewIntrinsic(boolClassID, value.KindBoolean, false)
		out.Num.Bool = cmpResult(op, lt, eq)
		return out, nil
	}
}

func cmpResult(op cmpKind, lt, eq bool) bool {
	switch op {
	case cmpEq:
		return eq
	case cmpNe:
		return !eq
	case cmpLt:
		return lt
	case cmpGt:
		return !lt && !eq
	case cmpLe:
		return lt || eq
	default: // cmpGe
		return !lt
	}
}

func floatArith(a, b float64, op arithKind) (float64, error) {
	switch op {
	case arithAdd:
		return a + b, nil
	case arithSub:
		return a - b, nil
	case arithMul:
		return a * b, nil
	case arithDiv:
		if b == 0 {
			return 0, cmlerr.New(cmlerr.KindFormat, "divide by zero")
		}
		return a / b, nil
	default: // arithMod
		if b == 0 {
			return 0, cmlerr.New(cmlerr.KindFormat, "divide by zero")
		}
		return math.Mod(a, b), nil
	}
}

func cardArith(a, b uint64, op arithKind) (uint64, error) {
	switch op {
	case arithAdd:
		return a + b, nil
	case arithSub:
		return a - b, nil
	case arithMul:
		return a * b, nil
	case arithDiv:
		if b == 0 {
			return 0, cmlerr.New(cmlerr.KindFormat, "divide by zero")
		}
		return a / b, nil
	default: // arithMod
		if b == 0 {
			return 0, cmlerr.New(cmlerr.KindFormat, "divide by zero")
		}
		return a % b, nil
	}
}

func intArith(a, b int64, op arithKind) (int64, error) {
	switch op {
	case arithAdd:
		return a + b, nil
	case arithSub:
		return a - b, nil
	case arithMul:
		return a * b, nil
	case arithDiv:
		if b == 0 {
			return 0, cmlerr.New(cmlerr.KindFormat, "divide by zero")
		}
		return a / b, nil
	default: // arithMod
		if b == 0 {
			return 0, cmlerr.New(cmlerr.KindFormat, "divide by zero")
		}
		return a % b, nil
	}
}

func getCard(v *value.Value) uint64 {
	switch v.Kind {
	case value.KindCard1:
		return uint64(v.Num.U8)
	case value.KindCard2:
		return uint64(v.Num.U16)
	case value.KindCard4:
		return uint64(v.Num.U32)
	default: // KindCard8
		return v.Num.U64
	}
}

func setCard(v *value.Value, n uint64) {
	switch v.Kind {
	case value.KindCard1:
		v.Num.U8 = uint8(n)
	case value.KindCard2:
		v.Num.U16 = uint16(n)
	case value.KindCard4:
		v.Num.U32 = uint32(n)
	default: // KindCard8
		v.Num.U64 = n
	}
}

func getInt(v *value.Value) int64 {
	switch v.Kind {
	case value.KindInt1:
		return int64(v.Num.I8)
	case value.KindInt2:
		return int64(v.Num.I16)
	default: // KindInt4
		return int64(v.Num.I32)
	}
}

func setInt(v *value.Value, n int64) {
	switch v.Kind {
	case value.KindInt1:
		v.Num.I8 = int8(n)
	case value.KindInt2:
		v.Num.I16 = int16(n)
	default: // KindInt4
		v.Num.I32 = int32(n)
	}
}

func getFloat(v *value.Value) float64 {
	if v.Kind == value.KindFloat4 {
		return float64(v.Num.F32)
	}
	return v.Num.F64
}

func setFloat(v *value.Value, f float64) {
	if v.Kind == value.KindFloat4 {
		v.Num.F32 = float32(f)
	} else {
		v.Num.F64 = f
	}
}
