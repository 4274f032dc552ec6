/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package value

// CastResult is the outcome of a CastFrom attempt (spec §4.4, TypeCast):
// ok, incompatible (fail with cast error), or range (fail with range error).
type CastResult int

const (
	CastOK CastResult = iota
	CastIncompatible
	CastRange
)

// CastFrom converts src into a new Value of target kind/classID, per spec
// §4.4: enum<->ordinal conversions are included, and narrowing numeric casts
// that would lose range report CastRange rather than silently truncating.
func CastFrom(src *Value, targetClassID uint16, target Kind) (*Value, CastResult) {
	if src.Kind == target {
		cp := *src
		cp.ClassID = targetClassID
		return &cp, CastOK
	}

	switch {
	case src.Kind.IsNumeric() && target.IsNumeric():
		return castNumeric(src, targetClassID, target)
	case src.Kind == KindEnum && target.IsInteger():
		cp := NewIntrinsic(targetClassID, target, false)
		if src.Enum == nil {
			return nil, CastIncompatible
		}
		if !setIntegerFromInt64(cp, int64(src.Enum.Ordinal)) {
			return nil, CastRange
		}
		return cp, CastOK
	case src.Kind.IsInteger() && target == KindEnum:
		// Ordinal-to-enum: CastFrom only sets the ordinal and rejects a
		// negative one; the payload's Names/Texts tables are left empty.
		cp := NewIntrinsic(targetClassID, KindEnum, false)
		cp.Enum = &EnumPayload{Ordinal: int(asInt64(src))}
		if cp.Enum.Ordinal < 0 {
			return nil, CastRange
		}
		return cp, CastOK
	default:
		return nil, CastIncompatible
	}
}

func castNumeric(src *Value, targetClassID uint16, target Kind) (*Value, CastResult) {
	cp := NewIntrinsic(targetClassID, target, false)
	if target.IsFloat() {
		f := asFloat64(src)
		if target == KindFloat4 {
			cp.Num.F32 = float32(f)
		} else {
			cp.Num.F64 = f
		}
		return cp, CastOK
	}
	if src.Kind.IsFloat() {
		f := asFloat64(src)
		if !setIntegerFromInt64(cp, int64(f)) {
			return nil, CastRange
		}
		return cp, CastOK
	}
	n := asInt64(src)
	if !setIntegerFromInt64(cp, n) {
		return nil, CastRange
	}
	return cp, CastOK
}

func asInt64(v *Value) int64 {
	switch v.Kind {
	case KindCard1:
		return int64(v.Num.U8)
	case KindCard2:
		return int64(v.Num.U16)
	case KindCard4:
		return int64(v.Num.U32)
	case KindCard8:
		return int64(v.Num.U64)
	case KindInt1:
		return int64(v.Num.I8)
	case KindInt2:
		return int64(v.Num.I16)
	case KindInt4:
		return int64(v.Num.I32)
	default:
		return 0
	}
}

func asFloat64(v *Value) float64 {
	if v.Kind == KindFloat4 {
		return float64(v.Num.F32)
	}
	if v.Kind == KindFloat8 {
		return v.Num.F64
	}
	return float64(asInt64(v))
}

// setIntegerFromInt64 writes n into cp's integer payload, reporting false if
// n overflows cp's width (a range-cast failure per spec §4.4).
func setIntegerFromInt64(cp *Value, n int64) bool {
	switch cp.Kind {
	case KindCard1:
		if n < 0 || n > 0xFF {
			return false
		}
		cp.Num.U8 = uint8(n)
	case KindCard2:
		if n < 0 || n > 0xFFFF {
			return false
		}
		cp.Num.U16 = uint16(n)
	case KindCard4:
		if n < 0 || n > 0xFFFFFFFF {
			return false
		}
		cp.Num.U32 = uint32(n)
	case KindCard8:
		if n < 0 {
			return false
		}
		cp.Num.U64 = uint64(n)
	case KindInt1:
		if n < -128 || n > 127 {
			return false
		}
		cp.Num.I8 = int8(n)
	case KindInt2:
		if n < -32768 || n > 32767 {
			return false
		}
		cp.Num.I16 = int16(n)
	case KindInt4:
		if n < -2147483648 || n > 2147483647 {
			return false
		}
		cp.Num.I32 = int32(n)
	default:
		return false
	}
	return true
}
