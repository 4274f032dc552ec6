/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package value implements CML's runtime Value model (spec §4.1): the
// polymorphic representation of every object the interpreter manipulates,
// closed over a fixed set of intrinsics plus an open-ended "user class"
// variant. Grounded on the teacher's object.Object/object.Field shape
// (object/object_test.go, object/javaByteArray.go), generalized from a
// single reference-typed JVM object to a value type that may also be an
// intrinsic primitive, matching CIDMacroEng_ClassValue.hpp.
package value

import (
	"cml/cmlerr"
	"cml/types"
)

// Kind identifies which intrinsic variant (or User) a Value holds. The
// closed intrinsic set is assigned fixed ids in registration order starting
// at 0, so the interpreter can range-test "is numeric" etc. by comparison
// (spec §4.1).
type Kind types.ID

const (
	KindObject Kind = iota // abstract root
	KindVoid
	KindBoolean
	KindChar
	KindCard1
	KindCard2
	KindCard4
	KindCard8
	KindInt1
	KindInt2
	KindInt4
	KindFloat4
	KindFloat8
	KindString
	KindStringList
	KindMemBuf
	KindTime
	KindEnum // abstract base for user enums
	KindFormattable
	KindTextOutStream
	KindStringOutStream
	KindException
	KindBaseInfo

	// NumIntrinsicKinds is the count of reserved, fixed intrinsic class ids.
	// User classes are assigned ids starting at this value by the registry.
	NumIntrinsicKinds
)

// IsNumeric reports whether kind is one of the contiguous numeric
// intrinsics, Card1 through Float8 (spec §4.1).
func (k Kind) IsNumeric() bool {
	return k >= KindCard1 && k <= KindFloat8
}

// IsInteger reports whether kind is one of the integer numeric intrinsics.
func (k Kind) IsInteger() bool {
	return k >= KindCard1 && k <= KindInt4
}

// IsFloat reports whether kind is Float4 or Float8.
func (k Kind) IsFloat() bool {
	return k == KindFloat4 || k == KindFloat8
}

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "Object"
	case KindVoid:
		return "Void"
	case KindBoolean:
		return "Boolean"
	case KindChar:
		return "Char"
	case KindCard1:
		return "Card1"
	case KindCard2:
		return "Card2"
	case KindCard4:
		return "Card4"
	case KindCard8:
		return "Card8"
	case KindInt1:
		return "Int1"
	case KindInt2:
		return "Int2"
	case KindInt4:
		return "Int4"
	case KindFloat4:
		return "Float4"
	case KindFloat8:
		return "Float8"
	case KindString:
		return "String"
	case KindStringList:
		return "StringList"
	case KindMemBuf:
		return "MemBuf"
	case KindTime:
		return "Time"
	case KindEnum:
		return "Enum"
	case KindFormattable:
		return "Formattable"
	case KindTextOutStream:
		return "TextOutStream"
	case KindStringOutStream:
		return "StringOutStream"
	case KindException:
		return "Exception"
	case KindBaseInfo:
		return "BaseInfo"
	default:
		return "User"
	}
}

// Numeric carries the primitive payload for the numeric/boolean/char
// intrinsics. Only the field matching the owning Value's Kind is meaningful.
type Numeric struct {
	Bool  bool
	Char  rune
	U8    uint8
	U16   uint16
	U32   uint32
	U64   uint64
	I8    int8
	I16   int16
	I32   int32
	F32   float32
	F64   float64
}

// EnumPayload is the intrinsic payload for a user enum value: its ordinal
// plus a pointer back to the enum type's name/text tables, so formatting
// and Check()/ordinal<->name round-trips don't need a registry lookup.
type EnumPayload struct {
	Ordinal int
	Names   []string // indexed by ordinal
	Texts   []string // indexed by ordinal
}

// Value is the runtime instance of a class (spec §4.1). It carries its
// class id, const flag, in-use flag for temp pooling, the ordered member
// vector that mirrors its owning class's member list, and -- for intrinsic
// classes -- an embedded primitive payload.
type Value struct {
	ClassID types.ID
	Kind    Kind
	Const   bool
	InUse   bool // temp pool borrowing flag

	// Members mirrors the owning class's full (inherited + own) member
	// list, in order, for KindObject-rooted user classes.
	Members []*Value

	Num Numeric   // Boolean/Char/Card*/Int*/Float* payload
	Str string    // String payload
	List []*Value // StringList / vector-of-T payload (by-reference element access)
	Buf  []byte   // MemBuf payload
	Enum *EnumPayload

	// Copyable mirrors the owning class's copyability; assignment checks it.
	Copyable bool
}

// NewIntrinsic builds a zero-valued intrinsic Value of the given kind.
func NewIntrinsic(classID types.ID, kind Kind, constFlag bool) *Value {
	v := &Value{ClassID: classID, Kind: kind, Const: constFlag, Copyable: true}
	if kind == KindStringList {
		v.List = []*Value{}
	}
	return v
}

// NewUser builds a zero-valued user-class Value with an already-constructed
// member vector (see cml/class's value-construction walk, spec §4.3).
func NewUser(classID types.ID, members []*Value, copyable bool) *Value {
	return &Value{ClassID: classID, Kind: KindObject, Members: members, Copyable: copyable}
}

// CopyFrom implements spec §4.1's copy_from: it fails if the classes differ
// or if dst is not copyable (spec §8, "Copyability").
func (dst *Value) CopyFrom(src *Value) error {
	if dst.Const {
		return cmlerr.New(cmlerr.KindNotCopyable, "cannot assign into a const value")
	}
	if dst.ClassID != src.ClassID {
		return cmlerr.New(cmlerr.KindTypeMismatch, "assignment between different classes")
	}
	if !dst.Copyable {
		return cmlerr.New(cmlerr.KindNotCopyable, "class is not copyable")
	}

	dst.Num = src.Num
	dst.Str = src.Str
	dst.Buf = append([]byte(nil), src.Buf...)
	if src.Enum != nil {
		e := *src.Enum
		dst.Enum = &e
	}
	if src.List != nil {
		dst.List = append([]*Value(nil), src.List...)
	}
	if src.Members != nil {
		dst.Members = make([]*Value, len(src.Members))
		for i, m := range src.Members {
			cp := *m
			dst.Members[i] = &cp
		}
	}
	return nil
}

// Assign copies src into dst via CopyFrom, failing unless, per spec §8,
// class_of(dst) == class_of(src) AND class_of(dst).copyable.
func Assign(dst, src *Value) error {
	return dst.CopyFrom(src)
}

// ClassNamer is the minimal capability dbg_format needs from the engine: the
// ability to turn a class id back into its dotted class path for display.
// Kept as a narrow interface (rather than importing cml/class or cml/engine
// directly) so cml/value has no dependency on the registry or engine facade.
type ClassNamer interface {
	ClassPathByID(id types.ID) (string, bool)
}
