/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package class implements CML's class registry and type model (spec §4.2,
// §4.3): the catalog of loaded classes, their inheritance, members, literals
// and methods, plus method descriptors and bodies. Grounded on the teacher's
// classloader.go (Classloader, ParsedClass, field/method/attr, MethArea),
// generalized from parsed-from-.class-bytes data to CML's own class-source
// shape (parsed by cml/parser) while keeping the same "parse-time struct,
// id-indexed lookup" split.
package class

import (
	"cml/opcode"
	"cml/types"
)

// Member is a field declared in a class (spec §3, "Member descriptor").
type Member struct {
	Name    string
	TypeID  types.ID // class id of the member's declared type
	Const   bool
	ID      types.ID // 1-based index into the owning class's member list
}

// Parameter is one entry in a method's parameter list.
type Parameter struct {
	Name      string
	TypeID    types.ID
	Direction types.Direction
}

// MethodDescriptor is a method's signature (spec §3). Overrides share the
// parent's descriptor id but add their own MethodBody.
type MethodDescriptor struct {
	Name        string
	ID          types.ID
	ReturnType  types.ID // class id; KindVoid's class id when none
	Params      []Parameter
	Visibility  types.Visibility
	Extension   types.Extension
	Const       bool
	Constructor bool
}

// Local is one entry in a method body's local-variable list, including
// compiler-generated temporaries for non-immediate literals.
type Local struct {
	Name   string
	TypeID types.ID
	Const  bool
}

// HostMethod is the callable handle for a method body that is dispatched
// outside the interpreter (an intrinsic, host-provided implementation).
// params[0] is the receiver and params[1:] are the call's arguments in the
// descriptor's Params order; the return value (nil for Void) is written
// back by the caller.
type HostMethod func(params []interface{}) (interface{}, error)

// MethodBody is one implementation of a MethodDescriptor (spec §3, §4.3).
// Exactly one of (Locals/StringPool/Code non-nil) or Host non-nil is set:
// a body is either bytecode or host-provided, never both.
type MethodBody struct {
	MethodID   types.ID
	Locals     []Local
	StringPool []string
	Code       []opcode.Opcode
	JumpTables []*opcode.JumpTable
	Host       HostMethod
}

// AddString interns text into the body's string pool (spec §4.3). With
// dedup=true, a prior identical entry is reused instead of appended, so
// two PushStrPoolItem opcodes referencing the same text share an index
// (spec §8, "String pool dedup").
func (b *MethodBody) AddString(text string, dedup bool) int {
	if dedup {
		for i, s := range b.StringPool {
			if s == text {
				return i
			}
		}
	}
	b.StringPool = append(b.StringPool, text)
	return len(b.StringPool) - 1
}

// AddLocal appends a local/parameter-temp slot and returns its index.
func (b *MethodBody) AddLocal(l Local) int {
	b.Locals = append(b.Locals, l)
	return len(b.Locals) - 1
}

// AddJumpTable reserves a new jump table, returning its id; the compiler
// populates it case-by-case as the switch statement's body is parsed
// (spec §4.3).
func (b *MethodBody) AddJumpTable() int {
	b.JumpTables = append(b.JumpTables, opcode.NewJumpTable())
	return len(b.JumpTables) - 1
}

// Literal is a per-class constant of a fundamental type (spec §4.5 "Literals").
type Literal struct {
	Name   string
	TypeID types.ID
	I      int64
	F      float64
	B      bool
	S      string
}

// NestedType is a class-local enum or array/vector-of declaration (spec §4.5).
type NestedType struct {
	Name string
	Kind NestedKind
	// Enum fields
	EnumNames  []string
	EnumTexts  []string
	EnumValues []int // optional explicit numeric mapping; empty means 0..n-1
	// Array/vector fields
	ElementTypeID types.ID
	Bound         int // 0 for vector-of (unbounded), >0 for bounded array-of
}

type NestedKind int

const (
	NestedEnum NestedKind = iota
	NestedArrayOf
	NestedVectorOf
)

// Class is CML's class-info record (spec §3, "Class"). It is immutable
// after parse completion.
type Class struct {
	ID   types.ID
	Path string // hierarchical dotted class path, rooted at types.RootClassPath
	Leaf string // leaf name

	ParentID        types.ID
	ParentPath      string
	Extension       types.Extension
	Copyable        bool

	Members       []Member
	Methods       []MethodDescriptor
	Bodies        []*MethodBody // parallel-ish to Methods by MethodID, but a derived override's body is appended here too
	FirstMemberID types.ID
	FirstMethodID types.ID

	Literals map[string]Literal
	Imports  []Import
	Nested   map[string]NestedType
	Directives map[string]string
}

// Import records one imported class path and whether it brings in all of
// the imported class's nested types implicitly (spec §4.5).
type Import struct {
	Path   string
	Nested bool
}

// NewClass returns an empty, not-yet-registered Class shell.
func NewClass(path string) *Class {
	leaf := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			leaf = path[i+1:]
			break
		}
	}
	return &Class{
		Path:       path,
		Leaf:       leaf,
		ID:         types.BadID,
		ParentID:   types.BadID,
		Literals:   make(map[string]Literal),
		Nested:     make(map[string]NestedType),
		Directives: make(map[string]string),
	}
}

// MemberByID returns the member with the given 1-based id, or nil.
func (c *Class) MemberByID(id types.ID) *Member {
	idx := int(id) - 1
	if idx < 0 || idx >= len(c.Members) {
		return nil
	}
	return &c.Members[idx]
}

// MethodByID returns the method descriptor with the given id, or nil.
func (c *Class) MethodByID(id types.ID) *MethodDescriptor {
	idx := int(id) - 1
	if idx < 0 || idx >= len(c.Methods) {
		return nil
	}
	return &c.Methods[idx]
}

// MethodByName returns the (first) method descriptor with the given name,
// or nil. CML does not support overloading by parameter list, so name
// lookup is unambiguous once resolved to a class.
func (c *Class) MethodByName(name string) *MethodDescriptor {
	for i := range c.Methods {
		if c.Methods[i].Name == name {
			return &c.Methods[i]
		}
	}
	return nil
}

// MemberByName returns the member with the given name, or nil.
func (c *Class) MemberByName(name string) *Member {
	for i := range c.Members {
		if c.Members[i].Name == name {
			return &c.Members[i]
		}
	}
	return nil
}

// BodyForMethod returns the most-recently-added body whose MethodID matches
// id -- i.e. this class's own implementation (or override) of that method,
// which is always appended after any inherited body with the same id during
// BaseClassInit (spec §4.2).
func (c *Class) BodyForMethod(id types.ID) *MethodBody {
	for i := len(c.Bodies) - 1; i >= 0; i-- {
		if c.Bodies[i].MethodID == id {
			return c.Bodies[i]
		}
	}
	return nil
}
