/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package intrinsic registers CML's closed set of built-in classes (spec
// §4.1) into a class registry and supplies their host-implemented method
// bodies -- arithmetic and comparison on the numeric primitives, String and
// StringList operations, stream output, time, and the small Exception/
// BaseInfo surface. Grounded on the teacher's gfunction package
// (javaLangString.go, javaLangStringBuilder.go, javaUtilHashMap.go,
// javaLangThread.go): a MethodSignatures-map-and-native-Go-func pattern,
// generalized from per-JDK-method native trampolines to CML's
// MethodDescriptor+HostMethod body shape.
package intrinsic

import (
	"cml/class"
	"cml/cmlerr"
	"cml/types"
	"cml/value"
)

// intrinsicOrder fixes the registration sequence: it MUST match
// value.Kind's enum order exactly, since value.IntrinsicKindOf casts a
// sequential registry id straight to a Kind (spec §4.1).
var intrinsicOrder = []struct {
	path string
	kind value.Kind
}{
	{"MEng.Object", value.KindObject},
	{"MEng.Void", value.KindVoid},
	{"MEng.Boolean", value.KindBoolean},
	{"MEng.Char", value.KindChar},
	{"MEng.Card1", value.KindCard1},
	{"MEng.Card2", value.KindCard2},
	{"MEng.Card4", value.KindCard4},
	{"MEng.Card8", value.KindCard8},
	{"MEng.Int1", value.KindInt1},
	{"MEng.Int2", value.KindInt2},
	{"MEng.Int4", value.KindInt4},
	{"MEng.Float4", value.KindFloat4},
	{"MEng.Float8", value.KindFloat8},
	{"MEng.String", value.KindString},
	{"MEng.StringList", value.KindStringList},
	{"MEng.MemBuf", value.KindMemBuf},
	{"MEng.Time", value.KindTime},
	{"MEng.Enum", value.KindEnum},
	{"MEng.Formattable", value.KindFormattable},
	{"MEng.TextOutStream", value.KindTextOutStream},
	{"MEng.StringOutStream", value.KindStringOutStream},
	{"MEng.Exception", value.KindException},
	{"MEng.BaseInfo", value.KindBaseInfo},
}

// Classes is the handful of well-known intrinsic classes other packages
// (cml/engine's dyn-type resolution, cml/intrinsic's own sibling files)
// need to reach directly by id once registration completes.
type Classes struct {
	Object          *class.Class
	Boolean         *class.Class
	Char            *class.Class
	String          *class.Class
	StringList      *class.Class
	MemBuf          *class.Class
	Time            *class.Class
	Formattable     *class.Class
	TextOutStream   *class.Class
	StringOutStream *class.Class
	Exception       *class.Class
	BaseInfo        *class.Class
}

// Register adds every intrinsic class to reg, in exact value.Kind order,
// and wires up their host method bodies. Call this once per engine before
// parsing any user source, since the parser resolves operator calls (spec
// §4.5's Design Note on CallMember-as-arithmetic) against these method
// tables.
func Register(reg *class.Registry) (*Classes, error) {
	byKind := make(map[value.Kind]*class.Class, len(intrinsicOrder))
	for _, o := range intrinsicOrder {
		c := class.NewClass(o.path)
		if o.kind != value.KindObject {
			c.ParentPath = "MEng.Object"
		}
		if _, err := reg.AddClass(c); err != nil {
			return nil, cmlerr.Wrap(cmlerr.KindFormat, "register intrinsic "+o.path, err)
		}
		if err := reg.BaseClassInit(c); err != nil {
			return nil, cmlerr.Wrap(cmlerr.KindFormat, "base_class_init intrinsic "+o.path, err)
		}
		byKind[o.kind] = c
	}

	boolID := byKind[value.KindBoolean].ID
	for k := value.KindCard1; k <= value.KindFloat8; k++ {
		addNumericMethods(byKind[k], k, boolID)
	}
	addBooleanMethods(byKind[value.KindBoolean])
	addCharMethods(byKind[value.KindChar], boolID)

	card4ID := byKind[value.KindCard4].ID
	addStringMethods(byKind[value.KindString], byKind[value.KindBoolean].ID, card4ID)
	addStringListMethods(byKind[value.KindStringList], byKind[value.KindBoolean].ID, card4ID)
	addMemBufMethods(byKind[value.KindMemBuf], byKind[value.KindBoolean].ID, card4ID)
	addTimeMethods(byKind[value.KindTime], byKind[value.KindString].ID, byKind[value.KindBoolean].ID)
	addFormattableMethods(byKind[value.KindFormattable], byKind[value.KindString].ID)
	addStreamMethods(byKind[value.KindTextOutStream], byKind[value.KindString].ID)
	addStreamMethods(byKind[value.KindStringOutStream], byKind[value.KindString].ID)
	addStringOutStreamExtras(byKind[value.KindStringOutStream], byKind[value.KindString].ID)
	addExceptionMethods(byKind[value.KindException], byKind[value.KindString].ID, boolID, card4ID)
	addBaseInfoMethods(byKind[value.KindBaseInfo], byKind)

	return &Classes{
		Object:          byKind[value.KindObject],
		Boolean:         byKind[value.KindBoolean],
		Char:            byKind[value.KindChar],
		String:          byKind[value.KindString],
		StringList:      byKind[value.KindStringList],
		MemBuf:          byKind[value.KindMemBuf],
		Time:            byKind[value.KindTime],
		Formattable:     byKind[value.KindFormattable],
		TextOutStream:   byKind[value.KindTextOutStream],
		StringOutStream: byKind[value.KindStringOutStream],
		Exception:       byKind[value.KindException],
		BaseInfo:        byKind[value.KindBaseInfo],
	}, nil
}

// addMethod appends one host-implemented method descriptor+body to c,
// mirroring the teacher's MethodSignatures-map registration (gfunction's
// load() functions) but writing straight into the class's own tables
// instead of a separate global signature map.
func addMethod(c *class.Class, name string, params []class.Parameter, ret types.ID, fn class.HostMethod) types.ID {
	id := types.ID(len(c.Methods) + 1)
	c.Methods = append(c.Methods, class.MethodDescriptor{
		Name:       name,
		ID:         id,
		ReturnType: ret,
		Params:     params,
		Visibility: types.VisPublic,
	})
	c.Bodies = append(c.Bodies, &class.MethodBody{MethodID: id, Host: fn})
	return id
}

func selfParam(name string, typeID types.ID) []class.Parameter {
	return []class.Parameter{{Name: name, TypeID: typeID, Direction: types.DirIn}}
}

// receiverAndArg unpacks the host-call convention cml/interp uses: params[0]
// is always the receiver, params[1:] the call's arguments.
func receiverAndArg(params []interface{}) (*value.Value, *value.Value, error) {
	recv, ok := asValue(params, 0)
	if !ok || recv == nil {
		return nil, nil, cmlerr.New(cmlerr.KindFormat, "host method: missing receiver")
	}
	if len(params) < 2 {
		return recv, nil, cmlerr.New(cmlerr.KindFormat, "host method: missing argument")
	}
	arg, ok := asValue(params, 1)
	if !ok || arg == nil {
		return recv, nil, cmlerr.New(cmlerr.KindFormat, "host method: argument is not a value")
	}
	return recv, arg, nil
}

func receiverOnly(params []interface{}) (*value.Value, error) {
	recv, ok := asValue(params, 0)
	if !ok || recv == nil {
		return nil, cmlerr.New(cmlerr.KindFormat, "host method: missing receiver")
	}
	return recv, nil
}

func asValue(params []interface{}, i int) (*value.Value, bool) {
	if i < 0 || i >= len(params) {
		return nil, false
	}
	v, ok := params[i].(*value.Value)
	return v, ok
}
