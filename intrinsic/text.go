/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// String/StringList/MemBuf/stream method bodies, grounded on the teacher's
// gfunction/javaLangString.go and javaLangStringBuilder.go native-method
// shims -- generalized from JDK String/StringBuilder semantics to CML's
// String/StringList/MemBuf/TextOutStream intrinsics, operating on Go's
// native UTF-8 strings via strings/strconv rather than a Java char array.
package intrinsic

import (
	"strings"

	"cml/class"
	"cml/cmlerr"
	"cml/types"
	"cml/value"
)

func addStringMethods(c *class.Class, boolClassID, card4ClassID types.ID) {
	selfP := selfParam("rhs", c.ID)

	addMethod(c, "Concat", selfP, c.ID, func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(recv.ClassID, value.KindString, false)
		out.Str = recv.Str + rhs.Str
		return out, nil
	})
	addMethod(c, "Add", selfP, c.ID, func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(recv.ClassID, value.KindString, false)
		out.Str = recv.Str + rhs.Str
		return out, nil
	})
	addMethod(c, "Equals", selfP, boolClassID, func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		return boolValue(boolClassID, recv.Str == rhs.Str), nil
	})
	addMethod(c, "NotEquals", selfP, boolClassID, func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		return boolValue(boolClassID, recv.Str != rhs.Str), nil
	})
	addMethod(c, "GetLength", nil, card4ClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(card4ClassID, value.KindCard4, false)
		out.Num.U32 = uint32(len([]rune(recv.Str)))
		return out, nil
	})
	addMethod(c, "IsEmpty", nil, boolClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		return boolValue(boolClassID, recv.Str == ""), nil
	})
	addMethod(c, "ToUpper", nil, c.ID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(c.ID, value.KindString, false)
		out.Str = strings.ToUpper(recv.Str)
		return out, nil
	})
	addMethod(c, "ToLower", nil, c.ID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(c.ID, value.KindString, false)
		out.Str = strings.ToLower(recv.Str)
		return out, nil
	})
	addMethod(c, "Strip", nil, c.ID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(c.ID, value.KindString, false)
		out.Str = strings.TrimSpace(recv.Str)
		return out, nil
	})
	addMethod(c, "Contains", selfP, boolClassID, func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		return boolValue(boolClassID, strings.Contains(recv.Str, rhs.Str)), nil
	})
}

func addStringListMethods(c *class.Class, boolClassID, card4ClassID types.ID) {
	addMethod(c, "AddElement", []class.Parameter{{Name: "elem", TypeID: types.BadID, Direction: types.DirIn}}, types.BadID,
		func(params []interface{}) (interface{}, error) {
			recv, err := receiverOnly(params)
			if err != nil {
				return nil, err
			}
			if len(params) < 2 {
				return nil, cmlerr.New(cmlerr.KindFormat, "AddElement: missing element")
			}
			elem, ok := asValue(params, 1)
			if !ok || elem == nil {
				return nil, cmlerr.New(cmlerr.KindFormat, "AddElement: argument is not a value")
			}
			return nil, recv.Append(elem)
		})
	addMethod(c, "GetElemCount", nil, card4ClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(card4ClassID, value.KindCard4, false)
		out.Num.U32 = uint32(recv.Len())
		return out, nil
	})
	addMethod(c, "IsEmpty", nil, boolClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		return boolValue(boolClassID, recv.Len() == 0), nil
	})
}

func addMemBufMethods(c *class.Class, boolClassID, card4ClassID types.ID) {
	addMethod(c, "Equals", selfParam("rhs", c.ID), boolClassID, func(params []interface{}) (interface{}, error) {
		recv, rhs, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		return boolValue(boolClassID, value.MemBufEquals(recv.Buf, rhs.Buf)), nil
	})
	addMethod(c, "GetSize", nil, card4ClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(card4ClassID, value.KindCard4, false)
		out.Num.U32 = uint32(len(recv.Buf))
		return out, nil
	})
}

// addFormattableMethods registers the abstract base's FormatTo method.
// Concrete classes that embed/inherit Formattable override it; the
// intrinsic default returns the receiver's String payload unchanged
// (CIDMacroEng_StdClass.hpp).
func addFormattableMethods(c *class.Class, stringClassID types.ID) {
	addMethod(c, "FormatTo", nil, stringClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(stringClassID, value.KindString, false)
		out.Str = recv.Str
		return out, nil
	})
}

// addStreamMethods registers the common TextOutStream/StringOutStream
// surface: WriteString/WriteLine append text to the stream's own String
// payload, letting a host drain it (the interpreter has no direct OS write
// surface -- spec §5, "no OS-syscall surface").
func addStreamMethods(c *class.Class, stringClassID types.ID) {
	addMethod(c, "WriteString", selfParam("text", stringClassID), types.BadID, func(params []interface{}) (interface{}, error) {
		recv, arg, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		recv.Str += arg.Str
		return nil, nil
	})
	addMethod(c, "WriteLine", selfParam("text", stringClassID), types.BadID, func(params []interface{}) (interface{}, error) {
		recv, arg, err := receiverAndArg(params)
		if err != nil {
			return nil, err
		}
		recv.Str += arg.Str + "\n"
		return nil, nil
	})
	addMethod(c, "Flush", nil, types.BadID, func(params []interface{}) (interface{}, error) {
		_, err := receiverOnly(params)
		return nil, err
	})
}

// addStringOutStreamExtras adds StringOutStream's own GetString/Clear, on
// top of the WriteString/WriteLine/Flush shared with TextOutStream.
func addStringOutStreamExtras(c *class.Class, stringClassID types.ID) {
	addMethod(c, "GetString", nil, stringClassID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		out := value.NewIntrinsic(stringClassID, value.KindString, false)
		out.Str = recv.Str
		return out, nil
	})
	addMethod(c, "Clear", nil, types.BadID, func(params []interface{}) (interface{}, error) {
		recv, err := receiverOnly(params)
		if err != nil {
			return nil, err
		}
		recv.Str = ""
		return nil, nil
	})
}

func boolValue(boolClassID types.ID, b bool) *value.Value {
	out := value.NewIntrinsic(boolClassID, value.KindBoolean, false)
	out.Num.Bool = b
	return out
}
