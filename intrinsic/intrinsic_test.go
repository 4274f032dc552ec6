/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package intrinsic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cml/class"
	"cml/config"
	"cml/interp"
	"cml/types"
	"cml/value"
)

func newTestInterp(t *testing.T) (*interp.Interpreter, *Classes) {
	reg := class.NewRegistry()
	classes, err := Register(reg)
	require.NoError(t, err)
	return interp.New(reg, config.Default()), classes
}

func methodByName(t *testing.T, c *class.Class, name string) *class.MethodDescriptor {
	m := c.MethodByName(name)
	require.NotNilf(t, m, "method %s not found on %s", name, c.Path)
	return m
}

func TestIntrinsicOrderMatchesKindEnum(t *testing.T) {
	reg := class.NewRegistry()
	_, err := Register(reg)
	require.NoError(t, err)

	for k := value.Kind(0); k < value.NumIntrinsicKinds; k++ {
		c, err := reg.ByID(types.ID(k))
		require.NoError(t, err)
		require.Equal(t, "MEng."+k.String(), c.Path)
	}
}

func TestCard4Arithmetic(t *testing.T) {
	in, classes := newTestInterp(t)
	_ = classes

	card4, err := in.Registry.ByPath("MEng.Card4")
	require.NoError(t, err)
	addMethod := methodByName(t, card4, "Add")

	lhs := value.NewIntrinsic(card4.ID, value.KindCard4, false)
	lhs.Num.U32 = 40
	rhs := value.NewIntrinsic(card4.ID, value.KindCard4, false)
	rhs.Num.U32 = 2

	result, thrown, err := in.Invoke(lhs, addMethod.ID, types.DispatchPolymorphic, []*value.Value{rhs})
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, uint32(42), result.Num.U32)
}

func TestCard4DivideByZeroIsNativeError(t *testing.T) {
	in, classes := newTestInterp(t)
	_ = classes

	card4, err := in.Registry.ByPath("MEng.Card4")
	require.NoError(t, err)
	divide := methodByName(t, card4, "Divide")

	lhs := value.NewIntrinsic(card4.ID, value.KindCard4, false)
	lhs.Num.U32 = 9
	rhs := value.NewIntrinsic(card4.ID, value.KindCard4, false)
	rhs.Num.U32 = 0

	result, thrown, err := in.Invoke(lhs, divide.ID, types.DispatchPolymorphic, []*value.Value{rhs})
	require.Error(t, err)
	require.Nil(t, thrown)
	require.Nil(t, result)
}

func TestStringConcatAndEquals(t *testing.T) {
	in, classes := newTestInterp(t)

	concat := methodByName(t, classes.String, "Concat")
	equals := methodByName(t, classes.String, "Equals")

	a := value.NewIntrinsic(classes.String.ID, value.KindString, false)
	a.Str = "Hello, "
	b := value.NewIntrinsic(classes.String.ID, value.KindString, false)
	b.Str = "world"

	result, thrown, err := in.Invoke(a, concat.ID, types.DispatchPolymorphic, []*value.Value{b})
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, "Hello, world", result.Str)

	eqResult, thrown, err := in.Invoke(result, equals.ID, types.DispatchPolymorphic, []*value.Value{a})
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.False(t, eqResult.Num.Bool)
}

func TestStringGetLengthReturnsCard4(t *testing.T) {
	in, classes := newTestInterp(t)

	getLength := methodByName(t, classes.String, "GetLength")
	card4, err := in.Registry.ByPath("MEng.Card4")
	require.NoError(t, err)

	s := value.NewIntrinsic(classes.String.ID, value.KindString, false)
	s.Str = "hello"

	result, thrown, err := in.Invoke(s, getLength.ID, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, value.KindCard4, result.Kind)
	require.Equal(t, card4.ID, result.ClassID)
	require.Equal(t, uint32(5), result.Num.U32)
}

func TestStringListAddElementAndCount(t *testing.T) {
	in, classes := newTestInterp(t)

	addElem := methodByName(t, classes.StringList, "AddElement")
	count := methodByName(t, classes.StringList, "GetElemCount")

	list := value.NewIntrinsic(classes.StringList.ID, value.KindStringList, false)
	elem := value.NewIntrinsic(classes.String.ID, value.KindString, false)
	elem.Str = "one"

	_, thrown, err := in.Invoke(list, addElem.ID, types.DispatchPolymorphic, []*value.Value{elem})
	require.NoError(t, err)
	require.Nil(t, thrown)

	result, thrown, err := in.Invoke(list, count.ID, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, uint32(1), result.Num.U32)
}

func TestBaseInfoConstants(t *testing.T) {
	in, classes := newTestInterp(t)

	maxCard1 := methodByName(t, classes.BaseInfo, "Card1MaxValue")
	self := value.NewIntrinsic(classes.BaseInfo.ID, value.KindBaseInfo, false)

	result, thrown, err := in.Invoke(self, maxCard1.ID, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, uint8(0xFF), result.Num.U8)
}

func TestExceptionCheckMatchesClassAndOrdinal(t *testing.T) {
	in, classes := newTestInterp(t)

	check := methodByName(t, classes.Exception, "Check")
	card4, err := in.Registry.ByPath("MEng.Card4")
	require.NoError(t, err)

	thrownVal := value.NewIntrinsic(classes.Exception.ID, value.KindException, false)
	thrownVal.Enum = &value.EnumPayload{Ordinal: 3}

	sameClass := value.NewIntrinsic(classes.Exception.ID, value.KindException, false)
	ordinalThree := value.NewIntrinsic(card4.ID, value.KindCard4, false)
	ordinalThree.Num.U32 = 3

	result, thrown, err := in.Invoke(thrownVal, check.ID, types.DispatchPolymorphic, []*value.Value{sameClass, ordinalThree})
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.True(t, result.Num.Bool)

	ordinalFour := value.NewIntrinsic(card4.ID, value.KindCard4, false)
	ordinalFour.Num.U32 = 4
	result, thrown, err = in.Invoke(thrownVal, check.ID, types.DispatchPolymorphic, []*value.Value{sameClass, ordinalFour})
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.False(t, result.Num.Bool)

	otherClass := value.NewIntrinsic(classes.String.ID, value.KindException, false)
	result, thrown, err = in.Invoke(thrownVal, check.ID, types.DispatchPolymorphic, []*value.Value{otherClass, ordinalThree})
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.False(t, result.Num.Bool)
}

func TestExceptionAccessorsReadEnumPayload(t *testing.T) {
	in, classes := newTestInterp(t)

	getText := methodByName(t, classes.Exception, "GetErrorText")
	getName := methodByName(t, classes.Exception, "GetErrorName")

	thrownVal := value.NewIntrinsic(classes.Exception.ID, value.KindException, false)
	thrownVal.Enum = &value.EnumPayload{
		Ordinal: 1,
		Names:   []string{"NotFound", "BadFormat"},
		Texts:   []string{"not found", "bad format"},
	}

	text, thrown, err := in.Invoke(thrownVal, getText.ID, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, "bad format", text.Str)

	name, thrown, err := in.Invoke(thrownVal, getName.ID, types.DispatchPolymorphic, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, "BadFormat", name.Str)
}
