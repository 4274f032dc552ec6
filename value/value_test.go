/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package value

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyFromRequiresSameClass(t *testing.T) {
	a := NewIntrinsic(10, KindCard4, false)
	b := NewIntrinsic(11, KindCard4, false)

	err := a.CopyFrom(b)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "TypeMismatch"))
}

func TestCopyFromRequiresCopyable(t *testing.T) {
	a := NewIntrinsic(10, KindCard4, false)
	a.Copyable = false
	b := NewIntrinsic(10, KindCard4, false)
	b.Num.U32 = 42

	err := a.CopyFrom(b)
	require.Error(t, err)
}

func TestCopyFromSucceeds(t *testing.T) {
	a := NewIntrinsic(10, KindCard4, false)
	b := NewIntrinsic(10, KindCard4, false)
	b.Num.U32 = 99

	require.NoError(t, a.CopyFrom(b))
	require.Equal(t, uint32(99), a.Num.U32)
}

func TestCopyFromRejectsConstDest(t *testing.T) {
	a := NewIntrinsic(10, KindCard4, true)
	b := NewIntrinsic(10, KindCard4, false)

	require.Error(t, a.CopyFrom(b))
}

func TestParseFromTextRoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		text string
	}{
		{KindCard1, "200"},
		{KindCard2, "60000"},
		{KindCard4, "4000000000"},
		{KindInt1, "-100"},
		{KindInt2, "-30000"},
		{KindInt4, "-2000000000"},
		{KindFloat4, "3.5"},
		{KindFloat8, "3.14159265"},
		{KindBoolean, "true"},
		{KindChar, "Q"},
	}
	var sb strings.Builder
	for _, c := range cases {
		v := NewIntrinsic(0, c.kind, false)
		require.True(t, v.ParseFromText(c.text), "parsing %v", c)
		sb.Reset()
		ok, err := v.DbgFormat(&sb, nil, 10)
		require.True(t, ok)
		require.NoError(t, err)
		require.Equal(t, c.text, sb.String())
	}
}

func TestCastNumericRange(t *testing.T) {
	big := NewIntrinsic(0, KindCard4, false)
	big.Num.U32 = 70000

	_, res := CastFrom(big, 1, KindCard2)
	require.Equal(t, CastRange, res)
}

func TestCastNumericOK(t *testing.T) {
	small := NewIntrinsic(0, KindCard4, false)
	small.Num.U32 = 42

	out, res := CastFrom(small, 1, KindCard2)
	require.Equal(t, CastOK, res)
	require.Equal(t, uint16(42), out.Num.U16)
}

func TestCollectionIndexIsLiveHandle(t *testing.T) {
	list := NewIntrinsic(0, KindStringList, false)
	elem := NewIntrinsic(0, KindCard4, false)
	elem.Num.U32 = 1
	require.NoError(t, list.Append(elem))

	handle, err := list.Index(0)
	require.NoError(t, err)
	handle.Num.U32 = 55

	again, err := list.Index(0)
	require.NoError(t, err)
	require.Equal(t, uint32(55), again.Num.U32)
}

func TestCollectionIndexOutOfRange(t *testing.T) {
	list := NewIntrinsic(0, KindStringList, false)
	_, err := list.Index(0)
	require.Error(t, err)
}
