/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cml/class"
	"cml/config"
	"cml/intrinsic"
)

func newTestRegistry(t *testing.T) *class.Registry {
	reg := class.NewRegistry()
	_, err := intrinsic.Register(reg)
	require.NoError(t, err)
	return reg
}

func TestParseSourceBuildsClassShellAndMethod(t *testing.T) {
	reg := newTestRegistry(t)
	p := New(reg, nil, nil, nil, config.OptMedium)

	src := `Class MEng.Adder
    ParentClass MEng.Object
Methods
    Method Sum(In a : MEng.Card4, In b : MEng.Card4) Returns MEng.Card4
    EndMethod
EndMethods
`
	c, err := p.ParseSource("MEng.Adder", src)
	require.NoError(t, err)
	require.Equal(t, "MEng.Adder", c.Path)
	require.Equal(t, "MEng.Object", c.ParentPath)

	m := c.MethodByName("Sum")
	require.NotNil(t, m)
	require.Len(t, m.Params, 2)
	require.Equal(t, "a", m.Params[0].Name)

	card4, err := reg.ByPath("MEng.Card4")
	require.NoError(t, err)
	require.Equal(t, card4.ID, m.ReturnType)

	body := c.BodyForMethod(m.ID)
	require.NotNil(t, body)
	require.NotEmpty(t, body.Code)
}

func TestParseSourceRejectsUnresolvedParentClass(t *testing.T) {
	reg := newTestRegistry(t)
	p := New(reg, nil, nil, nil, config.OptMedium)

	src := `Class MEng.Orphan
    ParentClass MEng.NoSuchParent
Methods
EndMethods
`
	_, err := p.ParseSource("MEng.Orphan", src)
	require.Error(t, err)
}

// TestParseSourceExceptionCheckCallCompiles guards against a regression
// where `$Exception` never entered the postfix `.`/`[` loop: a catch block
// reading `$Exception.Check(...)` (spec §8's try/catch scenario) must
// compile, not fail with "unknown identifier" or a stray BadID type.
func TestParseSourceExceptionCheckCallCompiles(t *testing.T) {
	reg := newTestRegistry(t)
	p := New(reg, nil, nil, nil, config.OptMedium)

	src := `Class MEng.Thrower
    ParentClass MEng.Exception
Methods
    Method WasOrdinalThree() Returns MEng.Boolean
        Try
            Throw This
        Catch
            Return $Exception.Check(This, 3)
        EndTry
        Return False
    EndMethod
EndMethods
`
	c, err := p.ParseSource("MEng.Thrower", src)
	require.NoError(t, err)

	m := c.MethodByName("WasOrdinalThree")
	require.NotNil(t, m)
	body := c.BodyForMethod(m.ID)
	require.NotNil(t, body)
	require.NotEmpty(t, body.Code)
}

func TestParseSourceWithConstructor(t *testing.T) {
	reg := newTestRegistry(t)
	p := New(reg, nil, nil, nil, config.OptMedium)

	src := `Class MEng.Widget
    ParentClass MEng.Object
Methods
    Constructor()
    EndConstructor
EndMethods
`
	c, err := p.ParseSource("MEng.Widget", src)
	require.NoError(t, err)

	ctor := c.MethodByName("$Constructor")
	require.NotNil(t, ctor)
	require.True(t, ctor.Constructor)
	require.Empty(t, ctor.Params)
}
