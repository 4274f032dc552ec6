/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package class

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cml/types"
)

func TestByIDAfterByPathRoundTrips(t *testing.T) {
	r := NewRegistry()
	c := NewClass("MEng.System.Object")
	id, err := r.AddClass(c)
	require.NoError(t, err)
	require.NoError(t, r.BaseClassInit(c))

	got, err := r.ByID(id)
	require.NoError(t, err)
	require.Equal(t, c.Path, got.Path)

	byPath, err := r.ByPath(c.Path)
	require.NoError(t, err)
	require.Equal(t, id, byPath.ID)
}

func TestDuplicateClassRejected(t *testing.T) {
	r := NewRegistry()
	c1 := NewClass("MEng.User.Foo")
	_, err := r.AddClass(c1)
	require.NoError(t, err)

	c2 := NewClass("MEng.User.Foo")
	_, err = r.AddClass(c2)
	require.Error(t, err)
}

func TestBaseClassInitInheritsMembersAndMethods(t *testing.T) {
	r := NewRegistry()
	root := NewClass("MEng.System.Object")
	_, err := r.AddClass(root)
	require.NoError(t, err)
	require.NoError(t, r.BaseClassInit(root))

	parent := NewClass("MEng.User.Base")
	parent.ParentPath = root.Path
	parent.Members = []Member{{Name: "x", ID: 1}}
	parent.Methods = []MethodDescriptor{{Name: "M", ID: 1}}
	_, err = r.AddClass(parent)
	require.NoError(t, err)
	require.NoError(t, r.BaseClassInit(parent))

	child := NewClass("MEng.User.Child")
	child.ParentPath = parent.Path
	child.Members = []Member{{Name: "y", ID: 2}}
	_, err = r.AddClass(child)
	require.NoError(t, err)
	require.NoError(t, r.BaseClassInit(child))

	require.Len(t, child.Members, 2)
	require.Equal(t, "x", child.Members[0].Name)
	require.Equal(t, "y", child.Members[1].Name)
	require.Equal(t, types.ID(2), child.FirstMemberID)
	require.Equal(t, types.ID(2), child.FirstMethodID)
}

func TestBaseClassInitMissingParent(t *testing.T) {
	r := NewRegistry()
	c := NewClass("MEng.User.Orphan")
	c.ParentPath = "MEng.Does.Not.Exist"
	_, err := r.AddClass(c)
	require.NoError(t, err)

	err = r.BaseClassInit(c)
	require.Error(t, err)
}

func TestResolveImportedClassAmbiguous(t *testing.T) {
	r := NewRegistry()
	a := NewClass("MEng.User.Pkg1.Widget")
	b := NewClass("MEng.User.Pkg2.Widget")
	_, err := r.AddClass(a)
	require.NoError(t, err)
	_, err = r.AddClass(b)
	require.NoError(t, err)

	user := NewClass("MEng.User.Consumer")
	user.Imports = []Import{{Path: a.Path}, {Path: b.Path}}

	_, err = r.ResolveImportedClass(user, "Widget")
	require.Error(t, err)
}

func TestAddClassAllowsUpToMaxID(t *testing.T) {
	r := NewRegistry()
	r.nextID = types.MaxID

	c := NewClass("MEng.User.Last")
	id, err := r.AddClass(c)
	require.NoError(t, err)
	require.Equal(t, types.MaxID, id)

	_, err = r.AddClass(NewClass("MEng.User.OneTooMany"))
	require.Error(t, err)
}

func TestResolveImportedClassUnique(t *testing.T) {
	r := NewRegistry()
	a := NewClass("MEng.User.Pkg1.Widget")
	_, err := r.AddClass(a)
	require.NoError(t, err)

	user := NewClass("MEng.User.Consumer")
	user.Imports = []Import{{Path: a.Path}}

	got, err := r.ResolveImportedClass(user, "Widget")
	require.NoError(t, err)
	require.Equal(t, a.Path, got.Path)
}
