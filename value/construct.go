/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package value

import (
	"cml/class"
	"cml/cmlerr"
	"cml/types"
)

// IntrinsicKindOf maps a registered intrinsic class id to its Kind, for
// classes in the fixed, build-time-closed intrinsic set (ids 0..
// NumIntrinsicKinds-1, spec §4.1). User class ids are >= NumIntrinsicKinds
// and always construct as KindObject.
func IntrinsicKindOf(classID types.ID) Kind {
	if classID < types.ID(NumIntrinsicKinds) {
		return Kind(classID)
	}
	return KindObject
}

// Construct implements spec §4.3's "value construction for a class
// instance": when a class's factory produces a new value, it populates the
// value's member vector by walking the class's full member list (inherited
// first) and, for each member, calling the member's type's factory
// recursively. No code runs here -- constructors are explicit methods the
// caller must invoke afterward.
func Construct(reg *class.Registry, classID types.ID, constFlag bool) (*Value, error) {
	kind := IntrinsicKindOf(classID)
	if kind != KindObject {
		return NewIntrinsic(classID, kind, constFlag), nil
	}

	c, err := reg.ByID(classID)
	if err != nil {
		return nil, cmlerr.Wrap(cmlerr.KindNotFound, "Construct: unknown class", err)
	}

	members := make([]*Value, len(c.Members))
	for i, m := range c.Members {
		mv, err := Construct(reg, m.TypeID, m.Const)
		if err != nil {
			return nil, cmlerr.Wrap(cmlerr.KindNotFound, "Construct: member "+m.Name, err)
		}
		members[i] = mv
	}
	v := NewUser(classID, members, c.Copyable)
	v.Const = constFlag
	return v, nil
}
