/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package value

import "cml/cmlerr"

// Index returns the element at position i of v's List payload as a live
// handle -- the *Value returned IS the element in the collection, not a
// copy, per spec §4.4's ColIndex opcode: "the element is a live handle into
// the collection." Matches CIDMacroEng_VectorClass.hpp / _Collection.hpp.
func (v *Value) Index(i int) (*Value, error) {
	if v.Kind != KindStringList {
		return nil, cmlerr.New(cmlerr.KindTypeMismatch, "Index called on a non-collection value")
	}
	if i < 0 || i >= len(v.List) {
		return nil, cmlerr.New(cmlerr.KindBadIndex, "collection index out of range")
	}
	return v.List[i], nil
}

// Append adds elem to v's List payload. Used by the intrinsic StringList
// registration (cml/intrinsic) to implement its add-element method.
func (v *Value) Append(elem *Value) error {
	if v.Kind != KindStringList {
		return cmlerr.New(cmlerr.KindTypeMismatch, "Append called on a non-collection value")
	}
	v.List = append(v.List, elem)
	return nil
}

// Len returns the number of elements in v's List payload.
func (v *Value) Len() int {
	return len(v.List)
}
