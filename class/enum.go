/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package class

import "cml/cmlerr"

// OrdinalOf returns the ordinal for a defined enum value name, or an error
// if name is not one of nt's members. Spec §8: "Enum ordinal -> enum name
// -> enum-from-name -> ordinal is identity on defined values."
func (nt *NestedType) OrdinalOf(name string) (int, error) {
	for i, n := range nt.EnumNames {
		if n == name {
			return nt.mappedOrdinal(i), nil
		}
	}
	return 0, cmlerr.New(cmlerr.KindNotFound, "no such enum value: "+name)
}

// NameOf returns the defined name for ordinal, or an error if ordinal isn't
// one of nt's values (spec §7, "bad-ordinal on enum operation").
func (nt *NestedType) NameOf(ordinal int) (string, error) {
	if len(nt.EnumValues) == 0 {
		if ordinal < 0 || ordinal >= len(nt.EnumNames) {
			return "", cmlerr.New(cmlerr.KindBadIndex, "bad enum ordinal")
		}
		return nt.EnumNames[ordinal], nil
	}
	for i, v := range nt.EnumValues {
		if v == ordinal {
			return nt.EnumNames[i], nil
		}
	}
	return "", cmlerr.New(cmlerr.KindBadIndex, "bad enum ordinal")
}

// TextOf returns the descriptive text for a defined name, mirroring NameOf.
func (nt *NestedType) TextOf(ordinal int) (string, error) {
	idx, err := nt.indexOf(ordinal)
	if err != nil {
		return "", err
	}
	return nt.EnumTexts[idx], nil
}

func (nt *NestedType) indexOf(ordinal int) (int, error) {
	if len(nt.EnumValues) == 0 {
		if ordinal < 0 || ordinal >= len(nt.EnumNames) {
			return 0, cmlerr.New(cmlerr.KindBadIndex, "bad enum ordinal")
		}
		return ordinal, nil
	}
	for i, v := range nt.EnumValues {
		if v == ordinal {
			return i, nil
		}
	}
	return 0, cmlerr.New(cmlerr.KindBadIndex, "bad enum ordinal")
}

func (nt *NestedType) mappedOrdinal(index int) int {
	if len(nt.EnumValues) == 0 {
		return index
	}
	return nt.EnumValues[index]
}

// Count returns the number of defined values in the enum.
func (nt *NestedType) Count() int {
	return len(nt.EnumNames)
}
