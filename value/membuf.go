/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// MemBuf helpers, grounded on the teacher's object/javaByteArray.go
// conversion routines between Go strings/byte slices and the VM's own
// byte-array representation. CML's MemBuf intrinsic plays the analogous
// role to the teacher's java/lang/String backing byte array.
package value

// MemBufFromGoString builds a MemBuf Value's backing buffer from a Go string.
func MemBufFromGoString(s string) []byte {
	return []byte(s)
}

// GoStringFromMemBuf renders a MemBuf's backing buffer as a Go string.
func GoStringFromMemBuf(buf []byte) string {
	return string(buf)
}

// MemBufEquals compares two MemBuf payloads for byte-for-byte equality.
func MemBufEquals(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
