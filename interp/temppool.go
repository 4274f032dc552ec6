/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package interp

import (
	"cml/class"
	"cml/types"
	"cml/value"
)

// tempKey keys the temp pool by (class id, const flag), per spec glossary
// "Temp value pool".
type tempKey struct {
	classID types.ID
	constFl bool
}

// TempPool is the engine-owned cache of reusable value objects described in
// Design Note "Temp value pool": instead of global mutable state, the
// engine hands out borrowings and the interpreter restores in_use=false on
// release, on both the normal and exception-unwind paths (spec §5 "Scoped
// resource acquisition").
type TempPool struct {
	reg     *class.Registry
	ringCap int
	rings   map[tempKey][]*value.Value
}

// NewTempPool returns a pool that keeps up to ringCap idle values per key.
func NewTempPool(reg *class.Registry, ringCap int) *TempPool {
	if ringCap <= 0 {
		ringCap = 8
	}
	return &TempPool{reg: reg, ringCap: ringCap, rings: make(map[tempKey][]*value.Value)}
}

// Borrow returns a value of the given class/const-ness, reusing an idle one
// from the ring if available, else constructing a fresh one. The returned
// value's InUse flag is set; Release clears it.
func (p *TempPool) Borrow(classID types.ID, constFl bool) (*value.Value, error) {
	key := tempKey{classID, constFl}
	ring := p.rings[key]
	if n := len(ring); n > 0 {
		v := ring[n-1]
		p.rings[key] = ring[:n-1]
		v.InUse = true
		return v, nil
	}
	v, err := value.Construct(p.reg, classID, constFl)
	if err != nil {
		return nil, err
	}
	v.InUse = true
	return v, nil
}

// Release clears v's in-use flag and returns it to its ring, up to ringCap
// idle entries per key; beyond that it is simply dropped (left for GC).
func (p *TempPool) Release(v *value.Value) {
	if v == nil || !v.InUse {
		return
	}
	v.InUse = false
	key := tempKey{v.ClassID, v.Const}
	ring := p.rings[key]
	if len(ring) >= p.ringCap {
		return
	}
	p.rings[key] = append(ring, v)
}

// idleCount reports how many released values are waiting in the ring for
// the (classID, constFl) key -- used by tests verifying spec §8's
// "temp-pool in_use counts are restored."
func (p *TempPool) idleCount(classID types.ID, constFl bool) int {
	return len(p.rings[tempKey{classID, constFl}])
}
