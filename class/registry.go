/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package class

import (
	"sync"

	"cml/cmlerr"
	"cml/trace"
	"cml/types"
)

// Registry owns all class-info objects for one engine. It keeps two
// parallel structures, per spec §4.2: a map from class path to Class (for
// parse-time name resolution) and a slice indexed by class id (for O(1)
// runtime lookup, since opcodes reference ids). Grounded on the teacher's
// Classloader + MethArea split (classloader.go), generalized from a
// name->Klass map plus a separate method-area cache into one registry that
// owns both indices directly.
type Registry struct {
	mu     sync.RWMutex
	byPath map[string]*Class
	byID   []*Class // index i holds the class with id i, appended as soon as it is added (deferred or not)
	nextID types.ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPath: make(map[string]*Class),
		byID:   make([]*Class, 0, 64),
	}
}

// AddClass assigns the next id, inserts c into both structures, and returns
// the id (spec §4.2, "Registration").
func (r *Registry) AddClass(c *Class) (types.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addClassLocked(c)
}

func (r *Registry) addClassLocked(c *Class) (types.ID, error) {
	if _, exists := r.byPath[c.Path]; exists {
		return types.BadID, cmlerr.New(cmlerr.KindDuplicate, "class already registered: "+c.Path)
	}
	if r.nextID > types.MaxID {
		return types.BadID, cmlerr.New(cmlerr.KindCapacity, "class id space exhausted")
	}
	id := r.nextID
	r.nextID++
	c.ID = id
	r.byPath[c.Path] = c
	r.byID = append(r.byID, c)
	trace.Trace("class registered: " + c.Path)
	return id, nil
}

// AddClassDeferred reserves a slot for a class whose parent is not yet
// registered; the parser completes BaseClassInit once the parent resolves
// (spec §4.2, "add_class_deferred").
func (r *Registry) AddClassDeferred(c *Class) (types.ID, error) {
	return r.AddClass(c)
}

// BaseClassInit runs once c's parent is resolvable: it looks up the parent
// by path, copies the parent's member and method lists into c (preserving
// ids), sets FirstMemberID/FirstMethodID to the next free slots, propagates
// copyability, and records the parent's class id (spec §4.2).
func (r *Registry) BaseClassInit(c *Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ParentPath == "" {
		// Root of the hierarchy (the Object intrinsic): no inherited slots.
		c.FirstMemberID = 1
		c.FirstMethodID = 1
		c.Copyable = true
		return nil
	}

	parent, ok := r.byPath[c.ParentPath]
	if !ok {
		return cmlerr.New(cmlerr.KindNotFound, "parent class not found: "+c.ParentPath)
	}

	c.ParentID = parent.ID
	c.Members = append(append([]Member(nil), parent.Members...), c.Members...)
	c.Methods = append(append([]MethodDescriptor(nil), parent.Methods...), c.Methods...)
	c.Bodies = append(append([]*MethodBody(nil), parent.Bodies...), c.Bodies...)

	c.FirstMemberID = types.ID(len(parent.Members) + 1)
	c.FirstMethodID = types.ID(len(parent.Methods) + 1)

	c.Copyable = parent.Copyable
	for _, m := range c.Members[len(parent.Members):] {
		if !r.classCopyableLocked(m.TypeID) {
			c.Copyable = false
			break
		}
	}
	return nil
}

func (r *Registry) classCopyableLocked(classID types.ID) bool {
	idx := int(classID)
	if idx < 0 || idx >= len(r.byID) || r.byID[idx] == nil {
		// Intrinsic primitive classes are registered before any user class
		// and are always copyable; an out-of-range id here means an
		// intrinsic whose Class record is deliberately left thin.
		return true
	}
	return r.byID[idx].Copyable
}

// ByPath returns the single matching class, or a NotFound/Ambiguous error
// (spec §4.2, "Lookup contract"). CML paths are unique per engine, so the
// only failure mode in practice is NotFound; Ambiguous is reserved for the
// parser's short-name resolution (see ResolveImportedClass).
func (r *Registry) ByPath(path string) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byPath[path]
	if !ok {
		return nil, cmlerr.New(cmlerr.KindNotFound, "no such class: "+path)
	}
	return c, nil
}

// ByID returns the class with the given id, with a bounds check.
func (r *Registry) ByID(id types.ID) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := int(id)
	if idx < 0 || idx >= len(r.byID) || r.byID[idx] == nil {
		return nil, cmlerr.New(cmlerr.KindNotFound, "no class with that id")
	}
	return r.byID[idx], nil
}

// ClassPathByID implements value.ClassNamer.
func (r *Registry) ClassPathByID(id types.ID) (string, bool) {
	c, err := r.ByID(id)
	if err != nil {
		return "", false
	}
	return c.Path, true
}

// Count returns the number of registered classes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// NameRefKind is what a resolved name inside a class body turns out to be
// (spec §4.2, "Name resolution").
type NameRefKind int

const (
	RefImportedClass NameRefKind = iota
	RefNestedType
	RefMember
	RefLocal
	RefParameter
	RefLiteral
	RefExceptionMagic
	RefDynTypeRef
)

// NameRef is the (kind, id) pair the parser resolves a name to, for opcode
// emission (spec §4.2).
type NameRef struct {
	Kind    NameRefKind
	ID      types.ID // member id, local index, parameter index, or class id, depending on Kind
	ClassID types.ID // owning/target class id, when applicable
}

// ResolveImportedClass resolves a short or full name against the given
// class's import set and nested-type closures. It returns Ambiguous if more
// than one imported class provides a matching short name or nested type,
// per spec §4.2: "If a short name matches multiple imported classes,
// resolution returns 'ambiguous'."
func (r *Registry) ResolveImportedClass(c *Class, name string) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// A full path always resolves directly, never ambiguously.
	if direct, ok := r.byPath[name]; ok {
		return direct, nil
	}

	var matches []*Class
	for _, imp := range c.Imports {
		ic, ok := r.byPath[imp.Path]
		if !ok {
			continue
		}
		if ic.Leaf == name {
			matches = append(matches, ic)
			continue
		}
		if imp.Nested {
			if _, ok := ic.Nested[name]; ok {
				matches = append(matches, ic)
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, cmlerr.New(cmlerr.KindNotFound, "unresolved name: "+name)
	case 1:
		return matches[0], nil
	default:
		return nil, cmlerr.New(cmlerr.KindAmbiguous, "ambiguous name: "+name)
	}
}
