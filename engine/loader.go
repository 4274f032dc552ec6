/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package engine

import (
	"errors"
	"io"

	"cml/host"
)

// InsertEnd selects which end of the loader chain RegisterClassLoader
// inserts at (spec §6, "register_class_loader(loader, end)").
type InsertEnd int

const (
	// InsertFirst gives the new loader top priority: it is consulted before
	// any previously-registered loader.
	InsertFirst InsertEnd = iota
	// InsertLast gives the new loader lowest priority: every
	// previously-registered loader is tried first.
	InsertLast
)

// loaderChain is a host.ClassManager that tries a priority-ordered list of
// class managers in turn, grounded on the teacher's Classloader/Archive
// multi-source lookup (classloader.go). The engine's Parse uses it as the
// default manager when the caller passes no explicit one.
type loaderChain struct {
	managers []host.ClassManager
}

func newLoaderChain() *loaderChain {
	return &loaderChain{}
}

func (c *loaderChain) add(m host.ClassManager, end InsertEnd) {
	if end == InsertFirst {
		c.managers = append([]host.ClassManager{m}, c.managers...)
		return
	}
	c.managers = append(c.managers, m)
}

func (c *loaderChain) Exists(path string) bool {
	for _, m := range c.managers {
		if m.Exists(path) {
			return true
		}
	}
	return false
}

func (c *loaderChain) Open(path string, mode host.OpenMode) (io.ReadCloser, error) {
	var lastErr error
	for _, m := range c.managers {
		rc, err := m.Open(path, mode)
		if err == nil {
			return rc, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("loaderChain: no class manager registered")
	}
	return nil, lastErr
}

func (c *loaderChain) Store(path string, text string) error {
	for _, m := range c.managers {
		if err := m.Store(path, text); err == nil {
			return nil
		}
	}
	return errors.New("loaderChain: no class manager accepted the write: " + path)
}

func (c *loaderChain) UndoWriteMode(path string) error {
	for _, m := range c.managers {
		if err := m.UndoWriteMode(path); err == nil {
			return nil
		}
	}
	return nil
}

func (c *loaderChain) Select(mode host.OpenMode) (string, bool, error) {
	for _, m := range c.managers {
		path, opened, err := m.Select(mode)
		if err == nil {
			return path, opened, nil
		}
	}
	return "", false, errors.New("loaderChain: no class manager supports interactive selection")
}
