/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package engine is CML's host-facing facade (spec §6, "Engine facade"):
// it owns one class registry and one interpreter, wires the intrinsic
// classes in at construction, and exposes the operations a host drives a
// macro through -- registering classes, parsing source, constructing
// storage, invoking constructors, and running an entry method. Grounded on
// the teacher's top-level facility pattern (implied by cli_test.go driving
// a single jacobin-wide facility, CIDMacroEng_Engine.hpp / _ThisFacility.hpp)
// -- generalized so a process can run several independent Engine values at
// once (spec §5, "Scheduling model").
package engine

import (
	"cml/class"
	"cml/cmlerr"
	"cml/config"
	"cml/except"
	"cml/host"
	"cml/interp"
	"cml/intrinsic"
	"cml/parser"
	"cml/types"
	"cml/value"
)

// Exit codes returned by Run (spec §6, "Exit codes").
const (
	ExitNormal         int32 = 0
	ExitMacroException int32 = 1
	ExitNativeError    int32 = 2
)

// Engine is one embeddable CML instance: a class registry plus interpreter,
// with the fixed intrinsic classes already registered. Not safe for
// concurrent use by more than one goroutine at a time (spec §5).
type Engine struct {
	Registry   *class.Registry
	Interp     *interp.Interpreter
	Intrinsics *intrinsic.Classes
	Options    config.Options

	loaders *loaderChain
}

// New constructs an Engine with the closed intrinsic set registered.
func New(opts config.Options) (*Engine, error) {
	reg := class.NewRegistry()
	ic, err := intrinsic.Register(reg)
	if err != nil {
		return nil, cmlerr.Wrap(cmlerr.KindFormat, "engine: registering intrinsics", err)
	}
	in := interp.New(reg, opts)
	return &Engine{Registry: reg, Interp: in, Intrinsics: ic, Options: opts, loaders: newLoaderChain()}, nil
}

// SetDynTypeClass stores the class path for `$DynTypeRef` on the
// interpreter (spec §6, class source grammar). Neither the parser nor the
// interpreter reads it, so `$DynTypeRef` does not resolve to this path.
func (e *Engine) SetDynTypeClass(classPath string) {
	e.Interp.DynTypeClassPath = classPath
}

// SetErrorHandler installs the host's runtime error handler, consulted for
// native exceptions raised by host-implemented intrinsic methods (spec §6,
// "Error handlers").
func (e *Engine) SetErrorHandler(h host.RuntimeErrorHandler) {
	e.Interp.ErrHandler = h
}

// SetDebugger stores the host's interactive-debugging hook on the
// interpreter (spec §6, "Debugger trait"). Passing nil restores the no-op
// default. The interpreter does not call the hook: the CurLine opcode is a
// no-op, and neither AtLine nor SleepTest is consulted.
func (e *Engine) SetDebugger(d host.Debugger) {
	if d == nil {
		d = host.NoopDebugger{}
	}
	e.Interp.Debugger = d
}

// RegisterClass registers an already-built class.Class directly into the
// engine's registry, bypassing the parser (spec §6, "register_class(class)
// -> class id"). Used by hosts that build classes programmatically rather
// than from CML source text.
func (e *Engine) RegisterClass(c *class.Class) (types.ID, error) {
	id, err := e.Registry.AddClass(c)
	if err != nil {
		return types.BadID, err
	}
	if err := e.Registry.BaseClassInit(c); err != nil {
		return types.BadID, err
	}
	return id, nil
}

// RegisterClassLoader adds a class manager to the engine's loader chain
// (spec §6, "register_class_loader(loader, end)"), at the front or back
// depending on end.
func (e *Engine) RegisterClassLoader(loader host.ClassManager, end InsertEnd) {
	e.loaders.add(loader, end)
}

// Parse compiles mainClassPath (and everything it imports) through the
// given collaborators into the engine's registry (spec §6,
// "parse(main_class_path, error_handler, class_manager, file_resolver) ->
// (ok, main_class)"). If manager is nil, the engine's registered loader
// chain (see RegisterClassLoader) is used instead.
func (e *Engine) Parse(mainClassPath string, errHandler host.ParseErrorHandler, manager host.ClassManager, resolver host.FileResolver) (bool, *class.Class) {
	if manager == nil {
		manager = e.loaders
	}
	p := parser.New(e.Registry, manager, resolver, errHandler, e.Options.Optimization)
	mainClass, ok := p.Parse(mainClassPath)
	return ok, mainClass
}

// MakeStorage constructs a fresh value of the given class, for a host-owned
// named storage slot -- a global or session variable the macro engine does
// not itself track by name (spec §6, "make_storage(class, name, const_flag)
// -> value"). name is accepted for host-side bookkeeping/diagnostics only.
func (e *Engine) MakeStorage(classID types.ID, name string, constFlag bool) (*value.Value, error) {
	return value.Construct(e.Registry, classID, constFlag)
}

// InvokeDefaultCtor runs v's class's zero-argument constructor, if any
// (spec §6, "invoke_default_ctor(value, user_context) -> ok"). A class with
// no declared zero-arg constructor is not an error -- its member vector was
// already populated by MakeStorage's recursive construction walk (spec
// §4.3) -- ok is simply false.
func (e *Engine) InvokeDefaultCtor(v *value.Value, userContext interface{}) (bool, error) {
	c, err := e.Registry.ByID(v.ClassID)
	if err != nil {
		return false, err
	}
	ctor := defaultConstructor(c)
	if ctor == nil {
		return false, nil
	}
	_, thrown, err := e.Interp.Invoke(v, ctor.ID, types.DispatchPolymorphic, nil)
	if err != nil {
		return false, err
	}
	if thrown != nil {
		e.reportThrow(thrown, true)
		return false, nil
	}
	return true, nil
}

func defaultConstructor(c *class.Class) *class.MethodDescriptor {
	for i := range c.Methods {
		if c.Methods[i].Constructor && len(c.Methods[i].Params) == 0 {
			return &c.Methods[i]
		}
	}
	return nil
}

// Run invokes v's class's Start method with params and returns the macro's
// int32 exit code (spec §6, "run(value, params, user_context) -> int32
// exit code"; spec §6 "Exit codes").
func (e *Engine) Run(v *value.Value, params []*value.Value, userContext interface{}) (int32, error) {
	c, err := e.Registry.ByID(v.ClassID)
	if err != nil {
		return ExitNativeError, err
	}
	start := c.MethodByName("Start")
	if start == nil {
		return ExitNativeError, cmlerr.New(cmlerr.KindNotFound, "class has no Start method: "+c.Path)
	}

	result, thrown, err := e.Interp.Invoke(v, start.ID, types.DispatchPolymorphic, params)
	if err != nil {
		if e.Interp.ErrHandler != nil {
			e.Interp.ErrHandler.NativeException(err)
		}
		return ExitNativeError, err
	}
	if thrown != nil {
		e.reportThrow(thrown, true)
		return ExitMacroException, nil
	}
	if result != nil && result.Kind == value.KindInt4 {
		return result.Num.I32, nil
	}
	return ExitNormal, nil
}

// RunWithArgs is Run's string-argument-list variant (spec §6): args is
// split on spaces, honoring double-quoted segments, and each token becomes
// its own String parameter to Start, in order -- the convention the
// teacher's implied CLI entry point (cli_test.go) uses for a program's argv.
func (e *Engine) RunWithArgs(v *value.Value, argLine string, userContext interface{}) (int32, error) {
	toks := splitArgs(argLine)
	params := make([]*value.Value, len(toks))
	for i, t := range toks {
		sv := value.NewIntrinsic(types.ID(value.KindString), value.KindString, false)
		sv.Str = t
		params[i] = sv
	}
	return e.Run(v, params, userContext)
}

func splitArgs(line string) []string {
	var out []string
	var cur []rune
	inQuotes := false
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}

func (e *Engine) reportThrow(t *except.Thrown, unwoundToOutermost bool) {
	if e.Interp.ErrHandler == nil {
		return
	}
	except.ReportThrow(e.Options.ExceptionPolicy, macroReporter{e.Interp.ErrHandler}, t, unwoundToOutermost)
}

// macroReporter adapts host.RuntimeErrorHandler (whose MacroException
// takes interface{}, to avoid an except<->host import cycle) to
// except.Reporter (which cml/except can depend on directly).
type macroReporter struct {
	h host.RuntimeErrorHandler
}

func (r macroReporter) MacroException(t *except.Thrown) {
	r.h.MacroException(t)
}
