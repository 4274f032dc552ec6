/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// cml is the reference host CLI: it parses a single macro class from a
// file-backed class tree, runs its Start method with whatever command-line
// arguments follow the class path, and exits with the macro's own exit
// code. Grounded on the teacher's cli_test.go (HandleCli's flag parsing
// and usage-message conventions), generalized from launching a JVM class
// file to parsing and running one CML macro class.
package main

import (
	"fmt"
	"os"
	"strings"

	"cml/config"
	"cml/engine"
	"cml/host"
	"cml/shutdown"
	"cml/trace"
)

const usage = `Usage: cml [options] <class-path> [macro args...]
where options include:
    -d <dir>       base directory the class tree is rooted at (default ".")
    -opt <level>   parser optimization level: minimal, medium, maximum (default medium)
    -v             verbose logging (FINE)
    -help          print this message
`

func main() {
	shutdown.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	baseDir := "."
	opt := config.OptMedium
	var rest []string

	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "-help", "--help", "-h":
			fmt.Fprint(os.Stderr, usage)
			return shutdown.OK
		case "-v":
			trace.SetLevel(trace.FINE)
		case "-d":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "cml: -d requires a directory argument")
				return shutdown.USAGE_ERROR
			}
			baseDir = args[i]
		case "-opt":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "cml: -opt requires a level argument")
				return shutdown.USAGE_ERROR
			}
			lvl, ok := parseOptLevel(args[i])
			if !ok {
				fmt.Fprintln(os.Stderr, "cml: unknown -opt level: "+args[i])
				return shutdown.USAGE_ERROR
			}
			opt = lvl
		default:
			rest = append(rest, args[i:]...)
			i = len(args)
		}
	}

	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return shutdown.USAGE_ERROR
	}
	mainClassPath, macroArgs := rest[0], rest[1:]

	opts := config.Default()
	opts.Optimization = opt
	opts.ClassManagerBaseDir = baseDir

	eng, err := engine.New(opts)
	if err != nil {
		trace.Error("cml: engine init: " + err.Error())
		return shutdown.INTERNAL_ERROR
	}

	errHandler := &cliParseErrors{}
	runtimeHandler := &cliRuntimeErrors{}
	eng.SetErrorHandler(runtimeHandler)

	manager := host.NewFileClassManager(baseDir, nil)
	ok, mainClass := eng.Parse(mainClassPath, errHandler, manager, nil)
	if !ok || mainClass == nil {
		trace.Error(fmt.Sprintf("cml: %s failed to parse (%d error(s))", mainClassPath, errHandler.count))
		return shutdown.USAGE_ERROR
	}

	v, err := eng.MakeStorage(mainClass.ID, "$main", false)
	if err != nil {
		trace.Error("cml: constructing main class instance: " + err.Error())
		return shutdown.INTERNAL_ERROR
	}
	if _, err := eng.InvokeDefaultCtor(v, nil); err != nil {
		trace.Error("cml: running default constructor: " + err.Error())
		return shutdown.INTERNAL_ERROR
	}

	code, err := eng.RunWithArgs(v, strings.Join(macroArgs, " "), nil)
	if err != nil {
		trace.Error("cml: " + err.Error())
		return int(shutdown.INTERNAL_ERROR)
	}
	return int(code)
}

func parseOptLevel(s string) (config.OptLevel, bool) {
	switch strings.ToLower(s) {
	case "minimal":
		return config.OptMinimal, true
	case "medium":
		return config.OptMedium, true
	case "maximum":
		return config.OptMaximum, true
	default:
		return 0, false
	}
}

// cliParseErrors reports parse diagnostics to stderr via trace, and counts
// errors so run() can decide whether parsing actually succeeded.
type cliParseErrors struct {
	count int
}

func (h *cliParseErrors) Event(kind host.DiagKind, text string, line, column int, classPath string) {
	if kind == host.DiagError || kind == host.DiagNativeException || kind == host.DiagUnknownException {
		h.count++
	}
	trace.Warning(fmt.Sprintf("%s:%d:%d: %s", classPath, line, column, text))
}

func (h *cliParseErrors) ExceptionCaught(caught error, line, column int, classPath string) {
	h.count++
	trace.Error(fmt.Sprintf("%s:%d:%d: %s", classPath, line, column, caught.Error()))
}

func (h *cliParseErrors) Exception(line, column int, classPath string) {
	h.count++
	trace.Error(fmt.Sprintf("%s:%d:%d: unknown parse exception", classPath, line, column))
}

// cliRuntimeErrors reports unhandled runtime failures to stderr via trace.
type cliRuntimeErrors struct{}

func (h *cliRuntimeErrors) NativeException(err error) {
	trace.Error("native error: " + err.Error())
}

func (h *cliRuntimeErrors) MacroException(thrown interface{}) {
	trace.Error(fmt.Sprintf("unhandled macro exception: %v", thrown))
}

func (h *cliRuntimeErrors) UnknownException() {
	trace.Error("unknown runtime exception")
}
