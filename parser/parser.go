/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package parser

import (
	"strconv"
	"strings"

	"cml/class"
	"cml/cmlerr"
	"cml/config"
	"cml/host"
	"cml/types"
)

// Parser is CML's single-pass recursive-descent parser/compiler (spec
// §4.5). One Parser instance parses one top-level class and, recursively
// through the class manager, every class it imports.
type Parser struct {
	reg        *class.Registry
	manager    host.ClassManager
	resolver   host.FileResolver
	errHandler host.ParseErrorHandler
	opt        config.OptLevel

	// parseStack holds the class paths currently being parsed, innermost
	// last, so a re-entrant request to load one of them is rejected as a
	// circular dependency (spec §4.5, "Recursion / cycles").
	parseStack []string
	errCount   int

	curClassPath string

	lex *Lexer
	cur Token

	dynTypeClassPath string

	// pendingBodies accumulates the method signatures and raw body tokens
	// stashed while parsing the current class's Methods block;
	// compileMethodBodies compiles and drains them
	// onto the class once the whole class shell (and its imports) are
	// registered, so a method can resolve a call to a sibling method
	// declared later in the same file.
	pendingBodies []pendingMethod
}

// pendingMethod holds one method's signature and source tokens, parsed in
// declaration order but compiled (into opcode bodies) only after the whole
// class, its parent and its imports are registered -- spec §4.5's
// single-pass parse still needs two internal sub-passes for this reason:
// names used in a body may be declared later in the same Methods block.
type pendingMethod struct {
	desc       class.MethodDescriptor
	isCtor     bool
	isDtor     bool
	isOverride bool
	locals     []class.Local
	// stmts holds every token between the method's header (or its Locals
	// block) and its End* keyword, captured verbatim so the body compiler
	// can replay it once the class shell is complete.
	stmts []Token
}

// New returns a Parser wired to the host's collaborators.
func New(reg *class.Registry, manager host.ClassManager, resolver host.FileResolver, errHandler host.ParseErrorHandler, opt config.OptLevel) *Parser {
	return &Parser{reg: reg, manager: manager, resolver: resolver, errHandler: errHandler, opt: opt}
}

// Parse loads mainClassPath (and, recursively, everything it imports)
// through the class manager, compiles each into the registry, and reports
// whether the whole parse succeeded (spec §6, "parse(main_class_path, ...)
// -> (ok, main_class)").
func (p *Parser) Parse(mainClassPath string) (*class.Class, bool) {
	c, err := p.loadAndParseClass(mainClassPath)
	if err != nil {
		return nil, false
	}
	return c, p.errCount == 0
}

// ParseSource compiles already-in-memory class source text directly,
// bypassing the class manager -- used by hosts that embed class source as
// string literals rather than on disk, and by tests.
func (p *Parser) ParseSource(path, source string) (*class.Class, error) {
	return p.parseOne(path, source)
}

func (p *Parser) loadAndParseClass(path string) (*class.Class, error) {
	if existing, err := p.reg.ByPath(path); err == nil {
		return existing, nil
	}
	for _, onStack := range p.parseStack {
		if onStack == path {
			p.diag(host.DiagError, HintNone, 0, 0, "circular dependency loading class %q", path)
			return nil, cmlerr.New(cmlerr.KindCircular, "circular dependency: "+path)
		}
	}
	if p.manager == nil {
		return nil, cmlerr.New(cmlerr.KindNotFound, "no class manager installed to resolve: "+path)
	}
	rc, err := p.manager.Open(path, host.ModeRead)
	if err != nil {
		p.diag(host.DiagError, HintNone, 0, 0, "cannot open class %q: %v", path, err)
		return nil, err
	}
	defer rc.Close()
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, rerr := rc.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if rerr != nil {
			break
		}
	}

	p.parseStack = append(p.parseStack, path)
	c, perr := p.parseOne(path, b.String())
	p.parseStack = p.parseStack[:len(p.parseStack)-1]
	return c, perr
}

// parseOne compiles one class's full source text, resolving imports
// recursively before completing member/method compilation.
func (p *Parser) parseOne(path, source string) (*class.Class, error) {
	prevPath, prevLex, prevCur := p.curClassPath, p.lex, p.cur
	p.curClassPath = path
	p.lex = NewLexer(source)
	p.advance()
	defer func() { p.curClassPath, p.lex, p.cur = prevPath, prevLex, prevCur }()

	c, err := p.parseClass()
	if err != nil {
		return nil, err
	}

	for _, imp := range c.Imports {
		if _, err := p.loadAndParseClass(imp.Path); err != nil {
			return nil, err
		}
	}

	if _, err := p.reg.AddClass(c); err != nil {
		p.diag(host.DiagError, HintNone, 0, 0, "%v", err)
		return nil, err
	}
	if c.ParentPath != "" {
		if _, err := p.loadAndParseClass(c.ParentPath); err != nil {
			return nil, err
		}
	}
	if err := p.reg.BaseClassInit(c); err != nil {
		p.diag(host.DiagError, HintNone, 0, 0, "%v", err)
		return nil, err
	}

	if err := p.compileMethodBodies(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) advance() { p.cur = p.lex.Next() }

func (p *Parser) at(kw string) bool {
	return (p.cur.Kind == TokKeyword || p.cur.Kind == TokPunct) && p.cur.Text == kw
}

func (p *Parser) expect(kw string) bool {
	if p.at(kw) {
		p.advance()
		return true
	}
	p.diag(host.DiagError, HintRecover, p.cur.Line, p.cur.Col, "expected %q, found %q", kw, p.cur.Text)
	return false
}

// parseClass parses the header, directives, imports, nested types,
// literals, members and method signatures (spec §4.5 steps 1-7), leaving
// method bodies for compileMethodBodies once the full class shell, and
// every imported class, is registered.
func (p *Parser) parseClass() (*class.Class, error) {
	p.expect("Class")
	path := p.cur.Text
	p.advance()
	c := class.NewClass(path)

	for {
		switch {
		case p.at("ParentClass"):
			p.advance()
			c.ParentPath = p.cur.Text
			p.advance()
		case p.at("Final"):
			c.Extension = types.ExtFinal
			p.advance()
		case p.at("NonFinal"):
			c.Extension = types.ExtNonFinal
			p.advance()
		case p.at("Abstract"):
			c.Extension = types.ExtAbstract
			p.advance()
		default:
			goto header_done
		}
	}
header_done:

	if p.at("Directives") {
		p.advance()
		for !p.at("EndDirectives") && p.cur.Kind != TokEOF {
			key := p.cur.Text
			p.advance()
			p.expect("=")
			val := p.cur.Text
			p.advance()
			c.Directives[key] = val
		}
		p.expect("EndDirectives")
	}

	if p.at("Imports") {
		p.advance()
		for !p.at("EndImports") && p.cur.Kind != TokEOF {
			impPath := p.cur.Text
			p.advance()
			nested := false
			if p.at("Nested") {
				nested = true
				p.advance()
			}
			c.Imports = append(c.Imports, class.Import{Path: impPath, Nested: nested})
		}
		p.expect("EndImports")
	}

	if p.at("Types") {
		p.advance()
		for !p.at("EndTypes") && p.cur.Kind != TokEOF {
			p.parseNestedType(c)
		}
		p.expect("EndTypes")
	}

	if p.at("Literals") {
		p.advance()
		for !p.at("EndLiterals") && p.cur.Kind != TokEOF {
			p.parseLiteral(c)
		}
		p.expect("EndLiterals")
	}

	if p.at("Members") {
		p.advance()
		for !p.at("EndMembers") && p.cur.Kind != TokEOF {
			p.parseMember(c)
		}
		p.expect("EndMembers")
	}

	p.pendingBodies = nil
	if p.at("Methods") {
		p.advance()
		for !p.at("EndMethods") && p.cur.Kind != TokEOF {
			p.parseMethodSignatureAndStashBody(c)
		}
		p.expect("EndMethods")
	}

	return c, nil
}

func (p *Parser) parseNestedType(c *class.Class) {
	switch {
	case p.at("Enum"):
		p.advance()
		name := p.cur.Text
		p.advance()
		nt := class.NestedType{Name: name, Kind: class.NestedEnum}
		for !p.at("EndEnum") && p.cur.Kind != TokEOF {
			itemName := p.cur.Text
			p.advance()
			text := itemName
			if p.cur.Kind == TokString {
				text = p.cur.Text
				p.advance()
			}
			nt.EnumNames = append(nt.EnumNames, itemName)
			nt.EnumTexts = append(nt.EnumTexts, text)
		}
		p.expect("EndEnum")
		c.Nested[name] = nt

	case p.at("ArrayOf"), p.at("VectorOf"):
		bounded := p.at("ArrayOf")
		p.advance()
		name := p.cur.Text
		p.advance()
		elemType := p.cur.Text
		p.advance()
		nt := class.NestedType{Name: name, Kind: class.NestedVectorOf}
		if bounded {
			nt.Kind = class.NestedArrayOf
			n, _ := strconv.Atoi(p.cur.Text)
			nt.Bound = n
			p.advance()
		}
		if elemClass, err := p.reg.ResolveImportedClass(c, elemType); err == nil {
			nt.ElementTypeID = elemClass.ID
		}
		c.Nested[name] = nt

	default:
		p.diag(host.DiagError, HintRecover, p.cur.Line, p.cur.Col, "expected nested type declaration, found %q", p.cur.Text)
		p.recoverToAnchor("EndTypes")
	}
}

func (p *Parser) parseLiteral(c *class.Class) {
	name := p.cur.Text
	p.advance()
	p.expect(":")
	typeName := p.cur.Text
	p.advance()
	p.expect("=")
	lit := class.Literal{Name: name}
	switch typeName {
	case "Boolean":
		lit.B = p.at("True")
		p.advance()
	case "String":
		lit.S = p.cur.Text
		p.advance()
	case "Float4", "Float8":
		lit.F = p.cur.NumVal
		p.advance()
	default:
		lit.I = p.cur.IntVal
		p.advance()
	}
	c.Literals[name] = lit
}

func (p *Parser) parseMember(c *class.Class) {
	name := p.cur.Text
	p.advance()
	p.expect(":")
	typeName := p.cur.Text
	p.advance()
	constFl := false
	if p.at("Const") {
		constFl = true
		p.advance()
	}
	typeID := p.resolveTypeID(c, typeName)
	m := class.Member{Name: name, TypeID: typeID, Const: constFl, ID: types.ID(len(c.Members) + 1)}
	c.Members = append(c.Members, m)
}

// resolveTypeID resolves a type name to a class id, consulting the
// registry's imports/intrinsics and falling back to types.BadID (an
// unresolved name is reported as a DiagError diagnostic, spec §7
// "type-mismatch").
func (p *Parser) resolveTypeID(c *class.Class, name string) types.ID {
	if rc, err := p.reg.ResolveImportedClass(c, name); err == nil {
		return rc.ID
	}
	if rc, err := p.reg.ByPath(name); err == nil {
		return rc.ID
	}
	p.diag(host.DiagError, HintNone, p.cur.Line, p.cur.Col, "unresolved type name %q", name)
	return types.BadID
}
