/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package parser

import (
	"fmt"
	"strings"

	"cml/class"
	"cml/cmlerr"
	"cml/host"
	"cml/opcode"
	"cml/types"
	"cml/value"
)

// opNameForSymbol maps a binary source operator to the intrinsic method
// name CML dispatches it through (spec §6, Design Note: the opcode set has
// no arithmetic or comparison opcodes -- every one of these compiles to a
// CallXxx the way a Smalltalk-style message send would).
var opNameForSymbol = map[string]string{
	"+": "Add", "-": "Subtract", "*": "Multiply", "/": "Divide", "%": "Modulo",
	"=": "Equals", "<>": "NotEquals",
	"<": "LessThan", ">": "GreaterThan", "<=": "LessThanEq", ">=": "GreaterThanEq",
}

// precedence gives each binary operator its climbing precedence; And/Or/Xor
// bind loosest, matching the teacher's usual expression-grammar ordering.
var precedence = map[string]int{
	"Or": 1, "Xor": 1,
	"And": 2,
	"=": 3, "<>": 3, "<": 3, ">": 3, "<=": 3, ">=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

// tparser replays a captured token slice with the same at/expect/advance
// shape as Parser itself, so the statement/expression compiler below reads
// just like the signature-pass grammar in parser.go. The lexer keeps dots
// inside identifiers (for class paths), so newTParser splits a dotted body
// identifier such as `x.Method` back into `x`, `.`, `Method` for the
// postfix-call grammar.
type tparser struct {
	toks []Token
	pos  int
	cur  Token
}

func newTParser(toks []Token) *tparser {
	var split []Token
	for _, t := range toks {
		if t.Kind != TokIdent || !strings.Contains(t.Text, ".") {
			split = append(split, t)
			continue
		}
		for i, part := range strings.Split(t.Text, ".") {
			if i > 0 {
				split = append(split, Token{Kind: TokPunct, Text: ".", Line: t.Line, Col: t.Col})
			}
			split = append(split, Token{Kind: TokIdent, Text: part, Line: t.Line, Col: t.Col})
		}
	}
	tp := &tparser{toks: split}
	tp.cur = tp.peek(0)
	return tp
}

func (tp *tparser) peek(n int) Token {
	i := tp.pos + n
	if i >= len(tp.toks) {
		return Token{Kind: TokEOF}
	}
	return tp.toks[i]
}

func (tp *tparser) advance() {
	tp.pos++
	tp.cur = tp.peek(0)
}

func (tp *tparser) at(kw string) bool {
	return (tp.cur.Kind == TokKeyword || tp.cur.Kind == TokPunct) && tp.cur.Text == kw
}

// symKind classifies a resolved identifier inside a method body.
type symKind int

const (
	symLocal symKind = iota
	symParam
	symMember
	symThis
	symLiteral
)

type symbol struct {
	kind   symKind
	index  int // local slot, param slot, or member id (1-based)
	typeID types.ID
}

// bodyCompiler holds the mutable state for compiling one method body: the
// class it belongs to, the in-progress bytecode body, the symbol table, and
// the stack of open flow-control constructs.
type bodyCompiler struct {
	p    *Parser
	c    *class.Class
	desc *class.MethodDescriptor
	body *class.MethodBody
	syms map[string]symbol
	tp   *tparser
	flow []*flowFrame
}

// flowKind names the open statement a flowFrame tracks.
type flowKind int

const (
	flowIf flowKind = iota
	flowWhile
	flowDoWhile
	flowSwitch
	flowTry
)

// flowFrame is one open control-flow construct awaiting its closing
// keyword; forwardJumps are code indices whose Offset needs patching to the
// eventual end-of-construct address (spec §4.5, "single-pass forward
// patching").
type flowFrame struct {
	kind          flowKind
	loopTop       int // code index the loop condition re-checks from
	forwardJumps  []int
	breakJumps    []int
	jumpTableID   int
	sawDefault    bool
	lastCaseJumps []int
}

// compileMethodBodies drains p.pendingBodies, appending each one's final
// MethodDescriptor (new methods only; overrides reuse the inherited id) and
// compiled MethodBody onto c, now that c's full inherited method/member
// list is in place (spec §4.5, steps 8-9).
func (p *Parser) compileMethodBodies(c *class.Class) error {
	for _, pm := range p.pendingBodies {
		desc := pm.desc
		if pm.isOverride {
			existing := c.MethodByName(desc.Name)
			if existing == nil {
				p.diag(host.DiagError, HintNone, 0, 0, "method %q marked Overrides but no inherited method with that name", desc.Name)
				return cmlerr.New(cmlerr.KindNotFound, "no inherited method to override: "+desc.Name)
			}
			desc.ID = existing.ID
			c.Methods[int(desc.ID)-1] = desc
		} else {
			desc.ID = types.ID(len(c.Methods) + 1)
			c.Methods = append(c.Methods, desc)
		}

		body := &class.MethodBody{MethodID: desc.ID}
		for _, l := range pm.locals {
			body.AddLocal(l)
		}

		bc := &bodyCompiler{p: p, c: c, desc: &desc, body: body, syms: make(map[string]symbol)}
		for i, l := range pm.locals {
			bc.syms[l.Name] = symbol{kind: symLocal, index: i, typeID: l.TypeID}
		}
		for i, prm := range desc.Params {
			bc.syms[prm.Name] = symbol{kind: symParam, index: i, typeID: prm.TypeID}
		}
		for _, m := range c.Members {
			bc.syms[m.Name] = symbol{kind: symMember, index: int(m.ID), typeID: m.TypeID}
		}

		bc.tp = newTParser(pm.stmts)
		if err := bc.compileStatements(endKeywordFor(pm)); err != nil {
			p.diag(host.DiagError, HintNone, 0, 0, "%v", err)
			return err
		}
		body.Code = append(body.Code, opcode.New(opcode.Return))
		c.Bodies = append(c.Bodies, body)
	}
	p.pendingBodies = nil
	return nil
}

func endKeywordFor(pm pendingMethod) string {
	switch {
	case pm.isCtor:
		return "EndConstructor"
	case pm.isDtor:
		return "EndDestructor"
	default:
		return "EndMethod"
	}
}

// parseMethodSignatureAndStashBody parses one Method/Constructor/Destructor
// header and captures its body's raw tokens for later compilation (spec
// §4.5, "two internal sub-passes"): the signature is known immediately so
// sibling methods can call it, but the body is compiled only once the whole
// class (and its parent) is registered.
func (p *Parser) parseMethodSignatureAndStashBody(c *class.Class) {
	var pm pendingMethod
	switch {
	case p.at("Constructor"):
		p.advance()
		pm.isCtor = true
		pm.desc.Name = "$Constructor"
		pm.desc.Constructor = true
		pm.desc.Params = p.parseParamList(c)
	case p.at("Destructor"):
		p.advance()
		pm.isDtor = true
		pm.desc.Name = "$Destructor"
	default:
		p.expect("Method")
		pm.desc.Name = p.cur.Text
		p.advance()
		pm.desc.Params = p.parseParamList(c)
		if p.at("Returns") {
			p.advance()
			pm.desc.ReturnType = p.resolveTypeID(c, p.cur.Text)
			p.advance()
		}
		if p.at("Overrides") {
			p.advance()
			pm.isOverride = true
		}
		if p.at("Final") {
			pm.desc.Extension = types.ExtFinal
			p.advance()
		}
		if p.at("Private") {
			pm.desc.Visibility = types.VisPrivate
			p.advance()
		}
	}

	if p.at("Locals") {
		p.advance()
		for !p.at("EndLocals") && p.cur.Kind != TokEOF {
			name := p.cur.Text
			p.advance()
			p.expect(":")
			typeID := p.resolveTypeID(c, p.cur.Text)
			p.advance()
			constFl := false
			if p.at("Const") {
				constFl = true
				p.advance()
			}
			pm.locals = append(pm.locals, class.Local{Name: name, TypeID: typeID, Const: constFl})
		}
		p.expect("EndLocals")
	}

	end := "EndMethod"
	if pm.isCtor {
		end = "EndConstructor"
	} else if pm.isDtor {
		end = "EndDestructor"
	}
	for !p.at(end) && p.cur.Kind != TokEOF {
		pm.stmts = append(pm.stmts, p.cur)
		p.advance()
	}
	p.expect(end)

	p.pendingBodies = append(p.pendingBodies, pm)
}

func (p *Parser) parseParamList(c *class.Class) []class.Parameter {
	var params []class.Parameter
	p.expect("(")
	for !p.at(")") && p.cur.Kind != TokEOF {
		dir := types.DirIn
		if p.at("Out") {
			dir = types.DirOut
			p.advance()
		} else if p.at("InOut") {
			dir = types.DirInOut
			p.advance()
		} else if p.at("In") {
			p.advance()
		}
		name := p.cur.Text
		p.advance()
		p.expect(":")
		typeID := p.resolveTypeID(c, p.cur.Text)
		p.advance()
		params = append(params, class.Parameter{Name: name, TypeID: typeID, Direction: dir})
		if p.at(",") {
			p.advance()
		}
	}
	p.expect(")")
	return params
}

// --- statement compiler ---------------------------------------------------

func (bc *bodyCompiler) emit(o opcode.Opcode) int {
	bc.body.Code = append(bc.body.Code, o)
	return len(bc.body.Code) - 1
}

func (bc *bodyCompiler) here() int { return len(bc.body.Code) }

func (bc *bodyCompiler) patch(idx, target int) { bc.body.Code[idx].Offset = target }

func (bc *bodyCompiler) err(format string, args ...interface{}) error {
	return cmlerr.New(cmlerr.KindFormat, fmt.Sprintf(format, args...))
}

// compileStatements compiles statements until it hits one of the stop
// keywords (an End* keyword, or a sibling keyword like Else/ElseIf/Case
// that a caller further up the recursion needs to see uncomsumed).
func (bc *bodyCompiler) compileStatements(stops ...string) error {
	for {
		if bc.tp.cur.Kind == TokEOF {
			return nil
		}
		for _, s := range stops {
			if bc.tp.at(s) {
				return nil
			}
		}
		if err := bc.compileOneStatement(); err != nil {
			return err
		}
	}
}

func (bc *bodyCompiler) compileOneStatement() error {
	tp := bc.tp
	switch {
	case tp.at("If"):
		return bc.compileIf()
	case tp.at("While"):
		return bc.compileWhile()
	case tp.at("DoWhile"):
		return bc.compileDoWhile()
	case tp.at("Switch"):
		return bc.compileSwitch()
	case tp.at("Try"):
		return bc.compileTry()
	case tp.at("Throw"):
		return bc.compileThrow(false)
	case tp.at("Rethrow"):
		tp.advance()
		bc.emit(opcode.New(opcode.PushException))
		bc.emit(opcode.New(opcode.Throw))
		return nil
	case tp.at("Return"):
		tp.advance()
		if !tp.at("EndMethod") && !tp.at("EndConstructor") && !tp.at("EndDestructor") && tp.cur.Kind != TokEOF {
			if _, err := bc.compileExpr(0); err != nil {
				return err
			}
			bc.emit(opcode.New(opcode.PopToReturn))
		}
		bc.emit(opcode.New(opcode.Return))
		return nil
	case tp.at("Break"):
		tp.advance()
		var target *flowFrame
		for i := len(bc.flow) - 1; i >= 0 && target == nil; i-- {
			if bc.flow[i].kind != flowTry {
				target = bc.flow[i]
			}
		}
		if target == nil {
			return bc.err("Break outside of a loop or switch")
		}
		idx := bc.emit(opcode.WithOffset(opcode.Jump, 0))
		target.breakJumps = append(target.breakJumps, idx)
		return nil
	default:
		return bc.compileAssignOrCallStmt()
	}
}

// compileAssignOrCallStmt compiles either `target := expr` (Copy+PopTop) or
// a bare expression statement evaluated for its side effect (a call),
// discarding any pushed result. Only a single leading `name :=` is
// recognized; `:=` is not an expression operator, so `a := b := 5` does
// not compile.
func (bc *bodyCompiler) compileAssignOrCallStmt() error {
	tp := bc.tp
	if tp.cur.Kind != TokIdent && tp.cur.Kind != TokKeyword {
		return bc.err("unexpected token %q in statement position", tp.cur.Text)
	}
	name := tp.cur.Text
	save := tp.pos
	tp.advance()
	if tp.at(":=") {
		tp.advance()
		if err := bc.pushLValue(name); err != nil {
			return err
		}
		if _, err := bc.compileExpr(0); err != nil {
			return err
		}
		bc.emit(opcode.New(opcode.Copy))
		bc.emit(opcode.New(opcode.PopTop))
		return nil
	}
	tp.pos = save
	tp.cur = tp.peek(0)
	if _, err := bc.compileExpr(0); err != nil {
		return err
	}
	bc.emit(opcode.New(opcode.PopTop))
	return nil
}

func (bc *bodyCompiler) pushLValue(name string) error {
	sym, ok := bc.syms[name]
	if !ok {
		return bc.err("unknown identifier %q", name)
	}
	switch sym.kind {
	case symLocal:
		bc.emit(opcode.WithIdx(opcode.PushLocal, types.ID(sym.index)))
	case symParam:
		bc.emit(opcode.WithIdx(opcode.PushParm, types.ID(sym.index)))
	case symMember:
		bc.emit(opcode.WithIdx(opcode.PushMember, types.ID(sym.index)))
	default:
		return bc.err("%q is not assignable", name)
	}
	return nil
}

func (bc *bodyCompiler) compileIf() error {
	tp := bc.tp
	tp.advance()
	if _, err := bc.compileExpr(0); err != nil {
		return err
	}
	var endJumps []int
	notJump := bc.emit(opcode.WithOffset(opcode.NotCondJump, 0))
	if err := bc.compileStatements("ElseIf", "Else", "EndIf"); err != nil {
		return err
	}
	for tp.at("ElseIf") {
		j := bc.emit(opcode.WithOffset(opcode.Jump, 0))
		endJumps = append(endJumps, j)
		bc.patch(notJump, bc.here())
		tp.advance()
		if _, err := bc.compileExpr(0); err != nil {
			return err
		}
		notJump = bc.emit(opcode.WithOffset(opcode.NotCondJump, 0))
		if err := bc.compileStatements("ElseIf", "Else", "EndIf"); err != nil {
			return err
		}
	}
	if tp.at("Else") {
		j := bc.emit(opcode.WithOffset(opcode.Jump, 0))
		endJumps = append(endJumps, j)
		bc.patch(notJump, bc.here())
		tp.advance()
		if err := bc.compileStatements("EndIf"); err != nil {
			return err
		}
		notJump = -1
	}
	if !tp.at("EndIf") {
		return bc.err("expected EndIf")
	}
	tp.advance()
	if notJump >= 0 {
		bc.patch(notJump, bc.here())
	}
	for _, j := range endJumps {
		bc.patch(j, bc.here())
	}
	return nil
}

func (bc *bodyCompiler) compileWhile() error {
	tp := bc.tp
	tp.advance()
	top := bc.here()
	if _, err := bc.compileExpr(0); err != nil {
		return err
	}
	exitJump := bc.emit(opcode.WithOffset(opcode.NotCondJump, 0))
	fr := &flowFrame{kind: flowWhile, loopTop: top}
	bc.flow = append(bc.flow, fr)
	if err := bc.compileStatements("EndWhile"); err != nil {
		return err
	}
	bc.flow = bc.flow[:len(bc.flow)-1]
	if !tp.at("EndWhile") {
		return bc.err("expected EndWhile")
	}
	tp.advance()
	bc.emit(opcode.WithOffset(opcode.Jump, top))
	end := bc.here()
	bc.patch(exitJump, end)
	for _, j := range fr.breakJumps {
		bc.patch(j, end)
	}
	return nil
}

func (bc *bodyCompiler) compileDoWhile() error {
	tp := bc.tp
	tp.advance()
	top := bc.here()
	fr := &flowFrame{kind: flowDoWhile, loopTop: top}
	bc.flow = append(bc.flow, fr)
	if err := bc.compileStatements("EndLoop"); err != nil {
		return err
	}
	bc.flow = bc.flow[:len(bc.flow)-1]
	if !tp.at("EndLoop") {
		return bc.err("expected EndLoop")
	}
	tp.advance()
	if _, err := bc.compileExpr(0); err != nil {
		return err
	}
	bc.emit(opcode.WithOffset(opcode.CondJump, top))
	end := bc.here()
	for _, j := range fr.breakJumps {
		bc.patch(j, end)
	}
	return nil
}

// compileSwitch compiles `Switch <expr> Case <lit>: ... Default: ... EndSwitch`
// into a TableJump opcode plus one jump table entry per case (spec §4.3,
// "jump tables").
func (bc *bodyCompiler) compileSwitch() error {
	tp := bc.tp
	tp.advance()
	if _, err := bc.compileExpr(0); err != nil {
		return err
	}
	jtID := bc.body.AddJumpTable()
	tableIdx := bc.emit(opcode.WithIdx(opcode.TableJump, types.ID(jtID)))
	fr := &flowFrame{kind: flowSwitch, jumpTableID: jtID}
	bc.flow = append(bc.flow, fr)

	jt := bc.body.JumpTables[jtID]
	for tp.at("Case") || tp.at("Default") {
		isDefault := tp.at("Default")
		tp.advance()
		var key int64
		if !isDefault {
			key = tp.cur.IntVal
			tp.advance()
		}
		tp.at(":") // optional colon separator, consumed below if present
		if tp.at(":") {
			tp.advance()
		}
		target := bc.here()
		if isDefault {
			jt.DefaultTarget = target
			fr.sawDefault = true
		} else {
			jt.Cases[key] = target
		}
		if err := bc.compileStatements("Case", "Default", "EndSwitch"); err != nil {
			return err
		}
		j := bc.emit(opcode.WithOffset(opcode.Jump, 0))
		fr.breakJumps = append(fr.breakJumps, j)
	}
	if !tp.at("EndSwitch") {
		return bc.err("expected EndSwitch")
	}
	tp.advance()
	end := bc.here()
	if !fr.sawDefault {
		jt.DefaultTarget = end
	}
	for _, j := range fr.breakJumps {
		bc.patch(j, end)
	}
	_ = tableIdx
	bc.flow = bc.flow[:len(bc.flow)-1]
	return nil
}

// compileTry compiles `Try ... Catch ... EndTry` using the Try/EndTry
// opcodes directly: Try pushes a marker carrying the catch offset, and a
// normal fall-through out of the guarded region must itself jump past the
// catch body so it never executes on the no-exception path (spec §4.4).
func (bc *bodyCompiler) compileTry() error {
	tp := bc.tp
	tp.advance()
	tryIdx := bc.emit(opcode.WithOffset(opcode.Try, 0))
	fr := &flowFrame{kind: flowTry}
	bc.flow = append(bc.flow, fr)
	if err := bc.compileStatements("Catch", "EndTry"); err != nil {
		return err
	}
	bc.flow = bc.flow[:len(bc.flow)-1]
	bc.emit(opcode.New(opcode.EndTry))
	skip := bc.emit(opcode.WithOffset(opcode.Jump, 0))
	bc.patch(tryIdx, bc.here())
	if tp.at("Catch") {
		tp.advance()
		if err := bc.compileStatements("EndTry"); err != nil {
			return err
		}
	}
	if !tp.at("EndTry") {
		return bc.err("expected EndTry")
	}
	tp.advance()
	bc.patch(skip, bc.here())
	return nil
}

func (bc *bodyCompiler) compileThrow(fmtForm bool) error {
	tp := bc.tp
	tp.advance()
	if _, err := bc.compileExpr(0); err != nil {
		return err
	}
	if tp.at("(") {
		tp.advance()
		n := 0
		for !tp.at(")") && tp.cur.Kind != TokEOF {
			if _, err := bc.compileExpr(0); err != nil {
				return err
			}
			n++
			if tp.at(",") {
				tp.advance()
			}
		}
		tp.advance()
		bc.emit(opcode.WithIdx(opcode.ThrowFmt, types.ID(n)))
		return nil
	}
	bc.emit(opcode.New(opcode.Throw))
	return nil
}

// --- expression compiler ---------------------------------------------------

// compileExpr climbs operator precedence starting at minPrec, leaving
// exactly one value on the stack (spec §6: arithmetic/comparison compile
// to CallXxx method-call opcodes; And/Or/Xor alone get dedicated opcodes).
// It returns the static type of the value left on the stack, used to
// resolve the next operator's method and to type locals assigned from it.
func (bc *bodyCompiler) compileExpr(minPrec int) (types.ID, error) {
	lhsType, err := bc.compileUnary()
	if err != nil {
		return types.BadID, err
	}
	return bc.climbFrom(lhsType, minPrec)
}

// climbFrom continues a precedence climb from an operand of type lhsType
// that is already on the stack, consuming operators of at least minPrec.
func (bc *bodyCompiler) climbFrom(lhsType types.ID, minPrec int) (types.ID, error) {
	for {
		opTxt := bc.tp.cur.Text
		prec, ok := precedence[opTxt]
		if !ok || prec < minPrec {
			return lhsType, nil
		}
		bc.tp.advance()
		rhsType, err := bc.compileUnary()
		if err != nil {
			return types.BadID, err
		}
		for {
			nextTxt := bc.tp.cur.Text
			nextPrec, ok2 := precedence[nextTxt]
			if !ok2 || nextPrec <= prec {
				break
			}
			if rhsType, err = bc.climbFrom(rhsType, nextPrec); err != nil {
				return types.BadID, err
			}
		}
		if opTxt == "And" || opTxt == "Or" || opTxt == "Xor" {
			var op opcode.Op
			switch opTxt {
			case "And":
				op = opcode.LogicalAnd
			case "Or":
				op = opcode.LogicalOr
			default:
				op = opcode.LogicalXor
			}
			bc.emit(opcode.New(op))
			continue
		}
		methodName, ok := opNameForSymbol[opTxt]
		if !ok {
			return types.BadID, bc.err("unknown operator %q", opTxt)
		}
		lhsType, err = bc.emitOperatorCall(lhsType, methodName)
		if err != nil {
			return types.BadID, err
		}
	}
}

// emitOperatorCall resolves methodName on the class lhsType names (its
// intrinsic/user class's Methods list), emits the matching CallMember, and
// returns the result's declared type.
func (bc *bodyCompiler) emitOperatorCall(lhsType types.ID, methodName string) (types.ID, error) {
	owner, err := bc.p.reg.ByID(lhsType)
	if err != nil {
		return types.BadID, bc.err("operator %s: unknown operand type", methodName)
	}
	m := owner.MethodByName(methodName)
	if m == nil {
		return types.BadID, bc.err("class %s has no method %s", owner.Path, methodName)
	}
	bc.emit(opcode.WithIdx(opcode.CallMember, m.ID, 1))
	return m.ReturnType, nil
}

// compileUnary handles Not/Negate prefix operators, then falls through to a
// primary expression.
func (bc *bodyCompiler) compileUnary() (types.ID, error) {
	tp := bc.tp
	if tp.at("Not") || tp.at("-") {
		isNot := tp.at("Not")
		tp.advance()
		t, err := bc.compileUnary()
		if err != nil {
			return types.BadID, err
		}
		if isNot {
			bc.emit(opcode.New(opcode.Negate))
		} else {
			bc.emit(opcode.New(opcode.Negate))
		}
		return t, nil
	}
	return bc.compilePrimary()
}

func (bc *bodyCompiler) compilePrimary() (types.ID, error) {
	tp := bc.tp
	switch {
	case tp.at("("):
		tp.advance()
		t, err := bc.compileExpr(0)
		if err != nil {
			return types.BadID, err
		}
		if !tp.at(")") {
			return types.BadID, bc.err("expected )")
		}
		tp.advance()
		return t, nil

	case tp.cur.Kind == TokNumber:
		return bc.compileNumberLiteral()

	case tp.cur.Kind == TokString:
		s := tp.cur.Text
		tp.advance()
		idx := bc.body.AddString(s, true)
		bc.emit(opcode.WithIdx(opcode.PushStrPoolItem, types.ID(idx)))
		return types.ID(value.KindString), nil

	case tp.cur.Kind == TokChar:
		r := []rune(tp.cur.Text)
		tp.advance()
		var c rune
		if len(r) > 0 {
			c = r[0]
		}
		bc.emit(opcode.WithNumeric(opcode.PushImChar, opcode.Numeric{Char: c}))
		return types.ID(value.KindChar), nil

	case tp.at("True"), tp.at("False"):
		b := tp.at("True")
		tp.advance()
		bc.emit(opcode.WithNumeric(opcode.PushImBoolean, opcode.Numeric{Bool: b}))
		return types.ID(value.KindBoolean), nil

	case tp.cur.Kind == TokIdent && tp.cur.Text == types.ExceptionMagicName:
		tp.advance()
		bc.emit(opcode.New(opcode.PushException))
		curType := types.BadID
		if exc, err := bc.p.reg.ByPath(types.RootClassPath + ".Exception"); err == nil {
			curType = exc.ID
		}
		return bc.compilePostfixOps(curType)

	case tp.cur.Kind == TokIdent || tp.cur.Kind == TokKeyword:
		return bc.compileIdentOrCall()

	default:
		return types.BadID, bc.err("unexpected token %q in expression", tp.cur.Text)
	}
}

func (bc *bodyCompiler) compileNumberLiteral() (types.ID, error) {
	tp := bc.tp
	tok := tp.cur
	tp.advance()
	if tok.IsFloat {
		if tok.Width == "F4" {
			bc.emit(opcode.WithNumeric(opcode.PushImFloat4, opcode.Numeric{Float32: float32(tok.NumVal)}))
			return types.ID(value.KindFloat4), nil
		}
		bc.emit(opcode.WithNumeric(opcode.PushImFloat8, opcode.Numeric{Float64: tok.NumVal}))
		return types.ID(value.KindFloat8), nil
	}
	switch tok.Width {
	case "C1":
		bc.emit(opcode.WithNumeric(opcode.PushImCard1, opcode.Numeric{Uint8: uint8(tok.IntVal)}))
		return types.ID(value.KindCard1), nil
	case "C2":
		bc.emit(opcode.WithNumeric(opcode.PushImCard2, opcode.Numeric{Uint16: uint16(tok.IntVal)}))
		return types.ID(value.KindCard2), nil
	case "C8":
		bc.emit(opcode.WithNumeric(opcode.PushImCard8, opcode.Numeric{Uint64: uint64(tok.IntVal)}))
		return types.ID(value.KindCard8), nil
	case "I1":
		bc.emit(opcode.WithNumeric(opcode.PushImInt1, opcode.Numeric{Int8: int8(tok.IntVal)}))
		return types.ID(value.KindInt1), nil
	case "I2":
		bc.emit(opcode.WithNumeric(opcode.PushImInt2, opcode.Numeric{Int16: int16(tok.IntVal)}))
		return types.ID(value.KindInt2), nil
	case "I4":
		bc.emit(opcode.WithNumeric(opcode.PushImInt4, opcode.Numeric{Int32: int32(tok.IntVal)}))
		return types.ID(value.KindInt4), nil
	default:
		bc.emit(opcode.WithNumeric(opcode.PushImCard4, opcode.Numeric{Uint32: uint32(tok.IntVal)}))
		return types.ID(value.KindCard4), nil
	}
}

// compileIdentOrCall compiles a bare identifier (local/member/param/This),
// optionally followed by `.Method(args)` or `[index]` postfixes.
func (bc *bodyCompiler) compileIdentOrCall() (types.ID, error) {
	tp := bc.tp
	name := tp.cur.Text
	tp.advance()

	var curType types.ID
	if name == "This" {
		bc.emit(opcode.New(opcode.PushThis))
		curType = bc.c.ID
	} else {
		sym, ok := bc.syms[name]
		if !ok {
			return types.BadID, bc.err("unknown identifier %q", name)
		}
		switch sym.kind {
		case symLocal:
			bc.emit(opcode.WithIdx(opcode.PushLocal, types.ID(sym.index)))
		case symParam:
			bc.emit(opcode.WithIdx(opcode.PushParm, types.ID(sym.index)))
		case symMember:
			bc.emit(opcode.WithIdx(opcode.PushMember, types.ID(sym.index)))
		}
		curType = sym.typeID
	}

	return bc.compilePostfixOps(curType)
}

// compilePostfixOps compiles a `.Method(args)` / `[index]` chain following
// an already-pushed value of type curType -- shared by compileIdentOrCall
// and the `$Exception` primary, both of which push a value onto the operand
// stack and then need the same postfix handling.
func (bc *bodyCompiler) compilePostfixOps(curType types.ID) (types.ID, error) {
	tp := bc.tp
	for {
		switch {
		case tp.at("."):
			tp.advance()
			methodName := tp.cur.Text
			tp.advance()
			owner, err := bc.p.reg.ByID(curType)
			if err != nil {
				return types.BadID, bc.err("cannot call %s on unresolved type", methodName)
			}
			m := owner.MethodByName(methodName)
			if m == nil {
				return types.BadID, bc.err("class %s has no method %s", owner.Path, methodName)
			}
			n := 0
			if tp.at("(") {
				tp.advance()
				for !tp.at(")") && tp.cur.Kind != TokEOF {
					if _, err := bc.compileExpr(0); err != nil {
						return types.BadID, err
					}
					n++
					if tp.at(",") {
						tp.advance()
					}
				}
				tp.advance()
			}
			bc.emit(opcode.WithIdx(opcode.CallMember, m.ID, types.ID(n)))
			curType = m.ReturnType

		case tp.at("["):
			tp.advance()
			if _, err := bc.compileExpr(0); err != nil {
				return types.BadID, err
			}
			if !tp.at("]") {
				return types.BadID, bc.err("expected ]")
			}
			tp.advance()
			bc.emit(opcode.New(opcode.ColIndex))

		default:
			return curType, nil
		}
	}
}
