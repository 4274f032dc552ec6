/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package interp

import (
	"cml/class"
	"cml/cmlerr"
	"cml/config"
	"cml/except"
	"cml/host"
	"cml/opcode"
	"cml/types"
	"cml/value"
)

// Interpreter is CML's stack-based virtual machine (spec §4.4). One
// instance belongs to exactly one engine and is single-threaded cooperative
// (spec §5): every public entry point must be called from one goroutine at
// a time.
type Interpreter struct {
	Registry *class.Registry
	Stack    *CallStack
	TempPool *TempPool

	CurLine int

	Debugger   host.Debugger
	ErrHandler host.RuntimeErrorHandler
	Policy     config.ReportPolicy

	// DynTypeClassPath holds the class path the host set for $DynTypeRef
	// (spec §6). It is stored only: no opcode handler reads it, and the
	// parser does not resolve $DynTypeRef as a type name.
	DynTypeClassPath string

	// lastThrown is the single in-flight macro exception value (spec
	// glossary, "thrown exception value"); PushException reads it inside a
	// catch block.
	lastThrown *except.Thrown
}

// New builds an Interpreter over the given registry and options.
func New(reg *class.Registry, opts config.Options) *Interpreter {
	return &Interpreter{
		Registry: reg,
		Stack:    NewCallStack(opts.InitialStackSlots),
		TempPool: NewTempPool(reg, opts.TempPoolRingSize),
		Debugger: host.NoopDebugger{},
		Policy:   opts.ExceptionPolicy,
	}
}

// Invoke is the interpreter's host-facing entry point (spec §4.4,
// "invoke(value, method_id, dispatch_mode)"). It pushes a method-call frame
// and runs until the matching Return pops that frame or an unhandled
// exception propagates all the way out.
func (in *Interpreter) Invoke(recv *value.Value, methodID types.ID, mode types.DispatchMode, args []*value.Value) (*value.Value, *except.Thrown, error) {
	var targetClassID types.ID
	if recv != nil {
		targetClassID = recv.ClassID
	}
	callee, err := in.Registry.ByID(targetClassID)
	if err != nil {
		return nil, nil, err
	}
	method := callee.MethodByID(methodID)
	if method == nil {
		return nil, nil, cmlerr.New(cmlerr.KindNotFound, "Invoke: no such method id")
	}
	body := callee.BodyForMethod(methodID)
	if body == nil {
		return nil, nil, cmlerr.New(cmlerr.KindNotFound, "Invoke: method has no body")
	}
	_ = mode // Invoke always resolves polymorphically on recv's runtime class; CallParent alone dispatches monomorphically.

	return in.callDirect(callee, method, body, recv, args, nil)
}

// callDirect pushes a fresh frame for (callee, method, body) bound to recv
// and args, and runs it to completion. Nested CallXxx opcodes recurse into
// Go's own call stack; the shared CallStack still models spec §3's tagged
// call-stack items (frames, locals, try/exception markers) independently of
// what drives control flow across the nesting.
func (in *Interpreter) callDirect(callee *class.Class, method *class.MethodDescriptor, body *class.MethodBody, recv *value.Value, args []*value.Value, caller *Frame) (*value.Value, *except.Thrown, error) {
	fr := &Frame{
		CalleeClass: callee,
		Method:      method,
		This:        recv,
		Params:      args,
	}
	if caller != nil {
		fr.CallerClass = caller.CalleeClass
		fr.CallerMethod = caller.Method
		fr.CallerBody = caller.Body
		fr.CallerReturn = caller.IP
		fr.CallerLine = caller.Line
	}

	if body.Host != nil {
		return in.runHostMethod(fr, body, args)
	}
	fr.Body = body
	return in.runBytecode(fr)
}

// runHostMethod invokes an intrinsic's Go-implemented body. raw[0] is
// always the receiver (nil for a static/BaseInfo call), raw[1:] the
// argument list, mirroring the bytecode path's recv+args split.
func (in *Interpreter) runHostMethod(fr *Frame, body *class.MethodBody, args []*value.Value) (*value.Value, *except.Thrown, error) {
	in.Stack.PushFrame(fr)
	defer in.Stack.TruncateTo(fr.stackBase-1, in.TempPool.Release)

	raw := make([]interface{}, len(args)+1)
	raw[0] = fr.This
	for i, a := range args {
		raw[i+1] = a
	}
	result, err := body.Host(raw)
	if err != nil {
		if in.ErrHandler != nil {
			in.ErrHandler.NativeException(err)
		}
		return nil, nil, err
	}
	if result == nil {
		return nil, nil, nil
	}
	v, ok := result.(*value.Value)
	if !ok {
		return nil, nil, cmlerr.New(cmlerr.KindTypeMismatch, "host method returned a non-Value result")
	}
	return v, nil, nil
}

// runBytecode runs fr's method body to completion from ip 0, implementing
// the opcode dispatch loop (spec §4.4).
func (in *Interpreter) runBytecode(fr *Frame) (*value.Value, *except.Thrown, error) {
	in.Stack.PushFrame(fr)

	for _, l := range fr.Body.Locals {
		lv, err := value.Construct(in.Registry, l.TypeID, l.Const)
		if err != nil {
			in.finishFrame(fr)
			return nil, nil, err
		}
		fr.Locals = append(fr.Locals, lv)
		in.Stack.PushValue(lv, SubLocal)
	}

	for {
		if fr.IP < 0 || fr.IP >= len(fr.Body.Code) {
			// Falling off the end of a method body with no explicit Return
			// is a Void return.
			in.finishFrame(fr)
			return nil, nil, nil
		}
		op := fr.Body.Code[fr.IP]
		fr.IP++
		fr.Line = op.Line
		in.CurLine = op.Line

		result, thrown, ret, err := in.step(fr, op)
		if err != nil {
			in.finishFrame(fr)
			return nil, nil, err
		}
		if thrown != nil {
			if in.handleThrow(fr, thrown) {
				continue
			}
			in.finishFrame(fr)
			return nil, thrown, nil
		}
		if ret {
			in.finishFrame(fr)
			return result, nil, nil
		}
	}
}

// finishFrame pops every item pushed since fr (locals, temps, leftover
// expression values) and then the frame item itself.
func (in *Interpreter) finishFrame(fr *Frame) {
	in.Stack.TruncateTo(fr.stackBase, in.TempPool.Release)
	in.Stack.TruncateTo(fr.stackBase-1, in.TempPool.Release)
}

// handleThrow searches fr's own region of the call stack (from the current
// top down to and including fr's frame item) for the nearest Try marker.
// If found, it unwinds to it, drops the marker, and resumes at the catch
// offset. If not found, it reports false and the caller (runBytecode)
// treats this as a pending exception that propagates to whichever frame
// called this one (spec §4.4, "Throw").
func (in *Interpreter) handleThrow(fr *Frame, t *except.Thrown) bool {
	in.lastThrown = t
	s := in.Stack
	for idx := s.sp - 1; idx >= fr.stackBase-1; idx-- {
		if s.slots[idx].Kind == ItemTry {
			offset := s.slots[idx].CatchOffset
			s.TruncateTo(idx, in.TempPool.Release) // drops the marker itself and everything above it
			fr.IP = offset
			return true
		}
	}
	return false
}

// step executes one opcode. It returns (result, thrown, isReturn, err):
// exactly one of thrown!=nil, isReturn==true, or neither (normal
// continuation) holds on success.
func (in *Interpreter) step(fr *Frame, op opcode.Opcode) (*value.Value, *except.Thrown, bool, error) {
	switch op.Op {
	case opcode.NoOp, opcode.CurLine:
		return nil, nil, false, nil

	case opcode.PushCurLine:
		v := value.NewIntrinsic(types.ID(value.KindCard4), value.KindCard4, false)
		v.Num.U32 = uint32(op.Line)
		in.Stack.PushValue(v, SubTemp)

	case opcode.PushImBoolean:
		v := value.NewIntrinsic(types.ID(value.KindBoolean), value.KindBoolean, false)
		v.Num.Bool = op.Num.Bool
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImChar:
		v := value.NewIntrinsic(types.ID(value.KindChar), value.KindChar, false)
		v.Num.Char = op.Num.Char
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImCard1:
		v := value.NewIntrinsic(types.ID(value.KindCard1), value.KindCard1, false)
		v.Num.U8 = op.Num.Uint8
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImCard2:
		v := value.NewIntrinsic(types.ID(value.KindCard2), value.KindCard2, false)
		v.Num.U16 = op.Num.Uint16
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImCard4:
		v := value.NewIntrinsic(types.ID(value.KindCard4), value.KindCard4, false)
		v.Num.U32 = op.Num.Uint32
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImCard8:
		v := value.NewIntrinsic(types.ID(value.KindCard8), value.KindCard8, false)
		v.Num.U64 = op.Num.Uint64
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImInt1:
		v := value.NewIntrinsic(types.ID(value.KindInt1), value.KindInt1, false)
		v.Num.I8 = op.Num.Int8
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImInt2:
		v := value.NewIntrinsic(types.ID(value.KindInt2), value.KindInt2, false)
		v.Num.I16 = op.Num.Int16
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImInt4:
		v := value.NewIntrinsic(types.ID(value.KindInt4), value.KindInt4, false)
		v.Num.I32 = op.Num.Int32
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImFloat4:
		v := value.NewIntrinsic(types.ID(value.KindFloat4), value.KindFloat4, false)
		v.Num.F32 = op.Num.Float32
		in.Stack.PushValue(v, SubTemp)
	case opcode.PushImFloat8:
		v := value.NewIntrinsic(types.ID(value.KindFloat8), value.KindFloat8, false)
		v.Num.F64 = op.Num.Float64
		in.Stack.PushValue(v, SubTemp)

	case opcode.PushLocal:
		in.Stack.PushValue(fr.Locals[op.Idx[0]], SubLocal)
	case opcode.PushParm:
		in.Stack.PushValue(fr.Params[op.Idx[0]], SubParameter)
	case opcode.PushThis:
		in.Stack.PushValue(fr.This, SubThis)
	case opcode.PushMember:
		in.Stack.PushValue(fr.This.Members[op.Idx[0]], SubMember)
	case opcode.PushStrPoolItem:
		sv := value.NewIntrinsic(types.ID(value.KindString), value.KindString, false)
		sv.Str = fr.Body.StringPool[op.Idx[0]]
		in.Stack.PushValue(sv, SubStringPoolEntry)

	case opcode.PushTempConst, opcode.PushTempVar:
		tv, err := in.TempPool.Borrow(op.Idx[0], op.Op == opcode.PushTempConst)
		if err != nil {
			return nil, nil, false, err
		}
		in.Stack.PushValue(tv, SubTemp)

	case opcode.PushEnum:
		ev := value.NewIntrinsic(op.Idx[0], value.KindEnum, false)
		ev.Enum = &value.EnumPayload{Ordinal: int(op.Idx[1])}
		in.Stack.PushValue(ev, SubTemp)

	case opcode.PushException:
		if in.lastThrown == nil {
			return nil, nil, false, cmlerr.New(cmlerr.KindNotFound, "PushException: not inside a catch block")
		}
		in.Stack.PushValue(in.exceptionValue(in.lastThrown), SubTemp)

	case opcode.Repush:
		if err := in.Stack.Repush(int(op.Idx[0])); err != nil {
			return nil, nil, false, err
		}

	case opcode.PopTop:
		if _, err := in.Stack.Pop(); err != nil {
			return nil, nil, false, err
		}

	case opcode.PopToReturn:
		it, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		fr.ReturnSlot = it.Value

	case opcode.MultiPop:
		items, err := in.Stack.PopN(int(op.Idx[0]))
		if err != nil {
			return nil, nil, false, err
		}
		for _, it := range items {
			if it.Kind == ItemValue && it.SubKind == SubTemp && !it.Repush {
				in.TempPool.Release(it.Value)
			}
		}

	case opcode.FlipTop:
		a, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		b, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		in.Stack.push(a)
		in.Stack.push(b)

	case opcode.Copy:
		src, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		dstItem, err := in.Stack.Top()
		if err != nil {
			return nil, nil, false, err
		}
		if err := dstItem.Value.CopyFrom(src.Value); err != nil {
			return nil, nil, false, err
		}
		if src.Kind == ItemValue && src.SubKind == SubTemp && !src.Repush {
			in.TempPool.Release(src.Value)
		}

	case opcode.Negate:
		it, err := in.Stack.Top()
		if err != nil {
			return nil, nil, false, err
		}
		negateInPlace(it.Value)

	case opcode.LogicalAnd, opcode.LogicalOr, opcode.LogicalXor:
		rhs, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		lhsItem, err := in.Stack.Top()
		if err != nil {
			return nil, nil, false, err
		}
		applyLogical(op.Op, lhsItem.Value, rhs.Value)

	case opcode.Jump:
		fr.IP = op.Offset
	case opcode.CondJump:
		it, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		if it.Value.Num.Bool {
			fr.IP = op.Offset
		}
	case opcode.NotCondJump:
		it, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		if !it.Value.Num.Bool {
			fr.IP = op.Offset
		}
	case opcode.CondJumpNP:
		it, err := in.Stack.Top()
		if err != nil {
			return nil, nil, false, err
		}
		if it.Value.Num.Bool {
			fr.IP = op.Offset
		}
	case opcode.NotCondJumpNP:
		it, err := in.Stack.Top()
		if err != nil {
			return nil, nil, false, err
		}
		if !it.Value.Num.Bool {
			fr.IP = op.Offset
		}

	case opcode.TableJump:
		it, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		jt := fr.Body.JumpTables[op.Idx[0]]
		fr.IP = jt.Lookup(numericKey(it.Value))

	case opcode.Return:
		return fr.ReturnSlot, nil, true, nil

	case opcode.CallLocal, opcode.CallMember, opcode.CallParm, opcode.CallThis, opcode.CallParent, opcode.CallStack, opcode.CallExcept:
		return in.dispatchCall(fr, op)

	case opcode.ColIndex:
		idxItem, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		colItem, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		elem, err := colItem.Value.Index(int(numericKey(idxItem.Value)))
		if err != nil {
			return nil, nil, false, err
		}
		in.Stack.PushValue(elem, SubCollectionElement)

	case opcode.TypeCast:
		it, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		target := value.IntrinsicKindOf(op.Idx[0])
		out, res := value.CastFrom(it.Value, op.Idx[0], target)
		switch res {
		case value.CastOK:
			in.Stack.PushValue(out, SubTemp)
		case value.CastRange:
			return nil, in.castThrown(fr, "CastRange", "type cast out of range"), false, nil
		default:
			return nil, in.castThrown(fr, "CastIncompatible", "incompatible type cast"), false, nil
		}

	case opcode.Try:
		in.Stack.PushTry(op.Offset)
	case opcode.EndTry:
		if _, err := in.Stack.Pop(); err != nil {
			return nil, nil, false, err
		}

	case opcode.Throw, opcode.ThrowFmt:
		t, err := in.buildThrown(fr, op)
		if err != nil {
			return nil, nil, false, err
		}
		return nil, t, false, nil

	case opcode.ResetEnum:
		it, err := in.Stack.Top()
		if err != nil {
			return nil, nil, false, err
		}
		if it.Value.Enum != nil {
			it.Value.Enum.Ordinal = 0
		}
	case opcode.CondEnumInc:
		it, err := in.Stack.Top()
		if err != nil {
			return nil, nil, false, err
		}
		if it.Value.Enum != nil && it.Value.Enum.Ordinal+1 < len(it.Value.Enum.Names) {
			it.Value.Enum.Ordinal++
		}

	default:
		return nil, nil, false, cmlerr.New(cmlerr.KindFormat, "unimplemented opcode: "+op.Op.String())
	}
	return nil, nil, false, nil
}

// dispatchCall implements every CallXxx opcode (spec §4.3, §4.4): pop
// argCount arguments and a receiver (already pushed by the compiler via a
// preceding PushLocal/PushMember/PushParm/PushThis), resolve the target
// method (polymorphically on the receiver's runtime class, except
// CallParent which names an explicit class id for monomorphic dispatch),
// and recurse into the Go call stack to run it.
func (in *Interpreter) dispatchCall(fr *Frame, op opcode.Opcode) (*value.Value, *except.Thrown, bool, error) {
	methodID := op.Idx[0]
	argCount := int(op.Idx[1])

	args := make([]*value.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		it, err := in.Stack.Pop()
		if err != nil {
			return nil, nil, false, err
		}
		args[i] = it.Value
	}
	recvItem, err := in.Stack.Pop()
	if err != nil {
		return nil, nil, false, err
	}
	recv := recvItem.Value

	var callee *class.Class
	if op.Op == opcode.CallParent {
		callee, err = in.Registry.ByID(op.Idx[2])
	} else {
		callee, err = in.Registry.ByID(recv.ClassID)
	}
	if err != nil {
		return nil, nil, false, err
	}

	method := callee.MethodByID(methodID)
	if method == nil {
		return nil, nil, false, cmlerr.New(cmlerr.KindNotFound, "call: no such method")
	}
	body := callee.BodyForMethod(methodID)
	if body == nil {
		return nil, nil, false, cmlerr.New(cmlerr.KindNotFound, "call: method has no body")
	}

	result, thrown, err := in.callDirect(callee, method, body, recv, args, fr)
	if err != nil {
		return nil, nil, false, err
	}
	if thrown != nil {
		return nil, thrown, false, nil
	}
	if result != nil {
		in.Stack.PushValue(result, SubTemp)
	}
	return nil, nil, false, nil
}

// buildThrown constructs a *except.Thrown from the enum error-code value on
// top of the stack (Throw), or from that enum plus n preceding format
// arguments (ThrowFmt(n), spec §4.4).
func (in *Interpreter) buildThrown(fr *Frame, op opcode.Opcode) (*except.Thrown, error) {
	var args []string
	if op.Op == opcode.ThrowFmt {
		n := int(op.Idx[0])
		items, err := in.Stack.PopN(n)
		if err != nil {
			return nil, err
		}
		args = make([]string, n)
		for i, it := range items {
			args[n-1-i] = it.Value.Str
		}
	}

	it, err := in.Stack.Pop()
	if err != nil {
		return nil, err
	}
	ev := it.Value
	if ev.Kind != value.KindEnum || ev.Enum == nil {
		return nil, cmlerr.New(cmlerr.KindTypeMismatch, "Throw: top of stack is not an enum error code")
	}

	var name, text string
	if ev.Enum.Ordinal >= 0 && ev.Enum.Ordinal < len(ev.Enum.Names) {
		name = ev.Enum.Names[ev.Enum.Ordinal]
	}
	if ev.Enum.Ordinal >= 0 && ev.Enum.Ordinal < len(ev.Enum.Texts) {
		text = ev.Enum.Texts[ev.Enum.Ordinal]
	}

	classPath := ""
	if fr.CalleeClass != nil {
		classPath = fr.CalleeClass.Path
	}

	return &except.Thrown{
		ClassID:    ev.ClassID,
		Ordinal:    ev.Enum.Ordinal,
		ClassPath:  classPath,
		Line:       fr.Line,
		ItemName:   name,
		ItemText:   text,
		FormatArgs: args,
	}, nil
}

// castThrown builds a catchable exception for a failed TypeCast (spec §8
// scenario 6, "numeric cast range") -- a Try/Catch wrapping the cast
// unwinds to its handler through handleThrow exactly as a user Throw does,
// instead of aborting the frame with a bare Go error. It's reported under
// MEng.Exception since a cast failure has no user-declared error enum of
// its own.
func (in *Interpreter) castThrown(fr *Frame, name, text string) *except.Thrown {
	classPath := "MEng.Exception"
	classID := types.BadID
	if c, err := in.Registry.ByPath(classPath); err == nil {
		classID = c.ID
	}
	return &except.Thrown{
		ClassID:   classID,
		ClassPath: classPath,
		Line:      fr.Line,
		ItemName:  name,
		ItemText:  text,
	}
}

// exceptionValue builds the value PushException exposes inside a catch
// block: an enum value carrying the thrown error code's class id, ordinal
// and (already-substituted) descriptive text. The name and text sit at
// index Ordinal of Names/Texts, where the enum accessors look them up.
func (in *Interpreter) exceptionValue(t *except.Thrown) *value.Value {
	v := value.NewIntrinsic(t.ClassID, value.KindEnum, false)
	n := t.Ordinal
	if n < 0 {
		n = 0
	}
	names := make([]string, n+1)
	texts := make([]string, n+1)
	names[n] = t.ItemName
	texts[n] = t.FormattedText()
	v.Enum = &value.EnumPayload{
		Ordinal: t.Ordinal,
		Names:   names,
		Texts:   texts,
	}
	return v
}

func negateInPlace(v *value.Value) {
	switch v.Kind {
	case value.KindBoolean:
		v.Num.Bool = !v.Num.Bool
	case value.KindInt1:
		v.Num.I8 = -v.Num.I8
	case value.KindInt2:
		v.Num.I16 = -v.Num.I16
	case value.KindInt4:
		v.Num.I32 = -v.Num.I32
	case value.KindFloat4:
		v.Num.F32 = -v.Num.F32
	case value.KindFloat8:
		v.Num.F64 = -v.Num.F64
	}
}

func applyLogical(op opcode.Op, lhs, rhs *value.Value) {
	a, b := lhs.Num.Bool, rhs.Num.Bool
	switch op {
	case opcode.LogicalAnd:
		lhs.Num.Bool = a && b
	case opcode.LogicalOr:
		lhs.Num.Bool = a || b
	case opcode.LogicalXor:
		lhs.Num.Bool = a != b
	}
}

// numericKey extracts an int64 suitable for a jump-table lookup or a
// collection index from an integer, char, or enum value.
func numericKey(v *value.Value) int64 {
	if v.Kind == value.KindEnum && v.Enum != nil {
		return int64(v.Enum.Ordinal)
	}
	switch v.Kind {
	case value.KindCard1:
		return int64(v.Num.U8)
	case value.KindCard2:
		return int64(v.Num.U16)
	case value.KindCard4:
		return int64(v.Num.U32)
	case value.KindCard8:
		return int64(v.Num.U64)
	case value.KindInt1:
		return int64(v.Num.I8)
	case value.KindInt2:
		return int64(v.Num.I16)
	case value.KindInt4:
		return int64(v.Num.I32)
	case value.KindChar:
		return int64(v.Num.Char)
	default:
		return 0
	}
}
