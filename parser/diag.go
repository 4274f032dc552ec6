/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package parser

import (
	"fmt"

	"cml/host"
)

// RecoveryHint selects how a diagnostic routine reacts to a parse error
// (spec §4.5, "Error handling in the parser").
type RecoveryHint int

const (
	HintNone RecoveryHint = iota
	HintRecover
	HintCheckOnly
)

// diag reports a diagnostic through the installed ParseErrorHandler (if
// any), bumps the error count for DiagError, DiagNativeException and
// DiagUnknownException (warnings are reported but not counted), and, for
// HintRecover, returns true telling the caller to resynchronize at the next
// safe anchor.
func (p *Parser) diag(kind host.DiagKind, hint RecoveryHint, line, col int, format string, args ...interface{}) bool {
	text := fmt.Sprintf(format, args...)
	if p.errHandler != nil {
		p.errHandler.Event(kind, text, line, col, p.curClassPath)
	}
	if kind == host.DiagError || kind == host.DiagNativeException || kind == host.DiagUnknownException {
		p.errCount++
	}
	return hint == HintRecover
}

// recoverToAnchor advances the token stream past tokens until it finds one
// of the given keyword anchors or EOF (spec §4.5, "advances to the next
// safe anchor").
func (p *Parser) recoverToAnchor(anchors ...string) {
	for {
		if p.cur.Kind == TokEOF {
			return
		}
		if p.cur.Kind == TokKeyword || p.cur.Kind == TokPunct {
			for _, a := range anchors {
				if p.cur.Text == a {
					return
				}
			}
		}
		p.advance()
	}
}
