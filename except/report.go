/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package except

import "cml/config"

// Reporter is implemented by cml/engine's RuntimeErrorHandler adapter; kept
// as a narrow interface here so cml/except has no dependency on cml/engine.
type Reporter interface {
	MacroException(t *Thrown)
}

// ReportThrow applies the host-configurable reporting policy (spec §7):
// "at throw" reports t unconditionally; "not handled" reports t only when
// unwindExitedOutermost is true. Its only caller is cml/engine, which calls
// it with unwindExitedOutermost=true for an exception that came back
// unhandled from Run/InvokeDefaultCtor; exceptions caught by a try/catch
// never reach it, under either policy.
func ReportThrow(policy config.ReportPolicy, reporter Reporter, t *Thrown, unwindExitedOutermost bool) {
	if reporter == nil {
		return
	}
	switch policy {
	case config.ReportAtThrow:
		reporter.MacroException(t)
	case config.ReportNotHandled:
		if unwindExitedOutermost {
			reporter.MacroException(t)
		}
	}
}
