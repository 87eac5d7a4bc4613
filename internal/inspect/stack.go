/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package inspect

import (
	"runtime"
	"strings"
)

// MainFunction is reported for a frame at the top of the call stack.
const MainFunction = "{main}"

// Frame describes a single call site.
type Frame struct {
	Class    string
	Function string
	File     string
	Line     int
}

// CallerFrame walks up the call stack from the function that invoked
// CallerFrame. skip 0 returns that function's caller, skip 1 the caller's
// caller, and so on. The second return value is false when the stack is
// not that deep.
func CallerFrame(skip int) (Frame, bool) {
	pc, file, line, ok := runtime.Caller(skip + 2)
	if !ok {
		return Frame{}, false
	}

	frame := Frame{File: file, Line: line}

	function := runtime.FuncForPC(pc)
	if function == nil {
		return frame, true
	}

	frame.Class, frame.Function = splitName(function.Name())
	return frame, true
}

// splitName breaks a runtime function name into receiver type and bare
// function name. "pkg.(*Type).Method" yields ("*Type", "Method"), a plain
// "pkg.Function" yields ("", "Function"). "main.main" is normalized to
// the top-level marker.
func splitName(name string) (string, string) {
	if name == "main.main" {
		return "", MainFunction
	}

	// Strip the package path, keeping everything after the last slash.
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return "", name
	}

	// pkg.Function or pkg.(*Type).Method
	if len(parts) == 2 {
		return "", parts[1]
	}

	class := strings.Trim(parts[len(parts)-2], "()")
	return class, parts[len(parts)-1]
}
