// log/stack_test.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import "testing"

func TestCallstack(t *testing.T) {
	fr := Callstack(nil)
	if len(fr) == 0 {
		t.Fatal("empty callstack")
	}
	for _, f := range fr {
		if f.File == "" || f.Line == 0 {
			t.Errorf("incomplete frame %+v", f)
		}
	}
}

func TestCallstackReusesBuffer(t *testing.T) {
	// a caller-provided buffer with spare capacity must be reused, not
	// indexed past its length
	buf := make([]StackFrame, 0, 32)
	fr := Callstack(buf)
	if len(fr) == 0 {
		t.Fatal("empty callstack with a preallocated buffer")
	}
	if cap(fr) != cap(buf) {
		t.Errorf("buffer not reused: cap %d, want %d", cap(fr), cap(buf))
	}
}
