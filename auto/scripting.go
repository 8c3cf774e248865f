// auto/scripting.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auto

import "sync"

// ScriptCommand is the one mission command type handed off to an external
// scripting environment: the script reads it, flies the vehicle through
// its own channel, and reports completion.
type ScriptCommand struct {
	Gen        int // generation id; stale completions are ignored
	Command    uint8
	Arg1, Arg2 float64
	Arg3, Arg4 int16
}

// ScriptBridge is a single-slot mailbox between the mission (writer) and
// the external script (reader + done flag). The script side may only mark
// the matching generation done; everything else belongs to the mode.
type ScriptBridge struct {
	mu     sync.Mutex
	gen    int
	active bool
	cmd    ScriptCommand
	done   bool
}

// begin publishes a new command and returns its generation id.
func (b *ScriptBridge) begin(command uint8, arg1, arg2 float64, arg3, arg4 int16) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	b.cmd = ScriptCommand{Gen: b.gen, Command: command, Arg1: arg1, Arg2: arg2, Arg3: arg3, Arg4: arg4}
	b.active = true
	b.done = false
	return b.gen
}

func (b *ScriptBridge) end() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = false
}

// Current returns the command awaiting the script, if any.
func (b *ScriptBridge) Current() (ScriptCommand, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return ScriptCommand{}, false
	}
	return b.cmd, true
}

// MarkDone reports completion of the command with the given generation.
// Returns false for a stale or unknown generation, which leaves the
// mailbox untouched.
func (b *ScriptBridge) MarkDone(gen int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active || gen != b.gen {
		return false
	}
	b.done = true
	return true
}

func (b *ScriptBridge) doneFor(gen int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active && b.done && gen == b.gen
}
