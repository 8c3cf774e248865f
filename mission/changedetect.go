// mission/changedetect.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mission

import (
	"reflect"

	"github.com/brunoga/deep"
)

// ChangeDetector watches the short window of upcoming nav commands for
// edits made while the mission is flying. It holds deep copies so that
// in-place uploads are caught even when the slice backing array is reused.
type ChangeDetector struct {
	valid int
	cmds  [changeWindow]Command
}

const changeWindow = 3

// Capture snapshots the active nav command and the nav commands that
// follow it.
func (cd *ChangeDetector) Capture(m *Mission) {
	cd.valid = 0
	cmd, ok := m.CurrentNavCmd()
	for cd.valid < changeWindow && ok {
		cd.cmds[cd.valid] = deep.MustCopy(cmd)
		cd.valid++
		cmd, ok = m.NextNavCmd(cmd.Index + 1)
	}
}

// Changed reports whether a mission edit touched the commands currently
// being flown. Ordinary progression onto a different nav command (an
// advance, or a commanded jump) refreshes the window and is not a
// change: an edit leaves the active index in place and alters content.
// A detector that never captured reports false.
func (cd *ChangeDetector) Changed(m *Mission) bool {
	cmd, ok := m.CurrentNavCmd()
	if ok && cd.valid > 0 && cmd.Index != cd.cmds[0].Index {
		cd.Capture(m)
		return false
	}
	for i := 0; i < cd.valid; i++ {
		if !ok || !reflect.DeepEqual(cd.cmds[i], cmd) {
			return true
		}
		cmd, ok = m.NextNavCmd(cmd.Index + 1)
	}
	return false
}

// Reset forgets the captured window.
func (cd *ChangeDetector) Reset() { cd.valid = 0 }
