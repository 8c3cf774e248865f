// mission/mission.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mission

import (
	"time"

	"github.com/rotorlab/copternav/geo"
)

// State of mission sequencing.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateComplete
)

func (s State) String() string {
	return [...]string{"Stopped", "Running", "Complete"}[s]
}

// Callbacks connect the mission sequencer to the flight mode. Start
// dispatches a newly reached command and reports whether the command was
// recognized; Verify polls completion; Complete fires once when the last
// command finishes.
type Callbacks struct {
	Start    func(Command) bool
	Verify   func(Command) bool
	Complete func()
}

// Mission is an ordered command store plus the sequencing engine that
// drives one nav command and, alongside it, at most one do/condition
// command at a time.
type Mission struct {
	cmds  []Command
	state State

	navIndex int // active nav command, -1 if none
	doIndex  int // active do/condition command, -1 if none

	inLandingSeq bool
	inReturnPath bool
	forceResume  bool

	// ContinueAfterLand permits mission progression past a NavLand that has
	// completed, provided a later takeoff exists.
	ContinueAfterLand bool

	// Restart makes StartOrResume begin from the first command rather than
	// resuming the interrupted one.
	Restart bool

	cb Callbacks
}

func New(cmds []Command, cb Callbacks) *Mission {
	m := &Mission{cmds: cmds, navIndex: -1, doIndex: -1, cb: cb}
	for i := range m.cmds {
		m.cmds[i].Index = i
	}
	return m
}

func (m *Mission) Present() bool           { return len(m.cmds) > 0 }
func (m *Mission) NumCommands() int        { return len(m.cmds) }
func (m *Mission) State() State            { return m.state }
func (m *Mission) InLandingSequence() bool { return m.inLandingSeq }
func (m *Mission) InReturnPath() bool      { return m.inReturnPath }

func (m *Mission) SetForceResume(b bool) { m.forceResume = b }

// Commands returns the live command slice; used by the change detector.
func (m *Mission) Commands() []Command { return m.cmds }

// Replace swaps the command list, e.g. after an operator upload. Indices
// are reassigned; sequencing state is preserved where it still fits.
func (m *Mission) Replace(cmds []Command) {
	m.cmds = cmds
	for i := range m.cmds {
		m.cmds[i].Index = i
	}
	if m.navIndex >= len(m.cmds) {
		m.navIndex = -1
	}
	if m.doIndex >= len(m.cmds) {
		m.doIndex = -1
	}
}

// Command returns the command at the given index.
func (m *Mission) Command(index int) (Command, bool) {
	if index < 0 || index >= len(m.cmds) {
		return Command{}, false
	}
	return m.cmds[index], true
}

// CurrentNavCmd returns the active nav command.
func (m *Mission) CurrentNavCmd() (Command, bool) {
	return m.Command(m.navIndex)
}

// NextNavCmd returns the first nav command at or after startIndex.
func (m *Mission) NextNavCmd(startIndex int) (Command, bool) {
	for i := max(startIndex, 0); i < len(m.cmds); i++ {
		if m.cmds[i].ID.IsNav() {
			return m.cmds[i], true
		}
	}
	return Command{}, false
}

// StartsWithTakeoffCmd reports whether the mission's first nav command is
// a takeoff.
func (m *Mission) StartsWithTakeoffCmd() bool {
	cmd, ok := m.NextNavCmd(0)
	return ok && cmd.ID == NavTakeoff
}

// ContinueAfterLandCheckForTakeoff reports whether sequencing should keep
// going after a completed landing: the option must be enabled and a
// takeoff command must remain ahead.
func (m *Mission) ContinueAfterLandCheckForTakeoff() bool {
	if !m.ContinueAfterLand {
		return false
	}
	for i := m.navIndex + 1; i < len(m.cmds); i++ {
		if m.cmds[i].ID == NavTakeoff {
			return true
		}
	}
	return false
}

// StartOrResume begins sequencing: either resuming the interrupted nav
// command or, if none (or Restart is set and resume isn't forced),
// starting from the first command.
func (m *Mission) StartOrResume() {
	m.state = StateRunning
	resume := m.navIndex >= 0 && (!m.Restart || m.forceResume)
	m.forceResume = false
	if resume {
		if cmd, ok := m.CurrentNavCmd(); ok {
			if !m.cb.Start(cmd) {
				m.advanceNav(m.navIndex + 1)
			}
			return
		}
	}
	m.inLandingSeq = false
	m.inReturnPath = false
	m.advanceNav(0)
}

// Stop halts sequencing, keeping indices for a later resume.
func (m *Mission) Stop() {
	if m.state == StateRunning {
		m.state = StateStopped
	}
}

// Reset rewinds to the beginning, as after a disarm.
func (m *Mission) Reset() {
	m.state = StateStopped
	m.navIndex, m.doIndex = -1, -1
	m.inLandingSeq, m.inReturnPath = false, false
}

// RestartCurrentNavCmd re-dispatches the active nav command, e.g. after a
// mission edit touched it.
func (m *Mission) RestartCurrentNavCmd() bool {
	cmd, ok := m.CurrentNavCmd()
	if !ok {
		return false
	}
	return m.cb.Start(cmd)
}

// Update advances sequencing by one poll: the active do/condition command
// is verified and replaced, the active nav command is verified and, when
// complete, the mission moves to the next one.
func (m *Mission) Update(now time.Time) {
	if m.state != StateRunning {
		return
	}

	if m.doIndex >= 0 {
		if m.cb.Verify(m.cmds[m.doIndex]) {
			m.startNextDoCmd(m.doIndex + 1)
		}
	}

	if m.navIndex < 0 {
		return
	}
	if m.cb.Verify(m.cmds[m.navIndex]) {
		m.advanceNav(m.navIndex + 1)
	}
}

// advanceNav walks forward from index, noting landing-sequence/return-path
// markers, until a nav command starts successfully or the mission ends.
func (m *Mission) advanceNav(index int) {
	for i := index; i < len(m.cmds); i++ {
		cmd := m.cmds[i]
		switch cmd.ID {
		case DoLandStart:
			m.inLandingSeq = true
			continue
		case DoReturnPathStart:
			m.inReturnPath = true
			continue
		}
		if !cmd.ID.IsNav() {
			continue
		}
		m.navIndex = i
		if m.cb.Start(cmd) {
			m.startNextDoCmd(m.lastNavBefore(i) + 1)
			return
		}
		// rejected; fall through to the next nav command
	}

	m.navIndex = -1
	m.doIndex = -1
	m.state = StateComplete
	if m.cb.Complete != nil {
		m.cb.Complete()
	}
}

// startNextDoCmd starts the next do/condition command strictly before the
// active nav command; such commands run alongside it.
func (m *Mission) startNextDoCmd(index int) {
	for i := max(index, 0); i < m.navIndex; i++ {
		cmd := m.cmds[i]
		if cmd.ID.IsNav() || cmd.ID == DoLandStart || cmd.ID == DoReturnPathStart {
			continue
		}
		if m.cb.Start(cmd) {
			m.doIndex = i
			return
		}
	}
	m.doIndex = -1
}

func (m *Mission) lastNavBefore(index int) int {
	for i := index - 1; i >= 0; i-- {
		if m.cmds[i].ID.IsNav() {
			return i
		}
	}
	return -1
}

// JumpToLandingSequence moves sequencing to the landing sequence whose
// first nav command is closest to the given position. Returns false when
// the mission has no DoLandStart marker.
func (m *Mission) JumpToLandingSequence(from geo.Location) bool {
	best, bestDist := -1, 0.0
	for i, cmd := range m.cmds {
		if cmd.ID != DoLandStart {
			continue
		}
		nav, ok := m.NextNavCmd(i + 1)
		if !ok {
			continue
		}
		d := geo.HorizontalDistance(from, nav.Loc)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return false
	}
	m.inLandingSeq = true
	m.state = StateRunning
	m.advanceNav(best)
	return true
}

// JumpToClosestMissionLeg joins the mission after its DoReturnPathStart
// marker at the nav command closest to the given position. Returns false
// when the mission has no return path.
func (m *Mission) JumpToClosestMissionLeg(from geo.Location) bool {
	start := -1
	for i, cmd := range m.cmds {
		if cmd.ID == DoReturnPathStart {
			start = i
			break
		}
	}
	if start < 0 {
		return false
	}

	best, bestDist := -1, 0.0
	for i := start + 1; i < len(m.cmds); i++ {
		cmd := m.cmds[i]
		if !cmd.ID.IsNav() || cmd.Loc.IsZero() {
			continue
		}
		d := geo.HorizontalDistance(from, cmd.Loc)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return false
	}
	m.inReturnPath = true
	m.state = StateRunning
	m.advanceNav(best)
	return true
}
