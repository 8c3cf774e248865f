// mission/command.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mission

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotorlab/copternav/geo"
)

// ID identifies a mission command type. The numeric values follow the
// conventional autopilot command ids so operator-authored plans translate
// directly.
type ID uint16

const (
	NavWaypoint       ID = 16
	NavLoiterUnlim    ID = 17
	NavLoiterTurns    ID = 18
	NavLoiterTime     ID = 19
	NavReturnToLaunch ID = 20
	NavLand           ID = 21
	NavTakeoff        ID = 22
	NavLoiterToAlt    ID = 31
	NavSplineWaypoint ID = 82
	NavGuidedEnable   ID = 92
	NavDelay          ID = 93
	NavPayloadPlace   ID = 94

	ConditionDelay    ID = 112
	ConditionDistance ID = 114
	ConditionYaw      ID = 115

	DoChangeSpeed     ID = 178
	DoSetHome         ID = 179
	DoReturnPathStart ID = 188
	DoLandStart       ID = 189
	DoSetROILocation  ID = 195
	DoSetROINone      ID = 197
	DoSetROI          ID = 201
	DoMountControl    ID = 205
	DoGuidedLimits    ID = 220

	DoWinch         ID = 42600
	NavScriptTime   ID = 42702
	NavAttitudeTime ID = 42703
)

var idNames = map[ID]string{
	NavWaypoint: "NavWaypoint", NavLoiterUnlim: "NavLoiterUnlim",
	NavLoiterTurns: "NavLoiterTurns", NavLoiterTime: "NavLoiterTime",
	NavReturnToLaunch: "NavReturnToLaunch", NavLand: "NavLand",
	NavTakeoff: "NavTakeoff", NavLoiterToAlt: "NavLoiterToAlt",
	NavSplineWaypoint: "NavSplineWaypoint",
	NavGuidedEnable: "NavGuidedEnable", NavDelay: "NavDelay",
	NavPayloadPlace: "NavPayloadPlace", ConditionDelay: "ConditionDelay",
	ConditionDistance: "ConditionDistance", ConditionYaw: "ConditionYaw",
	DoChangeSpeed: "DoChangeSpeed", DoSetHome: "DoSetHome",
	DoReturnPathStart: "DoReturnPathStart", DoLandStart: "DoLandStart",
	DoSetROILocation: "DoSetROILocation", DoSetROINone: "DoSetROINone",
	DoSetROI: "DoSetROI", DoMountControl: "DoMountControl",
	DoGuidedLimits: "DoGuidedLimits", DoWinch: "DoWinch",
	NavScriptTime: "NavScriptTime", NavAttitudeTime: "NavAttitudeTime",
}

func (id ID) String() string {
	if s, ok := idNames[id]; ok {
		return s
	}
	return fmt.Sprintf("cmd#%d", uint16(id))
}

// IsNav reports whether the command is a navigation ("must") command that
// owns the vehicle's trajectory until it verifies complete. Condition and
// do commands run alongside the active nav command.
func (id ID) IsNav() bool {
	switch id {
	case NavWaypoint, NavLoiterUnlim, NavLoiterTurns, NavLoiterTime,
		NavReturnToLaunch, NavLand, NavTakeoff, NavLoiterToAlt,
		NavSplineWaypoint, NavGuidedEnable, NavDelay, NavPayloadPlace,
		NavScriptTime, NavAttitudeTime:
		return true
	}
	return false
}

// Command is one item of an operator-authored flight plan. Payloads not
// used by a given id are left at their zero values; optional argument
// groups are pointers so "unset" is distinguishable.
type Command struct {
	ID    ID  `json:"id"`
	Index int `json:"index"`

	// Target location for nav commands; zero lat/lon and/or zero alt mean
	// "inherit a default" (see the dispatcher).
	Loc geo.Location `json:"loc,omitempty"`

	// Arrival hold time for waypoint/spline/timed-loiter commands and the
	// relative delay for NavDelay, seconds.
	DelaySec float64 `json:"delay_sec,omitempty"`

	// Circle parameters for NavLoiterTurns. Radius in meters; fractional
	// turns are allowed.
	Turns  float64 `json:"turns,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	CCW    bool    `json:"ccw,omitempty"`

	// Enable flag for NavGuidedEnable.
	Enable bool `json:"enable,omitempty"`

	// Maximum descent in meters for NavPayloadPlace; zero disables the cutoff.
	DescentMax float64 `json:"descent_max,omitempty"`

	// UseCurrent makes DoSetHome take the vehicle's present position.
	UseCurrent bool `json:"use_current,omitempty"`

	// Condition thresholds: seconds for ConditionDelay, meters for
	// ConditionDistance.
	ConditionSec    float64 `json:"condition_sec,omitempty"`
	ConditionMeters float64 `json:"condition_meters,omitempty"`

	Yaw      *YawArgs          `json:"yaw,omitempty"`
	Speed    *SpeedArgs        `json:"speed,omitempty"`
	UTC      *UTCTimeArgs      `json:"utc,omitempty"`
	Attitude *AttitudeTimeArgs `json:"attitude,omitempty"`
	Script   *ScriptTimeArgs   `json:"script,omitempty"`
	Limits   *GuidedLimitsArgs `json:"limits,omitempty"`
	Winch    *WinchArgs        `json:"winch,omitempty"`
	Mount    *MountArgs        `json:"mount,omitempty"`
}

// YawArgs parameterizes ConditionYaw.
type YawArgs struct {
	AngleDeg   float64 `json:"angle_deg"`
	RateDps    float64 `json:"rate_dps,omitempty"`
	Direction  int     `json:"direction,omitempty"` // 1 cw, -1 ccw, 0 shortest
	Relative   bool    `json:"relative,omitempty"`
}

// SpeedType selects which speed a DoChangeSpeed command overrides.
type SpeedType int

const (
	SpeedHorizontal SpeedType = iota
	SpeedClimb
	SpeedDescent
)

type SpeedArgs struct {
	Type   SpeedType `json:"type"`
	Target float64   `json:"target"` // m/s; <=0 means no change
}

// UTCTimeArgs is the absolute form of NavDelay.
type UTCTimeArgs struct {
	Hour, Min, Sec int
}

type AttitudeTimeArgs struct {
	TimeSec   float64 `json:"time_sec"`
	RollDeg   float64 `json:"roll_deg"`
	PitchDeg  float64 `json:"pitch_deg"`
	YawDeg    float64 `json:"yaw_deg"`
	ClimbRate float64 `json:"climb_rate"` // m/s
}

type ScriptTimeArgs struct {
	Command    uint8   `json:"command"`
	TimeoutSec float64 `json:"timeout_sec,omitempty"`
	Arg1, Arg2 float64 `json:"-"`
	Arg3, Arg4 int16   `json:"-"`
}

type GuidedLimitsArgs struct {
	TimeoutSec float64 `json:"timeout_sec"`
	AltMin     float64 `json:"alt_min"`
	AltMax     float64 `json:"alt_max"`
	HorizMax   float64 `json:"horiz_max"`
}

// WinchAction mirrors the winch control actions a mission may request.
type WinchAction int

const (
	WinchRelax WinchAction = iota
	WinchRelativeLength
	WinchRate
)

type WinchArgs struct {
	Action WinchAction `json:"action"`
	Length float64     `json:"length,omitempty"` // m
	Rate   float64     `json:"rate,omitempty"`   // m/s
}

type MountArgs struct {
	RollDeg, PitchDeg, YawDeg float64
}

// LoadFile reads a JSON-encoded command list; indices are assigned from
// position if absent.
func LoadFile(path string) ([]Command, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cmds []Command
	if err := json.Unmarshal(b, &cmds); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range cmds {
		if cmds[i].Index == 0 {
			cmds[i].Index = i
		}
	}
	return cmds, nil
}
