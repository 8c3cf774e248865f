// cmd/copternav/main.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// copternav flies a mission file on the built-in simulated vehicle and
// reports progress the way an operator console would see it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rotorlab/copternav/auto"
	"github.com/rotorlab/copternav/events"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/log"
	"github.com/rotorlab/copternav/math"
	"github.com/rotorlab/copternav/mission"
	"github.com/rotorlab/copternav/sim"
	"github.com/rotorlab/copternav/util"
)

var (
	missionFile = flag.String("mission", "", "mission file (JSON) to fly")
	originLat   = flag.Float64("lat", 47.5, "origin latitude")
	originLon   = flag.Float64("lon", 8.5, "origin longitude")
	originAlt   = flag.Float64("alt", 400, "origin altitude (m AMSL)")
	terrainAlt  = flag.Float64("terrain", -1, "terrain elevation at the origin (m AMSL); negative disables terrain lookups")
	realtime    = flag.Bool("realtime", false, "run at wall-clock rate rather than as fast as possible")
	budget      = flag.Duration("budget", 30*time.Minute, "simulated time limit")
	replayFile  = flag.String("replay", "", "write a replay record to this file")
	logLevel    = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir      = flag.String("logdir", "", "log file directory")
)

// replaySample is one tick of vehicle state in the replay record.
type replaySample struct {
	T       float64 // seconds since mission start
	Pos     math.Vec3
	Vel     math.Vec3
	Heading float64
	SubMode string
	NavCmd  int
}

type replayRecord struct {
	Written  time.Time
	Mission  []mission.Command
	Interval float64 // seconds between samples
	Samples  []replaySample
}

func main() {
	flag.Parse()
	if *missionFile == "" {
		fmt.Fprintln(os.Stderr, "copternav: -mission is required")
		flag.Usage()
		os.Exit(2)
	}

	lg := log.New(*logLevel, *logDir)

	cmds, err := mission.LoadFile(*missionFile)
	if err != nil {
		lg.Errorf("%s: %v", *missionFile, err)
		fmt.Fprintf(os.Stderr, "copternav: %s: %v\n", *missionFile, err)
		os.Exit(1)
	}

	if err := fly(cmds, lg); err != nil {
		fmt.Fprintf(os.Stderr, "copternav: %v\n", err)
		os.Exit(1)
	}
}

func fly(cmds []mission.Command, lg *log.Logger) error {
	origin := geo.Location{Lat: *originLat, Lon: *originLon, Alt: *originAlt, Frame: geo.AltAbsolute}
	env := &geo.Environment{Origin: origin, OriginSet: true, Home: origin}
	if base := *terrainAlt; base >= 0 {
		// a shallow bowl rising away from the origin, so terrain-framed
		// legs see ground that actually varies
		env.Terrain = geo.NewTerrainGrid(func(lat, lon float64) (float64, bool) {
			d := geo.HorizontalDistance(geo.Location{Lat: lat, Lon: lon}, origin)
			return base + d/200, true
		}, 0.0001)
	}

	av, v := sim.Build(env, math.Vec3{})
	ev := events.NewStream(lg)
	sub := ev.Subscribe()
	defer sub.Unsubscribe()

	m := auto.New(av, cmds, auto.DefaultParams(), ev, lg)

	v.Arm()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := m.Enter(start); err != nil {
		return err
	}

	record := &replayRecord{Mission: cmds, Interval: 0.1}

	g, ctx := errgroup.WithContext(context.Background())
	done := make(chan struct{})

	// event drainer: status text goes to the console as it is posted
	g.Go(func() error {
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for {
			for _, e := range sub.Get() {
				switch e.Type {
				case events.StatusTextEvent:
					fmt.Printf("[%s] %s\n", e.Severity, e.Message)
				case events.ItemReachedEvent:
					fmt.Printf("mission item %d complete\n", e.Index)
				case events.SubmodeChangeEvent, events.ModeChangeEvent:
					fmt.Printf("-> %s\n", e.Message)
				}
			}
			select {
			case <-done:
				// one final drain so nothing posted on the last tick is lost
				final := util.FilterSliceInPlace(sub.Get(), func(e events.Event) bool {
					return e.Type == events.StatusTextEvent
				})
				for _, e := range final {
					fmt.Printf("[%s] %s\n", e.Severity, e.Message)
				}
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
		}
	})

	// vehicle loop at 100Hz of simulated time
	g.Go(func() error {
		defer close(done)
		const dt = 10 * time.Millisecond
		var pace *time.Ticker
		if *realtime {
			pace = time.NewTicker(dt)
			defer pace.Stop()
		}

		now := start
		for elapsed := time.Duration(0); elapsed < *budget; elapsed += dt {
			m.Run(now)
			v.Step(dt.Seconds())
			now = now.Add(dt)

			if int(elapsed/dt)%10 == 0 {
				record.Samples = append(record.Samples, replaySample{
					T:       elapsed.Seconds(),
					Pos:     v.Pos,
					Vel:     v.Vel,
					Heading: v.Heading,
					SubMode: m.SubMode().String(),
					NavCmd:  missionIndex(m),
				})
			}

			if m.Mission().State() == mission.StateComplete {
				fmt.Printf("mission complete after %s simulated, final position %+v\n",
					elapsed.Round(time.Second), v.Pos)
				return nil
			}
			if pace != nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-pace.C:
				}
			}
		}
		return fmt.Errorf("mission did not complete within %s simulated", *budget)
	})

	err := g.Wait()

	if *replayFile != "" {
		record.Written = time.Now()
		if serr := util.StoreObject(*replayFile, record); serr != nil {
			lg.Errorf("replay: %v", serr)
		} else {
			fmt.Printf("replay written to %s (%d samples)\n", *replayFile, len(record.Samples))
		}
	}
	return err
}

func missionIndex(m *auto.Mode) int {
	cmd, ok := m.Mission().CurrentNavCmd()
	return util.Select(ok, cmd.Index, -1)
}
