/*
Package game
File: view.go
Description:
    Read-only queries used by the HTTP layer and the broadcast loop.
    Results are copies; callers may keep them across ticks.
*/

package game

// Stats returns the HUD summary.
func (g *Game) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stats()
}

func (g *Game) stats() Stats {
	return Stats{
		LevelName:            g.level.Name,
		Mode:                 g.mode,
		RunState:             g.runState,
		Elapsed:              g.elapsed,
		Delivered:            g.delivered,
		AvgWait:              g.avgWait,
		MostCrowdedStationID: g.mostCrowdedStationID,
		LinesUsed:            len(g.lines),
		MaxLines:             g.level.Constraints.MaxLines,
		SegmentsUsed:         g.totalSegments(),
		MaxSegments:          g.level.Constraints.MaxSegments,
		LevelIndex:           g.levelIndex,
		LevelCount:           len(g.levels),
	}
}

// Snapshot copies everything a renderer needs for one frame.
func (g *Game) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		Stats:        g.stats(),
		Stations:     make([]StationView, len(g.level.Stations)),
		Lines:        g.copyLines(),
		Trains:       make([]TrainView, 0, len(g.trains)),
		ActiveLineID: g.activeLineID,
	}
	for i, s := range g.level.Stations {
		snap.Stations[i] = StationView{Station: s, Waiting: len(g.stationState[i].Waiting)}
	}

	for _, train := range g.trains {
		pos, ok := g.trainPosition(train)
		if !ok {
			continue
		}
		snap.Trains = append(snap.Trains, TrainView{
			ID:         train.ID,
			LineID:     train.LineID,
			X:          pos.X,
			Y:          pos.Y,
			Direction:  int(train.Direction),
			Passengers: len(train.Passengers),
			Capacity:   train.Capacity,
		})
	}
	return snap
}

// trainPosition interpolates a train between its segment endpoints.
// Missing references are skipped rather than treated as fatal here.
func (g *Game) trainPosition(train *Train) (Point, bool) {
	var line *Line
	for _, l := range g.lines {
		if l.ID == train.LineID {
			line = l
			break
		}
	}
	if line == nil || train.SegmentIndex < 0 || train.SegmentIndex+1 >= len(line.Stations) {
		return Point{}, false
	}
	from, to := segmentEnds(train)
	a, b := g.stationIndex(line.Stations[from]), g.stationIndex(line.Stations[to])
	if a < 0 || b < 0 {
		return Point{}, false
	}
	return LerpPoint(g.level.Stations[a].Position(), g.level.Stations[b].Position(), train.T), true
}

func (g *Game) copyLines() []Line {
	out := make([]Line, len(g.lines))
	for i, l := range g.lines {
		out[i] = Line{ID: l.ID, Color: l.Color, Stations: append([]string(nil), l.Stations...)}
	}
	return out
}

// Lines returns a copy of the player's lines.
func (g *Game) Lines() []Line {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.copyLines()
}

// ActiveLineID returns the line being edited, or empty.
func (g *Game) ActiveLineID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.activeLineID
}

// Level returns the current level specification.
func (g *Game) Level() Level {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.level
}

// Mode returns the current mode.
func (g *Game) Mode() Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// RunState returns the current run state.
func (g *Game) RunState() RunState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.runState
}

// TotalSegments sums station-to-station spans over all lines.
func (g *Game) TotalSegments() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.totalSegments()
}

// HasEdge reports whether two stations are directly connected by any line.
func (g *Game) HasEdge(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasEdge(a, b)
}

// FindStationNear returns the first station within radius of a world point.
// A non-positive radius uses the configured pick radius.
func (g *Game) FindStationNear(x, y, radius float64) (Station, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if radius <= 0 {
		radius = g.settings.PickRadius
	}
	return FindStationNear(g.level.Stations, x, y, radius)
}

// RoutingRebuilds reports how often the tick engine rebuilt its routing table.
func (g *Game) RoutingRebuilds() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sim.Rebuilds()
}
