/*
Package game
File: simulation.go
Description:
    The fixed-timestep tick engine.

    One call to Update advances the whole world by dt seconds:
    1. Rebuild the routing table if the line topology changed.
    2. Spawn passengers and accrue wait time at every station.
    3. Move every train, serving each station it reaches (alight, then board).
    4. Measure average wait, crowding and overcrowd failures.

    The engine owns no world state besides its routing cache. Identity and
    scoring are delegated to the PassengerPorts handed in with the World.
*/

package game

import (
	"fmt"
	"math"
	"math/rand"
)

// spawnThreshold absorbs binary rounding so that e.g. ten 0.1s ticks at a
// rate of 1.0 cross the spawn boundary exactly once.
const spawnThreshold = 1 - 1e-9

// minSegmentLength keeps coincident stations from stalling a train.
const minSegmentLength = 1.0

// PassengerPorts are the two capabilities the engine needs from its owner.
type PassengerPorts interface {
	// CreatePassenger assigns identity and initial state to a new rider.
	CreatePassenger(originID, destinationID string) *Passenger
	// PassengerArrived is called exactly once per delivered rider.
	PassengerArrived(p *Passenger)
}

// World is the complete mutable state one tick operates on.
// StationState is aligned by index with Stations.
type World struct {
	Goals        LevelGoals
	Stations     []Station
	Lines        []*Line
	Trains       []*Train
	StationState []*RuntimeStationState
	Ports        PassengerPorts
}

// TickResult carries the aggregate metrics of one tick.
type TickResult struct {
	AvgWait              float64
	MostCrowdedStationID string
	// OvercrowdedStationID is the first station (in level order) whose
	// overcrowd seconds exceeded the goal, or empty when none did.
	OvercrowdedStationID  string
	OvercrowdedStationIDs []string
}

// Overcrowded reports whether any station failed this tick.
func (r TickResult) Overcrowded() bool {
	return r.OvercrowdedStationID != ""
}

// Simulation is the tick engine. It caches the routing table between ticks.
type Simulation struct {
	rng       *rand.Rand
	routes    *RoutingTable
	signature string
	built     bool
	rebuilds  int
}

// NewSimulation creates an engine drawing destinations from rng.
func NewSimulation(rng *rand.Rand) *Simulation {
	return &Simulation{rng: rng}
}

// Routes returns the current routing table (nil before the first rebuild).
func (s *Simulation) Routes() *RoutingTable {
	return s.routes
}

// Rebuilds counts how many times the routing table was recomputed.
func (s *Simulation) Rebuilds() int {
	return s.rebuilds
}

// Invalidate forces a rebuild on the next tick. Called when the station set changes.
func (s *Simulation) Invalidate() {
	s.built = false
	s.signature = ""
	s.routes = nil
}

// RebuildRouting recomputes the next-hop table only when the line signature changed.
func (s *Simulation) RebuildRouting(stations []Station, lines []*Line) error {
	sig := LineSignature(lines)
	if s.built && sig == s.signature {
		return nil
	}
	table, err := BuildRoutingTable(stations, lines)
	if err != nil {
		return err
	}
	s.routes = table
	s.signature = sig
	s.built = true
	s.rebuilds++
	return nil
}

// Update advances the world by dt seconds.
func (s *Simulation) Update(dt float64, w *World) (TickResult, error) {
	if len(w.StationState) != len(w.Stations) {
		return TickResult{}, fmt.Errorf("%d stations but %d runtime states: %w", len(w.Stations), len(w.StationState), ErrInconsistentWorld)
	}
	if err := s.RebuildRouting(w.Stations, w.Lines); err != nil {
		return TickResult{}, err
	}

	stationIdx := make(map[string]int, len(w.Stations))
	for i, st := range w.Stations {
		stationIdx[st.ID] = i
	}
	for i := range w.Stations {
		state := w.StationState[i]
		if state == nil {
			return TickResult{}, fmt.Errorf("station %q has no runtime state: %w", w.Stations[i].ID, ErrInconsistentWorld)
		}
		s.spawnPassengers(dt, i, w)
		for _, p := range state.Waiting {
			p.WaitTime += dt
			p.TotalTime += dt
		}
	}

	lineByID := make(map[string]*Line, len(w.Lines))
	for _, line := range w.Lines {
		lineByID[line.ID] = line
	}
	for _, train := range w.Trains {
		line, ok := lineByID[train.LineID]
		if !ok {
			return TickResult{}, fmt.Errorf("train %q: line %q: %w", train.ID, train.LineID, ErrInconsistentWorld)
		}
		if err := s.advanceTrain(dt, train, line, stationIdx, w); err != nil {
			return TickResult{}, fmt.Errorf("train %q: %w", train.ID, err)
		}
		for _, p := range train.Passengers {
			p.TotalTime += dt
		}
	}

	return measure(dt, w), nil
}

// spawnPassengers converts the station's continuous rate into discrete riders.
func (s *Simulation) spawnPassengers(dt float64, i int, w *World) {
	station := w.Stations[i]
	state := w.StationState[i]
	state.SpawnAccumulator += station.SpawnRate * dt

	for state.SpawnAccumulator >= spawnThreshold {
		state.SpawnAccumulator = math.Max(0, state.SpawnAccumulator-1)
		dest, ok := PickStationExcluding(s.rng, w.Stations, station.ID)
		if !ok {
			return
		}
		p := w.Ports.CreatePassenger(station.ID, dest.ID)
		state.Waiting = append(state.Waiting, p)
	}
}

// segmentEnds returns the line indices a train travels from and to.
func segmentEnds(train *Train) (from, to int) {
	if train.Direction == Forward {
		return train.SegmentIndex, train.SegmentIndex + 1
	}
	return train.SegmentIndex + 1, train.SegmentIndex
}

// advanceTrain consumes speed*dt of distance, possibly crossing several stations.
func (s *Simulation) advanceTrain(dt float64, train *Train, line *Line, stationIdx map[string]int, w *World) error {
	if !line.Runnable() {
		return nil
	}
	if train.SegmentIndex < 0 || train.SegmentIndex > len(line.Stations)-2 {
		return fmt.Errorf("segment %d outside line %q: %w", train.SegmentIndex, line.ID, ErrInconsistentWorld)
	}

	if train.Departing {
		from, _ := segmentEnds(train)
		if err := s.serveStop(train, line, from, stationIdx, w); err != nil {
			return err
		}
		train.Departing = false
	}

	remaining := train.Speed * dt
	for remaining > 0 {
		fromIndex, toIndex := segmentEnds(train)
		fromPos, err := stationPosition(line, fromIndex, stationIdx, w)
		if err != nil {
			return err
		}
		toPos, err := stationPosition(line, toIndex, stationIdx, w)
		if err != nil {
			return err
		}

		segmentLength := math.Max(Distance(fromPos, toPos), minSegmentLength)
		toArrival := (1 - train.T) * segmentLength
		if remaining < toArrival {
			train.T += remaining / segmentLength
			return nil
		}

		remaining -= toArrival
		train.T = 0
		if err := s.serveStop(train, line, toIndex, stationIdx, w); err != nil {
			return err
		}

		// Bounce at the line ends.
		last := len(line.Stations) - 1
		if train.Direction == Forward {
			if toIndex == last {
				train.Direction = Backward
				train.SegmentIndex = last - 1
			} else {
				train.SegmentIndex = toIndex
			}
		} else {
			if toIndex == 0 {
				train.Direction = Forward
				train.SegmentIndex = 0
			} else {
				train.SegmentIndex = toIndex - 1
			}
		}
	}
	return nil
}

func stationPosition(line *Line, lineIndex int, stationIdx map[string]int, w *World) (Point, error) {
	i, ok := stationIdx[line.Stations[lineIndex]]
	if !ok {
		return Point{}, fmt.Errorf("line %q: station %q: %w", line.ID, line.Stations[lineIndex], ErrInconsistentWorld)
	}
	return w.Stations[i].Position(), nil
}

// serveStop alights riders bound for the station, then boards waiting riders
// whose next hop is the station this train visits next.
func (s *Simulation) serveStop(train *Train, line *Line, lineIndex int, stationIdx map[string]int, w *World) error {
	stationID := line.Stations[lineIndex]
	si, ok := stationIdx[stationID]
	if !ok {
		return fmt.Errorf("line %q: station %q: %w", line.ID, stationID, ErrInconsistentWorld)
	}
	state := w.StationState[si]

	// 1. Alight
	stillOnTrain := train.Passengers[:0]
	for _, p := range train.Passengers {
		if p.DestinationID == stationID {
			p.State = PassengerArrived
			p.CurrentStationID = stationID
			w.Ports.PassengerArrived(p)
		} else {
			stillOnTrain = append(stillOnTrain, p)
		}
	}
	for i := len(stillOnTrain); i < len(train.Passengers); i++ {
		train.Passengers[i] = nil
	}
	train.Passengers = stillOnTrain

	// 2. Board
	nextStationID, ok := nextStationAfterStop(line, lineIndex, train.Direction)
	if !ok || len(state.Waiting) == 0 {
		return nil
	}
	remainingWaiting := make([]*Passenger, 0, len(state.Waiting))
	for _, p := range state.Waiting {
		if train.Full() {
			remainingWaiting = append(remainingWaiting, p)
			continue
		}
		hop, ok := s.routes.NextHop(p.DestinationID, stationID)
		if ok && hop == nextStationID {
			p.State = PassengerOnTrain
			p.CurrentStationID = ""
			train.Passengers = append(train.Passengers, p)
		} else {
			remainingWaiting = append(remainingWaiting, p)
		}
	}
	state.Waiting = remainingWaiting
	return nil
}

// nextStationAfterStop looks one station ahead in the direction of travel,
// accounting for the reversal at either end of the line.
func nextStationAfterStop(line *Line, lineIndex int, dir Direction) (string, bool) {
	n := len(line.Stations)
	if n < 2 {
		return "", false
	}
	if dir == Forward {
		if lineIndex == n-1 {
			return line.Stations[n-2], true
		}
		return line.Stations[lineIndex+1], true
	}
	if lineIndex == 0 {
		return line.Stations[1], true
	}
	return line.Stations[lineIndex-1], true
}

// measure computes the tick's aggregate metrics and overcrowd bookkeeping.
func measure(dt float64, w *World) TickResult {
	var res TickResult
	totalWait := 0.0
	totalWaiting := 0
	mostCrowdedCount := -1

	for i, station := range w.Stations {
		state := w.StationState[i]
		count := len(state.Waiting)
		if count > mostCrowdedCount {
			mostCrowdedCount = count
			res.MostCrowdedStationID = station.ID
		}

		if count > station.Capacity {
			state.OvercrowdSeconds += dt
			if state.OvercrowdSeconds > w.Goals.MaxOvercrowdSecondsPerStation {
				if res.OvercrowdedStationID == "" {
					res.OvercrowdedStationID = station.ID
				}
				res.OvercrowdedStationIDs = append(res.OvercrowdedStationIDs, station.ID)
			}
		} else {
			state.OvercrowdSeconds = 0
		}

		for _, p := range state.Waiting {
			totalWait += p.WaitTime
			totalWaiting++
		}
	}

	if totalWaiting > 0 {
		res.AvgWait = totalWait / float64(totalWaiting)
	}
	return res
}
