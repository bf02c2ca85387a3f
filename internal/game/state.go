/*
Package game
File: state.go
Description:
    Manages the runtime state of a play session.
    Game owns the level catalog, the player's lines, the trains, the per-station
    runtime state and the run metrics. It drives the tick engine and applies
    the level's win and loss thresholds.

    Every exported method takes the lock, so HTTP handlers and the frame loop
    can share one Game. The tick engine itself never runs concurrently.
*/

package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Settings are the tunables of a session, normally filled from config.yaml.
type Settings struct {
	TickRate            float64 // Fixed simulation steps per second
	MaxFrameSeconds     float64 // Cap on wall-clock time fed per frame
	AvgWaitGraceSeconds float64 // How long the average wait may exceed the goal
	TrainBaseSpeed      float64
	TrainSpeedStep      float64 // Added per runnable line index
	TrainCapacity       int
	Palette             []string
	Seed                int64 // Zero seeds from the clock
	PickRadius          float64
}

// DefaultSettings mirrors the shipped config.yaml.
func DefaultSettings() Settings {
	return Settings{
		TickRate:            60,
		MaxFrameSeconds:     0.25,
		AvgWaitGraceSeconds: 10,
		TrainBaseSpeed:      95,
		TrainSpeedStep:      6,
		TrainCapacity:       9,
		Palette:             DefaultPalette,
		PickRadius:          22,
	}
}

// Game is the level/run orchestrator.
type Game struct {
	mu sync.RWMutex

	settings Settings
	levels   []Level
	notify   func(Notice)
	sim      *Simulation

	levelIndex int
	level      Level

	mode     Mode
	runState RunState

	lines        []*Line
	activeLineID string
	trains       []*Train
	trainLines   string // LineSignature the trains were last reconciled with
	stationState []*RuntimeStationState

	elapsed              float64
	delivered            int
	avgWait              float64
	avgWaitExceeded      float64
	mostCrowdedStationID string
	passengerCounter     int
	accumulator          float64
}

// NewGame creates a session on the first level of the catalog.
func NewGame(catalog *LevelCatalog, settings Settings, notify func(Notice)) *Game {
	if settings.TickRate <= 0 {
		settings.TickRate = DefaultSettings().TickRate
	}
	if len(settings.Palette) == 0 {
		settings.Palette = DefaultPalette
	}
	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if notify == nil {
		notify = func(Notice) {}
	}

	g := &Game{
		settings: settings,
		levels:   catalog.Levels,
		notify:   notify,
		sim:      NewSimulation(rand.New(rand.NewSource(seed))),
	}
	g.loadLevel(0)
	return g
}

// SetNotifier replaces the notice callback.
func (g *Game) SetNotifier(notify func(Notice)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if notify == nil {
		notify = func(Notice) {}
	}
	g.notify = notify
}

// ReplaceCatalog swaps the level catalog (hot reload) and reloads the
// current level index, clamped to the new catalog.
func (g *Game) ReplaceCatalog(catalog *LevelCatalog) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.levels = catalog.Levels
	g.loadLevel(g.levelIndex)
}

// LoadLevel switches to the level at index (clamped to the catalog).
func (g *Game) LoadLevel(index int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loadLevel(index)
}

// NextLevel advances to the next level when there is one.
func (g *Game) NextLevel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.levelIndex >= len(g.levels)-1 {
		return ErrUnknownLevel
	}
	g.loadLevel(g.levelIndex + 1)
	return nil
}

// PreviousLevel goes back one level when there is one.
func (g *Game) PreviousLevel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.levelIndex == 0 {
		return ErrUnknownLevel
	}
	g.loadLevel(g.levelIndex - 1)
	return nil
}

// Reset fully reloads the current level.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loadLevel(g.levelIndex)
}

// loadLevel puts the session back into build mode on a fresh level.
// Caller must hold the lock.
func (g *Game) loadLevel(index int) {
	if index > len(g.levels)-1 {
		index = len(g.levels) - 1
	}
	if index < 0 {
		index = 0
	}
	g.levelIndex = index
	g.level = g.levels[index]

	g.mode = ModeBuild
	g.runState = RunStopped
	g.lines = nil
	g.activeLineID = ""
	g.trains = nil
	g.trainLines = ""
	g.elapsed = 0
	g.delivered = 0
	g.avgWait = 0
	g.avgWaitExceeded = 0
	g.passengerCounter = 0
	g.accumulator = 0
	g.mostCrowdedStationID = ""
	if len(g.level.Stations) > 0 {
		g.mostCrowdedStationID = g.level.Stations[0].ID
	}

	g.stationState = make([]*RuntimeStationState, len(g.level.Stations))
	for i := range g.stationState {
		g.stationState[i] = &RuntimeStationState{}
	}
	g.sim.Invalidate()

	g.notify(Notice{Text: fmt.Sprintf("Loaded %s", g.level.Name), Kind: NoticeInfo})
}

// SetMode switches between build and simulate. Entering build mode while a
// run is advancing pauses it.
func (g *Game) SetMode(mode Mode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if mode != ModeBuild && mode != ModeSimulate {
		return fmt.Errorf("%q: %w", mode, ErrUnknownMode)
	}
	g.mode = mode
	if mode == ModeBuild && g.runState == RunRunning {
		g.runState = RunPaused
	}
	return nil
}

// StartSimulation validates the network and starts (or resumes) a run.
func (g *Game) StartSimulation() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	runnable := false
	for _, line := range g.lines {
		if line.Runnable() {
			runnable = true
			break
		}
	}
	if !runnable {
		return g.reject(ErrNoRunnableLine)
	}
	for _, pair := range g.level.Constraints.RequiredConnections {
		if !g.hasEdge(pair[0], pair[1]) {
			return g.reject(fmt.Errorf("%s-%s: %w", pair[0], pair[1], ErrRequiredConnection))
		}
	}

	switch g.runState {
	case RunStopped, RunWon, RunLost:
		g.initializeRun()
	case RunPaused:
		g.syncTrains()
	}
	g.mode = ModeSimulate
	g.runState = RunRunning
	return nil
}

// TogglePause flips running and paused; any other state is left alone.
func (g *Game) TogglePause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.runState {
	case RunRunning:
		g.runState = RunPaused
	case RunPaused:
		g.runState = RunRunning
	}
}

// initializeRun clears runtime state and puts one train on every runnable line.
// Caller must hold the lock.
func (g *Game) initializeRun() {
	for _, st := range g.stationState {
		st.Reset()
	}
	g.trains = nil
	index := 0
	for _, line := range g.lines {
		if !line.Runnable() {
			continue
		}
		g.trains = append(g.trains, g.newTrain(line, index))
		index++
	}
	g.trainLines = LineSignature(g.lines)
	g.elapsed = 0
	g.delivered = 0
	g.avgWait = 0
	g.avgWaitExceeded = 0
	g.accumulator = 0
}

// syncTrains reconciles trains with lines edited while the run was paused.
// Trains of deleted or inert lines are withdrawn and their riders go back to
// their origin station. Surviving trains are kept inside shortened lines and
// newly runnable lines get a train. Caller must hold the lock.
func (g *Game) syncTrains() {
	lineByID := make(map[string]*Line, len(g.lines))
	for _, line := range g.lines {
		lineByID[line.ID] = line
	}

	kept := g.trains[:0]
	served := make(map[string]bool, len(g.trains))
	for _, train := range g.trains {
		line, ok := lineByID[train.LineID]
		if !ok || !line.Runnable() {
			g.requeue(train.Passengers)
			continue
		}
		if train.SegmentIndex > len(line.Stations)-2 {
			train.SegmentIndex = len(line.Stations) - 2
		}
		served[line.ID] = true
		kept = append(kept, train)
	}
	g.trains = kept

	index := 0
	for _, line := range g.lines {
		if !line.Runnable() {
			continue
		}
		if !served[line.ID] {
			g.trains = append(g.trains, g.newTrain(line, index))
		}
		index++
	}
	g.trainLines = LineSignature(g.lines)
}

// requeue returns riders to the waiting queue of their origin station.
func (g *Game) requeue(passengers []*Passenger) {
	for _, p := range passengers {
		i := g.stationIndex(p.OriginID)
		if i < 0 {
			continue
		}
		p.State = PassengerWaiting
		p.CurrentStationID = p.OriginID
		g.stationState[i].Waiting = append(g.stationState[i].Waiting, p)
	}
}

func (g *Game) newTrain(line *Line, index int) *Train {
	return &Train{
		ID:           "train-" + line.ID,
		LineID:       line.ID,
		SegmentIndex: 0,
		T:            0,
		Direction:    Forward,
		Speed:        g.settings.TrainBaseSpeed + float64(index)*g.settings.TrainSpeedStep,
		Capacity:     g.settings.TrainCapacity,
		Departing:    true,
	}
}

// InjectPassenger places a waiting rider at originID bound for destinationID.
func (g *Game) InjectPassenger(originID, destinationID string) (*Passenger, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.stationIndex(originID)
	if i < 0 {
		return nil, fmt.Errorf("%q: %w", originID, ErrUnknownStation)
	}
	if g.stationIndex(destinationID) < 0 {
		return nil, fmt.Errorf("%q: %w", destinationID, ErrUnknownStation)
	}
	p := g.createPassenger(originID, destinationID)
	g.stationState[i].Waiting = append(g.stationState[i].Waiting, p)
	return p, nil
}

// Frame feeds real elapsed time into the fixed-step accumulator and drains it.
// Only a running simulation consumes time. A non-nil error means the world
// became inconsistent and the session cannot continue.
func (g *Game) Frame(deltaSeconds float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.advancing() {
		return nil
	}
	g.accumulator += Clamp(deltaSeconds, 0, g.settings.MaxFrameSeconds)
	dt := 1 / g.settings.TickRate
	for g.accumulator >= dt && g.advancing() {
		if err := g.step(dt); err != nil {
			return err
		}
		g.accumulator -= dt
	}
	return nil
}

// Step advances a running simulation by exactly dt seconds.
func (g *Game) Step(dt float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.advancing() {
		return nil
	}
	return g.step(dt)
}

func (g *Game) advancing() bool {
	return g.mode == ModeSimulate && g.runState == RunRunning
}

// step runs one tick and evaluates the goals. Caller must hold the lock.
func (g *Game) step(dt float64) error {
	// A run can resume through TogglePause as well as StartSimulation.
	if LineSignature(g.lines) != g.trainLines {
		g.syncTrains()
	}
	g.elapsed += dt
	res, err := g.sim.Update(dt, &World{
		Goals:        g.level.Goals,
		Stations:     g.level.Stations,
		Lines:        g.lines,
		Trains:       g.trains,
		StationState: g.stationState,
		Ports:        sessionPorts{g},
	})
	if err != nil {
		return fmt.Errorf("tick at %.3fs: %w", g.elapsed, err)
	}

	g.avgWait = res.AvgWait
	g.mostCrowdedStationID = res.MostCrowdedStationID
	goals := g.level.Goals

	if res.Overcrowded() {
		g.lose(fmt.Sprintf("Station %s overcrowded too long.", res.OvercrowdedStationID))
		return nil
	}

	if g.avgWait > goals.MaxAvgWait {
		g.avgWaitExceeded += dt
		if g.avgWaitExceeded >= g.settings.AvgWaitGraceSeconds {
			g.lose("Average wait stayed too high for too long.")
			return nil
		}
	} else {
		g.avgWaitExceeded = 0
	}

	if g.elapsed >= goals.SurviveSeconds && g.delivered >= goals.DeliveredTarget && g.avgWait <= goals.MaxAvgWait {
		g.win()
	}
	return nil
}

func (g *Game) win() {
	if g.runState == RunWon {
		return
	}
	g.runState = RunWon
	g.notify(Notice{Text: fmt.Sprintf("Level complete: %s", g.level.Name), Kind: NoticeSuccess})
}

func (g *Game) lose(reason string) {
	if g.runState == RunLost {
		return
	}
	g.runState = RunLost
	g.notify(Notice{Text: reason, Kind: NoticeError})
}

// reject reports a refused action and hands the error back to the caller.
func (g *Game) reject(err error) error {
	g.notify(Notice{Text: err.Error(), Kind: NoticeError})
	return err
}

func (g *Game) createPassenger(originID, destinationID string) *Passenger {
	g.passengerCounter++
	return &Passenger{
		ID:               fmt.Sprintf("p-%d", g.passengerCounter),
		OriginID:         originID,
		DestinationID:    destinationID,
		CurrentStationID: originID,
		State:            PassengerWaiting,
	}
}

// sessionPorts adapts Game to the tick engine's PassengerPorts.
// The engine calls it with the Game lock already held.
type sessionPorts struct{ g *Game }

func (p sessionPorts) CreatePassenger(originID, destinationID string) *Passenger {
	return p.g.createPassenger(originID, destinationID)
}

func (p sessionPorts) PassengerArrived(*Passenger) {
	p.g.delivered++
}

func (g *Game) stationIndex(id string) int {
	for i, s := range g.level.Stations {
		if s.ID == id {
			return i
		}
	}
	return -1
}
