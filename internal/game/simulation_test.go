package game

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

const testDT = 1.0 / 60

type countingPorts struct {
	created int
	arrived []*Passenger
}

func (p *countingPorts) CreatePassenger(originID, destinationID string) *Passenger {
	p.created++
	return &Passenger{
		ID:               fmt.Sprintf("p-%d", p.created),
		OriginID:         originID,
		DestinationID:    destinationID,
		CurrentStationID: originID,
		State:            PassengerWaiting,
	}
}

func (p *countingPorts) PassengerArrived(passenger *Passenger) {
	p.arrived = append(p.arrived, passenger)
}

func newTestWorld(stations []Station, lines []*Line, trains []*Train) (*World, *countingPorts) {
	ports := &countingPorts{}
	w := &World{
		Goals:        LevelGoals{MaxAvgWait: 30, MaxOvercrowdSecondsPerStation: 10},
		Stations:     stations,
		Lines:        lines,
		Trains:       trains,
		StationState: make([]*RuntimeStationState, len(stations)),
		Ports:        ports,
	}
	for i := range w.StationState {
		w.StationState[i] = &RuntimeStationState{}
	}
	return w, ports
}

// wait queues a fresh passenger at origin.
func (p *countingPorts) wait(w *World, origin, dest string) *Passenger {
	passenger := p.CreatePassenger(origin, dest)
	for i, s := range w.Stations {
		if s.ID == origin {
			w.StationState[i].Waiting = append(w.StationState[i].Waiting, passenger)
		}
	}
	return passenger
}

func testTrain(lineID string, speed float64, capacity int) *Train {
	return &Train{ID: "train-" + lineID, LineID: lineID, Direction: Forward, Speed: speed, Capacity: capacity, Departing: true}
}

func newTestSimulation() *Simulation {
	return NewSimulation(rand.New(rand.NewSource(7)))
}

func mustUpdate(t *testing.T, sim *Simulation, dt float64, w *World) TickResult {
	t.Helper()
	res, err := sim.Update(dt, w)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	return res
}

func TestPassengerRidesToNeighbour(t *testing.T) {
	train := testTrain("l1", 100, 9)
	w, ports := newTestWorld(gridStations("A", "B"), []*Line{testLine("l1", "A", "B")}, []*Train{train})
	p := ports.wait(w, "A", "B")
	sim := newTestSimulation()

	mustUpdate(t, sim, testDT, w)
	if p.State != PassengerOnTrain || len(train.Passengers) != 1 {
		t.Fatalf("passenger should board on the first tick, state=%s", p.State)
	}
	if p.CurrentStationID != "" {
		t.Errorf("CurrentStationID = %q while aboard", p.CurrentStationID)
	}

	for i := 2; i <= 58; i++ {
		mustUpdate(t, sim, testDT, w)
	}
	if len(ports.arrived) != 0 {
		t.Fatal("passenger arrived before the train covered the segment")
	}

	var res TickResult
	for i := 59; i <= 61 && len(ports.arrived) == 0; i++ {
		res = mustUpdate(t, sim, testDT, w)
	}
	if len(ports.arrived) != 1 || ports.arrived[0] != p {
		t.Fatalf("passenger not delivered after ~1s, arrived=%d", len(ports.arrived))
	}
	if p.State != PassengerArrived || p.CurrentStationID != "B" {
		t.Errorf("delivered passenger state=%s station=%q", p.State, p.CurrentStationID)
	}
	if len(train.Passengers) != 0 {
		t.Errorf("train still carries %d passengers", len(train.Passengers))
	}
	if res.AvgWait != 0 {
		t.Errorf("AvgWait = %v with nobody waiting", res.AvgWait)
	}
}

func TestTrainBouncesAtLineEnds(t *testing.T) {
	train := testTrain("l1", 100, 9)
	w, _ := newTestWorld(gridStations("A", "B", "C"), []*Line{testLine("l1", "A", "B", "C")}, []*Train{train})
	sim := newTestSimulation()

	// 2.05s at 100 u/s: A to C is 200 units, then 5 units back toward B.
	mustUpdate(t, sim, 2.05, w)
	if train.Direction != Backward || train.SegmentIndex != 1 {
		t.Fatalf("after reversal: direction=%d segment=%d", train.Direction, train.SegmentIndex)
	}
	if train.T < 0.04 || train.T > 0.06 {
		t.Errorf("T = %.4f, want ~0.05", train.T)
	}

	// 200 more units: back through B to A and 5 units forward again.
	mustUpdate(t, sim, 2.0, w)
	if train.Direction != Forward || train.SegmentIndex != 0 {
		t.Fatalf("after second reversal: direction=%d segment=%d", train.Direction, train.SegmentIndex)
	}
}

func TestTrainCrossesSeveralStationsInOneTick(t *testing.T) {
	train := testTrain("l1", 100, 9)
	w, ports := newTestWorld(gridStations("A", "B", "C"), []*Line{testLine("l1", "A", "B", "C")}, []*Train{train})
	p := ports.wait(w, "A", "C")

	mustUpdate(t, newTestSimulation(), 2.05, w)
	if len(ports.arrived) != 1 || ports.arrived[0] != p {
		t.Fatalf("passenger to C not delivered in one long tick")
	}
}

func TestCoincidentStationsStillAdvance(t *testing.T) {
	stations := []Station{{ID: "A", Capacity: 5}, {ID: "B", Capacity: 5}}
	train := testTrain("l1", 10, 9)
	w, _ := newTestWorld(stations, []*Line{testLine("l1", "A", "B")}, []*Train{train})

	mustUpdate(t, newTestSimulation(), 0.05, w)
	if train.T <= 0 {
		t.Fatalf("train stalled on a zero-length segment, T=%v", train.T)
	}
}

func TestBoardingRequiresMatchingDirection(t *testing.T) {
	train := testTrain("l1", 100, 9)
	w, ports := newTestWorld(gridStations("A", "B", "C"), []*Line{testLine("l1", "A", "B", "C")}, []*Train{train})
	sim := newTestSimulation()
	westbound := ports.wait(w, "B", "A")

	// Arrive at B heading toward C.
	mustUpdate(t, sim, 1.01, w)
	if westbound.State != PassengerWaiting {
		t.Fatalf("passenger for A boarded a train heading to C")
	}

	// Reach C, reverse and come back to B heading toward A.
	mustUpdate(t, sim, 2.0, w)
	if westbound.State != PassengerOnTrain {
		t.Fatalf("passenger for A did not board the westbound train, state=%s", westbound.State)
	}
}

func TestAlightThenBoardAtTerminus(t *testing.T) {
	train := testTrain("l1", 100, 1)
	w, ports := newTestWorld(gridStations("A", "B"), []*Line{testLine("l1", "A", "B")}, []*Train{train})
	sim := newTestSimulation()
	outbound := ports.wait(w, "A", "B")
	mustUpdate(t, sim, testDT, w)

	inbound := ports.wait(w, "B", "A")
	mustUpdate(t, sim, 1.0, w)

	if outbound.State != PassengerArrived {
		t.Fatalf("outbound passenger state = %s", outbound.State)
	}
	// Capacity 1: the seat freed at B goes to the passenger heading back.
	if len(train.Passengers) != 1 || train.Passengers[0] != inbound {
		t.Fatalf("inbound passenger did not take the freed seat")
	}
}

func TestBoardingHonoursCapacityAndQueueOrder(t *testing.T) {
	train := testTrain("l1", 100, 9)
	w, ports := newTestWorld(gridStations("A", "B"), []*Line{testLine("l1", "A", "B")}, []*Train{train})
	for i := 0; i < 20; i++ {
		ports.wait(w, "A", "B")
	}

	mustUpdate(t, newTestSimulation(), testDT, w)
	if len(train.Passengers) != 9 {
		t.Fatalf("train boarded %d, want 9", len(train.Passengers))
	}
	if train.Passengers[0].ID != "p-1" || train.Passengers[8].ID != "p-9" {
		t.Errorf("boarded out of order: first=%s last=%s", train.Passengers[0].ID, train.Passengers[8].ID)
	}
	left := w.StationState[0].Waiting
	if len(left) != 11 || left[0].ID != "p-10" || left[10].ID != "p-20" {
		t.Errorf("remaining queue out of order: %d waiting", len(left))
	}
}

func TestSpawnAccumulatorCrossesOnce(t *testing.T) {
	stations := gridStations("A", "B")
	stations[0].SpawnRate = 1.0
	w, ports := newTestWorld(stations, nil, nil)
	sim := newTestSimulation()

	for i := 0; i < 9; i++ {
		mustUpdate(t, sim, 0.1, w)
	}
	if ports.created != 0 {
		t.Fatalf("spawned %d before one second elapsed", ports.created)
	}
	mustUpdate(t, sim, 0.1, w)
	if ports.created != 1 {
		t.Fatalf("spawned %d after one second, want 1", ports.created)
	}
	p := w.StationState[0].Waiting[0]
	if p.OriginID != "A" || p.DestinationID != "B" {
		t.Errorf("spawned %s -> %s", p.OriginID, p.DestinationID)
	}
	if len(w.StationState[1].Waiting) != 0 {
		t.Error("zero-rate station spawned a passenger")
	}
}

func TestSingleStationNeverSpawns(t *testing.T) {
	stations := gridStations("A")
	stations[0].SpawnRate = 5
	w, ports := newTestWorld(stations, nil, nil)

	mustUpdate(t, newTestSimulation(), 1, w)
	if ports.created != 0 {
		t.Fatalf("spawned %d with no possible destination", ports.created)
	}
}

func TestOvercrowdThreshold(t *testing.T) {
	stations := gridStations("A", "B")
	stations[0].Capacity = 2
	w, ports := newTestWorld(stations, nil, nil)
	w.Goals.MaxOvercrowdSecondsPerStation = 2
	sim := newTestSimulation()
	for i := 0; i < 3; i++ {
		ports.wait(w, "A", "B")
	}

	for i := 0; i < 19; i++ {
		if res := mustUpdate(t, sim, 0.1, w); res.Overcrowded() {
			t.Fatalf("overcrowd reported after %.1fs", float64(i+1)*0.1)
		}
	}

	// Dropping to capacity resets the counter.
	w.StationState[0].Waiting = w.StationState[0].Waiting[:2]
	mustUpdate(t, sim, 0.1, w)
	if w.StationState[0].OvercrowdSeconds != 0 {
		t.Fatalf("OvercrowdSeconds = %v after dropping to capacity", w.StationState[0].OvercrowdSeconds)
	}

	ports.wait(w, "A", "B")
	var res TickResult
	for i := 0; i < 21 && !res.Overcrowded(); i++ {
		res = mustUpdate(t, sim, 0.1, w)
	}
	if res.OvercrowdedStationID != "A" {
		t.Fatalf("OvercrowdedStationID = %q after 2.1s over capacity", res.OvercrowdedStationID)
	}
	if len(res.OvercrowdedStationIDs) != 1 {
		t.Errorf("OvercrowdedStationIDs = %v", res.OvercrowdedStationIDs)
	}
}

func TestMeasureAverageWaitAndCrowding(t *testing.T) {
	w, ports := newTestWorld(gridStations("A", "B", "C"), nil, nil)
	res := mustUpdate(t, newTestSimulation(), 1, w)
	if res.AvgWait != 0 || res.MostCrowdedStationID != "A" {
		t.Fatalf("empty world: avg=%v crowded=%q", res.AvgWait, res.MostCrowdedStationID)
	}

	ports.wait(w, "B", "A")
	ports.wait(w, "B", "C")
	ports.wait(w, "C", "A").WaitTime = 2
	res = mustUpdate(t, newTestSimulation(), 1, w)
	// Waits after the tick: 1, 1, 3.
	if want := 5.0 / 3; res.AvgWait < want-1e-9 || res.AvgWait > want+1e-9 {
		t.Errorf("AvgWait = %v, want %v", res.AvgWait, want)
	}
	if res.MostCrowdedStationID != "B" {
		t.Errorf("MostCrowdedStationID = %q, want B", res.MostCrowdedStationID)
	}
}

func TestPassengersAreConserved(t *testing.T) {
	stations := gridStations("A", "B", "C", "D", "E")
	for i := range stations {
		stations[i].SpawnRate = 1.5
		stations[i].Capacity = 1000
	}
	lines := []*Line{testLine("l1", "A", "B", "C"), testLine("l2", "C", "D"), testLine("l3", "B", "E")}
	trains := []*Train{testTrain("l1", 95, 9), testTrain("l2", 101, 9), testTrain("l3", 107, 9)}
	w, ports := newTestWorld(stations, lines, trains)
	w.Goals.MaxOvercrowdSecondsPerStation = 1e9
	sim := newTestSimulation()

	for tick := 0; tick < 60*60; tick++ {
		mustUpdate(t, sim, testDT, w)

		waiting, riding := 0, 0
		for _, st := range w.StationState {
			waiting += len(st.Waiting)
		}
		for _, train := range w.Trains {
			if len(train.Passengers) > train.Capacity {
				t.Fatalf("tick %d: train %s over capacity (%d)", tick, train.ID, len(train.Passengers))
			}
			riding += len(train.Passengers)
		}
		if total := waiting + riding + len(ports.arrived); total != ports.created {
			t.Fatalf("tick %d: %d waiting + %d riding + %d arrived != %d created",
				tick, waiting, riding, len(ports.arrived), ports.created)
		}
	}
	if len(ports.arrived) == 0 {
		t.Error("a minute of service delivered nobody")
	}
	seen := make(map[string]bool)
	for _, p := range ports.arrived {
		if seen[p.ID] {
			t.Fatalf("passenger %s delivered twice", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestRoutingRebuiltOnlyOnTopologyChange(t *testing.T) {
	l := testLine("l1", "A", "B")
	w, _ := newTestWorld(gridStations("A", "B", "C"), []*Line{l}, []*Train{testTrain("l1", 100, 9)})
	sim := newTestSimulation()

	for i := 0; i < 30; i++ {
		mustUpdate(t, sim, testDT, w)
	}
	if sim.Rebuilds() != 1 {
		t.Fatalf("Rebuilds = %d after unchanged ticks, want 1", sim.Rebuilds())
	}

	l.Stations = append(l.Stations, "C")
	mustUpdate(t, sim, testDT, w)
	if sim.Rebuilds() != 2 {
		t.Fatalf("Rebuilds = %d after extending the line, want 2", sim.Rebuilds())
	}
	if hop, _ := sim.Routes().NextHop("C", "A"); hop != "B" {
		t.Errorf("stale routes: NextHop(C, A) = %q", hop)
	}
}

func TestUpdateRejectsInconsistentWorld(t *testing.T) {
	t.Run("train without line", func(t *testing.T) {
		w, _ := newTestWorld(gridStations("A", "B"), nil, []*Train{testTrain("ghost", 100, 9)})
		_, err := newTestSimulation().Update(testDT, w)
		if !errors.Is(err, ErrInconsistentWorld) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("line with unknown station", func(t *testing.T) {
		w, _ := newTestWorld(gridStations("A", "B"), []*Line{testLine("l1", "A", "Q")}, nil)
		_, err := newTestSimulation().Update(testDT, w)
		if !errors.Is(err, ErrInconsistentWorld) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("missing runtime state", func(t *testing.T) {
		w, _ := newTestWorld(gridStations("A", "B"), nil, nil)
		w.StationState = w.StationState[:1]
		_, err := newTestSimulation().Update(testDT, w)
		if !errors.Is(err, ErrInconsistentWorld) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("segment out of range", func(t *testing.T) {
		train := testTrain("l1", 100, 9)
		train.SegmentIndex = 3
		w, _ := newTestWorld(gridStations("A", "B"), []*Line{testLine("l1", "A", "B")}, []*Train{train})
		_, err := newTestSimulation().Update(testDT, w)
		if !errors.Is(err, ErrInconsistentWorld) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestInertLineTrainStaysPut(t *testing.T) {
	train := testTrain("l1", 100, 9)
	w, _ := newTestWorld(gridStations("A", "B"), []*Line{testLine("l1", "A")}, []*Train{train})

	mustUpdate(t, newTestSimulation(), 1, w)
	if train.T != 0 || train.SegmentIndex != 0 {
		t.Errorf("train on a one-station line moved: segment=%d t=%v", train.SegmentIndex, train.T)
	}
}
