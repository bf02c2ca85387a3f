/*
Package game
File: models.go
Description:
    Defines all data structures (Structs) used throughout the metro simulation.
    This file serves as the "schema" for the application, mapping directly to
    the YAML level catalog and the JSON snapshots pushed to clients.

    No logic is performed here beyond trivial accessors.
*/

package game

// StationShape is the visual tag a renderer draws for a station.
type StationShape string

const (
	ShapeCircle   StationShape = "circle"
	ShapeSquare   StationShape = "square"
	ShapeTriangle StationShape = "triangle"
)

// Station represents a static location (Node) on the level map.
// Stations are created at level load and never mutated afterwards.
type Station struct {
	ID        string       `yaml:"id" json:"id" validate:"required"`                                    // Unique ID within the level (e.g., "A")
	X         float64      `yaml:"x" json:"x"`                                                          // World X coordinate
	Y         float64      `yaml:"y" json:"y"`                                                          // World Y coordinate
	Shape     StationShape `yaml:"shape" json:"shape" validate:"required,oneof=circle square triangle"` // Render tag
	Capacity  int          `yaml:"capacity" json:"capacity" validate:"gt=0"`                            // Waiting passengers tolerated before overcrowding
	SpawnRate float64      `yaml:"spawn_rate" json:"spawn_rate" validate:"gte=0"`                       // Passengers per second
}

// Position returns the station's world coordinate.
func (s Station) Position() Point {
	return Point{X: s.X, Y: s.Y}
}

// StationPair is an unordered pair of station IDs used by level constraints.
type StationPair [2]string

// Matches reports whether the pair names a and b in either order.
func (p StationPair) Matches(a, b string) bool {
	return (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a)
}

// LevelConstraints bounds what the player may build on a level.
type LevelConstraints struct {
	MaxLines             int           `yaml:"max_lines" json:"max_lines" validate:"gt=0"`
	MaxSegments          int           `yaml:"max_segments" json:"max_segments" validate:"gt=0"`
	MaxStationsPerLine   int           `yaml:"max_stations_per_line" json:"max_stations_per_line" validate:"gte=2"`
	RequiredConnections  []StationPair `yaml:"required_connections" json:"required_connections"`
	ForbiddenConnections []StationPair `yaml:"forbidden_connections" json:"forbidden_connections"`
}

// LevelGoals are the thresholds evaluated every tick while a run is active.
type LevelGoals struct {
	SurviveSeconds                float64 `yaml:"survive_seconds" json:"survive_seconds" validate:"gte=0"`
	DeliveredTarget               int     `yaml:"delivered_target" json:"delivered_target" validate:"gte=0"`
	MaxAvgWait                    float64 `yaml:"max_avg_wait" json:"max_avg_wait" validate:"gt=0"`
	MaxOvercrowdSecondsPerStation float64 `yaml:"max_overcrowd_seconds_per_station" json:"max_overcrowd_seconds_per_station" validate:"gt=0"`
}

// Level is the immutable specification of one playable map.
type Level struct {
	ID          string           `yaml:"id" json:"id" validate:"required"`
	Name        string           `yaml:"name" json:"name" validate:"required"`
	Description string           `yaml:"description" json:"description"`
	Stations    []Station        `yaml:"stations" json:"stations" validate:"min=2,dive"`
	Constraints LevelConstraints `yaml:"constraints" json:"constraints"`
	Goals       LevelGoals       `yaml:"goals" json:"goals"`
}

// Line is a player-built ordered sequence of station IDs.
// A line with fewer than two stations is inert for the simulation.
type Line struct {
	ID       string   `json:"id"`
	Color    string   `json:"color"`
	Stations []string `json:"stations"`
}

// Runnable reports whether a train can shuttle along the line.
func (l *Line) Runnable() bool {
	return len(l.Stations) >= 2
}

// Segments returns the number of station-to-station spans on the line.
func (l *Line) Segments() int {
	if len(l.Stations) < 2 {
		return 0
	}
	return len(l.Stations) - 1
}

// PassengerState is the lifecycle stage of a passenger.
type PassengerState string

const (
	PassengerWaiting PassengerState = "waiting"
	PassengerOnTrain PassengerState = "on_train"
	PassengerArrived PassengerState = "arrived"
)

// Passenger is a single rider travelling from Origin to Destination.
type Passenger struct {
	ID               string         `json:"id"`
	OriginID         string         `json:"origin_id"`
	DestinationID    string         `json:"destination_id"`
	CurrentStationID string         `json:"current_station_id,omitempty"` // Empty while aboard a train
	State            PassengerState `json:"state"`
	WaitTime         float64        `json:"wait_time"`  // Seconds spent waiting at a station
	TotalTime        float64        `json:"total_time"` // Seconds since creation
}

// Direction is the travel sense of a train along its line.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// Train shuttles back and forth along a single line.
type Train struct {
	ID           string       `json:"id"`
	LineID       string       `json:"line_id"`
	SegmentIndex int          `json:"segment_index"` // Lower endpoint index of the current segment
	T            float64      `json:"t"`             // Progress along the current segment, [0,1)
	Direction    Direction    `json:"direction"`
	Speed        float64      `json:"speed"` // World units per second
	Capacity     int          `json:"capacity"`
	Passengers   []*Passenger `json:"passengers"`
	// Departing is set on a fresh train standing at its first station; the
	// engine serves that station once before the train starts moving.
	Departing bool `json:"departing"`
}

// Full reports whether the train has no seat left.
func (t *Train) Full() bool {
	return len(t.Passengers) >= t.Capacity
}

// RuntimeStationState is the simulation-only state kept per station.
type RuntimeStationState struct {
	Waiting          []*Passenger `json:"waiting"`
	SpawnAccumulator float64      `json:"spawn_accumulator"`
	OvercrowdSeconds float64      `json:"overcrowd_seconds"`
}

// Reset clears the waiting queue and all counters.
func (r *RuntimeStationState) Reset() {
	r.Waiting = nil
	r.SpawnAccumulator = 0
	r.OvercrowdSeconds = 0
}

// Mode is the editing/simulating mode of the game.
type Mode string

const (
	ModeBuild    Mode = "build"
	ModeSimulate Mode = "simulate"
)

// RunState is the lifecycle of a simulation run.
type RunState string

const (
	RunStopped RunState = "stopped"
	RunRunning RunState = "running"
	RunPaused  RunState = "paused"
	RunWon     RunState = "won"
	RunLost    RunState = "lost"
)

// NoticeKind categorises a user-facing notice.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice is a short user-facing message produced by the orchestrator.
type Notice struct {
	Text string     `json:"text"`
	Kind NoticeKind `json:"type"`
}

// Stats is the HUD summary of the current game.
type Stats struct {
	LevelName            string   `json:"level_name"`
	Mode                 Mode     `json:"mode"`
	RunState             RunState `json:"run_state"`
	Elapsed              float64  `json:"elapsed"`
	Delivered            int      `json:"delivered"`
	AvgWait              float64  `json:"avg_wait"`
	MostCrowdedStationID string   `json:"most_crowded_station_id"`
	LinesUsed            int      `json:"lines_used"`
	MaxLines             int      `json:"max_lines"`
	SegmentsUsed         int      `json:"segments_used"`
	MaxSegments          int      `json:"max_segments"`
	LevelIndex           int      `json:"level_index"`
	LevelCount           int      `json:"level_count"`
}

// TrainView is a renderer-facing view of a train.
type TrainView struct {
	ID         string  `json:"id"`
	LineID     string  `json:"line_id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Direction  int     `json:"direction"`
	Passengers int     `json:"passengers"`
	Capacity   int     `json:"capacity"`
}

// StationView is a renderer-facing view of a station and its queue.
type StationView struct {
	Station
	Waiting int `json:"waiting"`
}

// Snapshot is a read-only copy of the world handed to rendering/transport layers.
type Snapshot struct {
	Stats        Stats         `json:"stats"`
	Stations     []StationView `json:"stations"`
	Lines        []Line        `json:"lines"`
	Trains       []TrainView   `json:"trains"`
	ActiveLineID string        `json:"active_line_id,omitempty"`
}
