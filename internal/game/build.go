/*
Package game
File: build.go
Description:
    Build-mode line editing. Every operation either applies fully or is
    rejected with a notice and leaves the lines untouched.
*/

package game

import (
	"fmt"

	"github.com/google/uuid"
)

// CreateLine starts an empty line and makes it the active one.
func (g *Game) CreateLine() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	line, err := g.createLine()
	if err != nil {
		return "", err
	}
	return line.ID, nil
}

// createLine assumes the lock is held.
func (g *Game) createLine() (*Line, error) {
	if g.mode != ModeBuild {
		return nil, g.reject(ErrNotBuildMode)
	}
	if len(g.lines) >= g.level.Constraints.MaxLines {
		return nil, g.reject(ErrMaxLines)
	}
	line := &Line{
		ID:    "line-" + uuid.NewString(),
		Color: g.settings.Palette[len(g.lines)%len(g.settings.Palette)],
	}
	g.lines = append(g.lines, line)
	g.activeLineID = line.ID
	return line, nil
}

// AddStation appends stationID to the active line, creating a line first when
// none is active or forceNewLine is set.
func (g *Game) AddStation(stationID string, forceNewLine bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode != ModeBuild {
		return g.reject(ErrNotBuildMode)
	}
	if g.stationIndex(stationID) < 0 {
		return g.reject(fmt.Errorf("%q: %w", stationID, ErrUnknownStation))
	}

	line := g.activeLine()
	if forceNewLine || line == nil {
		var err error
		if line, err = g.createLine(); err != nil {
			return err
		}
	}

	if len(line.Stations) >= g.level.Constraints.MaxStationsPerLine {
		return g.reject(ErrMaxStationsPerLine)
	}

	if n := len(line.Stations); n > 0 {
		last := line.Stations[n-1]
		if last == stationID {
			return nil
		}
		if g.totalSegments()+1 > g.level.Constraints.MaxSegments {
			return g.reject(ErrMaxSegments)
		}
		if g.isForbidden(last, stationID) {
			return g.reject(fmt.Errorf("%s-%s: %w", last, stationID, ErrForbiddenConnection))
		}
	}

	line.Stations = append(line.Stations, stationID)
	return nil
}

// UndoLine removes the last station of the active line, deleting the line
// once it is empty.
func (g *Game) UndoLine() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode != ModeBuild {
		return g.reject(ErrNotBuildMode)
	}
	line := g.activeLine()
	if line == nil {
		return g.reject(ErrNoActiveLine)
	}
	if len(line.Stations) > 0 {
		line.Stations = line.Stations[:len(line.Stations)-1]
	}
	if len(line.Stations) == 0 {
		g.removeLine(line.ID)
		g.activeLineID = ""
	}
	return nil
}

// DeleteLine removes the active line, or the most recently created one.
func (g *Game) DeleteLine() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode != ModeBuild {
		return g.reject(ErrNotBuildMode)
	}
	if len(g.lines) == 0 {
		return g.reject(ErrNoLines)
	}
	target := g.activeLineID
	if g.activeLine() == nil {
		target = g.lines[len(g.lines)-1].ID
	}
	g.removeLine(target)
	g.activeLineID = ""
	return nil
}

// FinishLine deactivates the active line and keeps it.
func (g *Game) FinishLine() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activeLineID = ""
}

// CancelLine behaves like FinishLine.
func (g *Game) CancelLine() {
	g.FinishLine()
}

func (g *Game) activeLine() *Line {
	if g.activeLineID == "" {
		return nil
	}
	for _, line := range g.lines {
		if line.ID == g.activeLineID {
			return line
		}
	}
	return nil
}

func (g *Game) removeLine(id string) {
	kept := g.lines[:0]
	for _, line := range g.lines {
		if line.ID != id {
			kept = append(kept, line)
		}
	}
	for i := len(kept); i < len(g.lines); i++ {
		g.lines[i] = nil
	}
	g.lines = kept
}

func (g *Game) isForbidden(a, b string) bool {
	for _, pair := range g.level.Constraints.ForbiddenConnections {
		if pair.Matches(a, b) {
			return true
		}
	}
	return false
}

func (g *Game) totalSegments() int {
	total := 0
	for _, line := range g.lines {
		total += line.Segments()
	}
	return total
}

// hasEdge reports whether any line has a and b adjacent in either order.
func (g *Game) hasEdge(a, b string) bool {
	for _, line := range g.lines {
		for i := 0; i+1 < len(line.Stations); i++ {
			if (StationPair{line.Stations[i], line.Stations[i+1]}).Matches(a, b) {
				return true
			}
		}
	}
	return false
}
