/*
Package game
File: errors.go
Description:
    Sentinel errors returned by Game commands and the tick engine.
*/

package game

import "errors"

// Rule rejections. These are expected during play: the attempted action is
// refused, state is left untouched and a notice is emitted.
var (
	ErrNotBuildMode        = errors.New("switch to build mode to edit lines")
	ErrMaxLines            = errors.New("max lines reached for this level")
	ErrMaxStationsPerLine  = errors.New("max stations per line reached")
	ErrMaxSegments         = errors.New("max segments reached for this level")
	ErrForbiddenConnection = errors.New("connection is forbidden")
	ErrNoActiveLine        = errors.New("no active line")
	ErrNoLines             = errors.New("no lines to delete")
	ErrNoRunnableLine      = errors.New("build at least one line with two stations")
	ErrRequiredConnection  = errors.New("required connection missing for this level")
	ErrUnknownStation      = errors.New("unknown station")
	ErrUnknownLevel        = errors.New("unknown level")
	ErrUnknownMode         = errors.New("unknown mode")
)

// ErrInconsistentWorld is returned by the tick engine when the world it was
// handed references lines, stations or runtime state that do not exist.
// It signals a programming error, not a player mistake.
var ErrInconsistentWorld = errors.New("inconsistent simulation world")
