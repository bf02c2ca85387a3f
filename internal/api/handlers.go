/*
Package api
File: handlers.go
Description:
    Contains the HTTP handlers for the REST API.
    These functions decode the JSON requests, call the matching Game command,
    and answer with the fresh snapshot so the client never has to guess what
    changed. Every successful command also pushes that snapshot to the Hub.

    Key Responsibilities:
    - Input Validation (Is the JSON valid? Are the query parameters numbers?)
    - Error Mapping (rule rejections -> 409, unknown ids -> 404)
    - Routing (gorilla/mux, one route per method and path)

    Locking lives inside game.Game; handlers never touch it.
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/everforgeworks/metro-lines/internal/game"
	"github.com/gorilla/mux"
)

// Request DTOs (Data Transfer Objects)

type AddStationRequest struct {
	StationID    string `json:"station_id"`
	ForceNewLine bool   `json:"force_new_line"`
}

type ModeRequest struct {
	Mode game.Mode `json:"mode"`
}

type CreateLineResponse struct {
	LineID   string        `json:"line_id"`
	Snapshot game.Snapshot `json:"snapshot"`
}

type NearResponse struct {
	Found   bool          `json:"found"`
	Station *game.Station `json:"station,omitempty"`
}

// Handlers binds the REST API to one Game and one Hub.
type Handlers struct {
	game *game.Game
	hub  *Hub
}

// NewRouter wires every route, the websocket endpoint and the CORS middleware.
// hub may be nil, in which case nothing is pushed and /ws is not served.
func NewRouter(g *game.Game, hub *Hub) http.Handler {
	h := &Handlers{game: g, hub: hub}
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Information Endpoints
	api.HandleFunc("/level", h.HandleGetLevel).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.HandleGetStats).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", h.HandleGetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/stations/near", h.HandleStationNear).Methods(http.MethodGet)

	// Build Endpoints
	api.HandleFunc("/lines", h.HandleCreateLine).Methods(http.MethodPost)
	api.HandleFunc("/lines/stations", h.HandleAddStation).Methods(http.MethodPost)
	api.HandleFunc("/lines/undo", h.command(h.game.UndoLine)).Methods(http.MethodPost)
	api.HandleFunc("/lines/finish", h.command(always(h.game.FinishLine))).Methods(http.MethodPost)
	api.HandleFunc("/lines/cancel", h.command(always(h.game.CancelLine))).Methods(http.MethodPost)
	api.HandleFunc("/lines/delete", h.command(h.game.DeleteLine)).Methods(http.MethodPost)

	// Simulation Endpoints
	api.HandleFunc("/mode", h.HandleSetMode).Methods(http.MethodPost)
	api.HandleFunc("/sim/start", h.command(h.game.StartSimulation)).Methods(http.MethodPost)
	api.HandleFunc("/sim/pause", h.command(always(h.game.TogglePause))).Methods(http.MethodPost)
	api.HandleFunc("/sim/reset", h.command(always(h.game.Reset))).Methods(http.MethodPost)

	// Level Navigation
	api.HandleFunc("/levels/next", h.command(h.game.NextLevel)).Methods(http.MethodPost)
	api.HandleFunc("/levels/prev", h.command(h.game.PreviousLevel)).Methods(http.MethodPost)
	api.HandleFunc("/levels/{index:[0-9]+}", h.HandleLoadLevel).Methods(http.MethodPost)

	// Real-Time WebSocket Endpoint
	if hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(hub, w, r)
		}).Methods(http.MethodGet)
	}

	return corsMiddleware(r)
}

// HandleGetLevel returns the static specification of the current level.
func (h *Handlers) HandleGetLevel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.game.Level())
}

// HandleGetStats returns the HUD summary.
func (h *Handlers) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.game.Stats())
}

// HandleGetSnapshot returns the full render snapshot.
func (h *Handlers) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.game.Snapshot())
}

// HandleStationNear resolves a world point (a click) to a station.
// Query: x, y and an optional radius.
func (h *Handlers) HandleStationNear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}
	radius := 0.0
	if raw := q.Get("radius"); raw != "" {
		var err error
		if radius, err = strconv.ParseFloat(raw, 64); err != nil {
			http.Error(w, "radius must be a number", http.StatusBadRequest)
			return
		}
	}

	var resp NearResponse
	if station, ok := h.game.FindStationNear(x, y, radius); ok {
		resp.Found = true
		resp.Station = &station
	}
	writeJSON(w, resp)
}

// HandleCreateLine starts a new empty line.
func (h *Handlers) HandleCreateLine(w http.ResponseWriter, r *http.Request) {
	id, err := h.game.CreateLine()
	if err != nil {
		writeError(w, err)
		return
	}
	snap := h.publish()
	writeJSON(w, CreateLineResponse{LineID: id, Snapshot: snap})
}

// HandleAddStation appends a station to the active line.
func (h *Handlers) HandleAddStation(w http.ResponseWriter, r *http.Request) {
	var req AddStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.StationID == "" {
		http.Error(w, "station_id is required", http.StatusBadRequest)
		return
	}
	if err := h.game.AddStation(req.StationID, req.ForceNewLine); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, h.publish())
}

// HandleSetMode switches between build and simulate.
func (h *Handlers) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := h.game.SetMode(req.Mode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, h.publish())
}

// HandleLoadLevel jumps to a level by catalog index.
func (h *Handlers) HandleLoadLevel(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "Bad level index", http.StatusBadRequest)
		return
	}
	if index >= h.game.Stats().LevelCount {
		writeError(w, game.ErrUnknownLevel)
		return
	}
	h.game.LoadLevel(index)
	writeJSON(w, h.publish())
}

// command adapts a body-less Game command to a handler.
func (h *Handlers) command(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, h.publish())
	}
}

func always(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}

// publish pushes the current snapshot to websocket clients and returns it.
func (h *Handlers) publish() game.Snapshot {
	snap := h.game.Snapshot()
	if h.hub != nil {
		h.hub.Publish(MessageSnapshot, snap)
	}
	return snap
}

// statusFor maps game errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrUnknownStation), errors.Is(err, game.ErrUnknownLevel):
		return http.StatusNotFound
	case errors.Is(err, game.ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrInconsistentWorld):
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware lets a browser client served from another origin drive the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
