package web

import (
	"encoding/json"
	"io/fs"
	"math"
	"net/http"
	"time"

	"github.com/NYU-Robomaster-Ultraviolet/Type-A-Dev/internal/gimbal"
)

// Controller is the slice of the gimbal the operator surface needs.
type Controller interface {
	ControllerInput(yawDelta, pitchDelta float64)
	CVInput(yawOffset, pitchOffset float64)
	Neutral()
	Snapshot() gimbal.State
}

// JogRequest carries manual stick deflections (unitless).
type JogRequest struct {
	YawDelta   float64 `json:"yaw_delta"`
	PitchDelta float64 `json:"pitch_delta"`
}

// PointRequest carries vision-style offsets in radians, relative to the
// current orientation.
type PointRequest struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *Broadcaster
	Controller  Controller
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *Broadcaster, ctrl Controller, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Controller:  ctrl,
		staticFS:    staticFS,
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleState returns the current gimbal state as JSON.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Controller.Snapshot())
}

// HandleJog handles POST /jog: accumulate manual deflection.
func (h *Handlers) HandleJog(w http.ResponseWriter, r *http.Request) {
	var req JogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if !isFinite(req.YawDelta) || !isFinite(req.PitchDelta) {
		http.Error(w, "deltas must be finite", http.StatusBadRequest)
		return
	}

	h.Controller.ControllerInput(req.YawDelta, req.PitchDelta)
	writeAccepted(w)
}

// HandlePoint handles POST /point: apply a relative pointing offset.
// Out-of-range offsets are saturated by the controller, not rejected.
func (h *Handlers) HandlePoint(w http.ResponseWriter, r *http.Request) {
	var req PointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if !isFinite(req.Yaw) || !isFinite(req.Pitch) {
		http.Error(w, "offsets must be finite", http.StatusBadRequest)
		return
	}

	h.Controller.CVInput(req.Yaw, req.Pitch)
	writeAccepted(w)
}

// HandleNeutral handles POST /neutral: drop the command source.
func (h *Handlers) HandleNeutral(w http.ResponseWriter, r *http.Request) {
	h.Controller.Neutral()
	h.Broadcaster.Broadcast("info", "Gimbal set to neutral")
	writeAccepted(w)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeAccepted(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
