package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"crowdsim/internal/geom"

	"github.com/go-chi/chi/v5"
)

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.runner.Snapshot())
}

func (h *routerHandlers) handleGetObstacles(w http.ResponseWriter, r *http.Request) {
	outlines := h.runner.ObstacleOutlines()
	if outlines == nil {
		outlines = [][]geom.Vec2{}
	}
	writeJSON(w, map[string]interface{}{
		"obstacles": outlines,
		"count":     len(outlines),
	})
}

func (h *routerHandlers) handleAddAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position geom.Vec2 `json:"position"`
		Goal     geom.Vec2 `json:"goal"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if h.maxAgents > 0 && h.runner.Snapshot().AgentCount >= h.maxAgents {
		RecordConnectionRejected("agent_cap")
		writeError(w, "agent limit reached", http.StatusTooManyRequests)
		return
	}

	id := h.runner.AddAgent(req.Position, req.Goal)
	if id < 0 {
		writeError(w, "agent defaults not configured", http.StatusConflict)
		return
	}

	writeJSON(w, map[string]int{"id": id})
}

func (h *routerHandlers) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	var req struct {
		Goal geom.Vec2 `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !h.runner.SetGoal(id, req.Goal) {
		writeError(w, "unknown agent", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleAddObstacle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vertices []geom.Vec2 `json:"vertices"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := h.runner.AddObstacle(req.Vertices)
	if id < 0 {
		writeError(w, "an obstacle needs at least 2 vertices", http.StatusBadRequest)
		return
	}

	h.runner.ProcessObstacles()

	writeJSON(w, map[string]int{"firstVertexId": id})
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
