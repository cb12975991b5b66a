package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"frameclash/internal/arena"
	"frameclash/internal/combat"
)

// Handler methods for routerHandlers.
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.arena.Snapshot())
}

// actionListing is the catalog view exposed to clients: frame data and cancel
// rules, without the integration payload internals.
type actionListing struct {
	ID                combat.ActionID   `json:"id"`
	DisplayName       string            `json:"displayName"`
	StartupFrames     int               `json:"startupFrames"`
	ActiveFrames      int               `json:"activeFrames"`
	RecoveryFrames    int               `json:"recoveryFrames"`
	TotalFrames       int               `json:"totalFrames"`
	CancelWindowStart int               `json:"cancelWindowStart"`
	CancelWindowEnd   int               `json:"cancelWindowEnd"`
	CancelInto        []combat.ActionID `json:"cancelInto"`
	Priority          combat.Priority   `json:"priority"`
	HasHyperArmor     bool              `json:"hasHyperArmor"`
	StylePoints       float64           `json:"stylePoints"`
}

func (h *routerHandlers) handleGetActions(w http.ResponseWriter, r *http.Request) {
	cat := h.arena.Catalog()

	listings := make([]actionListing, 0, cat.Len())
	for _, id := range cat.IDs() {
		def, _ := cat.Get(id)
		listings = append(listings, actionListing{
			ID:                def.ID,
			DisplayName:       def.DisplayName,
			StartupFrames:     def.StartupFrames,
			ActiveFrames:      def.ActiveFrames,
			RecoveryFrames:    def.RecoveryFrames,
			TotalFrames:       def.TotalFrames(),
			CancelWindowStart: def.CancelWindowStart,
			CancelWindowEnd:   def.CancelWindowEnd,
			CancelInto:        def.CancelInto,
			Priority:          def.Priority,
			HasHyperArmor:     def.HasHyperArmor,
			StylePoints:       def.StylePoints,
		})
	}
	writeJSON(w, listings)
}

func (h *routerHandlers) handleFighterJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "Name is required", http.StatusBadRequest)
		return
	}

	switch err := h.arena.Join(req.Name); {
	case err == nil:
		writeJSON(w, map[string]interface{}{"joined": req.Name})
	case errors.Is(err, arena.ErrFighterExists):
		writeError(w, "Fighter already joined", http.StatusConflict)
	case errors.Is(err, arena.ErrArenaFull):
		writeError(w, "Fighter limit reached", http.StatusServiceUnavailable)
	default:
		writeError(w, err.Error(), http.StatusBadRequest)
	}
}

func (h *routerHandlers) handleFighterLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.arena.Leave(req.Name); err != nil {
		writeError(w, "Unknown fighter", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{"left": req.Name})
}

func (h *routerHandlers) handleFighterAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Action == "" {
		writeError(w, "Name and action are required", http.StatusBadRequest)
		return
	}

	started, err := h.arena.RequestAction(req.Name, combat.ActionID(req.Action))
	if err != nil {
		writeError(w, "Unknown fighter", http.StatusNotFound)
		return
	}

	// started=false is not an error: the request may have been buffered
	writeJSON(w, map[string]interface{}{
		"action":  req.Action,
		"started": started,
	})
}

func (h *routerHandlers) handleFighterStun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string  `json:"name"`
		Seconds float64 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Seconds <= 0 {
		req.Seconds = 0.5 // Default stun
	}
	if req.Seconds > 5 {
		req.Seconds = 5 // Cap
	}

	landed, err := h.arena.Stun(req.Name, req.Seconds)
	if err != nil {
		writeError(w, "Unknown fighter", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{
		"landed":  landed,
		"seconds": req.Seconds,
	})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
