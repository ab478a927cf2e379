package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"land-grab/internal/protocol"
	"land-grab/internal/render"
	"land-grab/internal/room"
)

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"rooms":       h.rooms.Stats(),
		"rateLimiter": h.limiter.GetStats(),
	}
	if h.connections != nil {
		stats["connections"] = h.connections()
	}
	writeJSON(w, stats)
}

// handleListRooms lists public rooms. ?joinable=true keeps only rooms still
// accepting players.
func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.rooms.PublicRooms()
	if r.URL.Query().Get("joinable") == "true" {
		open := rooms[:0]
		for _, s := range rooms {
			if s.State == room.StateLobby && s.Players < s.MaxPlayers {
				open = append(open, s)
			}
		}
		rooms = open
	}
	writeJSON(w, map[string]interface{}{
		"rooms": rooms,
		"count": len(rooms),
	})
}

type roomDetail struct {
	room.Summary
	Lobby []protocol.LobbyPlayer `json:"lobby"`
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.rooms.Room(chi.URLParam(r, "roomID"))
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	detail := roomDetail{Summary: rm.Summary()}
	detail.Code = "" // private codes are shared out of band
	for _, m := range rm.Members() {
		detail.Lobby = append(detail.Lobby, m.View())
	}
	writeJSON(w, detail)
}

// handleMinimap renders the arena as PNG. ?px= sets pixels per cell (1-32).
func (h *routerHandlers) handleMinimap(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.rooms.Room(chi.URLParam(r, "roomID"))
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	opts := render.DefaultMinimapOptions()
	if v := r.URL.Query().Get("px"); v != "" {
		px, err := strconv.Atoi(v)
		if err != nil || px < 1 || px > 32 {
			writeError(w, http.StatusBadRequest, "px must be between 1 and 32")
			return
		}
		opts.CellPx = px
	}

	arena := rm.Settings().Arena
	var src render.Source
	if e := rm.Engine(); e != nil {
		src = e
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WritePNG(w, arena.Width, arena.Height, src, opts); err != nil {
		log.Printf("⚠️ minimap for room %s: %v", rm.ID, err)
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
