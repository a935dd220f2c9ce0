package handlers

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"neurodrive-service/internal/cache"
	"neurodrive-service/internal/hub"
	"neurodrive-service/internal/metrics"
	"neurodrive-service/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дашборд и стример ходят с других портов
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSSessionHandler обрабатывает GET /api/v1/ws/session/{id} -
// подписка на события одной сессии
func (h *Handler) WSSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, "Invalid session id", http.StatusBadRequest)
		return
	}
	h.serveWS(w, r, id.String())
}

// WSHandler обрабатывает GET /api/v1/ws - подписка на события всех сессий
func (h *Handler) WSHandler(w http.ResponseWriter, r *http.Request) {
	h.serveWS(w, r, "")
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := hub.NewClient(conn, sessionID)
	h.hub.Register(client)
	metrics.WSClients.Set(float64(h.hub.ClientCount()))

	go client.WritePump()
	go client.ReadPump(h.hub)

	// Новый подписчик сессии сразу получает последнее известное состояние
	if sessionID != "" && h.cache != nil {
		var last models.EEGRecord
		if err := h.cache.Get(cache.LatestSampleKeyPrefix+sessionID, &last); err == nil {
			h.hub.Replay(client, hub.EventEEGData, sessionID, last)
		}
	}
}
