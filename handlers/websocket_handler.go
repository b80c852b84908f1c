package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"

	"github.com/Dosada05/tournament-manager/hub"
	"github.com/Dosada05/tournament-manager/models"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var errMissingTournamentID = errors.New("missing tournamentID")

// SnapshotLoader returns the current record of a tournament.
type SnapshotLoader interface {
	Get(ctx context.Context, id string) (*models.TournamentRecord, error)
}

type WebSocketHandler struct {
	hub      *hub.Hub
	loader   SnapshotLoader
	upgrader websocket.Upgrader
}

// NewWebSocketHandler принимает список разрешённых Origin; "*" разрешает любой.
func NewWebSocketHandler(h *hub.Hub, loader SnapshotLoader, allowedOrigins []string) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		hub:    h,
		loader: loader,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeWs подключает клиента к комнате турнира и сразу отправляет текущий снимок.
// Клиент должен подключаться к /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")
	if tournamentID == "" {
		badRequestResponse(w, r, errMissingTournamentID)
		return
	}

	// Проверяем турнир до апгрейда, чтобы вернуть обычный 404
	rec, err := h.loader.Get(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправляет HTTP ошибку клиенту
		log.Printf("Failed to upgrade connection for tournament %s: %v", tournamentID, err)
		return
	}

	roomID := hub.RoomFor(tournamentID)
	client := &hub.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, hub.SendBuffer),
		Room: roomID,
	}
	client.Hub.Register <- client

	client.SendJSON(hub.WebSocketMessage{Type: hub.MessageSnapshot, Payload: rec, RoomID: roomID})

	go client.WritePump()
	go client.ReadPump()

	log.Printf("Client registered and pumps started for room %s.", roomID)
}
