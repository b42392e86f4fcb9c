package bridge

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/photonav/gallery/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bridge binds to loopback; the renderer is the only client.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRouter builds the bridge HTTP surface: the websocket endpoint and a
// health probe.
func NewRouter(hub *Hub) http.Handler {
	log := observability.GetLogger().WithField("component", "bridge")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"clients": hub.ClientCount(),
		})
	})

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Warnf("upgrade failed: %v", err)
			return
		}
		client := hub.NewClient(uuid.New().String(), conn)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	})

	return r
}
