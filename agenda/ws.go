package agenda

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins — adjust for production if needed
		return true
	},
}

var (
	subscribers = make(map[string][]*websocket.Conn)
	mu          sync.Mutex
)

// HandleWS subscribes a client to live agenda updates for one event. The
// original product used database real-time listeners for this; here ledger
// mutations broadcast explicitly.
func HandleWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}

	mu.Lock()
	subscribers[eventID] = append(subscribers[eventID], conn)
	mu.Unlock()

	for {
		// Keeps the connection alive until the client disconnects
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Clean up on disconnect
	mu.Lock()
	conns := subscribers[eventID]
	newList := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			newList = append(newList, c)
		}
	}
	subscribers[eventID] = newList
	mu.Unlock()

	conn.Close()
}

// Broadcast pushes a payload to every subscriber of the event. Dead
// connections are dropped on write failure.
func Broadcast(eventID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[agenda] marshal broadcast: %v", err)
		return
	}

	mu.Lock()
	defer mu.Unlock()

	conns := subscribers[eventID]
	newList := conns[:0]

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err == nil {
			newList = append(newList, conn)
		} else {
			conn.Close()
		}
	}

	subscribers[eventID] = newList
}
