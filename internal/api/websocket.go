package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/darkstar-labs/batchmix/internal/coinjoin"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for local dashboard
	},
}

// Hub maintains the set of active websocket clients and broadcasts messages.
// It doubles as the coinjoin.Events sink: DepositAccepted and Settled
// marshal their payload and fan it out the same way the teacher's Hub fanned
// out CoinJoin-detection alerts.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			// Set write deadline to prevent blocked clients from hanging the hub
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := client.WriteMessage(websocket.TextMessage, message)
			if err != nil {
				log.Printf("Websocket write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe handles incoming websocket connections.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()

	log.Printf("New WebSocket client connected. Total clients: %d", len(h.clients))

	// Keep alive loop (we only care about pushing down, but we must read to handle disconnects)
	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			h.mutex.Unlock()
			conn.Close()
			log.Printf("WebSocket client disconnected. Total clients: %d", len(h.clients))
		}()
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				break
			}
		}
	}()
}

// Broadcast sends JSON data to all connected clients.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}

// DepositAccepted implements coinjoin.Events: publishes a deposit_accepted
// frame whenever a deposit durably lands in a pool.
func (h *Hub) DepositAccepted(ev coinjoin.DepositAccepted) {
	payload := gin.H{
		"type": "deposit_accepted",
		"id":   uuid.New().String(),
		"event": gin.H{
			"denomination":  ev.Denomination.Symbol(),
			"poolSize":      ev.PoolSize,
			"uniqueSenders": ev.UniqueSenders,
			"timestamp":     ev.Timestamp,
		},
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Hub: failed to marshal deposit_accepted event: %v", err)
		return
	}
	h.Broadcast(bytes)
}

// Settled implements coinjoin.Events: publishes a settlement frame, the
// forensics-engine analogue of the teacher's CoinJoin-detection alert.
func (h *Hub) Settled(ev coinjoin.SettlementResult) {
	payload := gin.H{
		"type": "settled",
		"id":   uuid.New().String(),
		"event": gin.H{
			"denomination":     ev.Denomination.Symbol(),
			"anonymitySetSize": ev.AnonymitySetSize,
			"shareAmount":      ev.ShareAmount,
			"slippageBps":      ev.SlippageBps,
			"totalOutput":      ev.TotalOutput,
		},
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Hub: failed to marshal settled event: %v", err)
		return
	}
	h.Broadcast(bytes)
	log.Printf("[SETTLED] denom=%s anonset=%d share=%d slippage_bps=%d",
		ev.Denomination.Symbol(), ev.AnonymitySetSize, ev.ShareAmount, ev.SlippageBps)
}
