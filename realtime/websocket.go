// Package realtime streams one backtest run's progress, order, and trade
// events to connected websocket clients while the run is in flight.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/quantrook/backreplay/models"
)

// EventType is the closed set of events this engine streams over a
// websocket connection, mirroring the replay driver's own event ordering
// from spec.md §5 (progress ticks, order transitions, fills, stop-order
// transitions).
type EventType string

const (
	EventProgress  EventType = "backtest.progress"
	EventOrder     EventType = "backtest.order"
	EventTrade     EventType = "backtest.trade"
	EventStopOrder EventType = "backtest.stop_order"
)

// BacktestEvent is the single message shape broadcast to every connected
// client. At most one of Order/Trade/StopOrder is populated, matching
// EventType; Phase/Fraction are only meaningful for EventProgress.
type BacktestEvent struct {
	Type      EventType        `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	VtSymbol  string           `json:"vt_symbol"`
	Phase     string           `json:"phase,omitempty"`
	Fraction  float64          `json:"fraction,omitempty"`
	Order     *models.Order     `json:"order,omitempty"`
	Trade     *models.Trade     `json:"trade,omitempty"`
	StopOrder *models.StopOrder `json:"stop_order,omitempty"`
}

// WebSocketManager handles websocket connections and broadcasts backtest
// events to every connected client.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan BacktestEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
	upgrader   websocket.Upgrader
}

// NewWebSocketManager creates a new WebSocketManager.
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan BacktestEvent),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Allow all origins for now
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run starts the manager's main loop.
func (m *WebSocketManager) Run() {
	for {
		select {
		case conn := <-m.register:
			m.mu.Lock()
			m.clients[conn] = true
			m.mu.Unlock()
			log.Info().Msg("WebSocket client connected")

		case conn := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[conn]; ok {
				delete(m.clients, conn)
				conn.Close()
				log.Info().Msg("WebSocket client disconnected")
			}
			m.mu.Unlock()

		case event := <-m.broadcast:
			m.mu.Lock()
			for conn := range m.clients {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(event); err != nil {
					log.Error().Err(err).Msg("Failed to write to websocket, closing connection")
					conn.Close()
					delete(m.clients, conn)
				}
			}
			m.mu.Unlock()
		}
	}
}

// BroadcastProgress streams one of the replay driver's "load"/"replay"
// progress ticks (spec.md §4.2) to every connected client.
func (m *WebSocketManager) BroadcastProgress(vtSymbol, phase string, fraction float64) {
	m.broadcast <- BacktestEvent{
		Type: EventProgress, Timestamp: time.Now(),
		VtSymbol: vtSymbol, Phase: phase, Fraction: fraction,
	}
}

// BroadcastOrder streams an order-status transition (spec.md §6 on_order).
func (m *WebSocketManager) BroadcastOrder(vtSymbol string, order models.Order) {
	m.broadcast <- BacktestEvent{
		Type: EventOrder, Timestamp: time.Now(),
		VtSymbol: vtSymbol, Order: &order,
	}
}

// BroadcastTrade streams a fill (spec.md §6 on_trade).
func (m *WebSocketManager) BroadcastTrade(vtSymbol string, trade models.Trade) {
	m.broadcast <- BacktestEvent{
		Type: EventTrade, Timestamp: time.Now(),
		VtSymbol: vtSymbol, Trade: &trade,
	}
}

// BroadcastStopOrder streams a stop-order status transition (spec.md §6
// on_stop_order).
func (m *WebSocketManager) BroadcastStopOrder(vtSymbol string, stop models.StopOrder) {
	m.broadcast <- BacktestEvent{
		Type: EventStopOrder, Timestamp: time.Now(),
		VtSymbol: vtSymbol, StopOrder: &stop,
	}
}

// HandleWebSocket upgrades the HTTP connection to a WebSocket connection.
func (m *WebSocketManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket")
		return
	}
	m.register <- conn

	go func() {
		defer func() {
			m.unregister <- conn
		}()
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Error().Err(err).Msg("Websocket closed unexpectedly")
				}
				break
			}
		}
	}()
}
