package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrook/backreplay/models"
)

func TestWebSocketManager_Connection(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()

	// Create test server
	server := httptest.NewServer(http.HandlerFunc(manager.HandleWebSocket))
	defer server.Close()

	// Convert http URL to ws URL
	u := "ws" + strings.TrimPrefix(server.URL, "http")

	// Connect
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer ws.Close()

	// Verification: Check if client is registered
	// We need to wait a bit for the unexpected async registration
	time.Sleep(50 * time.Millisecond)

	manager.mu.Lock()
	clientCount := len(manager.clients)
	manager.mu.Unlock()

	assert.Equal(t, 1, clientCount, "Client should be registered")
}

func TestWebSocketManager_BroadcastProgress(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()

	server := httptest.NewServer(http.HandlerFunc(manager.HandleWebSocket))
	defer server.Close()
	u := "ws" + strings.TrimPrefix(server.URL, "http")

	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	manager.BroadcastProgress("BTCUSDT.BINANCE", "replay", 0.5)

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, p, err := ws.ReadMessage()
	require.NoError(t, err)

	var event BacktestEvent
	err = json.Unmarshal(p, &event)
	require.NoError(t, err)

	assert.Equal(t, EventProgress, event.Type)
	assert.Equal(t, "BTCUSDT.BINANCE", event.VtSymbol)
	assert.Equal(t, "replay", event.Phase)
	assert.Equal(t, 0.5, event.Fraction)
}

func TestWebSocketManager_BroadcastTrade(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()

	server := httptest.NewServer(http.HandlerFunc(manager.HandleWebSocket))
	defer server.Close()
	u := "ws" + strings.TrimPrefix(server.URL, "http")

	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	trade := models.Trade{
		TradeID: "0000000001", OrderID: "0000000001",
		Symbol: "BTCUSDT", Exchange: "BINANCE",
		Direction: models.DirectionLong, Offset: models.OffsetOpen,
		Price: 100, Volume: 1,
	}
	manager.BroadcastTrade("BTCUSDT.BINANCE", trade)

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, p, err := ws.ReadMessage()
	require.NoError(t, err)

	var event BacktestEvent
	err = json.Unmarshal(p, &event)
	require.NoError(t, err)

	assert.Equal(t, EventTrade, event.Type)
	require.NotNil(t, event.Trade)
	assert.Equal(t, "0000000001", event.Trade.TradeID)
	assert.Equal(t, 100.0, event.Trade.Price)
}

func TestWebSocketManager_Disconnect(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()

	server := httptest.NewServer(http.HandlerFunc(manager.HandleWebSocket))
	defer server.Close()
	u := "ws" + strings.TrimPrefix(server.URL, "http")

	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	manager.mu.Lock()
	assert.Equal(t, 1, len(manager.clients))
	manager.mu.Unlock()

	// Close connection
	ws.Close()

	// Wait for unregistration
	time.Sleep(100 * time.Millisecond)

	manager.mu.Lock()
	assert.Equal(t, 0, len(manager.clients))
	manager.mu.Unlock()
}
