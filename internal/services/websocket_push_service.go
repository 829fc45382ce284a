package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket Upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Should check Origin in production environment
		return true
	},
}

// Push topics. Subscribers pick the feeds they want; a connection with no
// explicit topics gets all of them.
const (
	TopicDeposits    = "deposits"
	TopicWithdrawals = "withdrawals"
	TopicFees        = "fees"
	TopicTransfers   = "transfers"
)

// AllTopics lists every push topic in delivery order
var AllTopics = []string{TopicDeposits, TopicWithdrawals, TopicFees, TopicTransfers}

// Connection information
type Connection struct {
	ID       string          `json:"id"`
	Topics   []string        `json:"topics"`
	Conn     *websocket.Conn `json:"-"`
	Send     chan []byte     `json:"-"`
	LastPing time.Time       `json:"last_ping"`
}

// Push message base structure
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	Topic     string      `json:"topic"`
	Data      interface{} `json:"data"`
}

// DepositNotice is the deposits topic payload
type DepositNotice struct {
	Commitment   string `json:"commitment"`
	Denomination string `json:"denomination"`
	DepositedAt  string `json:"deposited_at"`
}

// WithdrawalNotice is the withdrawals topic payload. It never carries the
// commitment or the spent token; subscribers must not be able to link a
// withdrawal back to its deposit.
type WithdrawalNotice struct {
	WithdrawalID string `json:"withdrawal_id"`
	Recipient    string `json:"recipient"`
	Gross        string `json:"gross"`
	Fee          string `json:"fee"`
	Net          string `json:"net"`
	CompletedAt  string `json:"completed_at"`
}

// FeeNotice is the fees topic payload
type FeeNotice struct {
	OldFeeBasisPoints uint16 `json:"old_fee_basis_points"`
	NewFeeBasisPoints uint16 `json:"new_fee_basis_points"`
	ChangedAt         string `json:"changed_at"`
}

// TransferNotice is the transfers topic payload
type TransferNotice struct {
	IntentID     string `json:"intent_id"`
	WithdrawalID string `json:"withdrawal_id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	OccurredAt   string `json:"occurred_at"`
}

// ConnectionInfo is the admin view of one live connection
type ConnectionInfo struct {
	ID          string    `json:"id"`
	Topics      []string  `json:"topics"`
	LastPing    time.Time `json:"last_ping"`
	QueuedSends int       `json:"queued_sends"`
}

// WebSocketPush service
type WebSocketPushService struct {
	connections map[string]*Connection            // key: connectionID
	topicConns  map[string]map[string]*Connection // key: topic -> connectionID
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
}

// NewWebSocketPushService creates the push service and starts its hub loop
func NewWebSocketPushService() *WebSocketPushService {
	service := &WebSocketPushService{
		connections: make(map[string]*Connection),
		topicConns:  make(map[string]map[string]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}

	go service.run()
	return service
}

// Push service loop
func (s *WebSocketPushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)

		case conn := <-s.unregister:
			s.handleUnregister(conn)

		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

// Handle connection registration
func (s *WebSocketPushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(conn.Topics) == 0 {
		conn.Topics = AllTopics
	}

	s.connections[conn.ID] = conn
	for _, topic := range conn.Topics {
		if s.topicConns[topic] == nil {
			s.topicConns[topic] = make(map[string]*Connection)
		}
		s.topicConns[topic][conn.ID] = conn
	}

	UpdateWSConnections(len(s.connections))
	log.Printf("📱 WebSocket connection registered: connID=%s, topics=%v", conn.ID, conn.Topics)

	// Send connection confirmation message
	if conn.Send != nil {
		confirmMsg := PushMessage{
			Type:      "connection_established",
			Timestamp: time.Now().Format(time.RFC3339),
			MessageID: generateMessageID(),
			Data: map[string]interface{}{
				"connection_id": conn.ID,
				"topics":        conn.Topics,
				"message":       "Real-time pool feed connected",
			},
		}
		s.sendToConnection(conn, confirmMsg)
	}
}

// Handle connection unregistration
func (s *WebSocketPushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.connections[conn.ID]; !exists {
		return
	}
	delete(s.connections, conn.ID)

	for _, topic := range conn.Topics {
		if subscribers, exists := s.topicConns[topic]; exists {
			delete(subscribers, conn.ID)
			if len(subscribers) == 0 {
				delete(s.topicConns, topic)
			}
		}
	}

	// Close connection
	if conn.Send != nil {
		close(conn.Send)
	}
	if conn.Conn != nil {
		conn.Conn.Close()
	}

	UpdateWSConnections(len(s.connections))
	log.Printf("📱 WebSocket connection unregistered: connID=%s", conn.ID)
}

// Fan a message out to the topic subscribers
func (s *WebSocketPushService) handleBroadcast(message PushMessage) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	subscribers, exists := s.topicConns[message.Topic]
	if !exists || len(subscribers) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal push message: %v", err)
		return
	}

	successCount := 0
	failedCount := 0
	for _, conn := range subscribers {
		select {
		case conn.Send <- data:
			successCount++
			RecordWSMessageSent(message.Topic)
		default:
			// Channel full or closed, drop for this connection
			failedCount++
			log.Printf("⚠️ Failed to push to connection: %s (channel full or closed)", conn.ID)
		}
	}

	log.Printf("📤 Push delivery: topic=%s, type=%s, sent=%d, failed=%d",
		message.Topic, message.Type, successCount, failedCount)
}

// Send a message to a single connection
func (s *WebSocketPushService) sendToConnection(conn *Connection, message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal push message: %v", err)
		return
	}

	select {
	case conn.Send <- data:
	default:
		log.Printf("⚠️ Failed to send to connection: %s", conn.ID)
	}
}

// BroadcastDeposit pushes an accepted deposit to the deposits topic
func (s *WebSocketPushService) BroadcastDeposit(data DepositNotice) {
	s.hub <- PushMessage{
		Type:      "deposit",
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: generateMessageID(),
		Topic:     TopicDeposits,
		Data:      data,
	}
}

// BroadcastWithdrawal pushes a completed withdrawal to the withdrawals
// topic
func (s *WebSocketPushService) BroadcastWithdrawal(data WithdrawalNotice) {
	s.hub <- PushMessage{
		Type:      "withdrawal",
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: generateMessageID(),
		Topic:     TopicWithdrawals,
		Data:      data,
	}
}

// BroadcastFeeUpdate pushes a fee rate change to the fees topic
func (s *WebSocketPushService) BroadcastFeeUpdate(data FeeNotice) {
	s.hub <- PushMessage{
		Type:      "fee_update",
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: generateMessageID(),
		Topic:     TopicFees,
		Data:      data,
	}
}

// BroadcastTransferUpdate pushes a settlement dispatch outcome to the
// transfers topic
func (s *WebSocketPushService) BroadcastTransferUpdate(data TransferNotice) {
	s.hub <- PushMessage{
		Type:      "transfer_update",
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: generateMessageID(),
		Topic:     TopicTransfers,
		Data:      data,
	}
}

// HandleWebSocket upgrades the request and runs the connection until the
// client goes away
func (s *WebSocketPushService) HandleWebSocket(w http.ResponseWriter, r *http.Request, topics []string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	connection := &Connection{
		ID:       generateConnectionID(),
		Topics:   topics,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		LastPing: time.Now(),
	}

	s.register <- connection

	go s.handleConnectionWrite(connection)
	go s.handleConnectionRead(connection)
}

// Write pump: delivers queued messages and keeps the connection pinged
func (s *WebSocketPushService) handleConnectionWrite(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write message failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Read pump: consumes pongs and notices the disconnect
func (s *WebSocketPushService) handleConnectionRead(conn *Connection) {
	defer func() {
		s.unregister <- conn
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.LastPing = time.Now()
		return nil
	})

	for {
		_, _, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			break
		}
	}
}

// GetActiveConnections returns the live connection count
func (s *WebSocketPushService) GetActiveConnections() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}

// GetTopicSubscribers returns the subscriber count for one topic
func (s *WebSocketPushService) GetTopicSubscribers(topic string) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if subscribers, exists := s.topicConns[topic]; exists {
		return len(subscribers)
	}
	return 0
}

// ConnectionsSnapshot returns the admin view of every live connection
func (s *WebSocketPushService) ConnectionsSnapshot() []ConnectionInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]ConnectionInfo, 0, len(s.connections))
	for _, conn := range s.connections {
		out = append(out, ConnectionInfo{
			ID:          conn.ID,
			Topics:      conn.Topics,
			LastPing:    conn.LastPing,
			QueuedSends: len(conn.Send),
		})
	}
	return out
}

func generateConnectionID() string {
	return fmt.Sprintf("conn_%d", time.Now().UnixNano())
}

func generateMessageID() string {
	return fmt.Sprintf("msg_%d", time.Now().UnixNano())
}
