package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Define notification types
const (
	NotificationTypePaymentSuccess    = "payment_success"
	NotificationTypePaymentFailed     = "payment_failed"
	NotificationTypePayoutDecision    = "payout_decision"
	NotificationTypeReferralReward    = "referral_reward"
	NotificationTypeTransferDecision  = "bank_transfer_decision"
	NotificationTypeWithdrawalUpdated = "referral_withdrawal_decision"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	Data         interface{} `json:"data,omitempty"`
	UserID       string      `json:"userID,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	UserID        primitive.ObjectID
	Conn          *websocket.Conn
	Authenticated bool
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients                map[primitive.ObjectID]*Client
	unauthenticatedClients map[*Client]bool
	register               chan *Client
	unregister             chan *Client
	mu                     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:                make(map[primitive.ObjectID]*Client),
		unauthenticatedClients: make(map[*Client]bool),
		register:               make(chan *Client),
		unregister:             make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				h.clients[client.UserID] = client
			} else {
				h.unauthenticatedClients[client] = true
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				if _, ok := h.clients[client.UserID]; ok {
					delete(h.clients, client.UserID)
				}
			} else {
				delete(h.unauthenticatedClients, client)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}

	return client.Conn.WriteJSON(notification)
}

// AuthenticateClient moves a client from unauthenticated to authenticated state
func (h *Hub) AuthenticateClient(client *Client, userID primitive.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Remove from unauthenticated clients
	if _, ok := h.unauthenticatedClients[client]; ok {
		delete(h.unauthenticatedClients, client)
	}

	// Set client as authenticated
	client.Authenticated = true
	client.UserID = userID

	// Add to authenticated clients
	h.clients[userID] = client

	return nil
}

// BroadcastToUnauthenticated sends a message to all unauthenticated clients
func (h *Hub) BroadcastToUnauthenticated(notification Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.unauthenticatedClients {
		client.Conn.WriteJSON(notification)
	}
}

// NotifyPaymentResult tells a buyer their payment reached a terminal state.
func (h *Hub) NotifyPaymentResult(buyerID primitive.ObjectID, success bool, data interface{}) error {
	notification := Notification{
		Type:    NotificationTypePaymentSuccess,
		Message: "Your payment was received",
		Data:    data,
	}
	if !success {
		notification.Type = NotificationTypePaymentFailed
		notification.Message = "Your payment could not be completed"
	}

	return h.SendToUser(buyerID, notification)
}

// NotifyDecision tells a user an admin decided one of their requests.
func (h *Hub) NotifyDecision(userID primitive.ObjectID, notifType, message string, data interface{}) error {
	return h.SendToUser(userID, Notification{
		Type:    notifType,
		Message: message,
		Data:    data,
	})
}
