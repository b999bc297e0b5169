package websocket

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abilsmall/marketplace_backend/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and serves it. Clients may connect
// anonymously and authenticate afterwards with an "AUTH:<jwt>" text message;
// only authenticated clients receive user-addressed notifications.
func HandleWebSocket(c echo.Context, hub *Hub, userID primitive.ObjectID) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserID:        userID,
		Conn:          conn,
		Authenticated: userID != primitive.NilObjectID,
	}
	hub.register <- client

	if client.Authenticated {
		conn.WriteJSON(Notification{
			Type:    "connected",
			Message: "Connection established",
			UserID:  userID.Hex(),
		})
	} else {
		conn.WriteJSON(Notification{
			Type:         "connected",
			Message:      "Connection established, authenticate to receive notifications",
			RequiresAuth: true,
		})
	}

	go func() {
		defer func() {
			hub.unregister <- client
		}()

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if messageType != websocket.TextMessage {
				continue
			}
			msg := string(message)
			if !strings.HasPrefix(msg, "AUTH:") {
				continue
			}

			uid, err := authenticateToken(strings.TrimPrefix(msg, "AUTH:"))
			if err != nil {
				conn.WriteJSON(Notification{
					Type:         "auth_response",
					Message:      "Invalid token",
					RequiresAuth: true,
				})
				continue
			}
			hub.AuthenticateClient(client, uid)
			conn.WriteJSON(Notification{
				Type:    "auth_response",
				Message: "Authenticated",
				UserID:  uid.Hex(),
			})
		}
	}()

	return nil
}

// authenticateToken validates a JWT carried in an AUTH message and returns
// the caller's user ID.
func authenticateToken(tokenString string) (primitive.ObjectID, error) {
	claims := &middleware.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(middleware.GetJWTSecret()), nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !token.Valid {
		return primitive.NilObjectID, errors.New("invalid token")
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}
