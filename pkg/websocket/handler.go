package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Options tunes the upgrader. Zero values fall back to gorilla defaults; an
// empty AllowedOrigins list accepts any origin.
type Options struct {
	ReadBufferSize    int
	WriteBufferSize   int
	AllowedOrigins    []string
	EnableCompression bool
}

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(opts Options) *Handler {
	hub := NewHub()
	go hub.Run()

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    opts.ReadBufferSize,
			WriteBufferSize:   opts.WriteBufferSize,
			EnableCompression: opts.EnableCompression,
			CheckOrigin:       originChecker(opts.AllowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket upgrades an authenticated request. Auth middleware has
// already placed user_id and user_type on the context; drivers get dispatch
// offers and customers get booking status frames over the resulting socket.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, userType, ok := identityFrom(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, userID, userType)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func identityFrom(c *gin.Context) (primitive.ObjectID, string, bool) {
	rawID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return primitive.NilObjectID, "", false
	}
	userID, ok := rawID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, "", false
	}

	rawType, exists := c.Get("user_type")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User type not found"})
		return primitive.NilObjectID, "", false
	}
	userType, ok := rawType.(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user type"})
		return primitive.NilObjectID, "", false
	}

	return userID, userType, true
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
