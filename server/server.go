package server

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/feedchat/feedchat/internal/models"
	"github.com/feedchat/feedchat/pkg/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the wire format in both directions. Incoming messages are
// questions; outgoing ones are answers, with citations in Data, or
// errors.
type Message struct {
	Type    string            `json:"type"`
	Content string            `json:"content"`
	Data    []models.Citation `json:"data,omitempty"`
}

// WSServer answers questions over a WebSocket. Each connection owns its
// own conversation, so two browser tabs are two independent sessions.
type WSServer struct {
	engine *chat.Engine
}

func NewWSServer(engine *chat.Engine) *WSServer {
	return &WSServer{engine: engine}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := models.NewConversation()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}
		s.handleMessage(r.Context(), conn, session, msg)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, conn *websocket.Conn, session *models.Conversation, msg Message) {
	answer, err := s.engine.Ask(ctx, session, msg.Content)
	if err != nil {
		s.send(conn, Message{Type: "error", Content: err.Error()})
		return
	}

	s.send(conn, Message{
		Type:    "answer",
		Content: answer.Text,
		Data:    answer.Citations,
	})
}

func (s *WSServer) send(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// ListenAndServe runs the chat server until the listener fails.
func ListenAndServe(addr string, engine *chat.Engine) error {
	server := NewWSServer(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	log.Printf("Starting WebSocket server on %s", addr)
	return http.ListenAndServe(addr, mux)
}
