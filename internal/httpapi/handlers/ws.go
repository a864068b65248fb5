package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the backend binds to loopback; the desktop shell is the only peer
		return true
	},
}

// wsFrame is the outbound framing on the UI socket: the validated bridge
// channel name plus its payload.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsSink serializes concurrent Deliver calls onto one websocket connection.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Deliver(name string, payload json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(wsFrame{Event: name, Data: payload}); err != nil {
		log.Printf("ws: write failed event=%s err=%v", name, err)
	}
}

type wsInbound struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// ChatSocket is the desktop UI's event channel: every bridged event flows
// out over it, and the UI submits prompts and interrupts inbound.
func (h *Handler) ChatSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sink := &wsSink{conn: conn}
	cancel := h.Bridge.Subscribe(sink)
	defer cancel()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read failed: %v", err)
			}
			return
		}

		switch in.Type {
		case "message":
			if in.ConversationID == "" || in.Content == "" {
				h.wsError(sink, "conversation_id and content are required")
				continue
			}
			// detached from the socket's lifetime; the turn survives a
			// dropped connection and its events still hit the bridge
			h.Coordinators.Coordinator(in.ConversationID).Submit(context.Background(), in.Content)

		case "interrupt":
			if in.ConversationID == "" {
				h.wsError(sink, "conversation_id is required")
				continue
			}
			h.Coordinators.Coordinator(in.ConversationID).Interrupt()

		default:
			h.wsError(sink, "unknown message type: "+in.Type)
		}
	}
}

func (h *Handler) wsError(sink *wsSink, msg string) {
	payload, err := json.Marshal(gin.H{"message": msg})
	if err != nil {
		return
	}
	sink.Deliver("error", payload)
}
