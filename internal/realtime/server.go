package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// Session is the identity bound to a connection at upgrade time
type Session struct {
	UserID string
	Role   models.Role
}

// Callbacks connects the socket server to authentication and the application services
type Callbacks struct {
	// Verify resolves the token presented at upgrade
	Verify func(token string) (Session, error)
	// CanJoinApplication reports whether the session may watch an application room
	CanJoinApplication func(ctx context.Context, s Session, applicationID string) bool
	// SaveMessage persists a chat line and returns what should be broadcast
	SaveMessage func(ctx context.Context, s Session, applicationID, content string) (interface{}, error)
}

// Server upgrades HTTP requests to websocket connections registered with a Hub
type Server struct {
	hub       *Hub
	emitter   Emitter
	callbacks Callbacks
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

// NewServer creates a websocket server; allowedOrigins empty accepts any origin
func NewServer(hub *Hub, callbacks Callbacks, allowedOrigins []string, log zerolog.Logger) *Server {
	s := &Server{
		hub:       hub,
		emitter:   hub,
		callbacks: callbacks,
		log:       log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
	return s
}

// WithEmitter routes room broadcasts through e, usually a RedisEmitter shared by every instance
func (s *Server) WithEmitter(e Emitter) *Server {
	if e != nil {
		s.emitter = e
	}
	return s
}

type roomRequest struct {
	UserID        string `json:"userId"`
	ApplicationID string `json:"applicationId"`
	Content       string `json:"content"`
}

// ServeHTTP authenticates the token query parameter (or bearer header) and starts the pumps
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	session, err := s.callbacks.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(session.UserID, session.Role)
	go s.writePump(conn, client)
	s.readPump(r.Context(), conn, client, session)
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client *Client, session Session) {
	defer func() {
		s.hub.Remove(client)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Envelope
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("user_id", session.UserID).Msg("websocket closed")
			}
			return
		}

		var req roomRequest
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &req); err != nil {
				s.reply(client, "error", map[string]string{"message": "invalid payload"})
				continue
			}
		}

		s.handle(ctx, client, session, frame.Event, req)
	}
}

func (s *Server) handle(ctx context.Context, client *Client, session Session, event string, req roomRequest) {
	switch event {
	case "join_user_room":
		if req.UserID != "" && req.UserID != session.UserID {
			s.reply(client, "error", map[string]string{"message": "cannot join another user's room"})
			return
		}
		room := UserRoom(session.UserID)
		s.hub.Join(client, room)
		s.reply(client, "room_joined", map[string]string{"room": room})

	case "join_application_room":
		if req.ApplicationID == "" || s.callbacks.CanJoinApplication == nil ||
			!s.callbacks.CanJoinApplication(ctx, session, req.ApplicationID) {
			s.reply(client, "error", map[string]string{"message": "cannot join application room"})
			return
		}
		room := ApplicationRoom(req.ApplicationID)
		s.hub.Join(client, room)
		s.reply(client, "room_joined", map[string]string{"room": room})

	case "leave_application_room":
		s.hub.Leave(client, ApplicationRoom(req.ApplicationID))

	case "typing":
		if _, joined := client.rooms[ApplicationRoom(req.ApplicationID)]; !joined {
			return
		}
		s.broadcast(ApplicationRoom(req.ApplicationID), "typing", map[string]string{
			"applicationId": req.ApplicationID,
			"userId":        session.UserID,
		})

	case "send_message":
		if s.callbacks.SaveMessage == nil || strings.TrimSpace(req.Content) == "" {
			s.reply(client, "error", map[string]string{"message": "empty message"})
			return
		}
		if _, joined := client.rooms[ApplicationRoom(req.ApplicationID)]; !joined {
			s.reply(client, "error", map[string]string{"message": "join the application room first"})
			return
		}
		msg, err := s.callbacks.SaveMessage(ctx, session, req.ApplicationID, req.Content)
		if err != nil {
			s.log.Error().Err(err).Str("application_id", req.ApplicationID).Msg("failed to save message")
			s.reply(client, "error", map[string]string{"message": "message not saved"})
			return
		}
		s.broadcast(ApplicationRoom(req.ApplicationID), "new_message", msg)

	default:
		s.reply(client, "error", map[string]string{"message": "unknown event"})
	}
}

// broadcast sends to a room on every instance through the configured emitter
func (s *Server) broadcast(room, event string, data interface{}) {
	if err := s.emitter.Emit(room, event, data); err != nil {
		s.log.Error().Err(err).Str("room", room).Str("event", event).Msg("broadcast failed")
	}
}

// reply queues a frame for this connection only
func (s *Server) reply(client *Client, event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return
	}
	select {
	case client.send <- frame:
	default:
	}
}

func (s *Server) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
