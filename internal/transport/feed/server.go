// Package feed pushes evaluation telemetry to UI sessions over websocket,
// replacing the in-game panel the original host rendered: after every
// decision a subscriber sees the current count/limit pair.
package feed

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"advancedentitylimit/internal/limits"
	"advancedentitylimit/internal/protocol"
)

type session struct {
	id   string
	user uint64
	out  chan []byte
}

type Server struct {
	log      *log.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	// message renders the denial text for a limit; nil omits messages.
	message func(limit int) string

	mu       sync.Mutex
	sessions map[string]*session
}

func NewServer(logger *log.Logger, message func(limit int) string) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		log:     logger,
		message: message,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: make(map[string]*session),
	}
}

// RecordDecision implements limits.DecisionSink: fan the decision out to
// every matching subscriber without ever blocking the evaluation path.
func (s *Server) RecordDecision(rec limits.DecisionRecord) {
	msg := protocol.FeedDecisionMsg{
		Type:     "DECISION",
		ID:       rec.ID,
		UserID:   rec.User,
		Category: rec.Category,
		Tier:     rec.Tier,
		Allowed:  rec.Allowed,
		Limit:    rec.Limit,
		Count:    rec.Count,
	}
	if !rec.Allowed && rec.Limit >= 0 && s.message != nil {
		msg.Message = s.message(rec.Limit)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.user != 0 && sess.user != rec.User {
			continue
		}
		select {
		case sess.out <- b:
		default:
			// Slow consumer; drop rather than stall.
		}
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub protocol.SubscribeMsg
		if err := json.Unmarshal(raw, &sub); err != nil || sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != protocol.Version {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
				time.Now().Add(time.Second))
			return
		}
		_ = conn.SetReadDeadline(time.Time{})

		sess := &session{
			id:   fmt.Sprintf("F%d", s.nextID.Add(1)),
			user: sub.UserID,
			out:  make(chan []byte, 256),
		}
		s.mu.Lock()
		s.sessions[sess.id] = sess
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sess.id)
			s.mu.Unlock()
		}()

		// Reader only watches for the peer going away.
		readErr := make(chan error, 1)
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					readErr <- err
					return
				}
			}
		}()

		for {
			select {
			case b := <-sess.out:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			case <-readErr:
				return
			}
		}
	}
}
