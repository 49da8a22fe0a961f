package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// maxWSConnectionsPerIP caps live-feed connections per client.
	maxWSConnectionsPerIP = 10

	// statePushInterval is how often the feed pushes a fresh state.
	statePushInterval = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "http://127.0.0.1") {
			return true
		}
		RecordConnectionRejected("origin")
		return false
	},
}

// StateStream pushes a player's session state over a WebSocket, so
// spectator frontends can render without polling the state endpoint.
// Clients authenticate with an authToken query parameter.
type StateStream struct {
	app     GameService
	limiter *ConnLimiter
	log     *zap.Logger
}

func NewStateStream(app GameService, log *zap.Logger) *StateStream {
	return &StateStream{
		app:     app,
		limiter: NewConnLimiter(maxWSConnectionsPerIP),
		log:     log,
	}
}

// Handle upgrades the connection and streams session state until the
// client goes away or its player retires.
func (s *StateStream) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("authToken")
	player := s.app.FindPlayerByToken(token)
	if player == nil {
		writeError(w, http.StatusUnauthorized, codeUnknownToken, "Player token has not been found")
		return
	}

	ip := GetClientIP(r)
	if !s.limiter.Allow(ip) {
		RecordConnectionRejected("ws_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.limiter.Release(ip)
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	UpdateWSConnections(1)
	s.log.Info("state feed connected", zap.String("ip", ip))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			conn.Close()
			s.limiter.Release(ip)
			UpdateWSConnections(-1)
			s.log.Info("state feed disconnected", zap.String("ip", ip))
		}()

		ticker := time.NewTicker(statePushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// The player may have been retired since the upgrade.
				if s.app.FindPlayerByToken(token) == nil {
					return
				}
				if err := conn.WriteJSON(stateToJSON(s.app.GameState(player))); err != nil {
					return
				}
			}
		}
	}()
}
