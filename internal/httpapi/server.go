package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/nakulbh/sanka/internal/config"
	"github.com/nakulbh/sanka/internal/dispatch"
	"github.com/nakulbh/sanka/internal/history"
	"github.com/nakulbh/sanka/internal/observability"
	"github.com/nakulbh/sanka/internal/protocol"
	"github.com/nakulbh/sanka/internal/session"
	"github.com/nakulbh/sanka/internal/voice"
)

// Server exposes the command and voice websocket endpoints plus the small
// HTTP surface around them.
type Server struct {
	cfg        config.Config
	dispatcher *dispatch.Dispatcher
	provider   voice.Provider
	store      history.Store
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, dispatcher *dispatch.Dispatcher, provider voice.Provider, store history.Store, metrics *observability.Metrics) *Server {
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		provider:   provider,
		store:      store,
		metrics:    metrics,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	return s
}

// originAllowed enforces the browser origin allow-list. Connections without
// an Origin header are refused unless any-origin mode is on, so only listed
// frontends can drive a user's pipeline or microphone session.
func (s *Server) originAllowed(r *http.Request) bool {
	if s.cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Sanka MCP WebSocket server running\n"))
	})
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/history", s.handleHistory)
	r.Get("/ws/commands", s.handleCommandsWS)
	r.Get("/ws/voice", s.handleVoiceWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.RecentActions(r.Context(), s.cfg.HistoryLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"actions": records})
}

// handleCommandsWS runs the generate/push/deploy pipeline over one long-lived
// connection. Each inbound message is handled on its own goroutine; the
// session's in-flight marker rejects overlap, and a single writer goroutine
// keeps websocket writes serialized.
func (s *Server) handleCommandsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("blocked command upgrade from %q: %v", r.Header.Get("Origin"), err)
		return
	}
	defer conn.Close()

	s.trackConnection("commands", 1)
	defer s.trackConnection("commands", -1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := session.New()
	log.Printf("command client connected, session %s", sess.ID)

	outbound := make(chan any, 256)
	writerDone := s.startWriter(ctx, cancel, conn, outbound)

	emit := func(ev protocol.BotEvent) {
		select {
		case outbound <- ev:
		case <-ctx.Done():
		}
	}

	conn.SetReadLimit(8 << 20)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		req, err := protocol.ParseCommandRequest(data)
		if err != nil {
			emit(protocol.BotError(err))
			continue
		}
		go s.dispatcher.Handle(ctx, sess, req, emit)
	}

	cancel()
	<-writerDone
	log.Printf("command client disconnected, session %s", sess.ID)
}

// handleVoiceWS relays a streaming transcription session. Messages are
// handled in arrival order; the relay owns the recognition stream and any
// silence timers and is torn down when the connection closes.
func (s *Server) handleVoiceWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("blocked voice upgrade from %q: %v", r.Header.Get("Origin"), err)
		return
	}
	defer conn.Close()

	s.trackConnection("voice", 1)
	defer s.trackConnection("voice", -1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 256)
	writerDone := s.startWriter(ctx, cancel, conn, outbound)

	emit := func(ev any) {
		select {
		case outbound <- ev:
		case <-ctx.Done():
		}
	}

	relay := voice.NewRelay(s.provider, s.provider, voice.Config{
		SilenceWindow:   s.cfg.SilenceWindow,
		RestartAfterTTS: s.cfg.RestartAfterTTS,
		AutoReply:       s.cfg.AutoReplyOnFinal,
		Voices:          s.cfg.TTSVoices,
		Recipient:       s.cfg.ReplyRecipient,
	}, emit, s.metrics)
	defer relay.Close()

	conn.SetReadLimit(8 << 20)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		req, err := protocol.ParseVoiceRequest(data)
		if err != nil {
			emit(protocol.VoiceErrorEvent{Error: "bad_message", Message: "invalid json"})
			continue
		}
		relay.HandleMessage(ctx, req)
	}

	cancel()
	<-writerDone
}

// startWriter drains outbound onto the connection from a single goroutine.
func (s *Server) startWriter(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, outbound <-chan any) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()
	return done
}

func (s *Server) trackConnection(path string, delta float64) {
	if s.metrics == nil {
		return
	}
	s.metrics.ActiveConnections.WithLabelValues(path).Add(delta)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]any{"error": message, "code": code})
}
