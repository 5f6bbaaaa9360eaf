// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
	"github.com/0xcro3dile/faqbot-go/internal/domain/usecases"
	"github.com/0xcro3dile/faqbot-go/internal/infrastructure/telemetry"
)

// SessionCookie carries the conversation id between requests.
const SessionCookie = "faqbot_session"

const maxMessageBytes = 8 << 10

// StateReporter exposes the engine lifecycle for readiness checks.
type StateReporter interface {
	State() entities.EngineState
}

// Config configures the server.
type Config struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	RateLimit     int
	CORSOrigins   []string
	AssistantName string
}

// Server is the HTTP server for the chat API and UI.
type Server struct {
	cfg      Config
	chat     *usecases.ChatUseCase
	engine   StateReporter
	metrics  *telemetry.Metrics
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	page     *template.Template
	log      logrus.FieldLogger
}

// NewServer creates a new HTTP server. metrics may be nil.
func NewServer(cfg Config, chat *usecases.ChatUseCase, engine StateReporter, metrics *telemetry.Metrics, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		cfg:     cfg,
		chat:    chat,
		engine:  engine,
		metrics: metrics,
		limiter: createLimiter(cfg.RateLimit),
		page:    template.Must(template.New("index").Parse(indexHTML)),
		log:     log.WithField("component", "http"),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.originAllowed}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/history", s.handleHistory)
	r.With(s.rateLimit).Post("/ask", s.handleAsk)
	r.With(s.rateLimit).Get("/ws", s.handleWebSocket)

	return otelhttp.NewHandler(r, "faqbot")
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.WithField("addr", s.cfg.Addr).Info("faqbot server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type askRequest struct {
	Message string `json:"message"`
}

type askResponse struct {
	Reply string `json:"reply"`
	Kind  string `json:"kind,omitempty"`
}

type historyEntry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.page.Execute(w, struct{ Name string }{s.cfg.AssistantName})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports 200 only once the engine can answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	state := s.engine.State()
	status := http.StatusServiceUnavailable
	if state == entities.StateReady {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]string{"state": state.String()})
}

// handleAsk accepts the message as a form field or a JSON body.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)

	var message string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, askResponse{Reply: usecases.EmptyMessageReply})
			return
		}
		message = req.Message
	} else {
		message = r.FormValue("message")
	}

	if strings.TrimSpace(message) == "" {
		writeJSON(w, http.StatusBadRequest, askResponse{Reply: usecases.EmptyMessageReply})
		return
	}

	reply := s.chat.Send(r.Context(), s.session(w, r), message)

	s.metrics.RecordReply(r.Context(), reply.Kind)
	writeJSON(w, http.StatusOK, askResponse{Reply: reply.Text, Kind: string(reply.Kind)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := []historyEntry{}
	if c, err := r.Cookie(SessionCookie); err == nil {
		for _, m := range s.chat.History(c.Value) {
			entries = append(entries, historyEntry{Role: m.Role, Content: m.Content, At: m.At})
		}
	}
	writeJSON(w, http.StatusOK, map[string][]historyEntry{"history": entries})
}

// handleWebSocket runs one conversation per connection. Each text frame is
// a message, either raw text or {"message": "..."}; each reply is a JSON
// askResponse.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := s.session(w, r)

	header := http.Header{}
	for _, c := range w.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", c)
	}

	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	log := s.log.WithField("session", sessionID)
	log.Debug("websocket connected")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		message := string(data)
		var req askRequest
		if json.Unmarshal(data, &req) == nil && req.Message != "" {
			message = req.Message
		}

		reply := s.chat.Send(r.Context(), sessionID, message)
		if strings.TrimSpace(message) != "" {
			s.metrics.RecordReply(r.Context(), reply.Kind)
		}
		if err := conn.WriteJSON(askResponse{Reply: reply.Text, Kind: string(reply.Kind)}); err != nil {
			log.WithError(err).Debug("websocket write failed")
			return
		}
	}
}

// session returns the caller's session id, starting a new conversation and
// setting the cookie when there is none.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := s.chat.NewSession()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.cfg.CORSOrigins, "*") {
		return true
	}
	return slices.Contains(s.cfg.CORSOrigins, origin)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, askResponse{Reply: "Too many requests. Please slow down."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
		}).Info("request")
	})
}

// createLimiter returns nil for a non-positive limit, disabling limiting.
func createLimiter(limit int) *rate.Limiter {
	if limit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(limit), limit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
