// Package server отдает живые сессии списка постов по websocket.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/posts-manager/internal/gateway"
	"github.com/UkralStul/posts-manager/internal/session"
)

// Server создает по сессии на каждое подключение.
type Server struct {
	gw       gateway.Gateway
	cfg      session.Config
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// New создает сервер поверх шлюза.
func New(gw gateway.Gateway, cfg session.Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		gw:  gw,
		cfg: cfg,
		log: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router возвращает обработчик со всеми маршрутами.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(AccessLog(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/session", s.serveSession)

	// Разовые запросы: сессия живет один запрос.
	r.Get("/view", s.getView)
	r.Get("/tags", s.getTags)
	r.Get("/posts/{id}", s.getPost)
	r.Get("/users/{id}", s.getUser)
	return r
}

// AccessLog пишет строку лога на каждый запрос.
func AccessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			log.Info("handled",
				"method", r.Method,
				"url", r.URL.String(),
				"status", m.Code,
				"duration", m.Duration,
				"bytes", m.Written,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (s *Server) oneShot(w http.ResponseWriter) (*session.Session, bool) {
	sess, err := session.New(s.gw, s.cfg)
	if err != nil {
		s.log.Error("failed to create session", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.oneShot(w)
	if !ok {
		return
	}
	defer sess.Close()

	if err := sess.Navigate(r.Context(), "?"+r.URL.RawQuery); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, sess.View())
}

func (s *Server) getTags(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.oneShot(w)
	if !ok {
		return
	}
	defer sess.Close()

	tags, err := sess.Tags(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, tags)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sess, ok := s.oneShot(w)
	if !ok {
		return
	}
	defer sess.Close()

	// пост берется из списка, в котором он есть
	if err := sess.Navigate(r.Context(), "?"+r.URL.RawQuery); err != nil {
		s.fail(w, err)
		return
	}
	d, err := sess.OpenPost(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, d)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sess, ok := s.oneShot(w)
	if !ok {
		return
	}
	defer sess.Close()

	u, err := sess.User(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, u)
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to write response", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	kind, status := classify(err)
	s.respond(w, status, outbound{Type: msgError, Kind: kind, Error: err.Error()})
}
