package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"AviaxMusic/cache"
	"AviaxMusic/config"
	"AviaxMusic/core/call"
	"AviaxMusic/logger"
	"AviaxMusic/repository"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes the status API: health, assistant ping, active calls,
// playback history and the websocket now-playing feed.
type Server struct {
	cfg     *config.Config
	caller  *call.Caller
	chats   *cache.ChatCache
	history repository.HistoryRepository
	hub     *FeedHub
	httpSrv *http.Server
}

// New builds the server. history may be nil when mysql is unavailable.
func New(cfg *config.Config, caller *call.Caller, chats *cache.ChatCache, history repository.HistoryRepository, hub *FeedHub) *Server {
	s := &Server{
		cfg:     cfg,
		caller:  caller,
		chats:   chats,
		history: history,
		hub:     hub,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/ping", s.handlePing).Methods(http.MethodGet)
	router.HandleFunc("/api/auth", s.handleAuth).Methods(http.MethodPost)
	router.HandleFunc("/api/calls", s.requireAuth(s.handleCalls)).Methods(http.MethodGet)
	router.HandleFunc("/api/history", s.requireAuth(s.handleHistory)).Methods(http.MethodGet)
	router.HandleFunc("/ws/feed", s.handleFeed)

	s.httpSrv = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("status server listening", logger.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("response encode failed", logger.ErrorField(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"ping": s.caller.Ping()})
}

type callInfo struct {
	ChatID    int64 `json:"chatId"`
	QueueSize int   `json:"queueSize"`
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chats.ActiveChats(r.Context())
	if err != nil {
		http.Error(w, "state lookup failed", http.StatusInternalServerError)
		return
	}

	calls := make([]callInfo, 0, len(chats))
	for _, chatID := range chats {
		calls = append(calls, callInfo{
			ChatID:    chatID,
			QueueSize: s.caller.Queues().Len(chatID),
		})
	}
	writeJSON(w, map[string]interface{}{
		"calls":       calls,
		"feedClients": s.hub.clientCount(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}

	if chatParam := r.URL.Query().Get("chat_id"); chatParam != "" {
		chatID, err := strconv.ParseInt(chatParam, 10, 64)
		if err != nil {
			http.Error(w, "bad chat_id", http.StatusBadRequest)
			return
		}
		rows, err := s.history.RecentByChat(r.Context(), chatID, 20)
		if err != nil {
			http.Error(w, "history query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, rows)
		return
	}

	top, err := s.history.TopTracks(r.Context(), 10)
	if err != nil {
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, top)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("feed upgrade failed", logger.ErrorField(err))
		return
	}
	s.hub.add(conn)

	// Reader loop only detects disconnects; the feed is one-way.
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
