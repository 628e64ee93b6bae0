package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Mun1z/Imgeneus/internal/engine"
	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/internal/version"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// QueueStatser - источник статистики очереди записи для /health.
type QueueStatser interface {
	Stats() persist.QueueStats
	Pending() int
}

type Server struct {
	Engine *engine.Service
	Queue  QueueStatser
	Port   string

	// ctx сессий: отменяется при остановке сервера.
	ctx context.Context
}

func New(engine *engine.Service, queue QueueStatser, port string) *Server {
	return &Server{
		Engine: engine,
		Queue:  queue,
		Port:   port,
		ctx:    context.Background(),
	}
}

// Handler собирает роуты.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	return mux
}

// Run запускает HTTP сервер и останавливает его по отмене ctx.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.ctx = ctx
	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("Shard server running on :%s", s.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("HTTP shutdown did not finish cleanly")
		return err
	}
	logger.Log.Info("HTTP server stopped")
	return nil
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleWS обрабатывает подключение по WebSocket
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Error("Upgrade error")
		return
	}

	client := NewClient(s.ctx, s.Engine, conn)

	// Запускаем пампы
	go client.writePump()
	go client.readPump()
}

type healthView struct {
	Status      string             `json:"status"`
	Entities    int                `json:"entities"`
	Subscribers int                `json:"subscribers"`
	Pending     int                `json:"pending"`
	Queue       persist.QueueStats `json:"queue"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	view := healthView{
		Status:      "ok",
		Entities:    s.Engine.ActorCount(),
		Subscribers: s.Engine.Hub.SubscriberCount(),
	}
	if s.Queue != nil {
		view.Pending = s.Queue.Pending()
		view.Queue = s.Queue.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(view); err != nil {
		logger.Log.WithError(err).Debug("write health failed")
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(version.Info()); err != nil {
		logger.Log.WithError(err).Debug("write version failed")
	}
}
