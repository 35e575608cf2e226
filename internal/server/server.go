package server

import (
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"plot-twist/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	store     *Store
	db        *gorm.DB
	ws        *wsHub
	cfg       config.Config
	twists    *twistService
	twistRoll func() float64

	locksMu   sync.Mutex
	roomLocks map[string]*sync.Mutex

	janitorStop chan struct{}
	janitorDone chan struct{}
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	var backend messageBackend
	if cfg.AnthropicAPIKey != "" {
		backend = newAnthropicBackend(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	} else {
		backend = &mockBackend{delay: time.Duration(cfg.AIMockDelayMillis) * time.Millisecond}
	}
	return &Server{
		store:     NewStore(),
		db:        conn,
		ws:        newWSHub(),
		cfg:       cfg,
		twists:    newTwistService(backend, cfg.AIMaxRetries, time.Duration(cfg.AIRetryBaseMillis)*time.Millisecond),
		twistRoll: rand.Float64,
		roomLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms/", s.handleRoomSubroutes)
	mux.HandleFunc("POST /api/rooms/", s.handleRoomSubroutes)
	mux.HandleFunc("GET /ws/rooms/", s.handleWebsocket)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	return mux
}

// Start launches the expired-room janitor. Stop shuts it down; both are
// idempotent enough for the single start/stop cycle a process performs.
func (s *Server) Start() {
	if s.janitorStop != nil {
		return
	}
	s.janitorStop = make(chan struct{})
	s.janitorDone = make(chan struct{})
	interval := time.Duration(s.cfg.RoomCleanupMinutes) * time.Minute
	go s.runJanitor(interval)
}

func (s *Server) Stop() {
	if s.janitorStop == nil {
		return
	}
	close(s.janitorStop)
	<-s.janitorDone
	s.janitorStop = nil
}

func (s *Server) runJanitor(interval time.Duration) {
	defer close(s.janitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepExpiredRooms()
		case <-s.janitorStop:
			return
		}
	}
}

func (s *Server) sweepExpiredRooms() {
	now := timeNowUTC()
	swept := s.store.CleanupExpiredRooms(now)
	if swept == 0 {
		return
	}
	if err := s.persistExpiredRooms(now); err != nil {
		log.Printf("failed to persist room expiry sweep error=%v", err)
	}
	log.Printf("expired rooms deactivated count=%d", swept)
}
