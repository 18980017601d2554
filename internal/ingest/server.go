// Package ingest exposes the HTTP callback endpoint that translates
// inbound user actions (button clicks, webhook posts) into response
// events on the engine's synchronized entry point.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"standupbot/internal/engine"
	"standupbot/internal/storage"
	"standupbot/pkg/logx"
)

type Config struct {
	Addr string
}

type Server struct {
	eng   *engine.Engine
	store storage.Store
	log   logx.Logger
	srv   *http.Server
}

func New(cfg Config, eng *engine.Engine, store storage.Store, log logx.Logger) *Server {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	s := &Server{eng: eng, store: store, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /callback", s.handleCallback)
	mux.HandleFunc("GET /summary", s.handleSummary)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("ingest listening", logx.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(sctx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type callbackPayload struct {
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
	// Action distinguishes standup replies from health-check moods:
	// "standup_reply", "great", "okay", "not_great".
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var p callbackPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if p.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	now := s.eng.Clock().Now()
	day := now.Format("2006-01-02")

	switch p.Action {
	case "great", "okay", "not_great":
		if err := s.store.SaveHealthCheck(r.Context(), storage.HealthCheckResponse{
			Day: day, UserID: p.UserID, Mood: p.Action, At: now,
		}); err != nil {
			s.log.Warn("health check save failed", logx.String("user", p.UserID), logx.Err(err))
		}
	default:
		// Standup reply. Unknown threads are silently absorbed by the
		// tracker (response after cleanup).
		applied := s.eng.RecordResponse(p.ThreadID, p.UserID)
		if applied {
			if err := s.store.SaveStandupResponse(r.Context(), storage.StandupResponse{
				Day: day, ThreadID: p.ThreadID, UserID: p.UserID, Text: p.Text, At: now,
			}); err != nil {
				s.log.Warn("standup response save failed", logx.String("user", p.UserID), logx.Err(err))
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.eng.DailySummary(s.eng.Clock().Now())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sum)
}
