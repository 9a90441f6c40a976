// Package web is the thin admin surface: a group-invite page and API,
// a broadcast endpoint, health, and metrics. Everything passes straight
// through to adapter operations.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"recapbot/internal/config"
	"recapbot/internal/domain"
	"recapbot/internal/metrics"
)

// Server hosts the admin HTTP surface.
type Server struct {
	cfg         config.WebConfig
	joiner      domain.GroupJoiner
	broadcaster domain.Channel
	httpSrv     *http.Server
	logger      *slog.Logger
}

type ServerConfig struct {
	Config         config.WebConfig
	MetricsEnabled bool
	MetricsPath    string
	Joiner         domain.GroupJoiner // may be nil
	Broadcaster    domain.Channel     // may be nil
	// Mounts are extra handlers (adapter webhooks) keyed by path prefix.
	Mounts map[string]http.Handler
	Logger *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:         cfg.Config,
		joiner:      cfg.Joiner,
		broadcaster: cfg.Broadcaster,
		logger:      cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/invite", s.handleInvite)
	mux.HandleFunc("POST /api/broadcast", s.handleBroadcast)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, metrics.Collector.Handler())
	}
	for prefix, h := range cfg.Mounts {
		mux.Handle(prefix, h)
	}

	s.httpSrv = &http.Server{
		Addr:              net.JoinHostPort(cfg.Config.Host, fmt.Sprintf("%d", cfg.Config.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type inviteRequest struct {
	InviteLink string `json:"inviteLink"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.InviteLink) == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Please provide an invite link"})
		return
	}
	if !strings.Contains(req.InviteLink, "chat.whatsapp.com/") {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid WhatsApp invite link format"})
		return
	}
	if s.joiner == nil {
		writeJSON(w, http.StatusNotImplemented, apiResponse{Message: "No channel able to join groups is configured"})
		return
	}

	code := req.InviteLink[strings.LastIndex(req.InviteLink, "/")+1:]
	if code == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid invite link"})
		return
	}

	s.logger.Info("join group requested", "invite", req.InviteLink)
	groupID, err := s.joiner.JoinGroup(r.Context(), code)
	if err != nil {
		s.logger.Warn("join group failed", "err", err)
		writeJSON(w, http.StatusBadGateway, apiResponse{Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully joined group! Group ID: %s", groupID),
	})
}

type broadcastRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid request body"})
		return
	}
	if req.ChatID == "" || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "chatId and message are required"})
		return
	}
	if s.broadcaster == nil {
		writeJSON(w, http.StatusNotImplemented, apiResponse{Message: "No broadcast channel configured"})
		return
	}

	text := req.Message
	if s.cfg.RewardBaseURL != "" {
		code := uuid.NewString()
		text = fmt.Sprintf("%s\n Share this link with your friends! Get reward points for each purchased item: %s?rewardCode=%s",
			req.Message, s.cfg.RewardBaseURL, code)
	}

	if err := s.broadcaster.Send(r.Context(), req.ChatID, text); err != nil {
		s.logger.Warn("broadcast failed", "chat", req.ChatID, "err", err)
		writeJSON(w, http.StatusBadGateway, apiResponse{Message: "Failed to send message"})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Message sent"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>recapbot</title></head>
<body>
<h1>🤖 recapbot</h1>
<p>Invite the bot to a group:</p>
<form method="post" action="/api/invite" onsubmit="event.preventDefault();
  fetch('/api/invite', {method:'POST', headers:{'Content-Type':'application/json'},
    body: JSON.stringify({inviteLink: document.getElementById('link').value})})
  .then(r => r.json()).then(j => document.getElementById('out').textContent = j.message);">
  <input id="link" type="url" placeholder="https://chat.whatsapp.com/..." size="50">
  <button type="submit">Invite</button>
</form>
<pre id="out"></pre>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexPage)
}
