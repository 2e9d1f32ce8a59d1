package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"spaceship-sim/internal/config"
	"spaceship-sim/internal/diag"
)

const (
	qrSize          = 256
	maxHistoryLimit = 1000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server bundles what the HTTP handlers need
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	hub      *Hub
	auth     *Auth
	ctl      TierControl
	recorder *diag.Recorder
}

// SetupRoutes configures HTTP routes
func SetupRoutes(s *Server) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/hud/token", s.handleToken)
	mux.HandleFunc("/hud/qr.png", s.handleQR)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/stats/history", s.handleHistory)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"clients": s.hub.ClientCount()})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

// WebSocket endpoint; the token comes from /hud/token
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	subject, err := s.auth.ValidateToken(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	ip := extractIP(r)
	if !s.hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade error", zap.Error(err))
		return
	}

	s.hub.TrackConnect(ip)

	client := NewClient(s.hub, conn, ip, subject, ClientOptions{
		SendBuffer: s.cfg.Server.SendBuffer,
		WriteWait:  s.cfg.Server.WriteTimeout,
		Control:    s.ctl,
	})
	s.hub.register <- client
	client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		Subject:   subject,
		Width:     s.cfg.Game.Width,
		Height:    s.cfg.Game.Height,
		FrameRate: s.cfg.Frame.FrameRate,
	}})

	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.FormValue("key")
	}
	token, err := s.auth.Exchange(key, extractIP(r))
	switch {
	case errors.Is(err, errKeyDisabled):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, errRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, errBadKey):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		s.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int(s.auth.ttl.Seconds()),
	})
}

// handleQR renders the HUD link as a PNG. A valid token is embedded so a
// phone can scan it and connect straight away.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	link := s.cfg.Server.PublicURL
	if link == "" {
		link = "http://" + r.Host
	}
	if token := r.URL.Query().Get("token"); token != "" {
		if _, err := s.auth.ValidateToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		link += "/?token=" + url.QueryEscape(token)
	}

	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		s.log.Error("encode qr", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		writeError(w, http.StatusNotFound, "diagnostics disabled")
		return
	}
	snap, ok := s.recorder.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HistoryResponse is the body of /stats/history
type HistoryResponse struct {
	Snapshots   []diag.Snapshot   `json:"snapshots"`
	TierChanges []diag.TierChange `json:"tier_changes"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil || s.recorder.Store() == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	store := s.recorder.Store()
	snaps, err := store.Recent(limit)
	if err != nil {
		s.log.Error("query history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	changes, err := store.TierChanges(limit)
	if err != nil {
		s.log.Error("query tier changes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if snaps == nil {
		snaps = []diag.Snapshot{}
	}
	if changes == nil {
		changes = []diag.TierChange{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Snapshots: snaps, TierChanges: changes})
}
