package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kalambet/genreach/internal/panel"
)

const maxRequestBody = 1 << 20

// HTTPHandler serves POST /runtime/message: one JSON request, one JSON
// response.
func (d *Dispatcher) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid JSON body"})
			return
		}
		resp := d.Handle(r.Context(), req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: localOrigin}

// localOrigin accepts clients that send no Origin (CLI tools, the TUI) and
// browser pages served from a loopback origin. Any other web page is
// refused so it cannot drive the attached profile. The Host header is not
// trusted: a rebound DNS name would match it.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// wsSink serializes writes to one connection.
type wsSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSink) send(resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(resp); err != nil {
		slog.Debug("runtime: websocket write failed", "error", err)
	}
}

// WebSocketHandler serves GET /runtime/ws. Each text frame carries one
// request; replies echo its id and may arrive out of order. Panel state
// changes are pushed as {"event":"state"} frames.
func (d *Dispatcher) WebSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("runtime: websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxRequestBody)

		sink := &wsSink{conn: conn}
		if d.page != nil {
			cancel := d.page.Subscribe(func(st panel.State) {
				sink.send(Response{Event: "state", State: &st})
			})
			defer cancel()
		}

		var wg sync.WaitGroup
		defer wg.Wait()
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		for {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("runtime: websocket read ended", "error", err)
				}
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				sink.send(d.Handle(ctx, req))
			}()
		}
	}
}
