package httpserver

import (
	"net/http"
	"strings"

	"clearhaven/internal/auth"
	"clearhaven/internal/closure"

	"github.com/gorilla/websocket"
)

// ProgressWSHandler streams closure progress events so a client watching a
// closure can update per-step status without polling the REST surface.
// Auth rides on a token query param (browser websockets cannot set
// headers), and the ownership gate runs before the upgrade.
type ProgressWSHandler struct {
	bus      *closure.Bus
	authSvc  *auth.Service
	svc      *closure.Service
	origin   string
	upgrader websocket.Upgrader
}

func NewProgressWSHandler(bus *closure.Bus, authSvc *auth.Service, svc *closure.Service, origin string) *ProgressWSHandler {
	return &ProgressWSHandler{
		bus:     bus,
		authSvc: authSvc,
		svc:     svc,
		origin:  origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *ProgressWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	accountID := r.URL.Query().Get("account_id")
	if _, err := h.svc.Authorize(r.Context(), userID, accountID); err != nil {
		http.Error(w, "access denied", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case evt := <-sub:
			rep, ok := evt.Data.(closure.Report)
			if !ok || rep.AccountID != accountID {
				continue
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
