package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"sopflow/internal/flowstore"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type string `json:"type"`
}

type wsOutbound struct {
	Type      string              `json:"type"`
	SessionID string              `json:"sessionId,omitempty"`
	Snapshot  *flowstore.Snapshot `json:"snapshot,omitempty"`
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// handleWS streams a "snapshot" event after every store change. Clients may
// send {"type":"ping"} or {"type":"snapshot"} to request the current state.
func (s *Service) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	st := storeFrom(r)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.Printf("session ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// The first snapshot from Subscribe doubles as the subscription ack.
	go func() {
		for snap := range st.Subscribe(ctx) {
			pushWS(writeCh, wsOutbound{Type: "snapshot", SessionID: sessionID, Snapshot: &snap})
		}
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch msgType := strings.ToLower(strings.TrimSpace(in.Type)); msgType {
		case "":
			pushWS(writeCh, wsOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		case "ping":
			pushWS(writeCh, wsOutbound{Type: "pong"})
		case "snapshot":
			snap := st.Snapshot()
			pushWS(writeCh, wsOutbound{Type: "snapshot", SessionID: sessionID, Snapshot: &snap})
		default:
			pushWS(writeCh, wsOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + msgType})
		}
	}
}

// pushWS never blocks; when the buffer is full the oldest event is dropped.
func pushWS(writeCh chan wsOutbound, out wsOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
